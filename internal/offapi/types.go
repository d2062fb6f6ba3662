package offapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Product mirrors the subset of an Open Food Facts product document the site reads.
// Both the search and the product endpoints return this shape; which fields are
// populated depends on the requested field list.
type Product struct {
	Code              string     `json:"code"`
	ID                string     `json:"id"`
	ProductName       string     `json:"product_name"`
	ImageURL          string     `json:"image_url"`
	Categories        string     `json:"categories"`
	IngredientsText   string     `json:"ingredients_text"`
	IngredientsTextEN string     `json:"ingredients_text_en"`
	NutriscoreGrade   string     `json:"nutriscore_grade"`
	LabelsTags        []string   `json:"labels_tags"`
	Nutriments        Nutriments `json:"nutriments"`
}

// Barcode returns the product code, falling back to the id field.
func (p Product) Barcode() string {
	if code := strings.TrimSpace(p.Code); code != "" {
		return code
	}
	return strings.TrimSpace(p.ID)
}

// Nutriments keeps the raw nutriment values keyed by their OFF names
// (e.g. "energy-kcal_100g"). Values arrive as numbers or numeric strings.
type Nutriments map[string]json.RawMessage

// Float returns the numeric value stored under key, or nil when the key is
// absent, null, empty or not numeric.
func (n Nutriments) Float(key string) *float64 {
	raw, ok := n[key]
	if !ok {
		return nil
	}
	value, ok := parseNumber(raw)
	if !ok {
		return nil
	}
	return &value
}

// SearchResult is the decoded body of a search call.
type SearchResult struct {
	Count    int
	Page     int
	PageSize int
	// Products is nil when the upstream body carried no product list at all.
	Products []Product
}

// Tag is a taxonomy entry from a facet endpoint such as categories.json.
type Tag struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Products int    `json:"products"`
	URL      string `json:"url"`
}

type searchPayload struct {
	Count    flexInt    `json:"count"`
	Page     flexInt    `json:"page"`
	PageSize flexInt    `json:"page_size"`
	Products *[]Product `json:"products"`
}

func (p searchPayload) toResult() SearchResult {
	result := SearchResult{
		Count:    int(p.Count),
		Page:     int(p.Page),
		PageSize: int(p.PageSize),
	}
	if p.Products != nil {
		result.Products = *p.Products
		if result.Products == nil {
			result.Products = []Product{}
		}
	}
	return result
}

type tagsPayload struct {
	Count flexInt `json:"count"`
	Tags  []Tag   `json:"tags"`
}

type productPayload struct {
	Code          string   `json:"code"`
	Status        flexInt  `json:"status"`
	StatusVerbose string   `json:"status_verbose"`
	Product       *Product `json:"product"`
}

// flexInt accepts JSON numbers and numeric strings. search.pl reports some
// counters as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	value, ok := parseNumber(data)
	if !ok {
		*f = 0
		return nil
	}
	*f = flexInt(value)
	return nil
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, false
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
		if s == "" {
			return 0, false
		}
		value, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return value, true
	}
	value, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
