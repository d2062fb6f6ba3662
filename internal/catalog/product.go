package catalog

import (
	"strings"

	"github.com/faizanr27/food-facts/internal/offapi"
)

// Grade is a Nutri-Score letter a–e. The empty Grade means the product has no score.
type Grade string

// gradeMissingRank orders absent grades after every lettered grade.
const gradeMissingRank = 5

// ParseGrade normalises an upstream grade. Anything outside a–e is treated as absent.
func ParseGrade(raw string) Grade {
	value := strings.ToLower(strings.TrimSpace(raw))
	if len(value) != 1 || value[0] < 'a' || value[0] > 'e' {
		return ""
	}
	return Grade(value)
}

// Valid reports whether the grade carries a letter.
func (g Grade) Valid() bool {
	return g != ""
}

// Rank returns 0 for a through 4 for e, and 5 for an absent grade.
func (g Grade) Rank() int {
	if !g.Valid() {
		return gradeMissingRank
	}
	return int(g[0] - 'a')
}

// Letter returns the uppercase letter, or an empty string when absent.
func (g Grade) Letter() string {
	return strings.ToUpper(string(g))
}

// Summary is the list-view projection of a product.
type Summary struct {
	ID          string
	Name        string
	ImageURL    string
	Categories  string
	Ingredients string
	Grade       Grade
}

// FirstCategory returns the first entry of the comma-joined category string.
func (s Summary) FirstCategory() string {
	first, _, _ := strings.Cut(s.Categories, ",")
	return strings.TrimSpace(first)
}

// Nutrients holds per-100g values. A nil field means the value is absent upstream.
type Nutrients struct {
	EnergyKcal    *float64
	Fat           *float64
	Carbohydrates *float64
	Proteins      *float64
	Salt          *float64
}

// Detail is the detail-view projection of a product.
type Detail struct {
	ID            string
	Name          string
	ImageURL      string
	IngredientsEN string
	Nutrients     Nutrients
	Labels        []string
	Grade         Grade
}

// DisplayLabels returns the label tags with locale prefixes removed, dropping
// tags that end up empty.
func (d Detail) DisplayLabels() []string {
	out := make([]string, 0, len(d.Labels))
	for _, label := range d.Labels {
		if cleaned := StripLabelPrefixes(label); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

var labelPrefixReplacer = strings.NewReplacer("en:", "", "ar:", "", "fr:", "")

// StripLabelPrefixes removes every en:, ar: and fr: occurrence from a label tag.
func StripLabelPrefixes(tag string) string {
	return strings.TrimSpace(labelPrefixReplacer.Replace(tag))
}

const kilojoulesPerKilocalorie = 4.184

// SummaryFromProduct projects an upstream search hit.
func SummaryFromProduct(p offapi.Product) Summary {
	return Summary{
		ID:          p.Barcode(),
		Name:        strings.TrimSpace(p.ProductName),
		ImageURL:    strings.TrimSpace(p.ImageURL),
		Categories:  p.Categories,
		Ingredients: strings.TrimSpace(p.IngredientsText),
		Grade:       ParseGrade(p.NutriscoreGrade),
	}
}

// DetailFromProduct projects an upstream product document.
func DetailFromProduct(p offapi.Product) Detail {
	energy := p.Nutriments.Float("energy-kcal_100g")
	if energy == nil {
		if kj := p.Nutriments.Float("energy_100g"); kj != nil {
			kcal := *kj / kilojoulesPerKilocalorie
			energy = &kcal
		}
	}
	labels := make([]string, 0, len(p.LabelsTags))
	labels = append(labels, p.LabelsTags...)
	return Detail{
		ID:            p.Barcode(),
		Name:          strings.TrimSpace(p.ProductName),
		ImageURL:      strings.TrimSpace(p.ImageURL),
		IngredientsEN: strings.TrimSpace(p.IngredientsTextEN),
		Nutrients: Nutrients{
			EnergyKcal:    energy,
			Fat:           p.Nutriments.Float("fat_100g"),
			Carbohydrates: p.Nutriments.Float("carbohydrates_100g"),
			Proteins:      p.Nutriments.Float("proteins_100g"),
			Salt:          p.Nutriments.Float("salt_100g"),
		},
		Labels: labels,
		Grade:  ParseGrade(p.NutriscoreGrade),
	}
}
