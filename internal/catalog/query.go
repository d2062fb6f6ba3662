package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

// Page size limits.
const (
	DefaultPageSize = 12
	MaxPageSize     = 100
	maxSearchLength = 200
)

// SortKey selects the ordering of the product list.
type SortKey string

// Supported sort keys. SortNone keeps upstream order.
const (
	SortNone      SortKey = ""
	SortNameAsc   SortKey = "name-asc"
	SortNameDesc  SortKey = "name-desc"
	SortGradeAsc  SortKey = "grade-asc"
	SortGradeDesc SortKey = "grade-desc"
)

// SortKeys lists the selectable keys in display order.
var SortKeys = []SortKey{SortNameAsc, SortNameDesc, SortGradeAsc, SortGradeDesc}

// ParseSort returns the matching key, or SortNone for unknown values.
func ParseSort(raw string) SortKey {
	key := SortKey(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range SortKeys {
		if key == known {
			return key
		}
	}
	return SortNone
}

// Query is the complete list state: search text, category, sort and page.
// It round-trips through the URL so the address bar owns the state.
type Query struct {
	Search   string
	Category string
	Sort     SortKey
	Page     int
	PageSize int
	// Locale asks upstream for localised names. It is not part of the URL state.
	Locale string
}

// ParseQuery reads list state from URL values. pageSize is used when the
// values carry no explicit size.
func ParseQuery(values url.Values, pageSize int) Query {
	q := Query{
		Search:   truncate(strings.TrimSpace(values.Get("q")), maxSearchLength),
		Category: strings.TrimSpace(values.Get("category")),
		Sort:     ParseSort(values.Get("sort")),
		Page:     1,
		PageSize: pageSize,
	}
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			q.Page = page
		}
	}
	return q.normalize()
}

func (q Query) normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// WithSearch returns a copy with new search text and the page reset to 1.
func (q Query) WithSearch(search string) Query {
	q.Search = truncate(strings.TrimSpace(search), maxSearchLength)
	q.Page = 1
	return q
}

// WithCategory returns a copy with a new category and the page reset to 1.
func (q Query) WithCategory(category string) Query {
	q.Category = strings.TrimSpace(category)
	q.Page = 1
	return q
}

// WithSort returns a copy with a new sort key and the page reset to 1.
func (q Query) WithSort(sort SortKey) Query {
	q.Sort = sort
	q.Page = 1
	return q
}

// WithPage returns a copy pointing at page.
func (q Query) WithPage(page int) Query {
	q.Page = page
	return q.normalize()
}

// Values encodes the query, omitting default values.
func (q Query) Values() url.Values {
	values := url.Values{}
	if q.Search != "" {
		values.Set("q", q.Search)
	}
	if q.Category != "" {
		values.Set("category", q.Category)
	}
	if q.Sort != SortNone {
		values.Set("sort", string(q.Sort))
	}
	if q.Page > 1 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	return values
}

// URL renders the query onto path.
func (q Query) URL(path string) string {
	encoded := q.Values().Encode()
	if encoded == "" {
		return path
	}
	return path + "?" + encoded
}

// Filtered reports whether search or category narrows the list.
func (q Query) Filtered() bool {
	return q.Search != "" || q.Category != ""
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
