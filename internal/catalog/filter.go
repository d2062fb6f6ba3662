package catalog

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/faizanr27/food-facts/internal/pagination"
)

// Page is one page of a filtered and sorted product list.
type Page struct {
	Items      []Summary
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Empty reports whether the page holds no products.
func (p Page) Empty() bool {
	return len(p.Items) == 0
}

// Filter keeps the products matching the query's search text and category.
// Search matches a case-insensitive name substring or a barcode prefix.
// Category matches a case-insensitive substring of the joined categories.
func Filter(items []Summary, q Query) []Summary {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	category := strings.ToLower(strings.TrimSpace(q.Category))
	if search == "" && category == "" {
		return slices.Clone(items)
	}

	out := make([]Summary, 0, len(items))
	for _, item := range items {
		if search != "" && !matchesSearch(item, search) {
			continue
		}
		if category != "" && !strings.Contains(strings.ToLower(item.Categories), category) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesSearch(item Summary, search string) bool {
	if strings.Contains(strings.ToLower(item.Name), search) {
		return true
	}
	return item.ID != "" && strings.HasPrefix(item.ID, search)
}

// Sort orders items in place by key. Ascending sorts are stable, so ties keep
// the upstream order; a descending sort is the exact reverse of its ascending
// sort, ties included. SortNone keeps the upstream order.
func Sort(items []Summary, key SortKey) {
	switch key {
	case SortNameAsc, SortNameDesc:
		collator := collate.New(language.English)
		slices.SortStableFunc(items, func(a, b Summary) int {
			return collator.CompareString(a.Name, b.Name)
		})
	case SortGradeAsc, SortGradeDesc:
		slices.SortStableFunc(items, func(a, b Summary) int {
			return cmp.Compare(a.Grade.Rank(), b.Grade.Rank())
		})
	default:
		return
	}
	if key == SortNameDesc || key == SortGradeDesc {
		slices.Reverse(items)
	}
}

// Paginate slices items for page, clamping page into [1, TotalPages].
func Paginate(items []Summary, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	totalPages := pagination.TotalPages(total, size)
	page = pagination.Clamp(page, totalPages)

	start := (page - 1) * size
	end := min(start+size, total)
	pageItems := []Summary{}
	if start < end {
		pageItems = slices.Clone(items[start:end])
	}
	return Page{
		Items:      pageItems,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
	}
}

// Apply runs filter, sort and pagination over a full product batch.
func Apply(items []Summary, q Query) Page {
	filtered := Filter(items, q)
	Sort(filtered, q.Sort)
	return Paginate(filtered, q.Page, q.PageSize)
}
