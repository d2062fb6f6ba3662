package handlers

import (
	"net/http"
	"strings"

	"github.com/faizanr27/food-facts/internal/catalog"
	"github.com/faizanr27/food-facts/internal/content"
	"github.com/faizanr27/food-facts/internal/format"
	"github.com/faizanr27/food-facts/internal/middleware"
	"github.com/faizanr27/food-facts/internal/nav"
	"github.com/faizanr27/food-facts/internal/pagination"
	"github.com/faizanr27/food-facts/internal/seo"
)

const (
	listPath = "/"
	gridPath = "/products/grid"
)

// Layout carries the fields shared by every full page.
type Layout struct {
	Lang        string
	Title       string
	SEO         seo.Meta
	Path        string
	Nav         []nav.RenderedItem
	Languages   []nav.Language
	Breadcrumbs []nav.Crumb
	// Search pre-fills the navbar input.
	Search string
}

// ListData is the view model of the list page.
type ListData struct {
	Layout
	Filters Filters
	Grid    GridData
	// View identifies this rendering of the list; htmx sends it back with
	// every grid request.
	View string
}

// Filters is the category and sort form.
type Filters struct {
	Search     string
	Categories []Option
	Sorts      []Option
}

// Option is a select option.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// GridData is the swappable grid region. Exactly one of Error or the cards
// is rendered; Empty replaces the cards when there are none.
type GridData struct {
	Lang       string
	Error      string
	Empty      string
	Cards      []CardView
	Total      int
	Pagination PaginationView
}

// CardView is one product card.
type CardView struct {
	ID          string
	Href        string
	Name        string
	ImageURL    string
	Category    string
	Ingredients string
	GradeClass  string
	GradeLabel  string
}

// PaginationView renders pagination.Control as links.
type PaginationView struct {
	Show             bool
	Prev             PageLink
	Next             PageLink
	First            *PageLink
	LeadingEllipsis  bool
	Pages            []PageLink
	TrailingEllipsis bool
	Last             *PageLink
}

// PageLink targets one page both as a plain link and as an htmx swap.
type PageLink struct {
	Number   int
	Href     string
	GridHref string
	Current  bool
	Disabled bool
}

// DetailData is the view model of the product page.
type DetailData struct {
	Layout
	Error   string
	Product *ProductView
}

// ProductView is the formatted product detail.
type ProductView struct {
	ID          string
	Name        string
	ImageURL    string
	Ingredients string
	Nutrients   []NutrientRow
	Labels      []string
	GradeClass  string
	GradeLabel  string
}

// NutrientRow is one line of the nutrition table.
type NutrientRow struct {
	Label string
	Value string
}

// ContentData is the view model of markdown pages.
type ContentData struct {
	Layout
	Page content.Page
}

// ErrorData is the view model of the error page.
type ErrorData struct {
	Layout
	Status  int
	Message string
}

func (h *Handlers) layout(r *http.Request, title string) Layout {
	lang := middleware.Lang(r.Context())
	return Layout{
		Lang:      lang,
		Title:     title,
		Path:      r.URL.Path,
		Nav:       nav.Build(r.URL.Path),
		Languages: nav.Languages(r.URL.Path, r.URL.RawQuery, h.bundle.Supported(), lang),
		SEO: seo.Meta{
			Title:       title,
			Description: h.t(lang, "site.tagline"),
			Canonical:   h.absolute(r.URL.Path),
			OG: seo.OpenGraph{
				Title:       title,
				Description: h.t(lang, "site.tagline"),
				Type:        "website",
			},
		},
	}
}

func (h *Handlers) cards(lang string, items []catalog.Summary) []CardView {
	na := h.t(lang, "common.na")
	out := make([]CardView, 0, len(items))
	for _, item := range items {
		out = append(out, CardView{
			ID:          item.ID,
			Href:        "/product/" + item.ID,
			Name:        format.OrNA(item.Name, na),
			ImageURL:    item.ImageURL,
			Category:    format.OrNA(item.FirstCategory(), na),
			Ingredients: format.OrNA(format.PlainIngredients(item.Ingredients), na),
			GradeClass:  format.GradeClass(item.Grade),
			GradeLabel:  format.GradeLabel(item.Grade, na),
		})
	}
	return out
}

func paginationView(q catalog.Query, page catalog.Page) PaginationView {
	ctrl := pagination.Build(page.Page, page.TotalPages)
	link := func(n int, disabled bool) PageLink {
		target := q.WithPage(n)
		return PageLink{
			Number:   n,
			Href:     target.URL(listPath),
			GridHref: target.URL(gridPath),
			Current:  n == ctrl.Current,
			Disabled: disabled,
		}
	}
	view := PaginationView{
		Show:             ctrl.Multiple(),
		Prev:             link(ctrl.Prev.Page, ctrl.Prev.Disabled),
		Next:             link(ctrl.Next.Page, ctrl.Next.Disabled),
		LeadingEllipsis:  ctrl.LeadingEllipsis,
		TrailingEllipsis: ctrl.TrailingEllipsis,
	}
	if ctrl.First != nil {
		first := link(ctrl.First.Page, false)
		view.First = &first
	}
	for _, n := range ctrl.Pages {
		view.Pages = append(view.Pages, link(n, false))
	}
	if ctrl.Last != nil {
		last := link(ctrl.Last.Page, false)
		view.Last = &last
	}
	return view
}

func (h *Handlers) filters(lang string, q catalog.Query, categories []string) Filters {
	f := Filters{Search: q.Search}
	f.Categories = append(f.Categories, Option{Value: "", Label: h.t(lang, "list.all_categories"), Selected: q.Category == ""})
	seen := false
	for _, name := range categories {
		selected := q.Category != "" && !seen && strings.EqualFold(name, q.Category)
		seen = seen || selected
		f.Categories = append(f.Categories, Option{Value: name, Label: name, Selected: selected})
	}
	if q.Category != "" && !seen {
		// keep a category typed into the URL selectable
		f.Categories = append(f.Categories, Option{Value: q.Category, Label: q.Category, Selected: true})
	}
	f.Sorts = append(f.Sorts, Option{Value: "", Label: h.t(lang, "list.sort_by"), Selected: q.Sort == catalog.SortNone})
	for _, key := range catalog.SortKeys {
		f.Sorts = append(f.Sorts, Option{Value: string(key), Label: h.t(lang, "sort."+string(key)), Selected: key == q.Sort})
	}
	return f
}
