package handlers

import (
	"context"
	"html/template"
	"net/http"
	"strings"

	"github.com/faizanr27/food-facts/internal/catalog"
	"github.com/faizanr27/food-facts/internal/content"
	"github.com/faizanr27/food-facts/internal/format"
	"github.com/faizanr27/food-facts/internal/i18n"
	"github.com/faizanr27/food-facts/internal/inflight"
)

// Catalog is the product source behind the list and detail pages.
type Catalog interface {
	Browse(ctx context.Context, q catalog.Query) (catalog.Listing, error)
	Product(ctx context.Context, id string) (catalog.Detail, error)
}

// Pages serves markdown content pages.
type Pages interface {
	Get(ctx context.Context, slug, lang string) (content.Page, error)
}

// Renderer writes full pages and htmx fragments.
type Renderer interface {
	Page(w http.ResponseWriter, status int, page string, data any) error
	Fragment(w http.ResponseWriter, status int, name string, data any) error
}

// Config wires the handler dependencies.
type Config struct {
	Catalog  Catalog
	Pages    Pages
	Renderer Renderer
	Bundle   *i18n.Bundle
	Guard    *inflight.Guard
	// PageSize applies when a request carries no explicit size.
	PageSize int
	// BaseURL is the public origin used for canonical links and JSON-LD.
	BaseURL string
}

// Handlers holds the HTTP handlers of the web app.
type Handlers struct {
	catalog  Catalog
	pages    Pages
	renderer Renderer
	bundle   *i18n.Bundle
	guard    *inflight.Guard
	pageSize int
	baseURL  string
}

// New constructs Handlers.
func New(cfg Config) *Handlers {
	guard := cfg.Guard
	if guard == nil {
		guard = inflight.New()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = catalog.DefaultPageSize
	}
	return &Handlers{
		catalog:  cfg.Catalog,
		pages:    cfg.Pages,
		renderer: cfg.Renderer,
		bundle:   cfg.Bundle,
		guard:    guard,
		pageSize: pageSize,
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
	}
}

func (h *Handlers) t(lang, key string) string {
	return h.bundle.T(lang, key)
}

func (h *Handlers) absolute(path string) string {
	return h.baseURL + path
}

// Funcs returns the template helpers the page templates rely on.
func Funcs(bundle *i18n.Bundle) template.FuncMap {
	return template.FuncMap{
		"t": bundle.T,
		"tf": func(lang, key string, args ...any) string {
			return bundle.Tf(lang, key, args...)
		},
		"ingredients": format.Ingredients,
		"jsonld": func(payload string) template.JS {
			// payloads come from json.Marshal, which escapes <, > and &
			return template.JS(payload)
		},
	}
}
