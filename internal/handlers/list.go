package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faizanr27/food-facts/internal/catalog"
	"github.com/faizanr27/food-facts/internal/middleware"
	"github.com/faizanr27/food-facts/internal/observability"
	"github.com/faizanr27/food-facts/internal/requestctx"
	"github.com/faizanr27/food-facts/internal/seo"
)

const (
	listSlot  = "list"
	viewParam = "view"
)

// ListPage renders the full list page for the query in the URL.
func (h *Handlers) ListPage(w http.ResponseWriter, r *http.Request) {
	lang := middleware.Lang(r.Context())
	q := catalog.ParseQuery(r.URL.Query(), h.pageSize)
	q.Locale = lang

	listing, err := h.catalog.Browse(r.Context(), q)
	if err != nil {
		listing.Query = q
	}
	grid, status := h.grid(r.Context(), lang, listing, err)

	data := ListData{
		Layout:  h.layout(r, h.t(lang, "site.title")),
		Filters: h.filters(lang, listing.Query, listing.Categories),
		Grid:    grid,
		View:    uuid.NewString(),
	}
	data.Search = listing.Query.Search
	data.SEO.Canonical = h.absolute(listing.Query.URL(listPath))
	data.SEO.JSONLD = []string{
		seo.JSON(seo.WebSite(data.Title, h.absolute(listPath), h.absolute(listPath+"?q="))),
	}
	h.page(w, r, status, "list", data)
}

// GridFragment renders only the grid region for htmx swaps. A response that
// was superseded by a newer request from the same list view is dropped with
// 204 and HX-Reswap: none.
func (h *Handlers) GridFragment(w http.ResponseWriter, r *http.Request) {
	lang := middleware.Lang(r.Context())
	q := catalog.ParseQuery(r.URL.Query(), h.pageSize)
	q.Locale = lang

	ctx, ticket := h.guard.Begin(r.Context(), viewKey(r), listSlot)
	defer ticket.Release()

	listing, err := h.catalog.Browse(ctx, q)
	if err != nil {
		listing.Query = q
	}
	if !ticket.Current() {
		requestctx.Logger(r.Context()).Debug("discarding superseded list response",
			zap.Uint64("generation", ticket.Generation()))
		w.Header().Set("HX-Reswap", "none")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	grid, _ := h.grid(r.Context(), lang, listing, err)

	w.Header().Set("HX-Push-Url", listing.Query.URL(listPath))
	// htmx only swaps 2xx responses, so errors render as 200 fragments
	if err := h.renderer.Fragment(w, http.StatusOK, "grid", grid); err != nil {
		requestctx.Logger(r.Context()).Error("render grid fragment failed", zap.Error(err))
		middleware.WriteError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

// viewKey scopes the guard to one rendered list view of a viewer. Requests
// without a valid view token share the viewer-wide key.
func viewKey(r *http.Request) string {
	viewer := middleware.ViewerID(r)
	view, err := uuid.Parse(r.URL.Query().Get(viewParam))
	if err != nil {
		return viewer
	}
	return viewer + "/" + view.String()
}

// grid builds the grid view and the status a full page should carry.
func (h *Handlers) grid(ctx context.Context, lang string, listing catalog.Listing, err error) (GridData, int) {
	grid := GridData{Lang: lang}
	logger := requestctx.Logger(ctx).With(
		zap.String("search", observability.SanitizeQuery(listing.Query.Search)),
		zap.String("category", observability.SanitizeQuery(listing.Query.Category)),
		zap.String("sort", string(listing.Query.Sort)),
	)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNoProducts):
			logger.Info("list returned no products", zap.Error(err))
			grid.Error = h.t(lang, "error.no_products")
			return grid, http.StatusOK
		case errors.Is(err, context.Canceled):
			logger.Debug("list request cancelled", zap.Error(err))
		default:
			logger.Warn("list fetch failed", zap.Error(err))
		}
		grid.Error = h.t(lang, "error.fetch")
		return grid, http.StatusBadGateway
	}

	grid.Cards = h.cards(lang, listing.Page.Items)
	grid.Total = listing.Page.Total
	grid.Pagination = paginationView(listing.Query, listing.Page)
	if len(grid.Cards) == 0 {
		grid.Empty = h.t(lang, "error.no_products")
		if listing.Query.Filtered() {
			grid.Empty = h.t(lang, "list.empty")
		}
	}
	logger.Debug("list resolved",
		zap.Int("page", listing.Page.Page),
		zap.Int("total", listing.Page.Total))
	return grid, http.StatusOK
}
