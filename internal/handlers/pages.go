package handlers

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/faizanr27/food-facts/internal/content"
	"github.com/faizanr27/food-facts/internal/middleware"
	"github.com/faizanr27/food-facts/internal/requestctx"
)

// AboutPage renders the data attribution page.
func (h *Handlers) AboutPage(w http.ResponseWriter, r *http.Request) {
	h.contentPage(w, r, "about")
}

func (h *Handlers) contentPage(w http.ResponseWriter, r *http.Request, slug string) {
	lang := middleware.Lang(r.Context())
	page, err := h.pages.Get(r.Context(), slug, lang)
	if errors.Is(err, content.ErrNotFound) {
		h.NotFound(w, r)
		return
	}
	if err != nil {
		requestctx.Logger(r.Context()).Error("load content page failed", zap.String("slug", slug), zap.Error(err))
		h.errorPage(w, r, http.StatusInternalServerError, h.t(lang, "error.page_title"))
		return
	}

	data := ContentData{Layout: h.layout(r, page.Title), Page: page}
	if page.SEO.Title != "" {
		data.SEO.Title = page.SEO.Title
		data.SEO.OG.Title = page.SEO.Title
	}
	if desc := firstNonEmpty(page.SEO.Description, page.Summary); desc != "" {
		data.SEO.Description = desc
		data.SEO.OG.Description = desc
	}
	h.page(w, r, http.StatusOK, "content", data)
}

// NotFound renders the 404 page, or a JSON error for htmx requests.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	lang := middleware.Lang(r.Context())
	if middleware.IsHTMX(r.Context()) {
		middleware.WriteError(w, r, http.StatusNotFound, h.t(lang, "error.page_not_found"))
		return
	}
	h.errorPage(w, r, http.StatusNotFound, h.t(lang, "error.page_not_found"))
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func (h *Handlers) errorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	lang := middleware.Lang(r.Context())
	data := ErrorData{
		Layout:  h.layout(r, h.t(lang, "error.page_title")),
		Status:  status,
		Message: message,
	}
	h.page(w, r, status, "error", data)
}

// page renders a full page, falling back to a plain error when the template fails.
func (h *Handlers) page(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if err := h.renderer.Page(w, status, name, data); err != nil {
		requestctx.Logger(r.Context()).Error("render page failed", zap.String("page", name), zap.Error(err))
		middleware.WriteError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
