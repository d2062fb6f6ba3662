package handlers

import (
	"github.com/go-chi/chi/v5"
)

// Mount registers the page and fragment routes.
func (h *Handlers) Mount(r chi.Router) {
	r.Get("/", h.ListPage)
	r.Get("/products/grid", h.GridFragment)
	r.Get("/product/{productID}", h.ProductPage)
	r.Get("/about", h.AboutPage)
	r.NotFound(h.NotFound)
}
