package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/faizanr27/food-facts/internal/catalog"
	"github.com/faizanr27/food-facts/internal/format"
	"github.com/faizanr27/food-facts/internal/middleware"
	"github.com/faizanr27/food-facts/internal/nav"
	"github.com/faizanr27/food-facts/internal/offapi"
	"github.com/faizanr27/food-facts/internal/requestctx"
	"github.com/faizanr27/food-facts/internal/seo"
)

// ProductPage renders the detail view of one product. Unknown products get a
// 404 banner; transport or decode failures get a 502 banner with the cause.
func (h *Handlers) ProductPage(w http.ResponseWriter, r *http.Request) {
	lang := middleware.Lang(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "productID"))
	logger := requestctx.Logger(r.Context()).With(zap.String("productID", id))

	data := DetailData{Layout: h.layout(r, h.t(lang, "site.title"))}
	if id == "" {
		data.Error = h.t(lang, "error.not_found")
		h.page(w, r, http.StatusNotFound, "product", data)
		return
	}

	detail, err := h.catalog.Product(r.Context(), id)
	switch {
	case errors.Is(err, offapi.ErrNotFound):
		logger.Info("product not found", zap.Error(err))
		data.Error = h.t(lang, "error.not_found")
		h.page(w, r, http.StatusNotFound, "product", data)
		return
	case err != nil:
		logger.Warn("product fetch failed", zap.Error(err))
		data.Error = underlying(err).Error()
		h.page(w, r, http.StatusBadGateway, "product", data)
		return
	}

	view := h.productView(lang, detail)
	data.Product = &view
	data.Title = view.Name
	data.Breadcrumbs = nav.ProductCrumbs(detail.ID, view.Name)
	data.SEO.Title = view.Name
	data.SEO.OG.Title = view.Name
	data.SEO.OG.Type = "product"
	data.SEO.OG.Image = detail.ImageURL
	if detail.IngredientsEN != "" {
		data.SEO.Description = format.PlainIngredients(detail.IngredientsEN)
		data.SEO.OG.Description = data.SEO.Description
	}

	productURL := h.absolute("/product/" + detail.ID)
	info := seo.ProductInfo{
		Name:        view.Name,
		Description: data.SEO.Description,
		URL:         productURL,
		ImageURL:    detail.ImageURL,
		Barcode:     detail.ID,
	}
	if detail.Nutrients.EnergyKcal != nil {
		info.Calories = format.Nutrient(detail.Nutrients.EnergyKcal, "kcal", "en", "")
	}
	data.SEO.JSONLD = []string{
		seo.JSON(seo.Product(info)),
		seo.JSON(seo.BreadcrumbList([]seo.BreadcrumbItem{
			{Name: h.t(lang, "nav.home"), Item: h.absolute(listPath)},
			{Name: view.Name, Item: productURL},
		})),
	}
	h.page(w, r, http.StatusOK, "product", data)
}

func (h *Handlers) productView(lang string, d catalog.Detail) ProductView {
	na := h.t(lang, "common.na")
	n := d.Nutrients
	return ProductView{
		ID:          d.ID,
		Name:        format.OrNA(d.Name, na),
		ImageURL:    d.ImageURL,
		Ingredients: strings.TrimSpace(d.IngredientsEN),
		Nutrients: []NutrientRow{
			{Label: h.t(lang, "detail.energy"), Value: format.Nutrient(n.EnergyKcal, "kcal", lang, na)},
			{Label: h.t(lang, "detail.fat"), Value: format.Nutrient(n.Fat, "g", lang, na)},
			{Label: h.t(lang, "detail.carbohydrates"), Value: format.Nutrient(n.Carbohydrates, "g", lang, na)},
			{Label: h.t(lang, "detail.proteins"), Value: format.Nutrient(n.Proteins, "g", lang, na)},
			{Label: h.t(lang, "detail.salt"), Value: format.Nutrient(n.Salt, "g", lang, na)},
		},
		Labels:     d.DisplayLabels(),
		GradeClass: format.GradeClass(d.Grade),
		GradeLabel: format.GradeLabel(d.Grade, na),
	}
}

// underlying drops the catalog wrapper so the banner shows the client error.
func underlying(err error) error {
	if inner := errors.Unwrap(err); inner != nil {
		return inner
	}
	return err
}
