package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/faizanr27/food-facts/internal/catalog"
	"github.com/faizanr27/food-facts/internal/content"
	"github.com/faizanr27/food-facts/internal/i18n"
	"github.com/faizanr27/food-facts/internal/middleware"
	"github.com/faizanr27/food-facts/internal/offapi"
	"github.com/faizanr27/food-facts/internal/render"
	"github.com/faizanr27/food-facts/internal/testutil"
	"github.com/faizanr27/food-facts/templates"
)

type fakeCatalog struct {
	mu sync.Mutex

	categories []string
	list       func(ctx context.Context, q catalog.Query) (catalog.Page, error)
	queries    []catalog.Query

	detail    catalog.Detail
	detailErr error
}

func (f *fakeCatalog) Browse(ctx context.Context, q catalog.Query) (catalog.Listing, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	list := f.list
	f.mu.Unlock()

	listing := catalog.Listing{Query: q, Categories: append([]string{}, f.categories...)}
	if list == nil {
		return listing, errors.New("no list configured")
	}
	page, err := list(ctx, q)
	if err != nil {
		return listing, err
	}
	listing.Page = page
	listing.Query.Page = page.Page
	return listing, nil
}

func (f *fakeCatalog) Product(_ context.Context, id string) (catalog.Detail, error) {
	if f.detailErr != nil {
		return catalog.Detail{}, fmt.Errorf("catalog: product %s: %w", id, f.detailErr)
	}
	return f.detail, nil
}

func (f *fakeCatalog) lastQuery(t *testing.T) catalog.Query {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.queries)
	return f.queries[len(f.queries)-1]
}

func staticPage(items []catalog.Summary, total int) func(context.Context, catalog.Query) (catalog.Page, error) {
	return func(_ context.Context, q catalog.Query) (catalog.Page, error) {
		pages := (total + q.PageSize - 1) / q.PageSize
		if pages < 1 {
			pages = 1
		}
		page := q.Page
		if page > pages {
			page = pages
		}
		return catalog.Page{Items: items, Total: total, Page: page, PageSize: q.PageSize, TotalPages: pages}, nil
	}
}

func ptr(v float64) *float64 { return &v }

func sampleSummaries() []catalog.Summary {
	return []catalog.Summary{
		{ID: "3017620422003", Name: "Nutella", ImageURL: "https://images.example/nutella.jpg", Categories: "Spreads, Sweet spreads", Ingredients: "Sugar, _hazelnuts_", Grade: "e"},
		{ID: "5449000000996", Name: "", Categories: "", Ingredients: "", Grade: ""},
	}
}

func newTestServer(t *testing.T, cat *fakeCatalog) http.Handler {
	t.Helper()

	bundle, err := i18n.Load(i18n.Embedded(), "en", []string{"en", "fr"})
	require.NoError(t, err)
	renderer, err := render.New(render.Options{FS: templates.FS(), Funcs: Funcs(bundle)})
	require.NoError(t, err)

	h := New(Config{
		Catalog:  cat,
		Pages:    content.NewStore(content.Embedded(), "en", time.Minute),
		Renderer: renderer,
		Bundle:   bundle,
		BaseURL:  "https://food.example",
	})

	r := chi.NewRouter()
	r.Use(middleware.HTMX)
	r.Use(middleware.Locale(bundle, nil))
	r.Get("/healthz", Healthz)
	h.Mount(r)
	return r
}

func get(t *testing.T, srv http.Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Accept-Language", "en")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestListPageRendersCardsAndFilters(t *testing.T) {
	t.Parallel()

	cat := &fakeCatalog{
		categories: []string{"Beverages", "Spreads"},
		list:       staticPage(sampleSummaries(), 30),
	}
	srv := newTestServer(t, cat)

	rec := get(t, srv, "/?q=nut&category=Spreads&sort=name-asc&page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := testutil.ParseHTML(t, rec.Body.Bytes())

	q := cat.lastQuery(t)
	require.Equal(t, "nut", q.Search)
	require.Equal(t, "Spreads", q.Category)
	require.Equal(t, catalog.SortNameAsc, q.Sort)
	require.Equal(t, 2, q.Page)
	require.Equal(t, catalog.DefaultPageSize, q.PageSize)
	require.Equal(t, "en", q.Locale)

	require.Equal(t, "nut", doc.Find(`.navbar input[name="q"]`).AttrOr("value", ""))
	require.Equal(t, "nut", doc.Find(`#list-filters input[name="q"]`).AttrOr("value", ""))
	require.Equal(t, []string{"All Categories", "Beverages", "Spreads"}, testutil.Texts(doc, `select[name="category"] option`))
	require.Equal(t, "Spreads", doc.Find(`select[name="category"] option[selected]`).Text())
	require.Equal(t, "name-asc", doc.Find(`select[name="sort"] option[selected]`).AttrOr("value", ""))

	form := doc.Find("#list-filters")
	require.Equal(t, "/products/grid", form.AttrOr("hx-get", ""))
	require.Equal(t, "#product-grid", form.AttrOr("hx-target", ""))
	require.Equal(t, "this:replace", form.AttrOr("hx-sync", ""))
	require.Equal(t, "Loading...", doc.Find("#list-loading").Text())

	var vals map[string]string
	require.NoError(t, json.Unmarshal([]byte(doc.Find(".list-view").AttrOr("hx-vals", "")), &vals))
	_, err := uuid.Parse(vals["view"])
	require.NoError(t, err, "the list view carries its own token")
	second := testutil.ParseHTML(t, get(t, srv, "/", nil).Body.Bytes())
	require.NotEqual(t, doc.Find(".list-view").AttrOr("hx-vals", ""), second.Find(".list-view").AttrOr("hx-vals", ""))

	cards := doc.Find("#product-grid .product-card")
	require.Equal(t, 2, cards.Length())
	first := cards.First()
	require.Equal(t, "/product/3017620422003", first.Find("a").AttrOr("href", ""))
	require.Equal(t, "Nutella", first.Find("h2").Text())
	require.Equal(t, "Spreads", first.Find(".category").Text())
	require.Equal(t, "E", first.Find(".grade").Text())
	require.True(t, first.Find(".grade").HasClass("grade-e"))
	require.Equal(t, 1, first.Find("img").Length())

	secondCard := cards.Eq(1)
	require.Equal(t, 0, secondCard.Find("img").Length(), "cards without an image omit it")
	require.Equal(t, "N/A", secondCard.Find(".category").Text())
	require.Equal(t, "N/A", secondCard.Find(".grade").Text())
	require.True(t, secondCard.Find(".grade").HasClass("grade-unknown"))

	require.Equal(t, "2", doc.Find(".pagination .current").Text())
	require.Equal(t, []string{
		"/?category=Spreads&q=nut&sort=name-asc",
		"/?category=Spreads&q=nut&sort=name-asc",
		"/?category=Spreads&page=3&q=nut&sort=name-asc",
		"/?category=Spreads&page=3&q=nut&sort=name-asc",
	}, testutil.Attrs(doc, ".pagination a.page-link", "href"))
	require.Contains(t, testutil.Attrs(doc, ".pagination a.page-link", "hx-get"), "/products/grid?category=Spreads&page=3&q=nut&sort=name-asc")

	require.Equal(t, "https://food.example/?category=Spreads&page=2&q=nut&sort=name-asc", doc.Find(`link[rel="canonical"]`).AttrOr("href", ""))
}

func TestListPageEmptyResultShowsEmptyState(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeCatalog{list: staticPage([]catalog.Summary{}, 0)})
	rec := get(t, srv, "/?q=zzz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "No products match your filters.", doc.Find("#product-grid .empty").Text())
	require.Equal(t, 0, doc.Find(".product-card").Length())
	require.Equal(t, 0, doc.Find(".pagination").Length(), "a single page renders no pagination")

	doc = testutil.ParseHTML(t, get(t, srv, "/", nil).Body.Bytes())
	require.Equal(t, "No products found", doc.Find("#product-grid .empty").Text())
}

func TestListPageSelectsCategoryIgnoringCase(t *testing.T) {
	t.Parallel()

	cat := &fakeCatalog{
		categories: []string{"Beverages", "Spreads"},
		list:       staticPage(sampleSummaries(), 2),
	}
	doc := testutil.ParseHTML(t, get(t, newTestServer(t, cat), "/?category=beverages", nil).Body.Bytes())

	require.Equal(t, []string{"All Categories", "Beverages", "Spreads"}, testutil.Texts(doc, `select[name="category"] option`))
	require.Equal(t, []string{"Beverages"}, testutil.Texts(doc, `select[name="category"] option[selected]`))

	doc = testutil.ParseHTML(t, get(t, newTestServer(t, cat), "/?category=Snacks", nil).Body.Bytes())
	require.Equal(t, []string{"All Categories", "Beverages", "Spreads", "Snacks"}, testutil.Texts(doc, `select[name="category"] option`))
	require.Equal(t, []string{"Snacks"}, testutil.Texts(doc, `select[name="category"] option[selected]`))
}

func TestListPageErrorStates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "no product list", err: fmt.Errorf("wrapped: %w", catalog.ErrNoProducts), status: http.StatusOK, message: "No products found"},
		{name: "fetch failure", err: errors.New("dial tcp: connection refused"), status: http.StatusBadGateway, message: "An error occurred while fetching data"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cat := &fakeCatalog{
				categories: []string{"Beverages"},
				list: func(context.Context, catalog.Query) (catalog.Page, error) {
					return catalog.Page{}, tc.err
				},
			}
			rec := get(t, newTestServer(t, cat), "/?category=Beverages", nil)
			require.Equal(t, tc.status, rec.Code)

			doc := testutil.ParseHTML(t, rec.Body.Bytes())
			require.Equal(t, tc.message, doc.Find("#product-grid .error").Text())
			require.Equal(t, 0, doc.Find(".product-grid").Length(), "errors render no grid")
			require.Equal(t, "Beverages", doc.Find(`select[name="category"] option[selected]`).Text())
		})
	}
}

func TestGridFragmentPushesCanonicalURL(t *testing.T) {
	t.Parallel()

	cat := &fakeCatalog{list: staticPage(sampleSummaries(), 30)}
	srv := newTestServer(t, cat)

	rec := get(t, srv, "/products/grid?sort=grade-desc&page=99", map[string]string{"HX-Request": "true"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/?page=3&sort=grade-desc", rec.Header().Get("HX-Push-Url"), "page is clamped to the last page")

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, 0, doc.Find("header.navbar").Length(), "fragments carry no layout")
	require.Equal(t, 1, doc.Find("section#product-grid").Length())
	require.Equal(t, 2, doc.Find(".product-card").Length())
	require.Equal(t, "3", doc.Find(".pagination .current").Text())
	require.Equal(t, 1, doc.Find(`.pagination .disabled`).Length(), "next is disabled on the last page")
}

func TestGridFragmentErrorStillSwaps(t *testing.T) {
	t.Parallel()

	cat := &fakeCatalog{list: func(context.Context, catalog.Query) (catalog.Page, error) {
		return catalog.Page{}, catalog.ErrNoProducts
	}}
	rec := get(t, newTestServer(t, cat), "/products/grid?q=abc", map[string]string{"HX-Request": "true"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/?q=abc", rec.Header().Get("HX-Push-Url"))
	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "No products found", doc.Find(".error").Text())
}

func TestGridFragmentDropsSupersededResponse(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	var calls int
	var mu sync.Mutex
	cat := &fakeCatalog{}
	cat.list = func(ctx context.Context, q catalog.Query) (catalog.Page, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(started)
			<-ctx.Done()
			return catalog.Page{}, ctx.Err()
		}
		return staticPage(sampleSummaries(), 2)(ctx, q)
	}
	srv := newTestServer(t, cat)
	view := uuid.NewString()

	stale := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		stale <- get(t, srv, "/products/grid?q=a&view="+view, map[string]string{"HX-Request": "true"})
	}()
	<-started

	fresh := get(t, srv, "/products/grid?q=ab&view="+view, map[string]string{"HX-Request": "true"})
	require.Equal(t, http.StatusOK, fresh.Code)
	require.Equal(t, "/?q=ab", fresh.Header().Get("HX-Push-Url"))

	old := <-stale
	require.Equal(t, http.StatusNoContent, old.Code)
	require.Equal(t, "none", old.Header().Get("HX-Reswap"))
	require.Empty(t, old.Header().Get("HX-Push-Url"))
	require.Empty(t, old.Body.String())
}

func TestGridFragmentViewsDoNotSupersedeEachOther(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	cat := &fakeCatalog{}
	cat.list = func(ctx context.Context, q catalog.Query) (catalog.Page, error) {
		if q.Category == "Beverages" {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
				return catalog.Page{}, ctx.Err()
			}
		}
		return staticPage(sampleSummaries(), 30)(ctx, q)
	}
	srv := newTestServer(t, cat)
	htmx := map[string]string{"HX-Request": "true"}

	// two tabs of the same browser share the viewer but not the view
	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- get(t, srv, "/products/grid?category=Beverages&view="+uuid.NewString(), htmx)
	}()
	<-started

	other := get(t, srv, "/products/grid?page=2&view="+uuid.NewString(), htmx)
	require.Equal(t, http.StatusOK, other.Code)
	require.Equal(t, "/?page=2", other.Header().Get("HX-Push-Url"))

	close(release)
	tab := <-first
	require.Equal(t, http.StatusOK, tab.Code)
	require.Equal(t, "/?category=Beverages", tab.Header().Get("HX-Push-Url"))
	require.Equal(t, 2, testutil.ParseHTML(t, tab.Body.Bytes()).Find(".product-card").Length())
}

func TestProductPageRendersDetail(t *testing.T) {
	t.Parallel()

	cat := &fakeCatalog{detail: catalog.Detail{
		ID:            "3017620422003",
		Name:          "Nutella",
		ImageURL:      "https://images.example/nutella.jpg",
		IngredientsEN: "Sugar, palm oil, _hazelnuts_ 13%",
		Nutrients: catalog.Nutrients{
			EnergyKcal: ptr(539),
			Fat:        ptr(30.9),
			Proteins:   ptr(6.3),
			Salt:       ptr(0.107),
		},
		Labels: []string{"en:gluten-free", "fr:point-vert"},
		Grade:  "e",
	}}
	rec := get(t, newTestServer(t, cat), "/product/3017620422003", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := testutil.ParseHTML(t, rec.Body.Bytes())

	require.Equal(t, "Nutella", doc.Find(".product-detail h1").Text())
	require.Equal(t, "hazelnuts", doc.Find(".ingredients strong").Text())
	require.Equal(t, []string{"gluten-free", "point-vert"}, testutil.Texts(doc, ".labels li"))
	require.Equal(t, "E", doc.Find(".grade-row .grade").Text())

	rows := map[string]string{}
	doc.Find(".nutrition tr").Each(func(_ int, s *goquery.Selection) {
		rows[s.Find("th").Text()] = s.Find("td").Text()
	})
	require.Equal(t, "539 kcal", rows["Energy"])
	require.Equal(t, "30.9 g", rows["Fat"])
	require.Equal(t, "N/A", rows["Carbohydrates"])
	require.Equal(t, "6.3 g", rows["Proteins"])

	scripts := doc.Find(`script[type="application/ld+json"]`)
	require.Equal(t, 2, scripts.Length())
	var product map[string]any
	require.NoError(t, json.Unmarshal([]byte(scripts.First().Text()), &product))
	require.Equal(t, "Product", product["@type"])
	require.Equal(t, "3017620422003", product["gtin13"])
	require.Equal(t, "https://food.example/product/3017620422003", product["url"])

	require.Equal(t, []string{"Home", "Nutella"}, testutil.Texts(doc, ".breadcrumbs li"))
}

func TestProductPageMissingSections(t *testing.T) {
	t.Parallel()

	cat := &fakeCatalog{detail: catalog.Detail{ID: "1", Name: "Water", Labels: []string{"en:"}}}
	rec := get(t, newTestServer(t, cat), "/product/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := testutil.ParseHTML(t, rec.Body.Bytes())

	require.Equal(t, "No ingredient information available", doc.Find(".ingredients .missing").Text())
	require.Equal(t, "No label information available", doc.Find(".labels .missing").Text())
	require.Equal(t, []string{"N/A", "N/A", "N/A", "N/A", "N/A"}, testutil.Texts(doc, ".nutrition td"))
	require.Equal(t, "N/A", doc.Find(".grade-row .grade").Text())
	require.Equal(t, 0, doc.Find(".product-detail img").Length())
}

func TestProductPageErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
		banner string
	}{
		{name: "not found", err: offapi.ErrNotFound, status: http.StatusNotFound, banner: "Product not found"},
		{name: "status not found", err: fmt.Errorf("%w: offapi: product returned 404", offapi.ErrNotFound), status: http.StatusNotFound, banner: "Product not found"},
		{name: "network", err: errors.New("offapi: product request failed: connection refused"), status: http.StatusBadGateway, banner: "offapi: product request failed: connection refused"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := get(t, newTestServer(t, &fakeCatalog{detailErr: tc.err}), "/product/42", nil)
			require.Equal(t, tc.status, rec.Code)
			doc := testutil.ParseHTML(t, rec.Body.Bytes())
			require.Equal(t, tc.banner, doc.Find(".banner.error").Text())
			require.Equal(t, 0, doc.Find(".product-detail").Length())
		})
	}
}

func TestAboutPageRendersMarkdown(t *testing.T) {
	t.Parallel()

	rec := get(t, newTestServer(t, &fakeCatalog{}), "/about", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "About this site", doc.Find(".content-page h1").First().Text())
	require.Equal(t, "About Open Food Facts Explorer", doc.Find("title").Text())
	require.NotZero(t, doc.Find(".prose a").Length())
	require.Equal(t, "2024-05-01", doc.Find(".updated time").AttrOr("datetime", ""))
}

func TestLocaleFromAcceptLanguage(t *testing.T) {
	t.Parallel()

	cat := &fakeCatalog{list: staticPage(nil, 0)}
	rec := get(t, newTestServer(t, cat), "/", map[string]string{"Accept-Language": "fr-FR,fr;q=0.9"})
	require.Equal(t, http.StatusOK, rec.Code)
	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "fr", doc.Find("html").AttrOr("lang", ""))
	require.Equal(t, "Toutes les catégories", doc.Find(`select[name="category"] option`).First().Text())
	require.Equal(t, "fr", cat.lastQuery(t).Locale)
}

func TestNotFoundAndHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeCatalog{})

	rec := get(t, srv, "/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "Page not found", doc.Find(".error-page .error").Text())

	rec = get(t, srv, "/nope", map[string]string{"HX-Request": "true"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"Page not found"}`, rec.Body.String())

	rec = get(t, srv, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestPaginationViewWindow(t *testing.T) {
	t.Parallel()

	q := catalog.Query{Search: "x", Page: 10, PageSize: 12}
	view := paginationView(q, catalog.Page{Page: 10, TotalPages: 20})
	require.True(t, view.Show)
	require.NotNil(t, view.First)
	require.Equal(t, "/?q=x", view.First.Href)
	require.True(t, view.LeadingEllipsis)
	require.True(t, view.TrailingEllipsis)
	require.Equal(t, "/products/grid?page=20&q=x", view.Last.GridHref)

	numbers := make([]int, 0, len(view.Pages))
	for _, p := range view.Pages {
		numbers = append(numbers, p.Number)
	}
	require.Equal(t, []int{7, 8, 9, 10, 11, 12, 13}, numbers)
	require.True(t, view.Pages[3].Current)
	require.False(t, view.Prev.Disabled)
	require.Equal(t, 9, view.Prev.Number)
}
