package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/faizanr27/food-facts/internal/offapi"
	"github.com/faizanr27/food-facts/internal/requestctx"
)

func TestBrowseReturnsPageAndCategories(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{
		searchResult: offapi.SearchResult{Products: products("Oat milk", "Almond milk", "Rice")},
		categories:   []string{"Plant-based foods", "Beverages"},
	}
	svc := NewService(NewLocalBackend(upstream, LocalOptions{}), upstream, ServiceOptions{CategoryLimit: 20})

	listing, err := svc.Browse(context.Background(), Query{Search: "milk", Sort: SortNameAsc, Page: 5, PageSize: 12})
	require.NoError(t, err)
	require.Equal(t, []string{"Almond milk", "Oat milk"}, names(listing.Page.Items))
	require.Equal(t, []string{"Plant-based foods", "Beverages"}, listing.Categories)
	require.Equal(t, 1, listing.Query.Page, "query page follows the clamped result page")
	require.Equal(t, []int{20}, upstream.categoryLimits)
}

func TestBrowseCategoryFailureDegrades(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := requestctx.WithLogger(context.Background(), zap.New(core))

	upstream := &fakeUpstream{
		searchResult:  offapi.SearchResult{Products: products("Bread")},
		categoriesErr: errors.New("categories unavailable"),
	}
	svc := NewService(NewLocalBackend(upstream, LocalOptions{}), upstream, ServiceOptions{})

	listing, err := svc.Browse(ctx, Query{Page: 1, PageSize: 12})
	require.NoError(t, err)
	require.Empty(t, listing.Categories)
	require.NotNil(t, listing.Categories)
	require.Len(t, listing.Page.Items, 1)

	warnings := logs.FilterMessage("category fetch failed").All()
	require.Len(t, warnings, 1)
	require.Equal(t, zapcore.WarnLevel, warnings[0].Level)
}

func TestBrowseProductFailure(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{searchResult: offapi.SearchResult{}, categories: []string{"Snacks"}}
	svc := NewService(NewLocalBackend(upstream, LocalOptions{}), upstream, ServiceOptions{})

	_, err := svc.Browse(context.Background(), Query{Page: 1, PageSize: 12})
	require.ErrorIs(t, err, ErrNoProducts)
}

func TestCategoriesAreCached(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(0, 0)}
	upstream := &fakeUpstream{categories: []string{"Snacks"}}
	svc := NewService(NewRemoteBackend(upstream), upstream, ServiceOptions{CacheTTL: time.Minute, Now: clock.Now})

	for i := 0; i < 3; i++ {
		names, err := svc.Categories(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"Snacks"}, names)
	}
	require.Equal(t, 1, upstream.categoryCalls)

	clock.Advance(time.Minute)
	_, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, upstream.categoryCalls)
}

func TestProductDetail(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{products: map[string]offapi.Product{
		"737628064502": {ProductName: "Thai peanut noodle kit", LabelsTags: []string{"en:vegan"}},
	}}
	svc := NewService(NewRemoteBackend(upstream), upstream, ServiceOptions{})

	detail, err := svc.Product(context.Background(), "737628064502")
	require.NoError(t, err)
	require.Equal(t, "737628064502", detail.ID)
	require.Equal(t, []string{"vegan"}, detail.DisplayLabels())

	_, err = svc.Product(context.Background(), "missing")
	require.ErrorIs(t, err, offapi.ErrNotFound)
}
