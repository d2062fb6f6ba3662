package catalog

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/faizanr27/food-facts/internal/requestctx"
)

const defaultCategoryLimit = 20

// Listing is everything the list view renders for one query.
type Listing struct {
	Query      Query
	Page       Page
	Categories []string
}

// Service combines a list backend with category and product lookups.
type Service struct {
	backend       Backend
	upstream      Upstream
	categoryLimit int
	categories    *ttlCache[[]string]
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	CategoryLimit int
	CacheTTL      time.Duration
	Now           func() time.Time
}

// NewService constructs a Service.
func NewService(backend Backend, upstream Upstream, opts ServiceOptions) *Service {
	if opts.CategoryLimit <= 0 {
		opts.CategoryLimit = defaultCategoryLimit
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &Service{
		backend:       backend,
		upstream:      upstream,
		categoryLimit: opts.CategoryLimit,
		categories:    newTTLCache[[]string](opts.CacheTTL, opts.Now),
	}
}

// Browse fetches the product page and the category list concurrently. A
// category failure is logged and leaves the list empty; a product failure is
// returned.
func (s *Service) Browse(ctx context.Context, q Query) (Listing, error) {
	q = q.normalize()
	listing := Listing{Query: q, Categories: []string{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := s.backend.List(gctx, q)
		if err != nil {
			return err
		}
		listing.Page = page
		return nil
	})
	g.Go(func() error {
		names, err := s.Categories(gctx)
		if err != nil {
			if gctx.Err() == nil {
				requestctx.Logger(ctx).Warn("category fetch failed", zap.Error(err))
			}
			return nil
		}
		listing.Categories = names
		return nil
	})
	if err := g.Wait(); err != nil {
		return Listing{Query: q, Categories: listing.Categories}, err
	}

	listing.Query.Page = listing.Page.Page
	return listing, nil
}

// Categories returns the cached category names.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.categories.get(ctx, func(ctx context.Context) ([]string, error) {
		names, err := s.upstream.Categories(ctx, s.categoryLimit)
		if err != nil {
			return nil, fmt.Errorf("catalog: fetch categories: %w", err)
		}
		return names, nil
	})
}

// Product fetches one product for the detail view. It is never cached.
func (s *Service) Product(ctx context.Context, id string) (Detail, error) {
	product, err := s.upstream.Product(ctx, id)
	if err != nil {
		return Detail{}, fmt.Errorf("catalog: product %s: %w", id, err)
	}
	detail := DetailFromProduct(product)
	if detail.ID == "" {
		detail.ID = id
	}
	return detail, nil
}
