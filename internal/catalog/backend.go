package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/faizanr27/food-facts/internal/offapi"
	"github.com/faizanr27/food-facts/internal/pagination"
)

// ErrNoProducts is returned when the upstream response carries no product list.
var ErrNoProducts = errors.New("catalog: no products found")

// Upstream is the subset of the Open Food Facts client the catalog depends on.
type Upstream interface {
	Search(ctx context.Context, params offapi.SearchParams) (offapi.SearchResult, error)
	RemoteSearch(ctx context.Context, params offapi.RemoteSearchParams) (offapi.SearchResult, error)
	Categories(ctx context.Context, limit int) ([]string, error)
	Product(ctx context.Context, code string) (offapi.Product, error)
}

// Backend resolves a list query into one page of products.
type Backend interface {
	List(ctx context.Context, q Query) (Page, error)
}

// LocalBackend fetches a fixed batch once per TTL and filters, sorts and
// paginates it in memory.
type LocalBackend struct {
	upstream  Upstream
	batchSize int
	cache     *ttlCache[[]Summary]
}

// LocalOptions configures a LocalBackend.
type LocalOptions struct {
	BatchSize int
	TTL       time.Duration
	Now       func() time.Time
}

// NewLocalBackend constructs a LocalBackend.
func NewLocalBackend(upstream Upstream, opts LocalOptions) *LocalBackend {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	return &LocalBackend{
		upstream:  upstream,
		batchSize: opts.BatchSize,
		cache:     newTTLCache[[]Summary](opts.TTL, opts.Now),
	}
}

// List implements Backend.
func (b *LocalBackend) List(ctx context.Context, q Query) (Page, error) {
	items, err := b.cache.get(ctx, b.load)
	if err != nil {
		return Page{}, err
	}
	return Apply(items, q.normalize()), nil
}

func (b *LocalBackend) load(ctx context.Context) ([]Summary, error) {
	result, err := b.upstream.Search(ctx, offapi.SearchParams{Page: 1, PageSize: b.batchSize})
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch batch: %w", err)
	}
	if result.Products == nil {
		return nil, ErrNoProducts
	}
	items := make([]Summary, 0, len(result.Products))
	for _, product := range result.Products {
		items = append(items, SummaryFromProduct(product))
	}
	return items, nil
}

// RemoteBackend pushes search, category, sort and page to the upstream search
// endpoint and trusts its count and ordering.
type RemoteBackend struct {
	upstream Upstream
}

// NewRemoteBackend constructs a RemoteBackend.
func NewRemoteBackend(upstream Upstream) *RemoteBackend {
	return &RemoteBackend{upstream: upstream}
}

// List implements Backend. A page beyond the last one is re-requested as the
// last page.
func (b *RemoteBackend) List(ctx context.Context, q Query) (Page, error) {
	q = q.normalize()
	page, err := b.fetch(ctx, q)
	if err != nil {
		return Page{}, err
	}
	if q.Page > page.TotalPages && page.Total > 0 {
		return b.fetch(ctx, q.WithPage(page.TotalPages))
	}
	return page, nil
}

func (b *RemoteBackend) fetch(ctx context.Context, q Query) (Page, error) {
	result, err := b.upstream.RemoteSearch(ctx, offapi.RemoteSearchParams{
		Terms:    q.Search,
		Category: q.Category,
		SortBy:   RemoteSortField(q.Sort),
		Page:     q.Page,
		PageSize: q.PageSize,
		Locale:   q.Locale,
	})
	if err != nil {
		return Page{}, fmt.Errorf("catalog: remote search: %w", err)
	}
	if result.Products == nil {
		return Page{}, ErrNoProducts
	}

	items := make([]Summary, 0, len(result.Products))
	for _, product := range result.Products {
		items = append(items, SummaryFromProduct(product))
	}
	// Upstream only sorts ascending; order the page itself by the chosen key.
	Sort(items, q.Sort)

	total := max(result.Count, len(items))
	totalPages := pagination.TotalPages(total, q.PageSize)
	current := q.Page
	if current > totalPages && total == 0 {
		current = 1
	}
	return Page{
		Items:      items,
		Total:      total,
		Page:       current,
		PageSize:   q.PageSize,
		TotalPages: totalPages,
	}, nil
}

// RemoteSortField maps a sort key onto the upstream sort_by field.
func RemoteSortField(key SortKey) string {
	switch key {
	case SortNameAsc, SortNameDesc:
		return "product_name"
	case SortGradeAsc, SortGradeDesc:
		return "nutriscore_score"
	default:
		return ""
	}
}
