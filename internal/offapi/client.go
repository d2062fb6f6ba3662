package offapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/faizanr27/food-facts/internal/requestctx"
)

const (
	instrumentationName = "github.com/faizanr27/food-facts/internal/offapi"

	defaultBaseURL   = "https://world.openfoodfacts.org"
	defaultTimeout   = 8 * time.Second
	defaultUserAgent = "food-facts/1.0"
	maxErrorBody     = 1024

	// SearchFields is the field list requested for list views.
	SearchFields = "code,product_name,image_url,categories,ingredients_text,nutriscore_grade"
	// ProductFields is the field list requested for the detail view.
	ProductFields = "code,product_name,image_url,ingredients_text_en,nutriments,labels_tags,nutriscore_grade"
)

// ErrNotFound is returned when the product endpoint does not report a product.
var ErrNotFound = errors.New("offapi: product not found")

// StatusError reports a non-success HTTP status from the upstream API.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("offapi: %s status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("offapi: %s status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Options configures a Client. Zero values fall back to the public production API.
type Options struct {
	BaseURL           string
	ProductBaseURL    string
	Username          string
	Password          string
	Timeout           time.Duration
	UserAgent         string
	SearchRatePerMin  int
	ProductRatePerMin int
	HTTPClient        *http.Client
}

// Client talks to the Open Food Facts read API.
type Client struct {
	baseURL        string
	productBaseURL string
	username       string
	password       string
	userAgent      string
	http           *http.Client

	searchLimiter  *rate.Limiter
	productLimiter *rate.Limiter

	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// SearchParams selects a page of products from the v2 search endpoint.
type SearchParams struct {
	Page     int
	PageSize int
	Locale   string
}

// RemoteSearchParams pushes filtering and sorting to the legacy search endpoint.
type RemoteSearchParams struct {
	Terms    string
	Category string
	SortBy   string
	Page     int
	PageSize int
	Locale   string
}

// NewClient constructs a Client from options.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	productBaseURL := strings.TrimRight(strings.TrimSpace(opts.ProductBaseURL), "/")
	if productBaseURL == "" {
		productBaseURL = baseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	meter := otel.Meter(instrumentationName)
	requests, err := meter.Int64Counter("offapi.requests",
		metric.WithDescription("Upstream Open Food Facts requests by operation and outcome."))
	if err != nil {
		otel.Handle(err)
	}
	duration, err := meter.Float64Histogram("offapi.request.duration",
		metric.WithDescription("Upstream Open Food Facts request latency."),
		metric.WithUnit("ms"))
	if err != nil {
		otel.Handle(err)
	}

	return &Client{
		baseURL:        baseURL,
		productBaseURL: productBaseURL,
		username:       opts.Username,
		password:       opts.Password,
		userAgent:      userAgent,
		http:           httpClient,
		searchLimiter:  perMinute(opts.SearchRatePerMin),
		productLimiter: perMinute(opts.ProductRatePerMin),
		tracer:         otel.Tracer(instrumentationName),
		requests:       requests,
		duration:       duration,
	}
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(n)/60), n)
}

// Search fetches one page of products with the list field set.
func (c *Client) Search(ctx context.Context, params SearchParams) (SearchResult, error) {
	query := url.Values{}
	query.Set("fields", SearchFields)
	if params.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(params.PageSize))
	}
	if params.Page > 1 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.Locale != "" {
		query.Set("lc", params.Locale)
	}

	var payload searchPayload
	if err := c.getJSON(ctx, "search", c.searchLimiter, c.baseURL, []string{"api", "v2", "search"}, query, &payload); err != nil {
		return SearchResult{}, err
	}
	return payload.toResult(), nil
}

// RemoteSearch runs a filtered, sorted and paginated query on the server side.
func (c *Client) RemoteSearch(ctx context.Context, params RemoteSearchParams) (SearchResult, error) {
	query := url.Values{}
	query.Set("action", "process")
	query.Set("json", "1")
	query.Set("fields", SearchFields)
	if terms := strings.TrimSpace(params.Terms); terms != "" {
		query.Set("search_terms", terms)
	}
	if category := strings.TrimSpace(params.Category); category != "" {
		query.Set("tagtype_0", "categories")
		query.Set("tag_contains_0", "contains")
		query.Set("tag_0", category)
	}
	if params.SortBy != "" {
		query.Set("sort_by", params.SortBy)
	}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(params.PageSize))
	}
	if params.Locale != "" {
		query.Set("lc", params.Locale)
	}

	var payload searchPayload
	if err := c.getJSON(ctx, "remote_search", c.searchLimiter, c.baseURL, []string{"cgi", "search.pl"}, query, &payload); err != nil {
		return SearchResult{}, err
	}
	return payload.toResult(), nil
}

// Categories returns the names of the first limit category tags. A limit of
// zero or less returns every tag.
func (c *Client) Categories(ctx context.Context, limit int) ([]string, error) {
	var payload tagsPayload
	if err := c.getJSON(ctx, "categories", c.searchLimiter, c.baseURL, []string{"categories.json"}, nil, &payload); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(payload.Tags))
	for _, tag := range payload.Tags {
		name := strings.TrimSpace(tag.Name)
		if name == "" {
			continue
		}
		names = append(names, name)
		if limit > 0 && len(names) == limit {
			break
		}
	}
	return names, nil
}

// Product fetches a single product by barcode. Any non-success response, or a
// body reporting status 0, yields ErrNotFound. Codes that could change the
// request path are rejected without a request.
func (c *Client) Product(ctx context.Context, code string) (Product, error) {
	code = strings.TrimSpace(code)
	if code == "" || strings.ContainsAny(code, `/\.?#%`) {
		return Product{}, ErrNotFound
	}
	query := url.Values{}
	query.Set("fields", ProductFields)

	var payload productPayload
	err := c.getJSON(ctx, "product", c.productLimiter, c.productBaseURL, []string{"api", "v2", "product", code}, query, &payload)
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, statusErr.Error())
	}
	if err != nil {
		return Product{}, err
	}
	if payload.Status == 0 || payload.Product == nil {
		return Product{}, ErrNotFound
	}
	product := *payload.Product
	if product.Code == "" {
		product.Code = strings.TrimSpace(payload.Code)
	}
	if product.Code == "" {
		product.Code = code
	}
	return product, nil
}

func (c *Client) getJSON(ctx context.Context, op string, limiter *rate.Limiter, base string, segments []string, query url.Values, dst any) (err error) {
	endpoint, err := url.JoinPath(base, segments...)
	if err != nil {
		return fmt.Errorf("offapi: %s endpoint: %w", op, err)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	ctx, span := c.tracer.Start(ctx, "offapi."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		semconv.HTTPRequestMethodGet,
		attribute.String("offapi.operation", op),
	)

	start := time.Now()
	status := 0
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		attrs := metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("outcome", outcome),
			attribute.Int("status", status),
		)
		if c.requests != nil {
			c.requests.Add(ctx, 1, attrs)
		}
		if c.duration != nil {
			c.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
		}
		requestctx.Logger(ctx).Debug("upstream request",
			zap.String("operation", op),
			zap.String("endpoint", endpoint),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
	}()

	if err = limiter.Wait(ctx); err != nil {
		return fmt.Errorf("offapi: %s rate limit: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("offapi: %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("offapi: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode
	span.SetAttributes(semconv.HTTPResponseStatusCode(status))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: drainError(resp.Body)}
	}
	if err = json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("offapi: %s decode: %w", op, err)
	}
	return nil
}

func drainError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
