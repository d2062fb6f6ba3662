package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultEnvironment       = "local"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultAPIBaseURL        = "https://world.openfoodfacts.org"
	defaultAPITimeout        = 8 * time.Second
	defaultUserAgent         = "food-facts/1.0 (+https://github.com/faizanr27/food-facts)"
	defaultCatalogMode       = ModeLocal
	defaultBatchSize         = 500
	defaultPageSize          = 12
	maxPageSize              = 100
	defaultCacheTTL          = 5 * time.Minute
	defaultCategoryLimit     = 20
	defaultSearchRatePerMin  = 10
	defaultProductRatePerMin = 100
	defaultLogLevel          = "info"
	defaultLocale            = "en"
)

// Catalog modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Dev         bool
	LogLevel    string
	Server      ServerConfig
	API         APIConfig
	Catalog     CatalogConfig
	Session     SessionConfig
	Paths       PathConfig
	Locale      LocaleConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	PublicURL       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// APIConfig describes how to reach Open Food Facts.
type APIConfig struct {
	BaseURL           string
	ProductBaseURL    string
	Username          string
	Password          string
	Timeout           time.Duration
	UserAgent         string
	SearchRatePerMin  int
	ProductRatePerMin int
}

// CatalogConfig controls how the product list is assembled.
type CatalogConfig struct {
	Mode          string
	BatchSize     int
	PageSize      int
	CacheTTL      time.Duration
	CategoryLimit int
}

// SessionConfig holds the cookie keys. Empty keys are generated at startup.
type SessionConfig struct {
	HashKey  string
	BlockKey string
}

// PathConfig points at on-disk overrides for embedded assets.
type PathConfig struct {
	TemplatesDir string
	PublicDir    string
	ContentDir   string
}

// LocaleConfig lists the supported UI languages.
type LocaleConfig struct {
	Default   string
	Supported []string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option configures the loader.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.LookupEnv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables and explicit overrides.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	port := stringWithDefault(lookup, "PORT", defaultPort)
	baseURL := strings.TrimRight(stringWithDefault(lookup, "FOODFACTS_API_BASE_URL", defaultAPIBaseURL), "/")

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "FOODFACTS_ENV", defaultEnvironment)),
		Dev:         boolWithDefault(lookup, "FOODFACTS_DEV", false),
		LogLevel:    stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel),
		Server: ServerConfig{
			Port:            stringWithDefault(lookup, "FOODFACTS_PORT", port),
			PublicURL:       strings.TrimRight(stringWithDefault(lookup, "FOODFACTS_PUBLIC_URL", ""), "/"),
			ReadTimeout:     durationWithDefault(lookup, "FOODFACTS_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "FOODFACTS_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "FOODFACTS_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "FOODFACTS_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		API: APIConfig{
			BaseURL:           baseURL,
			ProductBaseURL:    strings.TrimRight(stringWithDefault(lookup, "FOODFACTS_API_PRODUCT_BASE_URL", baseURL), "/"),
			Username:          stringWithDefault(lookup, "FOODFACTS_API_USERNAME", ""),
			Password:          stringWithDefault(lookup, "FOODFACTS_API_PASSWORD", ""),
			Timeout:           durationWithDefault(lookup, "FOODFACTS_API_TIMEOUT", defaultAPITimeout),
			UserAgent:         stringWithDefault(lookup, "FOODFACTS_API_USER_AGENT", defaultUserAgent),
			SearchRatePerMin:  intWithDefault(lookup, "FOODFACTS_SEARCH_RATE_PER_MIN", defaultSearchRatePerMin),
			ProductRatePerMin: intWithDefault(lookup, "FOODFACTS_PRODUCT_RATE_PER_MIN", defaultProductRatePerMin),
		},
		Catalog: CatalogConfig{
			Mode:          strings.ToLower(stringWithDefault(lookup, "FOODFACTS_CATALOG_MODE", defaultCatalogMode)),
			BatchSize:     intWithDefault(lookup, "FOODFACTS_BATCH_SIZE", defaultBatchSize),
			PageSize:      intWithDefault(lookup, "FOODFACTS_PAGE_SIZE", defaultPageSize),
			CacheTTL:      durationWithDefault(lookup, "FOODFACTS_CACHE_TTL", defaultCacheTTL),
			CategoryLimit: intWithDefault(lookup, "FOODFACTS_CATEGORY_LIMIT", defaultCategoryLimit),
		},
		Session: SessionConfig{
			HashKey:  stringWithDefault(lookup, "FOODFACTS_SESSION_HASH_KEY", ""),
			BlockKey: stringWithDefault(lookup, "FOODFACTS_SESSION_BLOCK_KEY", ""),
		},
		Paths: PathConfig{
			TemplatesDir: stringWithDefault(lookup, "FOODFACTS_TEMPLATES_DIR", ""),
			PublicDir:    stringWithDefault(lookup, "FOODFACTS_PUBLIC_DIR", ""),
			ContentDir:   stringWithDefault(lookup, "FOODFACTS_CONTENT_DIR", ""),
		},
		Locale: LocaleConfig{
			Default:   stringWithDefault(lookup, "FOODFACTS_DEFAULT_LOCALE", defaultLocale),
			Supported: csvWithDefault(lookup, "FOODFACTS_SUPPORTED_LOCALES", []string{"en", "fr"}),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in the prod environment.
func (c Config) IsProduction() bool {
	return c.Environment == "prod" || c.Environment == "production"
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Server.Port
}

func validateConfig(cfg Config) error {
	var invalid []string

	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		invalid = append(invalid, "Server.Port")
	}
	if cfg.Server.PublicURL != "" {
		if u, err := url.Parse(cfg.Server.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			invalid = append(invalid, "Server.PublicURL")
		}
	}
	if u, err := url.Parse(cfg.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		invalid = append(invalid, "API.BaseURL")
	}
	if u, err := url.Parse(cfg.API.ProductBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		invalid = append(invalid, "API.ProductBaseURL")
	}
	if (cfg.API.Username == "") != (cfg.API.Password == "") {
		invalid = append(invalid, "API.Username/API.Password")
	}
	if cfg.API.Timeout <= 0 {
		invalid = append(invalid, "API.Timeout")
	}
	if cfg.API.SearchRatePerMin <= 0 {
		invalid = append(invalid, "API.SearchRatePerMin")
	}
	if cfg.API.ProductRatePerMin <= 0 {
		invalid = append(invalid, "API.ProductRatePerMin")
	}
	if cfg.Catalog.Mode != ModeLocal && cfg.Catalog.Mode != ModeRemote {
		invalid = append(invalid, "Catalog.Mode")
	}
	if cfg.Catalog.BatchSize <= 0 {
		invalid = append(invalid, "Catalog.BatchSize")
	}
	if cfg.Catalog.PageSize <= 0 || cfg.Catalog.PageSize > maxPageSize {
		invalid = append(invalid, "Catalog.PageSize")
	}
	if cfg.Catalog.CacheTTL <= 0 {
		invalid = append(invalid, "Catalog.CacheTTL")
	}
	if cfg.Catalog.CategoryLimit < 0 {
		invalid = append(invalid, "Catalog.CategoryLimit")
	}
	if len(cfg.Locale.Supported) == 0 {
		invalid = append(invalid, "Locale.Supported")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string, fallback []string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
