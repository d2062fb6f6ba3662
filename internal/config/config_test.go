package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.API.BaseURL != "https://world.openfoodfacts.org" {
		t.Errorf("unexpected base url %s", cfg.API.BaseURL)
	}
	if cfg.API.ProductBaseURL != cfg.API.BaseURL {
		t.Errorf("expected product base url to default to base url, got %s", cfg.API.ProductBaseURL)
	}
	if cfg.Catalog.Mode != ModeLocal {
		t.Errorf("expected local catalog mode, got %s", cfg.Catalog.Mode)
	}
	if cfg.Catalog.BatchSize != 500 {
		t.Errorf("expected batch size 500, got %d", cfg.Catalog.BatchSize)
	}
	if cfg.Catalog.PageSize != 12 {
		t.Errorf("expected page size 12, got %d", cfg.Catalog.PageSize)
	}
	if cfg.Catalog.CacheTTL != 5*time.Minute {
		t.Errorf("unexpected cache ttl %s", cfg.Catalog.CacheTTL)
	}
	if cfg.API.SearchRatePerMin != 10 || cfg.API.ProductRatePerMin != 100 {
		t.Errorf("unexpected rate limits %d/%d", cfg.API.SearchRatePerMin, cfg.API.ProductRatePerMin)
	}
	if !slices.Equal(cfg.Locale.Supported, []string{"en", "fr"}) {
		t.Errorf("unexpected supported locales %v", cfg.Locale.Supported)
	}
	if cfg.IsProduction() {
		t.Errorf("expected local environment")
	}
}

func TestLoadOverrides(t *testing.T) {
	env := map[string]string{
		"FOODFACTS_PORT":                 "9090",
		"FOODFACTS_ENV":                  "PROD",
		"FOODFACTS_API_BASE_URL":         "https://world.openfoodfacts.net/",
		"FOODFACTS_API_PRODUCT_BASE_URL": "https://en.openfoodfacts.net",
		"FOODFACTS_API_USERNAME":         "off",
		"FOODFACTS_API_PASSWORD":         "off",
		"FOODFACTS_CATALOG_MODE":         "Remote",
		"FOODFACTS_PAGE_SIZE":            "24",
		"FOODFACTS_CACHE_TTL":            "30s",
		"FOODFACTS_DEV":                  "yes",
		"FOODFACTS_SUPPORTED_LOCALES":    "en, FR ,",
		"FOODFACTS_PUBLIC_URL":           "https://food.example/",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Addr() != ":9090" {
		t.Errorf("unexpected addr %s", cfg.Addr())
	}
	if !cfg.IsProduction() {
		t.Errorf("expected production environment")
	}
	if cfg.API.BaseURL != "https://world.openfoodfacts.net" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.API.BaseURL)
	}
	if cfg.API.ProductBaseURL != "https://en.openfoodfacts.net" {
		t.Errorf("unexpected product base url %s", cfg.API.ProductBaseURL)
	}
	if cfg.Catalog.Mode != ModeRemote {
		t.Errorf("expected remote mode, got %s", cfg.Catalog.Mode)
	}
	if cfg.Catalog.PageSize != 24 {
		t.Errorf("expected page size 24, got %d", cfg.Catalog.PageSize)
	}
	if cfg.Catalog.CacheTTL != 30*time.Second {
		t.Errorf("unexpected cache ttl %s", cfg.Catalog.CacheTTL)
	}
	if !cfg.Dev {
		t.Errorf("expected dev mode enabled")
	}
	if cfg.Server.PublicURL != "https://food.example" {
		t.Errorf("unexpected public url %s", cfg.Server.PublicURL)
	}
	if !slices.Equal(cfg.Locale.Supported, []string{"en", "fr"}) {
		t.Errorf("unexpected supported locales %v", cfg.Locale.Supported)
	}
}

func TestLoadPortFallback(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{"PORT": "3000"}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "3000" {
		t.Errorf("expected PORT fallback 3000, got %s", cfg.Server.Port)
	}

	cfg, err = Load(context.Background(), WithEnvMap(map[string]string{"PORT": "3000", "FOODFACTS_PORT": "4000"}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "4000" {
		t.Errorf("expected FOODFACTS_PORT to win, got %s", cfg.Server.Port)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "# local overrides\nexport FOODFACTS_PORT=7070\nFOODFACTS_CATEGORY_LIMIT=\"5\"\nFOODFACTS_BATCH_SIZE=100\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv(), WithEnvMap(map[string]string{"FOODFACTS_BATCH_SIZE": "250"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Catalog.CategoryLimit != 5 {
		t.Errorf("expected category limit from dotenv, got %d", cfg.Catalog.CategoryLimit)
	}
	if cfg.Catalog.BatchSize != 250 {
		t.Errorf("expected explicit map to override dotenv, got %d", cfg.Catalog.BatchSize)
	}
}

func TestLoadSystemEnvOverridesDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("FOODFACTS_CATALOG_MODE=local\n"), 0o600); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}
	t.Setenv("FOODFACTS_CATALOG_MODE", "remote")

	cfg, err := Load(context.Background(), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Catalog.Mode != ModeRemote {
		t.Errorf("expected os env to override dotenv, got %s", cfg.Catalog.Mode)
	}
}

func TestLoadValidation(t *testing.T) {
	env := map[string]string{
		"FOODFACTS_CATALOG_MODE": "hybrid",
		"FOODFACTS_PAGE_SIZE":    "101",
		"FOODFACTS_API_BASE_URL": "not a url",
		"FOODFACTS_API_USERNAME": "only-user",
		"FOODFACTS_PORT":         "http",
		"FOODFACTS_PUBLIC_URL":   "food.example",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	fields := validation.Fields()
	for _, want := range []string{"Server.Port", "API.BaseURL", "API.Username/API.Password", "Catalog.Mode", "Catalog.PageSize", "Server.PublicURL"} {
		if !slices.Contains(fields, want) {
			t.Errorf("expected %s in invalid fields %v", want, fields)
		}
	}
}
