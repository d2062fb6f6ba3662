package main

import (
	"github.com/faizanr27/food-facts/internal/catalog"
	"github.com/faizanr27/food-facts/internal/config"
	"github.com/faizanr27/food-facts/internal/offapi"
)

// newCatalog wires the OFF client and the configured list backend.
func newCatalog(cfg config.Config) *catalog.Service {
	client := offapi.NewClient(offapi.Options{
		BaseURL:           cfg.API.BaseURL,
		ProductBaseURL:    cfg.API.ProductBaseURL,
		Username:          cfg.API.Username,
		Password:          cfg.API.Password,
		Timeout:           cfg.API.Timeout,
		UserAgent:         cfg.API.UserAgent,
		SearchRatePerMin:  cfg.API.SearchRatePerMin,
		ProductRatePerMin: cfg.API.ProductRatePerMin,
	})

	var backend catalog.Backend
	switch cfg.Catalog.Mode {
	case config.ModeRemote:
		backend = catalog.NewRemoteBackend(client)
	default:
		backend = catalog.NewLocalBackend(client, catalog.LocalOptions{
			BatchSize: cfg.Catalog.BatchSize,
			TTL:       cfg.Catalog.CacheTTL,
		})
	}
	return catalog.NewService(backend, client, catalog.ServiceOptions{
		CategoryLimit: cfg.Catalog.CategoryLimit,
		CacheTTL:      cfg.Catalog.CacheTTL,
	})
}
