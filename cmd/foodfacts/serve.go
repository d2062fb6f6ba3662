package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/faizanr27/food-facts/internal/config"
	"github.com/faizanr27/food-facts/internal/content"
	"github.com/faizanr27/food-facts/internal/handlers"
	"github.com/faizanr27/food-facts/internal/i18n"
	"github.com/faizanr27/food-facts/internal/inflight"
	"github.com/faizanr27/food-facts/internal/middleware"
	"github.com/faizanr27/food-facts/internal/observability"
	"github.com/faizanr27/food-facts/internal/render"
	"github.com/faizanr27/food-facts/public"
	"github.com/faizanr27/food-facts/templates"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, logger, err := opts.load(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	router, closeRouter, err := newRouter(cfg, logger, newCatalog(cfg))
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRouter(); err != nil {
			logger.Warn("router close error", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	errCh := make(chan error, 1)
	go func() {
		serverLogger.Info("foodfacts web listening",
			zap.String("catalogMode", cfg.Catalog.Mode),
			zap.Bool("dev", cfg.Dev))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

// newRouter assembles the middleware stack and routes. The returned close
// function stops the template watcher.
func newRouter(cfg config.Config, logger *zap.Logger, cat handlers.Catalog) (http.Handler, func() error, error) {
	bundle, err := i18n.Load(i18n.Embedded(), cfg.Locale.Default, cfg.Locale.Supported)
	if err != nil {
		return nil, nil, fmt.Errorf("load locales: %w", err)
	}

	renderOpts := render.Options{
		FS:     templates.FS(),
		Dir:    cfg.Paths.TemplatesDir,
		Watch:  cfg.Dev && cfg.Paths.TemplatesDir != "",
		Funcs:  handlers.Funcs(bundle),
		Logger: logger.Named("render"),
	}
	renderer, err := render.New(renderOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("load templates: %w", err)
	}
	renderOpts.Logger.Info("templates loaded",
		zap.Strings("pages", renderer.Pages()),
		zap.Bool("watch", renderOpts.Watch))

	assets, err := assetsFS(cfg.Paths.PublicDir)
	if err != nil {
		_ = renderer.Close()
		return nil, nil, err
	}

	sessions, err := middleware.NewSessions([]byte(cfg.Session.HashKey), []byte(cfg.Session.BlockKey), cfg.IsProduction())
	if err != nil {
		_ = renderer.Close()
		return nil, nil, err
	}

	pagesFS := content.Embedded()
	contentTTL := time.Duration(0)
	if cfg.Paths.ContentDir != "" {
		pagesFS = os.DirFS(cfg.Paths.ContentDir)
	}
	if cfg.Dev {
		contentTTL = -1
	}

	h := handlers.New(handlers.Config{
		Catalog:  cat,
		Pages:    content.NewStore(pagesFS, bundle.Fallback(), contentTTL),
		Renderer: renderer,
		Bundle:   bundle,
		Guard:    inflight.New(),
		PageSize: cfg.Catalog.PageSize,
		BaseURL:  cfg.Server.PublicURL,
	})

	httpLogger := logger.Named("http")
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; deploy behind a proxy that sets it.
	r.Use(chimw.RealIP)
	r.Use(observability.TraceMiddleware())
	r.Use(observability.InjectLoggerMiddleware(httpLogger))
	r.Use(observability.RecoveryMiddleware(httpLogger))
	r.Use(observability.RequestLoggerMiddleware())
	r.Use(chimw.Compress(5))

	r.Get("/healthz", handlers.Healthz)
	r.Handle("/assets/*", http.StripPrefix("/assets", middleware.AssetsWithCache(assets)))

	r.Group(func(r chi.Router) {
		r.Use(middleware.HTMX)
		r.Use(sessions.Middleware)
		r.Use(middleware.Locale(bundle, sessions))
		h.Mount(r)
	})

	return r, renderer.Close, nil
}

func assetsFS(publicDir string) (fs.FS, error) {
	if publicDir != "" {
		return os.DirFS(filepath.Join(publicDir, "assets")), nil
	}
	sub, err := public.AssetsFS()
	if err != nil {
		return nil, fmt.Errorf("embed assets: %w", err)
	}
	return sub, nil
}
