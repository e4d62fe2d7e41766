// Package api exposes the recommendation engine, lead capture and pricing
// administration over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-quote/internal/config"
	"github.com/sells-group/site-quote/internal/engine"
	"github.com/sells-group/site-quote/internal/pricing"
	"github.com/sells-group/site-quote/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Server serves the quote API.
type Server struct {
	engine          *engine.Engine
	pricing         pricing.Source
	store           store.Store
	cfg             config.ServerConfig
	defaultCurrency string
	limiter         *clientLimiter
}

// New creates a Server. Pricing is read from src on every request; st
// persists leads and pricing edits.
func New(eng *engine.Engine, src pricing.Source, st store.Store, cfg config.ServerConfig, defaultCurrency string) *Server {
	if defaultCurrency == "" {
		defaultCurrency = pricing.DefaultCurrency
	}
	return &Server{
		engine:          eng,
		pricing:         src,
		store:           st,
		cfg:             cfg,
		defaultCurrency: defaultCurrency,
		limiter:         newClientLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if s.cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/pricing/{currency}", s.handleGetPricing)
		r.Post("/quotes/preview", s.handlePreviewQuote)
		r.With(s.limiter.middleware).Post("/quotes", s.handleCreateQuote)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/quotes", s.handleListQuotes)
			r.Get("/quotes/{id}", s.handleGetQuote)
			r.Put("/pricing/{currency}", s.handlePutPricing)
			r.Delete("/pricing/{currency}", s.handleDeletePricing)
		})
	})

	return r
}

// Run serves on the configured port until ctx ends, then drains in-flight
// requests for up to the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("api: starting server", zap.Int("port", s.cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "api: listen")
		}
		return nil
	case <-ctx.Done():
	}

	timeout := time.Duration(s.cfg.ShutdownTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	zap.L().Info("api: shutting down server")
	return eris.Wrap(srv.Shutdown(shutdownCtx), "api: shutdown")
}
