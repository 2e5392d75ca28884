package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"harukcal/backend/internal/crawler"
	"harukcal/backend/internal/server/api"
	"harukcal/backend/internal/storage"
	"harukcal/backend/internal/vision"
)

// apiKeyMiddleware checks for the X-API-Key header and validates it against the provided key.
// If key is empty, it allows all requests.
func apiKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			reqApiKey := r.Header.Get("X-API-Key")
			if reqApiKey == "" {
				http.Error(w, "API key required", http.StatusUnauthorized)
				return
			}

			if reqApiKey != apiKey {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewRouter builds the HTTP route table over the given dependencies.
func NewRouter(repo *storage.IssueRepository, c *crawler.Crawler, s *crawler.Scheduler, analyzer *vision.Analyzer) *http.ServeMux {
	issuesHandler := api.NewIssuesHandler(repo)
	crawlHandler := api.NewCrawlHandler(c, s)
	mealsHandler := api.NewMealsHandler(analyzer)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthCheckHandler)

	mux.HandleFunc("GET /v1/issues", issuesHandler.List)
	mux.HandleFunc("GET /v1/issues/export", issuesHandler.Export)
	mux.HandleFunc("GET /v1/issues/{id}", issuesHandler.Get)
	mux.HandleFunc("POST /v1/issues", issuesHandler.Create)
	mux.HandleFunc("PUT /v1/issues/{id}", issuesHandler.Update)
	mux.HandleFunc("DELETE /v1/issues/{id}", issuesHandler.Delete)

	mux.HandleFunc("POST /v1/crawl", crawlHandler.CrawlOne)
	mux.HandleFunc("POST /v1/crawl/range", crawlHandler.CrawlRange)
	mux.HandleFunc("POST /v1/crawl/next", crawlHandler.CrawlNext)
	mux.HandleFunc("POST /v1/crawl/previous", crawlHandler.CrawlPrevious)
	mux.HandleFunc("POST /v1/crawl/monthly", crawlHandler.Monthly)
	mux.HandleFunc("POST /v1/crawl/manual", crawlHandler.Manual)
	mux.HandleFunc("POST /v1/crawl/cleanup", crawlHandler.Cleanup)
	mux.HandleFunc("GET /v1/crawl/status", crawlHandler.Status)

	mux.HandleFunc("POST /v1/meals/analyze", mealsHandler.Analyze)

	return mux
}

// RunServer starts the HTTP server with graceful shutdown support.
// It sets up routes, middleware, and handles OS signals for clean termination.
func RunServer(mux *http.ServeMux, listenAddr string, logger zerolog.Logger, apiKey string) error {
	logger = logger.With().Str("service", "journal-api").Logger()

	// Set up middleware chain for logging and request tracking
	var h http.Handler = mux
	h = hlog.NewHandler(logger)(h)
	h = hlog.MethodHandler("method")(h)
	h = hlog.URLHandler("url")(h)
	h = hlog.RemoteAddrHandler("remote_addr")(h)
	h = hlog.UserAgentHandler("user_agent")(h)
	h = hlog.RequestIDHandler("req_id", "Request-Id")(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		idReq, _ := hlog.IDFromRequest(r)

		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Str("req_id", idReq.String()).
			Msg("HTTP Request")
	})(h)

	// Add API key middleware if key is configured
	if apiKey != "" {
		h = apiKeyMiddleware(apiKey)(h)
		logger.Info().Msg("API key authentication enabled")
	} else {
		logger.Info().Msg("API key authentication disabled")
	}

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Range crawls run inside a request; give writes room to finish.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", listenAddr).Msg("API Server starting")
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Fatal().Err(err).Msg("Server failed to start")

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
			if err := httpServer.Close(); err != nil {
				logger.Error().Err(err).Msg("HTTP server force close error")
			}
		} else {
			logger.Info().Msg("HTTP server shutdown complete.")
		}
		if err := <-serverErr; err != nil {
			logger.Error().Err(err).Msg("ListenAndServe error during shutdown")
		}
	}

	logger.Info().Msg("Server exiting.")
	return nil
}

// healthCheckHandler responds to health check requests with a simple 200 OK.
// This endpoint is used by monitoring systems to verify the service is operational.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Health check request received")

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("Error writing health check response")
	}
}
