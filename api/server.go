package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cosmossdk.io/log"
	"github.com/go-chi/chi/v5"

	"github.com/openalpha/cdp-chain/api/handlers"
	"github.com/openalpha/cdp-chain/api/middleware"
	"github.com/openalpha/cdp-chain/api/websocket"
	"github.com/openalpha/cdp-chain/metrics"
)

// Server represents the API server
type Server struct {
	config      *Config
	service     *Service
	hub         *websocket.Hub
	rateLimiter *middleware.RateLimiter
	auth        *middleware.Authenticator
	metrics     *metrics.Collector
	router      chi.Router
	httpServer  *http.Server
	logger      log.Logger
}

// NewServer mounts the service and its middleware on a chi router
func NewServer(config *Config, service *Service, hub *websocket.Hub, collector *metrics.Collector, logger log.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if collector == nil {
		collector = metrics.GetCollector()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	rateLimiter := middleware.NewRateLimiter(&config.RateLimit)
	rateLimiter.OnReject = collector.RecordRateLimitHit

	s := &Server{
		config:      config,
		service:     service,
		hub:         hub,
		rateLimiter: rateLimiter,
		auth:        middleware.NewAuthenticator(config.Auth, logger),
		metrics:     collector,
		logger:      logger.With("module", "api/server"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(corsMiddleware(s.config.AllowedOrigins))
	r.Use(middleware.Metrics(s.metrics))

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.hub.ServeWS)
	if s.config.MetricsAddr == "" {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitMiddleware(s.rateLimiter))
		r.Use(middleware.WriteRateLimitMiddleware(s.rateLimiter))
		r.Use(s.auth.Middleware)

		r.Get("/health", s.handleHealth)
		handlers.NewTroveHandler(s.service).Mount(r)
		handlers.NewPoolHandler(s.service).Mount(r)
		handlers.NewOracleHandler(s.service).Mount(r)
		handlers.NewAccountHandler(s.service).Mount(r)
	})
	return r
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("API server starting",
		"addr", s.config.Addr(),
		"ws", "/ws",
		"rate_limit_rps", s.config.RateLimit.IPRequestsPerSecond,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"timestamp":      time.Now().Unix(),
		"ws_clients":     s.hub.GetClientCount(),
		"indexed_troves": s.service.risk.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[strings.TrimSuffix(origin, "/")] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewMetricsServer serves /metrics on its own address
func NewMetricsServer(addr string) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
