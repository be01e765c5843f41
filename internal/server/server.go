package server

import (
	"fmt"
	"net/http"
	"time"

	"zarab-collections/internal/backend"
	"zarab-collections/internal/config"
	"zarab-collections/internal/dashboard"
	custommiddleware "zarab-collections/internal/middleware"
	"zarab-collections/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config   *config.Config
	logger   *zap.Logger
	backend  *backend.Client
	redis    *redis.Client
	registry *dashboard.Registry
}

// NewRouter builds the HTTP surface over the backend client
func NewRouter(cfg *config.Config, logger *zap.Logger, client *backend.Client, redisClient *redis.Client, registry *dashboard.Registry) http.Handler {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))
	router.Use(custommiddleware.Tracing)
	router.Use(custommiddleware.PrometheusMetrics)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := client.Health(r.Context())
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})
	router.Handle("/metrics", promhttp.Handler())

	var loginLimit, shopLimit func(http.Handler) http.Handler
	if redisClient != nil {
		loginLimit = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.LoginRequests,
			Window:            cfg.RateLimit.Window(),
			KeyPrefix:         "rate_limit:login",
		}, logger)
		shopLimit = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window(),
			KeyPrefix:         "rate_limit:shop",
		}, logger)
	}

	authMiddleware := custommiddleware.AuthMiddleware(client.Auth(), logger)

	transport.NewShopHandler(client.Products(), logger).RegisterRoutes(router, shopLimit)
	transport.NewAuthHandler(client.Auth(), registry, logger).RegisterRoutes(router, authMiddleware, loginLimit)
	transport.NewAdminHandler(transport.AuthSessions(client.Auth()), registry, logger).RegisterRoutes(router, authMiddleware)

	return router
}

func NewServer(cfg *config.Config, logger *zap.Logger, client *backend.Client, redisClient *redis.Client, registry *dashboard.Registry) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      NewRouter(cfg, logger, client, redisClient, registry),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:   cfg,
		logger:   logger,
		backend:  client,
		redis:    redisClient,
		registry: registry,
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
