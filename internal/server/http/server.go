// Package http serves the back-office admin API, health probes and the
// Prometheus /metrics endpoint.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/remote"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	address    string
	store      remote.Admin
	adminToken string
	logger     logging.Logger
	validate   *validator.Validate
}

// NewServer builds the admin server. With an empty adminToken the /api/v1
// routes reject every request.
func NewServer(address string, store remote.Admin, adminToken string, l logging.Logger) *Server {
	return &Server{
		address:    address,
		store:      store,
		adminToken: adminToken,
		logger:     l.With("module", "http_server"),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Router returns the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(s.requestLogger())

	router.GET("/health", s.healthCheck)
	router.GET("/ready", s.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", s.adminAuth())
	{
		v1.GET("/shops", s.listShops)
		v1.POST("/shops", s.createShop)
		v1.GET("/shops/:shop/sales", s.querySales)

		v1.GET("/products", s.findByBarcode)
		v1.PUT("/products", s.upsertProduct)
		v1.DELETE("/products/:id", s.deleteProduct)
		v1.DELETE("/products/:id/prices/:shop", s.removePrice)
	}
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
