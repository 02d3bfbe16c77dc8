// Package restserver serves the latest mass-balance updates of a running
// simulation over HTTP.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/icemass/internal/log"
	"github.com/chrissnell/icemass/internal/storage"
	"github.com/chrissnell/icemass/pkg/config"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	Server   http.Server
	memory   *storage.Memory
	health   *storage.HealthManager
	logger   *zap.SugaredLogger
	handlers *Handlers
}

// NewController creates a new REST server controller. health may be nil.
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTData, memory *storage.Memory, health *storage.HealthManager, logger *zap.SugaredLogger) (*Controller, error) {
	if memory == nil {
		return nil, fmt.Errorf("REST server needs an in-memory update store")
	}
	logger = log.OrNop(logger)

	ctrl := &Controller{
		ctx:    ctx,
		wg:     wg,
		memory: memory,
		health: health,
		logger: logger,
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}
	if rc.Port == 0 {
		logger.Info("rest.port not provided; defaulting to 8080")
		rc.Port = 8080
	}

	ctrl.handlers = NewHandlers(ctrl)
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.setupRouter()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server and shuts it down when the
// controller's context is done.
func (c *Controller) StartController() error {
	c.logger.Infof("Starting REST server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.loggingMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/smb/latest", c.handlers.GetLatest).Methods(http.MethodGet)
	api.HandleFunc("/smb/history", c.handlers.GetHistory).Methods(http.MethodGet)
	api.HandleFunc("/smb/grid", c.handlers.GetGrid).Methods(http.MethodGet)

	router.HandleFunc("/healthz", c.handlers.GetHealth).Methods(http.MethodGet)

	return router
}

func (c *Controller) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		c.logger.Debugw("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
