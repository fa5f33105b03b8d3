// Package http provides the HTTP adapter for the application layer.
// It is a thin translation layer between HTTP requests and application
// service calls; all business rules live below it.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finadmin/budget-engine/internal/application/service"
	"github.com/finadmin/budget-engine/internal/domain/approval"
	"github.com/finadmin/budget-engine/internal/domain/budget"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HealthFunc reports whether the backing components are healthy along
// with a component report to render in the health response. A nil
// HealthFunc renders a plain liveness response.
type HealthFunc func() (bool, interface{})

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	budgetService service.BudgetService,
	transactionService service.TransactionService,
	alertService service.AlertService,
	auditService service.AuditService,
	health HealthFunc,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		handlers: NewHandlers(budgetService, transactionService, alertService, auditService, health, logger),
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"

	actorContextKey = "actor"
)

// actorMiddleware extracts the acting identity from request headers.
// The session provider in front of this service authenticates callers
// and injects both headers; requests without them are rejected.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerActorID))
		role := strings.TrimSpace(c.GetHeader(headerActorRole))
		if id == "" || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   fmt.Sprintf("%s and %s headers are required", headerActorID, headerActorRole),
			})
			return
		}

		c.Set(actorContextKey, approval.Actor{ID: id, Role: approval.Role(role)})
		c.Next()
	}
}

// actorFrom returns the actor placed in the request context by
// actorMiddleware
func actorFrom(c *gin.Context) approval.Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(approval.Actor); ok {
			return actor
		}
	}
	return approval.Actor{}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := s.handlers

	// Health check
	s.router.GET("/health", h.HealthCheck)

	// API routes
	api := s.router.Group("/api/v1")
	api.Use(actorMiddleware())
	{
		// Budgets
		api.POST("/budgets", h.CreateBudget)
		api.GET("/budgets", h.ListBudgets)
		api.GET("/budgets/:id", h.GetBudget)
		api.PUT("/budgets/:id", h.UpdateBudget)
		api.DELETE("/budgets/:id", h.DeleteBudget)

		// Lifecycle transitions
		api.POST("/budgets/:id/submit", h.transitionHandler(budget.StatusPending))
		api.POST("/budgets/:id/approve", h.transitionHandler(budget.StatusApproved))
		api.POST("/budgets/:id/reject", h.transitionHandler(budget.StatusRejected))
		api.POST("/budgets/:id/activate", h.transitionHandler(budget.StatusActive))
		api.POST("/budgets/:id/close", h.transitionHandler(budget.StatusClosed))

		// Categories
		api.POST("/budgets/:id/categories", h.AddCategory)
		api.PUT("/categories/:id", h.UpdateCategory)

		// Transactions
		api.POST("/categories/:id/transactions", h.PostTransaction)
		api.GET("/categories/:id/transactions", h.ListCategoryTransactions)
		api.POST("/transactions/:id/decision", h.DecideTransaction)

		// Alerts
		api.GET("/budgets/:id/alerts", h.ListAlerts)
		api.POST("/alerts/:id/acknowledge", h.AcknowledgeAlert)

		// Audit trail
		api.GET("/audit/:entity_type/:entity_id", h.AuditTrail)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
