// Package api serves CoWorker's HTTP interface under /api/agent.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/custodia-labs/coworker/internal/core/ports/driving"
	"github.com/custodia-labs/coworker/internal/logger"
)

// MaxUploadBytes caps multipart file uploads.
const MaxUploadBytes = 100 << 20

// ErrMissingService is returned when a required port is not provided.
var ErrMissingService = errors.New("api: ingestion and query services are required")

// Ports aggregates the driving ports served over HTTP.
// Calendar and Diff are optional; their routes answer 501 when nil.
type Ports struct {
	Ingestion driving.IngestionService
	Query     driving.QueryService
	Calendar  driving.CalendarService
	Diff      driving.DiffService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Ingestion == nil || p.Query == nil {
		return ErrMissingService
	}
	return nil
}

// Server is the HTTP API server.
type Server struct {
	ports  *Ports
	router *gin.Engine
}

// NewServer creates a server with routes and middleware installed.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		ports:  ports,
		router: gin.New(),
	}
	s.router.MaxMultipartMemory = MaxUploadBytes

	s.router.Use(gin.Recovery(), requestIDMiddleware(), loggingMiddleware(), corsMiddleware())
	s.setupRoutes()

	return s, nil
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("HTTP API listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	agent := s.router.Group("/api/agent")
	{
		agent.POST("/text", s.addMessage)
		agent.POST("/documents", s.addDocuments)
		agent.DELETE("/documents/:id", s.deleteDocument)
		agent.POST("/files", s.addFile)
		agent.POST("/query", s.query)
		agent.POST("/suggest", s.suggest)
		agent.POST("/calendars/event", s.generateEvent)
		agent.POST("/git/diff/summary", s.summaryGitDiff)
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("requestID", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %v [%s]",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), c.GetString("requestID"))
	}
}

// corsMiddleware allows any origin; the API sits behind the bot backend.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
