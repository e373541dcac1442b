package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fx-analyzer/internal/interfaces"
	"fx-analyzer/internal/logger"
)

// Options configures the HTTP layer.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
	CORSOrigins    []string
	Version        string
}

// Server wires HTTP endpoints around the analyzer.
type Server struct {
	Router   *gin.Engine
	analyzer interfaces.Analyzer
	history  interfaces.History
	opts     Options
	httpSrv  *http.Server
}

// NewServer builds the router. history may be nil, in which case the
// history endpoint returns an empty list.
func NewServer(analyzer interfaces.Analyzer, history interfaces.History, opts Options) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())                                              // Panic recovery (first)
	r.Use(RequestIDMiddleware())                                       // Request ID tracking
	r.Use(RequestLogger())                                             // Request logging (after ID is set)
	r.Use(RateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst)) // Rate limiting
	r.Use(TimeoutMiddleware(opts.RequestTimeout))                      // Request deadline
	r.Use(CORSMiddleware(opts.CORSOrigins))                            // CORS (last before routes)

	s := &Server{
		Router:   r,
		analyzer: analyzer,
		history:  history,
		opts:     opts,
	}
	s.routes()
	s.httpSrv = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)

	api := s.Router.Group("/api")
	{
		api.GET("/", s.root)

		fx := api.Group("/fx")
		{
			fx.POST("/analyze", s.analyze)
			fx.GET("/history", s.getHistory)
			fx.GET("/pairs", s.getPairs)
			fx.GET("/news", s.getNews)
		}
	}
}

// Start listens on addr and blocks until the server stops. It returns nil
// after a graceful Shutdown.
func (s *Server) Start(addr string) error {
	s.httpSrv.Addr = addr
	logger.Info(context.Background(), "HTTP server listening", "addr", addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
