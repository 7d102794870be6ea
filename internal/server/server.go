// Package server provides the HTTP proxy in front of the generative
// language API. It owns history validation, error shaping, and the
// chunked streaming surface consumed by chat clients.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gemchat/gemchat/internal/gemini"
	"github.com/gemchat/gemchat/pkg/types"
)

// TextStream yields text deltas from an open generation.
type TextStream interface {
	Recv() (string, error)
	Close() error
}

// Upstream is the generative API surface the server proxies.
type Upstream interface {
	StreamGenerate(ctx context.Context, req *types.GenerateRequest) (TextStream, error)
	GenerateImage(ctx context.Context, prompt string) (*types.GeneratedImage, error)
	ListModels(ctx context.Context) ([]types.Model, error)
}

// geminiUpstream adapts the concrete client to the Upstream interface.
type geminiUpstream struct {
	client *gemini.Client
}

func (u geminiUpstream) StreamGenerate(ctx context.Context, req *types.GenerateRequest) (TextStream, error) {
	return u.client.StreamGenerate(ctx, req)
}

func (u geminiUpstream) GenerateImage(ctx context.Context, prompt string) (*types.GeneratedImage, error) {
	return u.client.GenerateImage(ctx, prompt)
}

func (u geminiUpstream) ListModels(ctx context.Context) ([]types.Model, error) {
	return u.client.ListModels(ctx)
}

// NewGeminiUpstream wraps a gemini client as an Upstream.
func NewGeminiUpstream(c *gemini.Client) Upstream {
	return geminiUpstream{client: c}
}

// Config holds server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         3000,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for streamed responses
	}
}

// Server is the HTTP server.
type Server struct {
	config   *Config
	router   *chi.Mux
	httpSrv  *http.Server
	upstream Upstream

	// Overridable in tests.
	webClient *http.Client
	searchURL string
}

// New creates a new Server instance.
func New(cfg *Config, upstream Upstream) *Server {
	s := &Server{
		config:    cfg,
		router:    chi.NewRouter(),
		upstream:  upstream,
		webClient: &http.Client{Timeout: 15 * time.Second},
		searchURL: "https://html.duckduckgo.com/html",
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
