package http

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// SemanticReporter exposes the embedding provider state on /ready
type SemanticReporter interface {
	SemanticStatus() domain.SemanticStatus
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	maxBody    int64

	// Services
	authService   driving.AuthService
	checkService  driving.CheckService
	corpusService driving.CorpusService
	reportService driving.ReportService // optional, checks are not persisted without it

	// Infrastructure checked by /ready, keyed by component name
	dependencies map[string]Pinger
	semantic     SemanticReporter
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// MaxBodyBytes bounds request bodies; documents arrive inline
	MaxBodyBytes int64

	// AllowedOrigins enables CORS for the listed origins ("*" for any)
	AllowedOrigins []string

	// Logger receives request and panic logs; nil uses slog.Default
	Logger *slog.Logger

	// Semantic is reported on /ready; it never makes the service unready
	Semantic SemanticReporter
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		Version:      "dev",
		MaxBodyBytes: 10 << 20,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	checkService driving.CheckService,
	corpusService driving.CorpusService,
	reportService driving.ReportService,
	dependencies map[string]Pinger,
) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	s := &Server{
		router:        http.NewServeMux(),
		version:       cfg.Version,
		maxBody:       cfg.MaxBodyBytes,
		authService:   authService,
		checkService:  checkService,
		corpusService: corpusService,
		reportService: reportService,
		dependencies:  dependencies,
		semantic:      cfg.Semantic,
	}

	var handler http.Handler = s.router
	if len(cfg.AllowedOrigins) > 0 {
		handler = NewCORSMiddleware(cfg.AllowedOrigins).Handler(handler)
	}
	handler = NewRecoveryMiddleware(cfg.Logger).Handler(handler)
	handler = NewLoggingMiddleware(cfg.Logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Plagiarism endpoints (authenticated)
	s.router.Handle("POST /api/v1/plagiarism/check",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleCheck)))
	s.router.Handle("POST /api/v1/plagiarism/citations/suggest",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleSuggestCitations)))
	s.router.Handle("GET /api/v1/plagiarism/history",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleHistory)))
	s.router.Handle("GET /api/v1/plagiarism/reports/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetReport)))
	s.router.Handle("DELETE /api/v1/plagiarism/reports/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteReport)))

	// Corpus endpoints (admin-only for mutations)
	s.router.Handle("POST /api/v1/corpus/sources",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleAddSource))))
	s.router.Handle("GET /api/v1/corpus/sources/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetSource)))
	s.router.Handle("GET /api/v1/corpus/stats",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleCorpusStats)))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// dependencyNames returns the readiness dependencies in a stable order
func (s *Server) dependencyNames() []string {
	names := make([]string, 0, len(s.dependencies))
	for name, p := range s.dependencies {
		if p != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// swaggerDoc returns the registered API document
func swaggerDoc() (string, error) {
	return swag.ReadDoc()
}
