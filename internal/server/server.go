package server

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"doc-library/internal/blob"
	"doc-library/internal/db"
	"doc-library/internal/mail"
)

// Enqueuer accepts mail for background delivery.
type Enqueuer interface {
	Enqueue(msg mail.Message) error
}

type Config struct {
	Addr           string // e.g. ":2024"
	DB             *sql.DB
	Blobs          blob.Store
	Mail           Enqueuer
	MaxUploadBytes int64
	CORSOrigins    []string

	// Migrate initialises the schema. Defaults to db.Migrate on DB.
	Migrate func(ctx context.Context) error
}

type Server struct {
	cfg        Config
	users      *db.UserStore
	files      *db.FileStore
	httpServer *http.Server
}

func New(cfg Config) *Server {
	if cfg.Migrate == nil {
		cfg.Migrate = func(ctx context.Context) error { return db.Migrate(ctx, cfg.DB) }
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{
		cfg:   cfg,
		users: db.NewUserStore(cfg.DB),
		files: db.NewFileStore(cfg.DB),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(recoverMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(securityHeadersMiddleware)
	r.Use(chimiddleware.Compress(5, "application/json"))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/init", s.handleInit)
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)

	r.Post("/upload", s.handleUpload)
	r.Get("/files", s.handleListFiles)
	r.Get("/search", s.handleSearch)
	r.Put("/files/{id}", s.handleUpdateFile)
	r.Delete("/files/{id}", s.handleDeleteFile)

	r.Get("/download/{filename}", s.handleDownload)
	r.Get("/uploads/*", s.handleStatic)

	return r
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
