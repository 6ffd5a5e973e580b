package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/api/handlers"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/config"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/core"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/core/ingestion_engine"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// ServerDeps are the collaborators the HTTP handlers need.
type ServerDeps struct {
	Pipeline     *ingestion_engine.Pipeline
	Registry     *ingestion_engine.Registry
	TextStore    core.SearchStore
	ImageStore   core.SearchStore
	SummaryStore core.SearchStore
	Objects      core.ObjectClient
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, deps ServerDeps) *Server {
	counter := ingestion_engine.NewTaskCounter()
	uploadHandler := handlers.NewUploadHandler(deps.Pipeline, deps.Registry, counter)
	removeHandler := handlers.NewRemoveHandler(
		deps.TextStore, deps.ImageStore, deps.SummaryStore,
		deps.Objects, cfg.ImageBucket,
		deps.Registry, counter,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Upload batches can run for a while; the timeout covers whole-batch
	// processing, not a single round trip.
	r.Use(middleware.Timeout(30 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/documents/upload", uploadHandler.UploadDocuments)
		api.Delete("/documents", removeHandler.RemoveDocument)
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
