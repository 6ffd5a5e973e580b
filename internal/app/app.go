package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/config"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/core"
	db "github.com/xtfocus/demo-assistant-rag-backend/internal/core/database"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/core/ingestion_engine"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/core/llm"
	objectclient "github.com/xtfocus/demo-assistant-rag-backend/internal/core/object-client"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/core/pdfparser"
)

type App struct {
	DB           *sql.DB
	ObjectClient core.ObjectClient
	Registry     *ingestion_engine.Registry
	Pipeline     *ingestion_engine.Pipeline
	Server       *Server

	embedder *llm.GeminiEmbedder
	vision   *llm.GeminiVision
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	database, err := db.OpenDatabase(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureBootstrapped(appCtx, database, cfg.EmbedDim,
		cfg.TextIndex, cfg.ImageIndex, cfg.SummaryIndex); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	log.Println("Database initialized and ready.")

	textStore, err := db.NewSearchClient(database, cfg.TextIndex)
	if err != nil {
		return nil, err
	}
	imageStore, err := db.NewSearchClient(database, cfg.ImageIndex)
	if err != nil {
		return nil, err
	}
	summaryStore, err := db.NewSearchClient(database, cfg.SummaryIndex)
	if err != nil {
		return nil, err
	}

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}
	vision, err := llm.NewGeminiVision(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the vision model, %w", err)
	}

	splitter, err := ingestion_engine.NewPageTextSplitter(ingestion_engine.SplitterConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("splitter config: %w", err)
	}

	temperature := float32(cfg.Temperature)
	pipeline := ingestion_engine.NewPipeline(ingestion_engine.PipelineDeps{
		Parser:                    pdfparser.NewFitzParser(),
		Splitter:                  splitter,
		Summarizer:                ingestion_engine.NewFileSummarizer(vision, temperature, cfg.SummaryMaxSamples),
		Descriptor:                ingestion_engine.NewImageDescriptor(vision, temperature),
		Embedder:                  embedder,
		TextStore:                 textStore,
		ImageStore:                imageStore,
		SummaryStore:              summaryStore,
		Objects:                   objClient,
		ImageBucket:               cfg.ImageBucket,
		MaxConcurrentDescriptions: cfg.MaxConcurrentDescriptions,
	})

	registry := ingestion_engine.NewRegistry(objClient, cfg.RegistryBucket)
	if err := registry.Load(appCtx); err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	server := NewServer(cfg, ServerDeps{
		Pipeline:     pipeline,
		Registry:     registry,
		TextStore:    textStore,
		ImageStore:   imageStore,
		SummaryStore: summaryStore,
		Objects:      objClient,
	})

	return &App{
		DB:           database,
		ObjectClient: objClient,
		Registry:     registry,
		Pipeline:     pipeline,
		Server:       server,
		embedder:     embedder,
		vision:       vision,
	}, nil
}

func (a *App) Close() {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.vision != nil {
		_ = a.vision.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
