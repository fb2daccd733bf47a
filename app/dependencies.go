// Package app wires the application together. Dependencies is the single
// composition root; everything downstream receives its collaborators from
// here.
package app

import (
	"context"
	"fmt"

	"github.com/garageline/mechanic-api/config"
	"github.com/garageline/mechanic-api/handlers"
	"github.com/garageline/mechanic-api/repositories"
	"github.com/garageline/mechanic-api/repositories/postgres"
	"github.com/garageline/mechanic-api/services/casebook"
	"github.com/garageline/mechanic-api/services/completion"
	"github.com/garageline/mechanic-api/services/diagnosis"
	"github.com/garageline/mechanic-api/services/providers"
	"github.com/garageline/mechanic-api/services/providers/openai"
	"github.com/garageline/mechanic-api/services/retrieval"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	Conversations repositories.ConversationRepository

	// Providers
	Embedder providers.Embedder
	Chat     providers.ChatProvider

	// Services
	Retrieval  *retrieval.Service
	Completion *completion.Service
	Recorder   *casebook.Recorder
	Diagnosis  *diagnosis.Service

	// Handlers
	DiagnoseHandler *handlers.DiagnoseHandler
	CasesHandler    *handlers.CasesHandler
	HealthHandler   *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies.
// A missing database configuration is not fatal: the service starts in
// completion-only mode with retrieval and persistence disabled.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initProviders(cfg)
	deps.initServices(cfg)
	deps.initHandlers()

	logger.Info("all dependencies initialized")
	return deps, nil
}

// initDatabase connects to PostgreSQL and ensures the schema exists. Skipped
// entirely when no database is configured.
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if !cfg.HasDatabase() {
		d.Logger.Warn("no database configured, retrieval and persistence disabled")
		return nil
	}

	db, err := postgres.NewDB(*cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if err := db.InitSchema(ctx, cfg.OpenAI.EmbeddingDimension); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.DB = db
	d.Conversations = postgres.NewConversationRepository(db, d.Logger)

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))
	return nil
}

// initProviders builds the OpenAI-backed embedding and chat adapters
func (d *Dependencies) initProviders(cfg *config.Config) {
	providerCfg := providers.ProviderConfig{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Timeout:    cfg.OpenAI.Timeout,
		MaxRetries: cfg.OpenAI.MaxRetries,
	}

	d.Embedder = openai.NewEmbeddingAdapter(providerCfg, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbeddingDimension)

	// Embedding reads retry; completion does not. A retried completion can
	// double-bill a generation the caller never sees, so its failures surface
	// immediately.
	chatCfg := providerCfg
	chatCfg.MaxRetries = 0
	d.Chat = openai.NewChatAdapter(chatCfg)

	if cfg.OpenAI.APIKey == "" {
		d.Logger.Warn("no OpenAI API key configured, completion requests will fail")
	}
}

// initServices builds the pipeline services on top of the repositories and
// providers. Conversations may be nil here; the services handle that.
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Retrieval = retrieval.NewService(d.Conversations, retrieval.Config{
		TopK:          cfg.Pipeline.TopK,
		MinSimilarity: cfg.Pipeline.MinSimilarity,
	}, d.Logger)

	d.Completion = completion.NewService(d.Chat, completion.Config{
		Model:       cfg.OpenAI.ChatModel,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	}, d.Logger)

	d.Recorder = casebook.NewRecorder(d.Conversations, d.Embedder, casebook.Config{
		MaxRecords: cfg.Pipeline.CorpusMaxRecords,
	}, d.Logger)

	d.Diagnosis = diagnosis.NewService(
		d.Embedder,
		d.Retrieval,
		d.Completion,
		d.Recorder,
		diagnosis.Config{StepTimeout: cfg.Pipeline.StepTimeout},
		d.Logger,
	)
}

func (d *Dependencies) initHandlers() {
	d.DiagnoseHandler = handlers.NewDiagnoseHandler(d.Diagnosis, d.Logger)

	var reader handlers.CaseReader
	if d.Conversations != nil {
		reader = d.Conversations
	}
	d.CasesHandler = handlers.NewCasesHandler(reader, d.Logger)

	var pinger handlers.Pinger
	if d.DB != nil {
		pinger = d.DB
	}
	d.HealthHandler = handlers.NewHealthHandler(pinger, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
