// Package diagnosis orchestrates the full pipeline for one repair question:
// embed, retrieve, assemble, complete, persist. Each request walks the steps
// sequentially and holds no state across requests.
package diagnosis

import (
	"context"
	"strings"
	"time"

	"github.com/garageline/mechanic-api/models"
	"github.com/garageline/mechanic-api/services"
	"github.com/garageline/mechanic-api/services/prompting"
	"github.com/garageline/mechanic-api/services/providers"
	"go.uber.org/zap"
)

// Retriever finds prior cases similar to a query embedding.
type Retriever interface {
	Retrieve(ctx context.Context, embedding []float32) ([]models.RetrievedCase, error)
	TopK() int
}

// Completer generates an answer for an assembled prompt.
type Completer interface {
	Complete(ctx context.Context, prompt prompting.Prompt) (string, error)
}

// CaseRecorder persists a finished diagnosis. Its error is informational.
type CaseRecorder interface {
	Record(ctx context.Context, query, answer, category string) error
}

// Request is one diagnosis question.
type Request struct {
	Query    string
	Category string
}

// Result is the caller-visible outcome of a successful diagnosis.
type Result struct {
	Answer   string
	Category string
	// Cases are the retrieved candidates that informed the answer, highest
	// similarity first, bounded by the retriever's topK.
	Cases []models.RetrievedCase
}

// Config holds pipeline-level settings.
type Config struct {
	// StepTimeout bounds each external call. Expiry is treated exactly like
	// that dependency's unavailable failure mode.
	StepTimeout time.Duration
}

// Service is the pipeline orchestrator. All collaborators are injected so
// tests can substitute fakes; the service itself owns only sequencing and
// the degrade-versus-fail policy.
type Service struct {
	embedder  providers.Embedder
	retriever Retriever
	completer Completer
	recorder  CaseRecorder
	config    Config
	logger    *zap.Logger
}

// NewService creates a diagnosis service with injected dependencies
func NewService(
	embedder providers.Embedder,
	retriever Retriever,
	completer Completer,
	recorder CaseRecorder,
	config Config,
	logger *zap.Logger,
) *Service {
	if config.StepTimeout <= 0 {
		config.StepTimeout = 30 * time.Second
	}
	return &Service{
		embedder:  embedder,
		retriever: retriever,
		completer: completer,
		recorder:  recorder,
		config:    config,
		logger:    logger,
	}
}

// Diagnose runs the pipeline for one request.
//
// Failure policy: embedding and retrieval feed optional enrichment, so their
// failures degrade to an empty candidate set. Completion is mandatory; its
// failure aborts the request. Persistence runs after the answer exists and
// can never change it.
func (s *Service) Diagnose(ctx context.Context, req Request) (*Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, services.ErrEmptyQuery
	}

	category := req.Category
	if category == "" {
		category = models.DefaultCategory
	}

	start := time.Now()
	s.logger.Info("starting diagnosis pipeline",
		zap.String("category", category),
		zap.Int("query_length", len(query)))

	// Step 1: embed the query for retrieval.
	embedding := s.embedQuery(ctx, query)

	// Step 2: retrieve similar past cases.
	cases := s.retrieveCases(ctx, embedding)

	// Step 3: assemble the prompt. Cannot fail given valid inputs.
	prompt := prompting.Assemble(category, cases, query)

	// Step 4: generate the answer. The one step the request cannot survive
	// without.
	answer, err := s.complete(ctx, prompt)
	if err != nil {
		s.logger.Error("diagnosis failed at completion", zap.Error(err))
		return nil, err
	}

	// Step 5: persist the new interaction, best-effort.
	s.record(ctx, query, answer, category)

	s.logger.Info("diagnosis pipeline completed",
		zap.Int("cases_used", len(cases)),
		zap.Duration("duration", time.Since(start)))

	return &Result{
		Answer:   answer,
		Category: category,
		Cases:    cases,
	}, nil
}

// embedQuery returns the query embedding, or nil on failure. A nil embedding
// downstream means retrieval degrades to an empty candidate set.
func (s *Service) embedQuery(ctx context.Context, query string) []float32 {
	stepCtx, cancel := context.WithTimeout(ctx, s.config.StepTimeout)
	defer cancel()

	embedding, err := s.embedder.Embed(stepCtx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, continuing without retrieval", zap.Error(err))
		return nil
	}
	return embedding
}

// retrieveCases returns similar cases, or an empty slice when retrieval is
// unavailable or the embedding is missing.
func (s *Service) retrieveCases(ctx context.Context, embedding []float32) []models.RetrievedCase {
	if len(embedding) == 0 {
		return []models.RetrievedCase{}
	}

	stepCtx, cancel := context.WithTimeout(ctx, s.config.StepTimeout)
	defer cancel()

	cases, err := s.retriever.Retrieve(stepCtx, embedding)
	if err != nil {
		s.logger.Warn("case retrieval failed, continuing with empty context", zap.Error(err))
		return []models.RetrievedCase{}
	}

	// Defensive bound; the retriever already caps at its topK.
	if topK := s.retriever.TopK(); topK > 0 && len(cases) > topK {
		cases = cases[:topK]
	}
	return cases
}

func (s *Service) complete(ctx context.Context, prompt prompting.Prompt) (string, error) {
	stepCtx, cancel := context.WithTimeout(ctx, s.config.StepTimeout)
	defer cancel()

	return s.completer.Complete(stepCtx, prompt)
}

// record persists the interaction. Failures are logged by the recorder and
// swallowed here; the caller already has their answer.
func (s *Service) record(ctx context.Context, query, answer, category string) {
	stepCtx, cancel := context.WithTimeout(ctx, s.config.StepTimeout)
	defer cancel()

	if err := s.recorder.Record(stepCtx, query, answer, category); err != nil {
		s.logger.Warn("case recording skipped", zap.Error(err))
	}
}
