package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/garageline/mechanic-api/models"
	"github.com/garageline/mechanic-api/utils"
	"go.uber.org/zap"
)

const (
	defaultCasesLimit = 20
	maxCasesLimit     = 100
)

// CaseReader exposes the read side of the recorded-case store.
type CaseReader interface {
	GetRecent(ctx context.Context, limit int) ([]*models.Conversation, error)
	Count(ctx context.Context) (int64, error)
}

// CasesHandler serves the recorded diagnosis history
type CasesHandler struct {
	repo   CaseReader
	logger *zap.Logger
}

// NewCasesHandler creates a new CasesHandler. A nil repo means the service
// runs without storage and the handler reports that state.
func NewCasesHandler(repo CaseReader, logger *zap.Logger) *CasesHandler {
	return &CasesHandler{
		repo:   repo,
		logger: logger,
	}
}

// CasesResponse is the payload for a case listing
type CasesResponse struct {
	Cases []*models.Conversation `json:"cases"`
	Total int64                  `json:"total"`
}

// HandleListCases handles GET /api/v1/cases?limit=N
func (h *CasesHandler) HandleListCases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	if h.repo == nil {
		_ = utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse{
			Error:   "storage_unavailable",
			Message: "Case storage is not configured",
		})
		return
	}

	limit := defaultCasesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			_ = utils.WriteBadRequest(w, "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}
	if limit > maxCasesLimit {
		limit = maxCasesLimit
	}

	cases, err := h.repo.GetRecent(ctx, limit)
	if err != nil {
		h.logger.Error("failed to list recent cases",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}
	if cases == nil {
		cases = []*models.Conversation{}
	}

	total, err := h.repo.Count(ctx)
	if err != nil {
		h.logger.Warn("failed to count cases",
			zap.String("request_id", requestID),
			zap.Error(err))
		total = int64(len(cases))
	}

	if err := utils.WriteOK(w, CasesResponse{Cases: cases, Total: total}); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
