package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/garageline/mechanic-api/models"
	"github.com/garageline/mechanic-api/services/diagnosis"
	"github.com/garageline/mechanic-api/utils"
	"go.uber.org/zap"
)

// DiagnoseRequest is the inbound payload for a diagnosis question
type DiagnoseRequest struct {
	Query    string `json:"query" validate:"required,min=1"`
	Category string `json:"category,omitempty" validate:"omitempty,max=100"`
}

// DiagnoseResponse is the caller-visible result
type DiagnoseResponse struct {
	Answer   string                 `json:"answer"`
	Category string                 `json:"category"`
	Cases    []models.RetrievedCase `json:"cases"`
}

// DiagnosisService defines the interface for the diagnosis pipeline
type DiagnosisService interface {
	Diagnose(ctx context.Context, req diagnosis.Request) (*diagnosis.Result, error)
}

// DiagnoseHandler handles diagnosis HTTP requests
type DiagnoseHandler struct {
	service DiagnosisService
	logger  *zap.Logger
}

// NewDiagnoseHandler creates a new DiagnoseHandler
func NewDiagnoseHandler(service DiagnosisService, logger *zap.Logger) *DiagnoseHandler {
	return &DiagnoseHandler{
		service: service,
		logger:  logger,
	}
}

// HandleDiagnose handles POST /api/v1/diagnose
// Thin handler: parse, validate, delegate, map errors.
func (h *DiagnoseHandler) HandleDiagnose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	var req DiagnoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	h.logger.Debug("processing diagnosis request",
		zap.String("request_id", requestID),
		zap.String("category", req.Category))

	result, err := h.service.Diagnose(ctx, diagnosis.Request{
		Query:    req.Query,
		Category: req.Category,
	})
	if err != nil {
		h.logger.Error("diagnosis request failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("diagnosis request successful",
		zap.String("request_id", requestID),
		zap.String("category", result.Category),
		zap.Int("cases", len(result.Cases)))

	response := DiagnoseResponse{
		Answer:   result.Answer,
		Category: result.Category,
		Cases:    result.Cases,
	}
	if response.Cases == nil {
		response.Cases = []models.RetrievedCase{}
	}

	if err := utils.WriteOK(w, response); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
