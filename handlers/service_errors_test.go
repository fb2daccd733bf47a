package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/garageline/mechanic-api/services"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "validation error maps to 400",
			err:        services.ErrEmptyQuery,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not found maps to 404",
			err:        services.NewDomainError(services.ErrorTypeNotFound, "case not found", nil),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "external error maps to 502",
			err:        services.WrapExternal(services.ErrCompletionUnavailable.Message, errors.New("503")),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "prompt too large maps to 502",
			err:        services.ErrPromptTooLarge,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "internal error maps to 500",
			err:        services.WrapInternal("database error", errors.New("broken pipe")),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "plain error maps to 500",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, logger)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleServiceError(w, nil, logger)
		assert.Empty(t, w.Body.String())
	})
}
