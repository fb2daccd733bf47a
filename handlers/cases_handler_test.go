package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/garageline/mechanic-api/models"
	"go.uber.org/zap"
)

// MockCaseReader is a mock implementation of CaseReader
type MockCaseReader struct {
	mock.Mock
}

func (m *MockCaseReader) GetRecent(ctx context.Context, limit int) ([]*models.Conversation, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

func (m *MockCaseReader) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func getCases(t *testing.T, handler *CasesHandler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	handler.HandleListCases(w, req)
	return w
}

func TestHandleListCases(t *testing.T) {
	logger := zap.NewNop()

	t.Run("returns recent cases with total", func(t *testing.T) {
		reader := new(MockCaseReader)
		handler := NewCasesHandler(reader, logger)

		convs := []*models.Conversation{
			{ID: uuid.New(), Prompt: "q1", Response: "a1", Category: "engine", CreatedAt: time.Now()},
			{ID: uuid.New(), Prompt: "q2", Response: "a2", Category: "brakes", CreatedAt: time.Now()},
		}
		reader.On("GetRecent", mock.Anything, 2).Return(convs, nil)
		reader.On("Count", mock.Anything).Return(int64(7), nil)

		w := getCases(t, handler, "/api/v1/cases?limit=2")

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, float64(7), data["total"])
		assert.Len(t, data["cases"].([]interface{}), 2)

		reader.AssertExpectations(t)
	})

	t.Run("missing limit uses default", func(t *testing.T) {
		reader := new(MockCaseReader)
		handler := NewCasesHandler(reader, logger)

		reader.On("GetRecent", mock.Anything, defaultCasesLimit).Return([]*models.Conversation{}, nil)
		reader.On("Count", mock.Anything).Return(int64(0), nil)

		w := getCases(t, handler, "/api/v1/cases")
		assert.Equal(t, http.StatusOK, w.Code)
		reader.AssertExpectations(t)
	})

	t.Run("oversized limit clamped", func(t *testing.T) {
		reader := new(MockCaseReader)
		handler := NewCasesHandler(reader, logger)

		reader.On("GetRecent", mock.Anything, maxCasesLimit).Return([]*models.Conversation{}, nil)
		reader.On("Count", mock.Anything).Return(int64(0), nil)

		w := getCases(t, handler, "/api/v1/cases?limit=5000")
		assert.Equal(t, http.StatusOK, w.Code)
		reader.AssertExpectations(t)
	})

	t.Run("invalid limit returns 400", func(t *testing.T) {
		reader := new(MockCaseReader)
		handler := NewCasesHandler(reader, logger)

		for _, limit := range []string{"abc", "-1", "0"} {
			w := getCases(t, handler, "/api/v1/cases?limit="+limit)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		}
		reader.AssertNotCalled(t, "GetRecent")
	})

	t.Run("no storage configured returns 503", func(t *testing.T) {
		handler := NewCasesHandler(nil, logger)

		w := getCases(t, handler, "/api/v1/cases")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "storage_unavailable")
	})

	t.Run("store failure returns 500", func(t *testing.T) {
		reader := new(MockCaseReader)
		handler := NewCasesHandler(reader, logger)

		reader.On("GetRecent", mock.Anything, defaultCasesLimit).Return(nil, errors.New("connection refused"))

		w := getCases(t, handler, "/api/v1/cases")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("count failure falls back to page size", func(t *testing.T) {
		reader := new(MockCaseReader)
		handler := NewCasesHandler(reader, logger)

		convs := []*models.Conversation{{ID: uuid.New(), Prompt: "q", Response: "a"}}
		reader.On("GetRecent", mock.Anything, defaultCasesLimit).Return(convs, nil)
		reader.On("Count", mock.Anything).Return(int64(0), errors.New("timeout"))

		w := getCases(t, handler, "/api/v1/cases")
		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, float64(1), data["total"])
	})
}
