package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func handle(t *testing.T, h *ErrorHandler, err error) (int, ErrorResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/about/@@json", nil), err)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, resp
}

func TestErrorHandler(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	tests := []struct {
		name     string
		err      error
		status   int
		errType  ErrorType
		hasField string
	}{
		{"not found", NewNotFoundError("node /missing/"), http.StatusNotFound, ErrorTypeNotFound, ""},
		{"forbidden", NewForbiddenError("edit permission required"), http.StatusForbidden, ErrorTypeForbidden, ""},
		{"field validation", NewFieldValidationError(map[string]string{"title": "required"}), http.StatusBadRequest, ErrorTypeValidation, "title"},
		{"wrapped", fmt.Errorf("apply: %w", NewIdentityMismatchError("wrong id")), http.StatusBadRequest, ErrorTypeIdentityMismatch, ""},
		{"rate limited", NewRateLimitError(), http.StatusTooManyRequests, ErrorTypeRateLimited, ""},
		{"infrastructure", NewInfrastructureError("save", errors.New("boom")), http.StatusInternalServerError, ErrorTypeInfrastructure, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := handle(t, h, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.status, resp.Code)
			assert.Equal(t, string(tt.errType), resp.Type)
			assert.True(t, resp.Error)
			if tt.hasField != "" {
				assert.Contains(t, resp.Fields, tt.hasField)
			}
		})
	}
}

func TestErrorHandler_Unclassified(t *testing.T) {
	t.Run("Should hide the message outside debug", func(t *testing.T) {
		status, resp := handle(t, NewErrorHandler(zap.NewNop(), false), errors.New("disk on fire"))
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, string(ErrorTypeInternal), resp.Type)
		assert.NotContains(t, resp.Message, "disk")
	})

	t.Run("Should expose the message in debug", func(t *testing.T) {
		_, resp := handle(t, NewErrorHandler(zap.NewNop(), true), errors.New("disk on fire"))
		assert.Equal(t, "disk on fire", resp.Message)
	})
}
