package errors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrorResponse represents the API error response format
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Code      int                    `json:"code"`
	Fields    map[string]string      `json:"fields,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
}

// ErrorHandler renders errors as JSON bodies. With debug set, the text of
// unclassified errors is exposed instead of a generic message.
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{logger: logger, debug: debug}
}

// Handle writes err as an error response. A nil err writes nothing.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	resp := h.response(r, err)
	h.log(r, err, resp)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(resp.Code)
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		h.logger.Error("Failed to encode error response", zap.Error(encErr))
	}
}

func (h *ErrorHandler) response(r *http.Request, err error) ErrorResponse {
	resp := ErrorResponse{
		Error:     true,
		Code:      StatusCode(err),
		RequestID: middleware.GetReqID(r.Context()),
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		resp.TraceID = sc.TraceID().String()
	}

	appErr := GetAppError(err)
	if appErr == nil {
		resp.Type = string(ErrorTypeInternal)
		resp.Message = "An internal error occurred"
		if h.debug {
			resp.Message = err.Error()
		}
		return resp
	}
	resp.Type = string(appErr.Type)
	resp.Message = appErr.Message
	resp.Fields = appErr.Fields
	resp.Details = appErr.Details
	return resp
}

// log reports server faults as errors and client mistakes as warnings.
func (h *ErrorHandler) log(r *http.Request, err error, resp ErrorResponse) {
	fields := []zap.Field{
		zap.String("error_type", resp.Type),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", resp.Code),
		zap.String("request_id", resp.RequestID),
	}
	if len(resp.Fields) > 0 {
		fields = append(fields, zap.Any("fields", resp.Fields))
	}

	appErr := GetAppError(err)
	switch {
	case appErr == nil:
		h.logger.Error("Unhandled error", append(fields, zap.Error(err))...)
	case appErr.Cause != nil:
		fields = append(fields, zap.Error(appErr.Cause))
		fallthrough
	default:
		if resp.Code >= http.StatusInternalServerError {
			h.logger.Error(appErr.Message, fields...)
		} else {
			h.logger.Warn(appErr.Message, fields...)
		}
	}
}
