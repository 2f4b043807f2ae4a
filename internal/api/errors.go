package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]interface{}
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause adds the underlying cause error
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

// Build creates the final APIError
func (eb *ErrorBuilder) Build() APIError {
	ctx := eb.context
	if len(ctx) == 0 {
		ctx = nil
	}
	return APIError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   ctx,
		RequestID: eb.requestID,
		Timestamp: formatTime(time.Now()),
	}
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *log.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *log.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Write logs the error and sends it as the response body.
func (eh *ErrorHandler) Write(w http.ResponseWriter, r *http.Request, status int, b *ErrorBuilder) {
	apiErr := b.
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("path", r.URL.Path).
		Build()
	eh.logError(r, apiErr, status)
	eh.writeErrorResponse(w, status, apiErr)
}

// HandleError converts a plain error into an error response. A request whose
// deadline passed is reported as a timeout whatever status was asked for.
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error, status int) {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		eh.logError(r, apiErr, status)
		eh.writeErrorResponse(w, status, apiErr)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		eh.Write(w, r, http.StatusGatewayTimeout,
			NewError(ErrTypeTimeout, "Request timed out").WithCause(err))
		return
	}
	eh.Write(w, r, status, NewError(ErrTypeInternal, "Internal server error").
		WithCause(err).
		WithContext("method", r.Method))
}

// HandleValidationError handles validation-specific errors
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	eh.Write(w, r, http.StatusBadRequest,
		NewError(ErrTypeValidation, fmt.Sprintf("Validation failed: %s", message)).
			WithContext("field", field))
}

func (eh *ErrorHandler) logError(r *http.Request, apiErr APIError, status int) {
	level := "ERROR"
	if status < 500 {
		level = "WARN"
	}
	eh.logger.Printf(
		"error_occurred level=%s type=%s category=%s status=%d request_id=%s method=%s path=%s message=%q",
		level, apiErr.Type, GetErrorCategory(apiErr.Type), status, apiErr.RequestID, r.Method, r.URL.Path, apiErr.Message,
	)
}

func (eh *ErrorHandler) writeErrorResponse(w http.ResponseWriter, status int, apiErr APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Arcade-Version", Version)
	w.Header().Set("X-Error-Type", apiErr.Type)
	w.Header().Set("X-Error-Category", string(GetErrorCategory(apiErr.Type)))
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(apiErr); err != nil {
		eh.logger.Printf("write error response: %v", err)
	}
}

// RecoveryHandler provides panic recovery with structured error logging
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				eh.logger.Printf(
					"panic_recovered request_id=%s path=%s method=%s panic=%v",
					middleware.GetReqID(r.Context()), r.URL.Path, r.Method, rvr,
				)
				eh.Write(w, r, http.StatusInternalServerError,
					NewError(ErrTypeInternal, "Internal server error").
						WithContext("panic", fmt.Sprintf("%v", rvr)).
						WithContext("method", r.Method))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
