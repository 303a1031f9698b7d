package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/suteetoe/salescrm/pkg/logger"
)

// APIError is a failure with a client-facing status, code and detail.
// The wrapped cause is logged but never sent to the client.
type APIError struct {
	Status int
	Code   string
	Detail string
	Err    error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// BadRequest reports invalid input
func BadRequest(detail string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "bad_request", Detail: detail}
}

// Unauthorized reports a missing or invalid session
func Unauthorized(detail string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: "unauthorized", Detail: detail}
}

// Forbidden reports an action the caller's role does not allow
func Forbidden(detail string) *APIError {
	return &APIError{Status: http.StatusForbidden, Code: "forbidden", Detail: detail}
}

// NotFound reports an unknown record or action
func NotFound(detail string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: "not_found", Detail: detail}
}

// MethodNotAllowed reports a read-only method used for a write action
func MethodNotAllowed(detail string) *APIError {
	return &APIError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Detail: detail}
}

// Conflict reports a write that lost against the current state
func Conflict(detail string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: "conflict", Detail: detail}
}

// Internal wraps an unexpected failure
func Internal(err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: "internal_error", Detail: "internal server error", Err: err}
}

// statusOf returns the HTTP status an error will be rendered with
func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

// toAPIError converts any error into the envelope it is rendered as
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		detail := http.StatusText(httpErr.Code)
		if msg, ok := httpErr.Message.(string); ok && msg != "" {
			detail = msg
		}
		switch httpErr.Code {
		case http.StatusBadRequest:
			return &APIError{Status: httpErr.Code, Code: "bad_request", Detail: detail, Err: httpErr.Internal}
		case http.StatusUnauthorized:
			return Unauthorized(detail)
		case http.StatusForbidden:
			return Forbidden(detail)
		case http.StatusNotFound:
			return NotFound(detail)
		case http.StatusMethodNotAllowed:
			return MethodNotAllowed(detail)
		}
		if httpErr.Code >= http.StatusInternalServerError {
			return Internal(err)
		}
		return &APIError{Status: httpErr.Code, Code: "error", Detail: detail}
	}

	return Internal(err)
}

// ErrorHandler renders every error as {"error": code, "detail": detail}
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	apiErr := toAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.FromContext(c).Error("Request failed",
			zap.String("action", c.QueryParam("api")),
			zap.Error(err))
	}

	body := echo.Map{"error": apiErr.Code, "detail": apiErr.Detail}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(apiErr.Status)
	} else {
		writeErr = c.JSON(apiErr.Status, body)
	}
	if writeErr != nil {
		logger.FromContext(c).Error("Failed to write error response", zap.Error(writeErr))
	}
}
