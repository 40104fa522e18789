package provider

import (
	"context"
	"errors"
	"strconv"

	"github.com/parleydev/parley/internal/logging"
)

// ErrSearchUnsupported is returned before any network call when a turn
// requests web search from a provider not configured for it.
var ErrSearchUnsupported = errors.New("provider does not support web search")

// APIError is a provider response with a non-success status code.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Sanitize renders an error as text safe to show the user or write into a
// conversation document: credential material is redacted.
func Sanitize(err error) string {
	if err == nil {
		return ""
	}
	return logging.Redact(err.Error())
}

// ErrorDetail builds the detail map recorded on an error-role message.
func ErrorDetail(err error) map[string]string {
	if err == nil {
		return nil
	}
	detail := make(map[string]string)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		detail["status"] = strconv.Itoa(apiErr.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		detail["kind"] = "timeout"
	}
	if len(detail) == 0 {
		return nil
	}
	return detail
}
