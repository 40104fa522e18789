package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPLogger records provider request/response traffic at debug level.
// Credentials are redacted before anything is written.
type HTTPLogger struct {
	logger      *Logger
	maxBodySize int
}

// NewHTTPLogger creates an HTTP logger writing through logger.
func NewHTTPLogger(logger *Logger) *HTTPLogger {
	return &HTTPLogger{
		logger:      logger,
		maxBodySize: 10000,
	}
}

// SetMaxBodySize sets the maximum body size to log (in bytes)
func (h *HTTPLogger) SetMaxBodySize(size int) {
	h.maxBodySize = size
}

// LogRequest logs an outgoing provider request.
func (h *HTTPLogger) LogRequest(req *http.Request, body []byte) {
	fields := Fields{
		"method": req.Method,
		"url":    req.URL.String(),
		"host":   req.Host,
	}

	headers := make(map[string]string)
	for k, v := range req.Header {
		if isSensitiveHeader(k) {
			headers[k] = "[REDACTED]"
		} else if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	fields["headers"] = headers

	if len(body) > 0 {
		if json.Valid(body) {
			var parsed interface{}
			if err := json.Unmarshal(body, &parsed); err == nil {
				fields["body"] = redactSensitiveFields(parsed)
			} else {
				fields["body"] = truncateBody(body, h.maxBodySize)
			}
		} else {
			fields["body"] = truncateBody(body, h.maxBodySize)
		}
		fields["body_size"] = len(body)
	}

	h.logger.Debug("provider request", fields)
}

// LogResponse logs a completed (non-streaming) provider response.
func (h *HTTPLogger) LogResponse(resp *http.Response, body []byte, duration time.Duration) {
	fields := Fields{
		"status":      resp.StatusCode,
		"duration_ms": duration.Milliseconds(),
	}

	if len(body) > 0 {
		if json.Valid(body) {
			var parsed interface{}
			if err := json.Unmarshal(body, &parsed); err == nil {
				fields["body"] = parsed
			} else {
				fields["body"] = truncateBody(body, h.maxBodySize)
			}
		} else {
			fields["body"] = truncateBody(body, h.maxBodySize)
		}
		fields["body_size"] = len(body)
	}

	h.logger.Debug("provider response", fields)
}

// LogStreamStart logs the beginning of a streamed response.
func (h *HTTPLogger) LogStreamStart(resp *http.Response) {
	h.logger.Debug("provider stream started", Fields{
		"status":    resp.StatusCode,
		"streaming": true,
	})
}

// LogStreamChunk logs one streamed chunk.
func (h *HTTPLogger) LogStreamChunk(chunk []byte, chunkNum int) {
	fields := Fields{
		"chunk_num":  chunkNum,
		"chunk_size": len(chunk),
	}
	if len(chunk) <= 500 {
		fields["chunk"] = string(chunk)
	} else {
		fields["chunk"] = string(chunk[:500]) + "...[truncated]"
	}
	h.logger.Debug("provider stream chunk", fields)
}

// LogStreamEnd logs stream completion totals.
func (h *HTTPLogger) LogStreamEnd(duration time.Duration, totalBytes, chunkCount int) {
	h.logger.Debug("provider stream ended", Fields{
		"duration_ms": duration.Milliseconds(),
		"total_bytes": totalBytes,
		"chunk_count": chunkCount,
	})
}

// LogError logs a transport-level failure.
func (h *HTTPLogger) LogError(err error, req *http.Request) {
	h.logger.Error("provider request failed", err, Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	})
}

// NewLoggingRoundTripper wraps a transport so every provider call is
// logged at debug level. Streaming bodies are never buffered.
func NewLoggingRoundTripper(wrapped http.RoundTripper, logger *HTTPLogger, logBody bool) http.RoundTripper {
	if wrapped == nil {
		wrapped = http.DefaultTransport
	}
	return &loggingTransport{
		wrapped: wrapped,
		logger:  logger,
		logBody: logBody,
	}
}

type loggingTransport struct {
	wrapped http.RoundTripper
	logger  *HTTPLogger
	logBody bool
}

// RoundTrip implements http.RoundTripper
func (rt *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	if rt.logBody && req.Body != nil {
		reqBody, _ := io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(reqBody))
		rt.logger.LogRequest(req, reqBody)
	} else {
		rt.logger.LogRequest(req, nil)
	}

	resp, err := rt.wrapped.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		rt.logger.LogError(err, req)
		return nil, err
	}

	if isStreamingResponse(resp) {
		rt.logger.LogStreamStart(resp)
	} else if rt.logBody {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewBuffer(respBody))
		rt.logger.LogResponse(resp, respBody, duration)
	} else {
		rt.logger.LogResponse(resp, nil, duration)
	}

	return resp, nil
}

// isSensitiveHeader checks if a header should be redacted
func isSensitiveHeader(name string) bool {
	sensitive := []string{
		"authorization",
		"api-key",
		"x-api-key",
		"x-auth-token",
		"cookie",
		"set-cookie",
	}
	nameLower := strings.ToLower(name)
	for _, s := range sensitive {
		if nameLower == s {
			return true
		}
	}
	return false
}

func truncateBody(body []byte, maxSize int) string {
	if len(body) <= maxSize {
		return string(body)
	}
	return string(body[:maxSize]) + "...[truncated]"
}

func isStreamingResponse(resp *http.Response) bool {
	contentType := resp.Header.Get("Content-Type")
	return strings.Contains(contentType, "text/event-stream") ||
		strings.Contains(contentType, "application/x-ndjson")
}

// redactSensitiveFields redacts credential-bearing fields in parsed JSON.
func redactSensitiveFields(data interface{}) interface{} {
	sensitiveKeys := []string{
		"api_key", "apiKey", "api-key",
		"password", "secret", "token",
		"authorization", "auth",
	}

	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{})
		for k, val := range v {
			keyLower := strings.ToLower(k)
			isSensitive := false
			for _, sensitive := range sensitiveKeys {
				if strings.Contains(keyLower, sensitive) {
					isSensitive = true
					break
				}
			}
			if isSensitive {
				result[k] = "[REDACTED]"
			} else {
				result[k] = redactSensitiveFields(val)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = redactSensitiveFields(item)
		}
		return result
	default:
		return data
	}
}
