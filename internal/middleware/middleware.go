package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pixelverk/internal/logger"
)

// Request context keys
type contextKey string

const (
	RequestIDKey contextKey = "request_id"
)

// Standard API error response
type APIError struct {
	Success   bool   `json:"success"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id"`
}

// Standard API success response
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id"`
}

// Chain wraps h with the standard request ID, logging and recovery layers
func Chain(h http.Handler) http.Handler {
	return RequestID(Logging(ErrorHandling(h)))
}

// RequestID middleware adds a unique request ID to each request
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging middleware logs every request with its status and duration
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.LogInfo("request_id=%s %s %s status=%d client_ip=%s took %v",
			GetRequestID(r.Context()), r.Method, r.URL.Path, rw.statusCode,
			logger.GetClientIP(r), time.Since(start))
	})
}

// ErrorHandling middleware turns panics into a JSON 500
func ErrorHandling(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.LogError("Panic in handler request_id=%s %s %s: %v",
					GetRequestID(r.Context()), r.Method, r.URL.Path, err)
				WriteAPIError(w, r, http.StatusInternalServerError, "internal_error",
					"An internal error occurred", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RateLimiter allows one request per key within the interval.
type RateLimiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
	now      func() time.Time
}

func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		last:     make(map[string]time.Time),
		interval: interval,
		now:      time.Now,
	}
}

// Allow records a hit for key and reports whether it was within the limit.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.last[key]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.last[key] = now

	for k, t := range l.last {
		if now.Sub(t) >= l.interval {
			delete(l.last, k)
		}
	}
	return true
}

// Limit rejects requests from a client IP that arrive too quickly
func (l *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(logger.GetClientIP(r)) {
			WriteAPIError(w, r, http.StatusTooManyRequests, "rate_limit_exceeded",
				"Too many requests. Please wait before trying again.", "")
			return
		}
		next(w, r)
	}
}

// GetRequestID returns the request ID stored by RequestID
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WriteJSON writes v with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.LogWarn("Failed to encode response: %v", err)
	}
}

// WriteAPIError writes a standardized error response
func WriteAPIError(w http.ResponseWriter, r *http.Request, statusCode int, code, message, details string) {
	WriteJSON(w, statusCode, APIError{
		Success:   false,
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: GetRequestID(r.Context()),
	})
}

// WriteAPISuccess writes a standardized success response
func WriteAPISuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	WriteJSON(w, http.StatusOK, APIResponse{
		Success:   true,
		Data:      data,
		RequestID: GetRequestID(r.Context()),
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// ParseJSONRequest parses JSON request body into the provided struct
func ParseJSONRequest(r *http.Request, v interface{}) error {
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return fmt.Errorf("content-type must be application/json")
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields() // Strict parsing
	return decoder.Decode(v)
}
