package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hyperjump/tayyib/internal/models"
	"github.com/sashabaranov/go-openai"
)

// ErrNoAPIKey is wrapped by missing_credential errors.
var ErrNoAPIKey = errors.New("completion: no API key configured")

// Error is a classified provider failure.
type Error struct {
	Code   models.ErrorCode
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Code, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth one retry.
func (e *Error) Transient() bool {
	switch e.Code {
	case models.ErrRateLimited, models.ErrProvider5xx, models.ErrTimeout:
		return true
	}
	return false
}

// CodeOf returns the error code carried by err, or provider_error for unclassified errors.
func CodeOf(err error) models.ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return models.ErrProvider
}

// classify maps transport and API failures onto the error taxonomy.
func classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: models.ErrTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Code: models.ErrTimeout, Err: err}
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch {
	case status == http.StatusTooManyRequests:
		return &Error{Code: models.ErrRateLimited, Status: status, Err: err}
	case status >= 500:
		return &Error{Code: models.ErrProvider5xx, Status: status, Err: err}
	default:
		return &Error{Code: models.ErrProvider, Status: status, Err: err}
	}
}

// ErrorLog remembers the most recent provider failure for diagnostics. Safe for concurrent use;
// a nil *ErrorLog ignores records.
type ErrorLog struct {
	mu   sync.Mutex
	last *Error
	at   time.Time
}

// Record stores err as the latest failure.
func (l *ErrorLog) Record(err *Error) {
	if l == nil || err == nil {
		return
	}
	l.mu.Lock()
	l.last, l.at = err, time.Now()
	l.mu.Unlock()
}

// Last returns the latest failure and when it happened. The error is nil if none was recorded.
func (l *ErrorLog) Last() (*Error, time.Time) {
	if l == nil {
		return nil, time.Time{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last, l.at
}
