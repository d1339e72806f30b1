package shotstack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Sentinel errors for transport failures.
var (
	ErrUnreachable      = errors.New("shotstack unreachable")
	ErrTimeout          = errors.New("shotstack request timeout")
	ErrRetriesExhausted = errors.New("shotstack retries exhausted")
)

// StatusError is a non-2xx response from the Shotstack API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("shotstack returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("shotstack returned status %d", e.StatusCode)
}

// Retryable reports whether the status indicates a transient failure.
// 429 and 5xx are retried; any other 4xx is permanent.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// transport is a generic retrying JSON transport for the Shotstack API.
// It knows nothing about edits or timelines: it attaches the API key,
// retries transient failures with exponential backoff, and decodes the
// response body. Domain semantics live in HTTPClient.
type transport struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
	debug      bool
}

// do issues one JSON request with retries. body may be nil for GET-style
// calls; out may be nil when the response body is irrelevant. Transient
// failures (network errors, 429, 5xx) are retried up to maxRetries total
// attempts with baseDelay * 2^(attempt-1) between tries; permanent
// failures return immediately.
func (t *transport) do(ctx context.Context, method, path string, body, out any) error {
	var lastErr error

	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		if attempt > 1 {
			delay := t.baseDelay << (attempt - 2)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
			}
		}

		err := t.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
		slog.Warn("shotstack request failed, will retry",
			"method", method,
			"path", path,
			"attempt", attempt,
			"max_attempts", t.maxRetries,
			"error", err,
		)
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, t.maxRetries, lastErr)
}

func (t *transport) doOnce(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("x-api-key", t.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if t.debug {
		// Never log the API key.
		slog.Debug("shotstack request",
			"method", method,
			"url", t.baseURL+path,
			"status", resp.StatusCode,
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding shotstack response: %w", err)
		}
	}
	return nil
}

// retryable reports whether an error from doOnce is worth another attempt.
func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrTimeout)
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// readErrorMessage extracts the message from a Shotstack error body, if any.
func readErrorMessage(body io.Reader) string {
	var envelope struct {
		Message  string `json:"message"`
		Response struct {
			Message string `json:"message"`
		} `json:"response"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&envelope); err != nil {
		return ""
	}
	if envelope.Response.Message != "" {
		return envelope.Response.Message
	}
	return envelope.Message
}
