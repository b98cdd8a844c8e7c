package jqdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/rickgao/option-data/internal/provider"
)

// APIError represents an error from the JoinQuant API.
type APIError struct {
	StatusCode int
	Method     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jqdata %s error %d: %s", e.Method, e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsTokenError reports whether the session token was rejected.
func (e *APIError) IsTokenError() bool {
	return e.StatusCode == http.StatusOK && strings.Contains(strings.ToLower(e.Message), "token")
}

// doRequest posts one API call and returns the raw body.
func (c *Client) doRequest(ctx context.Context, payload map[string]any) ([]byte, error) {
	method, _ := payload["method"].(string)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	trimmed := bytes.TrimSpace(body)
	if bytes.HasPrefix(bytes.ToLower(trimmed), []byte("error")) {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Message:    string(trimmed),
		}
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, payload map[string]any) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)+1))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"method", payload["method"],
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := c.doRequest(ctx, payload)
		if err == nil {
			return body, nil
		}

		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// call performs an authenticated API call. A rejected token is refreshed
// once before giving up.
func (c *Client) call(ctx context.Context, method string, params map[string]any) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.session(ctx)
		if err != nil {
			return nil, err
		}

		payload := make(map[string]any, len(params)+2)
		for k, v := range params {
			payload[k] = v
		}
		payload["method"] = method
		payload["token"] = token

		body, err := c.doWithRetry(ctx, payload)
		if err == nil {
			return body, nil
		}

		var apiErr *APIError
		if attempt == 0 && errors.As(err, &apiErr) && apiErr.IsTokenError() {
			c.logger.Info("jqdata token rejected, re-authenticating", "method", method)
			c.resetSession(token)
			continue
		}
		return nil, err
	}
}

// query performs an authenticated call and parses the CSV response.
func (c *Client) query(ctx context.Context, method string, params map[string]any) (*provider.Table, error) {
	body, err := c.call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	t, err := provider.ParseCSV(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return t, nil
}
