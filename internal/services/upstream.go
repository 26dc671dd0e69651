package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"lumen_banksync/internal/config"
	"lumen_banksync/pkg/utils"
)

const (
	maxAttempts    = 3
	defaultBackoff = 400 * time.Millisecond
	maxBodySnippet = 512
)

// UpstreamClient is the single path to the aggregator API. It injects the
// bearer token, refreshes it once on 401, and retries once on 429/5xx
// honoring Retry-After. Total attempts are capped at maxAttempts.
type UpstreamClient struct {
	Cfg    config.UpstreamConfig
	Tokens *TokenManager
	Client *http.Client

	mu    sync.Mutex
	token string
}

type upstreamResult struct {
	Status     int
	Body       []byte
	RetryAfter string
}

func NewUpstreamClient(cfg config.UpstreamConfig, tokens *TokenManager) *UpstreamClient {
	return &UpstreamClient{
		Cfg:    cfg,
		Tokens: tokens,
		Client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Do performs one upstream call with the resilience policy applied. The
// returned body is fully read and the response closed before returning.
func (c *UpstreamClient) Do(ctx context.Context, method, path string, body interface{}, correlationID string) (int, []byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	refreshed := false
	backedOff := false

	var res upstreamResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var err error
		res, err = c.doOnce(ctx, method, path, payload, correlationID)
		if err != nil {
			return 0, nil, err
		}

		if res.Status == http.StatusUnauthorized && !refreshed {
			refreshed = true
			c.invalidateToken()
			utils.Logger.WithFields(logrus.Fields{
				"path":          path,
				"correlationId": correlationID,
			}).Info("upstream returned 401, refreshing token")
			continue
		}

		if (res.Status == http.StatusTooManyRequests || res.Status >= 500) && !backedOff {
			backedOff = true
			wait := retryAfterDuration(res.RetryAfter, defaultBackoff)
			utils.Logger.WithFields(logrus.Fields{
				"path":          path,
				"status":        res.Status,
				"wait":          wait.String(),
				"correlationId": correlationID,
			}).Warn("upstream throttled or failed, backing off")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return 0, nil, NewAPIError(CodeUpstreamTimeout, "upstream call cancelled during backoff", correlationID, http.StatusBadGateway).WithCause(ctx.Err())
			}
			continue
		}

		break
	}

	return res.Status, res.Body, nil
}

func (c *UpstreamClient) doOnce(ctx context.Context, method, path string, payload []byte, correlationID string) (upstreamResult, error) {
	token, err := c.currentToken(ctx, correlationID)
	if err != nil {
		return upstreamResult{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.Cfg.RequestTimeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.Cfg.BaseURL+path, reqBody)
	if err != nil {
		return upstreamResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Authorization", "Bearer "+token)
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded || isTimeout(err) {
			return upstreamResult{}, NewAPIError(CodeUpstreamTimeout, "upstream call timed out", correlationID, http.StatusBadGateway).
				WithDetails(map[string]interface{}{"path": path}).WithCause(err)
		}
		return upstreamResult{}, NewAPIError(CodeUpstreamFetchError, "upstream call failed", correlationID, http.StatusBadGateway).
			WithDetails(map[string]interface{}{"path": path}).WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return upstreamResult{}, fmt.Errorf("failed to read upstream response: %w", err)
	}

	return upstreamResult{
		Status:     resp.StatusCode,
		Body:       respBody,
		RetryAfter: resp.Header.Get("Retry-After"),
	}, nil
}

// currentToken returns the cached bearer token, acquiring a fresh one when
// none is held. Guarded so concurrent request chains share one exchange.
func (c *UpstreamClient) currentToken(ctx context.Context, correlationID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		token, err := c.Tokens.AcquireToken(ctx, correlationID)
		if err != nil {
			return "", err
		}
		c.token = token
	}
	return c.token, nil
}

func (c *UpstreamClient) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// GetJSON issues a GET and decodes a 2xx response into dst; any other status
// becomes an APIError carrying the given code.
func (c *UpstreamClient) GetJSON(ctx context.Context, path string, dst interface{}, code, correlationID string) error {
	status, body, err := c.Do(ctx, http.MethodGet, path, nil, correlationID)
	if err != nil {
		return err
	}
	return decodeOrFail(status, body, dst, code, correlationID)
}

// PostJSON issues a POST and decodes a 2xx response into dst.
func (c *UpstreamClient) PostJSON(ctx context.Context, path string, reqBody, dst interface{}, code, correlationID string) error {
	status, body, err := c.Do(ctx, http.MethodPost, path, reqBody, correlationID)
	if err != nil {
		return err
	}
	return decodeOrFail(status, body, dst, code, correlationID)
}

func decodeOrFail(status int, body []byte, dst interface{}, code, correlationID string) error {
	if status < 200 || status > 299 {
		snippet := body
		if len(snippet) > maxBodySnippet {
			snippet = snippet[:maxBodySnippet]
		}
		return NewAPIError(code, "upstream returned non-2xx", correlationID, http.StatusBadGateway).
			WithDetails(map[string]interface{}{"status": status, "body": string(snippet)})
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return NewAPIError(code, "failed to decode upstream response", correlationID, http.StatusBadGateway).WithCause(err)
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func retryAfterDuration(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
