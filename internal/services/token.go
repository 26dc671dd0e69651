package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"lumen_banksync/internal/config"
	"lumen_banksync/internal/models"
)

// TokenManager exchanges the aggregator secret pair for a short-lived bearer
// token. It deliberately does not retry; the resilient client owns retries.
type TokenManager struct {
	Cfg    config.UpstreamConfig
	Client *http.Client
}

func NewTokenManager(cfg config.UpstreamConfig) *TokenManager {
	return &TokenManager{
		Cfg:    cfg,
		Client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

func (t *TokenManager) AcquireToken(ctx context.Context, correlationID string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"secret_id":  t.Cfg.SecretID,
		"secret_key": t.Cfg.SecretKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.Cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Cfg.BaseURL+"/token/new/", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", NewAPIError(CodeUpstreamTimeout, "token exchange timed out", correlationID, http.StatusBadGateway).WithCause(err)
		}
		return "", NewAPIError(CodeUpstreamTokenError, "token exchange failed", correlationID, http.StatusBadGateway).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", NewAPIError(CodeUpstreamTokenError, "token exchange returned non-2xx", correlationID, http.StatusBadGateway).
			WithDetails(map[string]interface{}{"status": resp.StatusCode, "body": string(body)})
	}

	var tokenResp models.UpstreamTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", NewAPIError(CodeUpstreamTokenError, "failed to decode token response", correlationID, http.StatusBadGateway).WithCause(err)
	}

	if tokenResp.Access == "" {
		return "", NewAPIError(CodeUpstreamTokenError, "token response missing access token", correlationID, http.StatusBadGateway)
	}

	return tokenResp.Access, nil
}
