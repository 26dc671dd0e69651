package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen_banksync/internal/config"
)

func upstreamCfg(baseURL string, timeout time.Duration) config.UpstreamConfig {
	return config.UpstreamConfig{
		BaseURL:        baseURL,
		SecretID:       "test-id",
		SecretKey:      "test-key",
		RequestTimeout: timeout,
	}
}

func newTestClient(baseURL string, timeout time.Duration) *UpstreamClient {
	cfg := upstreamCfg(baseURL, timeout)
	return NewUpstreamClient(cfg, NewTokenManager(cfg))
}

func serveToken(w http.ResponseWriter, token string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"access": token, "access_expires": 86400})
}

func TestTokenManager_AcquireToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token/new/", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "test-id", body["secret_id"])
		require.Equal(t, "test-key", body["secret_key"])

		serveToken(w, "tok-123")
	}))
	defer srv.Close()

	tm := NewTokenManager(upstreamCfg(srv.URL, 5*time.Second))
	token, err := tm.AcquireToken(context.Background(), "corr-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestTokenManager_MissingAccessField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"detail": "ok but wrong shape"})
	}))
	defer srv.Close()

	tm := NewTokenManager(upstreamCfg(srv.URL, 5*time.Second))
	_, err := tm.AcquireToken(context.Background(), "corr-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeUpstreamTokenError, apiErr.Code)
	assert.Equal(t, "corr-1", apiErr.CorrelationID)
}

func TestTokenManager_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"bad credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	tm := NewTokenManager(upstreamCfg(srv.URL, 5*time.Second))
	_, err := tm.AcquireToken(context.Background(), "corr-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeUpstreamTokenError, apiErr.Code)
	assert.Equal(t, 401, apiErr.Details["status"])
}

func TestUpstreamClient_RefreshesTokenOnceOn401(t *testing.T) {
	var tokenCalls, dataCalls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/new/" {
			n := atomic.AddInt32(&tokenCalls, 1)
			if n == 1 {
				serveToken(w, "stale-token")
			} else {
				serveToken(w, "fresh-token")
			}
			return
		}

		atomic.AddInt32(&dataCalls, 1)
		if r.Header.Get("Authorization") == "Bearer fresh-token" {
			w.Write([]byte(`{"ok":true}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 5*time.Second)
	status, body, err := client.Do(context.Background(), http.MethodGet, "/accounts/a1/", nil, "corr-1")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&tokenCalls), "exactly one token refresh")
	assert.Equal(t, int32(2), atomic.LoadInt32(&dataCalls), "exactly one retry")
}

func TestUpstreamClient_Persistent401SurfacesSecondResponse(t *testing.T) {
	var dataCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/new/" {
			serveToken(w, "some-token")
			return
		}
		atomic.AddInt32(&dataCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 5*time.Second)
	status, _, err := client.Do(context.Background(), http.MethodGet, "/accounts/a1/", nil, "corr-1")

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status, "second 401 is surfaced, not retried forever")
	assert.Equal(t, int32(2), atomic.LoadInt32(&dataCalls))
}

func TestUpstreamClient_RetryAfterHonored(t *testing.T) {
	var dataCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/new/" {
			serveToken(w, "tok")
			return
		}
		if atomic.AddInt32(&dataCalls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 5*time.Second)
	start := time.Now()
	status, _, err := client.Do(context.Background(), http.MethodGet, "/accounts/a1/transactions/", nil, "corr-1")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&dataCalls), "one retry only")
	assert.GreaterOrEqual(t, elapsed, time.Second, "must wait at least Retry-After seconds")
}

func TestUpstreamClient_ServerErrorRetriedOnce(t *testing.T) {
	var dataCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/new/" {
			serveToken(w, "tok")
			return
		}
		atomic.AddInt32(&dataCalls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 5*time.Second)
	status, _, err := client.Do(context.Background(), http.MethodGet, "/accounts/a1/", nil, "corr-1")

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&dataCalls), "5xx is retried exactly once")
}

func TestUpstreamClient_TimeoutIsDistinctError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/new/" {
			serveToken(w, "tok")
			return
		}
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 100*time.Millisecond)
	_, _, err := client.Do(context.Background(), http.MethodGet, "/accounts/a1/", nil, "corr-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeUpstreamTimeout, apiErr.Code)
}

func TestUpstreamClient_GetJSONDecodesAndFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/new/" {
			serveToken(w, "tok")
			return
		}
		if r.URL.Path == "/good/" {
			w.Write([]byte(`{"id":"abc","status":"LN"}`))
			return
		}
		http.Error(w, `{"detail":"nope"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 5*time.Second)

	var dst struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, client.GetJSON(context.Background(), "/good/", &dst, CodeUpstreamFetchError, "corr-1"))
	assert.Equal(t, "abc", dst.ID)

	err := client.GetJSON(context.Background(), "/bad/", &dst, CodeUpstreamReqError, "corr-2")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeUpstreamReqError, apiErr.Code)
	assert.Equal(t, "corr-2", apiErr.CorrelationID)
	assert.Equal(t, 404, apiErr.Details["status"])
}

func TestRetryAfterDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryAfterDuration("2", defaultBackoff))
	assert.Equal(t, defaultBackoff, retryAfterDuration("", defaultBackoff))
	assert.Equal(t, defaultBackoff, retryAfterDuration("soon", defaultBackoff))
	assert.Equal(t, defaultBackoff, retryAfterDuration("-1", defaultBackoff))
}

func TestWriteAPIErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	apiErr := NewAPIError(CodeRequisitionNotLinked, "consent flow not completed yet", "corr-9", http.StatusConflict).
		WithDetails(map[string]interface{}{"status": "CR"})

	WriteAPIError(rec, apiErr, "corr-9")

	assert.Equal(t, http.StatusConflict, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "REQUISITION_NOT_LINKED", payload["code"])
	assert.Equal(t, "consent flow not completed yet", payload["error"])
	assert.Equal(t, "corr-9", payload["correlationId"])
	assert.Equal(t, "CR", payload["details"].(map[string]interface{})["status"])
}

func TestWriteAPIError_WrapsUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, errors.New("boom"), "corr-10")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "corr-10", payload["correlationId"])
	assert.NotContains(t, payload["error"], "boom")
}
