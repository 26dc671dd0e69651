package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"lumen_banksync/pkg/utils"
)

// Error codes exposed to callers. Retryable conditions get their own codes so
// the UI can restart the requisition flow instead of showing a dead end.
const (
	CodeAuthRequired         = "AUTH_REQUIRED"
	CodeConfigMissing        = "CONFIG_MISSING"
	CodeMissingFields        = "MISSING_FIELDS"
	CodeUpstreamTokenError   = "UPSTREAM_TOKEN_ERROR"
	CodeUpstreamEUAError     = "UPSTREAM_EUA_ERROR"
	CodeUpstreamReqError     = "UPSTREAM_REQUISITION_ERROR"
	CodeUpstreamAccountError = "UPSTREAM_ACCOUNT_ERROR"
	CodeUpstreamFetchError   = "UPSTREAM_FETCH_ERROR"
	CodeUpstreamTimeout      = "UPSTREAM_TIMEOUT"
	CodeRequisitionNotLinked = "REQUISITION_NOT_LINKED"
	CodeRequisitionExpired   = "REQUISITION_EXPIRED"
	CodeRequisitionNotFound  = "REQUISITION_NOT_FOUND"
	CodeDBUpsertFailed       = "DB_UPSERT_FAILED"
)

// APIError is the structured error every service stage returns. Message is
// human-readable; Code and CorrelationID let second-line support trace a
// specific failure without provider log access.
type APIError struct {
	Code          string                 `json:"code"`
	Message       string                 `json:"error"`
	CorrelationID string                 `json:"correlationId"`
	Status        int                    `json:"-"`
	Details       map[string]interface{} `json:"details,omitempty"`
	Err           error                  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func NewAPIError(code, message, correlationID string, status int) *APIError {
	return &APIError{
		Code:          code,
		Message:       message,
		CorrelationID: correlationID,
		Status:        status,
	}
}

func (e *APIError) WithDetails(details map[string]interface{}) *APIError {
	e.Details = details
	return e
}

func (e *APIError) WithCause(err error) *APIError {
	e.Err = err
	return e
}

// WriteAPIError serializes err as the caller-facing payload. Anything that is
// not an *APIError becomes an opaque 500 so internals never leak.
func WriteAPIError(w http.ResponseWriter, err error, correlationID string) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		utils.Logger.WithError(err).Error("unclassified error reached handler")
		apiErr = NewAPIError(CodeDBUpsertFailed, "internal server error", correlationID, http.StatusInternalServerError)
	}
	if apiErr.CorrelationID == "" {
		apiErr.CorrelationID = correlationID
	}
	status := apiErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiErr)
}
