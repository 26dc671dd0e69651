package syncs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"lumen_banksync/internal/api/handlers"
	"lumen_banksync/internal/services"
	"lumen_banksync/pkg/utils"
)

type Handler struct {
	Sync *services.SyncService
}

// SyncAccount triggers one account sync. A cooldown hit comes back as a 200
// no-op so the UI can show "recently synced" instead of an error.
func (h *Handler) SyncAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	correlationID := utils.NewCorrelationID()

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		services.WriteAPIError(w, services.NewAPIError(services.CodeAuthRequired, "unauthorized", correlationID, http.StatusUnauthorized), correlationID)
		return
	}

	accountID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid account id", http.StatusBadRequest)
		return
	}

	var req struct {
		DateFrom string `json:"date_from"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		services.WriteAPIError(w, services.NewAPIError(services.CodeMissingFields, "invalid request body", correlationID, http.StatusBadRequest), correlationID)
		return
	}
	defer r.Body.Close()

	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	result, err := h.Sync.SyncAccount(ctx, userID, accountID, req.DateFrom, correlationID)
	if err != nil {
		services.WriteAPIError(w, err, correlationID)
		return
	}

	utils.WriteJSON(w, result)
}

// SyncAll fans out over every selected account for the caller.
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	correlationID := utils.NewCorrelationID()

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		services.WriteAPIError(w, services.NewAPIError(services.CodeAuthRequired, "unauthorized", correlationID, http.StatusUnauthorized), correlationID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	result, err := h.Sync.SyncAllAccounts(ctx, userID, correlationID)
	if err != nil {
		services.WriteAPIError(w, err, correlationID)
		return
	}

	utils.WriteJSON(w, result)
}
