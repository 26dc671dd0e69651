package banks

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"lumen_banksync/internal/api/handlers"
	"lumen_banksync/internal/models"
	"lumen_banksync/internal/services"
	"lumen_banksync/pkg/utils"
)

// Handler exposes the requisition lifecycle to the UI.
type Handler struct {
	Requisitions *services.RequisitionService
	DB           *sql.DB
}

// CreateRequisition starts a consent flow for one institution.
func (h *Handler) CreateRequisition(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		InstitutionID string `json:"institution_id"`
		RedirectURL   string `json:"redirect_url"`
		BankName      string `json:"bank_name"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		services.WriteAPIError(w, services.NewAPIError(services.CodeMissingFields, "invalid request body", correlationID, http.StatusBadRequest), correlationID)
		return
	}
	defer r.Body.Close()

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	result, err := h.Requisitions.CreateRequisition(ctx, userID, req.InstitutionID, req.RedirectURL, req.BankName, correlationID)
	if err != nil {
		services.WriteAPIError(w, err, correlationID)
		return
	}

	utils.WriteJSON(w, result)
}

// FinalizeRequisition turns a completed consent flow into persisted
// accounts.
func (h *Handler) FinalizeRequisition(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		RequisitionID string `json:"requisition_id"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		services.WriteAPIError(w, services.NewAPIError(services.CodeMissingFields, "invalid request body", correlationID, http.StatusBadRequest), correlationID)
		return
	}
	defer r.Body.Close()

	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	result, err := h.Requisitions.FinalizeRequisition(ctx, userID, req.RequisitionID, correlationID)
	if err != nil {
		services.WriteAPIError(w, err, correlationID)
		return
	}

	utils.WriteJSON(w, result)
}

// ListInstitutions returns the aggregator's institutions for a country.
func (h *Handler) ListInstitutions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	correlationID := utils.NewCorrelationID()

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	institutions, err := h.Requisitions.ListInstitutions(ctx, r.URL.Query().Get("country"), correlationID)
	if err != nil {
		services.WriteAPIError(w, err, correlationID)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"count":  len(institutions),
		"data":   institutions,
	})
}

// ListConnectedBanks returns the caller's bank connections.
func (h *Handler) ListConnectedBanks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.DB.QueryContext(ctx, `
		SELECT id, institution_id, bank_name, provider, link_id, status, consent_expires_at, created_at
		FROM connected_banks
		WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		utils.Logger.Errorf("error fetching connected banks: %v", err)
		utils.WriteError(w, "error fetching connected banks", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var banks []models.ConnectedBank
	for rows.Next() {
		var b models.ConnectedBank
		if err := rows.Scan(&b.ID, &b.InstitutionID, &b.BankName, &b.Provider, &b.LinkID, &b.Status, &b.ConsentExpiresAt, &b.CreatedAt); err != nil {
			utils.Logger.Errorf("error scanning connected bank: %v", err)
			utils.WriteError(w, "error fetching connected banks", http.StatusInternalServerError)
			return
		}
		banks = append(banks, b)
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"count":  len(banks),
		"data":   banks,
	})
}

// Disconnect removes one bank connection and its accounts.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	correlationID := utils.NewCorrelationID()

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		services.WriteAPIError(w, services.NewAPIError(services.CodeAuthRequired, "unauthorized", correlationID, http.StatusUnauthorized), correlationID)
		return
	}

	bankID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid bank id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Requisitions.Disconnect(ctx, userID, bankID, correlationID); err != nil {
		services.WriteAPIError(w, err, correlationID)
		return
	}

	utils.WriteJSON(w, map[string]string{"status": "success"})
}
