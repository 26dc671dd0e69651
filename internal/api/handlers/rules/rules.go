package rules

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"lumen_banksync/internal/api/handlers"
	"lumen_banksync/internal/models"
	"lumen_banksync/pkg/utils"
)

type Handler struct {
	DB *sql.DB
}

var validMatchTypes = map[string]bool{
	models.RuleMatchTransactionID: true,
	models.RuleMatchExact:         true,
	models.RuleMatchContains:      true,
	models.RuleMatchPrefix:        true,
	models.RuleMatchSuffix:        true,
	models.RuleMatchRegex:         true,
	models.RuleMatchAmount:        true,
	models.RuleMatchAmountRange:   true,
}

// ListRules returns the caller's rules in evaluation order.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
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
		SELECT id, match_type, pattern, amount_min, amount_max, currency, category, priority, created_at
		FROM category_rules
		WHERE user_id = ?
		ORDER BY priority ASC, created_at ASC, id ASC`, userID)
	if err != nil {
		utils.Logger.Errorf("error fetching rules: %v", err)
		utils.WriteError(w, "error fetching rules", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var ruleList []models.CategoryRule
	for rows.Next() {
		var rule models.CategoryRule
		if err := rows.Scan(&rule.ID, &rule.MatchType, &rule.Pattern, &rule.AmountMin, &rule.AmountMax,
			&rule.Currency, &rule.Category, &rule.Priority, &rule.CreatedAt); err != nil {
			utils.Logger.Errorf("error scanning rule: %v", err)
			utils.WriteError(w, "error fetching rules", http.StatusInternalServerError)
			return
		}
		ruleList = append(ruleList, rule)
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"count":  len(ruleList),
		"data":   ruleList,
	})
}

// CreateRule adds a reusable categorization rule for the caller.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		MatchType string `json:"match_type"`
		Pattern   string `json:"pattern"`
		AmountMin string `json:"amount_min"`
		AmountMax string `json:"amount_max"`
		Currency  string `json:"currency"`
		Category  string `json:"category"`
		Priority  int    `json:"priority"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if !validMatchTypes[req.MatchType] {
		utils.WriteError(w, "invalid match_type", http.StatusBadRequest)
		return
	}
	if req.Category == "" {
		utils.WriteError(w, "category is required", http.StatusBadRequest)
		return
	}
	if req.MatchType != models.RuleMatchAmountRange && req.Pattern == "" {
		utils.WriteError(w, "pattern is required", http.StatusBadRequest)
		return
	}
	if req.MatchType == models.RuleMatchAmountRange && req.AmountMin == "" && req.AmountMax == "" {
		utils.WriteError(w, "amount_min or amount_max is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := h.DB.ExecContext(ctx, `
		INSERT INTO category_rules (user_id, match_type, pattern, amount_min, amount_max, currency, category, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, req.MatchType, req.Pattern, nullable(req.AmountMin), nullable(req.AmountMax),
		req.Currency, req.Category, req.Priority)
	if err != nil {
		utils.Logger.Errorf("error creating rule: %v", err)
		utils.WriteError(w, "error creating rule", http.StatusInternalServerError)
		return
	}

	id, err := result.LastInsertId()
	if err != nil {
		utils.Logger.Errorf("error reading rule id: %v", err)
		utils.WriteError(w, "error creating rule", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"id":     id,
	})
}

// DeleteRule removes one of the caller's rules.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ruleID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid rule id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := h.DB.ExecContext(ctx, `DELETE FROM category_rules WHERE id = ? AND user_id = ?`, ruleID, userID)
	if err != nil {
		utils.Logger.Errorf("error deleting rule: %v", err)
		utils.WriteError(w, "error deleting rule", http.StatusInternalServerError)
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		utils.Logger.Errorf("error checking rule delete: %v", err)
		utils.WriteError(w, "error deleting rule", http.StatusInternalServerError)
		return
	}
	if affected == 0 {
		utils.WriteError(w, "rule not found", http.StatusNotFound)
		return
	}

	utils.WriteJSON(w, map[string]string{"status": "success"})
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
