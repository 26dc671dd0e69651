package transactions

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

// GetAllUserTransactions lists the caller's transactions with pagination and
// whitelisted sorting.
func (h *Handler) GetAllUserTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	page, limit := utils.GetPaginationParams(r)
	offset := (page - 1) * limit

	query := `
		SELECT id, bank_account_id, transaction_id, date, amount, currency, description, counterparty, category, category_edited, status, created_at
		FROM transactions
		WHERE user_id = ?
	`
	args := []interface{}{userID}

	if account := r.URL.Query().Get("account"); account != "" {
		accountID, err := strconv.Atoi(account)
		if err != nil {
			utils.WriteError(w, "invalid account filter", http.StatusBadRequest)
			return
		}
		query += " AND bank_account_id = ?"
		args = append(args, accountID)
	}

	query = utils.AddSorting(r, query)

	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := h.DB.QueryContext(ctx, query, args...)
	if err != nil {
		utils.Logger.Errorf("error fetching transactions: %v", err)
		utils.WriteError(w, "error fetching transactions", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		err = rows.Scan(&t.ID, &t.BankAccountID, &t.TransactionID, &t.Date, &t.Amount, &t.Currency,
			&t.Description, &t.Counterparty, &t.Category, &t.CategoryEdited, &t.Status, &t.CreatedAt)
		if err != nil {
			utils.Logger.Errorf("error fetching data: %v", err)
			utils.WriteError(w, "error fetching transaction", http.StatusInternalServerError)
			return
		}
		transactions = append(transactions, t)
	}

	if len(transactions) == 0 {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]interface{}{
			"status":  "success",
			"message": "no transaction found for this user",
			"data":    []models.Transaction{},
		}
		json.NewEncoder(w).Encode(response)
		return
	}

	response := struct {
		Status   string               `json:"status"`
		Count    int                  `json:"count"`
		Page     int                  `json:"page"`
		PageSize int                  `json:"page_size"`
		Data     []models.Transaction `json:"data"`
	}{
		Status:   "success",
		Count:    len(transactions),
		Page:     page,
		PageSize: limit,
		Data:     transactions,
	}

	utils.WriteJSON(w, response)
}

// GetTransactionById returns one transaction scoped to the caller.
func (h *Handler) GetTransactionById(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	transactionID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid transaction ID", http.StatusBadRequest)
		return
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var t models.Transaction
	err = h.DB.QueryRowContext(ctx, `
		SELECT bank_account_id, transaction_id, date, amount, currency, description, counterparty, category, category_edited, status, created_at
		FROM transactions WHERE id = ? AND user_id = ?`, transactionID, userID).
		Scan(&t.BankAccountID, &t.TransactionID, &t.Date, &t.Amount, &t.Currency,
			&t.Description, &t.Counterparty, &t.Category, &t.CategoryEdited, &t.Status, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "no transaction found", http.StatusNotFound)
			return
		}
		utils.Logger.Errorf("error fetching data: %v", err)
		utils.WriteError(w, "error fetching transaction", http.StatusInternalServerError)
		return
	}

	response := struct {
		Status string             `json:"status"`
		Data   models.Transaction `json:"data"`
	}{
		Status: "success",
		Data:   t,
	}

	utils.WriteJSON(w, response)
}

// SetCategory records a manual category. The edited flag makes the override
// permanent: the automatic engine never touches the row again.
func (h *Handler) SetCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	transactionID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid transaction ID", http.StatusBadRequest)
		return
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Category string `json:"category"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil || req.Category == "" {
		utils.WriteError(w, "category is required", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := h.DB.ExecContext(ctx, `
		UPDATE transactions
		SET category = ?, category_edited = 1
		WHERE id = ? AND user_id = ?`, req.Category, transactionID, userID)
	if err != nil {
		utils.Logger.Errorf("error updating category: %v", err)
		utils.WriteError(w, "error updating category", http.StatusInternalServerError)
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		utils.Logger.Errorf("error checking category update: %v", err)
		utils.WriteError(w, "error updating category", http.StatusInternalServerError)
		return
	}
	if affected == 0 {
		utils.WriteError(w, "no transaction found", http.StatusNotFound)
		return
	}

	utils.WriteJSON(w, map[string]string{"status": "success"})
}
