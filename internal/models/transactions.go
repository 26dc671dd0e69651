package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

const (
	TransactionStatusBooked  = "booked"
	TransactionStatusPending = "pending"
)

type Transaction struct {
	ID     int `json:"id,omitempty" db:"id,omitempty"`
	UserID int `json:"user_id,omitempty" db:"user_id,omitempty"`
	// Nulled when the owning bank account is deleted on disconnect.
	BankAccountID  sql.NullInt64   `json:"bank_account_id,omitempty" db:"bank_account_id,omitempty"`
	TransactionID  string          `json:"transaction_id,omitempty" db:"transaction_id,omitempty"`
	Date           string          `json:"date,omitempty" db:"date,omitempty"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Currency       string          `json:"currency,omitempty" db:"currency,omitempty"`
	Description    string          `json:"description,omitempty" db:"description,omitempty"`
	Counterparty   string          `json:"counterparty,omitempty" db:"counterparty,omitempty"`
	Category       string          `json:"category,omitempty" db:"category,omitempty"`
	CategoryEdited bool            `json:"category_edited" db:"category_edited"`
	Status         string          `json:"status,omitempty" db:"status,omitempty"`
	CreatedAt      sql.NullString  `json:"created_at,omitempty" db:"created_at,omitempty"`
	UpdatedAt      sql.NullString  `json:"updated_at,omitempty" db:"updated_at,omitempty"`
}

// NormalizedTransaction is the canonical shape every upstream payload is
// mapped into before categorization and persistence.
type NormalizedTransaction struct {
	TransactionID string
	Date          string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	Counterparty  string
	MCC           string
	Status        string
}
