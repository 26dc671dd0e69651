package models

import "database/sql"

type BankAccount struct {
	ID                int            `json:"id,omitempty" db:"id,omitempty"`
	UserID            int            `json:"user_id,omitempty" db:"user_id,omitempty"`
	ConnectedBankID   int            `json:"connected_bank_id,omitempty" db:"connected_bank_id,omitempty"`
	Provider          string         `json:"provider,omitempty" db:"provider,omitempty"`
	ProviderAccountID string         `json:"provider_account_id,omitempty" db:"provider_account_id,omitempty"`
	Name              string         `json:"name,omitempty" db:"name,omitempty"`
	IBAN              string         `json:"iban,omitempty" db:"iban,omitempty"`
	Currency          string         `json:"currency,omitempty" db:"currency,omitempty"`
	AccountType       string         `json:"account_type,omitempty" db:"account_type,omitempty"`
	IsSelected        bool           `json:"is_selected" db:"is_selected"`
	LastSyncAt        sql.NullString `json:"last_sync_at,omitempty" db:"last_sync_at,omitempty"`
	NextAllowedSyncAt sql.NullString `json:"next_allowed_sync_at,omitempty" db:"next_allowed_sync_at,omitempty"`
	LastSyncStatus    sql.NullString `json:"last_sync_status,omitempty" db:"last_sync_status,omitempty"`
	CreatedAt         sql.NullString `json:"created_at,omitempty" db:"created_at,omitempty"`
	UpdatedAt         sql.NullString `json:"updated_at,omitempty" db:"updated_at,omitempty"`
}
