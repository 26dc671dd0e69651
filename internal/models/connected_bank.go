package models

import "database/sql"

// ConnectedBank statuses follow the requisition lifecycle.
const (
	BankStatusPending  = "pending"
	BankStatusActive   = "active"
	BankStatusExpired  = "expired"
	BankStatusRejected = "rejected"
)

type ConnectedBank struct {
	ID               int            `json:"id,omitempty" db:"id,omitempty"`
	UserID           int            `json:"user_id,omitempty" db:"user_id,omitempty"`
	InstitutionID    string         `json:"institution_id,omitempty" db:"institution_id,omitempty"`
	BankName         string         `json:"bank_name,omitempty" db:"bank_name,omitempty"`
	Provider         string         `json:"provider,omitempty" db:"provider,omitempty"`
	LinkID           string         `json:"link_id,omitempty" db:"link_id,omitempty"`
	AccountRef       string         `json:"account_ref,omitempty" db:"account_ref,omitempty"`
	Status           string         `json:"status,omitempty" db:"status,omitempty"`
	ConsentExpiresAt sql.NullString `json:"consent_expires_at,omitempty" db:"consent_expires_at,omitempty"`
	CreatedAt        sql.NullString `json:"created_at,omitempty" db:"created_at,omitempty"`
	UpdatedAt        sql.NullString `json:"updated_at,omitempty" db:"updated_at,omitempty"`
}
