package models

import "database/sql"

// Match types for user-defined category rules. Lower priority value wins,
// creation time breaks ties.
const (
	RuleMatchTransactionID = "transaction_id"
	RuleMatchExact         = "exact"
	RuleMatchContains      = "contains"
	RuleMatchPrefix        = "prefix"
	RuleMatchSuffix        = "suffix"
	RuleMatchRegex         = "regex"
	RuleMatchAmount        = "amount"
	RuleMatchAmountRange   = "amount_range"
)

type CategoryRule struct {
	ID        int            `json:"id,omitempty" db:"id,omitempty"`
	UserID    int            `json:"user_id,omitempty" db:"user_id,omitempty"`
	MatchType string         `json:"match_type,omitempty" db:"match_type,omitempty"`
	Pattern   string         `json:"pattern,omitempty" db:"pattern,omitempty"`
	AmountMin sql.NullString `json:"amount_min,omitempty" db:"amount_min,omitempty"`
	AmountMax sql.NullString `json:"amount_max,omitempty" db:"amount_max,omitempty"`
	Currency  string         `json:"currency,omitempty" db:"currency,omitempty"`
	Category  string         `json:"category,omitempty" db:"category,omitempty"`
	Priority  int            `json:"priority" db:"priority"`
	CreatedAt sql.NullString `json:"created_at,omitempty" db:"created_at,omitempty"`
}
