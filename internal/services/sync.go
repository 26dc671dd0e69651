package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lumen_banksync/internal/config"
	"lumen_banksync/internal/models"
	"lumen_banksync/pkg/utils"
)

const timeLayout = "2006-01-02 15:04:05"

// SyncResult reports one sync attempt. A cooldown no-op sets Skipped with
// Reason "cooldown" and Inserted zero.
type SyncResult struct {
	Inserted int    `json:"inserted"`
	Skipped  bool   `json:"skipped,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// SyncBatchResult aggregates a multi-account fan-out.
type SyncBatchResult struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// SyncService drives the per-account pipeline: cooldown gate, fetch,
// normalize, categorize, idempotent upsert, bookkeeping.
type SyncService struct {
	DB       *sql.DB
	Upstream *UpstreamClient
	Cfg      config.SyncConfig
}

func NewSyncService(db *sql.DB, upstream *UpstreamClient, cfg config.SyncConfig) *SyncService {
	return &SyncService{DB: db, Upstream: upstream, Cfg: cfg}
}

// SyncAccount runs one sync for a user's bank account. The cooldown gate is
// checked against the persisted row before any upstream call is made; it is
// the single source of truth for rate limiting.
func (s *SyncService) SyncAccount(ctx context.Context, userID, bankAccountID int, dateFrom, correlationID string) (SyncResult, error) {
	var acct models.BankAccount
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, provider_account_id, currency, next_allowed_sync_at
		FROM bank_accounts
		WHERE id = ? AND user_id = ?`, bankAccountID, userID).
		Scan(&acct.ID, &acct.ProviderAccountID, &acct.Currency, &acct.NextAllowedSyncAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return SyncResult{}, NewAPIError(CodeMissingFields, "bank account not found", correlationID, http.StatusNotFound)
		}
		return SyncResult{}, utils.ErrorHandler(err, "failed to load bank account")
	}

	now := time.Now().UTC()
	if remaining := CooldownRemaining(acct.NextAllowedSyncAt, now); remaining > 0 {
		utils.Logger.WithFields(logrus.Fields{
			"bank_account_id": bankAccountID,
			"remaining":       remaining.String(),
			"correlationId":   correlationID,
		}).Info("sync skipped, cooldown active")
		return SyncResult{Skipped: true, Reason: "cooldown"}, nil
	}

	if dateFrom == "" {
		dateFrom = now.AddDate(0, 0, -s.Cfg.DateWindowDays).Format("2006-01-02")
	}
	dateTo := now.Format("2006-01-02")

	var list models.UpstreamTransactionList
	path := fmt.Sprintf("/accounts/%s/transactions/?date_from=%s&date_to=%s",
		url.PathEscape(acct.ProviderAccountID), url.QueryEscape(dateFrom), url.QueryEscape(dateTo))
	if err := s.Upstream.GetJSON(ctx, path, &list, CodeUpstreamFetchError, correlationID); err != nil {
		s.recordSyncStatus(ctx, bankAccountID, "error", false)
		return SyncResult{}, err
	}

	rules, err := s.loadUserRules(ctx, userID)
	if err != nil {
		utils.Logger.WithError(err).Warn("failed to load user category rules, continuing without them")
		rules = nil
	}

	var normalized []models.NormalizedTransaction
	for _, raw := range list.Transactions.Booked {
		normalized = append(normalized, NormalizeTransaction(raw, acct.ProviderAccountID, models.TransactionStatusBooked))
	}
	for _, raw := range list.Transactions.Pending {
		normalized = append(normalized, NormalizeTransaction(raw, acct.ProviderAccountID, models.TransactionStatusPending))
	}

	inserted, err := s.upsertTransactions(ctx, userID, bankAccountID, normalized, rules)
	if err != nil {
		s.recordSyncStatus(ctx, bankAccountID, "error", false)
		return SyncResult{}, NewAPIError(CodeDBUpsertFailed, "failed to persist transactions", correlationID, http.StatusInternalServerError).WithCause(err)
	}

	s.recordSyncStatus(ctx, bankAccountID, "success", true)

	utils.Logger.WithFields(logrus.Fields{
		"bank_account_id": bankAccountID,
		"fetched":         len(normalized),
		"inserted":        inserted,
		"correlationId":   correlationID,
	}).Info("account sync completed")

	return SyncResult{Inserted: inserted}, nil
}

// SyncAllAccounts serializes the fan-out over the user's selected accounts
// with a short inter-account pause, collecting counts instead of aborting on
// the first failure.
func (s *SyncService) SyncAllAccounts(ctx context.Context, userID int, correlationID string) (SyncBatchResult, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id FROM bank_accounts
		WHERE user_id = ? AND is_selected = 1
		ORDER BY id`, userID)
	if err != nil {
		return SyncBatchResult{}, utils.ErrorHandler(err, "failed to list accounts for sync")
	}
	defer rows.Close()

	var accountIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return SyncBatchResult{}, utils.ErrorHandler(err, "failed to scan account id")
		}
		accountIDs = append(accountIDs, id)
	}
	if err := rows.Err(); err != nil {
		return SyncBatchResult{}, utils.ErrorHandler(err, "failed to iterate accounts")
	}

	var result SyncBatchResult
	for i, id := range accountIDs {
		if i > 0 {
			select {
			case <-time.After(s.Cfg.InterAccountDelay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}

		res, err := s.SyncAccount(ctx, userID, id, "", correlationID)
		switch {
		case err != nil:
			result.Failed++
			utils.Logger.WithError(err).WithField("bank_account_id", id).Error("account sync failed during fan-out")
		case res.Skipped:
			result.Skipped++
		default:
			result.Completed++
		}
	}

	return result, nil
}

// CooldownRemaining reports how long until the account may sync again. Zero
// means the gate is open. Unparsable timestamps open the gate rather than
// wedging the account shut.
func CooldownRemaining(nextAllowed sql.NullString, now time.Time) time.Duration {
	if !nextAllowed.Valid || nextAllowed.String == "" {
		return 0
	}
	next, err := time.Parse(timeLayout, nextAllowed.String)
	if err != nil {
		return 0
	}
	if remaining := next.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

func (s *SyncService) loadUserRules(ctx context.Context, userID int) ([]models.CategoryRule, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, match_type, pattern, amount_min, amount_max, currency, category, priority
		FROM category_rules
		WHERE user_id = ?
		ORDER BY priority ASC, created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.CategoryRule
	for rows.Next() {
		var r models.CategoryRule
		if err := rows.Scan(&r.ID, &r.MatchType, &r.Pattern, &r.AmountMin, &r.AmountMax, &r.Currency, &r.Category, &r.Priority); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// upsertTransactions writes the batch with INSERT IGNORE on the unique
// (user_id, bank_account_id, transaction_id) key, so re-synced rows and any
// user-edited categories are left untouched.
func (s *SyncService) upsertTransactions(ctx context.Context, userID, bankAccountID int, txs []models.NormalizedTransaction, rules []models.CategoryRule) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	var placeholders []string
	var args []interface{}
	for _, tx := range txs {
		category := Categorize(tx, CategorizeOptions{UserRules: rules})
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, userID, bankAccountID, tx.TransactionID, tx.Date, tx.Amount, tx.Currency,
			CleanDescription(tx.Description), tx.Counterparty, category, tx.Status)
	}

	query := `
		INSERT IGNORE INTO transactions
			(user_id, bank_account_id, transaction_id, date, amount, currency, description, counterparty, category, status)
		VALUES ` + strings.Join(placeholders, ", ")

	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// recordSyncStatus updates bookkeeping after an attempt. The cooldown only
// advances on success so a transient failure stays retryable.
func (s *SyncService) recordSyncStatus(ctx context.Context, bankAccountID int, status string, advanceCooldown bool) {
	now := time.Now().UTC()
	var err error
	if advanceCooldown {
		next := now.Add(s.Cfg.Cooldown)
		_, err = s.DB.ExecContext(ctx, `
			UPDATE bank_accounts
			SET last_sync_at = ?, next_allowed_sync_at = ?, last_sync_status = ?
			WHERE id = ?`, now.Format(timeLayout), next.Format(timeLayout), status, bankAccountID)
	} else {
		_, err = s.DB.ExecContext(ctx, `
			UPDATE bank_accounts
			SET last_sync_at = ?, last_sync_status = ?
			WHERE id = ?`, now.Format(timeLayout), status, bankAccountID)
	}
	if err != nil {
		utils.Logger.WithError(err).WithField("bank_account_id", bankAccountID).Error("failed to update sync bookkeeping")
	}
}
