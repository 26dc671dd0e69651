package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"lumen_banksync/internal/config"
	"lumen_banksync/internal/models"
	"lumen_banksync/pkg/utils"
)

const providerName = "gocardless"

// Upstream requisition status codes. LN is the only state that yields
// accounts; EX and RJ are terminal, everything else means the user has not
// finished the consent flow yet.
const (
	requisitionStatusLinked   = "LN"
	requisitionStatusExpired  = "EX"
	requisitionStatusRejected = "RJ"
)

// CreateRequisitionResult is handed back to the UI so it can redirect the
// user into the bank's consent flow.
type CreateRequisitionResult struct {
	RequisitionID string `json:"requisition_id"`
	Link          string `json:"link"`
}

// FinalizedAccount summarizes one account persisted during finalize. The ids
// double as the sync hint the UI uses to trigger an immediate first sync.
type FinalizedAccount struct {
	ID                int    `json:"id"`
	ProviderAccountID string `json:"provider_account_id"`
	Name              string `json:"name"`
	IBAN              string `json:"iban,omitempty"`
	Currency          string `json:"currency,omitempty"`
}

type FinalizeResult struct {
	Accounts []FinalizedAccount `json:"accounts"`
	SyncHint struct {
		AccountIDs []int  `json:"account_ids"`
		CreatedAt  string `json:"created_at"`
	} `json:"sync_hint"`
}

// RequisitionService owns the consent lifecycle: agreement + requisition
// creation, and finalizing a completed requisition into persisted accounts.
type RequisitionService struct {
	DB       *sql.DB
	Upstream *UpstreamClient
	Cfg      config.UpstreamConfig
}

func NewRequisitionService(db *sql.DB, upstream *UpstreamClient, cfg config.UpstreamConfig) *RequisitionService {
	return &RequisitionService{DB: db, Upstream: upstream, Cfg: cfg}
}

// CreateRequisition creates the end-user agreement and requisition upstream
// and records a pending ConnectedBank. Each upstream stage fails with its own
// error code so support can tell them apart.
func (r *RequisitionService) CreateRequisition(ctx context.Context, userID int, institutionID, redirectURL, bankName, correlationID string) (*CreateRequisitionResult, error) {
	if institutionID == "" || redirectURL == "" {
		return nil, NewAPIError(CodeMissingFields, "institution_id and redirect_url are required", correlationID, http.StatusBadRequest)
	}
	parsed, err := url.Parse(redirectURL)
	if err != nil || !parsed.IsAbs() {
		return nil, NewAPIError(CodeMissingFields, "redirect_url must be an absolute URL", correlationID, http.StatusBadRequest)
	}

	var agreement models.UpstreamAgreement
	err = r.Upstream.PostJSON(ctx, "/agreements/enduser/", map[string]interface{}{
		"institution_id":        institutionID,
		"max_historical_days":   r.Cfg.HistoricalDays,
		"access_valid_for_days": r.Cfg.ValidityDays,
		"access_scope":          []string{"balances", "details", "transactions"},
	}, &agreement, CodeUpstreamEUAError, correlationID)
	if err != nil {
		return nil, err
	}

	reference := uuid.NewString()
	var requisition models.UpstreamRequisition
	err = r.Upstream.PostJSON(ctx, "/requisitions/", map[string]interface{}{
		"redirect":       redirectURL,
		"institution_id": institutionID,
		"agreement":      agreement.ID,
		"reference":      reference,
	}, &requisition, CodeUpstreamReqError, correlationID)
	if err != nil {
		return nil, err
	}

	// The placeholder account ref keeps the (user, account_ref) key unique
	// until finalize fills in real accounts.
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO connected_banks (user_id, institution_id, bank_name, provider, link_id, account_ref, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, institutionID, bankName, providerName, requisition.ID, "pending-"+reference, models.BankStatusPending)
	if err != nil {
		return nil, NewAPIError(CodeDBUpsertFailed, "failed to persist bank connection", correlationID, http.StatusInternalServerError).WithCause(err)
	}

	utils.Logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"institution_id": institutionID,
		"requisition_id": requisition.ID,
		"correlationId":  correlationID,
	}).Info("requisition created")

	return &CreateRequisitionResult{RequisitionID: requisition.ID, Link: requisition.Link}, nil
}

// FinalizeRequisition resolves a completed consent flow: verifies the
// requisition belongs to the caller, checks its upstream status, then
// upserts one BankAccount per linked account. Not-linked and expired
// requisitions get distinct retryable codes so the UI can restart the flow.
func (r *RequisitionService) FinalizeRequisition(ctx context.Context, userID int, requisitionID, correlationID string) (*FinalizeResult, error) {
	if requisitionID == "" {
		return nil, NewAPIError(CodeMissingFields, "requisition_id is required", correlationID, http.StatusBadRequest)
	}

	var bank models.ConnectedBank
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, institution_id, bank_name, provider FROM connected_banks
		WHERE link_id = ? AND user_id = ?`, requisitionID, userID).
		Scan(&bank.ID, &bank.InstitutionID, &bank.BankName, &bank.Provider)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, NewAPIError(CodeRequisitionNotFound, "no bank connection matches this requisition", correlationID, http.StatusNotFound)
		}
		return nil, utils.ErrorHandler(err, "failed to look up bank connection")
	}

	var requisition models.UpstreamRequisition
	path := fmt.Sprintf("/requisitions/%s/", url.PathEscape(requisitionID))
	if err := r.Upstream.GetJSON(ctx, path, &requisition, CodeUpstreamReqError, correlationID); err != nil {
		return nil, err
	}

	switch requisition.Status {
	case requisitionStatusLinked:
		// proceed
	case requisitionStatusExpired:
		r.markBankStatus(ctx, bank.ID, models.BankStatusExpired)
		return nil, NewAPIError(CodeRequisitionExpired, "consent has expired, restart the bank connection", correlationID, http.StatusConflict)
	case requisitionStatusRejected:
		r.markBankStatus(ctx, bank.ID, models.BankStatusRejected)
		return nil, NewAPIError(CodeRequisitionExpired, "consent was rejected, restart the bank connection", correlationID, http.StatusConflict)
	default:
		return nil, NewAPIError(CodeRequisitionNotLinked, "consent flow not completed yet", correlationID, http.StatusConflict).
			WithDetails(map[string]interface{}{"status": requisition.Status})
	}

	consentExpiry := time.Now().UTC().AddDate(0, 0, r.Cfg.ValidityDays).Format(timeLayout)
	_, err = r.DB.ExecContext(ctx, `
		UPDATE connected_banks
		SET status = ?, consent_expires_at = ?
		WHERE id = ?`, models.BankStatusActive, consentExpiry, bank.ID)
	if err != nil {
		return nil, NewAPIError(CodeDBUpsertFailed, "failed to activate bank connection", correlationID, http.StatusInternalServerError).WithCause(err)
	}

	result := &FinalizeResult{}
	for _, accountID := range requisition.Accounts {
		acct, err := r.upsertAccount(ctx, userID, bank, accountID, correlationID)
		if err != nil {
			// One broken account must not lose the rest of the link.
			utils.Logger.WithError(err).WithFields(logrus.Fields{
				"provider_account_id": accountID,
				"correlationId":       correlationID,
			}).Error("failed to persist linked account")
			continue
		}
		result.Accounts = append(result.Accounts, *acct)
		result.SyncHint.AccountIDs = append(result.SyncHint.AccountIDs, acct.ID)
	}
	result.SyncHint.CreatedAt = time.Now().UTC().Format(timeLayout)

	utils.Logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"requisition_id": requisitionID,
		"accounts":       len(result.Accounts),
		"correlationId":  correlationID,
	}).Info("requisition finalized")

	return result, nil
}

func (r *RequisitionService) upsertAccount(ctx context.Context, userID int, bank models.ConnectedBank, providerAccountID, correlationID string) (*FinalizedAccount, error) {
	var meta models.UpstreamAccountMeta
	metaPath := fmt.Sprintf("/accounts/%s/", url.PathEscape(providerAccountID))
	if err := r.Upstream.GetJSON(ctx, metaPath, &meta, CodeUpstreamAccountError, correlationID); err != nil {
		return nil, err
	}

	var details models.UpstreamAccountDetails
	detailsPath := fmt.Sprintf("/accounts/%s/details/", url.PathEscape(providerAccountID))
	if err := r.Upstream.GetJSON(ctx, detailsPath, &details, CodeUpstreamAccountError, correlationID); err != nil {
		return nil, err
	}

	name := details.Account.Name
	if name == "" {
		name = details.Account.Product
	}
	if name == "" {
		name = bank.BankName
	}
	iban := details.Account.IBAN
	if iban == "" {
		iban = meta.IBAN
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO bank_accounts
			(user_id, connected_bank_id, provider, provider_account_id, name, iban, currency, account_type, is_selected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON DUPLICATE KEY UPDATE
			connected_bank_id = VALUES(connected_bank_id),
			name = VALUES(name),
			iban = VALUES(iban),
			currency = VALUES(currency),
			account_type = VALUES(account_type)`,
		userID, bank.ID, bank.Provider, providerAccountID, name, iban,
		details.Account.Currency, details.Account.CashAccountType)
	if err != nil {
		return nil, err
	}

	var id int
	err = r.DB.QueryRowContext(ctx, `
		SELECT id FROM bank_accounts
		WHERE user_id = ? AND provider = ? AND provider_account_id = ?`,
		userID, bank.Provider, providerAccountID).Scan(&id)
	if err != nil {
		return nil, err
	}

	return &FinalizedAccount{
		ID:                id,
		ProviderAccountID: providerAccountID,
		Name:              name,
		IBAN:              iban,
		Currency:          details.Account.Currency,
	}, nil
}

// ListInstitutions proxies the aggregator's institution directory for one
// country.
func (r *RequisitionService) ListInstitutions(ctx context.Context, country, correlationID string) ([]models.UpstreamInstitution, error) {
	if country == "" {
		return nil, NewAPIError(CodeMissingFields, "country is required", correlationID, http.StatusBadRequest)
	}

	var institutions []models.UpstreamInstitution
	path := "/institutions/?country=" + url.QueryEscape(country)
	if err := r.Upstream.GetJSON(ctx, path, &institutions, CodeUpstreamFetchError, correlationID); err != nil {
		return nil, err
	}
	return institutions, nil
}

// Disconnect removes a user's bank connection and its accounts. Transactions
// are kept; the bank_account_id FK nulls their account reference on delete so
// history outlives the link. Accounts go first: connected_banks is their FK
// parent.
func (r *RequisitionService) Disconnect(ctx context.Context, userID, connectedBankID int, correlationID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return utils.ErrorHandler(err, "failed to start disconnect transaction")
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM bank_accounts WHERE connected_bank_id = ? AND user_id = ?`, connectedBankID, userID)
	if err != nil {
		tx.Rollback()
		return NewAPIError(CodeDBUpsertFailed, "failed to remove bank accounts", correlationID, http.StatusInternalServerError).WithCause(err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM connected_banks WHERE id = ? AND user_id = ?`, connectedBankID, userID)
	if err != nil {
		tx.Rollback()
		return NewAPIError(CodeDBUpsertFailed, "failed to remove bank connection", correlationID, http.StatusInternalServerError).WithCause(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return utils.ErrorHandler(err, "failed to check disconnect result")
	}
	if affected == 0 {
		tx.Rollback()
		return NewAPIError(CodeMissingFields, "bank connection not found", correlationID, http.StatusNotFound)
	}

	if err := tx.Commit(); err != nil {
		return utils.ErrorHandler(err, "failed to commit disconnect")
	}
	return nil
}

func (r *RequisitionService) markBankStatus(ctx context.Context, bankID int, status string) {
	if _, err := r.DB.ExecContext(ctx, `UPDATE connected_banks SET status = ? WHERE id = ?`, status, bankID); err != nil {
		utils.Logger.WithError(err).WithField("bank_id", bankID).Error("failed to update bank status")
	}
}
