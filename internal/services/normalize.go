package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lumen_banksync/internal/models"
	"lumen_banksync/pkg/utils"
)

// NormalizeTransaction maps one raw upstream payload into the canonical
// shape. It is pure and never fails: a malformed amount becomes zero and a
// missing identifier is synthesized from the content so re-fetches of the
// same transaction still deduplicate.
func NormalizeTransaction(raw models.UpstreamTransaction, accountID, status string) models.NormalizedTransaction {
	date := raw.BookingDate
	if date == "" {
		date = raw.ValueDate
	}
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	amount, err := decimal.NewFromString(raw.TransactionAmount.Amount)
	if err != nil {
		if raw.TransactionAmount.Amount != "" {
			utils.Logger.Warnf("unparsable transaction amount %q, defaulting to 0", raw.TransactionAmount.Amount)
		}
		amount = decimal.Zero
	}

	description := pickDescription(raw)
	counterparty := raw.CreditorName
	if counterparty == "" {
		counterparty = raw.DebtorName
	}

	id := raw.TransactionID
	if id == "" {
		id = raw.InternalTransactionID
	}
	if id == "" {
		id = raw.EntryReference
	}
	if id == "" {
		id = contentHash(accountID, date, raw.TransactionAmount.Amount, raw.TransactionAmount.Currency, description)
	}

	return models.NormalizedTransaction{
		TransactionID: id,
		Date:          date,
		Amount:        amount,
		Currency:      raw.TransactionAmount.Currency,
		Description:   description,
		Counterparty:  counterparty,
		MCC:           raw.MerchantCategoryCode,
		Status:        status,
	}
}

func pickDescription(raw models.UpstreamTransaction) string {
	if raw.CardMerchantName != "" {
		return raw.CardMerchantName
	}
	if raw.RemittanceInformationUnstructured != "" {
		return raw.RemittanceInformationUnstructured
	}
	if s := joinRemittanceArray(raw.RemittanceInformationUnstructuredArray); s != "" {
		return s
	}
	if raw.RemittanceInformationStructured != "" {
		return raw.RemittanceInformationStructured
	}
	if raw.CreditorName != "" {
		return raw.CreditorName
	}
	if raw.DebtorName != "" {
		return raw.DebtorName
	}
	if raw.AdditionalInformation != "" {
		return raw.AdditionalInformation
	}
	return "Transaction"
}

// Some institutions send the unstructured remittance as an array of lines.
func joinRemittanceArray(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return ""
	}
	var parts []string
	for _, l := range lines {
		if trimmed := strings.TrimSpace(l); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

// contentHash gives unidentified transactions a stable synthetic id.
func contentHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "gen-" + hex.EncodeToString(sum[:16])
}

var (
	boilerplatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(card purchase|kortk[öo]p|korttransaktion|debit card purchase|pos purchase)\s*`),
		regexp.MustCompile(`(?i)^(betalning|payment to|payment from|overf[öo]ring|autogiro)\s*`),
		regexp.MustCompile(`(?i)^(vipps|swish|zettle_?)\s*[:*]?\s*`),
		regexp.MustCompile(`^\d{2}[-./]\d{2}(?:[-./]\d{2,4})?\s+`),
	}
	separatorNoise = regexp.MustCompile(`[*/|]+`)
	whitespaceRun  = regexp.MustCompile(`\s{2,}`)
)

// CleanDescription strips known bank boilerplate and separator noise from a
// display description. It never empties a description: anything under two
// characters after cleanup falls back to "Transaction".
func CleanDescription(s string) string {
	cleaned := strings.TrimSpace(s)
	for _, p := range boilerplatePatterns {
		cleaned = p.ReplaceAllString(cleaned, "")
	}
	cleaned = separatorNoise.ReplaceAllString(cleaned, " ")
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned) < 2 {
		return "Transaction"
	}
	return cleaned
}
