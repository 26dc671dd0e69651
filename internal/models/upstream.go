package models

import "encoding/json"

// Wire shapes of the open-banking aggregator API. Field coverage is limited
// to what the pipeline reads; unknown fields are ignored on decode.

type UpstreamTokenResponse struct {
	Access         string `json:"access"`
	AccessExpires  int    `json:"access_expires"`
	Refresh        string `json:"refresh"`
	RefreshExpires int    `json:"refresh_expires"`
}

type UpstreamAgreement struct {
	ID                 string   `json:"id"`
	InstitutionID      string   `json:"institution_id"`
	MaxHistoricalDays  int      `json:"max_historical_days"`
	AccessValidForDays int      `json:"access_valid_for_days"`
	AccessScope        []string `json:"access_scope"`
	Accepted           string   `json:"accepted"`
}

type UpstreamRequisition struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Link      string   `json:"link"`
	Accounts  []string `json:"accounts"`
	Agreement string   `json:"agreement"`
	Reference string   `json:"reference"`
}

type UpstreamInstitution struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	BIC                  string   `json:"bic"`
	TransactionTotalDays string   `json:"transaction_total_days"`
	Countries            []string `json:"countries"`
	Logo                 string   `json:"logo"`
}

type UpstreamAccountMeta struct {
	ID            string `json:"id"`
	Created       string `json:"created"`
	LastAccessed  string `json:"last_accessed"`
	IBAN          string `json:"iban"`
	InstitutionID string `json:"institution_id"`
	Status        string `json:"status"`
	OwnerName     string `json:"owner_name"`
}

type UpstreamAccountDetails struct {
	Account struct {
		ResourceID      string `json:"resourceId"`
		IBAN            string `json:"iban"`
		Currency        string `json:"currency"`
		Name            string `json:"name"`
		Product         string `json:"product"`
		CashAccountType string `json:"cashAccountType"`
		OwnerName       string `json:"ownerName"`
	} `json:"account"`
}

type UpstreamAmount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// UpstreamTransaction mirrors the berlin-group style transaction object.
// RemittanceInformationUnstructuredArray shows up instead of (or alongside)
// the scalar field at some institutions, hence the RawMessage.
type UpstreamTransaction struct {
	TransactionID                          string          `json:"transactionId"`
	InternalTransactionID                  string          `json:"internalTransactionId"`
	EntryReference                         string          `json:"entryReference"`
	BookingDate                            string          `json:"bookingDate"`
	ValueDate                              string          `json:"valueDate"`
	TransactionAmount                      UpstreamAmount  `json:"transactionAmount"`
	CreditorName                           string          `json:"creditorName"`
	DebtorName                             string          `json:"debtorName"`
	RemittanceInformationUnstructured      string          `json:"remittanceInformationUnstructured"`
	RemittanceInformationUnstructuredArray json.RawMessage `json:"remittanceInformationUnstructuredArray"`
	RemittanceInformationStructured        string          `json:"remittanceInformationStructured"`
	AdditionalInformation                  string          `json:"additionalInformation"`
	MerchantCategoryCode                   string          `json:"merchantCategoryCode"`
	CardMerchantName                       string          `json:"cardMerchantName"`
}

type UpstreamTransactionList struct {
	Transactions struct {
		Booked  []UpstreamTransaction `json:"booked"`
		Pending []UpstreamTransaction `json:"pending"`
	} `json:"transactions"`
}
