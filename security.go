package registrar

import "strings"

// Security is a class of shares issued by an issuer, identified by its CUSIP.
// Some classes have no CUSIP assigned yet, in which case CUSIP is empty.
type Security struct {
	CUSIP           string   `json:"cusip"`
	IssuerID        string   `json:"issuer_id,omitempty"`
	IssueName       string   `json:"issue_name"`
	ClassName       string   `json:"class_name,omitempty"`
	Ticker          string   `json:"ticker,omitempty"`
	TotalAuthorized Quantity `json:"total_authorized_shares"`
}

// MarshalJSON encodes the security with a stable field order.
func (s Security) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	s.writeJSON(&w)
	return w.MarshalJSON()
}

func (s Security) writeJSON(w *jsonObjectWriter) {
	w.Append("cusip", s.CUSIP)
	w.Optional("issuer_id", s.IssuerID)
	w.Append("issue_name", s.IssueName)
	w.Optional("class_name", s.ClassName)
	w.Optional("ticker", s.Ticker)
	w.Optional("total_authorized_shares", s.TotalAuthorized)
}

// Shareholder is a holder of record. It is reference data independent of
// the ledger.
type Shareholder struct {
	ID            string `json:"id"`
	IssuerID      string `json:"issuer_id,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	Email         string `json:"email,omitempty"`
	TaxID         string `json:"tax_id,omitempty"`
}

// Name returns the display name of the holder.
func (s Shareholder) Name() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}
