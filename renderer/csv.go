package renderer

import (
	"fmt"
	"io"

	"github.com/etnz/registrar"
	"github.com/gocarina/gocsv"
)

type balanceRecord struct {
	CUSIP         string `csv:"cusip"`
	ShareholderID string `csv:"shareholder_id"`
	Credits       string `csv:"credits"`
	Debits        string `csv:"debits"`
	Outstanding   string `csv:"outstanding"`
	Count         int    `csv:"transactions"`
}

type runningRecord struct {
	CUSIP         string `csv:"cusip"`
	ShareholderID string `csv:"shareholder_id"`
	Date          string `csv:"date"`
	Type          string `csv:"transaction_type"`
	Count         int    `csv:"transactions"`
	Net           string `csv:"net"`
	Running       string `csv:"running"`
}

type restrictionRecord struct {
	CUSIP         string `csv:"cusip"`
	ShareholderID string `csv:"shareholder_id"`
	RestrictionID string `csv:"restriction_id"`
	Code          string `csv:"restriction_type"`
	Name          string `csv:"restriction_name"`
	Shares        string `csv:"restricted_shares"`
	Legend        string `csv:"description"`
}

type holdingRecord struct {
	CUSIP        string `csv:"cusip"`
	IssueName    string `csv:"issue_name"`
	Shares       string `csv:"shares"`
	Restricted   string `csv:"restricted_shares"`
	Unrestricted string `csv:"unrestricted_shares"`
	PriceDate    string `csv:"price_date"`
	Price        string `csv:"price"`
	Value        string `csv:"value"`
}

// WriteBalancesCSV writes one line per balance.
func WriteBalancesCSV(w io.Writer, b *registrar.Balances) error {
	records := make([]*balanceRecord, 0, b.Len())
	for bal := range b.All() {
		records = append(records, &balanceRecord{
			CUSIP:         bal.Key.CUSIP,
			ShareholderID: bal.Key.ShareholderID,
			Credits:       bal.Credits.String(),
			Debits:        bal.Debits.String(),
			Outstanding:   bal.Outstanding.String(),
			Count:         bal.Count,
		})
	}
	return writeCSV(w, "balances", records)
}

// WriteRunningCSV writes one line per running total period.
func WriteRunningCSV(w io.Writer, rt *registrar.RunningTotals) error {
	records := make([]*runningRecord, 0, rt.Len())
	for row := range rt.All() {
		records = append(records, &runningRecord{
			CUSIP:         row.Key.CUSIP,
			ShareholderID: row.Key.ShareholderID,
			Date:          row.Date.String(),
			Type:          string(row.Type),
			Count:         row.Count,
			Net:           row.Net.String(),
			Running:       row.Running.String(),
		})
	}
	return writeCSV(w, "running totals", records)
}

// WriteRestrictionsCSV writes one line per restriction of each position.
func WriteRestrictionsCSV(w io.Writer, book []registrar.PositionRestrictions) error {
	var records []*restrictionRecord
	for _, p := range book {
		for _, r := range p.Restrictions {
			records = append(records, &restrictionRecord{
				CUSIP:         p.Key.CUSIP,
				ShareholderID: p.Key.ShareholderID,
				RestrictionID: r.RestrictionID,
				Code:          r.Code,
				Name:          r.Name,
				Shares:        r.Shares.String(),
				Legend:        r.Legend,
			})
		}
	}
	return writeCSV(w, "restrictions", records)
}

// WriteStatementCSV writes one line per holding of st. Money columns are
// plain decimals in the statement currency.
func WriteStatementCSV(w io.Writer, st *registrar.Statement) error {
	records := make([]*holdingRecord, 0, len(st.Holdings))
	for _, h := range st.Holdings {
		rec := &holdingRecord{
			CUSIP:        h.Security.CUSIP,
			IssueName:    h.Security.IssueName,
			Shares:       h.Shares.String(),
			Restricted:   h.Restricted.String(),
			Unrestricted: h.Unrestricted().String(),
		}
		if h.Priced {
			rec.PriceDate = h.PriceDate.String()
			rec.Price = h.Price.Decimal().String()
			rec.Value = h.Value.Decimal().String()
		}
		records = append(records, rec)
	}
	return writeCSV(w, "statement", records)
}

func writeCSV[T any](w io.Writer, what string, records []*T) error {
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("failed to write %s as CSV: %w", what, err)
	}
	return nil
}
