package renderer

import (
	"slices"

	"github.com/etnz/registrar"
)

// BalancesReport is the data behind the balances report.
type BalancesReport struct {
	Issuer   string
	ByHolder bool
	Rows     []registrar.Balance
	Total    registrar.Quantity
	Warnings registrar.Warnings
}

// NewBalancesReport prepares b for rendering. byHolder adds the holder column.
func NewBalancesReport(issuer string, b *registrar.Balances, byHolder bool) *BalancesReport {
	return &BalancesReport{
		Issuer:   issuer,
		ByHolder: byHolder,
		Rows:     slices.Collect(b.All()),
		Total:    b.Total(),
		Warnings: b.Warnings,
	}
}

// RunningReport is the data behind the running totals report.
type RunningReport struct {
	Issuer       string
	ByHolder     bool
	Rows         []registrar.RunningRow
	MissingDates int
	Warnings     registrar.Warnings
}

func NewRunningReport(issuer string, rt *registrar.RunningTotals, byHolder bool) *RunningReport {
	return &RunningReport{
		Issuer:       issuer,
		ByHolder:     byHolder,
		Rows:         slices.Collect(rt.All()),
		MissingDates: rt.MissingDates,
		Warnings:     rt.Warnings,
	}
}

// LedgerReport is the data behind the ledger report.
type LedgerReport struct {
	Issuer   string
	Rows     []registrar.LedgerRow
	Warnings registrar.Warnings
}

// RestrictionsReport is the data behind the restrictions report.
type RestrictionsReport struct {
	Issuer    string
	Positions []registrar.PositionRestrictions
	Warnings  registrar.Warnings
}

// StatementReport is the data behind a shareholder statement.
type StatementReport struct {
	Issuer string
	*registrar.Statement
}
