package registrar

import (
	"testing"

	"github.com/shopspring/decimal"
)

func statementBooks() *Books {
	b := NewBooks("ACME", "USD")
	b.AddSecurities(
		Security{CUSIP: "X", IssuerID: "ACME", IssueName: "ACME Common", ClassName: "Common"},
		Security{CUSIP: "Y", IssuerID: "ACME", IssueName: "ACME Preferred", ClassName: "Preferred"},
	)
	b.AddShareholders(Shareholder{ID: "S", FirstName: "Ada", LastName: "Lovelace"})
	b.AddTemplates(rule144)
	b.AddTransactions(
		restricted(tx("1", "S", "X", IPO, 200, "2024-01-01"), "R1"),
		tx("2", "S", "X", IPO, 800, "2024-01-01"),
		tx("3", "S", "X", TransferDebit, 100, "2024-06-01"),
		restricted(tx("4", "S", "X", IPO, 50, "2024-07-01"), "R1"),
		tx("5", "S", "Y", IPO, 10, "2024-01-01"),
		tx("6", "S", "Y", TransferDebit, 10, "2024-03-01"),
		tx("7", "T", "X", IPO, 999, "2024-01-01"),
	)
	b.AddRestrictions(ManualRestriction{ID: "m1", ShareholderID: "S", CUSIP: "X", RestrictionID: "R1", Shares: Q(25), Date: D("2024-08-01")})
	b.AddMarketValues(
		MarketValue{CUSIP: "X", Date: D("2024-01-01"), Price: decimal.NewFromFloat(1.5)},
		MarketValue{CUSIP: "X", Date: D("2024-06-15"), Price: decimal.NewFromInt(2)},
		MarketValue{CUSIP: "X", Date: D("2024-12-31"), Price: decimal.NewFromInt(3)},
	)
	return b
}

func TestStatement_AsOf(t *testing.T) {
	r := NewReconciler(nil)
	st := r.Statement(statementBooks(), "S", D("2024-06-30"))

	if st.Shareholder.Name() != "Ada Lovelace" {
		t.Errorf("Shareholder = %q, want Ada Lovelace", st.Shareholder.Name())
	}
	if len(st.Holdings) != 1 {
		t.Fatalf("got %d holdings, want 1 (Y is fully sold)", len(st.Holdings))
	}
	h := st.Holdings[0]
	if h.Security.IssueName != "ACME Common" {
		t.Errorf("Security = %+v", h.Security)
	}
	// Transaction 4 and the manual restriction are dated after the statement.
	if !h.Shares.Equal(Q(900)) {
		t.Errorf("Shares = %v, want 900", h.Shares)
	}
	if !h.Restricted.Equal(Q(200)) {
		t.Errorf("Restricted = %v, want 200", h.Restricted)
	}
	if !h.Unrestricted().Equal(Q(700)) {
		t.Errorf("Unrestricted() = %v, want 700", h.Unrestricted())
	}
	if !h.Priced || h.PriceDate != D("2024-06-15") {
		t.Errorf("price date = %v (priced %v), want 2024-06-15", h.PriceDate, h.Priced)
	}
	if want := M(1800, "USD"); !h.Value.Equal(want) || !st.TotalValue.Equal(want) {
		t.Errorf("Value = %v, TotalValue = %v, want %v", h.Value, st.TotalValue, want)
	}
	if len(st.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", st.Warnings)
	}
}

func TestStatement_Later(t *testing.T) {
	r := NewReconciler(nil)
	st := r.Statement(statementBooks(), "S", D("2025-01-01"))
	if len(st.Holdings) != 1 {
		t.Fatalf("got %d holdings, want 1", len(st.Holdings))
	}
	h := st.Holdings[0]
	if !h.Shares.Equal(Q(950)) || !h.Restricted.Equal(Q(275)) {
		t.Errorf("Shares = %v, Restricted = %v, want 950 and 275", h.Shares, h.Restricted)
	}
	if len(h.Restrictions) != 1 || h.Restrictions[0].Code != "A" || len(h.Restrictions[0].Sources) != 3 {
		t.Errorf("Restrictions = %+v", h.Restrictions)
	}
	if want := M(2850, "USD"); !st.TotalValue.Equal(want) {
		t.Errorf("TotalValue = %v, want %v", st.TotalValue, want)
	}
}

func TestStatement_Unpriced(t *testing.T) {
	r := NewReconciler(nil)
	b := statementBooks()
	b.AddTransactions(tx("8", "S", "Z", IPO, 5, "2024-01-01"))
	st := r.Statement(b, "S", D("2024-01-31"))

	var z *Holding
	for i := range st.Holdings {
		if st.Holdings[i].Security.CUSIP == "Z" {
			z = &st.Holdings[i]
		}
	}
	if z == nil {
		t.Fatal("missing holding of an unknown security")
	}
	if z.Priced || !z.Value.IsZero() {
		t.Errorf("unpriced holding has value %v", z.Value)
	}
	// X at 1.5 on 2024-01-01 and Y unpriced.
	if want := M(1500, "USD"); !st.TotalValue.Equal(want) {
		t.Errorf("TotalValue = %v, want %v", st.TotalValue, want)
	}
}

func TestStatement_MissingDate(t *testing.T) {
	r := NewReconciler(nil)
	b := NewBooks("ACME", "")
	b.AddTransactions(
		tx("1", "S", "X", IPO, 100, "2024-01-01"),
		tx("2", "S", "X", IPO, 50, ""),
	)
	st := r.Statement(b, "S", D("2024-12-31"))
	if len(st.Holdings) != 1 || !st.Holdings[0].Shares.Equal(Q(100)) {
		t.Errorf("Holdings = %+v, want 100 shares of X", st.Holdings)
	}
	if n := st.Warnings.Count(WarnMissingDate); n != 1 {
		t.Errorf("%s warnings = %d, want 1", WarnMissingDate, n)
	}
	if st.Shareholder.ID != "S" {
		t.Errorf("Shareholder.ID = %q, want S", st.Shareholder.ID)
	}
}

func TestStatement_Empty(t *testing.T) {
	st := NewReconciler(nil).Statement(statementBooks(), "nobody", D("2024-12-31"))
	if len(st.Holdings) != 0 || !st.TotalValue.IsZero() {
		t.Errorf("Statement(nobody) = %+v", st)
	}
}
