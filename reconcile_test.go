package registrar

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func ledgerX() []Transaction {
	return []Transaction{
		tx("1", "S1", "X", IPO, 1000, "2024-01-01"),
		tx("2", "S1", "X", TransferDebit, 300, "2024-02-01"),
		tx("3", "S2", "X", TransferCredit, 300, "2024-02-01"),
		tx("4", "S1", "X", DWACWithdrawal, -150, "2024-03-01"),
		tx("5", "S3", "Y", IPO, 40, "2024-01-15"),
		withLabel(tx("6", "S3", "Y", IPO, 15, "2024-01-20"), "Withdrawal"),
	}
}

func TestBalances_Scenarios(t *testing.T) {
	r := NewReconciler(nil)
	txs := []Transaction{
		tx("1", "S", "X", IPO, 1000, "2024-01-01"),
		tx("2", "S", "X", TransferDebit, 300, "2024-01-02"),
	}
	if got := r.Balances(txs, ByCUSIP).Outstanding(Key{CUSIP: "X"}); !got.Equal(Q(700)) {
		t.Errorf("outstanding after IPO and transfer debit = %v, want 700", got)
	}

	txs = append(txs, tx("3", "S", "X", DWACWithdrawal, -150, "2024-01-03"))
	if got := r.Balances(txs, ByCUSIP).Outstanding(Key{CUSIP: "X"}); !got.Equal(Q(550)) {
		t.Errorf("outstanding after negative DWAC withdrawal = %v, want 550", got)
	}
}

func TestBalances_Keys(t *testing.T) {
	r := NewReconciler(nil)
	txs := ledgerX()

	byCUSIP := r.Balances(txs, ByCUSIP)
	want := []Balance{
		{Key: Key{CUSIP: "X"}, Outstanding: Q(850), Credits: Q(1300), Debits: Q(450), Count: 4},
		{Key: Key{CUSIP: "Y"}, Outstanding: Q(25), Credits: Q(40), Debits: Q(15), Count: 2},
	}
	if diff := cmp.Diff(want, slices.Collect(byCUSIP.All()), cmpOpts); diff != "" {
		t.Errorf("Balances(ByCUSIP) mismatch (-want +got):\n%s", diff)
	}

	byPosition := r.Balances(txs, ByPosition)
	wantPos := map[Key]Quantity{
		{CUSIP: "X", ShareholderID: "S1"}: Q(550),
		{CUSIP: "X", ShareholderID: "S2"}: Q(300),
		{CUSIP: "Y", ShareholderID: "S3"}: Q(25),
	}
	if byPosition.Len() != len(wantPos) {
		t.Fatalf("Balances(ByPosition).Len() = %d, want %d", byPosition.Len(), len(wantPos))
	}
	for k, q := range wantPos {
		if got := byPosition.Outstanding(k); !got.Equal(q) {
			t.Errorf("Outstanding(%v) = %v, want %v", k, got, q)
		}
	}
	if _, ok := byPosition.Get(Key{CUSIP: "Z"}); ok {
		t.Error("Get() of an unobserved key should fail")
	}
	if got := byPosition.Total(); !got.Equal(Q(875)) {
		t.Errorf("Total() = %v, want 875", got)
	}
	if len(byPosition.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", byPosition.Warnings)
	}
}

func TestBalances_Commutative(t *testing.T) {
	r := NewReconciler(nil)
	txs := ledgerX()
	want := slices.Collect(r.Balances(txs, ByPosition).All())

	rnd := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		shuffled := slices.Clone(txs)
		rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := slices.Collect(r.Balances(shuffled, ByPosition).All())
		if diff := cmp.Diff(want, got, cmpOpts); diff != "" {
			t.Fatalf("permutation %d changed the balances (-want +got):\n%s", i, diff)
		}
	}
}

func TestBalances_Idempotent(t *testing.T) {
	r := NewReconciler(nil)
	txs := ledgerX()
	before := slices.Clone(txs)

	first := slices.Collect(r.Balances(txs, ByPosition).All())
	second := slices.Collect(r.Balances(txs, ByPosition).All())
	if diff := cmp.Diff(first, second, cmpOpts); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(before, txs, cmpOpts); diff != "" {
		t.Errorf("input was modified (-before +after):\n%s", diff)
	}
}

func TestBalances_Empty(t *testing.T) {
	r := NewReconciler(nil)
	if b := r.Balances(nil, ByCUSIP); b.Len() != 0 || len(b.Warnings) != 0 {
		t.Errorf("Balances(nil) = %d keys, %v warnings", b.Len(), b.Warnings)
	}
	if rt := r.RunningTotals(nil, ByCUSIP); rt.Len() != 0 || rt.MissingDates != 0 {
		t.Errorf("RunningTotals(nil) = %d rows, %d missing dates", rt.Len(), rt.MissingDates)
	}
	if rows, _ := r.Ledger(nil, ByCUSIP); len(rows) != 0 {
		t.Errorf("Ledger(nil) = %d rows", len(rows))
	}
}

func TestBalances_Negative(t *testing.T) {
	r := NewReconciler(nil)
	b := r.Balances([]Transaction{
		tx("1", "S", "X", IPO, 100, "2024-01-01"),
		tx("2", "S", "X", TransferDebit, 250, "2024-01-02"),
	}, ByCUSIP)

	if got := b.Outstanding(Key{CUSIP: "X"}); !got.Equal(Q(-150)) {
		t.Errorf("Outstanding() = %v, want -150 (not clamped)", got)
	}
	if n := len(slices.Collect(b.Negative())); n != 1 {
		t.Errorf("Negative() returned %d balances, want 1", n)
	}
	if n := b.Warnings.Count(WarnNegativeBalance); n != 1 {
		t.Errorf("%s warnings = %d, want 1", WarnNegativeBalance, n)
	}
}

func TestBalances_DataQuality(t *testing.T) {
	bad := tx("2", "S", "X", IPO, 0, "2024-01-02")
	bad.SetQuantity("12 shares")
	r := NewReconciler(nil)
	b := r.Balances([]Transaction{
		tx("1", "S", "X", IPO, 100, "2024-01-01"),
		bad,
		tx("3", "S", "X", "Gift", 5, "2024-01-03"),
	}, ByCUSIP)

	if got := b.Outstanding(Key{CUSIP: "X"}); !got.Equal(Q(105)) {
		t.Errorf("Outstanding() = %v, want 105", got)
	}
	if n := b.Warnings.Count(WarnMalformedQuantity); n != 1 {
		t.Errorf("%s warnings = %d, want 1", WarnMalformedQuantity, n)
	}
	if n := b.Warnings.Count(WarnUnknownType); n != 1 {
		t.Errorf("%s warnings = %d, want 1", WarnUnknownType, n)
	}
}

func TestBalances_NilKeyFunc(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Balances(nil KeyFunc) should panic")
		}
	}()
	NewReconciler(nil).Balances(ledgerX(), nil)
}

func TestRunningTotals(t *testing.T) {
	r := NewReconciler(nil)
	txs := []Transaction{
		tx("4", "S1", "X", TransferDebit, 100, "2024-02-01"),
		tx("1", "S1", "X", IPO, 1000, "2024-01-01"),
		tx("2", "S2", "X", TransferCredit, 60, "2024-02-01"),
		tx("3", "S2", "X", TransferCredit, 40, "2024-02-01"),
		tx("5", "S1", "Y", IPO, 10, "2024-01-05"),
	}
	rt := r.RunningTotals(txs, ByCUSIP)

	want := []RunningRow{
		{Key: Key{CUSIP: "X"}, Date: D("2024-01-01"), Type: IPO, Count: 1, Net: Q(1000), Running: Q(1000)},
		{Key: Key{CUSIP: "X"}, Date: D("2024-02-01"), Type: TransferCredit, Count: 2, Net: Q(100), Running: Q(1100)},
		{Key: Key{CUSIP: "X"}, Date: D("2024-02-01"), Type: TransferDebit, Count: 1, Net: Q(-100), Running: Q(1000)},
		{Key: Key{CUSIP: "Y"}, Date: D("2024-01-05"), Type: IPO, Count: 1, Net: Q(10), Running: Q(10)},
	}
	if diff := cmp.Diff(want, slices.Collect(rt.All()), cmpOpts); diff != "" {
		t.Errorf("RunningTotals() mismatch (-want +got):\n%s", diff)
	}
	// The sequence is restartable.
	if diff := cmp.Diff(want, slices.Collect(rt.All()), cmpOpts); diff != "" {
		t.Errorf("second iteration mismatch (-want +got):\n%s", diff)
	}

	// The last running total of each key is its outstanding balance.
	balances := r.Balances(txs, ByCUSIP)
	last := make(map[Key]Quantity)
	for row := range rt.All() {
		last[row.Key] = row.Running
	}
	for b := range balances.All() {
		if !last[b.Key].Equal(b.Outstanding) {
			t.Errorf("final running total of %v = %v, outstanding = %v", b.Key, last[b.Key], b.Outstanding)
		}
	}
}

func TestRunningTotals_MissingDates(t *testing.T) {
	r := NewReconciler(nil)
	rt := r.RunningTotals([]Transaction{
		tx("1", "S", "X", IPO, 100, "2024-01-01"),
		tx("2", "S", "X", IPO, 5, ""),
	}, ByCUSIP)

	if rt.MissingDates != 1 {
		t.Errorf("MissingDates = %d, want 1", rt.MissingDates)
	}
	if n := rt.Warnings.Count(WarnMissingDate); n != 1 {
		t.Errorf("%s warnings = %d, want 1", WarnMissingDate, n)
	}
	rows := slices.Collect(rt.All())
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if !rows[0].Date.IsZero() || !rows[0].Running.Equal(Q(5)) {
		t.Errorf("undated period should come first, got %+v", rows[0])
	}
	if !rows[1].Running.Equal(Q(105)) {
		t.Errorf("final running total = %v, want 105", rows[1].Running)
	}
}

func TestLedger(t *testing.T) {
	r := NewReconciler(nil)
	early := tx("b", "S", "X", TransferDebit, 30, "2024-01-01")
	early.CreatedAt = early.CreatedAt.Add(-time.Hour) // same day, created before "a"
	rows, ws := r.Ledger([]Transaction{
		tx("c", "S", "X", IPO, 10, "2024-01-02"),
		tx("a", "S", "X", IPO, 100, "2024-01-01"),
		early,
	}, ByPosition)

	if len(ws) != 0 {
		t.Errorf("unexpected warnings: %v", ws)
	}
	var ids []string
	var running []string
	for _, row := range rows {
		ids = append(ids, row.Transaction.ID)
		running = append(running, row.Running.String())
	}
	if diff := cmp.Diff([]string{"b", "a", "c"}, ids); diff != "" {
		t.Errorf("Ledger() order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-30", "70", "80"}, running); diff != "" {
		t.Errorf("Ledger() running totals mismatch (-want +got):\n%s", diff)
	}
}

func TestParseKeyFunc(t *testing.T) {
	x := tx("1", "S", "X", IPO, 1, "2024-01-01")
	for name, want := range map[string]Key{"cusip": {CUSIP: "X"}, "position": {CUSIP: "X", ShareholderID: "S"}} {
		fn, ok := ParseKeyFunc(name)
		if !ok || fn(x) != want {
			t.Errorf("ParseKeyFunc(%q) gives %v, want %v", name, fn(x), want)
		}
	}
	if _, ok := ParseKeyFunc("issuer"); ok {
		t.Error("ParseKeyFunc(issuer) should fail")
	}
}
