package cmd

import (
	"bytes"
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
)

const acme = `{"kind":"books","issuer":"ACME","currency":"USD"}
{"kind":"security","cusip":"X","issuer_id":"ACME","issue_name":"ACME Common"}
{"kind":"shareholder","id":"S","issuer_id":"ACME","first_name":"Ada","last_name":"Lovelace"}
{"kind":"template","id":"R1","restriction_type":"A","restriction_name":"Rule 144","description":"NOT REGISTERED","is_active":true}
{"kind":"transaction","id":"t2","shareholder_id":"S","cusip":"X","transaction_type":"Transfer Debit","share_quantity":300,"transaction_date":"2024-02-01"}
{"kind":"transaction","id":"t1","shareholder_id":"S","cusip":"X","transaction_type":"IPO","share_quantity":1000,"restriction_id":"R1","transaction_date":"2024-01-01"}
{"kind":"restriction","id":"m1","shareholder_id":"S","cusip":"X","restriction_id":"R1","restricted_shares":50,"restriction_date":"2024-01-05"}
{"kind":"price","cusip":"X","date":"2024-01-31","price":1.5}
`

// setup writes the acme books in a temp dir and points the global flags at
// it, restoring them at the end of the test.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "acme.jsonl")
	if err := os.WriteFile(file, []byte(acme), 0o644); err != nil {
		t.Fatal(err)
	}
	saved := [...]string{*configFile, *booksFile, *dbFile, *issuer, *logLevel}
	savedRaw := *raw
	t.Cleanup(func() {
		*configFile, *booksFile, *dbFile, *issuer, *logLevel = saved[0], saved[1], saved[2], saved[3], saved[4]
		*raw = savedRaw
	})
	*configFile = filepath.Join(dir, "registrar.yaml")
	*booksFile = file
	*dbFile = filepath.Join(dir, "registrar.db")
	*issuer = ""
	*logLevel = "error"
	*raw = true
	return file
}

func run(t *testing.T, args ...string) (string, subcommands.ExitStatus) {
	t.Helper()
	var out bytes.Buffer
	stdout = &out
	t.Cleanup(func() { stdout = os.Stdout })

	fs := flag.NewFlagSet("ta", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	c := subcommands.NewCommander(fs, "ta")
	Register(c)
	status := c.Execute(context.Background())
	return out.String(), status
}

func assertOutput(t *testing.T, got string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("output does not contain %q:\n%s", w, got)
		}
	}
}

func TestBalancesCmd(t *testing.T) {
	setup(t)
	out, status := run(t, "balances")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	assertOutput(t, out, "# Outstanding balances of ACME", "| X | 1000 | 300 | 700 | 2 |")

	out, _ = run(t, "balances", "-by", "position")
	assertOutput(t, out, "| X | S | 1000 | 300 | 700 | 2 |")

	if _, status := run(t, "balances", "-by", "month"); status != subcommands.ExitUsageError {
		t.Errorf("invalid -by: status = %v, want usage error", status)
	}
}

func TestStatementCmd(t *testing.T) {
	setup(t)
	out, status := run(t, "statement", "-holder", "S", "-d", "2024-12-31")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	assertOutput(t, out,
		"# Statement of Ada Lovelace",
		"| X | ACME Common | 700 | 1050 | -350 | $1.50 | $1,050.00 |",
		"NOT REGISTERED",
	)

	if _, status := run(t, "statement"); status != subcommands.ExitUsageError {
		t.Errorf("missing holder: status = %v, want usage error", status)
	}
	if _, status := run(t, "statement", "-holder", "S", "-d", "yesterday"); status != subcommands.ExitUsageError {
		t.Errorf("bad date: status = %v, want usage error", status)
	}
}

func TestExportCmd(t *testing.T) {
	setup(t)
	out, status := run(t, "export", "-what", "balances")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	assertOutput(t, out,
		"cusip,shareholder_id,credits,debits,outstanding,transactions\n",
		"X,,1000,300,700,2\n",
	)

	out, _ = run(t, "export", "-what", "restrictions")
	assertOutput(t, out, "X,S,R1,A,Rule 144,1050,NOT REGISTERED\n")

	if _, status := run(t, "export", "-what", "statement"); status != subcommands.ExitUsageError {
		t.Errorf("statement without holder: status = %v, want usage error", status)
	}
	if _, status := run(t, "export", "-what", "gains"); status != subcommands.ExitUsageError {
		t.Errorf("unknown report: status = %v, want usage error", status)
	}
}

func TestFmtCmd(t *testing.T) {
	file := setup(t)
	out, status := run(t, "fmt", file)
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[0], `{"kind":"books"`) {
		t.Errorf("first line = %s, want the header", lines[0])
	}
	if strings.Index(out, `"id":"t1"`) > strings.Index(out, `"id":"t2"`) {
		t.Errorf("transactions are not in date order:\n%s", out)
	}

	if _, status := run(t, "fmt", "-w", file); status != subcommands.ExitSuccess {
		t.Fatalf("fmt -w: status = %v", status)
	}
	got, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != out {
		t.Errorf("fmt -w wrote:\n%s\nwant:\n%s", got, out)
	}
}

func TestImportCmd(t *testing.T) {
	file := setup(t)
	if _, status := run(t, "import", file); status != subcommands.ExitSuccess {
		t.Fatalf("import: status = %v", status)
	}

	*booksFile = ""
	*issuer = "ACME"
	out, status := run(t, "balances", "-by", "position")
	if status != subcommands.ExitSuccess {
		t.Fatalf("balances: status = %v", status)
	}
	assertOutput(t, out, "| X | S | 1000 | 300 | 700 | 2 |")

	// statements select the holder's rows up to their date
	out, _ = run(t, "statement", "-holder", "S", "-d", "2024-12-31")
	assertOutput(t, out, "| X | ACME Common | 700 | 1050 | -350 | $1.50 | $1,050.00 |")
	out, _ = run(t, "statement", "-holder", "S", "-d", "2024-01-02")
	assertOutput(t, out, "| X | ACME Common | 1000 | 1000 | 0 | n/a | n/a |")

	out, _ = run(t, "restrictions", "-holder", "S", "-cusip", "X")
	assertOutput(t, out, "| R1 | A | Rule 144 | 1050 |")

	// a second import of the same file replaces the rows
	if _, status := run(t, "import", file); status != subcommands.ExitSuccess {
		t.Fatalf("second import: status = %v", status)
	}
	out, _ = run(t, "balances")
	assertOutput(t, out, "| X | 1000 | 300 | 700 | 2 |")

	*issuer = ""
	if _, status := run(t, "balances"); status != subcommands.ExitFailure {
		t.Errorf("database without issuer: status = %v, want failure", status)
	}
}

func TestFmtCmd_Currency(t *testing.T) {
	setup(t)
	dir := filepath.Dir(*configFile)
	if err := os.WriteFile(*configFile, []byte("currency: EUR\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "nocurrency.jsonl")
	if err := os.WriteFile(file, []byte(`{"kind":"books","issuer":"ACME"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, status := run(t, "fmt", file)
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	assertOutput(t, out, `{"kind":"books","issuer":"ACME","currency":"EUR"}`)
}

func TestTopicCmd(t *testing.T) {
	setup(t)
	out, status := run(t, "topic", "-l")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	assertOutput(t, out, "| readme | ta documentation |", "| statement |")

	if _, status := run(t, "topic", "nope"); status != subcommands.ExitFailure {
		t.Errorf("unknown topic: status = %v, want failure", status)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
