package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := &Config{
		DB:         "registrar.db",
		Currency:   "USD",
		LogLevel:   "info",
		Cache:      CacheConfig{TTL: 5 * time.Minute},
		Classifier: ClassifierConfig{Unknown: "fail-open"},
		Prices:     PricesConfig{Path: "$.last"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "registrar.yaml", `
db: books.db
issuer: FILE
log_level: debug
cache:
  ttl: 1m
classifier:
  unknown: exclude
prices:
  url: http://quotes/{cusip}
`)
	write(t, dir, ".env", "REGISTRAR_CURRENCY=EUR\nREGISTRAR_ISSUER=DOTENV\n")
	t.Setenv("REGISTRAR_ISSUER", "ENV")
	t.Cleanup(func() { os.Unsetenv("REGISTRAR_CURRENCY") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := &Config{
		DB:         "books.db",
		Issuer:     "ENV", // environment wins over .env and the file
		Currency:   "EUR", // from .env
		LogLevel:   "debug",
		Cache:      CacheConfig{TTL: time.Minute},
		Classifier: ClassifierConfig{Unknown: "exclude"},
		Prices:     PricesConfig{URL: "http://quotes/{cusip}", Path: "$.last"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"policy": "classifier:\n  unknown: maybe\n",
		"yaml":   "db: [unterminated\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(write(t, dir, name+".yaml", content)); err == nil {
				t.Errorf("Load() should fail on %q", content)
			}
		})
	}
}
