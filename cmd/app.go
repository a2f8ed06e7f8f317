// Package cmd implements the ta command line application to reconcile the
// books of a transfer agent.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/etnz/registrar"
	"github.com/etnz/registrar/config"
	"github.com/etnz/registrar/store"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&balancesCmd{}, "reports")
	c.Register(&runningCmd{}, "reports")
	c.Register(&ledgerCmd{}, "reports")
	c.Register(&restrictionsCmd{}, "reports")
	c.Register(&statementCmd{}, "reports")

	c.Register(&importCmd{}, "books")
	c.Register(&exportCmd{}, "books")
	c.Register(&fmtCmd{}, "books")
	c.Register(&fetchPricesCmd{}, "books")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile = flag.String("config", "", "Path to the configuration file (default "+config.DefaultPath+")")
	booksFile  = flag.String("books", "", "Path to a books file (JSONL), used instead of the database")
	dbFile     = flag.String("db", "", "Path to the SQLite database")
	issuer     = flag.String("issuer", "", "Issuer of the books in the database")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn or error")
	raw        = flag.Bool("raw", false, "Print reports as plain markdown")
)

// stdout receives reports and exports.
var stdout io.Writer = os.Stdout

// app is the environment of a single command run.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	store *store.Store // nil when reading a books file
	books store.Source
}

// loadConfig loads the configuration and applies the global flags over it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	override(&cfg.Books, *booksFile)
	override(&cfg.DB, *dbFile)
	override(&cfg.Issuer, *issuer)
	override(&cfg.LogLevel, *logLevel)
	return cfg, nil
}

// openApp loads the configuration and opens the source of the books.
// Options apply last.
func openApp(ctx context.Context, opts ...func(*config.Config)) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(cfg)
	}

	a := &app{cfg: cfg, log: newLogger(cfg.LogLevel, os.Stderr)}
	if cfg.Books != "" {
		a.books = fileSource{path: cfg.Books, currency: cfg.Currency}
		return a, nil
	}
	if cfg.Issuer == "" {
		return nil, errors.New("missing issuer: use -issuer, or -books to read a books file")
	}
	a.store, err = store.Open(ctx, cfg.DB, a.log)
	if err != nil {
		return nil, err
	}
	a.books = store.NewCache(a.store, cfg.Cache.TTL, a.log)
	return a, nil
}

func override(v *string, flagValue string) {
	if flagValue != "" {
		*v = flagValue
	}
}

// Close releases the database, if any.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// Books loads the books of the configured issuer. With a database, only
// the transactions and manual restrictions matching f are selected; a books
// file is always read whole and filtered by the commands.
func (a *app) Books(ctx context.Context, f store.Filter) (*registrar.Books, error) {
	if a.store != nil && f != (store.Filter{}) {
		return a.store.Select(ctx, a.cfg.Issuer, f)
	}
	return a.books.LoadBooks(ctx, a.cfg.Issuer)
}

// Reconciler returns a reconciler with the configured classifier.
func (a *app) Reconciler() *registrar.Reconciler {
	// the policy was validated by config.Load
	policy, _ := registrar.ParseUnknownPolicy(a.cfg.Classifier.Unknown)
	return registrar.NewReconciler(registrar.Rules{Unknown: policy})
}

// fileSource reads books from a JSONL file, whatever the issuer. Books
// without a currency get the configured one.
type fileSource struct {
	path     string
	currency string
}

func (f fileSource) LoadBooks(_ context.Context, _ string) (*registrar.Books, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("could not open books file: %w", err)
	}
	defer file.Close()
	b, err := registrar.DecodeBooksIn(file, f.currency)
	if err != nil {
		return nil, fmt.Errorf("could not decode books file %q: %w", f.path, err)
	}
	return b, nil
}

// readBooks reads a books file named on the command line.
func readBooks(ctx context.Context, path string) (*registrar.Books, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return fileSource{path: path, currency: cfg.Currency}.LoadBooks(ctx, "")
}

// start opens the app and the books matching f, reporting errors on stderr.
func start(ctx context.Context, f store.Filter) (*app, *registrar.Books, subcommands.ExitStatus) {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, nil, subcommands.ExitFailure
	}
	b, err := a.Books(ctx, f)
	if err != nil {
		a.Close()
		fmt.Fprintf(os.Stderr, "Error loading books: %v\n", err)
		return nil, nil, subcommands.ExitFailure
	}
	return a, b, subcommands.ExitSuccess
}

// printWarnings reports ws on stderr, for outputs that cannot carry them.
func printWarnings(ws registrar.Warnings) {
	for _, w := range ws {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
}

// keyFunc parses the -by flag.
func keyFunc(by string) (registrar.KeyFunc, bool, error) {
	fn, ok := registrar.ParseKeyFunc(by)
	if !ok {
		return nil, false, fmt.Errorf("invalid -by %q: use cusip or position", by)
	}
	return fn, by != "cusip", nil
}
