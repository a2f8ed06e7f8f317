// Package marketdata fetches security prices from a JSON quote service.
//
// The service is described by an address template, where "{cusip}" is
// replaced by the security identifier, and a JSONPath expression locating
// the price in the response.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/registrar"
	"github.com/etnz/registrar/date"
	"github.com/shopspring/decimal"
)

// Provider retrieves the latest price of securities.
type Provider struct {
	client   *http.Client
	addr     string
	path     string
	log      *slog.Logger
	daily    bool
	cacheDir string
}

// Option configures a Provider.
type Option func(*Provider)

// WithClient uses client for every request.
func WithClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// WithDailyCache keeps responses in dir for the rest of the day. An empty
// dir uses the system temporary directory.
func WithDailyCache(dir string) Option {
	return func(p *Provider) { p.daily, p.cacheDir = true, dir }
}

// WithLogger logs requests to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.log = logger }
}

// New returns a Provider querying addr, a URL template containing
// "{cusip}", and reading the price at the JSONPath path.
func New(addr, path string, opts ...Option) (*Provider, error) {
	if !strings.Contains(addr, "{cusip}") {
		return nil, fmt.Errorf("price address %q has no {cusip} placeholder", addr)
	}
	if path == "" {
		return nil, errors.New("missing price path")
	}
	if _, err := jsonpath.New(path); err != nil {
		return nil, fmt.Errorf("invalid price path %q: %w", path, err)
	}
	p := &Provider{client: new(http.Client), addr: addr, path: path, log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.daily {
		base := p.client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		p.client = &http.Client{
			Transport: &diskCache{base: base, dir: p.cacheDir, log: p.log},
			Timeout:   p.client.Timeout,
		}
	}
	return p, nil
}

// Latest returns the latest price of cusip.
func (p *Provider) Latest(ctx context.Context, cusip string) (decimal.Decimal, error) {
	addr := strings.ReplaceAll(p.addr, "{cusip}", url.QueryEscape(cusip))
	var jobj any
	if err := jwget(ctx, p.client, addr, &jobj); err != nil {
		return decimal.Decimal{}, fmt.Errorf("error retrieving price of %q: %w", cusip, err)
	}
	jval, err := jsonpath.Get(p.path, jobj)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("error parsing price of %q: %q %w", cusip, p.path, err)
	}
	// jsonpath returns either a single answer or a list of them: keep the first one.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}

	var price decimal.Decimal
	switch v := jval.(type) {
	case float64:
		price = decimal.NewFromFloat(v)
	case string:
		// some services use a decimal comma
		s := strings.ReplaceAll(strings.ReplaceAll(v, ",", "."), " ", "")
		price, err = decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("cannot read price of %q: invalid string %q: %w", cusip, v, err)
		}
	default:
		return decimal.Decimal{}, fmt.Errorf("cannot read price of %q: %q is neither a number nor a string: %v", cusip, p.path, jval)
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("no price for %q: got %v", cusip, price)
	}
	return price, nil
}

// Fetch retrieves the latest price of each cusip and dates them on. It
// returns the prices it could get along with the errors of the others.
func (p *Provider) Fetch(ctx context.Context, on date.Date, cusips ...string) ([]registrar.MarketValue, error) {
	var (
		values []registrar.MarketValue
		errs   []error
	)
	for _, cusip := range cusips {
		price, err := p.Latest(ctx, cusip)
		if err != nil {
			p.log.Warn("Price not available", "cusip", cusip, "error", err)
			errs = append(errs, err)
			continue
		}
		values = append(values, registrar.MarketValue{CUSIP: cusip, Date: on, Price: price})
	}
	return values, errors.Join(errs...)
}
