package registrar

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Kind identifies the record type of a line in a books file.
type Kind string

// Record kinds of a books file.
const (
	KindBooks       Kind = "books" // header: issuer and currency
	KindSecurity    Kind = "security"
	KindShareholder Kind = "shareholder"
	KindTemplate    Kind = "template"
	KindTransaction Kind = "transaction"
	KindRestriction Kind = "restriction"
	KindPrice       Kind = "price"
)

type booksHeader struct {
	Issuer   string `json:"issuer"`
	Currency string `json:"currency,omitempty"`
}

// DecodeBooks decodes books from a stream of JSONL data. Each line is one
// record with a "kind" field telling its type; an optional "books" line
// sets the issuer and currency.
//
// Rows with data-quality issues (missing dates, malformed quantities) are
// kept as they are: the reconciliation reports them as warnings.
func DecodeBooks(r io.Reader) (*Books, error) { return DecodeBooksIn(r, DefaultCurrency) }

// DecodeBooksIn is DecodeBooks for books whose header may omit the
// currency, in which case currency applies.
func DecodeBooksIn(r io.Reader, currency string) (*Books, error) {
	var (
		header       booksHeader
		securities   []Security
		shareholders []Shareholder
		templates    []RestrictionTemplate
		transactions []Transaction
		restrictions []ManualRestriction
		prices       []MarketValue
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // legends can be long
	line := 0
	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}

		var identifier struct {
			Kind Kind `json:"kind"`
		}
		if err := json.Unmarshal(lineBytes, &identifier); err != nil {
			return nil, fmt.Errorf("line %d: could not identify record kind: %w", line, err)
		}

		var err error
		switch identifier.Kind {
		case KindBooks:
			err = json.Unmarshal(lineBytes, &header)
		case KindSecurity:
			var v Security
			err = json.Unmarshal(lineBytes, &v)
			securities = append(securities, v)
		case KindShareholder:
			var v Shareholder
			err = json.Unmarshal(lineBytes, &v)
			shareholders = append(shareholders, v)
		case KindTemplate:
			var v RestrictionTemplate
			err = json.Unmarshal(lineBytes, &v)
			templates = append(templates, v)
		case KindTransaction:
			var v Transaction
			err = json.Unmarshal(lineBytes, &v)
			transactions = append(transactions, v)
		case KindRestriction:
			var v ManualRestriction
			err = json.Unmarshal(lineBytes, &v)
			restrictions = append(restrictions, v)
		case KindPrice:
			var v MarketValue
			err = json.Unmarshal(lineBytes, &v)
			prices = append(prices, v)
		default:
			err = fmt.Errorf("unknown record kind: %q", identifier.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}

	if header.Currency == "" {
		header.Currency = currency
	}
	books := NewBooks(header.Issuer, header.Currency)
	books.AddSecurities(securities...)
	books.AddShareholders(shareholders...)
	books.AddTemplates(templates...)
	books.AddTransactions(transactions...)
	books.AddRestrictions(restrictions...)
	books.AddMarketValues(prices...)
	return books, nil
}

// EncodeRecord writes v as a single JSONL record of kind k.
func EncodeRecord(w io.Writer, k Kind, v any) error {
	var ow jsonObjectWriter
	ow.Append("kind", k)
	ow.EmbedFrom(v)
	data, err := ow.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", k, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write %s record: %w", k, err)
	}
	return nil
}

// EncodeBooks writes books in canonical JSONL: the header, reference data,
// then the ledger in display order, manual restrictions and prices.
func EncodeBooks(w io.Writer, b *Books) error {
	if err := EncodeRecord(w, KindBooks, booksHeader{Issuer: b.issuer, Currency: b.Currency()}); err != nil {
		return err
	}
	for s := range b.Securities() {
		if err := EncodeRecord(w, KindSecurity, s); err != nil {
			return err
		}
	}
	for h := range b.Shareholders() {
		if err := EncodeRecord(w, KindShareholder, h); err != nil {
			return err
		}
	}
	for _, t := range b.templates {
		if err := EncodeRecord(w, KindTemplate, t); err != nil {
			return err
		}
	}
	for _, tx := range b.transactions {
		if err := EncodeRecord(w, KindTransaction, tx); err != nil {
			return err
		}
	}
	for _, m := range b.restrictions {
		if err := EncodeRecord(w, KindRestriction, m); err != nil {
			return err
		}
	}
	for v := range b.market.Values() {
		if err := EncodeRecord(w, KindPrice, v); err != nil {
			return err
		}
	}
	return nil
}
