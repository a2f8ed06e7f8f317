package registrar

import (
	"bytes"
	"cmp"
	"encoding/json"
	"slices"
	"strings"

	"github.com/etnz/registrar/date"
)

// UnknownRestrictionCode is reported for restriction ids without an active template.
const UnknownRestrictionCode = "Unknown"

// ManualRestriction reserves shares of a position under a restriction
// template outside of any ledger transaction. Its shares are a magnitude
// that always adds to the restriction.
type ManualRestriction struct {
	ID            string
	ShareholderID string
	CUSIP         string
	RestrictionID string
	Shares        Quantity
	Date          date.Date
	Notes         string

	// RawShares holds the source text of shares that could not be parsed,
	// in which case Shares is zero.
	RawShares string
}

// Key returns the position the restriction applies to.
func (m ManualRestriction) Key() Key { return Key{CUSIP: m.CUSIP, ShareholderID: m.ShareholderID} }

// SetShares parses text into m.Shares. Empty text is zero shares;
// malformed text is kept in RawShares.
func (m *ManualRestriction) SetShares(text string) {
	m.Shares, m.RawShares = Quantity{}, ""
	if strings.TrimSpace(text) == "" {
		return
	}
	q, err := ParseQuantity(text)
	if err != nil {
		m.RawShares = text
		return
	}
	m.Shares = q
}

type manualRestrictionJSON struct {
	ID            string          `json:"id"`
	ShareholderID string          `json:"shareholder_id"`
	CUSIP         string          `json:"cusip"`
	RestrictionID string          `json:"restriction_id"`
	Shares        json.RawMessage `json:"restricted_shares"`
	Date          *string         `json:"restriction_date"`
	Notes         *string         `json:"notes"`
}

// UnmarshalJSON decodes a manual restriction row. Like transactions, it
// never fails on a malformed date or share count.
func (m *ManualRestriction) UnmarshalJSON(data []byte) error {
	var raw manualRestrictionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = ManualRestriction{
		ID:            raw.ID,
		ShareholderID: raw.ShareholderID,
		CUSIP:         raw.CUSIP,
		RestrictionID: raw.RestrictionID,
		Notes:         deref(raw.Notes),
	}
	if raw.Date != nil {
		if d, err := date.Parse(*raw.Date); err == nil {
			m.Date = d
		}
	}
	text, err := quantityText(raw.Shares)
	if err != nil {
		return err
	}
	m.SetShares(text)
	return nil
}

// MarshalJSON encodes the restriction with a stable field order.
func (m ManualRestriction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("id", m.ID)
	w.Append("shareholder_id", m.ShareholderID)
	w.Append("cusip", m.CUSIP)
	w.Append("restriction_id", m.RestrictionID)
	if m.RawShares != "" {
		w.Append("restricted_shares", m.RawShares)
	} else {
		w.Append("restricted_shares", m.Shares)
	}
	w.Optional("restriction_date", m.Date)
	w.Optional("notes", m.Notes)
	return w.MarshalJSON()
}

// quantityText returns the text of a JSON quantity, a number or a string.
func quantityText(data json.RawMessage) (string, error) {
	q := bytes.TrimSpace(data)
	switch {
	case len(q) == 0 || string(q) == "null":
		return "", nil
	case q[0] == '"':
		var s string
		err := json.Unmarshal(q, &s)
		return s, err
	default:
		return string(q), nil
	}
}

// RestrictionTemplate is the master definition of a legal restriction.
type RestrictionTemplate struct {
	ID     string `json:"id"`
	Code   string `json:"restriction_type"` // e.g. "A", "144A"
	Name   string `json:"restriction_name"`
	Legend string `json:"description"` // full legal legend text
	Active bool   `json:"is_active"`
}

// SourceKind tells where a restriction contribution comes from.
type SourceKind string

const (
	FromTransaction SourceKind = "transaction"
	FromManual      SourceKind = "manual"
)

// RestrictionSource is one contribution to a restriction.
type RestrictionSource struct {
	Kind   SourceKind
	Ref    string // transaction or manual restriction id
	Date   date.Date
	Shares Quantity // signed for transactions, never negative for manual rows
}

// Restriction is a restriction in effect on a position.
type Restriction struct {
	RestrictionID string
	Code          string
	Name          string
	Legend        string
	Shares        Quantity
	Sources       []RestrictionSource
}

// PositionRestrictions lists the restrictions in effect on one position.
type PositionRestrictions struct {
	Key          Key
	Restrictions []Restriction
}

// Restricted returns the total restricted shares of the position.
func (p PositionRestrictions) Restricted() Quantity { return totalShares(p.Restrictions) }

func totalShares(rs []Restriction) Quantity {
	var total Quantity
	for _, r := range rs {
		total = total.Add(r.Shares)
	}
	return total
}

// Restrictions resolves the restrictions in effect on the position key.
//
// Each restriction id sums the classified deltas of the transactions of key
// referencing it and the shares of the manual restrictions of key with that
// id. Ids whose combined shares are not positive have been released and are
// dropped. The result is ordered by restriction id.
func (r *Reconciler) Restrictions(txs []Transaction, manual []ManualRestriction, templates []RestrictionTemplate, key Key) ([]Restriction, Warnings) {
	var ws Warnings
	sources := make(map[string][]RestrictionSource)
	for _, tx := range txs {
		if tx.RestrictionID == "" || ByPosition(tx) != key {
			continue
		}
		e := r.classifier.Classify(tx)
		ws.checkRow(tx, e)
		sources[tx.RestrictionID] = append(sources[tx.RestrictionID], RestrictionSource{
			Kind: FromTransaction, Ref: tx.ID, Date: tx.Date, Shares: e.Delta,
		})
	}
	for _, m := range manual {
		if m.RestrictionID == "" || m.Key() != key {
			continue
		}
		ws.checkManual(m)
		sources[m.RestrictionID] = append(sources[m.RestrictionID], RestrictionSource{
			Kind: FromManual, Ref: m.ID, Date: m.Date, Shares: m.Shares.Abs(),
		})
	}
	return resolve(sources, indexTemplates(templates), key, &ws), ws
}

// RestrictionBook resolves the restrictions of every position found in txs
// or manual, ordered by position. Positions without any restriction in
// effect are omitted.
func (r *Reconciler) RestrictionBook(txs []Transaction, manual []ManualRestriction, templates []RestrictionTemplate) ([]PositionRestrictions, Warnings) {
	var ws Warnings
	byKey := make(map[Key]map[string][]RestrictionSource)
	sourcesOf := func(k Key) map[string][]RestrictionSource {
		m, ok := byKey[k]
		if !ok {
			m = make(map[string][]RestrictionSource)
			byKey[k] = m
		}
		return m
	}
	for _, tx := range txs {
		if tx.RestrictionID == "" {
			continue
		}
		e := r.classifier.Classify(tx)
		ws.checkRow(tx, e)
		m := sourcesOf(ByPosition(tx))
		m[tx.RestrictionID] = append(m[tx.RestrictionID], RestrictionSource{
			Kind: FromTransaction, Ref: tx.ID, Date: tx.Date, Shares: e.Delta,
		})
	}
	for _, mr := range manual {
		if mr.RestrictionID == "" {
			continue
		}
		ws.checkManual(mr)
		m := sourcesOf(mr.Key())
		m[mr.RestrictionID] = append(m[mr.RestrictionID], RestrictionSource{
			Kind: FromManual, Ref: mr.ID, Date: mr.Date, Shares: mr.Shares.Abs(),
		})
	}

	index := indexTemplates(templates)
	keys := make([]Key, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, Key.Compare)

	var book []PositionRestrictions
	for _, k := range keys {
		if rs := resolve(byKey[k], index, k, &ws); len(rs) > 0 {
			book = append(book, PositionRestrictions{Key: k, Restrictions: rs})
		}
	}
	return book, ws
}

// indexTemplates indexes the active templates by id.
func indexTemplates(templates []RestrictionTemplate) map[string]RestrictionTemplate {
	index := make(map[string]RestrictionTemplate, len(templates))
	for _, t := range templates {
		if t.Active {
			index[t.ID] = t
		}
	}
	return index
}

// resolve turns the contributions of one position into restrictions.
func resolve(sources map[string][]RestrictionSource, templates map[string]RestrictionTemplate, key Key, ws *Warnings) []Restriction {
	ids := make([]string, 0, len(sources))
	for id := range sources {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var res []Restriction
	for _, id := range ids {
		src := slices.Clone(sources[id])
		slices.SortFunc(src, compareSources)
		var shares Quantity
		for _, s := range src {
			shares = shares.Add(s.Shares)
		}
		if !shares.IsPositive() {
			continue
		}
		rs := Restriction{RestrictionID: id, Code: UnknownRestrictionCode, Shares: shares, Sources: src}
		if t, ok := templates[id]; ok {
			rs.Code, rs.Name, rs.Legend = t.Code, t.Name, t.Legend
		} else {
			ws.add(WarnUnknownTemplate, key.String(), "restriction %q has no active template", id)
		}
		res = append(res, rs)
	}
	return res
}

func compareSources(a, b RestrictionSource) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if c := strings.Compare(a.Ref, b.Ref); c != 0 {
		return c
	}
	return a.Shares.value.Cmp(b.Shares.value)
}
