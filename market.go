package registrar

import (
	"iter"
	"maps"
	"slices"

	"github.com/etnz/registrar/date"
	"github.com/shopspring/decimal"
)

// MarketValue is the per-share price of a security on a day.
type MarketValue struct {
	CUSIP string          `json:"cusip"`
	Date  date.Date       `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// MarketData holds the price history of securities, all in one currency.
type MarketData struct {
	currency string
	prices   map[string]*date.History[decimal.Decimal] // by CUSIP
}

// NewMarketData returns an empty price history in currency.
func NewMarketData(currency string) *MarketData {
	return &MarketData{currency: currency, prices: make(map[string]*date.History[decimal.Decimal])}
}

// Currency returns the currency of every price.
func (m *MarketData) Currency() string { return m.currency }

// Add records values. A value for an existing (CUSIP, day) replaces it.
func (m *MarketData) Add(values ...MarketValue) {
	for _, v := range values {
		h, ok := m.prices[v.CUSIP]
		if !ok {
			h = new(date.History[decimal.Decimal])
			m.prices[v.CUSIP] = h
		}
		h.Append(v.Date, v.Price)
	}
}

// PriceAsOf returns the latest price of cusip dated on or before on, and its date.
func (m *MarketData) PriceAsOf(cusip string, on date.Date) (date.Date, Money, bool) {
	h, ok := m.prices[cusip]
	if !ok {
		return date.Date{}, Money{}, false
	}
	day, price, ok := h.ValueAsOf(on)
	if !ok {
		return date.Date{}, Money{}, false
	}
	return day, M(price, m.currency), true
}

// Values iterates over all prices, by CUSIP then date.
func (m *MarketData) Values() iter.Seq[MarketValue] {
	return func(yield func(MarketValue) bool) {
		for _, cusip := range slices.Sorted(maps.Keys(m.prices)) {
			for on, price := range m.prices[cusip].Values() {
				if !yield(MarketValue{CUSIP: cusip, Date: on, Price: price}) {
					return
				}
			}
		}
	}
}
