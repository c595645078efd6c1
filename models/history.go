package models

import (
	"time"
)

// HistoryResponse mirrors the NSE historical equity endpoint payload.
type HistoryResponse struct {
	Data []HistoryRow `json:"data"`
}

// HistoryRow is a single daily record. Older deployments of the endpoint used
// CH_ prefixed column names; both spellings are decoded and reconciled in the
// reader.
type HistoryRow struct {
	Date       string  `json:"CH_TIMESTAMP"`
	ClosePrice float64 `json:"CH_CLOSING_PRICE"`
	Close      float64 `json:"close"`
}

// PriceSeries is an ordered sequence of daily closing prices for a trailing
// window ending at fetch time. Built once per fetch and then read-only.
type PriceSeries struct {
	Symbol    string
	Closes    []float64
	From      time.Time
	To        time.Time
	FetchedAt time.Time
}

// Len returns the number of closing prices in the series.
func (p *PriceSeries) Len() int {
	return len(p.Closes)
}
