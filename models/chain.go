package models

import (
	"time"
)

// OptionSide identifies the call or put leg of a strike.
type OptionSide string

const (
	SideCall OptionSide = "CE"
	SidePut  OptionSide = "PE"
)

// ChainResponse mirrors the NSE option-chain endpoint payload. CE/PE
// sub-objects are optional per strike, so they decode into pointers.
type ChainResponse struct {
	Records *ChainRecords `json:"records"`
}

// ChainRecords carries the per-expiry strike rows along with the spot price.
type ChainRecords struct {
	UnderlyingValue float64    `json:"underlyingValue"`
	StrikePrices    []float64  `json:"strikePrices"`
	Data            []ChainRow `json:"data"`
}

// ChainRow is one strike row as listed by the exchange.
type ChainRow struct {
	StrikePrice float64    `json:"strikePrice"`
	CE          *SideQuote `json:"CE"`
	PE          *SideQuote `json:"PE"`
}

// SideQuote holds the per-side figures the pipeline consumes.
type SideQuote struct {
	OpenInterest         float64 `json:"openInterest"`
	PchangeInOI          float64 `json:"pchangeinOpenInterest"`
	ImpliedVolatility    float64 `json:"impliedVolatility"`
	ChangeInOpenInterest float64 `json:"changeinOpenInterest"`
	LastPrice            float64 `json:"lastPrice"`
}

// StrikeRecord is the normalized per-strike state inside a snapshot. Absent
// CE/PE sub-objects become zero-valued quotes here, which is the single place
// the missing-field rule is applied.
type StrikeRecord struct {
	Strike float64
	Call   SideQuote
	Put    SideQuote
}

// OptionChainSnapshot is a point-in-time view of one symbol's option market.
// It is built once per fetch and never mutated afterwards.
type OptionChainSnapshot struct {
	Symbol     string
	Underlying float64
	Strikes    []float64
	Records    map[float64]StrikeRecord
	FetchedAt  time.Time
}

// NewOptionChainSnapshot normalizes a decoded chain response. Rows with a
// strike already present are ignored; the exchange should not list a strike
// twice, but if it does the first row wins.
func NewOptionChainSnapshot(symbol string, rec *ChainRecords, fetchedAt time.Time) *OptionChainSnapshot {
	snap := &OptionChainSnapshot{
		Symbol:     symbol,
		Underlying: rec.UnderlyingValue,
		Strikes:    rec.StrikePrices,
		Records:    make(map[float64]StrikeRecord, len(rec.Data)),
		FetchedAt:  fetchedAt,
	}

	for _, row := range rec.Data {
		if _, ok := snap.Records[row.StrikePrice]; ok {
			continue
		}
		r := StrikeRecord{Strike: row.StrikePrice}
		if row.CE != nil {
			r.Call = *row.CE
		}
		if row.PE != nil {
			r.Put = *row.PE
		}
		snap.Records[row.StrikePrice] = r
	}

	return snap
}

// Record returns the normalized record for a strike and whether the exchange
// lists it.
func (s *OptionChainSnapshot) Record(strike float64) (StrikeRecord, bool) {
	r, ok := s.Records[strike]
	return r, ok
}
