package models

import (
	"fmt"
	"time"
)

// SurgeAlert records one side of a strike whose open-interest change met the
// configured threshold. It exists only long enough to be formatted into a
// notification.
type SurgeAlert struct {
	Symbol     string
	Strike     float64
	Side       OptionSide
	PctChange  float64
	DetectedAt time.Time
}

// Text renders the alert line sent to the operator channel.
func (a SurgeAlert) Text() string {
	label := "CE"
	if a.Side == SidePut {
		label = "PE"
	}
	return fmt.Sprintf("%s %s OI Surge\nStrike: %.0f\nOI Change: +%.1f%%", a.Symbol, label, a.Strike, a.PctChange)
}

// VolatilitySignal is produced when the implied/realized volatility spread at
// the ATM strike meets the configured threshold.
type VolatilitySignal struct {
	Symbol    string
	AtmStrike float64
	IV        float64
	RV        float64
	Spread    float64
	CallOI    float64
	PutOI     float64
}

// Text renders the signal line sent to the operator channel.
func (v VolatilitySignal) Text() string {
	return fmt.Sprintf("%s IV/RV Spread\nATM: %.0f\nIV: %.2f RV: %.2f Spread: %.2f\nCall OI: %.0f Put OI: %.0f",
		v.Symbol, v.AtmStrike, v.IV, v.RV, v.Spread, v.CallOI, v.PutOI)
}
