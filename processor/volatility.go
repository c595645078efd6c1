package processor

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"oiflow/models"
)

// tradingDaysPerYear annualizes daily return volatility.
const tradingDaysPerYear = 252

// ErrInsufficientHistory reports that the price series is too short to
// produce a meaningful standard deviation. Two returns, hence three closes,
// are the minimum.
var ErrInsufficientHistory = errors.New("insufficient price history for realized volatility")

// RealizedVolatility computes the annualized standard deviation of daily
// percent returns, expressed in percent. The sample standard deviation is
// used, matching the usual time-series convention.
func RealizedVolatility(series *models.PriceSeries) (float64, error) {
	if series == nil || len(series.Closes) < 3 {
		return 0, ErrInsufficientHistory
	}

	returns := make([]float64, 0, len(series.Closes)-1)
	for i := 1; i < len(series.Closes); i++ {
		prev := series.Closes[i-1]
		if prev <= 0 {
			continue
		}
		returns = append(returns, (series.Closes[i]-prev)/prev)
	}
	if len(returns) < 2 {
		return 0, ErrInsufficientHistory
	}

	sd, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate the standard deviation: %w", err)
	}

	return sd * math.Sqrt(tradingDaysPerYear) * 100, nil
}

// EvaluateSpread compares the snapshot's implied volatility at the ATM strike
// against realized volatility from the price series. Implied volatility is
// read from the call side only. A nil signal with nil error means the spread
// did not reach the threshold, which is a normal outcome.
func EvaluateSpread(snap *models.OptionChainSnapshot, atm float64, series *models.PriceSeries, threshold float64) (*models.VolatilitySignal, error) {
	rv, err := RealizedVolatility(series)
	if err != nil {
		return nil, err
	}

	rec, ok := snap.Record(atm)
	if !ok {
		return nil, fmt.Errorf("atm strike %.0f not listed in snapshot", atm)
	}

	iv := rec.Call.ImpliedVolatility
	spread := iv - rv
	if spread < threshold {
		return nil, nil
	}

	return &models.VolatilitySignal{
		Symbol:    snap.Symbol,
		AtmStrike: atm,
		IV:        iv,
		RV:        rv,
		Spread:    spread,
		CallOI:    rec.Call.OpenInterest,
		PutOI:     rec.Put.OpenInterest,
	}, nil
}
