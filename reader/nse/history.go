package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"oiflow/logger"
	"oiflow/models"
)

// dateFormat is the dd-mm-YYYY layout the historical endpoint expects.
const dateFormat = "02-01-2006"

// FetchHistory retrieves daily closing prices for the trailing window ending
// now.
func (s *Session) FetchHistory(ctx context.Context, symbol string, windowDays int) (*models.PriceSeries, error) {
	log := s.log.WithComponent("nse_reader").WithFields(logger.Fields{
		"symbol":    symbol,
		"operation": "fetch_history",
	})

	to := time.Now()
	from := to.AddDate(0, 0, -windowDays)

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", from.Format(dateFormat))
	params.Set("to", to.Format(dateFormat))
	reqURL := fmt.Sprintf("%s?%s", s.config.Source.Nse.HistoryURL, params.Encode())

	start := time.Now()
	status, body, err := s.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	logger.LogPerformanceEntry(log, "nse_reader", "fetch_history", time.Since(start), nil)

	if status != http.StatusOK {
		return nil, &InvalidHistoryError{
			Symbol:  symbol,
			Status:  status,
			Snippet: snippet(body),
			Err:     fmt.Errorf("unexpected status %d", status),
		}
	}

	var resp models.HistoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &InvalidHistoryError{
			Symbol:  symbol,
			Status:  status,
			Snippet: snippet(body),
			Err:     fmt.Errorf("decode history payload: %w", err),
		}
	}

	if len(resp.Data) == 0 {
		return nil, &InvalidHistoryError{
			Symbol:  symbol,
			Status:  status,
			Snippet: snippet(body),
			Err:     fmt.Errorf("empty history data"),
		}
	}

	closes := make([]float64, 0, len(resp.Data))
	for _, row := range resp.Data {
		close := row.ClosePrice
		if close == 0 {
			close = row.Close
		}
		if close > 0 {
			closes = append(closes, close)
		}
	}

	if len(closes) == 0 {
		return nil, &InvalidHistoryError{
			Symbol:  symbol,
			Status:  status,
			Snippet: snippet(body),
			Err:     fmt.Errorf("no usable closing prices"),
		}
	}

	series := &models.PriceSeries{
		Symbol:    symbol,
		Closes:    closes,
		From:      from,
		To:        to,
		FetchedAt: time.Now().UTC(),
	}
	logger.IncrementHistoryFetch()

	log.WithFields(logger.Fields{
		"closes": len(closes),
		"from":   from.Format(dateFormat),
		"to":     to.Format(dateFormat),
	}).Info("price history fetched")

	return series, nil
}
