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

// FetchChain retrieves the current option-chain snapshot for a symbol.
func (s *Session) FetchChain(ctx context.Context, symbol string) (*models.OptionChainSnapshot, error) {
	log := s.log.WithComponent("nse_reader").WithFields(logger.Fields{
		"symbol":    symbol,
		"operation": "fetch_chain",
	})

	reqURL := fmt.Sprintf("%s?symbol=%s", s.config.Source.Nse.ChainURL, url.QueryEscape(symbol))

	start := time.Now()
	status, body, err := s.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	logger.LogPerformanceEntry(log, "nse_reader", "fetch_chain", time.Since(start), nil)

	if status != http.StatusOK {
		return nil, &InvalidSnapshotError{
			Symbol:  symbol,
			Status:  status,
			Snippet: snippet(body),
			Err:     fmt.Errorf("unexpected status %d", status),
		}
	}

	var resp models.ChainResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &InvalidSnapshotError{
			Symbol:  symbol,
			Status:  status,
			Snippet: snippet(body),
			Err:     fmt.Errorf("decode chain payload: %w", err),
		}
	}

	if resp.Records == nil || resp.Records.Data == nil {
		return nil, &InvalidSnapshotError{
			Symbol:  symbol,
			Status:  status,
			Snippet: snippet(body),
			Err:     fmt.Errorf("missing records in chain payload"),
		}
	}

	snap := models.NewOptionChainSnapshot(symbol, resp.Records, time.Now().UTC())
	logger.IncrementChainFetch()

	log.WithFields(logger.Fields{
		"underlying": snap.Underlying,
		"strikes":    len(snap.Strikes),
		"records":    len(snap.Records),
	}).Info("option chain fetched")

	return snap, nil
}
