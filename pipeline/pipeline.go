package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"oiflow/config"
	"oiflow/logger"
	"oiflow/models"
	"oiflow/notifier"
	"oiflow/processor"
	"oiflow/reader/nse"
	"oiflow/writer"
)

// Runner drives the per-symbol analysis cycle: fetch the option chain,
// pick the ATM strike, scan for open-interest surges, evaluate the
// volatility spread and deliver whatever signals came out of it.
type Runner struct {
	session  *nse.Session
	config   *config.Config
	notifier notifier.Notifier
	archiver *writer.SnapshotArchiver
	log      *logger.Log
}

// NewRunner wires the runner. The archiver is optional and may be nil when
// snapshot archival is disabled.
func NewRunner(session *nse.Session, cfg *config.Config, n notifier.Notifier, archiver *writer.SnapshotArchiver) *Runner {
	return &Runner{
		session:  session,
		config:   cfg,
		notifier: n,
		archiver: archiver,
		log:      logger.GetLogger(),
	}
}

// RunAll processes each symbol in turn. A symbol that fails is reported to
// the operator channel and logged, and never stops the remaining symbols.
func (r *Runner) RunAll(ctx context.Context, symbols []string) {
	log := r.log.WithComponent("pipeline")

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("run cancelled, skipping remaining symbols")
			return
		}

		start := time.Now()
		if err := r.Run(ctx, symbol); err != nil {
			log.WithError(err).WithFields(logger.Fields{"symbol": symbol}).Error("symbol processing failed")
			r.notify(ctx, fmt.Sprintf("%s processing failed: %v", symbol, err), true)
			continue
		}
		elapsed := time.Since(start)
		logger.LogPerformanceEntry(log.WithFields(logger.Fields{"symbol": symbol}), "pipeline", "run_symbol", elapsed, nil)
		r.log.LogMetric("pipeline", "symbol_run_seconds", elapsed.Seconds(), logger.Fields{"symbol": symbol})
	}
}

// Run executes one full cycle for a single symbol.
func (r *Runner) Run(ctx context.Context, symbol string) error {
	log := r.log.WithComponent("pipeline").WithFields(logger.Fields{"symbol": symbol})

	snap, err := r.session.FetchChain(ctx, symbol)
	if err != nil {
		return err
	}

	if r.archiver != nil {
		// Archival is best effort, a failed upload never blocks alerting.
		if err := r.archiver.Archive(ctx, snap); err != nil {
			log.WithError(err).Warn("snapshot archive failed")
		}
	}

	atm, err := processor.SelectATM(snap.Underlying, snap.Strikes)
	if err != nil {
		return fmt.Errorf("%s: %w", symbol, err)
	}
	log = log.WithFields(logger.Fields{"atm": atm, "underlying": snap.Underlying})
	log.Debug("atm strike selected")

	alerts := processor.DetectSurges(snap, atm, r.config.Analysis.WatchOffsets, r.config.Analysis.OiThreshold)

	var signal *models.VolatilitySignal
	if r.config.Analysis.Volatility {
		signal = r.evaluateVolatility(ctx, log, symbol, snap, atm)
	}

	if len(alerts) == 0 && signal == nil {
		log.Info("no significant OI change detected")
		return nil
	}

	message := composeMessage(symbol, alerts, signal)
	log.WithFields(logger.Fields{
		"surge_alerts": len(alerts),
		"vol_signal":   signal != nil,
	}).Info("sending alert notification")

	r.notify(ctx, message, false)
	return nil
}

// evaluateVolatility runs the IV/RV comparison. Any failure here is logged
// and swallowed so surge alerts still go out.
func (r *Runner) evaluateVolatility(ctx context.Context, log *logger.Entry, symbol string, snap *models.OptionChainSnapshot, atm float64) *models.VolatilitySignal {
	series, err := r.session.FetchHistory(ctx, symbol, r.config.Source.Nse.HistoryWindowDays)
	if err != nil {
		log.WithError(err).Warn("price history unavailable, skipping volatility check")
		return nil
	}

	signal, err := processor.EvaluateSpread(snap, atm, series, r.config.Analysis.VolSpreadThreshold)
	if err != nil {
		log.WithError(err).Warn("volatility spread evaluation failed")
		return nil
	}
	return signal
}

// notify delivers a message and logs delivery failures without propagating
// them. A lost notification must not fail the run.
func (r *Runner) notify(ctx context.Context, text string, isError bool) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, text, isError); err != nil {
		r.log.WithComponent("pipeline-notifier").WithError(err).Error("notification delivery failed")
		return
	}
	if !isError {
		logger.IncrementAlertSent()
	}
}

// composeMessage folds all of a symbol's signals into one notification.
func composeMessage(symbol string, alerts []models.SurgeAlert, signal *models.VolatilitySignal) string {
	parts := make([]string, 0, len(alerts)+1)
	for _, a := range alerts {
		parts = append(parts, a.Text())
	}
	if signal != nil {
		parts = append(parts, signal.Text())
	}
	return strings.Join(parts, "\n\n")
}
