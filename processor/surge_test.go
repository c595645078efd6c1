package processor

import (
	"testing"
	"time"

	"oiflow/models"
)

var defaultOffsets = []float64{-200, -100, 0, 100, 200}

func buildSnapshot(rows []models.ChainRow) *models.OptionChainSnapshot {
	strikes := make([]float64, 0, len(rows))
	for _, r := range rows {
		strikes = append(strikes, r.StrikePrice)
	}
	rec := &models.ChainRecords{
		UnderlyingValue: 48000,
		StrikePrices:    strikes,
		Data:            rows,
	}
	return models.NewOptionChainSnapshot("NIFTY", rec, time.Now())
}

func TestDetectSurgesThresholdBoundary(t *testing.T) {
	snap := buildSnapshot([]models.ChainRow{
		{StrikePrice: 48000, CE: &models.SideQuote{PchangeInOI: 30}},
	})

	alerts := DetectSurges(snap, 48000, defaultOffsets, 30)
	if len(alerts) != 1 {
		t.Fatalf("pchange equal to threshold should alert, got %d alerts", len(alerts))
	}
	if alerts[0].Side != models.SideCall || alerts[0].PctChange != 30 {
		t.Errorf("unexpected alert: %+v", alerts[0])
	}

	snap = buildSnapshot([]models.ChainRow{
		{StrikePrice: 48000, CE: &models.SideQuote{PchangeInOI: 29.999}},
	})
	alerts = DetectSurges(snap, 48000, defaultOffsets, 30)
	if len(alerts) != 0 {
		t.Fatalf("pchange below threshold should not alert, got %d alerts", len(alerts))
	}
}

func TestDetectSurgesBothSides(t *testing.T) {
	snap := buildSnapshot([]models.ChainRow{
		{StrikePrice: 47900, CE: &models.SideQuote{PchangeInOI: 40}, PE: &models.SideQuote{PchangeInOI: 55}},
		{StrikePrice: 48100, PE: &models.SideQuote{PchangeInOI: 31}},
	})

	alerts := DetectSurges(snap, 48000, defaultOffsets, 30)
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(alerts))
	}

	// Ascending strike, call before put at the same strike.
	if alerts[0].Strike != 47900 || alerts[0].Side != models.SideCall {
		t.Errorf("unexpected first alert: %+v", alerts[0])
	}
	if alerts[1].Strike != 47900 || alerts[1].Side != models.SidePut {
		t.Errorf("unexpected second alert: %+v", alerts[1])
	}
	if alerts[2].Strike != 48100 || alerts[2].Side != models.SidePut {
		t.Errorf("unexpected third alert: %+v", alerts[2])
	}
}

func TestDetectSurgesIgnoresStrikesOutsideWindow(t *testing.T) {
	snap := buildSnapshot([]models.ChainRow{
		{StrikePrice: 47500, CE: &models.SideQuote{PchangeInOI: 90}},
		{StrikePrice: 48100, CE: &models.SideQuote{PchangeInOI: 35}},
	})

	alerts := DetectSurges(snap, 48000, defaultOffsets, 30)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Strike != 48100 {
		t.Errorf("strike outside the watch window must not alert: %+v", alerts[0])
	}
}

func TestDetectSurgesSkipsUnlistedOffsets(t *testing.T) {
	// Only the ATM strike itself is listed; the other four offsets are
	// silently skipped.
	snap := buildSnapshot([]models.ChainRow{
		{StrikePrice: 48000, CE: &models.SideQuote{PchangeInOI: 50}},
	})

	alerts := DetectSurges(snap, 48000, defaultOffsets, 30)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
}
