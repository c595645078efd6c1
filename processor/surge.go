package processor

import (
	"sort"
	"time"

	"oiflow/models"
)

// DetectSurges scans the watch window of strikes around the ATM strike and
// returns one alert per side whose percent open-interest change meets the
// threshold. Offsets that land on strikes the exchange does not list are
// skipped. Results are ordered by ascending strike, call before put at the
// same strike.
func DetectSurges(snap *models.OptionChainSnapshot, atm float64, offsets []float64, threshold float64) []models.SurgeAlert {
	watch := make([]float64, len(offsets))
	copy(watch, offsets)
	sort.Float64s(watch)

	now := time.Now().UTC()
	var alerts []models.SurgeAlert

	for _, offset := range watch {
		strike := atm + offset
		rec, ok := snap.Record(strike)
		if !ok {
			continue
		}

		if rec.Call.PchangeInOI >= threshold {
			alerts = append(alerts, models.SurgeAlert{
				Symbol:     snap.Symbol,
				Strike:     strike,
				Side:       models.SideCall,
				PctChange:  rec.Call.PchangeInOI,
				DetectedAt: now,
			})
		}
		if rec.Put.PchangeInOI >= threshold {
			alerts = append(alerts, models.SurgeAlert{
				Symbol:     snap.Symbol,
				Strike:     strike,
				Side:       models.SidePut,
				PctChange:  rec.Put.PchangeInOI,
				DetectedAt: now,
			})
		}
	}

	return alerts
}
