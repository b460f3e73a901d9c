package weather

import "time"

// AggregateReadings combines multiple provider readings for one day into a DayForecast.
// Temperatures are averaged; the condition is selected by majority (first seen wins a tie).
func AggregateReadings(loc Location, date time.Time, readings []DayReading) DayForecast {
	if len(readings) == 0 {
		return DayForecast{
			Location:    loc,
			Date:        DayOf(date),
			UpdatedAt:   time.Now().UTC(),
			ConditionID: ConditionUnknown,
		}
	}

	var (
		sumMax float64
		sumMin float64
	)

	conditionCounts := make(map[ConditionID]int)
	var conditionOrder []ConditionID
	providers := make([]ProviderContribution, 0, len(readings))
	var newestTS time.Time

	for _, r := range readings {
		sumMax += r.MaxTempC
		sumMin += r.MinTempC

		if _, seen := conditionCounts[r.ConditionID]; !seen {
			conditionOrder = append(conditionOrder, r.ConditionID)
		}
		conditionCounts[r.ConditionID]++

		if r.Timestamp.After(newestTS) {
			newestTS = r.Timestamp
		}

		providers = append(providers, ProviderContribution{
			ProviderName: r.ProviderName,
			Timestamp:    r.Timestamp,
		})
	}

	n := float64(len(readings))

	bestCond := ConditionUnknown
	bestCount := 0
	for _, cond := range conditionOrder {
		// An unknown condition never beats a known one.
		if cond == ConditionUnknown {
			continue
		}
		if count := conditionCounts[cond]; count > bestCount {
			bestCount = count
			bestCond = cond
		}
	}

	if newestTS.IsZero() {
		newestTS = time.Now().UTC()
	}

	return DayForecast{
		Location:    loc,
		Date:        DayOf(date),
		MaxTempC:    sumMax / n,
		MinTempC:    sumMin / n,
		ConditionID: bestCond,
		UpdatedAt:   newestTS,
		Providers:   providers,
	}
}
