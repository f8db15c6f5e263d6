package stats

import (
	"sort"
	"time"

	"github.com/cargoflow/partner-pulse/internal/model"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowEnding returns the window covering the given number of days up to
// end.
func WindowEnding(end time.Time, days int) Window {
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// PriorWindow returns the window of the same length immediately preceding w.
func (w Window) PriorWindow() Window {
	return Window{Start: w.Start.Add(-w.End.Sub(w.Start)), End: w.Start}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Days returns the window length in days.
func (w Window) Days() float64 {
	return w.End.Sub(w.Start).Hours() / 24
}

// RecordsInWindow filters records to those whose order date parses and falls
// inside w. Records with unparsable dates are silently excluded.
func RecordsInWindow(records []model.OrderRecord, w Window) []model.OrderRecord {
	var out []model.OrderRecord
	for _, r := range records {
		ts, ok := model.ParseOrderDate(r.OrderDate)
		if !ok {
			continue
		}
		if w.Contains(ts) {
			out = append(out, r)
		}
	}
	return out
}

// WindowRate returns orders per day for the records inside w.
func WindowRate(records []model.OrderRecord, w Window) float64 {
	days := w.Days()
	if days <= 0 {
		return 0
	}
	return float64(len(RecordsInWindow(records, w))) / days
}

// OrderDates returns the sorted distinct calendar dates on which the records
// placed orders. Unparsable dates are skipped.
func OrderDates(records []model.OrderRecord) []time.Time {
	seen := make(map[time.Time]bool)
	for _, r := range records {
		ts, ok := model.ParseOrderDate(r.OrderDate)
		if !ok {
			continue
		}
		seen[model.DateKey(ts)] = true
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// DailyCounts returns the per-day order counts aligned with the sorted
// distinct dates returned by OrderDates.
func DailyCounts(records []model.OrderRecord) ([]time.Time, []float64) {
	counts := make(map[time.Time]float64)
	for _, r := range records {
		ts, ok := model.ParseOrderDate(r.OrderDate)
		if !ok {
			continue
		}
		counts[model.DateKey(ts)]++
	}
	dates := make([]time.Time, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	series := make([]float64, len(dates))
	for i, d := range dates {
		series[i] = counts[d]
	}
	return dates, series
}

// Intervals returns the gaps in days between successive distinct order
// dates. Fewer than two dates yields nil.
func Intervals(dates []time.Time) []float64 {
	if len(dates) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, dates[i].Sub(dates[i-1]).Hours()/24)
	}
	return gaps
}

// DistinctWarehouses counts the distinct non-empty warehouses in records.
func DistinctWarehouses(records []model.OrderRecord) int {
	seen := make(map[string]bool)
	for _, r := range records {
		if r.Warehouse != "" {
			seen[r.Warehouse] = true
		}
	}
	return len(seen)
}
