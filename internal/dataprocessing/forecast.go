package dataprocessing

import (
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// MergeForecast pairs the monthly history of the full, unfiltered dataset
// with pre-computed forecast points. Only the forecast measures present in
// the source are carried.
func MergeForecast(all []domain.Record, points []domain.ForecastPoint, measures []domain.Measure) domain.Forecast {
	history := AggregateByMonth(all)
	known := make([]domain.MonthlyTotal, 0, len(history))
	for _, m := range history {
		if m.Month.IsKnown() {
			known = append(known, m)
		}
	}

	if points == nil {
		points = []domain.ForecastPoint{}
	}
	if measures == nil {
		measures = []domain.Measure{}
	}
	return domain.Forecast{
		Historical: known,
		Points:     points,
		Measures:   measures,
	}
}

// Reconcile compares a published monthly summary with totals computed
// from the primary dataset. Every month present on either side gets a
// row, ordered by month; a month missing on one side compares against
// zero.
func Reconcile(published []domain.Record, computed []domain.MonthlyTotal) []domain.SummaryDiff {
	pub := make(map[domain.Month]domain.MonthlyTotal)
	for _, m := range AggregateByMonth(published) {
		pub[m.Month] = m
	}
	comp := make(map[domain.Month]domain.MonthlyTotal)
	for _, m := range computed {
		comp[m.Month] = m
	}

	months := make([]domain.Month, 0, len(pub)+len(comp))
	seen := make(map[domain.Month]bool)
	for _, src := range []map[domain.Month]domain.MonthlyTotal{pub, comp} {
		for m := range src {
			if !seen[m] {
				seen[m] = true
				months = append(months, m)
			}
		}
	}
	sortMonths(months)

	diffs := make([]domain.SummaryDiff, 0, len(months))
	for _, m := range months {
		p, c := pub[m], comp[m]
		p.Month, c.Month = m, m
		d := domain.SummaryDiff{
			Month:      m,
			Published:  p,
			Computed:   c,
			DeltaQTY:   c.QTY.Sub(p.QTY),
			DeltaNIC:   c.NIC.Sub(p.NIC),
			DeltaITEMS: c.ITEMS.Sub(p.ITEMS),
		}
		d.Matches = d.DeltaQTY.IsZero() && d.DeltaNIC.IsZero() && d.DeltaITEMS.IsZero()
		diffs = append(diffs, d)
	}
	return diffs
}
