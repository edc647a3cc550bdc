package dataprocessing

import (
	"fmt"
	"sort"

	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// LatestMonth returns the most recent known month in records.
func LatestMonth(records []domain.Record) (domain.Month, bool) {
	latest, ok := domain.UnknownMonth, false
	for _, r := range records {
		if !r.Month.IsKnown() {
			continue
		}
		if !ok || r.Month > latest {
			latest, ok = r.Month, true
		}
	}
	return latest, ok
}

// PeriodRange returns the months a period covers when latest is the most
// recent month in the data.
func PeriodRange(p domain.Period, latest domain.Month) (domain.DateRange, error) {
	switch p {
	case domain.PeriodLatest:
		return domain.DateRange{From: latest, To: latest}, nil
	case domain.PeriodLast12:
		return domain.DateRange{From: latest.AddMonths(-11), To: latest}, nil
	case domain.PeriodAllTime:
		return domain.DateRange{From: domain.MinMonth, To: latest}, nil
	}
	return domain.DateRange{}, fmt.Errorf("unknown period %q", p)
}

// TopN ranks the groups of d by measure using only the records of the
// latest month present. Records with a null value for d are left out.
// Groups are sorted by descending measure with ties broken by ascending
// key, and at most n are returned.
func TopN(records []domain.Record, d domain.Dimension, measure domain.Measure, n int) []domain.GroupTotal {
	groups, _ := TopNForPeriod(records, d, measure, n, domain.PeriodLatest)
	return groups
}

// TopNForPeriod is TopN over the months selected by p, counted back from
// the latest month present.
func TopNForPeriod(records []domain.Record, d domain.Dimension, measure domain.Measure, n int, p domain.Period) ([]domain.GroupTotal, error) {
	latest, ok := LatestMonth(records)
	if !ok || n <= 0 {
		if _, err := PeriodRange(p, domain.MinMonth); err != nil {
			return nil, err
		}
		return []domain.GroupTotal{}, nil
	}
	window, err := PeriodRange(p, latest)
	if err != nil {
		return nil, err
	}

	// Records without a value for d are not a group of their own.
	selected := Filter(records, And(DateRangePredicate(window), func(r domain.Record) bool {
		return r.Value(d) != ""
	}))
	return Rank(GroupBy(selected, d), measure, n), nil
}

// Rank orders groups by descending measure, breaking ties by ascending key,
// keeps the first n and numbers them from 1.
func Rank(groups []domain.GroupTotal, measure domain.Measure, n int) []domain.GroupTotal {
	ranked := make([]domain.GroupTotal, len(groups))
	copy(ranked, groups)
	sort.SliceStable(ranked, func(i, j int) bool {
		if c := ranked[i].Measure(measure).Cmp(ranked[j].Measure(measure)); c != 0 {
			return c > 0
		}
		return ranked[i].Key < ranked[j].Key
	})
	if n < len(ranked) {
		ranked = ranked[:max(n, 0)]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
