package dataprocessing

import (
	"sort"

	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// Total sums every measure over records.
func Total(records []domain.Record) domain.Totals {
	var t domain.Totals
	for _, r := range records {
		t.Add(r)
	}
	return t
}

// AggregateByMonth sums measures per month, ascending. Records with an
// unknown month are collected in a final domain.UnknownMonth bucket so the
// buckets always add up to Total(records).
func AggregateByMonth(records []domain.Record) []domain.MonthlyTotal {
	buckets := make(map[domain.Month]*domain.MonthlyTotal)
	for _, r := range records {
		key := r.Month
		if !key.IsKnown() {
			key = domain.UnknownMonth
		}
		b, ok := buckets[key]
		if !ok {
			b = &domain.MonthlyTotal{Month: key}
			buckets[key] = b
		}
		b.Add(r)
	}

	out := make([]domain.MonthlyTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return domain.CompareMonths(out[i].Month, out[j].Month) < 0
	})
	return out
}

type monthValue struct {
	month domain.Month
	value string
}

// AggregateByMonthAndDimension sums measures per (month, value of d),
// ordered by month and then value. Null values are grouped under "".
func AggregateByMonthAndDimension(records []domain.Record, d domain.Dimension) []domain.DimensionTotal {
	buckets := make(map[monthValue]*domain.DimensionTotal)
	for _, r := range records {
		key := monthValue{month: r.Month, value: r.Value(d)}
		if !key.month.IsKnown() {
			key.month = domain.UnknownMonth
		}
		b, ok := buckets[key]
		if !ok {
			b = &domain.DimensionTotal{Month: key.month, Dimension: d, Value: key.value}
			buckets[key] = b
		}
		b.Add(r)
	}

	out := make([]domain.DimensionTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := domain.CompareMonths(out[i].Month, out[j].Month); c != 0 {
			return c < 0
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Pivot indexes dimension rows as month -> value -> totals.
func Pivot(rows []domain.DimensionTotal) map[domain.Month]map[string]domain.Totals {
	out := make(map[domain.Month]map[string]domain.Totals)
	for _, row := range rows {
		byValue, ok := out[row.Month]
		if !ok {
			byValue = make(map[string]domain.Totals)
			out[row.Month] = byValue
		}
		t := byValue[row.Value]
		t.Merge(row.Totals)
		byValue[row.Value] = t
	}
	return out
}

// GroupBy sums measures per value of d regardless of month, ordered by
// value.
func GroupBy(records []domain.Record, d domain.Dimension) []domain.GroupTotal {
	buckets := make(map[string]*domain.GroupTotal)
	for _, r := range records {
		key := r.Value(d)
		b, ok := buckets[key]
		if !ok {
			b = &domain.GroupTotal{Key: key}
			buckets[key] = b
		}
		b.Add(r)
	}

	out := make([]domain.GroupTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}

func sortMonths(months []domain.Month) {
	sort.Slice(months, func(i, j int) bool {
		return domain.CompareMonths(months[i], months[j]) < 0
	})
}
