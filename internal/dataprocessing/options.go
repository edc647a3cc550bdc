package dataprocessing

import (
	"sort"

	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// Options lists the sorted distinct non-null values of every dimension,
// the dataset's month bounds, and how each dimension column is populated.
//
// A dimension whose column is missing from the source is reported as
// ColumnAbsent with no values; one whose column has null cells is
// ColumnSparse with the null count. No placeholder values are invented for
// either case.
func Options(ds *domain.Dataset) domain.FilterOptions {
	opts := domain.FilterOptions{
		Values:     make(map[domain.Dimension][]string),
		Columns:    make(map[domain.Dimension]domain.ColumnStatus),
		NullCounts: make(map[domain.Dimension]int),
	}
	if ds == nil {
		for _, d := range domain.Dimensions() {
			opts.Values[d] = []string{}
			opts.Columns[d] = domain.ColumnAbsent
		}
		opts.BrandColumn = domain.ColumnAbsent
		return opts
	}

	for _, d := range domain.Dimensions() {
		if !ds.HasColumn(string(d)) {
			opts.Values[d] = []string{}
			opts.Columns[d] = domain.ColumnAbsent
			continue
		}

		seen := make(map[string]struct{})
		nulls := 0
		for _, r := range ds.Records {
			v := r.Value(d)
			if v == "" {
				nulls++
				continue
			}
			seen[v] = struct{}{}
		}
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)

		opts.Values[d] = values
		opts.NullCounts[d] = nulls
		if nulls > 0 {
			opts.Columns[d] = domain.ColumnSparse
		} else {
			opts.Columns[d] = domain.ColumnPresent
		}
	}
	opts.BrandColumn = opts.Columns[domain.DimensionBrand]
	opts.Range, opts.HasRange = ds.Bounds()
	return opts
}

// DefaultSelection builds the spec a dashboard starts from: the full month
// range with every listed value selected. Dimensions whose column is absent
// stay unconstrained. Unlike an unconstrained spec, it excludes rows with
// null values in populated dimensions.
func DefaultSelection(opts domain.FilterOptions) domain.FilterSpec {
	r := domain.AllTime()
	if opts.HasRange {
		r = opts.Range
	}
	spec := domain.NewFilterSpec(r)
	for _, d := range domain.Dimensions() {
		if opts.Columns[d] == domain.ColumnAbsent {
			continue
		}
		spec = spec.With(d, opts.Values[d]...)
	}
	return spec
}
