package services

import (
	"time"

	"github.com/ImamSharif/Healthcare-analytics/internal/dataset"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// RecordsResult holds the records selected by a filter.
type RecordsResult struct {
	Status domain.ResultStatus `json:"status"`
	Total  int                 `json:"total"`
	// Columns is the source dataset's header in file order.
	Columns []string        `json:"columns"`
	Records []domain.Record `json:"records"`
}

// Page returns the records in [offset, offset+limit). Out of range pages
// are empty.
func (r RecordsResult) Page(offset, limit int) []domain.Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(r.Records) || limit <= 0 {
		return []domain.Record{}
	}
	end := offset + limit
	if end > len(r.Records) {
		end = len(r.Records)
	}
	return r.Records[offset:end]
}

// KPIResult holds the grand totals of a selection.
type KPIResult struct {
	Status domain.ResultStatus `json:"status"`
	Totals domain.Totals       `json:"totals"`
}

// TrendResult holds per-month totals.
type TrendResult struct {
	Status domain.ResultStatus    `json:"status"`
	Months []domain.MonthlyTotal `json:"months"`
}

// DimensionTrendResult holds per (month, value) totals for one dimension.
type DimensionTrendResult struct {
	Status    domain.ResultStatus     `json:"status"`
	Dimension domain.Dimension        `json:"dimension"`
	Rows      []domain.DimensionTotal `json:"rows"`
}

// TopQuery parameterises a ranking. Zero values select the configured
// defaults: N, the default measure and the latest month.
type TopQuery struct {
	Dimension domain.Dimension
	Measure   domain.Measure
	Period    domain.Period
	N         int
}

// TopResult holds ranked groups.
type TopResult struct {
	Status    domain.ResultStatus `json:"status"`
	Dimension domain.Dimension    `json:"dimension"`
	Measure   domain.Measure      `json:"measure"`
	Period    domain.Period       `json:"period"`
	Title     string              `json:"title"`
	Latest    domain.Month        `json:"latest_month"`
	Groups    []domain.GroupTotal `json:"groups"`
}

// GeoResult holds bubble-map points.
type GeoResult struct {
	Status   domain.ResultStatus `json:"status"`
	Filtered bool                `json:"filtered"`
	Points   []domain.GeoPoint   `json:"points"`
}

// SummaryResult holds the published monthly summary and how it compares
// with totals computed from the primary dataset.
type SummaryResult struct {
	Status    domain.ResultStatus    `json:"status"`
	Source    string                 `json:"source"`
	Published []domain.MonthlyTotal `json:"published"`
	Diffs     []domain.SummaryDiff  `json:"diffs"`
	Matches   bool                   `json:"matches"`
}

// OptionalFile reports the state of one optional input.
type OptionalFile struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// DatasetInfo describes the loaded bundle.
type DatasetInfo struct {
	Source        string                  `json:"source"`
	Columns       []string                `json:"columns"`
	Records       int                     `json:"records"`
	UnknownMonths int                     `json:"unknown_months"`
	NegativeRows  int                     `json:"negative_rows"`
	Range         *domain.DateRange       `json:"range,omitempty"`
	LoadedAt      time.Time               `json:"loaded_at"`
	Generation    int                     `json:"generation"`
	Optional      map[string]OptionalFile `json:"optional"`
}

func datasetInfo(b *dataset.Bundle, sources dataset.Sources) DatasetInfo {
	info := DatasetInfo{
		Source:        b.Primary.Source,
		Columns:       b.Primary.Columns,
		Records:       b.Primary.Len(),
		UnknownMonths: b.Primary.UnknownMonths,
		NegativeRows:  b.Primary.NegativeRows,
		LoadedAt:      b.LoadedAt,
		Generation:    b.Generation,
		Optional:      make(map[string]OptionalFile, 3),
	}
	if r, ok := b.Primary.Bounds(); ok {
		info.Range = &r
	}

	roles := []struct {
		role      string
		name      string
		available bool
	}{
		{dataset.RoleMonthly, sources.MonthlySummary, b.Monthly != nil},
		{dataset.RoleForecast, sources.Forecast, b.Forecast != nil},
		{dataset.RoleGeo, sources.Geo, b.Geo != nil},
	}
	for _, r := range roles {
		f := OptionalFile{Name: r.name, Available: r.available}
		if err := b.OptionalErrors[r.role]; err != nil {
			f.Error = err.Error()
		}
		info.Optional[r.role] = f
	}
	return info
}
