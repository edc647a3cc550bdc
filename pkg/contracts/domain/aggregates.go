package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DataQuality counts rows whose measure was missing or NaN in the source,
// and rows whose measure was negative.
type DataQuality struct {
	MissingQTY    int `json:"missing_qty"`
	MissingNIC    int `json:"missing_nic"`
	MissingITEMS  int `json:"missing_items"`
	NegativeQTY   int `json:"negative_qty"`
	NegativeNIC   int `json:"negative_nic"`
	NegativeITEMS int `json:"negative_items"`
}

// HasIssues reports whether any measure was missing or negative.
func (q DataQuality) HasIssues() bool {
	return q.MissingQTY+q.MissingNIC+q.MissingITEMS+q.Negatives() > 0
}

// Negatives returns the number of negative measure values.
func (q DataQuality) Negatives() int {
	return q.NegativeQTY + q.NegativeNIC + q.NegativeITEMS
}

// Missing returns the missing count for m.
func (q DataQuality) Missing(m Measure) int {
	switch m {
	case MeasureQTY:
		return q.MissingQTY
	case MeasureNIC:
		return q.MissingNIC
	case MeasureITEMS:
		return q.MissingITEMS
	}
	return 0
}

func (q *DataQuality) merge(o DataQuality) {
	q.MissingQTY += o.MissingQTY
	q.MissingNIC += o.MissingNIC
	q.MissingITEMS += o.MissingITEMS
	q.NegativeQTY += o.NegativeQTY
	q.NegativeNIC += o.NegativeNIC
	q.NegativeITEMS += o.NegativeITEMS
}

// Totals holds exact sums of the three measures.
type Totals struct {
	QTY     decimal.Decimal `json:"qty"`
	NIC     decimal.Decimal `json:"nic"`
	ITEMS   decimal.Decimal `json:"items"`
	Rows    int             `json:"rows"`
	Quality DataQuality     `json:"quality"`
}

// Add accumulates one record. Missing measures contribute zero and are
// counted in Quality; negative measures are summed as given and counted.
func (t *Totals) Add(r Record) {
	t.QTY = t.QTY.Add(r.QTY)
	t.NIC = t.NIC.Add(r.NIC)
	t.ITEMS = t.ITEMS.Add(r.ITEMS)
	t.Rows++
	if r.Missing.Has(MeasureQTY) {
		t.Quality.MissingQTY++
	}
	if r.Missing.Has(MeasureNIC) {
		t.Quality.MissingNIC++
	}
	if r.Missing.Has(MeasureITEMS) {
		t.Quality.MissingITEMS++
	}
	if r.Negative.Has(MeasureQTY) {
		t.Quality.NegativeQTY++
	}
	if r.Negative.Has(MeasureNIC) {
		t.Quality.NegativeNIC++
	}
	if r.Negative.Has(MeasureITEMS) {
		t.Quality.NegativeITEMS++
	}
}

// Merge adds o into t.
func (t *Totals) Merge(o Totals) {
	t.QTY = t.QTY.Add(o.QTY)
	t.NIC = t.NIC.Add(o.NIC)
	t.ITEMS = t.ITEMS.Add(o.ITEMS)
	t.Rows += o.Rows
	t.Quality.merge(o.Quality)
}

// Measure returns the sum for m.
func (t Totals) Measure(m Measure) decimal.Decimal {
	switch m {
	case MeasureQTY:
		return t.QTY
	case MeasureNIC:
		return t.NIC
	case MeasureITEMS:
		return t.ITEMS
	}
	return decimal.Zero
}

// MonthlyTotal is the aggregate for one month bucket.
type MonthlyTotal struct {
	Month Month `json:"month"`
	Totals
}

// DimensionTotal is the aggregate for one (month, dimension value) bucket.
type DimensionTotal struct {
	Month     Month     `json:"month"`
	Dimension Dimension `json:"dimension"`
	Value     string    `json:"value"`
	Totals
}

// GroupTotal is one ranked group.
type GroupTotal struct {
	Rank int    `json:"rank"`
	Key  string `json:"key"`
	Totals
}

// ResultStatus tells callers whether a query selected any rows.
type ResultStatus string

const (
	StatusOK    ResultStatus = "ok"
	StatusEmpty ResultStatus = "empty"
)

// StatusFor returns StatusEmpty when rows is zero.
func StatusFor(rows int) ResultStatus {
	if rows == 0 {
		return StatusEmpty
	}
	return StatusOK
}

// Period selects the month window used when ranking groups.
type Period string

const (
	PeriodLatest  Period = "latest"
	PeriodLast12  Period = "last12"
	PeriodAllTime Period = "all"
)

// ParsePeriod accepts the period names used by the dashboard.
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "", "latest", "latest_month":
		return PeriodLatest, nil
	case "last12", "last_12_months", "ytd":
		return PeriodLast12, nil
	case "all", "all_time", "alltime":
		return PeriodAllTime, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Title returns the label shown above ranked charts.
func (p Period) Title() string {
	switch p {
	case PeriodLast12:
		return "Last 12 Months"
	case PeriodAllTime:
		return "All Time"
	}
	return "Latest Month"
}

// GeoPoint is a geo-enriched record prepared for bubble maps.
type GeoPoint struct {
	Record
	QTYDisplay float64 `json:"qty_display"`
	Color      string  `json:"color"`
	Symbol     string  `json:"symbol"`
}

// ForecastPoint is one month of pre-computed forecast. Nil measures were
// not present in the forecast file.
type ForecastPoint struct {
	Month Month            `json:"month"`
	QTY   *decimal.Decimal `json:"forecast_qty,omitempty"`
	NIC   *decimal.Decimal `json:"forecast_nic,omitempty"`
	ITEMS *decimal.Decimal `json:"forecast_items,omitempty"`
}

// Forecast pairs historical monthly totals with forecast points.
type Forecast struct {
	Historical []MonthlyTotal  `json:"historical"`
	Points     []ForecastPoint `json:"forecast"`
	Measures   []Measure       `json:"measures"`
}

// ColumnStatus describes how well a dataset populates an optional column.
type ColumnStatus string

const (
	ColumnPresent ColumnStatus = "present"
	ColumnSparse  ColumnStatus = "sparse"
	ColumnAbsent  ColumnStatus = "absent"
)

// FilterOptions lists the selectable values per dimension and the month
// bounds of the dataset.
type FilterOptions struct {
	Values      map[Dimension][]string     `json:"values"`
	Range       DateRange                  `json:"range"`
	HasRange    bool                       `json:"has_range"`
	Columns     map[Dimension]ColumnStatus `json:"columns"`
	NullCounts  map[Dimension]int          `json:"null_counts"`
	BrandColumn ColumnStatus               `json:"brand_column"`
}

// SummaryDiff compares a published monthly summary row with the totals
// computed from the primary dataset.
type SummaryDiff struct {
	Month      Month           `json:"month"`
	Published  MonthlyTotal    `json:"published"`
	Computed   MonthlyTotal    `json:"computed"`
	DeltaQTY   decimal.Decimal `json:"delta_qty"`
	DeltaNIC   decimal.Decimal `json:"delta_nic"`
	DeltaITEMS decimal.Decimal `json:"delta_items"`
	Matches    bool            `json:"matches"`
}
