package exporter

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// formatDecimal writes d exactly so exported files round-trip through the
// loader.
func formatDecimal(d decimal.Decimal) string {
	return d.String()
}

// formatMeasure writes a record measure, leaving cells that were missing
// in the source empty.
func formatMeasure(r domain.Record, m domain.Measure) string {
	if r.Missing.Has(m) {
		return ""
	}
	return formatDecimal(r.Measure(m))
}

// formatMonth writes the first day of m, the way a datetime column is
// written. Unknown months are left empty.
func formatMonth(m domain.Month) string {
	if !m.IsKnown() {
		return ""
	}
	return m.Time().Format("2006-01-02")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
