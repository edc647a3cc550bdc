package exporter

import (
	"github.com/shopspring/decimal"

	"github.com/ImamSharif/Healthcare-analytics/internal/dataset"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// Table is tabular output with columns in declared order.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// RecordColumns is the column order used when a record table is built
// without an explicit column list.
var RecordColumns = []string{
	domain.ColumnMonth,
	domain.ColumnICBName,
	domain.ColumnSettingType,
	domain.ColumnProductGroup,
	domain.ColumnBNFName,
	domain.ColumnQTY,
	domain.ColumnNIC,
	domain.ColumnITEMS,
}

var measureColumns = []string{domain.ColumnQTY, domain.ColumnNIC, domain.ColumnITEMS}

// RecordsTable renders records under columns, normally the source
// dataset's header so that every source column survives the export.
// Columns neither modelled nor carried in Record.Extra are left blank.
func RecordsTable(records []domain.Record, columns []string) Table {
	if len(columns) == 0 {
		columns = RecordColumns
	}
	columns = append([]string(nil), columns...)

	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = recordField(r, c)
		}
		rows[i] = row
	}
	return Table{Columns: columns, Rows: rows}
}

func recordField(r domain.Record, column string) string {
	switch column {
	case domain.ColumnMonth:
		return formatMonth(r.Month)
	case domain.ColumnICBName:
		return r.ICBName
	case domain.ColumnSettingType:
		return r.SettingType
	case domain.ColumnProductGroup:
		return r.ProductGroup
	case domain.ColumnBNFName:
		return r.BNFName
	case domain.ColumnQTY:
		return formatMeasure(r, domain.MeasureQTY)
	case domain.ColumnNIC:
		return formatMeasure(r, domain.MeasureNIC)
	case domain.ColumnITEMS:
		return formatMeasure(r, domain.MeasureITEMS)
	case domain.ColumnPostCode:
		return r.PostCode
	case domain.ColumnLatitude:
		if r.Location == nil {
			return ""
		}
		return formatFloat(r.Location.Latitude)
	case domain.ColumnLongitude:
		if r.Location == nil {
			return ""
		}
		return formatFloat(r.Location.Longitude)
	}
	return r.Extra[column]
}

func totalsRow(t domain.Totals) []string {
	return []string{formatDecimal(t.QTY), formatDecimal(t.NIC), formatDecimal(t.ITEMS)}
}

// MonthlyTable renders a monthly summary: Month, QTY, NIC, ITEMS.
func MonthlyTable(totals []domain.MonthlyTotal) Table {
	columns := append([]string{domain.ColumnMonth}, measureColumns...)
	rows := make([][]string, len(totals))
	for i, m := range totals {
		rows[i] = append([]string{formatMonth(m.Month)}, totalsRow(m.Totals)...)
	}
	return Table{Columns: columns, Rows: rows}
}

// DimensionTable renders a monthly trend split by d.
func DimensionTable(d domain.Dimension, totals []domain.DimensionTotal) Table {
	columns := append([]string{domain.ColumnMonth, string(d)}, measureColumns...)
	rows := make([][]string, len(totals))
	for i, t := range totals {
		rows[i] = append([]string{formatMonth(t.Month), t.Value}, totalsRow(t.Totals)...)
	}
	return Table{Columns: columns, Rows: rows}
}

// GroupTable renders ranked groups of d.
func GroupTable(d domain.Dimension, groups []domain.GroupTotal) Table {
	columns := append([]string{"Rank", string(d)}, measureColumns...)
	rows := make([][]string, len(groups))
	for i, g := range groups {
		rows[i] = append([]string{formatInt(g.Rank), g.Key}, totalsRow(g.Totals)...)
	}
	return Table{Columns: columns, Rows: rows}
}

// ForecastTable renders forecast points with only the measures the
// forecast carries, under the source column names.
func ForecastTable(fc domain.Forecast) Table {
	columns := []string{domain.ColumnMonth}
	for _, m := range fc.Measures {
		columns = append(columns, forecastColumn(m))
	}

	rows := make([][]string, len(fc.Points))
	for i, p := range fc.Points {
		row := []string{formatMonth(p.Month)}
		for _, m := range fc.Measures {
			v := forecastValue(p, m)
			if v == nil {
				row = append(row, "")
				continue
			}
			row = append(row, formatDecimal(*v))
		}
		rows[i] = row
	}
	return Table{Columns: columns, Rows: rows}
}

func forecastColumn(m domain.Measure) string {
	switch m {
	case domain.MeasureNIC:
		return dataset.ColumnForecastNIC
	case domain.MeasureITEMS:
		return dataset.ColumnForecastITEMS
	}
	return dataset.ColumnForecastQTY
}

func forecastValue(p domain.ForecastPoint, m domain.Measure) *decimal.Decimal {
	switch m {
	case domain.MeasureQTY:
		return p.QTY
	case domain.MeasureNIC:
		return p.NIC
	case domain.MeasureITEMS:
		return p.ITEMS
	}
	return nil
}

// ReconciliationTable renders published and computed monthly totals side
// by side.
func ReconciliationTable(diffs []domain.SummaryDiff) Table {
	columns := []string{
		domain.ColumnMonth,
		"Published_QTY", "Computed_QTY", "Delta_QTY",
		"Published_NIC", "Computed_NIC", "Delta_NIC",
		"Published_ITEMS", "Computed_ITEMS", "Delta_ITEMS",
		"Matches",
	}
	rows := make([][]string, len(diffs))
	for i, d := range diffs {
		rows[i] = []string{
			formatMonth(d.Month),
			formatDecimal(d.Published.QTY), formatDecimal(d.Computed.QTY), formatDecimal(d.DeltaQTY),
			formatDecimal(d.Published.NIC), formatDecimal(d.Computed.NIC), formatDecimal(d.DeltaNIC),
			formatDecimal(d.Published.ITEMS), formatDecimal(d.Computed.ITEMS), formatDecimal(d.DeltaITEMS),
			formatBool(d.Matches),
		}
	}
	return Table{Columns: columns, Rows: rows}
}
