// Package exporter renders prescription records and aggregates as tables
// and encodes them for download.
//
// Table is the shared tabular form. Builders turn records, monthly totals,
// dimension trends, ranked groups, forecasts and reconciliation rows into
// tables; EncodeCSV and EncodeXLSX serialise them.
//
// CSVWriter writes tables to disk for the command line exporter.
//
// Example usage:
//
//	table := exporter.RecordsTable(records, dataset.Columns)
//	body, err := exporter.EncodeCSV(table, exporter.WriteOptions{BOMPrefix: true})
//
//	workbook, err := exporter.EncodeXLSX(
//		exporter.Sheet{Name: "Filtered Data", Table: table},
//		exporter.Sheet{Name: "Monthly Summary", Table: exporter.MonthlyTable(trend)},
//	)
package exporter
