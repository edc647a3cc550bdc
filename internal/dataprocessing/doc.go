// Package dataprocessing evaluates filters and aggregations over a loaded
// prescription dataset.
//
// Engine.Select applies a domain.FilterSpec: a record matches when its
// month lies in the range and every constrained dimension holds an allowed
// value. Large datasets are filtered on several goroutines with errgroup;
// the result keeps dataset order either way.
//
// The aggregation functions are pure and work on the selected records:
//
//	- Total, AggregateByMonth and GroupBy sum QTY, NIC and ITEMS exactly
//	  with shopspring/decimal
//	- TopNForPeriod ranks groups of a dimension by one measure over a period
//	- Options lists the selectable values and month bounds per dimension
//	- MergeForecast and GeoFrame prepare the forecast and bubble-map views
//
// Rows with an unknown month never fall inside a range and sort after
// every known month.
package dataprocessing
