// Package services implements the dashboard's query layer between the
// HTTP handlers and the dataset.
//
// DashboardService answers every dashboard question from the current
// dataset bundle: filtered records, KPI totals, monthly and per-dimension
// trends, ranked groups, geo points, the forecast merge and the published
// monthly summary. It also renders downloads (CSV, XLSX) and PNG charts.
//
// Results carry a Status. A selection that matches nothing is reported as
// domain.StatusEmpty with zeroed aggregates, never as an error. Errors are
// reserved for invalid input (the ErrInvalid* sentinels), missing or
// unreadable files (dataset.ErrNoDatasetFound, *dataset.LoadError,
// dataset.ErrMissingOptionalData) and cancelled contexts.
//
// HealthService reports liveness and readiness; readiness fails until a
// primary dataset is loaded.
package services
