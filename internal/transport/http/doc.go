// Package http implements the HTTP handlers of the dashboard API. Handlers
// stay thin: they parse the filter query, call the dashboard service and
// render the result as JSON, a file download or a PNG.
//
// # Filter query
//
// Every query endpoint accepts the same parameters:
//
//	from, to            month bounds, e.g. 2024-01 (inclusive)
//	icb, setting,       allowed values, one per repeated parameter;
//	dose, brand         present but empty matches nothing
//	measure, period     ranking options for top-N endpoints
//	top                 number of ranked groups
//
// # Errors
//
// All errors are RFC 7807 problem documents produced by
// internal/errors.ErrorHandler. A query that selects no rows is not an
// error: the result carries "status": "empty".
package http
