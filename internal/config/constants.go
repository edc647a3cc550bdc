package config

import "time"

// Application constants
const (
	AppName   = "Healthcare Analytics Dashboard"
	EnvPrefix = "DASH"

	// Data files, searched in this order inside the data directory.
	PrimaryWithPostcodeFile = "Input_File_Long_Format_Data_With_Postcode.csv"
	PrimaryLongFormatFile   = "Input_File_Long_Format_Data.csv"
	PrimaryCleanedFile      = "Input_File_Cleaned.csv"

	MonthlySummaryFile = "monthly_summary.csv"
	ForecastFile       = "forecast_summary.csv"
	GeoFile            = "Input_File_Postcode_Geo_With_Latlon.csv"

	// Export file names
	FilteredDataExport    = "filtered_data.csv"
	MonthlySummaryExport  = "filtered_monthly_summary.csv"
	WorkbookExport        = "dashboard.xlsx"
	DefaultExportDir      = "exports"
	DefaultDataDir        = "data"
	DefaultLogsDir        = "logs"
	DefaultConfigFileName = "config.yaml"

	// Query defaults
	DefaultTopN        = 15
	MaxTopN            = 100
	DefaultRankMeasure = "QTY"
	DefaultPageSize    = 500
	MaxPageSize        = 5000

	// Filters switch to parallel evaluation from this many records.
	DefaultParallelThreshold = 50000

	// Network Timeouts
	DefaultRequestTimeout = 30 * time.Second
	WebSocketPingPeriod   = 30 * time.Second
	WebSocketPongWait     = 60 * time.Second

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// API Endpoints
	APIBasePath       = "/api/v1"
	HealthEndpoint    = "/healthz"
	ReadyEndpoint     = "/readyz"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)

// DefaultCandidates lists the primary dataset files in preference order.
func DefaultCandidates() []string {
	return []string{PrimaryWithPostcodeFile, PrimaryLongFormatFile, PrimaryCleanedFile}
}
