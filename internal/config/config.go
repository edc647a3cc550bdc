package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Query     QueryConfig     `yaml:"query" envconfig:"QUERY"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration. Relative
// directories are resolved against BaseDir.
type PathsConfig struct {
	// BaseDir is "" for the working directory, "executable" for the
	// directory of the running binary, or an explicit path.
	BaseDir   string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	ExportDir string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
}

// DataConfig names the dataset files and tunes how they are processed.
type DataConfig struct {
	Candidates         []string `yaml:"candidates" envconfig:"CANDIDATES"`
	MonthlySummaryFile string   `yaml:"monthly_summary_file" envconfig:"MONTHLY_SUMMARY_FILE"`
	ForecastFile       string   `yaml:"forecast_file" envconfig:"FORECAST_FILE"`
	GeoFile            string   `yaml:"geo_file" envconfig:"GEO_FILE"`
	ExportBOM          bool     `yaml:"export_bom" envconfig:"EXPORT_BOM"`
	ParallelThreshold  int      `yaml:"parallel_threshold" envconfig:"PARALLEL_THRESHOLD"`
	Workers            int      `yaml:"workers" envconfig:"WORKERS"`
}

// QueryConfig bounds query parameters.
type QueryConfig struct {
	DefaultTopN     int    `yaml:"default_top_n" envconfig:"DEFAULT_TOP_N"`
	MaxTopN         int    `yaml:"max_top_n" envconfig:"MAX_TOP_N"`
	DefaultMeasure  string `yaml:"default_measure" envconfig:"DEFAULT_MEASURE"`
	DefaultPageSize int    `yaml:"default_page_size" envconfig:"DEFAULT_PAGE_SIZE"`
	MaxPageSize     int    `yaml:"max_page_size" envconfig:"MAX_PAGE_SIZE"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName      string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	MetricsEnabled   bool    `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
	TracingEnabled   bool    `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	StdoutTraces     bool    `yaml:"stdout_traces" envconfig:"STDOUT_TRACES"`
	TraceSampleRatio float64 `yaml:"trace_sample_ratio" envconfig:"TRACE_SAMPLE_RATIO"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Load builds the configuration from defaults, the optional YAML file and
// DASH_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file. An empty path skips the
// file.
func LoadFile(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Only variables that are set override the values above.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration and normalises enumerations.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server request timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid log output %q", c.Logging.Output)
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	if len(c.Data.Candidates) == 0 {
		return fmt.Errorf("at least one dataset candidate must be specified")
	}
	if c.Data.ParallelThreshold < 0 || c.Data.Workers < 0 {
		return fmt.Errorf("parallel threshold and workers must not be negative")
	}

	if c.Query.MaxTopN <= 0 || c.Query.DefaultTopN <= 0 || c.Query.DefaultTopN > c.Query.MaxTopN {
		return fmt.Errorf("top-n bounds invalid: default %d, max %d", c.Query.DefaultTopN, c.Query.MaxTopN)
	}
	if c.Query.MaxPageSize <= 0 || c.Query.DefaultPageSize <= 0 || c.Query.DefaultPageSize > c.Query.MaxPageSize {
		return fmt.Errorf("page size bounds invalid: default %d, max %d", c.Query.DefaultPageSize, c.Query.MaxPageSize)
	}
	m, err := domain.ParseMeasure(c.Query.DefaultMeasure)
	if err != nil {
		return fmt.Errorf("invalid default measure: %w", err)
	}
	c.Query.DefaultMeasure = string(m)

	if c.Telemetry.TraceSampleRatio < 0 || c.Telemetry.TraceSampleRatio > 1 {
		return fmt.Errorf("trace sample ratio must be within [0, 1]")
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		DefaultConfigFileName,
		"configs/" + DefaultConfigFileName,
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir:   DefaultDataDir,
			LogsDir:   DefaultLogsDir,
			ExportDir: DefaultExportDir,
		},
		Data: DataConfig{
			Candidates:         DefaultCandidates(),
			MonthlySummaryFile: MonthlySummaryFile,
			ForecastFile:       ForecastFile,
			GeoFile:            GeoFile,
			ExportBOM:          false,
			ParallelThreshold:  DefaultParallelThreshold,
		},
		Query: QueryConfig{
			DefaultTopN:     DefaultTopN,
			MaxTopN:         MaxTopN,
			DefaultMeasure:  DefaultRankMeasure,
			DefaultPageSize: DefaultPageSize,
			MaxPageSize:     MaxPageSize,
		},
		Telemetry: TelemetryConfig{
			ServiceName:      "healthcare-analytics",
			MetricsEnabled:   true,
			TracingEnabled:   true,
			TraceSampleRatio: 1,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
	}
}
