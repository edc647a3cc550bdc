// Package config loads the dashboard configuration.
//
// # Configuration Sources
//
// Values are layered in increasing order of precedence:
//
//	1. Default()
//	2. A YAML file: $DASH_CONFIG_FILE, config.yaml or configs/config.yaml
//	3. Environment variables with the DASH_ prefix
//
// Only environment variables that are set override earlier layers.
//
// # Environment Variables
//
// Nested sections are joined with underscores:
//
//	DASH_SERVER_PORT=8080
//	DASH_LOGGING_LEVEL=debug
//	DASH_PATHS_DATA_DIR=/srv/prescriptions
//	DASH_DATA_CANDIDATES=Input_File_Long_Format_Data.csv,Input_File_Cleaned.csv
//	DASH_QUERY_DEFAULT_TOP_N=15
//
// # Path Management
//
// ResolvePaths turns the configured directories into absolute paths,
// relative to the working directory by default or to the executable when
// paths.base_dir is "executable".
package config
