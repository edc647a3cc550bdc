// Package app wires the dashboard service together and manages its
// lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, config.yaml and DASH_* variables
//  2. Initialize logging and OpenTelemetry
//  3. Build the dataset loader, repository and query engine
//  4. Create the dashboard and health services and the websocket hub
//  5. Set up the chi router, middleware chain and HTTP server
//
// Start loads the dataset before serving; a missing or corrupt primary
// file is returned as an error so main can exit non-zero.
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM: in-flight requests are drained, websocket
// clients are closed and telemetry providers are flushed.
package app
