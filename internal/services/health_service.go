package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts"
)

// ClientCounter reports connected push clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	repo      DatasetRepository
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. clients may be nil when the
// push channel is disabled.
func NewHealthService(version, buildTime string, repo DatasetRepository, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = contracts.Version
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		repo:      repo,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck reports ready once the primary dataset is in memory.
// It never triggers a load.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	data := ServiceHealth{Status: "ready"}
	if hs.repo == nil || !hs.repo.Loaded() {
		data = ServiceHealth{Status: "not_ready", Message: "dataset not loaded"}
	}
	status.Services["data"] = data

	if hs.clients != nil {
		status.Services["websocket"] = ServiceHealth{Status: "ready"}
	}

	if data.Status != "ready" {
		status.Status = "not_ready"
		hs.logger.DebugContext(ctx, "Readiness check failed", slog.String("reason", data.Message))
	}
	return status
}

// Ready reports whether ReadinessCheck would succeed.
func (hs *HealthService) Ready() bool {
	return hs.repo != nil && hs.repo.Loaded()
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
		"api_version":  contracts.APIVersion,
		"data_format":  contracts.DataFormatVersion,
		"git_commit":   contracts.GitCommit,
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.clients != nil {
		result["websocket_clients"] = hs.clients.ClientCount()
	}
	return result
}
