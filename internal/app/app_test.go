package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImamSharif/Healthcare-analytics/internal/config"
	"github.com/ImamSharif/Healthcare-analytics/internal/dataset"
	"github.com/ImamSharif/Healthcare-analytics/internal/services"
	"github.com/ImamSharif/Healthcare-analytics/internal/shared/testutil"
	ws "github.com/ImamSharif/Healthcare-analytics/internal/websocket"
)

func testConfig(t *testing.T, withData bool) *config.Config {
	t.Helper()
	base := t.TempDir()
	dataDir := filepath.Join(base, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	if withData {
		testutil.WriteDataFile(t, dataDir, config.PrimaryLongFormatFile, testutil.ScenarioCSV)
	}

	cfg := config.Default()
	cfg.Paths.BaseDir = base
	cfg.Telemetry.TracingEnabled = false
	cfg.Security.RateLimit.Enabled = false
	return cfg
}

func newTestApp(t *testing.T, withData bool) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	app, err := New(testConfig(t, withData), logger)
	require.NoError(t, err)
	t.Cleanup(func() { app.WebSocketHub.Stop() })
	return app
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestApplicationServesDashboard(t *testing.T) {
	app := newTestApp(t, true)

	rec := get(t, app.Router, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "not ready before the first load")

	_, err := app.DashboardService.Warmup(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{name: "liveness", target: "/healthz", status: http.StatusOK},
		{name: "readiness", target: "/readyz", status: http.StatusOK},
		{name: "version", target: "/api/v1/version", status: http.StatusOK},
		{name: "options", target: "/api/v1/options", status: http.StatusOK},
		{name: "trend", target: "/api/v1/trend/monthly", status: http.StatusOK},
		{name: "top regions", target: "/api/v1/top-regions?period=all", status: http.StatusOK},
		{name: "bad dimension", target: "/api/v1/top/postcode", status: http.StatusBadRequest},
		{name: "forecast absent", target: "/api/v1/forecast", status: http.StatusNotFound},
		{name: "unknown route", target: "/nope", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, app.Router, tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplicationKPIs(t *testing.T) {
	app := newTestApp(t, true)

	rec := get(t, app.Router, "/api/v1/kpis?setting=Primary")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var kpis services.KPIResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kpis))
	assert.Equal(t, "ok", string(kpis.Status))
	assert.Equal(t, 2, kpis.Totals.Rows)
	assert.True(t, testutil.Dec("30").Equal(kpis.Totals.QTY))
	assert.True(t, testutil.Dec("1260").Equal(kpis.Totals.NIC))

	rec = get(t, app.Router, "/api/v1/kpis?setting=")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kpis))
	assert.Equal(t, "empty", string(kpis.Status))
}

func TestApplicationExposesMetrics(t *testing.T) {
	app := newTestApp(t, true)
	require.Equal(t, http.StatusOK, get(t, app.Router, "/api/v1/kpis").Code)

	rec := get(t, app.Router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "dashboard_queries_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestApplicationStartFailsWithoutDataset(t *testing.T) {
	app := newTestApp(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := app.Start(ctx, cancel)

	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrNoDatasetFound)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, app.Router, "/readyz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, app.Router, "/api/v1/kpis").Code)
}

func TestApplicationReloadIsPushedToWebSocketClients(t *testing.T) {
	app := newTestApp(t, true)
	_, err := app.DashboardService.Warmup(context.Background())
	require.NoError(t, err)
	app.WebSocketHub.Start()

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+config.WebSocketEndpoint, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeConnection, msg.Type)

	resp, err := http.Post(srv.URL+"/api/v1/dataset/reload", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeDatasetReloaded, msg.Type)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["generation"])
	assert.Equal(t, float64(3), data["records"])
}
