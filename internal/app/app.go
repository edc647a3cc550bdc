package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/ImamSharif/Healthcare-analytics/internal/config"
	"github.com/ImamSharif/Healthcare-analytics/internal/dataprocessing"
	"github.com/ImamSharif/Healthcare-analytics/internal/dataset"
	apierrors "github.com/ImamSharif/Healthcare-analytics/internal/errors"
	"github.com/ImamSharif/Healthcare-analytics/internal/files"
	"github.com/ImamSharif/Healthcare-analytics/internal/infrastructure"
	customMiddleware "github.com/ImamSharif/Healthcare-analytics/internal/middleware"
	"github.com/ImamSharif/Healthcare-analytics/internal/services"
	handlers "github.com/ImamSharif/Healthcare-analytics/internal/transport/http"
	ws "github.com/ImamSharif/Healthcare-analytics/internal/websocket"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	Repository       *dataset.Repository
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	WebSocketHub     *ws.Hub

	errorHandler *apierrors.ErrorHandler
}

// NewApplication loads configuration, initialises the global logger and
// builds the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return New(cfg, logger)
}

// New wires every component from cfg. Nothing is loaded or served until
// Start.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(logger); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		errorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	loader := dataset.NewLoader(files.NewDiscovery(a.Paths.DataDir), dataset.NewMemoryCache[*dataset.Frame](), a.Logger)
	loader.SetObserver(a.OTelProviders.Metrics)

	a.Repository = dataset.NewRepository(loader, dataset.Sources{
		Candidates:     a.Config.Data.Candidates,
		MonthlySummary: a.Config.Data.MonthlySummaryFile,
		Forecast:       a.Config.Data.ForecastFile,
		Geo:            a.Config.Data.GeoFile,
	}, a.Logger)

	engine := dataprocessing.NewEngine(a.Logger, dataprocessing.EngineConfig{
		ParallelThreshold: a.Config.Data.ParallelThreshold,
		Workers:           a.Config.Data.Workers,
	})

	hubMetrics, err := ws.NewHubMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	a.WebSocketHub = ws.NewHub(hubMetrics, a.Logger)

	a.DashboardService = services.NewDashboardService(a.Repository, engine, services.DashboardConfigFrom(a.Config), a.Logger)
	a.DashboardService.SetMetrics(a.OTelProviders.Metrics)
	a.DashboardService.SetNotifier(a.WebSocketHub)

	a.HealthService = services.NewHealthService(contracts.Version, contracts.BuildTime, a.Repository, a.WebSocketHub, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID and RealIP run first. The websocket route must not see
	// middleware that wraps the ResponseWriter.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Handle(config.WebSocketEndpoint, ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))
	r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)

	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	r.Get(config.HealthEndpoint, healthHandler.LivenessCheck)
	r.Get(config.ReadyEndpoint, healthHandler.ReadinessCheck)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(a.errorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.corsConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		r.Use(customMiddleware.Compress(5))

		r.Route(config.APIBasePath, func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Get("/version", healthHandler.Version)

			dashboardHandler := handlers.NewDashboardHandler(a.DashboardService, a.Config.Query, a.Logger, a.errorHandler)
			r.Mount("/", dashboardHandler.Routes())
		})
	})

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	a.Router = r
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
	if a.Config.Security.EnableCORS {
		cfg.AllowedOrigins = a.Config.Security.AllowedOrigins
	} else {
		// Same-origin only: a list no browser origin matches.
		cfg.AllowedOrigins = []string{fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)}
	}
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start loads the dataset, starts the hub and begins serving. A dataset
// that cannot be loaded is fatal. Serve errors cancel the context through
// cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("addr", a.Server.Addr),
		slog.String("data_dir", a.Paths.DataDir))

	info, err := a.DashboardService.Warmup(ctx)
	if err != nil {
		a.Logger.ErrorContext(ctx, "Dataset could not be loaded",
			slog.String("data_dir", a.Paths.DataDir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	a.Logger.InfoContext(ctx, "Dataset ready",
		slog.String("source", info.Source),
		slog.Int("records", info.Records))

	a.WebSocketHub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", a.Server.Addr))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return shutdownErr
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+5*time.Second)
	defer stopCancel()
	return a.Stop(stopCtx)
}
