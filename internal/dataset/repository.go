package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// Sources names the files that make up one dashboard dataset. Candidates
// is an ordered precedence list for the primary file.
type Sources struct {
	Candidates     []string
	MonthlySummary string
	Forecast       string
	Geo            string
}

// ForecastData is the parsed forecast file.
type ForecastData struct {
	Source   string
	Points   []domain.ForecastPoint
	Measures []domain.Measure
}

// Bundle is an immutable snapshot of every loaded file. Optional parts are
// nil when their file is absent; a corrupt optional file is recorded in
// OptionalErrors under its role ("monthly", "forecast", "geo").
type Bundle struct {
	Primary        *domain.Dataset
	Monthly        *domain.Dataset
	Forecast       *ForecastData
	Geo            *domain.Dataset
	OptionalErrors map[string]error
	LoadedAt       time.Time
	Generation     int
}

// Optional roles.
const (
	RoleMonthly  = "monthly"
	RoleForecast = "forecast"
	RoleGeo      = "geo"
)

// Repository owns the current Bundle. The first call to Bundle loads it;
// after that it changes only through Reload.
type Repository struct {
	loader  *Loader
	sources Sources
	logger  *slog.Logger

	mu         sync.RWMutex
	current    *Bundle
	generation int
}

// NewRepository creates a repository over loader and sources.
func NewRepository(loader *Loader, sources Sources, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		loader:  loader,
		sources: sources,
		logger:  logger.With(slog.String("component", "dataset_repository")),
	}
}

// Sources returns the configured sources.
func (r *Repository) Sources() Sources {
	return r.sources
}

// Bundle returns the loaded bundle, loading it on first use. Primary load
// failures are returned as is and nothing is cached.
func (r *Repository) Bundle(ctx context.Context) (*Bundle, error) {
	r.mu.RLock()
	b := r.current
	r.mu.RUnlock()
	if b != nil {
		return b, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return r.current, nil
	}
	b, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	r.current = b
	return b, nil
}

// Reload drops every cached file and loads a fresh bundle. On failure the
// previous bundle stays in place and the error is returned.
func (r *Repository) Reload(ctx context.Context) (*Bundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.loader.InvalidateAll()
	b, err := r.load(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Reload failed, keeping previous dataset",
			slog.String("error", err.Error()),
			slog.Bool("has_previous", r.current != nil))
		return nil, err
	}
	r.current = b
	r.logger.InfoContext(ctx, "Dataset reloaded",
		slog.Int("generation", b.Generation),
		slog.Int("records", b.Primary.Len()))
	return b, nil
}

// Loaded reports whether a bundle is in memory without triggering a load.
func (r *Repository) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current != nil
}

func (r *Repository) load(ctx context.Context) (*Bundle, error) {
	primary, err := r.loader.LoadPrimary(ctx, r.sources.Candidates)
	if err != nil {
		return nil, err
	}

	r.generation++
	b := &Bundle{
		Primary:        primary,
		OptionalErrors: make(map[string]error),
		LoadedAt:       time.Now(),
		Generation:     r.generation,
	}

	if frame, ok, err := r.loader.LoadOptional(ctx, r.sources.MonthlySummary, domain.ColumnMonth); err != nil {
		r.optionalFailed(ctx, b, RoleMonthly, err)
	} else if ok {
		if b.Monthly, err = ParseRecords(frame); err != nil {
			r.optionalFailed(ctx, b, RoleMonthly, err)
		}
	}

	if frame, ok, err := r.loader.LoadOptional(ctx, r.sources.Forecast, domain.ColumnMonth); err != nil {
		r.optionalFailed(ctx, b, RoleForecast, err)
	} else if ok {
		points, measures, err := ParseForecast(frame)
		if err != nil {
			r.optionalFailed(ctx, b, RoleForecast, err)
		} else {
			b.Forecast = &ForecastData{Source: frame.Path, Points: points, Measures: measures}
		}
	}

	if frame, ok, err := r.loader.LoadOptional(ctx, r.sources.Geo); err != nil {
		r.optionalFailed(ctx, b, RoleGeo, err)
	} else if ok {
		if b.Geo, err = ParseGeo(frame); err != nil {
			r.optionalFailed(ctx, b, RoleGeo, err)
		}
	}

	return b, nil
}

func (r *Repository) optionalFailed(ctx context.Context, b *Bundle, role string, err error) {
	b.OptionalErrors[role] = fmt.Errorf("%s file: %w", role, err)
	r.logger.ErrorContext(ctx, "Optional file could not be loaded",
		slog.String("role", role),
		slog.String("error", err.Error()))
}
