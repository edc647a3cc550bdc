package dataprocessing

import (
	"context"
	"log/slog"

	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// EngineConfig tunes how selections are evaluated.
type EngineConfig struct {
	// ParallelThreshold is the record count from which filters run on
	// several goroutines. Zero disables parallel evaluation.
	ParallelThreshold int
	// Workers bounds the goroutines of a parallel filter; zero means
	// GOMAXPROCS.
	Workers int
}

// DefaultEngineConfig returns the settings used by the service.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{ParallelThreshold: 50000}
}

// Engine applies filter specs to datasets. It holds no dataset state and
// is safe for concurrent use.
type Engine struct {
	logger *slog.Logger
	config EngineConfig
}

// NewEngine creates an engine. A nil logger falls back to slog.Default.
func NewEngine(logger *slog.Logger, config EngineConfig) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, config: config}
}

// Select returns the records of ds matched by spec, in dataset order.
func (e *Engine) Select(ctx context.Context, ds *domain.Dataset, spec domain.FilterSpec) ([]domain.Record, error) {
	if ds == nil {
		return []domain.Record{}, nil
	}
	mask := BuildMask(spec)

	var (
		selected []domain.Record
		err      error
	)
	if e.config.ParallelThreshold > 0 && ds.Len() >= e.config.ParallelThreshold {
		selected, err = FilterParallel(ctx, ds.Records, mask, e.config.Workers)
		if err != nil {
			return nil, err
		}
	} else {
		selected = Filter(ds.Records, mask)
	}

	e.logger.DebugContext(ctx, "Applied filter",
		slog.String("from", spec.Range.From.String()),
		slog.String("to", spec.Range.To.String()),
		slog.Int("constraints", len(spec.Allowed)),
		slog.Int("input", ds.Len()),
		slog.Int("selected", len(selected)))
	return selected, nil
}
