package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ImamSharif/Healthcare-analytics/internal/files"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// LoadObserver receives load timings and cache hits. The telemetry layer
// implements it.
type LoadObserver interface {
	ObserveLoad(ctx context.Context, path string, elapsed time.Duration, err error)
	ObserveCacheHit(ctx context.Context, path string)
}

type nopObserver struct{}

func (nopObserver) ObserveLoad(context.Context, string, time.Duration, error) {}
func (nopObserver) ObserveCacheHit(context.Context, string)                   {}

// Loader reads data files through a Cache. Concurrent loads of the same
// path share one read.
type Loader struct {
	discovery *files.Discovery
	cache     Cache[*Frame]
	group     singleflight.Group
	observer  LoadObserver
	logger    *slog.Logger
}

// NewLoader creates a loader. A nil cache disables caching and a nil
// logger falls back to slog.Default.
func NewLoader(discovery *files.Discovery, cache Cache[*Frame], logger *slog.Logger) *Loader {
	if cache == nil {
		cache = NopCache[*Frame]{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		discovery: discovery,
		cache:     cache,
		observer:  nopObserver{},
		logger:    logger.With(slog.String("component", "dataset_loader")),
	}
}

// SetObserver installs o for load and cache events.
func (l *Loader) SetObserver(o LoadObserver) {
	if o == nil {
		o = nopObserver{}
	}
	l.observer = o
}

// LoadPrimary loads the first candidate that exists. That file is
// authoritative: if it cannot be parsed a *LoadError is returned and later
// candidates are not tried. ErrNoDatasetFound is returned when no
// candidate exists.
func (l *Loader) LoadPrimary(ctx context.Context, candidates []string) (*domain.Dataset, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidate files configured", ErrNoDatasetFound)
	}

	info, err := l.discovery.FirstExisting(candidates)
	if errors.Is(err, files.ErrNoCandidate) {
		l.logger.ErrorContext(ctx, "No primary dataset found",
			slog.String("data_dir", l.discovery.BasePath()),
			slog.Any("candidates", candidates))
		return nil, fmt.Errorf("%w in %s: %v", ErrNoDatasetFound, l.discovery.BasePath(), err)
	}
	if err != nil {
		return nil, err
	}

	frame, err := l.read(ctx, info.Path)
	if err != nil {
		return nil, err
	}
	ds, err := ParseRecords(frame.withDates([]string{domain.ColumnMonth}))
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "Loaded primary dataset",
		slog.String("path", info.Path),
		slog.Int("records", ds.Len()),
		slog.Int("unknown_months", ds.UnknownMonths))
	if ds.UnknownMonths > 0 {
		l.logger.WarnContext(ctx, "Rows with unparseable Month",
			slog.String("path", info.Path),
			slog.Int("count", ds.UnknownMonths))
	}
	if ds.NegativeRows > 0 {
		l.logger.WarnContext(ctx, "Rows with negative measures",
			slog.String("path", info.Path),
			slog.Int("count", ds.NegativeRows))
	}
	return ds, nil
}

// LoadOptional loads a supporting file. found is false, with a nil error,
// when the file does not exist. Months are parsed for each of dateColumns
// that the file carries.
func (l *Loader) LoadOptional(ctx context.Context, name string, dateColumns ...string) (frame *Frame, found bool, err error) {
	if name == "" {
		return nil, false, nil
	}
	info, ok, err := l.discovery.Stat(name)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		l.logger.InfoContext(ctx, "Optional file not present", slog.String("path", info.Path))
		return nil, false, nil
	}

	frame, err = l.read(ctx, info.Path)
	if err != nil {
		return nil, false, err
	}
	return frame.withDates(dateColumns), true, nil
}

// Invalidate drops name from the cache so the next load reads the file.
func (l *Loader) Invalidate(name string) {
	l.cache.Delete(l.discovery.Resolve(name))
}

// InvalidateAll empties the cache.
func (l *Loader) InvalidateAll() {
	l.cache.Clear()
}

// Cached returns the paths currently held in the cache.
func (l *Loader) Cached() []string {
	return l.cache.Keys()
}

func (l *Loader) read(ctx context.Context, path string) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame, ok := l.cache.Get(path); ok {
		l.observer.ObserveCacheHit(ctx, path)
		return frame, nil
	}

	v, err, _ := l.group.Do(path, func() (interface{}, error) {
		if frame, ok := l.cache.Get(path); ok {
			return frame, nil
		}
		start := time.Now()
		frame, err := ReadFrame(path)
		l.observer.ObserveLoad(ctx, path, time.Since(start), err)
		if err != nil {
			l.logger.ErrorContext(ctx, "Failed to read data file",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil, err
		}
		l.cache.Set(path, frame)
		l.logger.DebugContext(ctx, "Read data file",
			slog.String("path", path),
			slog.Int("rows", frame.Len()),
			slog.Duration("elapsed", time.Since(start)))
		return frame, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Frame), nil
}
