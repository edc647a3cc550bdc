package dataprocessing

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImamSharif/Healthcare-analytics/internal/shared/testutil"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

func TestEngineSelect(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	spec := domain.NewFilterSpec(domain.AllTime()).
		With(domain.DimensionSetting, "Primary").
		With(domain.DimensionBrand, "Generic")
	ds := &domain.Dataset{
		Columns: []string{"ICB_Name", "Quviviq_Type", "Product_Group", "BNF_Name"},
		Records: syntheticRecords(3000),
	}
	want := Filter(ds.Records, BuildMask(spec))

	tests := []struct {
		name   string
		config EngineConfig
	}{
		{name: "sequential", config: EngineConfig{}},
		{name: "parallel", config: EngineConfig{ParallelThreshold: 1000, Workers: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(logger, tt.config)
			got, err := engine.Select(context.Background(), ds, spec)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	testutil.AssertLogContains(t, handler, slog.LevelDebug, "Applied filter")
}

func TestEngineSelectNilDataset(t *testing.T) {
	engine := NewEngine(nil, DefaultEngineConfig())
	got, err := engine.Select(context.Background(), nil, domain.NewFilterSpec(domain.AllTime()))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEngineSelectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(nil, EngineConfig{ParallelThreshold: 10, Workers: 2})
	_, err := engine.Select(ctx, testutil.ScenarioDataset(), domain.NewFilterSpec(domain.AllTime()))
	assert.NoError(t, err, "below the threshold the selection runs inline")

	ds := &domain.Dataset{Records: syntheticRecords(100)}
	_, err = engine.Select(ctx, ds, domain.NewFilterSpec(domain.AllTime()))
	assert.ErrorIs(t, err, context.Canceled)
}
