package http

import (
	"context"

	"github.com/ImamSharif/Healthcare-analytics/internal/charts"
	"github.com/ImamSharif/Healthcare-analytics/internal/services"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// DashboardServiceInterface defines the methods needed by DashboardHandler
type DashboardServiceInterface interface {
	GetFilteredRecords(ctx context.Context, spec domain.FilterSpec) (services.RecordsResult, error)
	GetKPITotals(ctx context.Context, spec domain.FilterSpec) (services.KPIResult, error)
	GetMonthlyTrend(ctx context.Context, spec domain.FilterSpec) (services.TrendResult, error)
	GetTrendByDimension(ctx context.Context, spec domain.FilterSpec, dim domain.Dimension) (services.DimensionTrendResult, error)
	GetTopRegions(ctx context.Context, spec domain.FilterSpec, n int) (services.TopResult, error)
	GetTopGroups(ctx context.Context, spec domain.FilterSpec, q services.TopQuery) (services.TopResult, error)
	GetForecast(ctx context.Context) (domain.Forecast, error)
	GetGeoPoints(ctx context.Context, spec domain.FilterSpec, filtered bool) (services.GeoResult, error)
	GetMonthlySummary(ctx context.Context) (services.SummaryResult, error)
	GetFilterOptions(ctx context.Context) (domain.FilterOptions, error)
	GetDatasetInfo(ctx context.Context) (services.DatasetInfo, error)
	Reload(ctx context.Context) (services.DatasetInfo, error)

	ExportCSV(ctx context.Context, spec domain.FilterSpec) ([]byte, error)
	ExportMonthlyCSV(ctx context.Context, spec domain.FilterSpec) ([]byte, error)
	ExportWorkbook(ctx context.Context, spec domain.FilterSpec) ([]byte, error)

	TrendChart(ctx context.Context, spec domain.FilterSpec, size charts.Size) ([]byte, error)
	DimensionTrendChart(ctx context.Context, spec domain.FilterSpec, dim domain.Dimension, measure domain.Measure, size charts.Size) ([]byte, error)
	TopChart(ctx context.Context, spec domain.FilterSpec, q services.TopQuery, size charts.Size) ([]byte, error)
}

var _ DashboardServiceInterface = (*services.DashboardService)(nil)
