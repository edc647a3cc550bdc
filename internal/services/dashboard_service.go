package services

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ImamSharif/Healthcare-analytics/internal/charts"
	"github.com/ImamSharif/Healthcare-analytics/internal/config"
	"github.com/ImamSharif/Healthcare-analytics/internal/dataprocessing"
	"github.com/ImamSharif/Healthcare-analytics/internal/dataset"
	"github.com/ImamSharif/Healthcare-analytics/internal/exporter"
	"github.com/ImamSharif/Healthcare-analytics/internal/infrastructure"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// DatasetRepository provides the current dataset bundle.
type DatasetRepository interface {
	Bundle(ctx context.Context) (*dataset.Bundle, error)
	Reload(ctx context.Context) (*dataset.Bundle, error)
	Sources() dataset.Sources
	Loaded() bool
}

// QueryMetrics records query outcomes. *infrastructure.BusinessMetrics
// implements it.
type QueryMetrics interface {
	RecordQuery(ctx context.Context, query string, status domain.ResultStatus)
	SetDatasetRecords(ctx context.Context, n int)
	RecordReload(ctx context.Context, err error)
}

// ReloadNotifier is told about every successful reload.
type ReloadNotifier interface {
	NotifyReload(ctx context.Context, info DatasetInfo)
}

// DashboardConfig holds the query and export settings of the service.
type DashboardConfig struct {
	Query     config.QueryConfig
	ExportBOM bool
}

// DashboardConfigFrom extracts the service settings from cfg.
func DashboardConfigFrom(cfg *config.Config) DashboardConfig {
	return DashboardConfig{Query: cfg.Query, ExportBOM: cfg.Data.ExportBOM}
}

// DashboardService answers dashboard queries against the current bundle.
// It is safe for concurrent use; bundles are immutable and swapped whole
// on reload.
type DashboardService struct {
	repo     DatasetRepository
	engine   *dataprocessing.Engine
	config   DashboardConfig
	metrics  QueryMetrics
	notifier ReloadNotifier
	logger   *slog.Logger
}

// NewDashboardService creates the service.
func NewDashboardService(repo DatasetRepository, engine *dataprocessing.Engine, cfg DashboardConfig, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = dataprocessing.NewEngine(logger, dataprocessing.DefaultEngineConfig())
	}
	if cfg.Query.DefaultTopN <= 0 {
		cfg.Query.DefaultTopN = config.DefaultTopN
	}
	if cfg.Query.MaxTopN <= 0 {
		cfg.Query.MaxTopN = config.MaxTopN
	}
	if cfg.Query.DefaultMeasure == "" {
		cfg.Query.DefaultMeasure = config.DefaultRankMeasure
	}
	return &DashboardService{
		repo:   repo,
		engine: engine,
		config: cfg,
		logger: infrastructure.WithComponent(logger, "dashboard_service"),
	}
}

// SetMetrics attaches query metrics.
func (s *DashboardService) SetMetrics(m QueryMetrics) {
	s.metrics = m
}

// SetNotifier attaches a reload listener.
func (s *DashboardService) SetNotifier(n ReloadNotifier) {
	s.notifier = n
}

// Config returns the effective service settings.
func (s *DashboardService) Config() DashboardConfig {
	return s.config
}

// selection loads the bundle and applies spec to the primary dataset.
func (s *DashboardService) selection(ctx context.Context, spec domain.FilterSpec) (*dataset.Bundle, []domain.Record, error) {
	ctx, span := infrastructure.StartSpan(ctx, "dashboard.select",
		attribute.String("range.from", spec.Range.From.String()),
		attribute.String("range.to", spec.Range.To.String()),
		attribute.Int("constraints", len(spec.Allowed)),
	)
	defer span.End()

	if err := spec.Range.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	b, err := s.repo.Bundle(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, nil, err
	}
	records, err := s.engine.Select(ctx, b.Primary, spec)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, nil, fmt.Errorf("apply filter: %w", err)
	}
	span.SetAttributes(attribute.Int("records.selected", len(records)))
	return b, records, nil
}

func (s *DashboardService) observe(ctx context.Context, query string, status domain.ResultStatus) {
	if s.metrics != nil {
		s.metrics.RecordQuery(ctx, query, status)
	}
	if status == domain.StatusEmpty {
		s.logger.DebugContext(ctx, "Query matched no records", slog.String("query", query))
	}
}

// GetFilteredRecords returns every record matched by spec in dataset order.
func (s *DashboardService) GetFilteredRecords(ctx context.Context, spec domain.FilterSpec) (RecordsResult, error) {
	b, records, err := s.selection(ctx, spec)
	if err != nil {
		return RecordsResult{}, err
	}
	res := RecordsResult{
		Status:  domain.StatusFor(len(records)),
		Total:   len(records),
		Columns: b.Primary.Columns,
		Records: records,
	}
	s.observe(ctx, "records", res.Status)
	return res, nil
}

// GetKPITotals sums the three measures over the selection.
func (s *DashboardService) GetKPITotals(ctx context.Context, spec domain.FilterSpec) (KPIResult, error) {
	_, records, err := s.selection(ctx, spec)
	if err != nil {
		return KPIResult{}, err
	}
	totals := dataprocessing.Total(records)
	res := KPIResult{Status: domain.StatusFor(totals.Rows), Totals: totals}
	s.observe(ctx, "kpis", res.Status)
	return res, nil
}

// GetMonthlyTrend returns per-month totals of the selection.
func (s *DashboardService) GetMonthlyTrend(ctx context.Context, spec domain.FilterSpec) (TrendResult, error) {
	_, records, err := s.selection(ctx, spec)
	if err != nil {
		return TrendResult{}, err
	}
	res := TrendResult{Status: domain.StatusFor(len(records)), Months: dataprocessing.AggregateByMonth(records)}
	s.observe(ctx, "trend_monthly", res.Status)
	return res, nil
}

// GetTrendByDimension returns per (month, value) totals of the selection.
func (s *DashboardService) GetTrendByDimension(ctx context.Context, spec domain.FilterSpec, dim domain.Dimension) (DimensionTrendResult, error) {
	if err := checkDimension(dim); err != nil {
		return DimensionTrendResult{}, err
	}
	_, records, err := s.selection(ctx, spec)
	if err != nil {
		return DimensionTrendResult{}, err
	}
	res := DimensionTrendResult{
		Status:    domain.StatusFor(len(records)),
		Dimension: dim,
		Rows:      dataprocessing.AggregateByMonthAndDimension(records, dim),
	}
	s.observe(ctx, "trend_dimension", res.Status)
	return res, nil
}

// GetTopRegions ranks ICBs by the default measure in the latest month of
// the selection.
func (s *DashboardService) GetTopRegions(ctx context.Context, spec domain.FilterSpec, n int) (TopResult, error) {
	return s.GetTopGroups(ctx, spec, TopQuery{Dimension: domain.DimensionICB, N: n})
}

// GetTopGroups ranks the values of q.Dimension within q.Period.
func (s *DashboardService) GetTopGroups(ctx context.Context, spec domain.FilterSpec, q TopQuery) (TopResult, error) {
	q, err := s.normalizeTop(q)
	if err != nil {
		return TopResult{}, err
	}
	_, records, err := s.selection(ctx, spec)
	if err != nil {
		return TopResult{}, err
	}

	groups, err := dataprocessing.TopNForPeriod(records, q.Dimension, q.Measure, q.N, q.Period)
	if err != nil {
		return TopResult{}, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}
	latest, ok := dataprocessing.LatestMonth(records)
	if !ok {
		latest = domain.UnknownMonth
	}

	res := TopResult{
		Status:    domain.StatusFor(len(groups)),
		Dimension: q.Dimension,
		Measure:   q.Measure,
		Period:    q.Period,
		Title:     topTitle(q, latest),
		Latest:    latest,
		Groups:    groups,
	}
	s.observe(ctx, "top_groups", res.Status)
	return res, nil
}

func (s *DashboardService) normalizeTop(q TopQuery) (TopQuery, error) {
	if q.Dimension == "" {
		q.Dimension = domain.DimensionICB
	}
	if err := checkDimension(q.Dimension); err != nil {
		return q, err
	}
	if q.Measure == "" {
		q.Measure = domain.Measure(s.config.Query.DefaultMeasure)
	}
	if _, err := domain.ParseMeasure(string(q.Measure)); err != nil {
		return q, fmt.Errorf("%w %q", ErrInvalidMeasure, q.Measure)
	}
	if q.Period == "" {
		q.Period = domain.PeriodLatest
	}
	if _, err := domain.ParsePeriod(string(q.Period)); err != nil {
		return q, fmt.Errorf("%w %q", ErrInvalidPeriod, q.Period)
	}
	if q.N == 0 {
		q.N = s.config.Query.DefaultTopN
	}
	if q.N < 0 || q.N > s.config.Query.MaxTopN {
		return q, fmt.Errorf("%w: top must be between 1 and %d", ErrInvalidFilter, s.config.Query.MaxTopN)
	}
	return q, nil
}

func topTitle(q TopQuery, latest domain.Month) string {
	title := fmt.Sprintf("Top %d %s by %s", q.N, groupLabels[q.Dimension], q.Measure)
	if q.Period == domain.PeriodLatest && latest.IsKnown() {
		return title + " (" + latest.Label() + ")"
	}
	return title + " (" + q.Period.Title() + ")"
}

var groupLabels = map[domain.Dimension]string{
	domain.DimensionICB:     "ICBs",
	domain.DimensionSetting: "Settings",
	domain.DimensionDose:    "Product Groups",
	domain.DimensionBrand:   "Brands",
}

func checkDimension(d domain.Dimension) error {
	for _, known := range domain.Dimensions() {
		if d == known {
			return nil
		}
	}
	return fmt.Errorf("%w %q", ErrInvalidDimension, d)
}

// GetFilterOptions lists the selectable values and month bounds of the
// primary dataset.
func (s *DashboardService) GetFilterOptions(ctx context.Context) (domain.FilterOptions, error) {
	b, err := s.repo.Bundle(ctx)
	if err != nil {
		return domain.FilterOptions{}, err
	}
	return dataprocessing.Options(b.Primary), nil
}

// DefaultSelection returns the filter the dashboard opens with: every
// value of every dimension over the full month range.
func (s *DashboardService) DefaultSelection(ctx context.Context) (domain.FilterSpec, error) {
	opts, err := s.GetFilterOptions(ctx)
	if err != nil {
		return domain.FilterSpec{}, err
	}
	return dataprocessing.DefaultSelection(opts), nil
}

// GetForecast pairs the unfiltered monthly history with the forecast file.
func (s *DashboardService) GetForecast(ctx context.Context) (domain.Forecast, error) {
	b, err := s.repo.Bundle(ctx)
	if err != nil {
		return domain.Forecast{}, err
	}
	if b.Forecast == nil {
		return domain.Forecast{}, s.optionalError(b, dataset.RoleForecast, s.repo.Sources().Forecast)
	}
	fc := dataprocessing.MergeForecast(b.Primary.Records, b.Forecast.Points, b.Forecast.Measures)
	s.observe(ctx, "forecast", domain.StatusFor(len(fc.Points)))
	return fc, nil
}

// GetGeoPoints prepares the geo file for a bubble map. The geo file is
// shown unfiltered unless filtered is set.
func (s *DashboardService) GetGeoPoints(ctx context.Context, spec domain.FilterSpec, filtered bool) (GeoResult, error) {
	b, err := s.repo.Bundle(ctx)
	if err != nil {
		return GeoResult{}, err
	}
	if b.Geo == nil {
		return GeoResult{}, s.optionalError(b, dataset.RoleGeo, s.repo.Sources().Geo)
	}

	records := b.Geo.Records
	if filtered {
		if err := spec.Range.Validate(); err != nil {
			return GeoResult{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		if records, err = s.engine.Select(ctx, b.Geo, spec); err != nil {
			return GeoResult{}, fmt.Errorf("apply filter: %w", err)
		}
	}

	points := dataprocessing.GeoFrame(records)
	res := GeoResult{Status: domain.StatusFor(len(points)), Filtered: filtered, Points: points}
	s.observe(ctx, "geo", res.Status)
	return res, nil
}

// GetMonthlySummary reconciles the published monthly summary with totals
// computed from the whole primary dataset.
func (s *DashboardService) GetMonthlySummary(ctx context.Context) (SummaryResult, error) {
	b, err := s.repo.Bundle(ctx)
	if err != nil {
		return SummaryResult{}, err
	}
	if b.Monthly == nil {
		return SummaryResult{}, s.optionalError(b, dataset.RoleMonthly, s.repo.Sources().MonthlySummary)
	}

	diffs := dataprocessing.Reconcile(b.Monthly.Records, dataprocessing.AggregateByMonth(b.Primary.Records))
	matches := true
	for _, d := range diffs {
		if !d.Matches {
			matches = false
			break
		}
	}
	if !matches {
		s.logger.WarnContext(ctx, "Published monthly summary differs from computed totals",
			slog.String("source", b.Monthly.Source))
	}

	res := SummaryResult{
		Status:    domain.StatusFor(b.Monthly.Len()),
		Source:    b.Monthly.Source,
		Published: dataprocessing.AggregateByMonth(b.Monthly.Records),
		Diffs:     diffs,
		Matches:   matches,
	}
	s.observe(ctx, "monthly_summary", res.Status)
	return res, nil
}

// optionalError returns the load error recorded for role, or
// ErrMissingOptionalData when the file was simply absent.
func (s *DashboardService) optionalError(b *dataset.Bundle, role, name string) error {
	if err := b.OptionalErrors[role]; err != nil {
		return err
	}
	return fmt.Errorf("%s %s: %w", role, name, dataset.ErrMissingOptionalData)
}

// GetDatasetInfo describes the loaded bundle.
func (s *DashboardService) GetDatasetInfo(ctx context.Context) (DatasetInfo, error) {
	b, err := s.repo.Bundle(ctx)
	if err != nil {
		return DatasetInfo{}, err
	}
	return datasetInfo(b, s.repo.Sources()), nil
}

// Reload re-reads every file. On failure the previous bundle keeps
// serving and the error is returned.
func (s *DashboardService) Reload(ctx context.Context) (DatasetInfo, error) {
	b, err := s.repo.Reload(ctx)
	if s.metrics != nil {
		s.metrics.RecordReload(ctx, err)
	}
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("reload dataset: %w", err)
	}

	info := datasetInfo(b, s.repo.Sources())
	if s.metrics != nil {
		s.metrics.SetDatasetRecords(ctx, info.Records)
	}
	infrastructure.AddSpanEvent(ctx, "dataset.reloaded",
		attribute.Int("generation", info.Generation),
		attribute.Int("records", info.Records))
	if s.notifier != nil {
		s.notifier.NotifyReload(ctx, info)
	}
	s.logger.InfoContext(ctx, "Dataset reload complete",
		slog.Int("records", info.Records),
		slog.Int("generation", info.Generation))
	return info, nil
}

// Warmup loads the bundle eagerly so startup fails fast on a missing or
// corrupt primary file.
func (s *DashboardService) Warmup(ctx context.Context) (DatasetInfo, error) {
	info, err := s.GetDatasetInfo(ctx)
	if err != nil {
		return DatasetInfo{}, err
	}
	if s.metrics != nil {
		s.metrics.SetDatasetRecords(ctx, info.Records)
	}
	return info, nil
}

// ExportCSV renders the filtered records in long format.
func (s *DashboardService) ExportCSV(ctx context.Context, spec domain.FilterSpec) ([]byte, error) {
	res, err := s.GetFilteredRecords(ctx, spec)
	if err != nil {
		return nil, err
	}
	return exporter.EncodeCSV(exporter.RecordsTable(res.Records, res.Columns), s.writeOptions())
}

// ExportMonthlyCSV renders the per-month totals of the selection.
func (s *DashboardService) ExportMonthlyCSV(ctx context.Context, spec domain.FilterSpec) ([]byte, error) {
	res, err := s.GetMonthlyTrend(ctx, spec)
	if err != nil {
		return nil, err
	}
	return exporter.EncodeCSV(exporter.MonthlyTable(res.Months), s.writeOptions())
}

// ExportWorkbook renders the selection as one workbook: filtered data,
// monthly summary and the default top regions, plus the forecast when
// the file is present.
func (s *DashboardService) ExportWorkbook(ctx context.Context, spec domain.FilterSpec) ([]byte, error) {
	b, records, err := s.selection(ctx, spec)
	if err != nil {
		return nil, err
	}

	top, err := s.GetTopRegions(ctx, spec, 0)
	if err != nil {
		return nil, err
	}

	sheets := []exporter.Sheet{
		{Name: "Filtered Data", Table: exporter.RecordsTable(records, b.Primary.Columns)},
		{Name: "Monthly_Summary", Table: exporter.MonthlyTable(dataprocessing.AggregateByMonth(records))},
		{Name: "Top_Regions", Table: exporter.GroupTable(top.Dimension, top.Groups)},
	}
	if b.Forecast != nil {
		fc := dataprocessing.MergeForecast(b.Primary.Records, b.Forecast.Points, b.Forecast.Measures)
		sheets = append(sheets, exporter.Sheet{Name: "Forecast", Table: exporter.ForecastTable(fc)})
	}
	if b.Monthly != nil {
		diffs := dataprocessing.Reconcile(b.Monthly.Records, dataprocessing.AggregateByMonth(b.Primary.Records))
		sheets = append(sheets, exporter.Sheet{Name: "Reconciliation", Table: exporter.ReconciliationTable(diffs)})
	}

	s.observe(ctx, "export_workbook", domain.StatusFor(len(records)))
	return exporter.EncodeXLSX(sheets...)
}

func (s *DashboardService) writeOptions() exporter.WriteOptions {
	return exporter.WriteOptions{BOMPrefix: s.config.ExportBOM}
}

// TrendChart renders the monthly trend of every measure as PNG.
func (s *DashboardService) TrendChart(ctx context.Context, spec domain.FilterSpec, size charts.Size) ([]byte, error) {
	res, err := s.GetMonthlyTrend(ctx, spec)
	if err != nil {
		return nil, err
	}
	return charts.MonthlyTrend(res.Months, domain.Measures(), size)
}

// DimensionTrendChart renders one line per value of dim as PNG.
func (s *DashboardService) DimensionTrendChart(ctx context.Context, spec domain.FilterSpec, dim domain.Dimension, measure domain.Measure, size charts.Size) ([]byte, error) {
	if measure == "" {
		measure = domain.Measure(s.config.Query.DefaultMeasure)
	}
	if _, err := domain.ParseMeasure(string(measure)); err != nil {
		return nil, fmt.Errorf("%w %q", ErrInvalidMeasure, measure)
	}
	res, err := s.GetTrendByDimension(ctx, spec, dim)
	if err != nil {
		return nil, err
	}
	return charts.DimensionTrend(res.Rows, dim, measure, size)
}

// TopChart renders a ranking as a horizontal bar chart.
func (s *DashboardService) TopChart(ctx context.Context, spec domain.FilterSpec, q TopQuery, size charts.Size) ([]byte, error) {
	res, err := s.GetTopGroups(ctx, spec, q)
	if err != nil {
		return nil, err
	}
	return charts.TopGroups(res.Groups, res.Measure, res.Title, size)
}
