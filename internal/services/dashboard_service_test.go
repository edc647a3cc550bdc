package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ImamSharif/Healthcare-analytics/internal/charts"
	"github.com/ImamSharif/Healthcare-analytics/internal/config"
	"github.com/ImamSharif/Healthcare-analytics/internal/dataprocessing"
	"github.com/ImamSharif/Healthcare-analytics/internal/dataset"
	apierrors "github.com/ImamSharif/Healthcare-analytics/internal/errors"
	"github.com/ImamSharif/Healthcare-analytics/internal/files"
	"github.com/ImamSharif/Healthcare-analytics/internal/shared/testutil"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

func testSources() dataset.Sources {
	return dataset.Sources{
		Candidates:     config.DefaultCandidates(),
		MonthlySummary: "monthly_summary.csv",
		Forecast:       "forecast_summary.csv",
		Geo:            "Input_File_Postcode_Geo_With_Latlon.csv",
	}
}

func newTestService(t *testing.T, dir string) (*DashboardService, *dataset.Repository) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	loader := dataset.NewLoader(files.NewDiscovery(dir), dataset.NewMemoryCache[*dataset.Frame](), logger)
	repo := dataset.NewRepository(loader, testSources(), logger)
	engine := dataprocessing.NewEngine(logger, dataprocessing.DefaultEngineConfig())
	return NewDashboardService(repo, engine, DashboardConfig{}, logger), repo
}

func scenarioDir(t *testing.T, optional bool) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteDataFile(t, dir, "Input_File_Long_Format_Data.csv", testutil.ScenarioCSV)
	if optional {
		testutil.WriteDataFile(t, dir, "monthly_summary.csv", testutil.ScenarioCSV)
		testutil.WriteDataFile(t, dir, "forecast_summary.csv", testutil.ForecastCSV)
		testutil.WriteDataFile(t, dir, "Input_File_Postcode_Geo_With_Latlon.csv", testutil.GeoCSV)
	}
	return dir
}

func allTime() domain.FilterSpec {
	return domain.NewFilterSpec(domain.AllTime())
}

type recordingMetrics struct {
	queries []domain.ResultStatus
	records int
	reloads []error
}

func (m *recordingMetrics) RecordQuery(_ context.Context, _ string, status domain.ResultStatus) {
	m.queries = append(m.queries, status)
}

func (m *recordingMetrics) SetDatasetRecords(_ context.Context, n int) { m.records = n }

func (m *recordingMetrics) RecordReload(_ context.Context, err error) {
	m.reloads = append(m.reloads, err)
}

type recordingNotifier struct {
	infos []DatasetInfo
}

func (n *recordingNotifier) NotifyReload(_ context.Context, info DatasetInfo) {
	n.infos = append(n.infos, info)
}

func TestDashboardServiceKPITotals(t *testing.T) {
	svc, _ := newTestService(t, scenarioDir(t, false))
	ctx := context.Background()

	tests := []struct {
		name   string
		spec   domain.FilterSpec
		qty    string
		nic    string
		items  string
		status domain.ResultStatus
	}{
		{name: "all", spec: allTime(), qty: "35", nic: "1470", items: "4", status: domain.StatusOK},
		{name: "primary only", spec: allTime().With(domain.DimensionSetting, "Primary"), qty: "30", nic: "1260", items: "3", status: domain.StatusOK},
		{
			name:   "january",
			spec:   domain.NewFilterSpec(domain.DateRange{From: testutil.Month(2024, time.January), To: testutil.Month(2024, time.January)}),
			qty:    "15",
			nic:    "630",
			items:  "2",
			status: domain.StatusOK,
		},
		{name: "empty selection", spec: allTime().With(domain.DimensionICB), qty: "0", nic: "0", items: "0", status: domain.StatusEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.GetKPITotals(ctx, tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.status, res.Status)
			assert.True(t, testutil.Dec(tt.qty).Equal(res.Totals.QTY), "qty %s", res.Totals.QTY)
			assert.True(t, testutil.Dec(tt.nic).Equal(res.Totals.NIC), "nic %s", res.Totals.NIC)
			assert.True(t, testutil.Dec(tt.items).Equal(res.Totals.ITEMS), "items %s", res.Totals.ITEMS)
		})
	}
}

func TestDashboardServiceRejectsInvertedRange(t *testing.T) {
	svc, _ := newTestService(t, scenarioDir(t, false))
	spec := domain.NewFilterSpec(domain.DateRange{From: testutil.Month(2024, time.March), To: testutil.Month(2024, time.January)})

	_, err := svc.GetFilteredRecords(context.Background(), spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFilter)
	assert.ErrorIs(t, err, apierrors.ErrInvalidInput)
}

func TestDashboardServiceMonthlyTrend(t *testing.T) {
	svc, _ := newTestService(t, scenarioDir(t, false))

	res, err := svc.GetMonthlyTrend(context.Background(), allTime())
	require.NoError(t, err)
	require.Len(t, res.Months, 2)
	assert.Equal(t, testutil.Month(2024, time.January), res.Months[0].Month)
	assert.True(t, testutil.Dec("15").Equal(res.Months[0].QTY))
	assert.True(t, testutil.Dec("20").Equal(res.Months[1].QTY))
}

func TestDashboardServiceTrendByDimension(t *testing.T) {
	svc, _ := newTestService(t, scenarioDir(t, false))
	ctx := context.Background()

	res, err := svc.GetTrendByDimension(ctx, allTime(), domain.DimensionICB)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
	assert.Equal(t, domain.DimensionICB, res.Dimension)

	_, err = svc.GetTrendByDimension(ctx, allTime(), domain.Dimension("Post_Code"))
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestDashboardServiceTopRegions(t *testing.T) {
	svc, _ := newTestService(t, scenarioDir(t, false))
	ctx := context.Background()

	res, err := svc.GetTopRegions(ctx, allTime(), 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOK, res.Status)
	assert.Equal(t, testutil.Month(2024, time.February), res.Latest)
	assert.Equal(t, "Top 15 ICBs by QTY (Feb 2024)", res.Title)
	require.Len(t, res.Groups, 1, "only ICB_A has February rows")
	assert.Equal(t, "ICB_A", res.Groups[0].Key)
	assert.Equal(t, 1, res.Groups[0].Rank)

	all, err := svc.GetTopGroups(ctx, allTime(), TopQuery{Period: domain.PeriodAllTime, Measure: domain.MeasureNIC, N: 5})
	require.NoError(t, err)
	require.Len(t, all.Groups, 2)
	assert.Equal(t, "ICB_A", all.Groups[0].Key)
	assert.True(t, testutil.Dec("1260").Equal(all.Groups[0].NIC))
	assert.Equal(t, "Top 5 ICBs by NIC (All Time)", all.Title)
}

func TestDashboardServiceTopQueryValidation(t *testing.T) {
	svc, _ := newTestService(t, scenarioDir(t, false))
	ctx := context.Background()

	tests := []struct {
		name  string
		query TopQuery
		want  error
	}{
		{name: "unknown dimension", query: TopQuery{Dimension: "Post_Code"}, want: ErrInvalidDimension},
		{name: "unknown measure", query: TopQuery{Measure: "price"}, want: ErrInvalidMeasure},
		{name: "unknown period", query: TopQuery{Period: "fortnight"}, want: ErrInvalidPeriod},
		{name: "n above max", query: TopQuery{N: 1000}, want: ErrInvalidFilter},
		{name: "negative n", query: TopQuery{N: -1}, want: ErrInvalidFilter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetTopGroups(ctx, allTime(), tt.query)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, apierrors.ErrInvalidInput)
		})
	}
}

func TestDashboardServiceEmptyTopRegions(t *testing.T) {
	svc, _ := newTestService(t, scenarioDir(t, false))

	res, err := svc.GetTopRegions(context.Background(), allTime().With(domain.DimensionDose, "100mg"), 10)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEmpty, res.Status)
	assert.Empty(t, res.Groups)
	assert.Equal(t, "Top 10 ICBs by QTY (Latest Month)", res.Title)
}

func TestDashboardServiceOptionalDataMissing(t *testing.T) {
	svc, _ := newTestService(t, scenarioDir(t, false))
	ctx := context.Background()

	_, err := svc.GetForecast(ctx)
	assert.ErrorIs(t, err, dataset.ErrMissingOptionalData)

	_, err = svc.GetGeoPoints(ctx, allTime(), false)
	assert.ErrorIs(t, err, dataset.ErrMissingOptionalData)

	_, err = svc.GetMonthlySummary(ctx)
	assert.ErrorIs(t, err, dataset.ErrMissingOptionalData)

	info, err := svc.GetDatasetInfo(ctx)
	require.NoError(t, err)
	assert.False(t, info.Optional[dataset.RoleForecast].Available)
	assert.Equal(t, "forecast_summary.csv", info.Optional[dataset.RoleForecast].Name)
}

func TestDashboardServiceCorruptForecastSurfacesLoadError(t *testing.T) {
	dir := scenarioDir(t, false)
	testutil.WriteDataFile(t, dir, "forecast_summary.csv", "Month,Forecast_QTY\nnext spring,1\n")
	svc, _ := newTestService(t, dir)

	_, err := svc.GetForecast(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, dataset.ErrMissingOptionalData))

	info, err := svc.GetDatasetInfo(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, info.Optional[dataset.RoleForecast].Error)
}

func TestDashboardServiceOptionalData(t *testing.T) {
	svc, _ := newTestService(t, scenarioDir(t, true))
	ctx := context.Background()

	fc, err := svc.GetForecast(ctx)
	require.NoError(t, err)
	assert.Len(t, fc.Historical, 2)
	assert.Len(t, fc.Points, 2)
	assert.Equal(t, []domain.Measure{domain.MeasureQTY, domain.MeasureNIC}, fc.Measures)

	geo, err := svc.GetGeoPoints(ctx, allTime(), false)
	require.NoError(t, err)
	assert.Len(t, geo.Points, 3)
	assert.False(t, geo.Filtered)

	filtered, err := svc.GetGeoPoints(ctx, allTime().With(domain.DimensionICB, "ICB_B"), true)
	require.NoError(t, err)
	assert.Len(t, filtered.Points, 1)

	summary, err := svc.GetMonthlySummary(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Matches)
	assert.Len(t, summary.Diffs, 2)
}

func TestDashboardServiceExports(t *testing.T) {
	svc, _ := newTestService(t, scenarioDir(t, true))
	ctx := context.Background()

	csv, err := svc.ExportCSV(ctx, allTime().With(domain.DimensionICB, "ICB_B"))
	require.NoError(t, err)
	assert.Contains(t, string(csv), "ICB_B")
	assert.NotContains(t, string(csv), "ICB_A")

	monthly, err := svc.ExportMonthlyCSV(ctx, allTime())
	require.NoError(t, err)
	assert.Contains(t, string(monthly), "2024-02")

	book, err := svc.ExportWorkbook(ctx, allTime())
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(book))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Filtered Data", "Monthly_Summary", "Top_Regions", "Forecast", "Reconciliation"}, f.GetSheetList())
}

func TestDashboardServiceExportsKeepSourceColumns(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDataFile(t, dir, "Input_File_Long_Format_Data_With_Postcode.csv", testutil.PostcodeCSV)
	svc, _ := newTestService(t, dir)
	ctx := context.Background()

	wantHeader := testutil.LongFormatHeader + ",Post_Code,Practice_Code"

	res, err := svc.GetFilteredRecords(ctx, allTime())
	require.NoError(t, err)
	assert.Equal(t, strings.Split(wantHeader, ","), res.Columns)

	body, err := svc.ExportCSV(ctx, allTime().With(domain.DimensionICB, "ICB_B"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(body), "\ufeff")), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, wantHeader, lines[0])
	assert.Equal(t, "2024-01-01,ICB_B,Hospital,50mg,Brand,5,210,1,M1 1AE,P84001", lines[1])

	book, err := svc.ExportWorkbook(ctx, allTime())
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(book))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Filtered Data")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, strings.Split(wantHeader, ","), rows[0])
}

func TestDashboardServiceFilterOptions(t *testing.T) {
	svc, _ := newTestService(t, scenarioDir(t, false))
	ctx := context.Background()

	opts, err := svc.GetFilterOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ICB_A", "ICB_B"}, opts.Values[domain.DimensionICB])
	require.True(t, opts.HasRange)
	assert.Equal(t, testutil.Month(2024, time.February), opts.Range.To)

	spec, err := svc.DefaultSelection(ctx)
	require.NoError(t, err)
	res, err := svc.GetFilteredRecords(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
}

func TestDashboardServiceReload(t *testing.T) {
	dir := scenarioDir(t, false)
	svc, repo := newTestService(t, dir)
	metrics := &recordingMetrics{}
	notifier := &recordingNotifier{}
	svc.SetMetrics(metrics)
	svc.SetNotifier(notifier)
	ctx := context.Background()

	_, err := svc.Warmup(ctx)
	require.NoError(t, err)
	assert.True(t, repo.Loaded())
	assert.Equal(t, 3, metrics.records)

	testutil.WriteDataFile(t, dir, "Input_File_Long_Format_Data.csv", testutil.LongFormatCSV(
		"2024-03-01,ICB_C,Primary,25mg,Generic,1,42,1",
	))
	info, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Records)
	assert.Equal(t, 2, info.Generation)
	assert.Equal(t, 1, metrics.records)
	require.Len(t, notifier.infos, 1)
	assert.Equal(t, 2, notifier.infos[0].Generation)
	require.Len(t, metrics.reloads, 1)
	assert.NoError(t, metrics.reloads[0])

	testutil.WriteDataFile(t, dir, "Input_File_Long_Format_Data.csv", "Month,QTY\n")
	_, err = svc.Reload(ctx)
	require.Error(t, err)
	assert.Len(t, notifier.infos, 1, "failed reloads are not broadcast")

	still, err := svc.GetDatasetInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, still.Generation, "previous bundle keeps serving")
}

func TestDashboardServiceRecordsQueryMetrics(t *testing.T) {
	svc, _ := newTestService(t, scenarioDir(t, false))
	metrics := &recordingMetrics{}
	svc.SetMetrics(metrics)

	_, err := svc.GetKPITotals(context.Background(), allTime())
	require.NoError(t, err)
	_, err = svc.GetKPITotals(context.Background(), allTime().With(domain.DimensionBrand))
	require.NoError(t, err)

	assert.Equal(t, []domain.ResultStatus{domain.StatusOK, domain.StatusEmpty}, metrics.queries)
}

func TestDashboardServiceCharts(t *testing.T) {
	svc, _ := newTestService(t, scenarioDir(t, false))
	ctx := context.Background()
	pngMagic := []byte("\x89PNG")

	png, err := svc.TrendChart(ctx, allTime(), charts.DefaultSize)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	png, err = svc.DimensionTrendChart(ctx, allTime(), domain.DimensionSetting, "", charts.DefaultSize)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	png, err = svc.TopChart(ctx, allTime(), TopQuery{}, charts.DefaultSize)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestRecordsResultPage(t *testing.T) {
	res := RecordsResult{Records: testutil.ScenarioRecords()}

	assert.Len(t, res.Page(0, 2), 2)
	assert.Len(t, res.Page(2, 2), 1)
	assert.Empty(t, res.Page(5, 2))
	assert.Empty(t, res.Page(0, 0))
}
