package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ImamSharif/Healthcare-analytics/internal/charts"
	"github.com/ImamSharif/Healthcare-analytics/internal/config"
	"github.com/ImamSharif/Healthcare-analytics/internal/dataset"
	apierrors "github.com/ImamSharif/Healthcare-analytics/internal/errors"
	"github.com/ImamSharif/Healthcare-analytics/internal/services"
	"github.com/ImamSharif/Healthcare-analytics/internal/shared/testutil"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

const (
	bathICB     = "NHS Bath and North East Somerset, Swindon and Wiltshire ICB"
	cheshireICB = "NHS Cheshire and Merseyside ICB"
)

// MockDashboardService is a mock implementation of DashboardServiceInterface
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) GetFilteredRecords(ctx context.Context, spec domain.FilterSpec) (services.RecordsResult, error) {
	args := m.Called(spec)
	return args.Get(0).(services.RecordsResult), args.Error(1)
}

func (m *MockDashboardService) GetKPITotals(ctx context.Context, spec domain.FilterSpec) (services.KPIResult, error) {
	args := m.Called(spec)
	return args.Get(0).(services.KPIResult), args.Error(1)
}

func (m *MockDashboardService) GetMonthlyTrend(ctx context.Context, spec domain.FilterSpec) (services.TrendResult, error) {
	args := m.Called(spec)
	return args.Get(0).(services.TrendResult), args.Error(1)
}

func (m *MockDashboardService) GetTrendByDimension(ctx context.Context, spec domain.FilterSpec, dim domain.Dimension) (services.DimensionTrendResult, error) {
	args := m.Called(spec, dim)
	return args.Get(0).(services.DimensionTrendResult), args.Error(1)
}

func (m *MockDashboardService) GetTopRegions(ctx context.Context, spec domain.FilterSpec, n int) (services.TopResult, error) {
	args := m.Called(spec, n)
	return args.Get(0).(services.TopResult), args.Error(1)
}

func (m *MockDashboardService) GetTopGroups(ctx context.Context, spec domain.FilterSpec, q services.TopQuery) (services.TopResult, error) {
	args := m.Called(spec, q)
	return args.Get(0).(services.TopResult), args.Error(1)
}

func (m *MockDashboardService) GetForecast(ctx context.Context) (domain.Forecast, error) {
	args := m.Called()
	return args.Get(0).(domain.Forecast), args.Error(1)
}

func (m *MockDashboardService) GetGeoPoints(ctx context.Context, spec domain.FilterSpec, filtered bool) (services.GeoResult, error) {
	args := m.Called(spec, filtered)
	return args.Get(0).(services.GeoResult), args.Error(1)
}

func (m *MockDashboardService) GetMonthlySummary(ctx context.Context) (services.SummaryResult, error) {
	args := m.Called()
	return args.Get(0).(services.SummaryResult), args.Error(1)
}

func (m *MockDashboardService) GetFilterOptions(ctx context.Context) (domain.FilterOptions, error) {
	args := m.Called()
	return args.Get(0).(domain.FilterOptions), args.Error(1)
}

func (m *MockDashboardService) GetDatasetInfo(ctx context.Context) (services.DatasetInfo, error) {
	args := m.Called()
	return args.Get(0).(services.DatasetInfo), args.Error(1)
}

func (m *MockDashboardService) Reload(ctx context.Context) (services.DatasetInfo, error) {
	args := m.Called()
	return args.Get(0).(services.DatasetInfo), args.Error(1)
}

func (m *MockDashboardService) ExportCSV(ctx context.Context, spec domain.FilterSpec) ([]byte, error) {
	args := m.Called(spec)
	return bytesArg(args, 0), args.Error(1)
}

func (m *MockDashboardService) ExportMonthlyCSV(ctx context.Context, spec domain.FilterSpec) ([]byte, error) {
	args := m.Called(spec)
	return bytesArg(args, 0), args.Error(1)
}

func (m *MockDashboardService) ExportWorkbook(ctx context.Context, spec domain.FilterSpec) ([]byte, error) {
	args := m.Called(spec)
	return bytesArg(args, 0), args.Error(1)
}

func (m *MockDashboardService) TrendChart(ctx context.Context, spec domain.FilterSpec, size charts.Size) ([]byte, error) {
	args := m.Called(spec, size)
	return bytesArg(args, 0), args.Error(1)
}

func (m *MockDashboardService) DimensionTrendChart(ctx context.Context, spec domain.FilterSpec, dim domain.Dimension, measure domain.Measure, size charts.Size) ([]byte, error) {
	args := m.Called(spec, dim, measure, size)
	return bytesArg(args, 0), args.Error(1)
}

func (m *MockDashboardService) TopChart(ctx context.Context, spec domain.FilterSpec, q services.TopQuery, size charts.Size) ([]byte, error) {
	args := m.Called(spec, q, size)
	return bytesArg(args, 0), args.Error(1)
}

func bytesArg(args mock.Arguments, i int) []byte {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).([]byte)
}

func newTestRouter(t *testing.T, svc DashboardServiceInterface) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	handler := NewDashboardHandler(svc, config.QueryConfig{}, logger, errorHandler)

	r := chi.NewRouter()
	r.Mount("/api/v1", handler.Routes())
	return r
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestDashboardHandler_FilterQueryBecomesSpec(t *testing.T) {
	jan := testutil.Month(2024, time.January)
	feb := testutil.Month(2024, time.February)

	tests := []struct {
		name   string
		target string
		check  func(t *testing.T, spec domain.FilterSpec)
	}{
		{
			name:   "no parameters",
			target: "/api/v1/kpis",
			check: func(t *testing.T, spec domain.FilterSpec) {
				assert.Equal(t, domain.AllTime(), spec.Range)
				assert.Empty(t, spec.Allowed)
			},
		},
		{
			name:   "month bounds",
			target: "/api/v1/kpis?from=2024-01&to=2024-02-01",
			check: func(t *testing.T, spec domain.FilterSpec) {
				assert.Equal(t, domain.DateRange{From: jan, To: feb}, spec.Range)
			},
		},
		{
			name:   "repeated values",
			target: "/api/v1/kpis?setting=Primary&setting=Hospital&dose=25mg&dose=50mg",
			check: func(t *testing.T, spec domain.FilterSpec) {
				set, ok := spec.Constraint(domain.DimensionSetting)
				require.True(t, ok)
				assert.Equal(t, []string{"Hospital", "Primary"}, set.Values())
				set, ok = spec.Constraint(domain.DimensionDose)
				require.True(t, ok)
				assert.Equal(t, []string{"25mg", "50mg"}, set.Values())
				_, ok = spec.Constraint(domain.DimensionICB)
				assert.False(t, ok)
			},
		},
		{
			name:   "icb name containing a comma stays whole",
			target: "/api/v1/kpis?icb=" + url.QueryEscape(bathICB) + "&icb=" + url.QueryEscape(cheshireICB),
			check: func(t *testing.T, spec domain.FilterSpec) {
				set, ok := spec.Constraint(domain.DimensionICB)
				require.True(t, ok)
				assert.Equal(t, []string{bathICB, cheshireICB}, set.Values())
			},
		},
		{
			name:   "empty parameter matches nothing",
			target: "/api/v1/kpis?brand=",
			check: func(t *testing.T, spec domain.FilterSpec) {
				set, ok := spec.Constraint(domain.DimensionBrand)
				require.True(t, ok)
				assert.Empty(t, set.Values())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			var got domain.FilterSpec
			svc.On("GetKPITotals", mock.Anything).
				Run(func(args mock.Arguments) { got = args.Get(0).(domain.FilterSpec) }).
				Return(services.KPIResult{Status: domain.StatusOK}, nil)

			rec := serve(newTestRouter(t, svc), http.MethodGet, tt.target)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			tt.check(t, got)
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_InvalidQueryIsRejected(t *testing.T) {
	tests := []struct {
		name   string
		target string
		field  string
	}{
		{name: "bad month", target: "/api/v1/kpis?from=sometime", field: "from"},
		{name: "bad measure", target: "/api/v1/top/icb?measure=price", field: "measure"},
		{name: "bad period", target: "/api/v1/top/icb?period=fortnight", field: "period"},
		{name: "bad dimension", target: "/api/v1/trend/postcode", field: "dimension"},
		{name: "top out of range", target: "/api/v1/top-regions?top=0", field: "top"},
		{name: "limit out of range", target: "/api/v1/records?limit=999999", field: "limit"},
		{name: "bad filtered flag", target: "/api/v1/geo?filtered=maybe", field: "filtered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			rec := serve(newTestRouter(t, svc), http.MethodGet, tt.target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, apierrors.TypeValidation, body["type"])
			assert.Contains(t, rec.Body.String(), fmt.Sprintf(`"field":%q`, tt.field))
			svc.AssertNotCalled(t, "GetKPITotals", mock.Anything)
		})
	}
}

func TestDashboardHandler_ServiceErrorsMapToProblems(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{name: "no dataset", err: fmt.Errorf("load: %w", dataset.ErrNoDatasetFound), wantStatus: http.StatusServiceUnavailable, wantType: apierrors.TypeDataNotFound},
		{name: "corrupt dataset", err: &dataset.LoadError{Path: "data.csv", Line: 3, Column: "QTY", Err: errors.New("bad number")}, wantStatus: http.StatusInternalServerError, wantType: apierrors.TypeDataCorrupted},
		{name: "invalid filter", err: services.ErrInvalidFilter, wantStatus: http.StatusBadRequest, wantType: apierrors.TypeValidation},
		{name: "deadline", err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout, wantType: apierrors.TypeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			svc.On("GetMonthlyTrend", mock.Anything).Return(services.TrendResult{}, tt.err)

			rec := serve(newTestRouter(t, svc), http.MethodGet, "/api/v1/trend/monthly")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantType, decodeBody(t, rec)["type"])
		})
	}
}

func TestDashboardHandler_MissingForecast(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("GetForecast").Return(domain.Forecast{}, fmt.Errorf("forecast: %w", dataset.ErrMissingOptionalData))

	rec := serve(newTestRouter(t, svc), http.MethodGet, "/api/v1/forecast")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, apierrors.TypeDataUnavailable, body["type"])
	assert.Equal(t, false, body["available"])
}

func TestDashboardHandler_EmptyResultIsNotAnError(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("GetKPITotals", mock.Anything).Return(services.KPIResult{Status: domain.StatusEmpty}, nil)

	rec := serve(newTestRouter(t, svc), http.MethodGet, "/api/v1/kpis?icb=Nowhere")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "empty", decodeBody(t, rec)["status"])
}

func TestDashboardHandler_RecordsArePaged(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("GetFilteredRecords", mock.Anything).Return(services.RecordsResult{
		Status:  domain.StatusOK,
		Total:   3,
		Records: testutil.ScenarioRecords(),
	}, nil)

	rec := serve(newTestRouter(t, svc), http.MethodGet, "/api/v1/records?offset=1&limit=1")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(3), body["total"])
	records, ok := body["records"].([]interface{})
	require.True(t, ok)
	require.Len(t, records, 1)
	assert.Equal(t, "ICB_B", records[0].(map[string]interface{})["icb_name"])
}

func TestDashboardHandler_TopGroupsQuery(t *testing.T) {
	svc := new(MockDashboardService)
	want := services.TopQuery{Dimension: domain.DimensionSetting, Measure: domain.MeasureNIC, Period: domain.PeriodLast12, N: 5}
	svc.On("GetTopGroups", mock.Anything, want).Return(services.TopResult{Status: domain.StatusOK, Title: "Top 5 Settings by NIC (Last 12 Months)"}, nil)

	rec := serve(newTestRouter(t, svc), http.MethodGet, "/api/v1/top/setting?measure=nic&period=last12&top=5")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Top 5 Settings by NIC (Last 12 Months)", decodeBody(t, rec)["title"])
	svc.AssertExpectations(t)
}

func TestDashboardHandler_TopRegionsDefaultN(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("GetTopRegions", mock.Anything, config.DefaultTopN).Return(services.TopResult{Status: domain.StatusOK}, nil)

	rec := serve(newTestRouter(t, svc), http.MethodGet, "/api/v1/top-regions")

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDashboardHandler_Downloads(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		method      string
		contentType string
		filename    string
	}{
		{name: "filtered data", target: "/api/v1/export/filtered_data.csv", method: "ExportCSV", contentType: ContentTypeCSV, filename: FilteredDataFile},
		{name: "monthly summary", target: "/api/v1/export/filtered_monthly_summary.csv", method: "ExportMonthlyCSV", contentType: ContentTypeCSV, filename: MonthlySummaryFile},
		{name: "workbook", target: "/api/v1/export/dashboard.xlsx", method: "ExportWorkbook", contentType: ContentTypeXLSX, filename: DashboardWorkbook},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			svc.On(tt.method, mock.Anything).Return([]byte("payload"), nil)

			rec := serve(newTestRouter(t, svc), http.MethodGet, tt.target)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Equal(t, fmt.Sprintf("attachment; filename=%q", tt.filename), rec.Header().Get("Content-Disposition"))
			assert.Equal(t, "payload", rec.Body.String())
		})
	}
}

func TestDashboardHandler_ExportFailures(t *testing.T) {
	t.Run("encoder failure", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("ExportCSV", mock.Anything).Return(nil, errors.New("disk full"))

		rec := serve(newTestRouter(t, svc), http.MethodGet, "/api/v1/export/filtered_data.csv")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, apierrors.TypeExportFailed, decodeBody(t, rec)["type"])
	})

	t.Run("dataset missing passes through", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("ExportWorkbook", mock.Anything).Return(nil, dataset.ErrNoDatasetFound)

		rec := serve(newTestRouter(t, svc), http.MethodGet, "/api/v1/export/dashboard.xlsx")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestDashboardHandler_Charts(t *testing.T) {
	png := []byte("\x89PNG fake")

	t.Run("trend", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("TrendChart", mock.Anything, charts.DefaultSize).Return(png, nil)

		rec := serve(newTestRouter(t, svc), http.MethodGet, "/api/v1/charts/trend.png")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ContentTypePNG, rec.Header().Get("Content-Type"))
		assert.Equal(t, png, rec.Body.Bytes())
	})

	t.Run("dimension trend", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("DimensionTrendChart", mock.Anything, domain.DimensionDose, domain.MeasureITEMS, charts.DefaultSize).Return(png, nil)

		rec := serve(newTestRouter(t, svc), http.MethodGet, "/api/v1/charts/trend/dose.png?measure=items")

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("top regions", func(t *testing.T) {
		svc := new(MockDashboardService)
		q := services.TopQuery{Dimension: domain.DimensionICB, N: config.DefaultTopN}
		svc.On("TopChart", mock.Anything, q, charts.DefaultSize).Return(png, nil)

		rec := serve(newTestRouter(t, svc), http.MethodGet, "/api/v1/charts/top-regions.png")

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		svc.AssertExpectations(t)
	})
}

func TestDashboardHandler_Reload(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Reload").Return(services.DatasetInfo{Records: 3, Generation: 2}, nil)

	rec := serve(newTestRouter(t, svc), http.MethodPost, "/api/v1/dataset/reload")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(2), body["dataset"].(map[string]interface{})["generation"])

	rec = serve(newTestRouter(t, svc), http.MethodGet, "/api/v1/dataset/reload")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDashboardHandler_GeoFilteredFlag(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("GetGeoPoints", mock.Anything, true).Return(services.GeoResult{Status: domain.StatusOK, Filtered: true}, nil)

	rec := serve(newTestRouter(t, svc), http.MethodGet, "/api/v1/geo?filtered=true&icb=ICB_A")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["filtered"])
	svc.AssertExpectations(t)
}

func TestFilterQueryEncode(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2024-01&setting=Primary&setting=Hospital&brand=", nil)
	fq := ParseFilterQuery(req)

	assert.Equal(t, "brand=&from=2024-01&setting=Primary&setting=Hospital", fq.Encode())

	req = httptest.NewRequest(http.MethodGet, "/?icb="+url.QueryEscape(bathICB), nil)
	fq = ParseFilterQuery(req)
	again := ParseFilterQuery(httptest.NewRequest(http.MethodGet, "/?"+fq.Encode(), nil))
	assert.Equal(t, fq.Spec(), again.Spec())
}
