package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/ImamSharif/Healthcare-analytics/internal/charts"
	"github.com/ImamSharif/Healthcare-analytics/internal/config"
	"github.com/ImamSharif/Healthcare-analytics/internal/dataset"
	apierrors "github.com/ImamSharif/Healthcare-analytics/internal/errors"
	appmw "github.com/ImamSharif/Healthcare-analytics/internal/middleware"
	"github.com/ImamSharif/Healthcare-analytics/internal/services"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// Download content types.
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePNG  = "image/png"
)

// Download file names.
const (
	FilteredDataFile   = "filtered_data.csv"
	MonthlySummaryFile = "filtered_monthly_summary.csv"
	DashboardWorkbook  = "dashboard.xlsx"
)

type ctxKey string

const (
	filterCtxKey    ctxKey = "filter"
	dimensionCtxKey ctxKey = "dimension"
)

// DashboardHandler serves the dashboard query API with RFC 7807 errors.
type DashboardHandler struct {
	service      DashboardServiceInterface
	query        config.QueryConfig
	validation   *appmw.ValidationMiddleware
	params       *appmw.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(service DashboardServiceInterface, query config.QueryConfig, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	if query.DefaultTopN <= 0 {
		query.DefaultTopN = config.DefaultTopN
	}
	if query.MaxTopN <= 0 {
		query.MaxTopN = config.MaxTopN
	}
	if query.DefaultPageSize <= 0 {
		query.DefaultPageSize = config.DefaultPageSize
	}
	if query.MaxPageSize <= 0 {
		query.MaxPageSize = config.MaxPageSize
	}
	return &DashboardHandler{
		service:      service,
		query:        query,
		validation:   appmw.NewValidationMiddleware(logger, errorHandler),
		params:       appmw.NewQueryParamValidator(errorHandler),
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the /api/v1 routes.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/options", h.GetOptions)
	r.Get("/dataset", h.GetDataset)
	r.With(h.validation.ValidateRequest).Post("/dataset/reload", h.ReloadDataset)
	r.Get("/forecast", h.GetForecast)
	r.Get("/monthly-summary", h.GetMonthlySummary)

	// Every route below takes the shared filter query.
	r.Group(func(r chi.Router) {
		r.Use(h.FilterCtx)

		r.Get("/records", h.GetRecords)
		r.Get("/kpis", h.GetKPIs)
		r.Get("/trend/monthly", h.GetMonthlyTrend)
		r.With(h.DimensionCtx).Get("/trend/{dimension}", h.GetTrendByDimension)
		r.Get("/top-regions", h.GetTopRegions)
		r.With(h.DimensionCtx).Get("/top/{dimension}", h.GetTopGroups)
		r.Get("/geo", h.GetGeo)

		r.Route("/export", func(r chi.Router) {
			r.Get("/"+FilteredDataFile, h.ExportFilteredData)
			r.Get("/"+MonthlySummaryFile, h.ExportMonthlySummary)
			r.Get("/"+DashboardWorkbook, h.ExportWorkbook)
		})

		r.Route("/charts", func(r chi.Router) {
			r.Get("/trend.png", h.TrendChart)
			r.With(h.DimensionCtx).Get("/trend/{dimension}.png", h.DimensionTrendChart)
			r.Get("/top-regions.png", h.TopRegionsChart)
		})
	})

	return r
}

// FilterCtx parses and validates the filter query and stores the resulting
// FilterQuery in the request context.
func (h *DashboardHandler) FilterCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fq := ParseFilterQuery(r)
		if err := h.validation.ValidateStruct(fq); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.logger.DebugContext(r.Context(), "filter parsed", slog.String("filter", fq.Encode()))
		next.ServeHTTP(w, r.WithContext(withValue(r, filterCtxKey, fq)))
	})
}

// DimensionCtx resolves the {dimension} URL parameter, accepting column
// names and short aliases.
func (h *DashboardHandler) DimensionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "dimension")
		dim, err := domain.ParseDimension(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("dimension", fmt.Sprintf("Unknown dimension %q", raw)))
			return
		}
		next.ServeHTTP(w, r.WithContext(withValue(r, dimensionCtxKey, dim)))
	})
}

func filterFrom(r *http.Request) FilterQuery {
	fq, ok := r.Context().Value(filterCtxKey).(FilterQuery)
	if !ok {
		return ParseFilterQuery(r)
	}
	return fq
}

func dimensionFrom(r *http.Request) domain.Dimension {
	dim, _ := r.Context().Value(dimensionCtxKey).(domain.Dimension)
	return dim
}

// GetOptions handles GET /api/v1/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.GetFilterOptions(r.Context())
	if err != nil {
		h.fail(w, r, "get filter options", err)
		return
	}
	render.JSON(w, r, opts)
}

// GetDataset handles GET /api/v1/dataset
func (h *DashboardHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.GetDatasetInfo(r.Context())
	if err != nil {
		h.fail(w, r, "get dataset info", err)
		return
	}
	render.JSON(w, r, info)
}

// ReloadDataset handles POST /api/v1/dataset/reload
func (h *DashboardHandler) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "reloading dataset",
		slog.String("request_id", middleware.GetReqID(r.Context())))

	info, err := h.service.Reload(r.Context())
	if err != nil {
		h.fail(w, r, "reload dataset", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status":  "success",
		"dataset": info,
	})
}

// GetRecords handles GET /api/v1/records
func (h *DashboardHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	offset, ok := h.params.ValidateInt(w, r, "offset", 0, 1<<31-1, 0)
	if !ok {
		return
	}
	limit, ok := h.params.ValidateInt(w, r, "limit", 1, h.query.MaxPageSize, h.query.DefaultPageSize)
	if !ok {
		return
	}

	res, err := h.service.GetFilteredRecords(r.Context(), filterFrom(r).Spec())
	if err != nil {
		h.fail(w, r, "get records", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status":  res.Status,
		"total":   res.Total,
		"offset":  offset,
		"limit":   limit,
		"records": res.Page(offset, limit),
	})
}

// GetKPIs handles GET /api/v1/kpis
func (h *DashboardHandler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetKPITotals(r.Context(), filterFrom(r).Spec())
	if err != nil {
		h.fail(w, r, "get kpi totals", err)
		return
	}
	render.JSON(w, r, res)
}

// GetMonthlyTrend handles GET /api/v1/trend/monthly
func (h *DashboardHandler) GetMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetMonthlyTrend(r.Context(), filterFrom(r).Spec())
	if err != nil {
		h.fail(w, r, "get monthly trend", err)
		return
	}
	render.JSON(w, r, res)
}

// GetTrendByDimension handles GET /api/v1/trend/{dimension}
func (h *DashboardHandler) GetTrendByDimension(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetTrendByDimension(r.Context(), filterFrom(r).Spec(), dimensionFrom(r))
	if err != nil {
		h.fail(w, r, "get trend by dimension", err)
		return
	}
	render.JSON(w, r, res)
}

// GetTopRegions handles GET /api/v1/top-regions
func (h *DashboardHandler) GetTopRegions(w http.ResponseWriter, r *http.Request) {
	n, ok := h.params.ValidateInt(w, r, "top", 1, h.query.MaxTopN, h.query.DefaultTopN)
	if !ok {
		return
	}
	res, err := h.service.GetTopRegions(r.Context(), filterFrom(r).Spec(), n)
	if err != nil {
		h.fail(w, r, "get top regions", err)
		return
	}
	render.JSON(w, r, res)
}

// GetTopGroups handles GET /api/v1/top/{dimension}
func (h *DashboardHandler) GetTopGroups(w http.ResponseWriter, r *http.Request) {
	q, ok := h.topQuery(w, r, dimensionFrom(r))
	if !ok {
		return
	}
	res, err := h.service.GetTopGroups(r.Context(), filterFrom(r).Spec(), q)
	if err != nil {
		h.fail(w, r, "get top groups", err)
		return
	}
	render.JSON(w, r, res)
}

func (h *DashboardHandler) topQuery(w http.ResponseWriter, r *http.Request, dim domain.Dimension) (services.TopQuery, bool) {
	n, ok := h.params.ValidateInt(w, r, "top", 1, h.query.MaxTopN, h.query.DefaultTopN)
	if !ok {
		return services.TopQuery{}, false
	}
	fq := filterFrom(r)
	q := services.TopQuery{Dimension: dim, N: n}
	if fq.Measure != "" {
		q.Measure, _ = domain.ParseMeasure(fq.Measure)
	}
	if fq.Period != "" {
		q.Period, _ = domain.ParsePeriod(fq.Period)
	}
	return q, true
}

// GetGeo handles GET /api/v1/geo
func (h *DashboardHandler) GetGeo(w http.ResponseWriter, r *http.Request) {
	filtered := false
	if raw := r.URL.Query().Get("filtered"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("filtered", "filtered must be true or false"))
			return
		}
		filtered = b
	}

	res, err := h.service.GetGeoPoints(r.Context(), filterFrom(r).Spec(), filtered)
	if err != nil {
		h.fail(w, r, "get geo points", err)
		return
	}
	render.JSON(w, r, res)
}

// GetForecast handles GET /api/v1/forecast
func (h *DashboardHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	fc, err := h.service.GetForecast(r.Context())
	if err != nil {
		h.fail(w, r, "get forecast", err)
		return
	}
	render.JSON(w, r, fc)
}

// GetMonthlySummary handles GET /api/v1/monthly-summary
func (h *DashboardHandler) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetMonthlySummary(r.Context())
	if err != nil {
		h.fail(w, r, "get monthly summary", err)
		return
	}
	render.JSON(w, r, res)
}

// ExportFilteredData handles GET /api/v1/export/filtered_data.csv
func (h *DashboardHandler) ExportFilteredData(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ExportCSV(r.Context(), filterFrom(r).Spec())
	if err != nil {
		h.fail(w, r, "export filtered data", exportFailed("csv", err))
		return
	}
	h.download(w, r, FilteredDataFile, ContentTypeCSV, data)
}

// ExportMonthlySummary handles GET /api/v1/export/filtered_monthly_summary.csv
func (h *DashboardHandler) ExportMonthlySummary(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ExportMonthlyCSV(r.Context(), filterFrom(r).Spec())
	if err != nil {
		h.fail(w, r, "export monthly summary", exportFailed("csv", err))
		return
	}
	h.download(w, r, MonthlySummaryFile, ContentTypeCSV, data)
}

// ExportWorkbook handles GET /api/v1/export/dashboard.xlsx
func (h *DashboardHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ExportWorkbook(r.Context(), filterFrom(r).Spec())
	if err != nil {
		h.fail(w, r, "export workbook", exportFailed("xlsx", err))
		return
	}
	h.download(w, r, DashboardWorkbook, ContentTypeXLSX, data)
}

// TrendChart handles GET /api/v1/charts/trend.png
func (h *DashboardHandler) TrendChart(w http.ResponseWriter, r *http.Request) {
	png, err := h.service.TrendChart(r.Context(), filterFrom(r).Spec(), charts.DefaultSize)
	if err != nil {
		h.fail(w, r, "render trend chart", err)
		return
	}
	h.image(w, png)
}

// DimensionTrendChart handles GET /api/v1/charts/trend/{dimension}.png
func (h *DashboardHandler) DimensionTrendChart(w http.ResponseWriter, r *http.Request) {
	var measure domain.Measure
	if fq := filterFrom(r); fq.Measure != "" {
		measure, _ = domain.ParseMeasure(fq.Measure)
	}
	png, err := h.service.DimensionTrendChart(r.Context(), filterFrom(r).Spec(), dimensionFrom(r), measure, charts.DefaultSize)
	if err != nil {
		h.fail(w, r, "render dimension trend chart", err)
		return
	}
	h.image(w, png)
}

// TopRegionsChart handles GET /api/v1/charts/top-regions.png
func (h *DashboardHandler) TopRegionsChart(w http.ResponseWriter, r *http.Request) {
	q, ok := h.topQuery(w, r, domain.DimensionICB)
	if !ok {
		return
	}
	png, err := h.service.TopChart(r.Context(), filterFrom(r).Spec(), q, charts.DefaultSize)
	if err != nil {
		h.fail(w, r, "render top regions chart", err)
		return
	}
	h.image(w, png)
}

func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.DebugContext(r.Context(), op+" failed",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetReqID(r.Context())))
	h.errorHandler.HandleError(w, r, err)
}

func (h *DashboardHandler) download(w http.ResponseWriter, r *http.Request, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.WarnContext(r.Context(), "download write failed",
			slog.String("file", filename),
			slog.String("error", err.Error()))
	}
}

func (h *DashboardHandler) image(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", ContentTypePNG)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func withValue(r *http.Request, key ctxKey, val any) context.Context {
	return context.WithValue(r.Context(), key, val)
}

// exportFailed wraps encoder failures as EXPORT_FAILED and passes query
// and dataset errors through unchanged.
func exportFailed(format string, err error) error {
	switch {
	case errors.Is(err, apierrors.ErrInvalidInput),
		errors.Is(err, dataset.ErrNoDatasetFound),
		errors.Is(err, dataset.ErrMissingOptionalData),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		dataset.IsLoadError(err):
		return err
	}
	return apierrors.ExportError(format, err)
}
