// Command rxexport applies dashboard filters to a prescription dataset and
// writes the filtered extracts to disk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ImamSharif/Healthcare-analytics/internal/charts"
	"github.com/ImamSharif/Healthcare-analytics/internal/config"
	"github.com/ImamSharif/Healthcare-analytics/internal/dataprocessing"
	"github.com/ImamSharif/Healthcare-analytics/internal/dataset"
	"github.com/ImamSharif/Healthcare-analytics/internal/exporter"
	"github.com/ImamSharif/Healthcare-analytics/internal/files"
	"github.com/ImamSharif/Healthcare-analytics/internal/infrastructure"
	"github.com/ImamSharif/Healthcare-analytics/internal/services"
	"github.com/ImamSharif/Healthcare-analytics/internal/validation"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

const (
	trendChartFile = "monthly_trend.png"
	topChartFile   = "top_regions.png"
)

// options are the parsed command line flags. Dimension filters are only
// applied when their flag was given. Each occurrence adds one whole value
// and an empty value selects nothing.
type options struct {
	dataDir string
	outDir  string
	from    string
	to      string
	xlsx    bool
	charts  bool
	version bool
	filters map[domain.Dimension][]string
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to read .env file", slog.String("error", err.Error()))
	}

	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "rxexport: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return fmt.Errorf("failed to resolve paths: %w", err)
	}

	opts, err := parseFlags(args, paths, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetVersionString())
		return nil
	}

	logCfg := cfg.Logging
	logCfg.Output = "console"
	logger := infrastructure.NewLogger(stderr, logCfg)
	ctx = infrastructure.EnsureTraceID(ctx)

	spec, err := opts.spec()
	if err != nil {
		return err
	}

	validator := validation.NewFileValidator(logger)
	if _, err := validator.ValidateInputDirectory(opts.dataDir); err != nil {
		return err
	}
	if err := validator.ValidateOutputDirectory(opts.outDir); err != nil {
		return err
	}

	loader := dataset.NewLoader(files.NewDiscovery(opts.dataDir), dataset.NewMemoryCache[*dataset.Frame](), logger)
	repo := dataset.NewRepository(loader, dataset.Sources{
		Candidates:     cfg.Data.Candidates,
		MonthlySummary: cfg.Data.MonthlySummaryFile,
		Forecast:       cfg.Data.ForecastFile,
		Geo:            cfg.Data.GeoFile,
	}, logger)
	engine := dataprocessing.NewEngine(logger, dataprocessing.EngineConfig{
		ParallelThreshold: cfg.Data.ParallelThreshold,
		Workers:           cfg.Data.Workers,
	})
	svc := services.NewDashboardService(repo, engine, services.DashboardConfigFrom(cfg), logger)

	kpis, err := svc.GetKPITotals(ctx, spec)
	if err != nil {
		return err
	}

	if err := writeExtracts(ctx, svc, spec, opts.outDir, logger); err != nil {
		return err
	}

	out := files.NewManager(opts.outDir, logger)

	type artifact struct {
		name   string
		render func() ([]byte, error)
	}
	var artifacts []artifact
	if opts.xlsx {
		artifacts = append(artifacts, artifact{config.WorkbookExport, func() ([]byte, error) {
			return svc.ExportWorkbook(ctx, spec)
		}})
	}
	if opts.charts && kpis.Status == domain.StatusOK {
		artifacts = append(artifacts,
			artifact{trendChartFile, func() ([]byte, error) {
				return svc.TrendChart(ctx, spec, charts.DefaultSize)
			}},
			artifact{topChartFile, func() ([]byte, error) {
				return svc.TopChart(ctx, spec, services.TopQuery{Dimension: domain.DimensionICB}, charts.DefaultSize)
			}},
		)
	}

	for _, a := range artifacts {
		data, err := a.render()
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", a.name, err)
		}
		if _, err := out.WriteFile(a.name, data); err != nil {
			return err
		}
	}

	printKPIs(stdout, kpis)
	return nil
}

// writeExtracts writes the filtered records and their monthly totals as
// CSV files under dir.
func writeExtracts(ctx context.Context, svc *services.DashboardService, spec domain.FilterSpec, dir string, logger *slog.Logger) error {
	records, err := svc.GetFilteredRecords(ctx, spec)
	if err != nil {
		return err
	}
	trend, err := svc.GetMonthlyTrend(ctx, spec)
	if err != nil {
		return err
	}

	writer := exporter.NewCSVWriter(dir, logger)
	options := exporter.WriteOptions{BOMPrefix: svc.Config().ExportBOM}
	if _, err := writer.WriteCSV(config.FilteredDataExport, exporter.RecordsTable(records.Records, records.Columns), options); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.FilteredDataExport, err)
	}
	if _, err := writer.WriteCSV(config.MonthlySummaryExport, exporter.MonthlyTable(trend.Months), options); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.MonthlySummaryExport, err)
	}
	return nil
}

func parseFlags(args []string, paths *config.Paths, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("rxexport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{filters: make(map[domain.Dimension][]string)}
	fs.StringVar(&opts.dataDir, "data", paths.DataDir, "directory containing the dataset files")
	fs.StringVar(&opts.outDir, "out", paths.ExportDir, "directory the extracts are written to")
	fs.StringVar(&opts.from, "from", "", "first month of the range, e.g. 2024-01")
	fs.StringVar(&opts.to, "to", "", "last month of the range, e.g. 2024-12")
	fs.BoolVar(&opts.xlsx, "xlsx", false, "also write "+config.WorkbookExport)
	fs.BoolVar(&opts.charts, "charts", false, "also write the trend and top regions charts as PNG")
	fs.BoolVar(&opts.version, "version", false, "print the version and exit")

	dimFlags := map[string]domain.Dimension{
		"icb":     domain.DimensionICB,
		"setting": domain.DimensionSetting,
		"dose":    domain.DimensionDose,
		"brand":   domain.DimensionBrand,
	}
	raw := make(map[string]*valueList, len(dimFlags))
	for name := range dimFlags {
		raw[name] = &valueList{}
		fs.Var(raw[name], name, name+" value to keep; repeat the flag for several values")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if d, ok := dimFlags[f.Name]; ok {
			opts.filters[d] = raw[f.Name].values
		}
	})

	opts.dataDir = filepath.Clean(opts.dataDir)
	opts.outDir = filepath.Clean(opts.outDir)
	return opts, nil
}

// valueList is a repeatable flag. Values are kept whole since ICB names
// contain commas.
type valueList struct {
	values []string
}

func (l *valueList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(l.values, "; ")
}

func (l *valueList) Set(s string) error {
	if s = strings.TrimSpace(s); s != "" {
		l.values = append(l.values, s)
	}
	return nil
}

func (o *options) spec() (domain.FilterSpec, error) {
	r := domain.AllTime()
	if o.from != "" {
		m, err := domain.ParseMonth(o.from)
		if err != nil {
			return domain.FilterSpec{}, fmt.Errorf("-from: %w", err)
		}
		r.From = m
	}
	if o.to != "" {
		m, err := domain.ParseMonth(o.to)
		if err != nil {
			return domain.FilterSpec{}, fmt.Errorf("-to: %w", err)
		}
		r.To = m
	}
	if err := r.Validate(); err != nil {
		return domain.FilterSpec{}, err
	}

	spec := domain.NewFilterSpec(r)
	for d, vals := range o.filters {
		spec = spec.With(d, vals...)
	}
	return spec, nil
}

func printKPIs(w io.Writer, kpis services.KPIResult) {
	t := kpis.Totals
	fmt.Fprintf(w, "Status: %s\n", kpis.Status)
	fmt.Fprintf(w, "Rows:   %d\n", t.Rows)
	fmt.Fprintf(w, "QTY:    %s\n", t.QTY.String())
	fmt.Fprintf(w, "NIC:    %s\n", t.NIC.StringFixed(2))
	fmt.Fprintf(w, "ITEMS:  %s\n", t.ITEMS.String())
	q := t.Quality
	if q.MissingQTY+q.MissingNIC+q.MissingITEMS > 0 {
		fmt.Fprintf(w, "Missing measures: QTY=%d NIC=%d ITEMS=%d\n",
			q.MissingQTY, q.MissingNIC, q.MissingITEMS)
	}
	if q.Negatives() > 0 {
		fmt.Fprintf(w, "Negative measures: QTY=%d NIC=%d ITEMS=%d\n",
			q.NegativeQTY, q.NegativeNIC, q.NegativeITEMS)
	}
}
