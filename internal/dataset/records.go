package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// Forecast column names.
const (
	ColumnForecastQTY   = "Forecast_QTY"
	ColumnForecastNIC   = "Forecast_NIC"
	ColumnForecastITEMS = "Forecast_ITEMS"
)

var requiredColumns = []string{
	domain.ColumnMonth,
	domain.ColumnQTY,
	domain.ColumnNIC,
	domain.ColumnITEMS,
}

var missingTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"na":   true,
	"n/a":  true,
	"null": true,
	"none": true,
}

// ParseRecords converts a long-format frame into a month-ordered dataset.
// Month, QTY, NIC and ITEMS are required; categorical and geo columns are
// optional. Unparseable months become domain.UnknownMonth. Negative
// measures are kept and flagged in Record.Negative.
func ParseRecords(frame *Frame) (*domain.Dataset, error) {
	for _, col := range requiredColumns {
		if !frame.Has(col) {
			return nil, loadErr(frame.Path, 1, col, errors.New("required column missing"))
		}
	}
	hasGeo := frame.Has(domain.ColumnLatitude) && frame.Has(domain.ColumnLongitude)
	extra := extraColumns(frame.Columns)

	ds := &domain.Dataset{
		Source:   frame.Path,
		Columns:  append([]string(nil), frame.Columns...),
		Records:  make([]domain.Record, 0, frame.Len()),
		LoadedAt: time.Now(),
	}

	for i := range frame.Rows {
		rec := domain.Record{
			Month:        frame.Month(i, domain.ColumnMonth),
			ICBName:      frame.Value(i, domain.ColumnICBName),
			SettingType:  frame.Value(i, domain.ColumnSettingType),
			ProductGroup: frame.Value(i, domain.ColumnProductGroup),
			BNFName:      frame.Value(i, domain.ColumnBNFName),
			PostCode:     frame.Value(i, domain.ColumnPostCode),
		}
		if !rec.Month.IsKnown() {
			ds.UnknownMonths++
		}
		if len(extra) > 0 {
			rec.Extra = make(map[string]string, len(extra))
			for _, col := range extra {
				rec.Extra[col] = frame.Value(i, col)
			}
		}

		for _, m := range domain.Measures() {
			value, missing, err := parseMeasure(frame.Value(i, string(m)))
			if err != nil {
				return nil, loadErr(frame.Path, frame.line(i), string(m), err)
			}
			if missing {
				rec.Missing = rec.Missing.With(m)
			}
			if value.IsNegative() {
				rec.Negative = rec.Negative.With(m)
			}
			switch m {
			case domain.MeasureQTY:
				rec.QTY = value
			case domain.MeasureNIC:
				rec.NIC = value
			case domain.MeasureITEMS:
				rec.ITEMS = value
			}
		}

		if rec.Negative != 0 {
			ds.NegativeRows++
		}

		if hasGeo {
			loc, err := parseCoordinates(frame, i)
			if err != nil {
				return nil, err
			}
			rec.Location = loc
		}
		ds.Records = append(ds.Records, rec)
	}

	sort.SliceStable(ds.Records, func(a, b int) bool {
		return domain.CompareMonths(ds.Records[a].Month, ds.Records[b].Month) < 0
	})
	return ds, nil
}

// ParseGeo parses the geo-enrichment file. Latitude and Longitude are
// required on top of the long-format columns.
func ParseGeo(frame *Frame) (*domain.Dataset, error) {
	for _, col := range []string{domain.ColumnLatitude, domain.ColumnLongitude} {
		if !frame.Has(col) {
			return nil, loadErr(frame.Path, 1, col, errors.New("required column missing"))
		}
	}
	return ParseRecords(frame)
}

// ParseForecast reads pre-computed forecast rows. Only the forecast
// measure columns present in the file are populated; the returned measures
// list which ones those are.
func ParseForecast(frame *Frame) ([]domain.ForecastPoint, []domain.Measure, error) {
	if !frame.Has(domain.ColumnMonth) {
		return nil, nil, loadErr(frame.Path, 1, domain.ColumnMonth, errors.New("required column missing"))
	}

	columns := map[domain.Measure]string{
		domain.MeasureQTY:   ColumnForecastQTY,
		domain.MeasureNIC:   ColumnForecastNIC,
		domain.MeasureITEMS: ColumnForecastITEMS,
	}
	var present []domain.Measure
	for _, m := range domain.Measures() {
		if frame.Has(columns[m]) {
			present = append(present, m)
		}
	}

	points := make([]domain.ForecastPoint, 0, frame.Len())
	for i := range frame.Rows {
		month := frame.Month(i, domain.ColumnMonth)
		if !month.IsKnown() {
			_, err := domain.ParseMonth(frame.Value(i, domain.ColumnMonth))
			if err == nil {
				err = domain.ErrUnparseableMonth
			}
			return nil, nil, loadErr(frame.Path, frame.line(i), domain.ColumnMonth, err)
		}
		p := domain.ForecastPoint{Month: month}
		for _, m := range present {
			value, missing, err := parseMeasure(frame.Value(i, columns[m]))
			if err != nil {
				return nil, nil, loadErr(frame.Path, frame.line(i), columns[m], err)
			}
			if missing {
				continue
			}
			v := value
			switch m {
			case domain.MeasureQTY:
				p.QTY = &v
			case domain.MeasureNIC:
				p.NIC = &v
			case domain.MeasureITEMS:
				p.ITEMS = &v
			}
		}
		points = append(points, p)
	}

	sort.SliceStable(points, func(a, b int) bool {
		return points[a].Month < points[b].Month
	})
	return points, present, nil
}

// extraColumns returns the header columns Record has no field for, in
// header order.
func extraColumns(header []string) []string {
	modelled := make(map[string]bool)
	for _, c := range domain.ModelledColumns() {
		modelled[c] = true
	}
	var out []string
	for _, c := range header {
		if !modelled[c] {
			out = append(out, c)
		}
	}
	return out
}

// parseMeasure parses an exact decimal. Empty and NaN-like cells are
// reported as missing and read as zero.
func parseMeasure(s string) (decimal.Decimal, bool, error) {
	s = strings.TrimSpace(s)
	if missingTokens[strings.ToLower(s)] {
		return decimal.Zero, true, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid number %q", s)
	}
	return d, false, nil
}

func parseCoordinates(frame *Frame, i int) (*domain.Coordinates, error) {
	latRaw := frame.Value(i, domain.ColumnLatitude)
	lonRaw := frame.Value(i, domain.ColumnLongitude)
	if missingTokens[strings.ToLower(latRaw)] || missingTokens[strings.ToLower(lonRaw)] {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, loadErr(frame.Path, frame.line(i), domain.ColumnLatitude, fmt.Errorf("invalid latitude %q", latRaw))
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, loadErr(frame.Path, frame.line(i), domain.ColumnLongitude, fmt.Errorf("invalid longitude %q", lonRaw))
	}
	return &domain.Coordinates{Latitude: lat, Longitude: lon}, nil
}
