package charts

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ImamSharif/Healthcare-analytics/internal/dataprocessing"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// Size is the rendered image size.
type Size struct {
	Width  vg.Length
	Height vg.Length
}

// DefaultSize is used when a zero Size is passed.
var DefaultSize = Size{Width: 10 * vg.Inch, Height: 5 * vg.Inch}

var measureColors = map[domain.Measure]color.Color{
	domain.MeasureQTY:   color.RGBA{R: 31, G: 119, B: 180, A: 255},
	domain.MeasureNIC:   color.RGBA{R: 214, G: 39, B: 40, A: 255},
	domain.MeasureITEMS: color.RGBA{R: 148, G: 103, B: 189, A: 255},
}

// MonthlyTrend draws one line per measure over the known months of trend.
func MonthlyTrend(trend []domain.MonthlyTotal, measures []domain.Measure, size Size) ([]byte, error) {
	if len(measures) == 0 {
		measures = domain.Measures()
	}

	p := newPlot("Monthly Trend", "Month", measureLabel(measures))

	for _, m := range measures {
		points := make(plotter.XYs, 0, len(trend))
		for _, t := range trend {
			if !t.Month.IsKnown() {
				continue
			}
			points = append(points, plotter.XY{X: float64(t.Month), Y: t.Measure(m).InexactFloat64()})
		}
		if len(points) == 0 {
			continue
		}
		if err := addLine(p, string(m), points, measureColors[m]); err != nil {
			return nil, err
		}
		p.X.Tick.Marker = monthTicker{}
	}
	return render(p, size)
}

// DimensionTrend draws measure over time with one line per value of d.
// Care settings use the dashboard palette; other dimensions cycle through
// the default plot colours.
func DimensionTrend(rows []domain.DimensionTotal, d domain.Dimension, measure domain.Measure, size Size) ([]byte, error) {
	p := newPlot(fmt.Sprintf("%s by %s", measure, d), "Month", string(measure))

	series := make(map[string]plotter.XYs)
	var order []string
	for _, r := range rows {
		if !r.Month.IsKnown() {
			continue
		}
		key := r.Value
		if key == "" {
			key = "(blank)"
		}
		if _, ok := series[key]; !ok {
			order = append(order, key)
		}
		series[key] = append(series[key], plotter.XY{X: float64(r.Month), Y: r.Measure(measure).InexactFloat64()})
	}

	for i, key := range sortedKeys(order) {
		c := plotutil.Color(i)
		if d == domain.DimensionSetting {
			c = hexColor(dataprocessing.SettingColor(key))
		}
		if err := addLine(p, key, series[key], c); err != nil {
			return nil, err
		}
		p.X.Tick.Marker = monthTicker{}
	}
	return render(p, size)
}

// TopGroups draws ranked groups as horizontal bars, the highest ranked at
// the top.
func TopGroups(groups []domain.GroupTotal, measure domain.Measure, title string, size Size) ([]byte, error) {
	p := newPlot(title, string(measure), "")

	if len(groups) > 0 {
		values := make(plotter.Values, len(groups))
		labels := make([]string, len(groups))
		// Bars are drawn bottom up, so the first rank goes last.
		for i, g := range groups {
			j := len(groups) - 1 - i
			values[j] = g.Measure(measure).InexactFloat64()
			labels[j] = g.Key
		}

		bars, err := plotter.NewBarChart(values, vg.Points(14))
		if err != nil {
			return nil, fmt.Errorf("failed to build bar chart: %w", err)
		}
		bars.Horizontal = true
		bars.Color = measureColors[measure]
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)
		p.NominalY(labels...)
		p.X.Min = 0
	}
	return render(p, size)
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

func addLine(p *plot.Plot, name string, points plotter.XYs, c color.Color) error {
	line, err := plotter.NewLine(points)
	if err != nil {
		return fmt.Errorf("failed to build line %q: %w", name, err)
	}
	line.Color = c
	line.Width = vg.Points(2)

	dots, err := plotter.NewScatter(points)
	if err != nil {
		return fmt.Errorf("failed to build markers %q: %w", name, err)
	}
	dots.GlyphStyle.Color = c
	dots.GlyphStyle.Radius = vg.Points(2.5)
	dots.GlyphStyle.Shape = draw.CircleGlyph{}

	p.Add(line, dots)
	p.Legend.Add(name, line)
	return nil
}

func render(p *plot.Plot, size Size) ([]byte, error) {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultSize
	}
	w, err := p.WriterTo(size.Width, size.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create png canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render png: %w", err)
	}
	return buf.Bytes(), nil
}

// monthTicker labels whole months on an axis of domain.Month values.
type monthTicker struct{}

func (monthTicker) Ticks(min, max float64) []plot.Tick {
	lo, hi := int(math.Ceil(min)), int(math.Floor(max))
	if hi < lo {
		return nil
	}
	step := 1
	for (hi-lo)/step > 12 {
		step *= 2
	}

	var ticks []plot.Tick
	for v := lo; v <= hi; v++ {
		tick := plot.Tick{Value: float64(v)}
		if (v-lo)%step == 0 && domain.Month(v).IsKnown() {
			tick.Label = domain.Month(v).Label()
		}
		ticks = append(ticks, tick)
	}
	return ticks
}

func measureLabel(measures []domain.Measure) string {
	names := make([]string, len(measures))
	for i, m := range measures {
		names[i] = string(m)
	}
	return strings.Join(names, " / ")
}

func sortedKeys(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}

// hexColor parses #rrggbb. Malformed input yields grey.
func hexColor(s string) color.Color {
	grey := color.RGBA{R: 136, G: 136, B: 136, A: 255}
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return grey
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return grey
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
