package dataprocessing

import (
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

const (
	// DisplayFloor is the largest value zero and negative quantities are
	// raised to before scaling, so every bubble stays visible.
	DisplayFloor = 0.1
	// DisplayMax is the display size of the largest quantity.
	DisplayMax = 40.0
)

// SettingColors maps care settings to their chart colours.
var SettingColors = map[string]string{
	"Primary":        "#1f77b4",
	"Hosp_Community": "#ff7f0e",
	"Hospital":       "#2ca02c",
}

// DoseSymbols maps dose groups to marker symbols.
var DoseSymbols = map[string]string{
	"25mg": "circle",
	"50mg": "square",
}

const (
	defaultColor  = "#888888"
	defaultSymbol = "circle"
)

// DisplayScale maps quantities to strictly positive bubble sizes. Values
// <= 0 are raised to the smaller of DisplayFloor and the smallest positive
// quantity, then everything is scaled linearly so the largest value equals
// DisplayMax. A non-positive quantity never outsizes a positive one.
func DisplayScale(qty []float64) []float64 {
	floor := DisplayFloor
	for _, q := range qty {
		if q > 0 && q < floor {
			floor = q
		}
	}

	out := make([]float64, len(qty))
	peak := 0.0
	for i, q := range qty {
		if q <= 0 {
			q = floor
		}
		out[i] = q
		if q > peak {
			peak = q
		}
	}
	for i := range out {
		out[i] = out[i] / peak * DisplayMax
	}
	return out
}

// GeoFrame turns geo-enriched records into map points. Records without
// coordinates are skipped.
func GeoFrame(records []domain.Record) []domain.GeoPoint {
	located := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if r.Location != nil {
			located = append(located, r)
		}
	}

	qty := make([]float64, len(located))
	for i, r := range located {
		qty[i] = r.QTY.InexactFloat64()
	}
	sizes := DisplayScale(qty)

	points := make([]domain.GeoPoint, len(located))
	for i, r := range located {
		points[i] = domain.GeoPoint{
			Record:     r,
			QTYDisplay: sizes[i],
			Color:      SettingColor(r.SettingType),
			Symbol:     DoseSymbol(r.ProductGroup),
		}
	}
	return points
}

// SettingColor returns the chart colour for a care setting.
func SettingColor(setting string) string {
	if c, ok := SettingColors[setting]; ok {
		return c
	}
	return defaultColor
}

// DoseSymbol returns the marker symbol for a dose group.
func DoseSymbol(dose string) string {
	if s, ok := DoseSymbols[dose]; ok {
		return s
	}
	return defaultSymbol
}
