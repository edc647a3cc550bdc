package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Column names of the long-format prescription files.
const (
	ColumnMonth        = "Month"
	ColumnICBName      = "ICB_Name"
	ColumnSettingType  = "Quviviq_Type"
	ColumnProductGroup = "Product_Group"
	ColumnBNFName      = "BNF_Name"
	ColumnQTY          = "QTY"
	ColumnNIC          = "NIC"
	ColumnITEMS        = "ITEMS"
	ColumnPostCode     = "Post_Code"
	ColumnLatitude     = "Latitude"
	ColumnLongitude    = "Longitude"
)

// ModelledColumns lists the columns Record has a field for.
func ModelledColumns() []string {
	return []string{
		ColumnMonth, ColumnICBName, ColumnSettingType, ColumnProductGroup, ColumnBNFName,
		ColumnQTY, ColumnNIC, ColumnITEMS, ColumnPostCode, ColumnLatitude, ColumnLongitude,
	}
}

// Dimension is a categorical column that can be filtered and grouped on.
type Dimension string

const (
	DimensionICB     Dimension = ColumnICBName
	DimensionSetting Dimension = ColumnSettingType
	DimensionDose    Dimension = ColumnProductGroup
	DimensionBrand   Dimension = ColumnBNFName
)

// Dimensions lists every categorical dimension in column order.
func Dimensions() []Dimension {
	return []Dimension{DimensionICB, DimensionSetting, DimensionDose, DimensionBrand}
}

var dimensionAliases = map[string]Dimension{
	"icb_name":      DimensionICB,
	"icb":           DimensionICB,
	"region":        DimensionICB,
	"quviviq_type":  DimensionSetting,
	"setting":       DimensionSetting,
	"product_group": DimensionDose,
	"dose":          DimensionDose,
	"bnf_name":      DimensionBrand,
	"brand":         DimensionBrand,
}

// ParseDimension accepts a column name or a short alias such as "setting".
func ParseDimension(s string) (Dimension, error) {
	if d, ok := dimensionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return "", fmt.Errorf("unknown dimension %q", s)
}

// Measure is a numeric column that is summed.
type Measure string

const (
	MeasureQTY   Measure = ColumnQTY
	MeasureNIC   Measure = ColumnNIC
	MeasureITEMS Measure = ColumnITEMS
)

// Measures lists every measure in column order.
func Measures() []Measure {
	return []Measure{MeasureQTY, MeasureNIC, MeasureITEMS}
}

// ParseMeasure accepts a measure column name in any case.
func ParseMeasure(s string) (Measure, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "QTY", "QUANTITY":
		return MeasureQTY, nil
	case "NIC", "COST":
		return MeasureNIC, nil
	case "ITEMS":
		return MeasureITEMS, nil
	}
	return "", fmt.Errorf("unknown measure %q", s)
}

// MeasureSet is a bitmask of measures.
type MeasureSet uint8

func (m Measure) bit() MeasureSet {
	switch m {
	case MeasureQTY:
		return 1
	case MeasureNIC:
		return 2
	case MeasureITEMS:
		return 4
	}
	return 0
}

// Has reports whether m is in the set.
func (s MeasureSet) Has(m Measure) bool {
	return s&m.bit() != 0
}

// With returns the set with m added.
func (s MeasureSet) With(m Measure) MeasureSet {
	return s | m.bit()
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Record is one row of the long-format dataset. Empty categorical strings
// are nulls. Extra holds the cells of source columns the record has no
// field for, keyed by column name, so exports can reproduce the source row.
type Record struct {
	Month        Month             `json:"month"`
	ICBName      string            `json:"icb_name"`
	SettingType  string            `json:"quviviq_type"`
	ProductGroup string            `json:"product_group"`
	BNFName      string            `json:"bnf_name"`
	PostCode     string            `json:"post_code,omitempty"`
	QTY          decimal.Decimal   `json:"qty"`
	NIC          decimal.Decimal   `json:"nic"`
	ITEMS        decimal.Decimal   `json:"items"`
	Missing      MeasureSet        `json:"-"`
	Negative     MeasureSet        `json:"-"`
	Location     *Coordinates      `json:"location,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Value returns the record's value for a categorical dimension.
func (r Record) Value(d Dimension) string {
	switch d {
	case DimensionICB:
		return r.ICBName
	case DimensionSetting:
		return r.SettingType
	case DimensionDose:
		return r.ProductGroup
	case DimensionBrand:
		return r.BNFName
	}
	return ""
}

// Measure returns the record's value for m. Missing measures read as zero.
func (r Record) Measure(m Measure) decimal.Decimal {
	switch m {
	case MeasureQTY:
		return r.QTY
	case MeasureNIC:
		return r.NIC
	case MeasureITEMS:
		return r.ITEMS
	}
	return decimal.Zero
}

// Dataset is an immutable, month-ordered collection of records together
// with what is known about its source. NegativeRows counts records with at
// least one negative measure.
type Dataset struct {
	Source        string    `json:"source"`
	Columns       []string  `json:"columns"`
	Records       []Record  `json:"-"`
	UnknownMonths int       `json:"unknown_months"`
	NegativeRows  int       `json:"negative_rows"`
	LoadedAt      time.Time `json:"loaded_at"`
}

// HasColumn reports whether the source file carried the named column.
func (d *Dataset) HasColumn(name string) bool {
	if d == nil {
		return false
	}
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Bounds returns the first and last known month. ok is false when the
// dataset holds no known month.
func (d *Dataset) Bounds() (r DateRange, ok bool) {
	if d == nil {
		return DateRange{}, false
	}
	for _, rec := range d.Records {
		if !rec.Month.IsKnown() {
			continue
		}
		if !ok {
			r = DateRange{From: rec.Month, To: rec.Month}
			ok = true
			continue
		}
		if rec.Month < r.From {
			r.From = rec.Month
		}
		if rec.Month > r.To {
			r.To = rec.Month
		}
	}
	return r, ok
}
