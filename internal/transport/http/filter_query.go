package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// dimensionParams maps query parameter names to the dimension they
// constrain.
var dimensionParams = []struct {
	param     string
	dimension domain.Dimension
}{
	{"icb", domain.DimensionICB},
	{"setting", domain.DimensionSetting},
	{"dose", domain.DimensionDose},
	{"brand", domain.DimensionBrand},
}

// FilterQuery is the query string shared by every dashboard endpoint.
//
// A dimension parameter is repeated to allow several values
// ("?icb=a&icb=b"). Each value is taken whole: ICB names contain commas.
// An absent parameter leaves the dimension unconstrained; a parameter
// present with no values ("?setting=") matches nothing.
type FilterQuery struct {
	From    string `json:"from" validate:"omitempty,month"`
	To      string `json:"to" validate:"omitempty,month"`
	Measure string `json:"measure" validate:"omitempty,measure"`
	Period  string `json:"period" validate:"omitempty,period"`

	values map[domain.Dimension][]string
}

// ParseFilterQuery reads the filter parameters of r without validating
// them.
func ParseFilterQuery(r *http.Request) FilterQuery {
	q := r.URL.Query()
	fq := FilterQuery{
		From:    strings.TrimSpace(q.Get("from")),
		To:      strings.TrimSpace(q.Get("to")),
		Measure: strings.TrimSpace(q.Get("measure")),
		Period:  strings.TrimSpace(q.Get("period")),
		values:  make(map[domain.Dimension][]string),
	}
	for _, p := range dimensionParams {
		if vals, ok := q[p.param]; ok {
			fq.values[p.dimension] = trimValues(vals)
		}
	}
	return fq
}

func trimValues(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Spec converts a validated query into a filter. Missing bounds default to
// the full month range.
func (fq FilterQuery) Spec() domain.FilterSpec {
	r := domain.AllTime()
	if m, err := domain.ParseMonth(fq.From); err == nil {
		r.From = m
	}
	if m, err := domain.ParseMonth(fq.To); err == nil {
		r.To = m
	}

	spec := domain.NewFilterSpec(r)
	for d, vals := range fq.values {
		spec = spec.With(d, vals...)
	}
	return spec
}

// Encode writes the query back as URL values, for links and logs.
func (fq FilterQuery) Encode() string {
	v := url.Values{}
	for name, val := range map[string]string{"from": fq.From, "to": fq.To, "measure": fq.Measure, "period": fq.Period} {
		if val != "" {
			v.Set(name, val)
		}
	}
	for _, p := range dimensionParams {
		vals, ok := fq.values[p.dimension]
		switch {
		case !ok:
		case len(vals) == 0:
			v.Set(p.param, "")
		default:
			v[p.param] = append([]string(nil), vals...)
		}
	}
	return v.Encode()
}
