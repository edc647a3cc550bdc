package dataset

import (
	"strings"

	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// Frame is a raw table read from a file: a header plus string cells.
// Frames are shared through the cache and must not be modified.
type Frame struct {
	Path    string
	Columns []string
	Rows    [][]string
	// Lines holds the source line (CSV) or row number (XLSX) of each row.
	Lines []int
	// Dates holds parsed months for the date columns requested at load.
	Dates map[string][]domain.Month

	index map[string]int
}

func newFrame(path string, header []string) *Frame {
	f := &Frame{Path: path, Columns: header, index: make(map[string]int, len(header))}
	for i, c := range header {
		f.index[c] = i
	}
	return f
}

// Len returns the number of data rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// Has reports whether the frame carries column name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Value returns the trimmed cell of row i in column name, or "" when the
// column is absent.
func (f *Frame) Value(i int, name string) string {
	col, ok := f.index[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(f.Rows[i][col])
}

// line returns the source line of row i for error reporting.
func (f *Frame) line(i int) int {
	if i < len(f.Lines) {
		return f.Lines[i]
	}
	return 0
}

// Month returns the month of row i in column name. Months parsed at load
// time are reused; other columns are parsed on demand.
func (f *Frame) Month(i int, name string) domain.Month {
	if months, ok := f.Dates[name]; ok && i < len(months) {
		return months[i]
	}
	return domain.MonthOrUnknown(f.Value(i, name))
}

// withDates returns a shallow copy of f with months parsed for every
// requested column that f carries.
func (f *Frame) withDates(columns []string) *Frame {
	cp := *f
	cp.Dates = make(map[string][]domain.Month, len(columns))
	for _, col := range columns {
		if !f.Has(col) {
			continue
		}
		months := make([]domain.Month, f.Len())
		for i := range f.Rows {
			months[i] = domain.MonthOrUnknown(f.Value(i, col))
		}
		cp.Dates[col] = months
	}
	return &cp
}
