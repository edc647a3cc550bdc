package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFrame reads a CSV or XLSX file into a Frame. Any structural problem
// is returned as a *LoadError.
func ReadFrame(path string) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	default:
		return readCSVFile(path)
	}
}

func readCSVFile(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return ReadCSV(path, file)
}

// ReadCSV parses delimited text from r. path is only used for errors.
func ReadCSV(path string, r io.Reader) (*Frame, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, loadErr(path, 0, "", errors.New("file is empty"))
	}
	if err != nil {
		return nil, csvLoadErr(path, err)
	}

	frame, err := frameWithHeader(path, header)
	if err != nil {
		return nil, err
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvLoadErr(path, err)
		}
		line, _ := reader.FieldPos(0)
		if len(row) != len(header) {
			return nil, loadErr(path, line, "",
				fmt.Errorf("expected %d fields, got %d", len(header), len(row)))
		}
		frame.Rows = append(frame.Rows, row)
		frame.Lines = append(frame.Lines, line)
	}
	return frame, nil
}

func csvLoadErr(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return loadErr(path, pe.Line, "", pe.Err)
	}
	return loadErr(path, 0, "", err)
}

func readXLSX(path string) (*Frame, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, loadErr(path, 0, "", fmt.Errorf("failed to open workbook: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, loadErr(path, 0, "", errors.New("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, loadErr(path, 0, "", fmt.Errorf("failed to read sheet %q: %w", sheets[0], err))
	}
	if len(rows) == 0 {
		return nil, loadErr(path, 0, "", errors.New("sheet is empty"))
	}

	frame, err := frameWithHeader(path, rows[0])
	if err != nil {
		return nil, err
	}
	width := len(frame.Columns)

	for i, row := range rows[1:] {
		line := i + 2
		if blankRow(row) {
			continue
		}
		// excelize drops trailing empty cells, so short rows are padded.
		if len(row) > width {
			if !blankRow(row[width:]) {
				return nil, loadErr(path, line, "",
					fmt.Errorf("expected %d fields, got %d", width, len(row)))
			}
			row = row[:width]
		}
		for len(row) < width {
			row = append(row, "")
		}
		frame.Rows = append(frame.Rows, row)
		frame.Lines = append(frame.Lines, line)
	}
	return frame, nil
}

func frameWithHeader(path string, header []string) (*Frame, error) {
	cleaned := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, string(utf8BOM)))
		if name == "" {
			// Index columns written by spreadsheet tools carry no name.
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[name] {
			return nil, loadErr(path, 1, name, errors.New("duplicate header column"))
		}
		seen[name] = true
		cleaned[i] = name
	}
	return newFrame(path, cleaned), nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
