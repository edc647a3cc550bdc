package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Append    bool
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// EncodeCSV serialises table as comma-separated UTF-8 with the header
// first and no index column.
func EncodeCSV(table Table, options WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTable(&buf, table, options); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTable(w io.Writer, table Table, options WriteOptions) error {
	if options.BOMPrefix && !options.Append {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if !options.Append && len(table.Columns) > 0 {
		if err := writer.Write(table.Columns); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	baseDir string
	logger  *slog.Logger
}

// NewCSVWriter creates a writer resolving relative paths against baseDir.
func NewCSVWriter(baseDir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{baseDir: baseDir, logger: logger}
}

// WriteCSV writes table to filePath and returns the resolved path.
func (w *CSVWriter) WriteCSV(filePath string, table Table, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", table.Len()))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(fullPath, flags, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if err := writeTable(file, table, options); err != nil {
		return "", err
	}
	return fullPath, file.Close()
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.baseDir == "" {
		return filePath
	}
	return filepath.Join(w.baseDir, filePath)
}
