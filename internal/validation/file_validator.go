// Package validation checks the directories a command reads datasets from
// and writes extracts to before any work starts.
package validation

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ImamSharif/Healthcare-analytics/internal/files"
)

// FileValidator validates input and output locations.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateInputDirectory checks that dir exists and is a directory, and
// returns the dataset files it contains. An empty directory is not an
// error here; the loader reports a missing dataset with more context.
func (v *FileValidator) ValidateInputDirectory(dir string) ([]files.FileInfo, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist", slog.String("directory", dir))
		return nil, fmt.Errorf("input directory %s does not exist", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory", slog.String("path", dir))
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	found, err := files.NewDiscovery(dir).FindDataFiles(".")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(found) == 0 {
		v.logger.Warn("No dataset files found", slog.String("directory", dir))
	} else if latest, ok := files.GetLatestFile(found); ok {
		v.logger.Info("Input directory validated",
			slog.String("directory", dir),
			slog.Int("files_found", len(found)),
			slog.String("latest", latest.Name))
	}
	return found, nil
}

// ValidateOutputDirectory creates dir if needed and checks it is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}
