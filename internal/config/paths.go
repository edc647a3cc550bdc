package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths holds the resolved directories of the application. It is the
// single place where relative configuration paths become absolute.
type Paths struct {
	BaseDir   string
	DataDir   string
	LogsDir   string
	ExportDir string
}

// ResolvePaths resolves the configured directories against the base
// directory.
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	base, err := resolveBaseDir(cfg.BaseDir)
	if err != nil {
		return nil, err
	}

	resolve := func(dir, fallback string) string {
		if dir == "" {
			dir = fallback
		}
		if filepath.IsAbs(dir) {
			return filepath.Clean(dir)
		}
		return filepath.Join(base, dir)
	}

	return &Paths{
		BaseDir:   base,
		DataDir:   resolve(cfg.DataDir, DefaultDataDir),
		LogsDir:   resolve(cfg.LogsDir, DefaultLogsDir),
		ExportDir: resolve(cfg.ExportDir, DefaultExportDir),
	}, nil
}

func resolveBaseDir(base string) (string, error) {
	switch base {
	case "":
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return wd, nil
	case "executable":
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("failed to get executable path: %w", err)
		}
		// Resolve symlinks to get the actual executable location
		exe, err = filepath.EvalSymlinks(exe)
		if err != nil {
			return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
		}
		return filepath.Dir(exe), nil
	}
	return filepath.Abs(base)
}

// EnsureDirectories creates the writable directories. The data directory
// is read-only input and is not created.
func (p *Paths) EnsureDirectories(logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, dir := range []string{p.LogsDir, p.ExportDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// GetDataPath returns filename inside the data directory.
func (p *Paths) GetDataPath(filename string) string {
	return filepath.Join(p.DataDir, filename)
}

// GetLogPath returns filename inside the logs directory.
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetExportPath returns filename inside the export directory.
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportDir, filename)
}

// LogPathResolution logs the resolved directories.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("logs", p.LogsDir),
			slog.String("exports", p.ExportDir),
		))
}
