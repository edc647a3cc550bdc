package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Manager writes export artifacts under a base directory.
type Manager struct {
	basePath string
	logger   *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(basePath string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{basePath: basePath, logger: logger}
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	_, err := os.Stat(m.resolvePath(path))
	return err == nil
}

// EnsureDirectory creates a directory if it doesn't exist
func (m *Manager) EnsureDirectory(path string) error {
	fullPath := m.resolvePath(path)
	if err := os.MkdirAll(fullPath, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fullPath, err)
	}
	return nil
}

// WriteFile writes data to path, creating parent directories. It returns
// the resolved path.
func (m *Manager) WriteFile(path string, data []byte) (string, error) {
	fullPath := m.resolvePath(path)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", fullPath, err)
	}

	m.logger.Info("Wrote file",
		slog.String("path", fullPath),
		slog.Int("size_bytes", len(data)))
	return fullPath, nil
}

func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.basePath, path)
}
