package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoCandidate is returned when none of an ordered list of candidate
// files exists.
var ErrNoCandidate = errors.New("no candidate file exists")

// dataExtensions are the tabular formats the loader can read.
var dataExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	IsDir   bool      `json:"is_dir"`
}

// Discovery resolves data file names against a base directory.
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// BasePath returns the directory relative names resolve against.
func (d *Discovery) BasePath() string {
	return d.basePath
}

// Resolve returns the absolute, cleaned path for name. Absolute names are
// only cleaned.
func (d *Discovery) Resolve(name string) string {
	full := name
	if !filepath.IsAbs(name) {
		full = filepath.Join(d.basePath, name)
	}
	if abs, err := filepath.Abs(full); err == nil {
		return abs
	}
	return filepath.Clean(full)
}

// Stat resolves name and reports whether a regular file exists there.
// A missing file is not an error.
func (d *Discovery) Stat(name string) (FileInfo, bool, error) {
	full := d.Resolve(name)
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return FileInfo{Path: full, Name: filepath.Base(full)}, false, nil
	}
	if err != nil {
		return FileInfo{}, false, fmt.Errorf("failed to stat %s: %w", full, err)
	}
	if info.IsDir() {
		return FileInfo{}, false, fmt.Errorf("%s is a directory", full)
	}
	return FileInfo{
		Path:    full,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, true, nil
}

// FirstExisting walks candidates in order and returns the first one that
// exists. It returns ErrNoCandidate when none does.
func (d *Discovery) FirstExisting(candidates []string) (FileInfo, error) {
	for _, name := range candidates {
		info, ok, err := d.Stat(name)
		if err != nil {
			return FileInfo{}, err
		}
		if ok {
			return info, nil
		}
	}
	return FileInfo{}, fmt.Errorf("%w: tried %s", ErrNoCandidate, strings.Join(candidates, ", "))
}

// FindDataFiles lists CSV and Excel workbooks directly under dir, sorted
// by name.
func (d *Discovery) FindDataFiles(dir string) ([]FileInfo, error) {
	fullPath := d.Resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !dataExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}
