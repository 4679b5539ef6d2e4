package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TrackingRow is one line of a per-sample tracking table.
type TrackingRow struct {
	Version     string
	Modules     int
	Elements    int
	AvgElements float64
	DirectWidth float64
	ChainLength float64
	Indicator   float64
}

func (r TrackingRow) String() string {
	return fmt.Sprintf("|%s|%d|%d|%.2f|%.2f|%.2f|%.2f|",
		r.Version, r.Modules, r.Elements, r.AvgElements, r.DirectWidth, r.ChainLength, r.Indicator)
}

// LastComponent returns the final slash-separated element of path, ignoring
// trailing slashes.
func LastComponent(path string) string {
	path = strings.TrimRight(filepath.ToSlash(path), "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// TrackingName is the file name a sample's rows are appended to: the full
// module name with path separators replaced by underscores.
func TrackingName(sample string) string {
	sample = strings.Trim(filepath.ToSlash(sample), "/")
	return strings.ReplaceAll(sample, "/", "_")
}

// AppendTrackingRow appends row to dir/TrackingName(sample), creating the
// file when missing, and returns the file path.
func AppendTrackingRow(dir, sample string, row TrackingRow) (string, error) {
	name := TrackingName(sample)
	if name == "" {
		return "", fmt.Errorf("tracking sample %q has no name", sample)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create tracking directory %q: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open tracking file %q: %w", path, err)
	}
	if _, err := fmt.Fprintln(f, row.String()); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("append tracking row %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close tracking file %q: %w", path, err)
	}
	return path, nil
}

// ReadTrackingRows returns the raw rows of a tracking file.
func ReadTrackingRows(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "|") {
			rows = append(rows, line)
		}
	}
	return rows, nil
}
