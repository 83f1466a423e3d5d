package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"genfill/core"
)

// DefaultMinFreeBytes is the free space the check command expects next to the
// data and temp directories. A 4K capture plus its result is well under this.
const DefaultMinFreeBytes = 512 * core.BytesPerMB

// DiskSpaceInfo describes the filesystem holding a path.
type DiskSpaceInfo struct {
	Path        string
	Total       int64
	Free        int64
	Used        int64
	UsedPercent float64
}

// DiskSpaceError reports a filesystem with less free space than required.
type DiskSpaceError struct {
	Path      string
	Required  int64
	Available int64
}

func (e *DiskSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space at %s: need %s, have %s free",
		e.Path, core.FormatBytes(e.Required), core.FormatBytes(e.Available))
}

// GetDiskSpace returns space information for the filesystem containing path.
// A path that does not exist yet is resolved through its nearest existing parent,
// so the data directory can be checked before it is created.
func GetDiskSpace(path string) (*DiskSpaceInfo, error) {
	resolved, err := nearestExisting(path)
	if err != nil {
		return nil, err
	}

	total, free, err := getDiskSpace(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk space for %s: %w", resolved, err)
	}

	used := total - free
	var usedPercent float64
	if total > 0 {
		usedPercent = float64(used) / float64(total) * 100
	}

	return &DiskSpaceInfo{
		Path:        resolved,
		Total:       total,
		Free:        free,
		Used:        used,
		UsedPercent: usedPercent,
	}, nil
}

// CheckDiskSpace returns a *DiskSpaceError when fewer than requiredBytes are free.
func CheckDiskSpace(path string, requiredBytes int64) error {
	info, err := GetDiskSpace(path)
	if err != nil {
		return err
	}
	if info.Free < requiredBytes {
		return &DiskSpaceError{Path: info.Path, Required: requiredBytes, Available: info.Free}
	}
	return nil
}

func nearestExisting(path string) (string, error) {
	if path == "" {
		path = "."
	}
	current, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	for {
		info, err := os.Stat(current)
		if err == nil {
			if !info.IsDir() {
				return filepath.Dir(current), nil
			}
			return current, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("cannot access path %s: %w", current, err)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("cannot access path %s: %w", path, err)
		}
		current = parent
	}
}
