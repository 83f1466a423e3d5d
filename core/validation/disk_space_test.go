package validation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetDiskSpace(t *testing.T) {
	info, err := GetDiskSpace(".")
	if err != nil {
		t.Fatalf("GetDiskSpace(\".\") error: %v", err)
	}
	if info.Total <= 0 {
		t.Errorf("Total = %d, want > 0", info.Total)
	}
	if info.Total != info.Free+info.Used {
		t.Errorf("Total (%d) != Free (%d) + Used (%d)", info.Total, info.Free, info.Used)
	}
	if info.UsedPercent < 0 || info.UsedPercent > 100 {
		t.Errorf("UsedPercent = %f, want 0-100", info.UsedPercent)
	}
}

func TestGetDiskSpace_ResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "capture.png")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"file uses its directory", file},
		{"missing path uses nearest parent", filepath.Join(dir, "not", "yet", "created")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := GetDiskSpace(tt.path)
			if err != nil {
				t.Fatalf("GetDiskSpace error: %v", err)
			}
			want, _ := filepath.Abs(dir)
			if info.Path != want {
				t.Errorf("Path = %q, want %q", info.Path, want)
			}
		})
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()

	if err := CheckDiskSpace(dir, 1); err != nil {
		t.Errorf("CheckDiskSpace(1 byte) error: %v", err)
	}

	err := CheckDiskSpace(dir, 1<<62)
	var diskErr *DiskSpaceError
	if !errors.As(err, &diskErr) {
		t.Fatalf("error = %v, want *DiskSpaceError", err)
	}
	if diskErr.Required != 1<<62 {
		t.Errorf("Required = %d", diskErr.Required)
	}
	if !strings.Contains(diskErr.Error(), "insufficient disk space") {
		t.Errorf("Error() = %q", diskErr.Error())
	}
}
