package validation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"genfill/core"
)

// EnvFileCheck warns when the .env file is missing. Configuration may still
// come from the process environment, so this never fails the suite.
func EnvFileCheck(path string) Check {
	return Check{
		Name: "Environment File",
		Run: func(ctx context.Context) CheckResult {
			info, err := os.Stat(path)
			switch {
			case errors.Is(err, os.ErrNotExist):
				return Warned("not found, using process environment", nil)
			case err != nil:
				return Warned("cannot read", err)
			case info.IsDir():
				return Failed("is a directory", fmt.Errorf("%s is a directory, expected a file", path))
			}
			return Passed(path)
		},
	}
}

// BaseURLCheck validates the generation endpoint base URL.
func BaseURLCheck(baseURL string) Check {
	return Check{
		Name: "API Base URL",
		Run: func(ctx context.Context) CheckResult {
			if err := core.ValidateBaseURL(baseURL); err != nil {
				return Failed("invalid", err)
			}
			return Passed(baseURL)
		},
	}
}

// APIKeyCheck passes when a key is configured or one is saved in the store.
// stored may be nil when no store is available.
func APIKeyCheck(configured string, stored func() (string, error)) Check {
	return Check{
		Name: "Generation API Key",
		Run: func(ctx context.Context) CheckResult {
			if strings.TrimSpace(configured) != "" {
				return Passed("from GENFILL_API_KEY")
			}
			if stored != nil {
				key, err := stored()
				if err != nil {
					return Failed("cannot read saved keys", err)
				}
				if key != "" {
					return Passed("from saved keys")
				}
			}
			return Failed("not configured", core.ErrAPIKeyEmpty())
		},
	}
}

// DirectoryCheck creates dir if needed and proves it is writable with a probe file.
func DirectoryCheck(name, dir string) Check {
	return Check{
		Name: name,
		Run: func(ctx context.Context) CheckResult {
			if dir == "" {
				return Failed("not configured", errors.New("directory path is empty"))
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return Failed("cannot create", err)
			}
			probe, err := os.CreateTemp(dir, ".genfill-probe-*")
			if err != nil {
				return Failed("not writable", err)
			}
			probe.Close()
			os.Remove(probe.Name())

			abs, err := filepath.Abs(dir)
			if err != nil {
				abs = dir
			}
			return Passed(abs)
		},
	}
}

// DiskSpaceCheck warns when the filesystem holding dir has less than minFree bytes free.
func DiskSpaceCheck(name, dir string, minFree int64) Check {
	return Check{
		Name: name,
		Run: func(ctx context.Context) CheckResult {
			info, err := GetDiskSpace(dir)
			if err != nil {
				return Warned("cannot determine free space", err)
			}
			msg := fmt.Sprintf("%s free of %s", core.FormatBytesCompact(info.Free), core.FormatBytesCompact(info.Total))
			if info.Free < minFree {
				return Warned(msg, &DiskSpaceError{Path: info.Path, Required: minFree, Available: info.Free})
			}
			return Passed(msg)
		},
	}
}

// EndpointCheck probes rawURL with checker. It is skipped after earlier failures.
func EndpointCheck(name string, checker *ConnectivityChecker, rawURL string) Check {
	return Check{
		Name:            name,
		RequiresPassing: true,
		Run: func(ctx context.Context) CheckResult {
			result := checker.Check(ctx, rawURL)
			if !result.Reachable {
				return Failed(result.Message, result.Error)
			}
			return Passed(fmt.Sprintf("%s (latency: %v)", result.Message, result.Latency.Round(time.Millisecond)))
		},
	}
}

// FuncCheck adapts a plain function. A returned error fails the check.
func FuncCheck(name string, fn func(ctx context.Context) (string, error)) Check {
	return Check{
		Name: name,
		Run: func(ctx context.Context) CheckResult {
			msg, err := fn(ctx)
			if err != nil {
				return Failed(msg, err)
			}
			return Passed(msg)
		},
	}
}
