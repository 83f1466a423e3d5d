package shutdown

import (
	"context"
	"os"
	"path/filepath"

	"genfill/logging"

	"go.uber.org/zap"
)

// TempFilePattern matches the capture and result files the orchestrator
// writes to its temp directory.
const TempFilePattern = "genfill-*.png"

// CleanupTempFiles returns a handler that removes files matching pattern in
// dir. Runs normally delete their own temp files; this catches what an
// interrupted run left behind. Failures are logged, never returned.
//
// Usage:
//
//	manager.Register("temp-files", 40, shutdown.CleanupTempFiles(logger, cfg.TempDir, shutdown.TempFilePattern))
func CleanupTempFiles(logger *logging.Logger, dir, pattern string) Func {
	return func(ctx context.Context) error {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			logger.Warn("failed to list temp files", zap.String("dir", dir), zap.Error(err))
			return nil
		}

		removed := 0
		for _, path := range matches {
			if ctx.Err() != nil {
				logger.Warn("temp file cleanup cut short", zap.Int("removed", removed), zap.Int("total", len(matches)))
				return nil
			}
			if err := os.Remove(path); err != nil {
				logger.Warn("failed to remove temp file", zap.String("file", filepath.Base(path)), zap.Error(err))
				continue
			}
			removed++
		}
		if removed > 0 {
			logger.Info("removed leftover temp files", zap.Int("count", removed), zap.String("dir", dir))
		}
		return nil
	}
}
