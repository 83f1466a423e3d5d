package db

import (
	"context"
	"fmt"
	"time"
)

// CleanupResult reports one retention pass.
type CleanupResult struct {
	// RunsDeleted is the number of run_history rows removed
	RunsDeleted int64
	// Vacuumed is false when the rows were deleted but VACUUM did not run
	Vacuumed bool
	// Duration is how long the cleanup took
	Duration time.Duration
}

// Cleanup deletes runs created before now minus retentionDays and then runs
// VACUUM. Zero days deletes everything older than now.
//
// Example:
//
//	result, err := database.Cleanup(ctx, 30, time.Now())
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("removed %d runs\n", result.RunsDeleted)
func (d *Database) Cleanup(ctx context.Context, retentionDays int, now time.Time) (CleanupResult, error) {
	start := time.Now()
	var result CleanupResult

	if retentionDays < 0 {
		return result, fmt.Errorf("db: retentionDays must be non-negative, got %d", retentionDays)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return result, errClosed
	}

	cutoff := now.UTC().AddDate(0, 0, -retentionDays).Format(timeLayout)
	res, err := d.db.ExecContext(ctx, `DELETE FROM run_history WHERE created_at < ?`, cutoff)
	if err != nil {
		return result, fmt.Errorf("db: failed to delete old runs: %w", err)
	}
	if result.RunsDeleted, err = res.RowsAffected(); err != nil {
		return result, fmt.Errorf("db: failed to get rows affected: %w", err)
	}

	if err := ctx.Err(); err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	if _, err := d.db.ExecContext(ctx, "VACUUM"); err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("db: cleanup succeeded but VACUUM failed: %w", err)
	}
	result.Vacuumed = true
	result.Duration = time.Since(start)
	return result, nil
}
