package core

import (
	"context"
	"time"
)

// Run modes recorded in history.
const (
	RunModeSingle    = "single"
	RunModeBatch     = "batch"
	RunModePartition = "partition"
)

// RunRecord summarizes one orchestrator run for the history log.
type RunRecord struct {
	RunID         string
	Mode          string
	Prompt        string
	DocumentCount int
	TotalCount    int
	SuccessCount  int
	FailureCount  int
	ErrorMessages []string
	Duration      time.Duration
	CreatedAt     time.Time
}

// RunRecorder persists run summaries. Implementations must not block the caller for long.
type RunRecorder interface {
	RecordRun(ctx context.Context, record RunRecord) error
}
