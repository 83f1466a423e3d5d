package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"genfill/core"
	"genfill/logging"

	"go.uber.org/zap"
)

// timeLayout matches SQLite's datetime() output so retention queries compare
// stored values as text.
const timeLayout = "2006-01-02 15:04:05"

// DefaultListLimit is used when ListRuns is called without a positive limit.
const DefaultListLimit = 20

var (
	errClosed = errors.New("db: database connection is closed")

	// ErrRunNotFound is returned by GetRun for an unknown run id.
	ErrRunNotFound = errors.New("db: run not found")
)

// Repository stores orchestrator run summaries. It implements
// core.RunRecorder.
type Repository struct {
	db          *Database
	asyncWriter *AsyncWriter
	logger      *logging.Logger
}

var _ core.RunRecorder = (*Repository)(nil)

// NewRepository creates a repository. Without SetAsyncWriter every write is
// synchronous.
func NewRepository(database *Database, logger *logging.Logger) (*Repository, error) {
	if database == nil {
		return nil, fmt.Errorf("db: database cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("db: logger cannot be nil")
	}
	return &Repository{db: database, logger: logger.Named("history")}, nil
}

// SetAsyncWriter routes RecordRun through w. w should use CreateAsyncWriteHandler.
func (r *Repository) SetAsyncWriter(w *AsyncWriter) {
	r.asyncWriter = w
}

// CreateAsyncWriteHandler returns the handler that performs queued inserts.
func (r *Repository) CreateAsyncWriteHandler() WriteHandler {
	return func(op WriteOperation) error {
		record, ok := op.Data.(core.RunRecord)
		if !ok {
			return fmt.Errorf("db: invalid operation type %T", op.Data)
		}
		_, err := r.InsertRun(context.Background(), record)
		return err
	}
}

// RecordRun queues record on the async writer when one is running, and
// inserts it synchronously otherwise or when the queue is full.
func (r *Repository) RecordRun(ctx context.Context, record core.RunRecord) error {
	if r.asyncWriter != nil && r.asyncWriter.IsStarted() {
		if r.asyncWriter.Write(record) {
			return nil
		}
		r.logger.Debug("async queue full, writing run synchronously", zap.String("run_id", record.RunID))
	}
	_, err := r.InsertRun(ctx, record)
	return err
}

// InsertRun writes record and returns its row id.
func (r *Repository) InsertRun(ctx context.Context, record core.RunRecord) (int64, error) {
	if record.RunID == "" {
		return 0, fmt.Errorf("db: run id is required")
	}
	messages := record.ErrorMessages
	if messages == nil {
		messages = []string{}
	}
	encoded, err := json.Marshal(messages)
	if err != nil {
		return 0, fmt.Errorf("db: failed to encode error messages: %w", err)
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO run_history (
			run_id, mode, prompt, document_count, total_count,
			success_count, failure_count, error_messages, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.Mode,
		nullString(record.Prompt),
		record.DocumentCount,
		record.TotalCount,
		record.SuccessCount,
		record.FailureCount,
		string(encoded),
		record.Duration.Milliseconds(),
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("db: failed to insert run %s: %w", record.RunID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("db: failed to get last insert id: %w", err)
	}
	return id, nil
}

const selectRuns = `
	SELECT run_id, mode, COALESCE(prompt, ''), document_count, total_count,
		   success_count, failure_count, error_messages, duration_ms, created_at
	FROM run_history`

// ListRuns returns the most recent runs, newest first. When mode is not
// empty only runs of that mode are returned.
func (r *Repository) ListRuns(ctx context.Context, mode string, limit int) ([]core.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if mode == "" {
		rows, err = r.db.QueryContext(ctx, selectRuns+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, selectRuns+` WHERE mode = ? ORDER BY created_at DESC, id DESC LIMIT ?`, mode, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("db: failed to query run history: %w", err)
	}
	defer rows.Close()

	records := []core.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: error iterating run history rows: %w", err)
	}
	return records, nil
}

// GetRun returns one run by id.
func (r *Repository) GetRun(ctx context.Context, runID string) (core.RunRecord, error) {
	row, err := r.db.QueryRowContext(ctx, selectRuns+` WHERE run_id = ?`, runID)
	if err != nil {
		return core.RunRecord{}, err
	}
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RunRecord{}, ErrRunNotFound
	}
	return rec, err
}

// CountRuns returns the number of stored runs.
func (r *Repository) CountRuns(ctx context.Context) (int64, error) {
	row, err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_history`)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("db: failed to count runs: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (core.RunRecord, error) {
	var (
		rec        core.RunRecord
		messages   string
		durationMS int64
		createdAt  string
	)
	err := s.Scan(
		&rec.RunID,
		&rec.Mode,
		&rec.Prompt,
		&rec.DocumentCount,
		&rec.TotalCount,
		&rec.SuccessCount,
		&rec.FailureCount,
		&messages,
		&durationMS,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, err
	}
	if err != nil {
		return rec, fmt.Errorf("db: failed to scan run row: %w", err)
	}

	rec.ErrorMessages = []string{}
	if err := json.Unmarshal([]byte(messages), &rec.ErrorMessages); err != nil {
		rec.ErrorMessages = []string{messages}
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}

// parseTime accepts the stored layout and the RFC 3339 form the driver may
// return for DATETIME columns.
func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// nullString stores an empty string as NULL.
func nullString(s string) any {
	if s == "" {
		return sql.NullString{}
	}
	return s
}
