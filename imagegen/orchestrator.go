package imagegen

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"genfill/core"
	"genfill/genclient"
	"genfill/host"
	"genfill/logging"

	"go.uber.org/zap"
)

// Generator turns a prompt and an input image into generated image bytes.
// *genclient.Client implements it.
type Generator interface {
	Generate(ctx context.Context, req genclient.Request) ([]byte, error)
}

// OrchestratorConfig holds pacing and temp-file settings.
type OrchestratorConfig struct {
	// TempDir receives exported captures and generated images before import.
	TempDir string

	// CaptureDelay is waited after each partition capture.
	CaptureDelay time.Duration

	// UnitDelay is waited after each unit of work is placed.
	UnitDelay time.Duration

	// CleanupTempFiles removes temp files once imported or read.
	// Default: true
	CleanupTempFiles bool
}

// DefaultOrchestratorConfig returns sensible default configuration.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		TempDir:          os.TempDir(),
		CaptureDelay:     core.DefaultCaptureDelayMS * time.Millisecond,
		UnitDelay:        core.DefaultUnitDelayMS * time.Millisecond,
		CleanupTempFiles: true,
	}
}

// ConfigFromCore derives orchestrator settings from the application config.
func ConfigFromCore(cfg *core.Config) OrchestratorConfig {
	oc := DefaultOrchestratorConfig()
	if cfg == nil {
		return oc
	}
	if cfg.TempDir != "" {
		oc.TempDir = cfg.TempDir
	}
	oc.CaptureDelay = cfg.CaptureDelay
	oc.UnitDelay = cfg.UnitDelay
	return oc
}

// Orchestrator composes capture, generation, placement and grouping into the
// single-image, batch and global-partition runs.
//
// This organism composes:
//   - host.Editor: every document, layer and selection command
//   - Generator: concurrent generation requests, issued outside host scopes
//   - imaging: anti-truncation transforms and resampling in memory
//   - core.RunRecorder (optional): run history
//
// Thread-Safety:
//   - Runs may be started concurrently; host commands are serialized by the editor
//   - Fan-out concurrency is limited to generation requests
type Orchestrator struct {
	editor    host.Editor
	generator Generator
	logger    *logging.Logger
	config    OrchestratorConfig
	recorder  core.RunRecorder

	// sleep waits between units. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	// now stamps task ids and run records. Replaced in tests.
	now func() time.Time
}

// NewOrchestrator creates an orchestrator.
//
// Example:
//
//	client, _ := genclient.NewClient(httpClient, logger, genclient.DefaultConfig())
//	orch, err := NewOrchestrator(host.NewMemoryEditor(), client, logger, DefaultOrchestratorConfig())
func NewOrchestrator(editor host.Editor, generator Generator, logger *logging.Logger, config OrchestratorConfig) (*Orchestrator, error) {
	if editor == nil {
		return nil, fmt.Errorf("imagegen: editor cannot be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("imagegen: generator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}

	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if err := os.MkdirAll(config.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("imagegen: failed to create temp directory: %w", err)
	}

	return &Orchestrator{
		editor:    editor,
		generator: generator,
		logger:    logger.Named("orchestrator"),
		config:    config,
		sleep:     sleepContext,
		now:       time.Now,
	}, nil
}

// SetRecorder attaches a run history recorder. Nil disables recording.
func (o *Orchestrator) SetRecorder(recorder core.RunRecorder) {
	o.recorder = recorder
}

// Config returns the orchestrator configuration.
func (o *Orchestrator) Config() OrchestratorConfig {
	return o.config
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// credentials trims and checks the endpoint settings shared by every run.
func credentials(apiKey, baseURL string) (string, string, error) {
	apiKey = strings.TrimSpace(apiKey)
	baseURL = core.NormalizeBaseURL(baseURL)
	if apiKey == "" {
		return "", "", core.ErrAPIKeyEmpty()
	}
	if baseURL == "" {
		return "", "", core.ErrBaseURLEmpty()
	}
	return apiKey, baseURL, nil
}

// deselect clears the selection of a document, logging failures.
func (o *Orchestrator) deselect(ctx context.Context, docID int, log *logging.Logger) {
	err := o.editor.WithExclusiveAccess(ctx, "Deselect", func(ctx context.Context) error {
		return o.editor.Deselect(ctx, docID)
	})
	if err != nil {
		log.Warn("failed to deselect", zap.Int("doc_id", docID), zap.Error(err))
	}
}

// record writes a run summary when a recorder is attached.
func (o *Orchestrator) record(ctx context.Context, log *logging.Logger, rec core.RunRecord) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordRun(ctx, rec); err != nil {
		log.Warn("failed to record run", zap.Error(err))
	}
}

// removeTemp deletes a temp file when cleanup is enabled.
func (o *Orchestrator) removeTemp(path string, log *logging.Logger) {
	if !o.config.CleanupTempFiles {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove temp file", zap.String("path", path), zap.Error(err))
	}
}
