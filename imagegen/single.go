package imagegen

import (
	"context"
	"errors"
	"strings"

	"genfill/core"
	"genfill/host"

	"go.uber.org/zap"
)

// SingleImageRequest runs Count generations for the live selection of the
// active document.
type SingleImageRequest struct {
	APIKey   string
	BaseURL  string
	Prompt   string
	Settings SettingsInput
}

// RunSingleImage captures the live selection, fans out the generation requests,
// places the successes in request order and groups them as "Single".
//
// Preconditions (empty prompt, missing credentials, no document, no selection)
// fail before any request is sent. When every request fails the call fails
// with the first request's error; otherwise failures are aggregated.
func (o *Orchestrator) RunSingleImage(ctx context.Context, req SingleImageRequest) (RunResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return RunResult{}, core.ErrPromptEmpty("")
	}
	apiKey, baseURL, err := credentials(req.APIKey, req.BaseURL)
	if err != nil {
		return RunResult{}, err
	}
	settings := NormalizeSettings(req.Settings, DefaultTimeoutSingle)

	start := o.now()
	runID := newRunID()
	log := o.logger.With(zap.String("run_id", runID), zap.String("mode", core.RunModeSingle))
	log.Info("starting single image run",
		zap.String("prompt_preview", truncateText(prompt, 50)),
		zap.Object("settings", settings))

	var (
		docID    int
		captured capturedImage
	)
	err = o.editor.WithExclusiveAccess(ctx, "Capture Selection", func(ctx context.Context) error {
		doc, err := o.editor.ActiveDocument(ctx)
		if err != nil {
			if errors.Is(err, host.ErrNoDocument) {
				return core.ErrNoOpenDocument()
			}
			return err
		}
		docID = doc.ID
		captured, err = o.captureLocked(ctx, CaptureOptions{
			DocID:         doc.ID,
			MaxResolution: settings.MaxResolution,
			AntiMode:      settings.AntiTruncationMode,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, host.ErrNoSelection) {
			return RunResult{}, core.ErrNoSelection()
		}
		return RunResult{}, err
	}

	u := &unit{
		docID:       docID,
		prompt:      prompt,
		input:       captured.png,
		selection:   captured.result.Selection,
		settings:    settings,
		groupPrefix: "Single",
		apiKey:      apiKey,
		baseURL:     baseURL,
		messages:    singleMessages(),
	}

	outcomes := o.generate(ctx, u)
	if succeeded(outcomes) == 0 {
		firstErr := outcomes[0].err
		log.Error("all generation requests failed", zap.Int("count", len(outcomes)), zap.Error(firstErr))
		o.record(ctx, log, core.RunRecord{
			RunID:         runID,
			Mode:          core.RunModeSingle,
			Prompt:        prompt,
			DocumentCount: 1,
			TotalCount:    settings.Count,
			FailureCount:  settings.Count,
			ErrorMessages: []string{firstErr.Error()},
			Duration:      o.now().Sub(start),
			CreatedAt:     start,
		})
		return RunResult{}, firstErr
	}

	b := newResultBuilder()
	b.expect(settings.Count)
	u.recordGenerationFailures(outcomes, b)
	o.placeAndGroup(ctx, u, outcomes, b, log)
	o.deselect(ctx, docID, log)

	result := b.result()
	log.Info("single image run finished",
		zap.Int("success", result.SuccessCount),
		zap.Int("failure", result.FailureCount))

	o.record(ctx, log, core.RunRecord{
		RunID:         runID,
		Mode:          core.RunModeSingle,
		Prompt:        prompt,
		DocumentCount: 1,
		TotalCount:    result.TotalCount,
		SuccessCount:  result.SuccessCount,
		FailureCount:  result.FailureCount,
		ErrorMessages: result.ErrorMessages,
		Duration:      o.now().Sub(start),
		CreatedAt:     start,
	})
	return result, nil
}
