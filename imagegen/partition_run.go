package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"genfill/core"
	"genfill/host"
	"genfill/logging"

	"go.uber.org/zap"
)

// GlobalPartitionRequest runs one prompt over every open document.
type GlobalPartitionRequest struct {
	APIKey   string
	BaseURL  string
	Prompt   string
	Settings SettingsInput
}

// partitionCapture is a captured region waiting for generation.
type partitionCapture struct {
	selection PartitionSelection
	png       []byte
}

// RunGlobalPartition splits every open document into one or two square
// regions, captures them, and runs Count generations per region.
//
// Documents are processed in order. Inside a document all regions are
// captured first, pausing CaptureDelay after each, then each region is
// generated, placed and grouped as "Partition-<name>", pausing UnitDelay
// after each. A document that cannot be selected counts all of its requests
// as failed. Every message in the run-level list is prefixed "[docName] ".
func (o *Orchestrator) RunGlobalPartition(ctx context.Context, req GlobalPartitionRequest) (GlobalPartitionResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return GlobalPartitionResult{}, core.ErrPromptEmpty("Global partition")
	}
	apiKey, baseURL, err := credentials(req.APIKey, req.BaseURL)
	if err != nil {
		return GlobalPartitionResult{}, err
	}
	settings := NormalizeSettings(req.Settings, DefaultTimeoutGlobal)

	var docs []host.DocumentInfo
	err = o.editor.WithExclusiveAccess(ctx, "List Documents", func(ctx context.Context) error {
		var err error
		docs, err = o.editor.Documents(ctx)
		return err
	})
	if err != nil {
		return GlobalPartitionResult{}, fmt.Errorf("imagegen: failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		return GlobalPartitionResult{}, core.ErrNoDocuments()
	}

	plans := make([]GlobalPartitionDocPlan, 0, len(docs))
	taskCount := 0
	for _, d := range docs {
		plan := PlanDocument(d)
		plans = append(plans, plan)
		taskCount += len(plan.Selections) * settings.Count
	}

	start := o.now()
	runID := newRunID()
	log := o.logger.With(zap.String("run_id", runID), zap.String("mode", core.RunModePartition))
	log.Info("starting global partition run",
		zap.Int("documents", len(plans)),
		zap.Int("tasks", taskCount),
		zap.String("prompt_preview", truncateText(prompt, 50)),
		zap.Object("settings", settings))

	b := newResultBuilder()
	docResults := make([]GlobalPartitionDocResult, 0, len(plans))

	for _, plan := range plans {
		docLog := log.With(zap.Int("doc_id", plan.DocID), zap.String("doc_name", plan.DocName))
		db := b.child(plan.DocName)
		db.expect(len(plan.Selections) * settings.Count)

		docResults = append(docResults, o.runPartitionDocument(ctx, plan, prompt, apiKey, baseURL, settings, db, docLog))
	}

	result := GlobalPartitionResult{
		RunResult:     b.result(),
		DocumentCount: len(plans),
		TaskCount:     taskCount,
		DocResults:    docResults,
	}
	log.Info("global partition run finished",
		zap.Int("success", result.SuccessCount),
		zap.Int("failure", result.FailureCount))

	o.record(ctx, log, core.RunRecord{
		RunID:         runID,
		Mode:          core.RunModePartition,
		Prompt:        prompt,
		DocumentCount: len(plans),
		TotalCount:    result.TotalCount,
		SuccessCount:  result.SuccessCount,
		FailureCount:  result.FailureCount,
		ErrorMessages: result.ErrorMessages,
		Duration:      o.now().Sub(start),
		CreatedAt:     start,
	})
	return result, nil
}

func (o *Orchestrator) runPartitionDocument(
	ctx context.Context,
	plan GlobalPartitionDocPlan,
	prompt, apiKey, baseURL string,
	settings core.GenerationSettings,
	db *resultBuilder,
	log *logging.Logger,
) GlobalPartitionDocResult {
	docResult := func() GlobalPartitionDocResult {
		return GlobalPartitionDocResult{
			DocID:          plan.DocID,
			DocName:        plan.DocName,
			PartitionCount: len(plan.Selections),
			SuccessCount:   db.success,
			FailureCount:   db.failureCount(),
			ErrorMessages:  db.result().ErrorMessages,
		}
	}

	err := o.editor.WithExclusiveAccess(ctx, "Select Document", func(ctx context.Context) error {
		return o.editor.SelectDocument(ctx, plan.DocID)
	})
	if err != nil {
		log.Warn("failed to switch document", zap.Error(err))
		db.fail(fmt.Sprintf("Switch document failed: %v", err))
		return docResult()
	}

	captures := make([]partitionCapture, 0, len(plan.Selections))
	for _, sel := range plan.Selections {
		bounds := sel.Bounds
		var captured capturedImage
		err := o.editor.WithExclusiveAccess(ctx, "Capture Partition", func(ctx context.Context) error {
			var err error
			captured, err = o.captureLocked(ctx, CaptureOptions{
				DocID:         plan.DocID,
				Bounds:        &bounds,
				MaxResolution: settings.MaxResolution,
				AntiMode:      settings.AntiTruncationMode,
			})
			return err
		})
		switch {
		case errors.Is(err, host.ErrNoSelection):
			db.fail(fmt.Sprintf("Partition %s capture failed", sel.Name))
		case err != nil:
			log.Warn("partition capture failed", zap.String("partition", sel.Name), zap.Error(err))
			db.fail(fmt.Sprintf("Partition %s capture error: %v", sel.Name, err))
		default:
			captures = append(captures, partitionCapture{selection: sel, png: captured.png})
		}
		_ = o.sleep(ctx, o.config.CaptureDelay)
	}

	for _, c := range captures {
		u := &unit{
			docID:       plan.DocID,
			prompt:      prompt,
			input:       c.png,
			selection:   c.selection.Bounds,
			settings:    settings,
			groupPrefix: "Partition-" + c.selection.Name,
			apiKey:      apiKey,
			baseURL:     baseURL,
			messages:    partitionMessages(c.selection.Name),
		}
		outcomes := o.generate(ctx, u)
		u.recordGenerationFailures(outcomes, db)
		created := o.placeAndGroup(ctx, u, outcomes, db, log)
		log.Debug("partition finished",
			zap.String("partition", c.selection.Name),
			zap.Int("created", created))
		_ = o.sleep(ctx, o.config.UnitDelay)
	}

	o.deselect(ctx, plan.DocID, log)
	return docResult()
}
