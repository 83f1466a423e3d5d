package imagegen

import (
	"context"
	"fmt"

	"genfill/core"
	"genfill/imaging"

	"go.uber.org/zap"
)

// BatchRunRequest runs a list of previously captured tasks.
type BatchRunRequest struct {
	APIKey  string
	BaseURL string
	Tasks   []BatchTaskInput
}

// RunBatchTasks normalizes every task, then runs them one after another.
// Each task fans out its own requests, places the successes into its document
// in request order and groups them as "Batch". Errors are collected per task
// and, prefixed with the document name, in the run-level list.
//
// The call fails only for missing credentials, an empty task list or a task
// that does not pass normalization.
func (o *Orchestrator) RunBatchTasks(ctx context.Context, req BatchRunRequest) (BatchRunResult, error) {
	apiKey, baseURL, err := credentials(req.APIKey, req.BaseURL)
	if err != nil {
		return BatchRunResult{}, err
	}
	if len(req.Tasks) == 0 {
		return BatchRunResult{}, core.ErrTaskListEmpty()
	}

	now := o.now()
	tasks := make([]core.BatchTaskItem, 0, len(req.Tasks))
	for i, in := range req.Tasks {
		task, err := NormalizeBatchTask(in, now)
		if err != nil {
			return BatchRunResult{}, fmt.Errorf("imagegen: task %d: %w", i+1, err)
		}
		tasks = append(tasks, task)
	}

	runID := newRunID()
	log := o.logger.With(zap.String("run_id", runID), zap.String("mode", core.RunModeBatch))
	log.Info("starting batch run", zap.Int("tasks", len(tasks)))

	b := newResultBuilder()
	taskResults := make([]BatchTaskGroupResult, 0, len(tasks))
	docs := make(map[int]struct{})

	for i, task := range tasks {
		docs[task.DocID] = struct{}{}
		taskLog := log.With(zap.Int64("task_id", task.ID), zap.Int("doc_id", task.DocID))

		tb := b.child(task.DocName)
		tb.expect(task.Settings.Count)

		input, inputErr := imaging.DecodeBase64(task.EncodedImage)
		u := &unit{
			docID:       task.DocID,
			prompt:      task.Prompt,
			input:       input,
			inputErr:    inputErr,
			selection:   task.Selection,
			settings:    task.Settings,
			groupPrefix: "Batch",
			apiKey:      apiKey,
			baseURL:     baseURL,
			messages:    batchMessages(),
		}

		outcomes := o.generate(ctx, u)
		u.recordGenerationFailures(outcomes, tb)
		created := o.placeAndGroup(ctx, u, outcomes, tb, taskLog)
		o.deselect(ctx, task.DocID, taskLog)

		taskLog.Info("batch task finished",
			zap.Int("success", created),
			zap.Int("failure", tb.failureCount()))

		taskResults = append(taskResults, BatchTaskGroupResult{
			TaskID:        task.ID,
			DocID:         task.DocID,
			DocName:       task.DocName,
			TotalCount:    task.Settings.Count,
			SuccessCount:  created,
			FailureCount:  tb.failureCount(),
			ErrorMessages: tb.result().ErrorMessages,
		})

		if i < len(tasks)-1 {
			_ = o.sleep(ctx, o.config.UnitDelay)
		}
	}

	result := BatchRunResult{
		RunResult:      b.result(),
		TaskGroupCount: len(tasks),
		TaskResults:    taskResults,
	}
	log.Info("batch run finished",
		zap.Int("total", result.TotalCount),
		zap.Int("success", result.SuccessCount),
		zap.Int("failure", result.FailureCount))

	o.record(ctx, log, core.RunRecord{
		RunID:         runID,
		Mode:          core.RunModeBatch,
		Prompt:        tasks[0].Prompt,
		DocumentCount: len(docs),
		TotalCount:    result.TotalCount,
		SuccessCount:  result.SuccessCount,
		FailureCount:  result.FailureCount,
		ErrorMessages: result.ErrorMessages,
		Duration:      o.now().Sub(now),
		CreatedAt:     now,
	})
	return result, nil
}
