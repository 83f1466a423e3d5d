package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"genfill/core"
	"genfill/imagegen"
	"genfill/imaging"

	"go.uber.org/zap"
)

// DefaultTaskFile is where capture appends and batch reads tasks.
const DefaultTaskFile = "tasks.yaml"

func runSingle(a *app, args []string) int {
	fs := newFlagSet(a, "single", "document.png")
	prompt := fs.String("prompt", "", "text prompt (required)")
	selection := fs.String("selection", "", "left,top,right,bottom in document pixels")
	outDir := fs.String("out", ".", "directory for the result document")
	settings := bindSettings(fs)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		return usageError(a, fs, "exactly one document is required")
	}
	bounds, err := optionalSelection(*selection)
	if err != nil {
		return usageError(a, fs, err.Error())
	}

	apiKey, baseURL, err := a.credentials()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	orch, err := a.Orchestrator()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	var (
		result   imagegen.RunResult
		exported []exportedDocument
	)
	start := time.Now()
	err = a.manager.Run("single", func(ctx context.Context) error {
		docs, err := openDocuments(ctx, a.Editor(), fs.Args())
		if err != nil {
			return err
		}
		if err := selectDocument(ctx, a.Editor(), docs[0], bounds); err != nil {
			return err
		}

		result, err = orch.RunSingleImage(ctx, imagegen.SingleImageRequest{
			APIKey:   apiKey,
			BaseURL:  baseURL,
			Prompt:   *prompt,
			Settings: *settings,
		})
		if err != nil {
			return err
		}
		exported, err = exportDocuments(ctx, a.Editor(), docs, *outDir)
		return err
	})
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	printHeader(a.out, "Single Image")
	printRunResult(a.out, "Generated", result, time.Since(start))
	printExports(a.out, exported)
	return core.ExitCodeForCounts(result.SuccessCount, result.FailureCount)
}

func runCapture(a *app, args []string) int {
	fs := newFlagSet(a, "capture", "document.png")
	prompt := fs.String("prompt", "", "text prompt for the task (required unless --chat)")
	selection := fs.String("selection", "", "left,top,right,bottom in document pixels")
	taskPath := fs.String("tasks", DefaultTaskFile, "task file to append to")
	chat := fs.Bool("chat", false, "write a chat attachment PNG instead of a batch task")
	outDir := fs.String("out", ".", "directory for the chat attachment")
	settings := bindSettings(fs)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		return usageError(a, fs, "exactly one document is required")
	}
	bounds, err := optionalSelection(*selection)
	if err != nil {
		return usageError(a, fs, err.Error())
	}

	orch, err := a.Orchestrator()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	err = a.manager.Run("capture", func(ctx context.Context) error {
		docs, err := openDocuments(ctx, a.Editor(), fs.Args())
		if err != nil {
			return err
		}
		if err := selectDocument(ctx, a.Editor(), docs[0], bounds); err != nil {
			return err
		}

		if *chat {
			return captureChat(ctx, a, orch, *settings, *outDir)
		}
		return captureTask(ctx, a, orch, *prompt, *settings, *taskPath)
	})
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

func captureTask(ctx context.Context, a *app, orch *imagegen.Orchestrator, prompt string, settings imagegen.SettingsInput, path string) error {
	item, err := orch.CaptureBatchTask(ctx, imagegen.CaptureTaskRequest{Prompt: prompt, Settings: settings})
	if err != nil {
		return err
	}

	tf, err := loadTaskFile(path)
	if err != nil {
		return err
	}
	tf.Tasks = append(tf.Tasks, imagegen.TaskInputFromItem(item))
	if err := saveTaskFile(path, tf); err != nil {
		return err
	}

	a.logger.Info("batch task captured",
		zap.Int64("task_id", item.ID),
		zap.String("doc_name", item.DocName),
		zap.Object("selection", item.Selection),
		zap.String("task_file", path),
	)
	successColor.Fprintf(a.out, "✓ Captured task %d for %s", item.ID, item.DocName)
	dimColor.Fprintf(a.out, " (%d tasks in %s)\n", len(tf.Tasks), path)
	return nil
}

func captureChat(ctx context.Context, a *app, orch *imagegen.Orchestrator, settings imagegen.SettingsInput, outDir string) error {
	capture, err := orch.CaptureChatSelection(ctx, imagegen.ChatCaptureRequest{
		AntiTruncationMode: settings.AntiTruncationMode,
		MaxResolution:      settings.MaxResolution,
	})
	if err != nil {
		return err
	}

	data, err := imaging.DecodeBase64(capture.EncodedImage)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(outDir, capture.Name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write chat attachment: %w", err)
	}

	successColor.Fprintf(a.out, "✓ Chat attachment %s", path)
	dimColor.Fprintf(a.out, " (%s, %dx%d)\n", core.FormatBytesCompact(int64(len(data))), capture.Selection.Width, capture.Selection.Height)
	return nil
}

func runBatch(a *app, args []string) int {
	fs := newFlagSet(a, "batch", "document.png...")
	taskPath := fs.String("tasks", DefaultTaskFile, "task file written by capture")
	outDir := fs.String("out", ".", "directory for the result documents")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() == 0 {
		return usageError(a, fs, "at least one document is required")
	}

	tf, err := loadTaskFile(*taskPath)
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	apiKey, baseURL, err := a.credentials()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	orch, err := a.Orchestrator()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	var (
		result    imagegen.BatchRunResult
		unmatched []imagegen.BatchTaskInput
		exported  []exportedDocument
	)
	start := time.Now()
	err = a.manager.Run("batch", func(ctx context.Context) error {
		docs, err := openDocuments(ctx, a.Editor(), fs.Args())
		if err != nil {
			return err
		}
		var bound []imagegen.BatchTaskInput
		bound, unmatched = bindTasks(tf.Tasks, docs)
		for _, task := range unmatched {
			a.logger.Warn("skipping task for a document that is not open", zap.String("doc_name", task.DocName))
		}

		result, err = orch.RunBatchTasks(ctx, imagegen.BatchRunRequest{
			APIKey:  apiKey,
			BaseURL: baseURL,
			Tasks:   bound,
		})
		if err != nil {
			return err
		}
		exported, err = exportDocuments(ctx, a.Editor(), docs, *outDir)
		return err
	})
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	printHeader(a.out, "Batch")
	for _, task := range result.TaskResults {
		printTaskLine(a, task.DocName, task.SuccessCount, task.TotalCount, task.ErrorMessages)
	}
	for _, task := range unmatched {
		warnColor.Fprintf(a.out, "! %s: skipped, document not open\n", task.DocName)
	}
	fmt.Fprintln(a.out)
	printRunResult(a.out, fmt.Sprintf("%d tasks", result.TaskGroupCount), withoutMessages(result.RunResult), time.Since(start))
	printExports(a.out, exported)

	code := core.ExitCodeForCounts(result.SuccessCount, result.FailureCount)
	if code == core.ExitCodeSuccess && len(unmatched) > 0 {
		code = core.ExitCodePartialFailure
	}
	return code
}

func runPartition(a *app, args []string) int {
	fs := newFlagSet(a, "partition", "document.png...")
	prompt := fs.String("prompt", "", "text prompt applied to every partition (required)")
	outDir := fs.String("out", ".", "directory for the result documents")
	settings := bindSettings(fs)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() == 0 {
		return usageError(a, fs, "at least one document is required")
	}

	apiKey, baseURL, err := a.credentials()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	orch, err := a.Orchestrator()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	var (
		result   imagegen.GlobalPartitionResult
		exported []exportedDocument
	)
	start := time.Now()
	err = a.manager.Run("partition", func(ctx context.Context) error {
		docs, err := openDocuments(ctx, a.Editor(), fs.Args())
		if err != nil {
			return err
		}
		result, err = orch.RunGlobalPartition(ctx, imagegen.GlobalPartitionRequest{
			APIKey:   apiKey,
			BaseURL:  baseURL,
			Prompt:   *prompt,
			Settings: *settings,
		})
		if err != nil {
			return err
		}
		exported, err = exportDocuments(ctx, a.Editor(), docs, *outDir)
		return err
	})
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	printHeader(a.out, "Global Partition")
	for _, doc := range result.DocResults {
		printTaskLine(a, doc.DocName, doc.SuccessCount, doc.SuccessCount+doc.FailureCount, doc.ErrorMessages)
	}
	fmt.Fprintln(a.out)
	printRunResult(a.out, fmt.Sprintf("%d documents, %d partitions", result.DocumentCount, result.TaskCount), withoutMessages(result.RunResult), time.Since(start))
	printExports(a.out, exported)
	return core.ExitCodeForCounts(result.SuccessCount, result.FailureCount)
}

func printTaskLine(a *app, name string, success, total int, messages []string) {
	clr, icon := successColor, "✓"
	switch {
	case success == 0 && total > 0:
		clr, icon = failColor, "✗"
	case success < total:
		clr, icon = warnColor, "!"
	}
	clr.Fprintf(a.out, "%s %s", icon, name)
	dimColor.Fprintf(a.out, " %d/%d\n", success, total)
	for _, msg := range messages {
		failColor.Fprintf(a.out, "    └─ %s\n", msg)
	}
}

// withoutMessages drops run-level messages already printed per task or document.
func withoutMessages(r imagegen.RunResult) imagegen.RunResult {
	r.ErrorMessages = nil
	return r
}

func optionalSelection(raw string) (*core.SelectionBounds, error) {
	if raw == "" {
		return nil, nil
	}
	bounds, err := parseSelection(raw)
	if err != nil {
		return nil, err
	}
	return &bounds, nil
}
