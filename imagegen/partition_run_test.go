package imagegen

import (
	"context"
	"errors"
	"image/color"
	"strings"
	"testing"
	"time"

	"genfill/core"
	"genfill/host"
)

func TestRunGlobalPartition(t *testing.T) {
	editor := host.NewMemoryEditor()
	gray := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	wide := editor.AddDocument("wide.psd", solidImage(400, 200, gray))
	square := editor.AddDocument("square.psd", solidImage(100, 100, gray))

	gen := newFakeGenerator()
	o, sleeper := newTestOrchestrator(t, editor, gen)
	o.config.CaptureDelay = 60 * time.Millisecond
	o.config.UnitDelay = 120 * time.Millisecond

	result, err := o.RunGlobalPartition(context.Background(), GlobalPartitionRequest{
		APIKey:   testKey,
		BaseURL:  testBase,
		Prompt:   "snow",
		Settings: SettingsInput{Count: 2},
	})
	if err != nil {
		t.Fatalf("RunGlobalPartition: %v", err)
	}

	if result.DocumentCount != 2 || result.TaskCount != 6 {
		t.Errorf("documents/tasks = %d/%d, want 2/6", result.DocumentCount, result.TaskCount)
	}
	if result.TotalCount != 6 || result.SuccessCount != 6 || result.FailureCount != 0 {
		t.Errorf("counts = %d/%d/%d, want 6/6/0", result.TotalCount, result.SuccessCount, result.FailureCount)
	}
	if n := gen.calls.Load(); n != 6 {
		t.Errorf("generator calls = %d, want 6", n)
	}
	for _, req := range gen.requests {
		if req.TimeoutSeconds != DefaultTimeoutGlobal {
			t.Errorf("TimeoutSeconds = %d, want %d", req.TimeoutSeconds, DefaultTimeoutGlobal)
		}
	}

	left := groupMembers(t, editor, wide, "Partition-top-left Generated Group")
	right := groupMembers(t, editor, wide, "Partition-top-right Generated Group")
	if len(left) != 2 || len(right) != 2 {
		t.Fatalf("wide groups = %d/%d members, want 2/2", len(left), len(right))
	}
	if want := core.NewSelectionBounds(0, 0, 200, 200); left[0].Bounds != want {
		t.Errorf("top-left bounds = %+v, want %+v", left[0].Bounds, want)
	}
	if want := core.NewSelectionBounds(200, 0, 400, 200); right[1].Bounds != want {
		t.Errorf("top-right bounds = %+v, want %+v", right[1].Bounds, want)
	}
	if full := groupMembers(t, editor, square, "Partition-full Generated Group"); len(full) != 2 {
		t.Errorf("square group members = %d, want 2", len(full))
	}

	if doc := result.DocResults[0]; doc.DocName != "wide.psd" || doc.PartitionCount != 2 || doc.SuccessCount != 4 {
		t.Errorf("wide result = %+v", doc)
	}

	capture, unit := o.config.CaptureDelay, o.config.UnitDelay
	want := []time.Duration{capture, capture, unit, unit, capture, unit}
	if len(sleeper.waits) != len(want) {
		t.Fatalf("waits = %v, want %v", sleeper.waits, want)
	}
	for i := range want {
		if sleeper.waits[i] != want[i] {
			t.Errorf("wait %d = %v, want %v", i, sleeper.waits[i], want[i])
		}
	}
	if n := editor.ScopeViolations(); n != 0 {
		t.Errorf("ScopeViolations = %d, want 0", n)
	}
}

func TestRunGlobalPartition_SwitchFailureFailsDocument(t *testing.T) {
	editor := host.NewMemoryEditor()
	editor.AddDocument("wide.psd", solidImage(40, 20, color.NRGBA{A: 255}))
	editor.FailOn("selectDocument", errors.New("document locked"))

	gen := newFakeGenerator()
	o, _ := newTestOrchestrator(t, editor, gen)

	result, err := o.RunGlobalPartition(context.Background(), GlobalPartitionRequest{
		APIKey: testKey, BaseURL: testBase, Prompt: "x",
		Settings: SettingsInput{Count: 3},
	})
	if err != nil {
		t.Fatalf("RunGlobalPartition: %v", err)
	}
	if result.TotalCount != 6 || result.FailureCount != 6 {
		t.Errorf("counts = %d total, %d failed, want 6/6", result.TotalCount, result.FailureCount)
	}
	want := "[wide.psd] Switch document failed: document locked"
	if len(result.ErrorMessages) != 1 || result.ErrorMessages[0] != want {
		t.Errorf("ErrorMessages = %q, want %q", result.ErrorMessages, want)
	}
	if n := gen.calls.Load(); n != 0 {
		t.Errorf("generator called %d times, want 0", n)
	}
}

func TestRunGlobalPartition_GenerationFailureAttributed(t *testing.T) {
	editor := host.NewMemoryEditor()
	editor.AddDocument("tall.psd", solidImage(20, 40, color.NRGBA{A: 255}))

	gen := newFakeGenerator()
	gen.script[2] = step{err: errors.New("quota exhausted")}
	o, _ := newTestOrchestrator(t, editor, gen)

	result, err := o.RunGlobalPartition(context.Background(), GlobalPartitionRequest{
		APIKey: testKey, BaseURL: testBase, Prompt: "x",
		Settings: SettingsInput{Count: 2},
	})
	if err != nil {
		t.Fatalf("RunGlobalPartition: %v", err)
	}
	want := []string{
		"[tall.psd] Partition top-left item 2 generation failed: quota exhausted",
		"[tall.psd] Partition bottom-left item 2 generation failed: quota exhausted",
	}
	if len(result.ErrorMessages) != 2 || result.ErrorMessages[0] != want[0] || result.ErrorMessages[1] != want[1] {
		t.Errorf("ErrorMessages = %q, want %q", result.ErrorMessages, want)
	}
	if result.SuccessCount != 2 || result.FailureCount != 2 {
		t.Errorf("counts = %d/%d, want 2/2", result.SuccessCount, result.FailureCount)
	}
}

func TestRunGlobalPartition_Preconditions(t *testing.T) {
	o, _ := newTestOrchestrator(t, host.NewMemoryEditor(), newFakeGenerator())

	_, err := o.RunGlobalPartition(context.Background(), GlobalPartitionRequest{APIKey: testKey, BaseURL: testBase, Prompt: " "})
	if !core.HasCode(err, core.ErrCodePromptEmpty) || !strings.Contains(err.Error(), "Global partition") {
		t.Errorf("empty prompt err = %v", err)
	}

	_, err = o.RunGlobalPartition(context.Background(), GlobalPartitionRequest{APIKey: testKey, BaseURL: testBase, Prompt: "x"})
	if !core.HasCode(err, core.ErrCodeNoDocuments) {
		t.Errorf("no documents err = %v", err)
	}
}
