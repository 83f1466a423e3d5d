package imagegen

import (
	"context"
	"image/color"
	"strings"
	"testing"

	"genfill/core"
	"genfill/genclient"
	"genfill/host"
	"genfill/imaging"
)

func encodedInput(t *testing.T) string {
	t.Helper()
	data, err := imaging.EncodePNG(solidImage(8, 8, color.NRGBA{G: 255, A: 255}))
	if err != nil {
		t.Fatal(err)
	}
	return imaging.EncodeBase64(data)
}

func TestRunBatchTasks_TwoDocuments(t *testing.T) {
	editor := host.NewMemoryEditor()
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	docA := editor.AddDocument("a.psd", solidImage(200, 100, white))
	docB := editor.AddDocument("b.psd", solidImage(100, 100, white))

	gen := newFakeGenerator()
	gen.byPrompt["night"] = map[int]step{2: {err: genclient.NewHTTPError(429, nil)}}

	o, sleeper := newTestOrchestrator(t, editor, gen)
	rec := &memoryRecorder{}
	o.SetRecorder(rec)

	input := encodedInput(t)
	result, err := o.RunBatchTasks(context.Background(), BatchRunRequest{
		APIKey:  testKey,
		BaseURL: testBase,
		Tasks: []BatchTaskInput{
			{
				ID: 1, DocID: float64(docA), DocName: "a.psd", Prompt: "day", EncodedImage: input,
				Selection: SelectionInput{Left: 10, Top: 10, Width: 50, Height: 40},
				Settings:  SettingsInput{Count: 2},
			},
			{
				ID: 2, DocID: float64(docB), DocName: "b.psd", Prompt: "night", EncodedImage: input,
				Selection: SelectionInput{Left: 0, Top: 50, Width: 100, Height: 50},
				Settings:  SettingsInput{Count: 3},
			},
		},
	})
	if err != nil {
		t.Fatalf("RunBatchTasks: %v", err)
	}

	if result.TaskGroupCount != 2 {
		t.Errorf("TaskGroupCount = %d, want 2", result.TaskGroupCount)
	}
	if result.TotalCount != 5 || result.SuccessCount != 4 || result.FailureCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 5/4/1", result.TotalCount, result.SuccessCount, result.FailureCount)
	}
	if len(result.ErrorMessages) != 1 || !strings.HasPrefix(result.ErrorMessages[0], "[b.psd] Item 2 generation failed: Too many requests") {
		t.Errorf("ErrorMessages = %q", result.ErrorMessages)
	}

	taskB := result.TaskResults[1]
	if taskB.TaskID != 2 || taskB.SuccessCount != 2 || taskB.FailureCount != 1 {
		t.Errorf("task b = %+v", taskB)
	}
	if len(taskB.ErrorMessages) != 1 || !strings.HasPrefix(taskB.ErrorMessages[0], "Item 2 generation failed: ") {
		t.Errorf("task b messages = %q", taskB.ErrorMessages)
	}
	if taskA := result.TaskResults[0]; taskA.SuccessCount != 2 || len(taskA.ErrorMessages) != 0 {
		t.Errorf("task a = %+v", taskA)
	}

	membersA := groupMembers(t, editor, docA, "Batch Generated Group")
	if len(membersA) != 2 || membersA[0].Bounds != core.NewSelectionBounds(10, 10, 60, 50) {
		t.Errorf("doc a members = %+v", membersA)
	}
	membersB := groupMembers(t, editor, docB, "Batch Generated Group")
	if len(membersB) != 2 {
		t.Fatalf("doc b members = %d, want 2", len(membersB))
	}
	px, _ := editor.LayerImage(docB, membersB[1].ID)
	if got := px.NRGBAAt(0, 0); !closeTo(got.R, indexColor(3).R) {
		t.Errorf("second placed layer of doc b has red %d, want request 3", got.R)
	}

	if len(sleeper.waits) != 1 || sleeper.waits[0] != o.Config().UnitDelay {
		t.Errorf("waits = %v, want one unit delay between tasks", sleeper.waits)
	}
	if n := editor.ScopeViolations(); n != 0 {
		t.Errorf("ScopeViolations = %d, want 0", n)
	}
	if len(rec.records) != 1 || rec.records[0].DocumentCount != 2 || rec.records[0].Mode != core.RunModeBatch {
		t.Errorf("records = %+v", rec.records)
	}
}

func TestRunBatchTasks_ClosedDocument(t *testing.T) {
	editor := host.NewMemoryEditor()
	o, _ := newTestOrchestrator(t, editor, newFakeGenerator())

	result, err := o.RunBatchTasks(context.Background(), BatchRunRequest{
		APIKey:  testKey,
		BaseURL: testBase,
		Tasks: []BatchTaskInput{{
			DocID: 99, Prompt: "x", EncodedImage: encodedInput(t),
			Selection: SelectionInput{Width: 10, Height: 10},
		}},
	})
	if err != nil {
		t.Fatalf("RunBatchTasks: %v", err)
	}
	if result.SuccessCount != 0 || result.FailureCount != 1 {
		t.Errorf("counts = %d/%d, want 0/1", result.SuccessCount, result.FailureCount)
	}
	want := "[Doc 99] Item 1 place failed: " + ErrDocumentClosed.Error()
	if len(result.ErrorMessages) != 1 || result.ErrorMessages[0] != want {
		t.Errorf("ErrorMessages = %q, want %q", result.ErrorMessages, want)
	}
}

func TestRunBatchTasks_UndecodableInputFailsEveryRequest(t *testing.T) {
	editor := host.NewMemoryEditor()
	docID := editor.AddDocument("a.psd", solidImage(20, 20, color.NRGBA{A: 255}))
	gen := newFakeGenerator()
	o, _ := newTestOrchestrator(t, editor, gen)

	result, err := o.RunBatchTasks(context.Background(), BatchRunRequest{
		APIKey:  testKey,
		BaseURL: testBase,
		Tasks: []BatchTaskInput{{
			DocID: float64(docID), Prompt: "x", EncodedImage: "%%%not-base64",
			Settings: SettingsInput{Count: 2},
		}},
	})
	if err != nil {
		t.Fatalf("RunBatchTasks: %v", err)
	}
	if result.FailureCount != 2 || len(result.ErrorMessages) != 2 {
		t.Errorf("result = %+v", result.RunResult)
	}
	if n := gen.calls.Load(); n != 0 {
		t.Errorf("generator called %d times, want 0", n)
	}
}

func TestRunBatchTasks_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		req      BatchRunRequest
		wantCode string
	}{
		{
			name:     "empty list",
			req:      BatchRunRequest{APIKey: testKey, BaseURL: testBase},
			wantCode: core.ErrCodeTaskListEmpty,
		},
		{
			name:     "missing api key",
			req:      BatchRunRequest{BaseURL: testBase, Tasks: []BatchTaskInput{{DocID: 1, Prompt: "x", EncodedImage: "eA=="}}},
			wantCode: core.ErrCodeAPIKeyEmpty,
		},
		{
			name: "task without prompt",
			req: BatchRunRequest{APIKey: testKey, BaseURL: testBase, Tasks: []BatchTaskInput{
				{DocID: 1, Prompt: "ok", EncodedImage: "eA=="},
				{DocID: 1, Prompt: " ", EncodedImage: "eA=="},
			}},
			wantCode: core.ErrCodePromptEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newFakeGenerator()
			o, _ := newTestOrchestrator(t, host.NewMemoryEditor(), gen)

			_, err := o.RunBatchTasks(context.Background(), tt.req)
			if !core.HasCode(err, tt.wantCode) {
				t.Errorf("err = %v, want code %s", err, tt.wantCode)
			}
			if n := gen.calls.Load(); n != 0 {
				t.Errorf("generator called %d times, want 0", n)
			}
		})
	}
}

func TestCaptureBatchTask(t *testing.T) {
	editor, docID, sel := newSingleDoc(t)
	o, _ := newTestOrchestrator(t, editor, newFakeGenerator())

	item, err := o.CaptureBatchTask(context.Background(), CaptureTaskRequest{
		Prompt:   "stars",
		Settings: SettingsInput{Count: 3, LayerType: "smartObject"},
	})
	if err != nil {
		t.Fatalf("CaptureBatchTask: %v", err)
	}
	if item.DocID != docID || item.DocName != "photo.psd" || item.Selection != sel {
		t.Errorf("item = %+v", item)
	}
	if item.Settings.Count != 3 || item.Settings.LayerType != core.LayerSmartObject {
		t.Errorf("settings = %+v", item.Settings)
	}
	if item.EncodedImage == "" {
		t.Error("EncodedImage is empty")
	}

	// A captured task must be accepted by the batch normalizer unchanged.
	again, err := NormalizeBatchTask(TaskInputFromItem(item), o.now())
	if err != nil || again != item {
		t.Errorf("normalized again = %+v, %v", again, err)
	}
}
