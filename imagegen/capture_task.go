package imagegen

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"genfill/core"
	"genfill/host"
	"genfill/imaging"

	"go.uber.org/zap"
)

// CaptureTaskRequest captures the live selection as a batch task.
type CaptureTaskRequest struct {
	Prompt   string
	Settings SettingsInput
}

// CaptureBatchTask captures the live selection of the active document and
// returns a normalized task ready for RunBatchTasks.
func (o *Orchestrator) CaptureBatchTask(ctx context.Context, req CaptureTaskRequest) (core.BatchTaskItem, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return core.BatchTaskItem{}, core.ErrPromptEmpty("")
	}
	settings := NormalizeSettings(req.Settings, DefaultTimeoutBatch)

	var (
		doc      host.DocumentInfo
		captured capturedImage
	)
	err := o.editor.WithExclusiveAccess(ctx, "Capture Batch Task", func(ctx context.Context) error {
		var err error
		doc, err = o.editor.ActiveDocument(ctx)
		if err != nil {
			if errors.Is(err, host.ErrNoDocument) {
				return core.ErrNoOpenDocument()
			}
			return err
		}
		captured, err = o.captureLocked(ctx, CaptureOptions{
			DocID:         doc.ID,
			MaxResolution: settings.MaxResolution,
			AntiMode:      settings.AntiTruncationMode,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, host.ErrNoSelection) {
			return core.BatchTaskItem{}, core.ErrNoSelection()
		}
		return core.BatchTaskItem{}, err
	}

	docName := doc.Name
	if docName == "" {
		docName = DefaultDocName(doc.ID)
	}
	item := core.BatchTaskItem{
		ID:           o.now().UnixMilli() + rand.Int64N(1000),
		DocID:        doc.ID,
		DocName:      docName,
		Prompt:       prompt,
		EncodedImage: captured.result.EncodedImage,
		Selection:    captured.result.Selection,
		Settings:     settings,
	}

	o.logger.Info("captured batch task",
		zap.Int64("task_id", item.ID),
		zap.Int("doc_id", item.DocID),
		zap.Object("selection", item.Selection))
	return item, nil
}

// ChatCaptureRequest controls an AI-chat attachment capture.
type ChatCaptureRequest struct {
	AntiTruncationMode float64
	MaxResolution      float64
}

// ChatCapture is a selection image ready to attach to a chat message.
type ChatCapture struct {
	EncodedImage string               `json:"base64"`
	Selection    core.SelectionBounds `json:"selection"`
	MimeType     string               `json:"mimeType"`
	Name         string               `json:"name"`
}

// CaptureChatSelection stamps the visible layers into a temporary layer,
// captures the live selection and always deletes the stamp afterwards.
func (o *Orchestrator) CaptureChatSelection(ctx context.Context, req ChatCaptureRequest) (ChatCapture, error) {
	settings := NormalizeSettings(SettingsInput{
		AntiTruncationMode: req.AntiTruncationMode,
		MaxResolution:      req.MaxResolution,
	}, DefaultTimeoutSingle)
	log := o.logger.Named("chat-capture")

	var docID, stampID int
	err := o.editor.WithExclusiveAccess(ctx, "Stamp Visible Layer for AI Chat Upload", func(ctx context.Context) error {
		doc, err := o.editor.ActiveDocument(ctx)
		if err != nil {
			if errors.Is(err, host.ErrNoDocument) {
				return core.ErrNoOpenDocument()
			}
			return err
		}
		docID = doc.ID
		stampID, err = o.editor.MergeVisible(ctx, doc.ID)
		return err
	})
	if err != nil {
		return ChatCapture{}, err
	}
	defer func() {
		err := o.editor.WithExclusiveAccess(context.WithoutCancel(ctx), "Cleanup AI Chat Stamp Layer", func(ctx context.Context) error {
			return o.editor.DeleteLayer(ctx, docID, stampID)
		})
		if err != nil {
			log.Warn("failed to delete stamp layer", zap.Int("layer_id", stampID), zap.Error(err))
		}
	}()

	var captured capturedImage
	err = o.editor.WithExclusiveAccess(ctx, "Capture Selection", func(ctx context.Context) error {
		var err error
		captured, err = o.captureLocked(ctx, CaptureOptions{
			DocID:         docID,
			MaxResolution: settings.MaxResolution,
			AntiMode:      settings.AntiTruncationMode,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, host.ErrNoSelection) {
			return ChatCapture{}, core.ErrNoSelection()
		}
		return ChatCapture{}, err
	}

	return ChatCapture{
		EncodedImage: captured.result.EncodedImage,
		Selection:    captured.result.Selection,
		MimeType:     imaging.PNGMimeType,
		Name:         ChatAttachmentName(o.now()),
	}, nil
}

// ChatAttachmentName returns "ps-selection-<UTC timestamp>.png" with the
// colons and dots of the timestamp replaced by dashes.
//
// This is a pure function with no side effects.
func ChatAttachmentName(t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return "ps-selection-" + stamp + ".png"
}
