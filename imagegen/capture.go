package imagegen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"genfill/core"
	"genfill/host"
	"genfill/imaging"

	"go.uber.org/zap"
)

// tempDocumentName names the throwaway duplicate a capture works on.
const tempDocumentName = "temp_ai_process"

// CaptureOptions controls one selection capture.
type CaptureOptions struct {
	// DocID is the document to capture. Zero means the active document.
	DocID int

	// Bounds overrides the live selection, as partition mode does.
	Bounds *core.SelectionBounds

	// MaxResolution caps the longer side of the encoded image.
	MaxResolution int

	// AntiMode is applied to the pixels before encoding.
	AntiMode core.AntiMode
}

// capturedImage is a capture plus the PNG bytes behind its encoded payload.
type capturedImage struct {
	result core.CaptureResult
	png    []byte
}

// CaptureSelection extracts a region as a flattened, transformed and
// downscaled PNG inside its own host scope. It returns host.ErrNoSelection
// when no bounds are given and the document has no live selection.
//
// The returned Selection is the original rectangle in document coordinates,
// whatever the downscale.
func (o *Orchestrator) CaptureSelection(ctx context.Context, opts CaptureOptions) (core.CaptureResult, error) {
	var captured capturedImage
	err := o.editor.WithExclusiveAccess(ctx, "Capture Selection", func(ctx context.Context) error {
		var err error
		captured, err = o.captureLocked(ctx, opts)
		return err
	})
	if err != nil {
		return core.CaptureResult{}, err
	}
	return captured.result, nil
}

// captureLocked must run inside an exclusive host scope.
func (o *Orchestrator) captureLocked(ctx context.Context, opts CaptureOptions) (capturedImage, error) {
	log := o.logger.Named("capture")

	docID := opts.DocID
	if docID == 0 {
		doc, err := o.editor.ActiveDocument(ctx)
		if err != nil {
			if errors.Is(err, host.ErrNoDocument) {
				return capturedImage{}, core.ErrNoOpenDocument()
			}
			return capturedImage{}, fmt.Errorf("imagegen: failed to read active document: %w", err)
		}
		docID = doc.ID
	}

	var bounds core.SelectionBounds
	if opts.Bounds != nil {
		bounds = *opts.Bounds
	} else {
		sel, err := o.editor.Selection(ctx, docID)
		if err != nil {
			return capturedImage{}, err
		}
		bounds = sel
	}

	maxResolution := opts.MaxResolution
	if maxResolution <= 0 {
		maxResolution = DefaultMaxResolution
	}

	log = log.With(zap.Int("doc_id", docID), zap.Object("bounds", bounds))

	dupID, err := o.editor.DuplicateDocument(ctx, docID, tempDocumentName)
	if err != nil {
		return capturedImage{}, fmt.Errorf("imagegen: failed to duplicate document: %w", err)
	}
	defer func() {
		if err := o.editor.CloseDocument(ctx, dupID); err != nil {
			log.Warn("failed to close temp document", zap.Error(err))
		}
		if err := o.editor.SelectDocument(ctx, docID); err != nil {
			log.Warn("failed to reselect source document", zap.Error(err))
		}
	}()

	if err := o.editor.Flatten(ctx, dupID); err != nil {
		return capturedImage{}, fmt.Errorf("imagegen: failed to flatten: %w", err)
	}
	depth, err := o.editor.BitDepth(ctx, dupID)
	if err != nil {
		return capturedImage{}, fmt.Errorf("imagegen: failed to read bit depth: %w", err)
	}
	if depth != 8 {
		if err := o.editor.ConvertBitDepth(ctx, dupID, 8); err != nil {
			return capturedImage{}, fmt.Errorf("imagegen: failed to convert to 8-bit: %w", err)
		}
	}
	if err := o.editor.Crop(ctx, dupID, bounds); err != nil {
		return capturedImage{}, fmt.Errorf("imagegen: failed to crop: %w", err)
	}

	path := filepath.Join(o.config.TempDir, tempFileName("genfill-capture"))
	if err := o.editor.ExportPNG(ctx, dupID, path); err != nil {
		return capturedImage{}, fmt.Errorf("imagegen: failed to export capture: %w", err)
	}
	defer o.removeTemp(path, log)

	data, err := os.ReadFile(path)
	if err != nil {
		return capturedImage{}, fmt.Errorf("imagegen: failed to read capture: %w", err)
	}
	decoded, err := imaging.DecodeImage(data)
	if err != nil {
		return capturedImage{}, fmt.Errorf("imagegen: failed to decode capture: %w", err)
	}

	px := imaging.ApplyForInput(imaging.ToNRGBA(decoded), opts.AntiMode)
	px = imaging.FitWithin(px, maxResolution)

	encoded, err := imaging.EncodePNG(px)
	if err != nil {
		return capturedImage{}, fmt.Errorf("imagegen: failed to encode capture: %w", err)
	}

	log.Debug("captured selection",
		zap.Int("encoded_width", px.Bounds().Dx()),
		zap.Int("encoded_height", px.Bounds().Dy()),
		zap.Int("bytes", len(encoded)))

	return capturedImage{
		result: core.CaptureResult{
			EncodedImage: imaging.EncodeBase64(encoded),
			Selection:    bounds,
		},
		png: encoded,
	}, nil
}
