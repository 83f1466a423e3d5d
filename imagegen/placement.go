package imagegen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"genfill/core"
	"genfill/imaging"

	"go.uber.org/zap"
)

// ErrDocumentClosed is returned when the placement target is no longer open.
var ErrDocumentClosed = errors.New("imagegen: target document is closed")

// PlaceRequest describes one generated image to place.
type PlaceRequest struct {
	Image     []byte
	DocID     int
	Target    core.SelectionBounds
	AntiMode  core.AntiMode
	LayerType core.LayerType
}

// PlaceImage places a generated image inside its own host scope and returns
// the new layer id.
func (o *Orchestrator) PlaceImage(ctx context.Context, req PlaceRequest) (int, error) {
	var layerID int
	err := o.editor.WithExclusiveAccess(ctx, "Place AI Result", func(ctx context.Context) error {
		var err error
		layerID, err = o.placeLocked(ctx, req)
		return err
	})
	return layerID, err
}

// placeLocked must run inside an exclusive host scope.
//
// The image is resized to exactly the target rectangle and the anti-truncation
// output transform is applied before import. After duplication into the target
// document the layer is moved by the difference between the target and its
// reported bounds, so it lands exactly on the original selection.
func (o *Orchestrator) placeLocked(ctx context.Context, req PlaceRequest) (int, error) {
	log := o.logger.Named("placement").With(zap.Int("doc_id", req.DocID), zap.Object("target", req.Target))

	docs, err := o.editor.Documents(ctx)
	if err != nil {
		return 0, fmt.Errorf("imagegen: failed to list documents: %w", err)
	}
	open := false
	for _, d := range docs {
		if d.ID == req.DocID {
			open = true
			break
		}
	}
	if !open {
		return 0, ErrDocumentClosed
	}

	decoded, err := imaging.DecodeImage(req.Image)
	if err != nil {
		return 0, fmt.Errorf("imagegen: failed to decode generated image: %w", err)
	}
	px := imaging.ResizeExact(decoded, req.Target.Width, req.Target.Height)
	px = imaging.ApplyForOutput(px, req.AntiMode)

	encoded, err := imaging.EncodePNG(px)
	if err != nil {
		return 0, fmt.Errorf("imagegen: failed to encode generated image: %w", err)
	}
	path := filepath.Join(o.config.TempDir, tempFileName("genfill-result"))
	if err := os.WriteFile(path, encoded, 0644); err != nil {
		return 0, fmt.Errorf("imagegen: failed to write temp image: %w", err)
	}
	defer o.removeTemp(path, log)

	tmpDoc, err := o.editor.OpenDocument(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("imagegen: failed to open generated image: %w", err)
	}
	layerID, dupErr := o.editor.DuplicateLayerTo(ctx, tmpDoc, req.DocID)
	if err := o.editor.CloseDocument(ctx, tmpDoc); err != nil {
		log.Warn("failed to close temp document", zap.Error(err))
	}
	if dupErr != nil {
		return 0, fmt.Errorf("imagegen: failed to duplicate layer: %w", dupErr)
	}

	if err := o.editor.SelectDocument(ctx, req.DocID); err != nil {
		return 0, fmt.Errorf("imagegen: failed to select target document: %w", err)
	}

	actual, err := o.editor.LayerBounds(ctx, req.DocID, layerID)
	if err != nil {
		return 0, fmt.Errorf("imagegen: failed to read layer bounds: %w", err)
	}
	dx, dy := AlignmentDelta(req.Target, actual)
	if dx != 0 || dy != 0 {
		if err := o.editor.TranslateLayer(ctx, req.DocID, layerID, dx, dy); err != nil {
			return 0, fmt.Errorf("imagegen: failed to align layer: %w", err)
		}
	}

	if req.LayerType == core.LayerSmartObject {
		if err := o.editor.ConvertToSmartObject(ctx, req.DocID, layerID); err != nil {
			return 0, fmt.Errorf("imagegen: failed to convert to smart object: %w", err)
		}
	}

	log.Debug("placed generated image",
		zap.Int("layer_id", layerID),
		zap.Int("dx", dx),
		zap.Int("dy", dy))
	return layerID, nil
}

// AlignmentDelta returns the translation that moves actual's top-left corner onto target's.
//
// This is a pure function with no side effects.
func AlignmentDelta(target, actual core.SelectionBounds) (dx, dy int) {
	return target.Left - actual.Left, target.Top - actual.Top
}
