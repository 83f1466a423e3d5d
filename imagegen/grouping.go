package imagegen

import (
	"context"
	"fmt"

	"genfill/host"
)

// GroupAndMask groups the given layers inside its own host scope. It selects
// the document, groups the layers under GroupName(prefix), colors the group
// yellow, brings it to the front and adds a reveal-all mask.
// An empty layer list is a no-op and returns 0.
func (o *Orchestrator) GroupAndMask(ctx context.Context, docID int, layerIDs []int, prefix string) (int, error) {
	if len(layerIDs) == 0 {
		return 0, nil
	}
	var groupID int
	err := o.editor.WithExclusiveAccess(ctx, "Group AI Layers", func(ctx context.Context) error {
		var err error
		groupID, err = o.groupLocked(ctx, docID, layerIDs, prefix)
		return err
	})
	return groupID, err
}

func (o *Orchestrator) groupLocked(ctx context.Context, docID int, layerIDs []int, prefix string) (int, error) {
	if err := o.editor.SelectDocument(ctx, docID); err != nil {
		return 0, fmt.Errorf("imagegen: failed to select document: %w", err)
	}
	groupID, err := o.editor.GroupLayers(ctx, docID, layerIDs, GroupName(prefix))
	if err != nil {
		return 0, fmt.Errorf("imagegen: failed to group layers: %w", err)
	}
	if err := o.editor.SetLayerColor(ctx, docID, groupID, host.ColorYellow); err != nil {
		return groupID, fmt.Errorf("imagegen: failed to color group: %w", err)
	}
	if err := o.editor.BringToFront(ctx, docID, groupID); err != nil {
		return groupID, fmt.Errorf("imagegen: failed to bring group to front: %w", err)
	}
	if err := o.editor.AddRevealAllMask(ctx, docID, groupID); err != nil {
		return groupID, fmt.Errorf("imagegen: failed to add mask: %w", err)
	}
	return groupID, nil
}
