package imagegen

import (
	"context"
	"fmt"

	"genfill/core"
	"genfill/genclient"
	"genfill/logging"

	"go.uber.org/zap"
)

// unit is one capture for which Count generation requests are issued.
type unit struct {
	docID       int
	prompt      string
	input       []byte
	inputErr    error
	selection   core.SelectionBounds
	settings    core.GenerationSettings
	groupPrefix string

	apiKey  string
	baseURL string

	messages unitMessages
}

// unitMessages formats the error strings of a unit. Each orchestrator labels
// failures its own way.
type unitMessages struct {
	generationFailed func(index int, err error) string
	placeFailed      func(index int, err error) string
	groupFailed      func(err error) string
}

// generate fans out the unit's requests. No host command is issued here.
func (o *Orchestrator) generate(ctx context.Context, u *unit) []generationOutcome {
	return fanOut(ctx, u.settings.Count, func(ctx context.Context, index int) ([]byte, error) {
		if u.inputErr != nil {
			return nil, u.inputErr
		}
		return o.generator.Generate(ctx, genclient.Request{
			APIKey:         u.apiKey,
			BaseURL:        u.baseURL,
			Prompt:         u.prompt,
			InputImage:     u.input,
			Size:           u.settings.Size,
			TimeoutSeconds: u.settings.TimeoutSeconds,
			Index:          index,
		})
	})
}

// recordGenerationFailures appends one message per failed request, in index order.
func (u *unit) recordGenerationFailures(outcomes []generationOutcome, b *resultBuilder) {
	for _, oc := range outcomes {
		if oc.err != nil {
			b.fail(u.messages.generationFailed(oc.index, oc.err))
		}
	}
}

// placeAndGroup places successful outcomes one by one in request order, each in
// its own host scope, then groups whatever was created. Nothing is rolled back
// on failure. It returns the number of layers created.
func (o *Orchestrator) placeAndGroup(ctx context.Context, u *unit, outcomes []generationOutcome, b *resultBuilder, log *logging.Logger) int {
	layerIDs := make([]int, 0, len(outcomes))
	for _, oc := range outcomes {
		if oc.err != nil {
			continue
		}
		layerID, err := o.PlaceImage(ctx, PlaceRequest{
			Image:     oc.data,
			DocID:     u.docID,
			Target:    u.selection,
			AntiMode:  u.settings.AntiTruncationMode,
			LayerType: u.settings.LayerType,
		})
		if err != nil {
			log.Warn("placement failed", zap.Int("index", oc.index), zap.Error(err))
			b.fail(u.messages.placeFailed(oc.index, err))
			continue
		}
		layerIDs = append(layerIDs, layerID)
	}

	if len(layerIDs) > 0 {
		if _, err := o.GroupAndMask(ctx, u.docID, layerIDs, u.groupPrefix); err != nil {
			log.Error("grouping failed", zap.Error(err))
			b.fail(u.messages.groupFailed(err))
		}
	}

	b.succeed(len(layerIDs))
	return len(layerIDs)
}

func groupFailedMessage(err error) string {
	return fmt.Sprintf("Group failed: %v", err)
}

// batchMessages labels failures "Item N ...".
func batchMessages() unitMessages {
	return unitMessages{
		generationFailed: func(index int, err error) string {
			return fmt.Sprintf("Item %d generation failed: %v", index, err)
		},
		placeFailed: func(index int, err error) string {
			return fmt.Sprintf("Item %d place failed: %v", index, err)
		},
		groupFailed: groupFailedMessage,
	}
}

// singleMessages differs from batchMessages only in the generation label.
func singleMessages() unitMessages {
	m := batchMessages()
	m.generationFailed = func(index int, err error) string {
		return fmt.Sprintf("Item %d failed: %v", index, err)
	}
	return m
}

// partitionMessages labels failures with the partition name.
func partitionMessages(name string) unitMessages {
	return unitMessages{
		generationFailed: func(index int, err error) string {
			return fmt.Sprintf("Partition %s item %d generation failed: %v", name, index, err)
		},
		placeFailed: func(index int, err error) string {
			return fmt.Sprintf("Partition %s item %d place exception: %v", name, index, err)
		},
		groupFailed: func(err error) string {
			return fmt.Sprintf("Partition %s group failed: %v", name, err)
		},
	}
}
