package imagegen

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"genfill/core"
	"genfill/host"
	"genfill/imaging"
)

func TestAlignmentDelta(t *testing.T) {
	target := core.NewSelectionBounds(10, 20, 50, 60)
	actual := core.NewSelectionBounds(30, 25, 70, 65)
	dx, dy := AlignmentDelta(target, actual)
	if dx != -20 || dy != -5 {
		t.Errorf("AlignmentDelta = (%d, %d), want (-20, -5)", dx, dy)
	}
}

func TestPlaceImage(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	generated, err := imaging.EncodePNG(solidImage(64, 64, red))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		antiMode  core.AntiMode
		layerType core.LayerType
		wantColor color.NRGBA
		wantSmart bool
	}{
		{"rasterized", core.AntiModeOff, core.LayerRasterized, red, false},
		{"smart object", core.AntiModeOff, core.LayerSmartObject, red, true},
		{"hue restored", core.AntiModeHue, core.LayerRasterized, color.NRGBA{G: 255, B: 255, A: 255}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor := host.NewMemoryEditor()
			docID := editor.AddDocument("doc.psd", solidImage(100, 80, color.NRGBA{A: 255}))
			o, _ := newTestOrchestrator(t, editor, newFakeGenerator())

			target := core.NewSelectionBounds(10, 20, 50, 60)
			layerID, err := o.PlaceImage(context.Background(), PlaceRequest{
				Image:     generated,
				DocID:     docID,
				Target:    target,
				AntiMode:  tt.antiMode,
				LayerType: tt.layerType,
			})
			if err != nil {
				t.Fatalf("PlaceImage: %v", err)
			}

			layers, _ := editor.Layers(docID)
			top := layers[len(layers)-1]
			if top.ID != layerID {
				t.Fatalf("top layer = %d, want placed layer %d", top.ID, layerID)
			}
			if top.Bounds != target {
				t.Errorf("bounds = %+v, want %+v", top.Bounds, target)
			}
			if top.SmartObject != tt.wantSmart {
				t.Errorf("SmartObject = %v, want %v", top.SmartObject, tt.wantSmart)
			}

			px, _ := editor.LayerImage(docID, layerID)
			got := px.NRGBAAt(20, 20)
			if !closeTo(got.R, tt.wantColor.R) || !closeTo(got.G, tt.wantColor.G) || !closeTo(got.B, tt.wantColor.B) {
				t.Errorf("pixel = %v, want %v", got, tt.wantColor)
			}

			docs, _ := editor.Documents(context.Background())
			if len(docs) != 1 {
				t.Errorf("open documents = %d, want the temp document closed", len(docs))
			}
		})
	}
}

func TestPlaceImage_ClosedDocument(t *testing.T) {
	o, _ := newTestOrchestrator(t, host.NewMemoryEditor(), newFakeGenerator())
	_, err := o.PlaceImage(context.Background(), PlaceRequest{
		Image:  []byte("unused"),
		DocID:  7,
		Target: core.NewSelectionBounds(0, 0, 10, 10),
	})
	if !errors.Is(err, ErrDocumentClosed) {
		t.Errorf("err = %v, want ErrDocumentClosed", err)
	}
}

func TestGroupAndMask(t *testing.T) {
	editor := host.NewMemoryEditor()
	docID := editor.AddDocument("doc.psd", solidImage(50, 50, color.NRGBA{A: 255}))
	o, _ := newTestOrchestrator(t, editor, newFakeGenerator())

	groupID, err := o.GroupAndMask(context.Background(), docID, nil, "Single")
	if err != nil || groupID != 0 {
		t.Errorf("empty group = %d, %v; want no-op", groupID, err)
	}

	img, _ := imaging.EncodePNG(solidImage(4, 4, color.NRGBA{B: 255, A: 255}))
	var ids []int
	for i := 0; i < 2; i++ {
		id, err := o.PlaceImage(context.Background(), PlaceRequest{Image: img, DocID: docID, Target: core.NewSelectionBounds(0, 0, 10, 10)})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	groupID, err = o.GroupAndMask(context.Background(), docID, ids, "Batch")
	if err != nil {
		t.Fatalf("GroupAndMask: %v", err)
	}
	layers, _ := editor.Layers(docID)
	group := layers[len(layers)-1]
	if group.ID != groupID || group.Name != "Batch Generated Group" {
		t.Errorf("top layer = %+v", group)
	}
	if group.Color != host.ColorYellow || !group.HasMask {
		t.Errorf("group color/mask = %s/%v", group.Color, group.HasMask)
	}
}
