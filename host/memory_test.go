package host

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"testing"

	"genfill/core"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func inScope(t *testing.T, e *MemoryEditor, fn func(ctx context.Context) error) {
	t.Helper()
	if err := e.WithExclusiveAccess(context.Background(), "test", fn); err != nil {
		t.Fatalf("scope failed: %v", err)
	}
}

func TestMemoryEditor_DocumentLifecycle(t *testing.T) {
	e := NewMemoryEditor()
	a := e.AddDocument("a.png", solid(40, 20, color.NRGBA{255, 0, 0, 255}))
	b := e.AddDocument("b.png", solid(10, 10, color.NRGBA{0, 0, 255, 255}))

	inScope(t, e, func(ctx context.Context) error {
		active, err := e.ActiveDocument(ctx)
		if err != nil {
			return err
		}
		if active.ID != b {
			t.Errorf("active = %d, want %d", active.ID, b)
		}

		if err := e.SelectDocument(ctx, a); err != nil {
			return err
		}
		dup, err := e.DuplicateDocument(ctx, a, "temp")
		if err != nil {
			return err
		}
		docs, _ := e.Documents(ctx)
		if len(docs) != 3 {
			t.Errorf("documents = %d, want 3", len(docs))
		}

		if err := e.CloseDocument(ctx, dup); err != nil {
			return err
		}
		active, _ = e.ActiveDocument(ctx)
		if active.ID != b {
			t.Errorf("after close active = %d, want last opened %d", active.ID, b)
		}

		if err := e.SelectDocument(ctx, 999); !errors.Is(err, ErrDocumentNotFound) {
			t.Errorf("SelectDocument(999) err = %v, want ErrDocumentNotFound", err)
		}
		return nil
	})

	if v := e.ScopeViolations(); v != 0 {
		t.Errorf("ScopeViolations = %d, want 0", v)
	}
}

func TestMemoryEditor_CropAndExport(t *testing.T) {
	e := NewMemoryEditor()
	src := solid(100, 50, color.NRGBA{0, 0, 0, 255})
	for y := 10; y < 20; y++ {
		for x := 30; x < 60; x++ {
			src.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	doc := e.AddDocument("src.png", src)
	out := filepath.Join(t.TempDir(), "crop.png")

	inScope(t, e, func(ctx context.Context) error {
		if err := e.Crop(ctx, doc, core.NewSelectionBounds(30, 10, 60, 20)); err != nil {
			return err
		}
		return e.ExportPNG(ctx, doc, out)
	})

	var opened int
	inScope(t, e, func(ctx context.Context) error {
		var err error
		opened, err = e.OpenDocument(ctx, out)
		return err
	})

	img, err := e.Composite(opened)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 30 || img.Bounds().Dy() != 10 {
		t.Fatalf("exported size = %v, want 30x10", img.Bounds())
	}
	if c := img.NRGBAAt(0, 0); c.R != 255 {
		t.Errorf("cropped pixel = %v, want white", c)
	}
}

func TestMemoryEditor_DuplicateLayerCentersThenTranslates(t *testing.T) {
	e := NewMemoryEditor()
	target := e.AddDocument("target", solid(200, 100, color.NRGBA{0, 0, 0, 255}))
	tmp := e.AddDocument("tmp", solid(20, 10, color.NRGBA{0, 255, 0, 255}))

	inScope(t, e, func(ctx context.Context) error {
		id, err := e.DuplicateLayerTo(ctx, tmp, target)
		if err != nil {
			return err
		}
		b, _ := e.LayerBounds(ctx, target, id)
		if b.Left != 90 || b.Top != 45 {
			t.Errorf("duplicated layer at (%d,%d), want centered (90,45)", b.Left, b.Top)
		}
		if err := e.TranslateLayer(ctx, target, id, -80, -40); err != nil {
			return err
		}
		b, _ = e.LayerBounds(ctx, target, id)
		want := core.NewSelectionBounds(10, 5, 30, 15)
		if b != want {
			t.Errorf("translated bounds = %+v, want %+v", b, want)
		}
		return nil
	})
}

func TestMemoryEditor_GroupingOrder(t *testing.T) {
	e := NewMemoryEditor()
	doc := e.AddDocument("doc", solid(10, 10, color.NRGBA{A: 255}))
	var l1, l2, other, group int

	inScope(t, e, func(ctx context.Context) error {
		l1, _ = e.MergeVisible(ctx, doc)
		l2, _ = e.MergeVisible(ctx, doc)
		other, _ = e.MergeVisible(ctx, doc)

		var err error
		group, err = e.GroupLayers(ctx, doc, []int{l1, l2}, "Single Generated Group")
		if err != nil {
			return err
		}
		if err := e.SetLayerColor(ctx, doc, group, ColorYellow); err != nil {
			return err
		}
		if err := e.BringToFront(ctx, doc, group); err != nil {
			return err
		}
		return e.AddRevealAllMask(ctx, doc, group)
	})

	layers, _ := e.Layers(doc)
	var order []int
	for _, l := range layers {
		order = append(order, l.ID)
	}
	// Background, other, then the group members in their original order and the group itself.
	want := []int{layers[0].ID, other, l1, l2, group}
	if len(order) != len(want) {
		t.Fatalf("layer order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("layer order = %v, want %v", order, want)
		}
	}

	top := layers[len(layers)-1]
	if !top.IsGroup || top.Color != ColorYellow || !top.HasMask || top.Name != "Single Generated Group" {
		t.Errorf("group = %+v", top)
	}
	if layers[2].ParentID != group || layers[3].ParentID != group {
		t.Errorf("members not parented to group: %+v", layers)
	}
}

func TestMemoryEditor_SelectionAndBitDepth(t *testing.T) {
	e := NewMemoryEditor()
	doc := e.AddDocument("doc", solid(10, 10, color.NRGBA{A: 255}))

	inScope(t, e, func(ctx context.Context) error {
		if _, err := e.Selection(ctx, doc); !errors.Is(err, ErrNoSelection) {
			t.Errorf("Selection err = %v, want ErrNoSelection", err)
		}
		return nil
	})

	_ = e.SetSelection(doc, core.NewSelectionBounds(1, 2, 5, 6))
	_ = e.SetBitDepth(doc, 16)

	inScope(t, e, func(ctx context.Context) error {
		sel, err := e.Selection(ctx, doc)
		if err != nil {
			return err
		}
		if sel.Width != 4 || sel.Height != 4 {
			t.Errorf("selection = %+v", sel)
		}
		if err := e.ConvertBitDepth(ctx, doc, 8); err != nil {
			return err
		}
		if depth, _ := e.BitDepth(ctx, doc); depth != 8 {
			t.Errorf("bit depth = %d, want 8", depth)
		}
		if err := e.ConvertBitDepth(ctx, doc, 12); err == nil {
			t.Error("expected error for 12-bit conversion")
		}
		return e.Deselect(ctx, doc)
	})
}

func TestMemoryEditor_ScopeViolationsAndNesting(t *testing.T) {
	e := NewMemoryEditor()
	e.AddDocument("doc", solid(4, 4, color.NRGBA{A: 255}))

	if _, err := e.Documents(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v := e.ScopeViolations(); v != 1 {
		t.Errorf("ScopeViolations = %d, want 1", v)
	}

	err := e.WithExclusiveAccess(context.Background(), "outer", func(ctx context.Context) error {
		return e.WithExclusiveAccess(ctx, "inner", func(context.Context) error { return nil })
	})
	if !errors.Is(err, ErrNestedScope) {
		t.Errorf("nested scope err = %v, want ErrNestedScope", err)
	}
}

func TestMemoryEditor_ScopesSerialize(t *testing.T) {
	e := NewMemoryEditor()
	e.AddDocument("doc", solid(4, 4, color.NRGBA{A: 255}))

	var (
		mu      sync.Mutex
		running int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.WithExclusiveAccess(context.Background(), "worker", func(ctx context.Context) error {
				mu.Lock()
				running++
				if running > maxSeen {
					maxSeen = running
				}
				mu.Unlock()

				_, err := e.Documents(ctx)

				mu.Lock()
				running--
				mu.Unlock()
				return err
			})
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max concurrent scopes = %d, want 1", maxSeen)
	}
	if v := e.ScopeViolations(); v != 0 {
		t.Errorf("ScopeViolations = %d, want 0", v)
	}
}

func TestMemoryEditor_FailOn(t *testing.T) {
	e := NewMemoryEditor()
	doc := e.AddDocument("doc", solid(4, 4, color.NRGBA{A: 255}))
	boom := errors.New("boom")
	e.FailOn("flatten", boom)

	err := e.WithExclusiveAccess(context.Background(), "test", func(ctx context.Context) error {
		return e.Flatten(ctx, doc)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	e.FailOn("flatten", nil)
	inScope(t, e, func(ctx context.Context) error { return e.Flatten(ctx, doc) })
}

func TestMemoryEditor_OpenDocumentErrors(t *testing.T) {
	e := NewMemoryEditor()
	err := e.WithExclusiveAccess(context.Background(), "test", func(ctx context.Context) error {
		_, err := e.OpenDocument(ctx, filepath.Join(t.TempDir(), "missing.png"))
		return err
	})
	if err == nil {
		t.Fatal("expected error opening a missing file")
	}
}
