package host

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"genfill/core"
	"genfill/imaging"

	"golang.org/x/image/draw"
)

type scopeKey struct{}

type memLayer struct {
	id     int
	name   string
	img    *image.NRGBA // nil for groups
	offset image.Point
	smart  bool
	color  LayerColor
	mask   bool
	parent int
	group  bool
}

func (l *memLayer) rect() image.Rectangle {
	if l.img == nil {
		return image.Rectangle{}
	}
	return l.img.Bounds().Add(l.offset)
}

type memDoc struct {
	id        int
	name      string
	width     int
	height    int
	bitDepth  int
	layers    []*memLayer // bottom to top
	selection *image.Rectangle
}

// LayerInfo is a snapshot of one layer of a MemoryEditor document.
type LayerInfo struct {
	ID          int
	Name        string
	Bounds      core.SelectionBounds
	SmartObject bool
	Color       LayerColor
	HasMask     bool
	IsGroup     bool
	ParentID    int
}

// MemoryEditor is an Editor over in-memory rasters.
//
// Documents are stacks of positioned NRGBA layers. Flatten and export composite
// them with source-over. DuplicateLayerTo centers the new layer in the target,
// so callers must correct its position themselves.
//
// Every command checks that it runs inside the scope currently holding the
// command stream; calls from anywhere else are counted by ScopeViolations.
type MemoryEditor struct {
	scope       sync.Mutex
	scopeSeq    atomic.Int64
	activeScope atomic.Int64
	violations  atomic.Int64

	mu       sync.Mutex
	docs     map[int]*memDoc
	order    []int
	active   int
	nextID   int
	failures map[string]error
	commands []string
}

// NewMemoryEditor creates an editor with no open documents.
func NewMemoryEditor() *MemoryEditor {
	return &MemoryEditor{
		docs:     make(map[int]*memDoc),
		nextID:   1,
		failures: make(map[string]error),
	}
}

// WithExclusiveAccess implements Editor.
func (e *MemoryEditor) WithExclusiveAccess(ctx context.Context, commandName string, fn func(ctx context.Context) error) error {
	if ctx.Value(scopeKey{}) != nil {
		return ErrNestedScope
	}

	e.scope.Lock()
	defer e.scope.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	id := e.scopeSeq.Add(1)
	e.activeScope.Store(id)
	defer e.activeScope.Store(0)

	e.mu.Lock()
	e.commands = append(e.commands, "scope:"+commandName)
	e.mu.Unlock()

	return fn(context.WithValue(ctx, scopeKey{}, id))
}

// begin validates the scope, takes the state lock and applies injected failures.
func (e *MemoryEditor) begin(ctx context.Context, command string) (func(), error) {
	id, _ := ctx.Value(scopeKey{}).(int64)
	if id == 0 || id != e.activeScope.Load() {
		e.violations.Add(1)
	}

	e.mu.Lock()
	e.commands = append(e.commands, command)
	if err := e.failures[command]; err != nil {
		e.mu.Unlock()
		return nil, err
	}
	return e.mu.Unlock, nil
}

func (e *MemoryEditor) allocID() int {
	id := e.nextID
	e.nextID++
	return id
}

func (e *MemoryEditor) doc(docID int) (*memDoc, error) {
	d, ok := e.docs[docID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrDocumentNotFound, docID)
	}
	return d, nil
}

func (d *memDoc) layerIndex(layerID int) int {
	for i, l := range d.layers {
		if l.id == layerID {
			return i
		}
	}
	return -1
}

func (d *memDoc) layer(layerID int) (*memLayer, error) {
	i := d.layerIndex(layerID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %d in document %d", ErrLayerNotFound, layerID, d.id)
	}
	return d.layers[i], nil
}

func (d *memDoc) info() DocumentInfo {
	return DocumentInfo{ID: d.id, Name: d.name, Width: d.width, Height: d.height}
}

func (d *memDoc) composite() *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, d.width, d.height))
	for _, l := range d.layers {
		if l.group || l.img == nil {
			continue
		}
		draw.Draw(canvas, l.rect(), l.img, l.img.Bounds().Min, draw.Over)
	}
	return canvas
}

func (e *MemoryEditor) addDocLocked(name string, img image.Image) *memDoc {
	px := imaging.ToNRGBA(img)
	d := &memDoc{
		id:       e.allocID(),
		name:     name,
		width:    px.Bounds().Dx(),
		height:   px.Bounds().Dy(),
		bitDepth: 8,
	}
	d.layers = []*memLayer{{id: e.allocID(), name: "Background", img: px}}
	e.docs[d.id] = d
	e.order = append(e.order, d.id)
	e.active = d.id
	return d
}

// AddDocument opens img as a new active document and returns its id.
func (e *MemoryEditor) AddDocument(name string, img image.Image) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addDocLocked(name, img).id
}

// SetSelection sets the live selection of a document.
func (e *MemoryEditor) SetSelection(docID int, bounds core.SelectionBounds) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, err := e.doc(docID)
	if err != nil {
		return err
	}
	r := bounds.Rect()
	d.selection = &r
	return nil
}

// SetBitDepth changes the channel depth of a document.
func (e *MemoryEditor) SetBitDepth(docID, depth int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, err := e.doc(docID)
	if err != nil {
		return err
	}
	d.bitDepth = depth
	return nil
}

// FailOn makes every later call of command fail with err. A nil err clears it.
func (e *MemoryEditor) FailOn(command string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.failures, command)
		return
	}
	e.failures[command] = err
}

// Commands returns the executed command names in order, scopes prefixed "scope:".
func (e *MemoryEditor) Commands() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.commands))
	copy(out, e.commands)
	return out
}

// ScopeViolations counts commands issued outside the scope holding the stream.
func (e *MemoryEditor) ScopeViolations() int {
	return int(e.violations.Load())
}

// Layers returns the layers of a document, bottom to top.
func (e *MemoryEditor) Layers(docID int) ([]LayerInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, err := e.doc(docID)
	if err != nil {
		return nil, err
	}
	out := make([]LayerInfo, 0, len(d.layers))
	for _, l := range d.layers {
		out = append(out, LayerInfo{
			ID:          l.id,
			Name:        l.name,
			Bounds:      d.bounds(l),
			SmartObject: l.smart,
			Color:       l.color,
			HasMask:     l.mask,
			IsGroup:     l.group,
			ParentID:    l.parent,
		})
	}
	return out, nil
}

// LayerImage returns a copy of a layer's pixels.
func (e *MemoryEditor) LayerImage(docID, layerID int) (*image.NRGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, err := e.doc(docID)
	if err != nil {
		return nil, err
	}
	l, err := d.layer(layerID)
	if err != nil {
		return nil, err
	}
	if l.img == nil {
		return nil, fmt.Errorf("host: layer %d has no pixels", layerID)
	}
	return imaging.Clone(l.img), nil
}

// Composite returns the flattened pixels of a document.
func (e *MemoryEditor) Composite(docID int) (*image.NRGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, err := e.doc(docID)
	if err != nil {
		return nil, err
	}
	return d.composite(), nil
}

func (d *memDoc) bounds(l *memLayer) core.SelectionBounds {
	if !l.group {
		return core.BoundsFromRect(l.rect())
	}
	var union image.Rectangle
	for _, child := range d.layers {
		if child.parent == l.id {
			union = union.Union(child.rect())
		}
	}
	return core.BoundsFromRect(union)
}

func (e *MemoryEditor) ActiveDocument(ctx context.Context) (DocumentInfo, error) {
	unlock, err := e.begin(ctx, "activeDocument")
	if err != nil {
		return DocumentInfo{}, err
	}
	defer unlock()

	if e.active == 0 {
		return DocumentInfo{}, ErrNoDocument
	}
	d, err := e.doc(e.active)
	if err != nil {
		return DocumentInfo{}, err
	}
	return d.info(), nil
}

func (e *MemoryEditor) Documents(ctx context.Context) ([]DocumentInfo, error) {
	unlock, err := e.begin(ctx, "documents")
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]DocumentInfo, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.docs[id].info())
	}
	return out, nil
}

func (e *MemoryEditor) SelectDocument(ctx context.Context, docID int) error {
	unlock, err := e.begin(ctx, "selectDocument")
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := e.doc(docID); err != nil {
		return err
	}
	e.active = docID
	return nil
}

func (e *MemoryEditor) DuplicateDocument(ctx context.Context, docID int, name string) (int, error) {
	unlock, err := e.begin(ctx, "duplicateDocument")
	if err != nil {
		return 0, err
	}
	defer unlock()

	src, err := e.doc(docID)
	if err != nil {
		return 0, err
	}
	dup := &memDoc{
		id:       e.allocID(),
		name:     name,
		width:    src.width,
		height:   src.height,
		bitDepth: src.bitDepth,
	}
	if src.selection != nil {
		r := *src.selection
		dup.selection = &r
	}
	ids := make(map[int]int, len(src.layers))
	for _, l := range src.layers {
		cp := *l
		cp.id = e.allocID()
		if l.img != nil {
			cp.img = imaging.Clone(l.img)
		}
		ids[l.id] = cp.id
		dup.layers = append(dup.layers, &cp)
	}
	for _, l := range dup.layers {
		if l.parent != 0 {
			l.parent = ids[l.parent]
		}
	}
	e.docs[dup.id] = dup
	e.order = append(e.order, dup.id)
	e.active = dup.id
	return dup.id, nil
}

func (e *MemoryEditor) CloseDocument(ctx context.Context, docID int) error {
	unlock, err := e.begin(ctx, "closeDocument")
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := e.doc(docID); err != nil {
		return err
	}
	delete(e.docs, docID)
	for i, id := range e.order {
		if id == docID {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	if e.active == docID {
		e.active = 0
		if n := len(e.order); n > 0 {
			e.active = e.order[n-1]
		}
	}
	return nil
}

func (e *MemoryEditor) OpenDocument(ctx context.Context, path string) (int, error) {
	unlock, err := e.begin(ctx, "openDocument")
	if err != nil {
		return 0, err
	}
	defer unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("host: failed to open %s: %w", path, err)
	}
	img, err := imaging.DecodeImage(data)
	if err != nil {
		return 0, fmt.Errorf("host: failed to open %s: %w", path, err)
	}
	return e.addDocLocked(filepath.Base(path), img).id, nil
}

func (e *MemoryEditor) Flatten(ctx context.Context, docID int) error {
	unlock, err := e.begin(ctx, "flatten")
	if err != nil {
		return err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return err
	}
	d.layers = []*memLayer{{id: e.allocID(), name: "Background", img: d.composite()}}
	return nil
}

func (e *MemoryEditor) BitDepth(ctx context.Context, docID int) (int, error) {
	unlock, err := e.begin(ctx, "bitDepth")
	if err != nil {
		return 0, err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return 0, err
	}
	return d.bitDepth, nil
}

func (e *MemoryEditor) ConvertBitDepth(ctx context.Context, docID int, depth int) error {
	unlock, err := e.begin(ctx, "convertBitDepth")
	if err != nil {
		return err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return err
	}
	switch depth {
	case 8, 16, 32:
		d.bitDepth = depth
		return nil
	default:
		return fmt.Errorf("host: unsupported bit depth %d", depth)
	}
}

func (e *MemoryEditor) Crop(ctx context.Context, docID int, bounds core.SelectionBounds) error {
	unlock, err := e.begin(ctx, "crop")
	if err != nil {
		return err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return err
	}
	r := bounds.Rect()
	for _, l := range d.layers {
		l.offset = l.offset.Sub(r.Min)
	}
	d.width, d.height = r.Dx(), r.Dy()
	d.selection = nil
	return nil
}

func (e *MemoryEditor) ExportPNG(ctx context.Context, docID int, path string) error {
	unlock, err := e.begin(ctx, "exportPNG")
	if err != nil {
		return err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return err
	}
	data, err := imaging.EncodePNG(d.composite())
	if err != nil {
		return fmt.Errorf("host: failed to export document %d: %w", docID, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("host: failed to export document %d: %w", docID, err)
	}
	return nil
}

func (e *MemoryEditor) Selection(ctx context.Context, docID int) (core.SelectionBounds, error) {
	unlock, err := e.begin(ctx, "selection")
	if err != nil {
		return core.SelectionBounds{}, err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return core.SelectionBounds{}, err
	}
	if d.selection == nil || d.selection.Empty() {
		return core.SelectionBounds{}, ErrNoSelection
	}
	return core.BoundsFromRect(*d.selection), nil
}

func (e *MemoryEditor) Deselect(ctx context.Context, docID int) error {
	unlock, err := e.begin(ctx, "deselect")
	if err != nil {
		return err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return err
	}
	d.selection = nil
	return nil
}

func (e *MemoryEditor) DuplicateLayerTo(ctx context.Context, srcDoc, dstDoc int) (int, error) {
	unlock, err := e.begin(ctx, "duplicateLayer")
	if err != nil {
		return 0, err
	}
	defer unlock()

	src, err := e.doc(srcDoc)
	if err != nil {
		return 0, err
	}
	dst, err := e.doc(dstDoc)
	if err != nil {
		return 0, err
	}
	px := src.composite()
	l := &memLayer{
		id:     e.allocID(),
		name:   src.name,
		img:    px,
		offset: image.Pt((dst.width-px.Bounds().Dx())/2, (dst.height-px.Bounds().Dy())/2),
	}
	dst.layers = append(dst.layers, l)
	return l.id, nil
}

func (e *MemoryEditor) LayerBounds(ctx context.Context, docID, layerID int) (core.SelectionBounds, error) {
	unlock, err := e.begin(ctx, "layerBounds")
	if err != nil {
		return core.SelectionBounds{}, err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return core.SelectionBounds{}, err
	}
	l, err := d.layer(layerID)
	if err != nil {
		return core.SelectionBounds{}, err
	}
	return d.bounds(l), nil
}

func (e *MemoryEditor) TranslateLayer(ctx context.Context, docID, layerID, dx, dy int) error {
	unlock, err := e.begin(ctx, "translateLayer")
	if err != nil {
		return err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return err
	}
	l, err := d.layer(layerID)
	if err != nil {
		return err
	}
	delta := image.Pt(dx, dy)
	if !l.group {
		l.offset = l.offset.Add(delta)
		return nil
	}
	for _, child := range d.layers {
		if child.parent == l.id {
			child.offset = child.offset.Add(delta)
		}
	}
	return nil
}

func (e *MemoryEditor) ConvertToSmartObject(ctx context.Context, docID, layerID int) error {
	unlock, err := e.begin(ctx, "convertToSmartObject")
	if err != nil {
		return err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return err
	}
	l, err := d.layer(layerID)
	if err != nil {
		return err
	}
	l.smart = true
	return nil
}

func (e *MemoryEditor) MergeVisible(ctx context.Context, docID int) (int, error) {
	unlock, err := e.begin(ctx, "mergeVisible")
	if err != nil {
		return 0, err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return 0, err
	}
	l := &memLayer{id: e.allocID(), name: "Merged", img: d.composite()}
	d.layers = append(d.layers, l)
	return l.id, nil
}

func (e *MemoryEditor) DeleteLayer(ctx context.Context, docID, layerID int) error {
	unlock, err := e.begin(ctx, "deleteLayer")
	if err != nil {
		return err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return err
	}
	i := d.layerIndex(layerID)
	if i < 0 {
		return fmt.Errorf("%w: %d in document %d", ErrLayerNotFound, layerID, docID)
	}
	d.layers = append(d.layers[:i], d.layers[i+1:]...)
	for _, l := range d.layers {
		if l.parent == layerID {
			l.parent = 0
		}
	}
	return nil
}

func (e *MemoryEditor) GroupLayers(ctx context.Context, docID int, layerIDs []int, name string) (int, error) {
	unlock, err := e.begin(ctx, "groupLayers")
	if err != nil {
		return 0, err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return 0, err
	}
	if len(layerIDs) == 0 {
		return 0, fmt.Errorf("host: no layers to group")
	}

	top := -1
	for _, id := range layerIDs {
		i := d.layerIndex(id)
		if i < 0 {
			return 0, fmt.Errorf("%w: %d in document %d", ErrLayerNotFound, id, docID)
		}
		if i > top {
			top = i
		}
	}

	g := &memLayer{id: e.allocID(), name: name, group: true}
	for _, id := range layerIDs {
		d.layers[d.layerIndex(id)].parent = g.id
	}
	d.layers = append(d.layers[:top+1], append([]*memLayer{g}, d.layers[top+1:]...)...)
	return g.id, nil
}

func (e *MemoryEditor) SetLayerColor(ctx context.Context, docID, layerID int, color LayerColor) error {
	unlock, err := e.begin(ctx, "setLayerColor")
	if err != nil {
		return err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return err
	}
	l, err := d.layer(layerID)
	if err != nil {
		return err
	}
	l.color = color
	return nil
}

// BringToFront moves a layer, and the members of a group, to the top of the stack.
func (e *MemoryEditor) BringToFront(ctx context.Context, docID, layerID int) error {
	unlock, err := e.begin(ctx, "bringToFront")
	if err != nil {
		return err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return err
	}
	if d.layerIndex(layerID) < 0 {
		return fmt.Errorf("%w: %d in document %d", ErrLayerNotFound, layerID, docID)
	}

	var rest, moved []*memLayer
	for _, l := range d.layers {
		if l.id == layerID || l.parent == layerID {
			moved = append(moved, l)
		} else {
			rest = append(rest, l)
		}
	}
	d.layers = append(rest, moved...)
	return nil
}

func (e *MemoryEditor) AddRevealAllMask(ctx context.Context, docID, layerID int) error {
	unlock, err := e.begin(ctx, "addRevealAllMask")
	if err != nil {
		return err
	}
	defer unlock()

	d, err := e.doc(docID)
	if err != nil {
		return err
	}
	l, err := d.layer(layerID)
	if err != nil {
		return err
	}
	l.mask = true
	return nil
}

var _ Editor = (*MemoryEditor)(nil)
