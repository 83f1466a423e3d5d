package imagegen

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"genfill/core"
	"genfill/genclient"
	"genfill/host"
	"genfill/imaging"
	"genfill/logging"

	"go.uber.org/zap/zaptest"
)

// step scripts the answer to the request with a given fan-out index.
type step struct {
	delay time.Duration
	err   error
}

// fakeGenerator answers each request with a solid image whose red channel
// encodes the request index, after an optional per-index delay or error.
type fakeGenerator struct {
	script   map[int]step
	byPrompt map[string]map[int]step
	size     int

	calls    atomic.Int32
	mu       sync.Mutex
	requests []genclient.Request
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		script:   make(map[int]step),
		byPrompt: make(map[string]map[int]step),
		size:     16,
	}
}

func indexColor(index int) color.NRGBA {
	return color.NRGBA{R: uint8(index * 40), G: 10, B: 200, A: 255}
}

func (f *fakeGenerator) Generate(ctx context.Context, req genclient.Request) ([]byte, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	s, ok := f.byPrompt[req.Prompt][req.Index]
	if !ok {
		s = f.script[req.Index]
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return imaging.EncodePNG(solidImage(f.size, f.size, indexColor(req.Index)))
}

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []core.RunRecord
}

func (m *memoryRecorder) RecordRun(_ context.Context, rec core.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func newTestOrchestrator(t *testing.T, editor host.Editor, gen Generator) (*Orchestrator, *recordingSleeper) {
	t.Helper()
	cfg := DefaultOrchestratorConfig()
	cfg.TempDir = t.TempDir()
	o, err := NewOrchestrator(editor, gen, logging.NewFromZap(zaptest.NewLogger(t)), cfg)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	sleeper := &recordingSleeper{}
	o.sleep = sleeper.sleep
	return o, sleeper
}

// groupMembers returns the members of the named group, bottom to top.
func groupMembers(t *testing.T, e *host.MemoryEditor, docID int, name string) []host.LayerInfo {
	t.Helper()
	layers, err := e.Layers(docID)
	if err != nil {
		t.Fatal(err)
	}
	groupID := 0
	for _, l := range layers {
		if l.IsGroup && l.Name == name {
			groupID = l.ID
		}
	}
	if groupID == 0 {
		t.Fatalf("group %q not found in %+v", name, layers)
	}
	var members []host.LayerInfo
	for _, l := range layers {
		if l.ParentID == groupID {
			members = append(members, l)
		}
	}
	return members
}

func closeTo(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -1 && d <= 1
}

const (
	testKey  = "sk-test"
	testBase = "https://api.example.com/"
)
