package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"door-tags/layout"
	"door-tags/preset"
	"door-tags/preview"
)

// fakeGenerator is an in-process Generator double. It returns one item per
// name and records every request it sees.
type fakeGenerator struct {
	err      error
	calls    int
	lastReq  preview.Request
	archives int
}

func (g *fakeGenerator) Preview(ctx context.Context, req preview.Request) ([]preview.Item, error) {
	g.calls++
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	items := make([]preview.Item, len(req.Names))
	for i, n := range req.Names {
		items[i] = preview.Item{Image: "/img/preview.png", Label: n}
	}
	return items, nil
}

func (g *fakeGenerator) Generate(ctx context.Context, req preview.Request) (*preview.Archive, error) {
	g.archives++
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	return &preview.Archive{Name: "door_tags_test.zip", Data: []byte("zip")}, nil
}

func topPreset() preset.Preset {
	x, y := 0.5, 0.15
	return preset.Preset{ID: "top", Label: "Top", X: &x, Y: &y}
}

func centerXPreset() preset.Preset {
	x := 0.5
	return preset.Preset{ID: "center-x", Label: "Center X", X: &x}
}

func newArranged(t *testing.T, names string) (*Session, *fakeGenerator) {
	t.Helper()
	s := NewManager(0).Create()
	s.SetInputs([]string{"template.png"}, names, "#000000")
	gen := &fakeGenerator{}
	if _, err := s.EnterArrange(context.Background(), gen, nil); err != nil {
		t.Fatalf("EnterArrange: %v", err)
	}
	return s, gen
}

// checkBridge asserts the submittable field decodes to exactly the in-memory
// store, which must hold after every mutation.
func checkBridge(t *testing.T, s *Session) {
	t.Helper()
	field, snapshot := s.Positions()
	decoded, err := layout.ParsePositions(field)
	if err != nil {
		t.Fatalf("submittable field does not parse: %v", err)
	}
	if diff := cmp.Diff(snapshot, decoded); diff != "" {
		t.Fatalf("submittable field out of sync with store:\n%s", diff)
	}
}

func TestEnterArrangeRequiresImages(t *testing.T) {
	s := NewManager(0).Create()
	s.SetInputs(nil, "Alice", "#000000")
	gen := &fakeGenerator{}

	_, err := s.EnterArrange(context.Background(), gen, nil)
	if !errors.Is(err, ErrNoImages) {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
	if err.Error() != "Please upload at least one image to preview." {
		t.Fatalf("wrong message: %q", err.Error())
	}
	if gen.calls != 0 {
		t.Fatal("validation failure still called the generator")
	}
	if s.Mode() != layout.ModePreview {
		t.Fatal("validation failure changed the mode")
	}
}

func TestEnterArrangeRequiresNames(t *testing.T) {
	s := NewManager(0).Create()
	s.SetInputs([]string{"t.png"}, "\n  \n", "#000000")
	gen := &fakeGenerator{}

	_, err := s.EnterArrange(context.Background(), gen, nil)
	if !errors.Is(err, ErrNoNames) {
		t.Fatalf("expected ErrNoNames, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatal("validation failure still called the generator")
	}
}

func TestEnterArrangeInitializesStore(t *testing.T) {
	s, _ := newArranged(t, "Alice\nBob")

	if s.Mode() != layout.ModeArrange {
		t.Fatalf("mode = %v, want arrange", s.Mode())
	}
	_, snapshot := s.Positions()
	want := map[int]layout.Position{0: layout.DefaultPosition, 1: layout.DefaultPosition}
	if diff := cmp.Diff(want, snapshot); diff != "" {
		t.Fatalf("store after first arrange:\n%s", diff)
	}
	checkBridge(t, s)
}

func TestUpstreamFailureLeavesModeUnchanged(t *testing.T) {
	s := NewManager(0).Create()
	s.SetInputs([]string{"t.png"}, "Alice", "#000000")
	gen := &fakeGenerator{err: &preview.UpstreamError{Text: "boom"}}

	_, err := s.EnterArrange(context.Background(), gen, nil)
	if !errors.Is(err, preview.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if s.Mode() != layout.ModePreview {
		t.Fatal("failed arrange still swapped the mode")
	}
	if _, snapshot := s.Positions(); len(snapshot) != 0 {
		t.Fatal("failed arrange still initialized the store")
	}

	// The gate must reopen after a failure.
	gen.err = nil
	if _, err := s.EnterArrange(context.Background(), gen, nil); err != nil {
		t.Fatalf("arrange after failure: %v", err)
	}
}

func TestModeRoundTripPreservesPositions(t *testing.T) {
	s, gen := newArranged(t, "Alice\nBob")

	s.DragPress(1)
	if _, ok, err := s.DragMove(1, 40, 80, 200, 200); err != nil || !ok {
		t.Fatalf("DragMove: ok=%v err=%v", ok, err)
	}
	s.DragRelease(1)
	checkBridge(t, s)

	if _, err := s.EnterPreview(context.Background(), gen); err != nil {
		t.Fatalf("EnterPreview: %v", err)
	}
	if s.Mode() != layout.ModePreview {
		t.Fatal("mode did not swap to preview")
	}
	if gen.lastReq.Positions == "" {
		t.Fatal("preview request carried no positions despite a non-empty store")
	}

	if _, err := s.EnterArrange(context.Background(), gen, nil); err != nil {
		t.Fatalf("re-EnterArrange: %v", err)
	}
	_, snapshot := s.Positions()
	want := map[int]layout.Position{
		0: layout.DefaultPosition,
		1: {X: 0.2, Y: 0.4},
	}
	if diff := cmp.Diff(want, snapshot); diff != "" {
		t.Fatalf("positions changed across mode round trip:\n%s", diff)
	}
}

func TestDragFlow(t *testing.T) {
	s, _ := newArranged(t, "Alice")

	// A move without a press is a stray global mousemove: dropped.
	if _, ok, err := s.DragMove(0, 10, 10, 100, 100); err != nil || ok {
		t.Fatalf("move without press: ok=%v err=%v", ok, err)
	}

	if err := s.DragPress(0); err != nil {
		t.Fatalf("DragPress: %v", err)
	}
	pos, ok, err := s.DragMove(0, 40, 80, 200, 200)
	if err != nil || !ok {
		t.Fatalf("DragMove: ok=%v err=%v", ok, err)
	}
	if want := (layout.Position{X: 0.2, Y: 0.4}); pos != want {
		t.Fatalf("DragMove = %v, want %v", pos, want)
	}
	checkBridge(t, s)

	s.DragRelease(0)
	if _, ok, _ := s.DragMove(0, 50, 50, 200, 200); ok {
		t.Fatal("move after release still wrote")
	}
}

func TestDragOutsideArrangeModeRejected(t *testing.T) {
	s := NewManager(0).Create()
	if err := s.DragPress(0); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode, got %v", err)
	}
	if _, _, err := s.DragMove(0, 1, 1, 10, 10); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode, got %v", err)
	}
}

func TestApplyPreset(t *testing.T) {
	s, _ := newArranged(t, "A\nB\nC")

	// Top on index 2, regardless of its prior value.
	s.DragPress(2)
	s.DragMove(2, 190, 190, 200, 200)
	s.DragRelease(2)

	pos, field, err := s.ApplyPreset(topPreset(), 2)
	if err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	if want := (layout.Position{X: 0.5, Y: 0.15}); pos != want {
		t.Fatalf("top on index 2 = %v, want %v", pos, want)
	}
	decoded, err := layout.ParsePositions(field)
	if err != nil {
		t.Fatalf("returned field does not parse: %v", err)
	}
	if decoded[2] != pos {
		t.Fatalf("field holds %v for index 2, want %v", decoded[2], pos)
	}
	checkBridge(t, s)
}

func TestApplyPresetAxisOnly(t *testing.T) {
	s, _ := newArranged(t, "A\nB")
	s.DragPress(1)
	s.DragMove(1, 180, 60, 200, 200) // {0.9, 0.3}
	s.DragRelease(1)

	pos, _, err := s.ApplyPreset(centerXPreset(), 1)
	if err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	if want := (layout.Position{X: 0.5, Y: 0.3}); pos != want {
		t.Fatalf("center-x on {0.9,0.3} = %v, want %v", pos, want)
	}
}

func TestApplyPresetWithoutPosition(t *testing.T) {
	s, _ := newArranged(t, "A")
	if _, _, err := s.ApplyPreset(topPreset(), 7); !errors.Is(err, ErrNoPosition) {
		t.Fatalf("expected ErrNoPosition, got %v", err)
	}
}

func TestBeginGenerateValidation(t *testing.T) {
	s := NewManager(0).Create()

	if _, err := s.BeginGenerate(); !errors.Is(err, ErrGenNoImages) {
		t.Fatalf("expected ErrGenNoImages, got %v", err)
	}

	s.SetInputs([]string{"t.png"}, "", "#000000")
	if _, err := s.BeginGenerate(); !errors.Is(err, ErrGenNoNames) {
		t.Fatalf("expected ErrGenNoNames, got %v", err)
	}

	many := ""
	for i := 0; i <= MaxBatchNames; i++ {
		many += "name\n"
	}
	s.SetInputs([]string{"t.png"}, many, "#000000")
	if _, err := s.BeginGenerate(); !errors.Is(err, ErrTooManyNames) {
		t.Fatalf("expected ErrTooManyNames, got %v", err)
	}
}

func TestBusyGate(t *testing.T) {
	s, gen := newArranged(t, "Alice")

	req, err := s.BeginGenerate()
	if err != nil {
		t.Fatalf("BeginGenerate: %v", err)
	}
	if req.Positions == "" {
		t.Fatal("generate request carried no positions")
	}

	if _, err := s.BeginGenerate(); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if _, err := s.EnterArrange(context.Background(), gen, nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for arrange while busy, got %v", err)
	}

	s.EndGenerate()
	if _, err := s.BeginGenerate(); err != nil {
		t.Fatalf("BeginGenerate after EndGenerate: %v", err)
	}
	s.EndGenerate()
}

func TestClosedSessionRejectsEverything(t *testing.T) {
	s, gen := newArranged(t, "Alice")
	s.Close()

	if _, err := s.EnterArrange(context.Background(), gen, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.DragPress(0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, _, err := s.ApplyPreset(topPreset(), 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestItemCountReconciliation(t *testing.T) {
	s, gen := newArranged(t, "A\nB\nC")
	s.DragPress(0)
	s.DragMove(0, 20, 20, 100, 100)
	s.DragRelease(0)

	// Fewer names on the next pass: stale index 2 is dropped, kept indices
	// survive untouched.
	s.SetInputs([]string{"template.png"}, "A\nB", "#000000")
	if _, err := s.EnterArrange(context.Background(), gen, nil); err != nil {
		t.Fatalf("EnterArrange: %v", err)
	}
	_, snapshot := s.Positions()
	want := map[int]layout.Position{
		0: {X: 0.2, Y: 0.2},
		1: layout.DefaultPosition,
	}
	if diff := cmp.Diff(want, snapshot); diff != "" {
		t.Fatalf("store after shrink:\n%s", diff)
	}
	checkBridge(t, s)
}

func TestClientEvents(t *testing.T) {
	s, _ := newArranged(t, "Alice")

	ch := make(chan Event, 16)
	kick := s.SetClient(ch)

	s.DragPress(0)
	s.DragMove(0, 40, 80, 200, 200)

	ev := <-ch
	if ev.Type != "position" || ev.Index != 0 {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Position == nil || *ev.Position != (layout.Position{X: 0.2, Y: 0.4}) {
		t.Fatalf("event position = %v", ev.Position)
	}
	if ev.Positions == "" {
		t.Fatal("event carried no serialized field")
	}

	// A second client displaces the first.
	ch2 := make(chan Event, 16)
	kick2 := s.SetClient(ch2)
	select {
	case <-kick:
	default:
		t.Fatal("first client was not kicked")
	}
	select {
	case <-kick2:
		t.Fatal("second client was kicked immediately")
	default:
	}

	s.ClearClient(ch2)
	s.ClearClient(ch)
}
