package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/multicam/pkg/adapters/logger"
	"github.com/user/multicam/pkg/events"
	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/mocks"
	"github.com/user/multicam/pkg/ports"
	"github.com/user/multicam/pkg/recorder"
	"github.com/user/multicam/pkg/stages/capture"
	"github.com/user/multicam/pkg/stages/display"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

type fixture struct {
	bus     *events.Bus
	events  *events.Recorder
	writers *mocks.WriterFactory
	opener  *mocks.SourceOpener
	fs      *mocks.FileSystem
}

func newFixture() *fixture {
	fx := &fixture{
		bus:     events.NewBus(),
		events:  &events.Recorder{},
		writers: &mocks.WriterFactory{},
		opener:  &mocks.SourceOpener{},
		fs:      mocks.NewFileSystem(),
	}
	fx.bus.Subscribe(fx.events.Emit)
	return fx
}

func (fx *fixture) deps() Deps {
	return Deps{
		Opener:    fx.opener,
		NewWriter: fx.writers.New,
		Renderer:  &mocks.Renderer{},
		FS:        fx.fs,
		Bus:       fx.bus,
		Logger:    logger.NewNoop(),
	}
}

func (fx *fixture) count(kind events.Kind, source string) int {
	n := 0
	for _, e := range fx.events.Events() {
		if e.Kind == kind && e.Source == source {
			n++
		}
	}
	return n
}

func TestInstance_StartScenario(t *testing.T) {
	fx := newFixture()
	desc, _ := ports.ParseSourceDescriptor("cam0", "0")
	p := New(SourceSpec{Descriptor: desc}, DefaultOptions(), fx.deps())
	defer p.Shutdown()

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "image-ready", func() bool { return fx.count(events.ImageReady, "cam0") > 0 })

	evs := fx.events.Events()
	if evs[0].Kind != events.CameraNamed || evs[0].Text != "cam0" || evs[1].Kind != events.CaptureStarted {
		t.Errorf("expected camera-named and capture-started first, got %v %v", evs[0].Kind, evs[1].Kind)
	}
	if fx.count(events.FrameReady, "cam0") == 0 {
		t.Error("expected frame-ready events")
	}
	if !p.Display.HasImage() {
		t.Error("expected display to hold an image")
	}
	if p.ID == "" {
		t.Error("expected an instance id")
	}
}

func TestInstance_OpenFailureIsIsolated(t *testing.T) {
	fx := newFixture()
	fx.opener.OpenFunc = func(ctx context.Context, d ports.SourceDescriptor) (ports.FrameSource, error) {
		if d.Name == "bad" {
			return nil, errors.New("busy")
		}
		return &mocks.FrameSource{Width: 8, Height: 4, Frames: -1}, nil
	}

	bad := New(SourceSpec{Descriptor: ports.SourceDescriptor{Name: "bad", Kind: ports.SourceDevice, Index: 3}}, DefaultOptions(), fx.deps())
	good := New(SourceSpec{Descriptor: ports.SourceDescriptor{Name: "good", Kind: ports.SourceDevice}}, DefaultOptions(), fx.deps())
	defer bad.Shutdown()
	defer good.Shutdown()

	if err := bad.Start(context.Background()); !errors.Is(err, capture.ErrOpenFailed) {
		t.Fatalf("expected ErrOpenFailed, got %v", err)
	}
	if err := good.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "good images", func() bool { return fx.count(events.ImageReady, "good") > 3 })

	if bad.Display.HasImage() {
		t.Error("failed source must stay idle")
	}
}

func TestInstance_ControlRequests(t *testing.T) {
	fx := newFixture()
	p := New(SourceSpec{Descriptor: ports.SourceDescriptor{Name: "cam0"}}, DefaultOptions(), fx.deps())
	defer p.Shutdown()
	p.Start(context.Background())
	waitFor(t, "frames", func() bool { return fx.count(events.FrameReady, "cam0") > 0 })

	p.Display.RequestStartRecording()
	waitFor(t, "recording", func() bool { return p.Display.Recording().Recording })

	p.Display.RequestPauseRecording()
	waitFor(t, "paused", func() bool { return p.Display.Recording().Paused })

	p.Display.RequestContinueRecording()
	p.Display.RequestSnapshot()
	p.Display.RequestStopRecording()
	waitFor(t, "stopped", func() bool { return fx.count(events.RecordingStopped, "cam0") == 1 })
	waitFor(t, "snapshot", func() bool { return fx.count(events.SnapshotSaved, "cam0") == 1 })

	if p.Display.Recording().Recording {
		t.Error("expected the relayed state to be idle")
	}
}

func TestInstance_RestartAfterEndOfStream(t *testing.T) {
	fx := newFixture()
	fx.opener.OpenFunc = func(context.Context, ports.SourceDescriptor) (ports.FrameSource, error) {
		return &mocks.FrameSource{Width: 8, Height: 4, Frames: 2}, nil
	}
	desc := ports.SourceDescriptor{Name: "clip", Kind: ports.SourceFile, Path: "clip.mp4"}
	opts := DefaultOptions()
	opts.Capture.FileFrameInterval = time.Millisecond
	p := New(SourceSpec{Descriptor: desc}, opts, fx.deps())
	defer p.Shutdown()

	p.Start(context.Background())
	waitFor(t, "end of stream", func() bool { return fx.count(events.CaptureStopped, "clip") == 1 })

	p.Display.Request(display.RequestStart)
	waitFor(t, "restart", func() bool { return fx.count(events.CaptureStarted, "clip") == 2 })
}

func TestInstance_ShutdownFinalizesAndIsIdempotent(t *testing.T) {
	fx := newFixture()
	p := New(SourceSpec{Descriptor: ports.SourceDescriptor{Name: "cam0"}, RecordOnStart: true}, DefaultOptions(), fx.deps())
	p.Start(context.Background())
	waitFor(t, "frames", func() bool { return fx.count(events.FrameReady, "cam0") > 3 })

	p.Shutdown()
	w := fx.writers.Last()
	if w == nil || !w.Ended() {
		t.Fatal("expected the recording to be finalized")
	}
	written := w.FrameCount()
	time.Sleep(10 * time.Millisecond)
	if w.FrameCount() != written {
		t.Error("no writes may happen after shutdown")
	}

	p.Shutdown()
	st := p.Stats()
	if st.Capture.Running || st.Capture.Recording != recorder.Idle {
		t.Errorf("unexpected stats after shutdown %+v", st.Capture)
	}
	if len(st.Recordings) != 1 || st.Recordings[0].Frames != written {
		t.Errorf("unexpected recordings %+v", st.Recordings)
	}

	// Requests after shutdown fall back to a direct stop.
	p.RequestStopRecording()
}

func TestInstance_ShutdownAfterQueuedRestartClosesSource(t *testing.T) {
	for run := 0; run < 50; run++ {
		fx := newFixture()
		var (
			mu     sync.Mutex
			opened []*mocks.FrameSource
		)
		fx.opener.OpenFunc = func(context.Context, ports.SourceDescriptor) (ports.FrameSource, error) {
			src := &mocks.FrameSource{Width: 8, Height: 4, Frames: -1}
			mu.Lock()
			opened = append(opened, src)
			mu.Unlock()
			return src, nil
		}
		p := New(SourceSpec{Descriptor: ports.SourceDescriptor{Name: "cam0"}}, DefaultOptions(), fx.deps())
		p.Start(context.Background())
		p.Display.Request(display.RequestStop)
		p.Display.Request(display.RequestStart)
		p.Shutdown()

		if p.Capture.Running() {
			t.Fatalf("run %d: capture still running after shutdown", run)
		}
		mu.Lock()
		for i, src := range opened {
			if !src.Closed() {
				t.Fatalf("run %d: source %d left open", run, i)
			}
		}
		mu.Unlock()
	}
}

func TestInstance_ShutdownWithoutStart(t *testing.T) {
	fx := newFixture()
	p := New(SourceSpec{Descriptor: ports.SourceDescriptor{Name: "cam0"}}, DefaultOptions(), fx.deps())
	p.Shutdown()
}

func TestInstance_ProcessAllOption(t *testing.T) {
	fx := newFixture()
	opts := DefaultOptions()
	opts.Convert.ProcessAll = true
	opts.Convert.Scale = 0.5
	p := New(SourceSpec{Descriptor: ports.SourceDescriptor{Name: "cam0"}}, opts, fx.deps())
	defer p.Shutdown()
	p.Start(context.Background())
	waitFor(t, "images", func() bool { return p.Display.HasImage() })

	p.Display.Render(func(img *frame.Image) {
		if img.Width != 4 || img.Height != 2 {
			t.Errorf("expected half-size 4x2 image, got %dx%d", img.Width, img.Height)
		}
	})
}
