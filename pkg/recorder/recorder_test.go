package recorder

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/multicam/pkg/adapters/logger"
	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/mocks"
	"github.com/user/multicam/pkg/ports"
)

func newTestRecorder(t *testing.T) (*Recorder, *mocks.WriterFactory, *mocks.FileSystem) {
	t.Helper()
	factory := &mocks.WriterFactory{}
	fs := mocks.NewFileSystem()
	r := New(Options{Dir: "videos"}, factory.New, fs, logger.NewNoop())
	r.SetClock(func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local) })
	return r, factory, fs
}

func TestRecorder_StateSequence(t *testing.T) {
	r, factory, _ := newTestRecorder(t)
	f := frame.New(4, 2)

	if r.State() != Idle {
		t.Fatalf("expected Idle, got %s", r.State())
	}

	started, err := r.Start("cam0", 4, 2, 30)
	if err != nil || !started {
		t.Fatalf("Start() = %v, %v", started, err)
	}
	if r.State() != Recording {
		t.Fatalf("expected Recording, got %s", r.State())
	}
	if err := r.Append(f); err != nil {
		t.Fatal(err)
	}

	if !r.Pause() || r.State() != Paused {
		t.Fatalf("expected Paused, got %s", r.State())
	}
	if err := r.Append(f); err != nil {
		t.Fatal(err)
	}

	if !r.Continue() || r.State() != Recording {
		t.Fatalf("expected Recording, got %s", r.State())
	}
	if err := r.Append(f); err != nil {
		t.Fatal(err)
	}

	rec, ok := r.Stop()
	if !ok {
		t.Fatal("expected Stop to finalize")
	}
	if r.State() != Idle {
		t.Fatalf("expected Idle, got %s", r.State())
	}
	if rec.Frames != 2 {
		t.Errorf("expected 2 frames written (pause suppresses), got %d", rec.Frames)
	}

	w := factory.Last()
	if w.FrameCount() != 2 || !w.Ended() {
		t.Errorf("writer frames=%d ended=%v", w.FrameCount(), w.Ended())
	}
	if factory.Count() != 1 {
		t.Errorf("pause/continue must not reopen the file, got %d writers", factory.Count())
	}
}

func TestRecorder_FileName(t *testing.T) {
	r, factory, fs := newTestRecorder(t)
	if _, err := r.Start("cam0", 4, 2, 30); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join("videos", "cam0 02012024_030405.mp4")
	if got := factory.Last().Path; got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
	if r.Path() != want {
		t.Errorf("Path() = %q", r.Path())
	}
	if ok, _ := fs.Exists("videos"); !ok {
		t.Error("expected videos directory to be created")
	}
}

func TestRecorder_StartWhileActiveIsNoop(t *testing.T) {
	r, factory, _ := newTestRecorder(t)
	r.Start("cam0", 4, 2, 30)

	if started, err := r.Start("cam0", 4, 2, 30); started || err != nil {
		t.Errorf("start while recording: started=%v err=%v", started, err)
	}
	r.Pause()
	if started, err := r.Start("cam0", 4, 2, 30); started || err != nil {
		t.Errorf("start while paused: started=%v err=%v", started, err)
	}
	if r.State() != Paused {
		t.Errorf("expected state to remain Paused, got %s", r.State())
	}
	if factory.Count() != 1 {
		t.Errorf("expected a single writer, got %d", factory.Count())
	}
}

func TestRecorder_StopWhileIdleIsNoop(t *testing.T) {
	r, factory, _ := newTestRecorder(t)
	if _, ok := r.Stop(); ok {
		t.Error("stop while idle must be a no-op")
	}
	if r.Pause() || r.Continue() {
		t.Error("pause/continue while idle must be no-ops")
	}
	if factory.Count() != 0 {
		t.Error("no writer expected")
	}
}

func TestRecorder_OpenFailureStaysIdle(t *testing.T) {
	factory := &mocks.WriterFactory{Configure: func(w *mocks.VideoWriter) {
		w.BeginFunc = func(string, int, int, float64, ports.EncoderOptions) error {
			return errors.New("permission denied")
		}
	}}
	r := New(Options{Dir: "videos"}, factory.New, mocks.NewFileSystem(), logger.NewNoop())

	started, err := r.Start("cam0", 4, 2, 30)
	if started || !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("expected ErrOpenFailed, got started=%v err=%v", started, err)
	}
	if r.State() != Idle {
		t.Errorf("expected Idle, got %s", r.State())
	}
}

func TestRecorder_MkdirFailure(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.MkdirAllFunc = func(string) error { return errors.New("read-only") }
	r := New(Options{Dir: "videos"}, (&mocks.WriterFactory{}).New, fs, logger.NewNoop())

	if _, err := r.Start("cam0", 4, 2, 30); !errors.Is(err, ErrOpenFailed) {
		t.Errorf("expected ErrOpenFailed, got %v", err)
	}
}

func TestRecorder_InvalidGeometry(t *testing.T) {
	r, _, _ := newTestRecorder(t)
	if _, err := r.Start("cam0", 0, 0, 30); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestRecorder_WriteErrorFinalizes(t *testing.T) {
	factory := &mocks.WriterFactory{Configure: func(w *mocks.VideoWriter) {
		n := 0
		w.WriteFrameFunc = func(*frame.Frame) error {
			n++
			if n == 2 {
				return errors.New("broken pipe")
			}
			return nil
		}
	}}
	r := New(Options{Dir: "videos"}, factory.New, mocks.NewFileSystem(), logger.NewNoop())
	r.Start("cam0", 4, 2, 30)

	f := frame.New(4, 2)
	if err := r.Append(f); err != nil {
		t.Fatal(err)
	}
	if err := r.Append(f); !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}
	if r.State() != Idle {
		t.Errorf("expected Idle after write failure, got %s", r.State())
	}
	recs := r.Recordings()
	if len(recs) != 1 || recs[0].Err == nil || recs[0].Frames != 1 {
		t.Errorf("unexpected recordings %+v", recs)
	}
	if !factory.Last().Ended() {
		t.Error("expected writer to be finalized")
	}
}

func TestRecorder_EmptyRecordingIsRemoved(t *testing.T) {
	r, factory, fs := newTestRecorder(t)
	var removed []string
	fs.RemoveFunc = func(p string) error {
		removed = append(removed, p)
		return nil
	}
	r.Start("cam0", 4, 2, 30)
	r.Stop()

	if len(removed) != 1 || removed[0] != factory.Last().Path {
		t.Errorf("expected empty recording to be removed, got %v", removed)
	}
}

func TestRecorder_InspectsFinishedFile(t *testing.T) {
	r, _, _ := newTestRecorder(t)
	r.SetInspector(&mocks.VideoInspector{InspectFunc: func(path string) (ports.VideoInfo, error) {
		if !strings.HasSuffix(path, ".mp4") {
			t.Errorf("unexpected path %q", path)
		}
		return ports.VideoInfo{Codec: "avc1", Samples: 1, Width: 4, Height: 2}, nil
	}})
	r.Start("cam0", 4, 2, 30)
	r.Append(frame.New(4, 2))
	rec, _ := r.Stop()

	if rec.Info == nil || rec.Info.Samples != 1 {
		t.Errorf("expected inspected info, got %+v", rec.Info)
	}
}

func TestRecorder_StopWaitsForInFlightAppend(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	factory := &mocks.WriterFactory{Configure: func(w *mocks.VideoWriter) {
		w.WriteFrameFunc = func(*frame.Frame) error {
			close(entered)
			<-release
			return nil
		}
	}}
	r := New(Options{Dir: "videos"}, factory.New, mocks.NewFileSystem(), logger.NewNoop())
	r.Start("cam0", 4, 2, 30)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Append(frame.New(4, 2))
	}()
	<-entered

	stopped := make(chan File, 1)
	go func() {
		rec, _ := r.Stop()
		stopped <- rec
	}()

	select {
	case <-stopped:
		t.Fatal("stop finished while a write was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	wg.Wait()

	rec := <-stopped
	if rec.Frames != 1 {
		t.Errorf("expected the in-flight frame to be counted, got %d", rec.Frames)
	}
}
