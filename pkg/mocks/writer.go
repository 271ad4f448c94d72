package mocks

import (
	"sync"

	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/ports"
)

// VideoWriter is a mock implementation of ports.VideoWriter.
type VideoWriter struct {
	BeginFunc      func(path string, width, height int, fps float64, opts ports.EncoderOptions) error
	WriteFrameFunc func(f *frame.Frame) error
	EndFunc        func() error

	mu sync.Mutex
	// Recorded calls for verification
	Path        string
	Width       int
	Height      int
	FPS         float64
	BeginCalled bool
	Frames      []uint64
	EndCalled   bool
}

func (m *VideoWriter) Begin(path string, width, height int, fps float64, opts ports.EncoderOptions) error {
	m.mu.Lock()
	m.BeginCalled = true
	m.Path, m.Width, m.Height, m.FPS = path, width, height, fps
	m.mu.Unlock()
	if m.BeginFunc != nil {
		return m.BeginFunc(path, width, height, fps, opts)
	}
	return nil
}

func (m *VideoWriter) WriteFrame(f *frame.Frame) error {
	m.mu.Lock()
	m.Frames = append(m.Frames, f.Seq)
	m.mu.Unlock()
	if m.WriteFrameFunc != nil {
		return m.WriteFrameFunc(f)
	}
	return nil
}

func (m *VideoWriter) End() error {
	m.mu.Lock()
	m.EndCalled = true
	m.mu.Unlock()
	if m.EndFunc != nil {
		return m.EndFunc()
	}
	return nil
}

// FrameCount returns how many frames were written.
func (m *VideoWriter) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Frames)
}

// Ended reports whether End was called.
func (m *VideoWriter) Ended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EndCalled
}

var _ ports.VideoWriter = (*VideoWriter)(nil)

// WriterFactory hands out mock writers and keeps every one it created.
type WriterFactory struct {
	// Configure is applied to each new writer when set.
	Configure func(w *VideoWriter)

	mu      sync.Mutex
	Writers []*VideoWriter
}

// New implements ports.VideoWriterFactory.
func (f *WriterFactory) New() ports.VideoWriter {
	w := &VideoWriter{}
	if f.Configure != nil {
		f.Configure(w)
	}
	f.mu.Lock()
	f.Writers = append(f.Writers, w)
	f.mu.Unlock()
	return w
}

// Last returns the most recently created writer, or nil.
func (f *WriterFactory) Last() *VideoWriter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Writers) == 0 {
		return nil
	}
	return f.Writers[len(f.Writers)-1]
}

// At returns the i-th writer created.
func (f *WriterFactory) At(i int) *VideoWriter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Writers[i]
}

// Count returns how many writers were created.
func (f *WriterFactory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Writers)
}

// VideoInspector is a mock implementation of ports.VideoInspector.
type VideoInspector struct {
	InspectFunc func(path string) (ports.VideoInfo, error)
}

func (m *VideoInspector) Inspect(path string) (ports.VideoInfo, error) {
	if m.InspectFunc != nil {
		return m.InspectFunc(path)
	}
	return ports.VideoInfo{Codec: "avc1"}, nil
}

var _ ports.VideoInspector = (*VideoInspector)(nil)
