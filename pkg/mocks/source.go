package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/ports"
)

// FrameSource is a mock implementation of ports.FrameSource.
// Without ReadFunc it produces Frames frames filled with their sequence
// number and then io.EOF; Frames < 0 means unlimited.
type FrameSource struct {
	Width    int
	Height   int
	Frames   int
	ReadFunc func(dst *frame.Frame) error

	mu     sync.Mutex
	reads  int
	closed bool
	done   chan struct{}
}

func (m *FrameSource) Size() (int, int) {
	return m.Width, m.Height
}

func (m *FrameSource) Read(dst *frame.Frame) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return io.ErrClosedPipe
	}
	m.reads++
	n := m.reads
	m.mu.Unlock()

	if m.ReadFunc != nil {
		return m.ReadFunc(dst)
	}
	if m.Frames >= 0 && n > m.Frames {
		return io.EOF
	}
	dst.Reset(m.Width, m.Height)
	for i := range dst.Data {
		dst.Data[i] = byte(n)
	}
	return nil
}

func (m *FrameSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		if m.done != nil {
			close(m.done)
		}
	}
	return nil
}

// Done returns a channel closed by Close, for sources that block in ReadFunc.
func (m *FrameSource) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		m.done = make(chan struct{})
		if m.closed {
			close(m.done)
		}
	}
	return m.done
}

// Reads returns how many times Read was called.
func (m *FrameSource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Closed reports whether Close was called.
func (m *FrameSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ ports.FrameSource = (*FrameSource)(nil)

// SourceOpener is a mock implementation of ports.SourceOpener.
type SourceOpener struct {
	OpenFunc func(ctx context.Context, desc ports.SourceDescriptor) (ports.FrameSource, error)

	mu     sync.Mutex
	Opened []ports.SourceDescriptor
}

func (m *SourceOpener) Open(ctx context.Context, desc ports.SourceDescriptor) (ports.FrameSource, error) {
	m.mu.Lock()
	m.Opened = append(m.Opened, desc)
	m.mu.Unlock()
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, desc)
	}
	return &FrameSource{Width: 8, Height: 4, Frames: -1}, nil
}

var _ ports.SourceOpener = (*SourceOpener)(nil)
