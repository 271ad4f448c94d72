// Package frame defines the pixel buffers that flow through a capture pipeline.
package frame

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Layout identifies the byte layout of a pixel buffer.
type Layout int

const (
	// LayoutBGR24 is 3 channels, 8 bits each, blue first. All captured frames use it.
	LayoutBGR24 Layout = iota
	// LayoutRGB24 is 3 channels, 8 bits each, red first. Display images use it.
	LayoutRGB24
)

// String returns the name of the layout.
func (l Layout) String() string {
	switch l {
	case LayoutBGR24:
		return "bgr24"
	case LayoutRGB24:
		return "rgb24"
	default:
		return "unknown"
	}
}

// Channels is the channel count shared by every layout in this package.
const Channels = 3

// Frame is one captured image in capture-native BGR24 layout.
//
// A Frame handed to the next stage must not be modified by the sender.
// Ownership is tracked with Retain/Release: the last Release returns
// the buffer to the pool it came from.
type Frame struct {
	Width    int
	Height   int
	Stride   int
	Layout   Layout
	Data     []byte
	Seq      uint64
	Captured time.Time

	refs atomic.Int32
	pool *Pool
}

// New allocates a standalone frame outside of any pool.
func New(width, height int) *Frame {
	f := &Frame{}
	f.Reset(width, height)
	f.refs.Store(1)
	return f
}

// Reset resizes the frame, reusing the backing buffer when it is large enough.
func (f *Frame) Reset(width, height int) {
	stride := width * Channels
	n := stride * height
	if cap(f.Data) < n {
		f.Data = make([]byte, n)
	} else {
		f.Data = f.Data[:n]
	}
	f.Width = width
	f.Height = height
	f.Stride = stride
	f.Layout = LayoutBGR24
}

// Retain adds a reference.
func (f *Frame) Retain() *Frame {
	f.refs.Add(1)
	return f
}

// Release drops a reference. The frame must not be used by the caller afterwards.
func (f *Frame) Release() {
	n := f.refs.Add(-1)
	switch {
	case n == 0 && f.pool != nil:
		f.pool.put(f)
	case n < 0:
		panic("frame: release of unreferenced frame")
	}
}

// Clone returns an independent copy with a single reference.
func (f *Frame) Clone() *Frame {
	c := &Frame{
		Width:    f.Width,
		Height:   f.Height,
		Stride:   f.Stride,
		Layout:   f.Layout,
		Data:     make([]byte, len(f.Data)),
		Seq:      f.Seq,
		Captured: f.Captured,
	}
	copy(c.Data, f.Data)
	c.refs.Store(1)
	return c
}

// Geometry returns the frame geometry.
func (f *Frame) Geometry() Geometry {
	return Geometry{Width: f.Width, Height: f.Height, Stride: f.Stride, Layout: f.Layout}
}

// MustBeBGR24 panics when the frame violates the capture format contract.
func (f *Frame) MustBeBGR24() {
	if f.Layout != LayoutBGR24 || f.Stride < f.Width*Channels || len(f.Data) < f.Stride*f.Height {
		panic(fmt.Sprintf("frame: contract violation: layout=%s %dx%d stride=%d len=%d",
			f.Layout, f.Width, f.Height, f.Stride, len(f.Data)))
	}
}

// Pool recycles frame buffers between the capture and convert stages.
type Pool struct {
	p      sync.Pool
	allocs atomic.Uint64
}

// NewPool creates an empty frame pool.
func NewPool() *Pool {
	return &Pool{}
}

// Get returns a frame of the requested size with one reference.
func (p *Pool) Get(width, height int) *Frame {
	f, _ := p.p.Get().(*Frame)
	if f == nil {
		f = &Frame{}
	}
	if cap(f.Data) < width*Channels*height {
		p.allocs.Add(1)
	}
	f.pool = p
	f.Reset(width, height)
	f.Seq = 0
	f.Captured = time.Time{}
	f.refs.Store(1)
	return f
}

// Allocs returns how many Get calls had to allocate a buffer, either because
// the pool was empty or because the recycled buffer was too small. It levels
// off once enough buffers circulate between the stages.
func (p *Pool) Allocs() uint64 {
	return p.allocs.Load()
}

func (p *Pool) put(f *Frame) {
	p.p.Put(f)
}
