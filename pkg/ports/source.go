package ports

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/user/multicam/pkg/frame"
)

// SourceKind distinguishes capture devices from files and stream URLs.
type SourceKind int

const (
	// SourceDevice is a capture device addressed by index.
	SourceDevice SourceKind = iota
	// SourceFile is a video file path or stream URL.
	SourceFile
)

// String returns the kind name.
func (k SourceKind) String() string {
	if k == SourceDevice {
		return "device"
	}
	return "file"
}

// SourceDescriptor identifies one source. It is immutable once a pipeline starts.
type SourceDescriptor struct {
	Name  string
	Kind  SourceKind
	Index int    // device index, SourceDevice only
	Path  string // file path or URL, SourceFile only
}

// ParseSourceDescriptor builds a descriptor from a configured value: an integer
// selects a device, anything else is a file path or URL.
func ParseSourceDescriptor(name, value string) (SourceDescriptor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return SourceDescriptor{}, fmt.Errorf("source %q: empty device index or path", name)
	}
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 {
			return SourceDescriptor{}, fmt.Errorf("source %q: negative device index %d", name, n)
		}
		return SourceDescriptor{Name: name, Kind: SourceDevice, Index: n}, nil
	}
	return SourceDescriptor{Name: name, Kind: SourceFile, Path: value}, nil
}

// Target returns the device index or path as text.
func (d SourceDescriptor) Target() string {
	if d.Kind == SourceDevice {
		return strconv.Itoa(d.Index)
	}
	return d.Path
}

// FrameSource abstracts a blocking capture device or video file.
type FrameSource interface {
	// Size returns the native frame dimensions.
	Size() (width, height int)

	// Read blocks until the next frame is decoded into dst.
	// dst is resized by the source when needed.
	// Returns io.EOF at end of stream.
	Read(dst *frame.Frame) error

	// Close releases the device or file. It unblocks a pending Read.
	Close() error
}

// SourceOpener opens a FrameSource for a descriptor.
type SourceOpener interface {
	Open(ctx context.Context, desc SourceDescriptor) (FrameSource, error)
}

// SourceOpenerFunc is a function adapter for SourceOpener.
type SourceOpenerFunc func(ctx context.Context, desc SourceDescriptor) (FrameSource, error)

// Open implements SourceOpener.
func (f SourceOpenerFunc) Open(ctx context.Context, desc SourceDescriptor) (FrameSource, error) {
	return f(ctx, desc)
}

// IsFile reports whether the descriptor names a file or stream URL.
func (d SourceDescriptor) IsFile() bool {
	return d.Kind == SourceFile
}
