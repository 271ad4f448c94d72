package ports

import (
	"github.com/user/multicam/pkg/frame"
)

// VideoWriter abstracts a persistent video file being encoded frame by frame.
type VideoWriter interface {
	// Begin creates the output file at path.
	Begin(path string, width, height int, fps float64, opts EncoderOptions) error

	// WriteFrame appends one frame.
	WriteFrame(f *frame.Frame) error

	// End finalizes and closes the file.
	End() error
}

// VideoWriterFactory creates a fresh writer for each recording.
type VideoWriterFactory func() VideoWriter

// EncoderOptions configures video encoding parameters.
type EncoderOptions struct {
	Bitrate int // Target bitrate in kbps
	Quality int // CRF value: 0-63 (lower is higher quality)
}

// VideoInfo describes a finished video file.
type VideoInfo struct {
	Codec      string
	Width      int
	Height     int
	Samples    int
	DurationMs int
	Fragmented bool
}

// VideoInspector reads container metadata from a finished video file.
type VideoInspector interface {
	Inspect(path string) (VideoInfo, error)
}
