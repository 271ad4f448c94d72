// Package ffmpegwriter records BGR frames to a video file by piping them
// into an ffmpeg subprocess.
package ffmpegwriter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/user/multicam/pkg/adapters/ffmpeg"
	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/ports"
)

var (
	// ErrNotInitialized is returned when writer methods are called before Begin.
	ErrNotInitialized = errors.New("ffmpegwriter: writer not initialized")

	// ErrFrameSize is returned when a frame does not match the recording size.
	ErrFrameSize = errors.New("ffmpegwriter: frame size mismatch")
)

// Writer implements ports.VideoWriter with libx264.
type Writer struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	path   string
	width  int
	height int
	frames int
}

// New creates a writer. Each recording needs its own writer.
func New() *Writer {
	return &Writer{}
}

// Factory adapts New to ports.VideoWriterFactory.
func Factory() ports.VideoWriter {
	return New()
}

// Begin creates path and starts ffmpeg.
func (w *Writer) Begin(path string, width, height int, fps float64, opts ports.EncoderOptions) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stdin != nil {
		return fmt.Errorf("ffmpegwriter: already writing %s", w.path)
	}

	// Create the file up front so an unwritable destination fails here and
	// not on the first frame.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	f.Close()

	ffmpegPath, err := ffmpeg.FindFFmpeg()
	if err != nil {
		os.Remove(path)
		return err
	}

	w.path = path
	w.width = width
	w.height = height
	w.frames = 0
	w.stderr.Reset()

	w.cmd = exec.Command(ffmpegPath, Args(path, width, height, fps, opts)...)
	w.cmd.Stderr = &w.stderr

	stdin, err := w.cmd.StdinPipe()
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	if err := w.cmd.Start(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	w.stdin = stdin
	return nil
}

// Args builds the ffmpeg command line for a recording.
func Args(path string, width, height int, fps float64, opts ports.EncoderOptions) []string {
	args := []string{
		"-y",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", fmt.Sprintf("%.2f", fps),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
	}

	if opts.Quality > 0 && opts.Quality <= 63 {
		// Convert our 0-63 scale to x264's CRF (0-51)
		args = append(args, "-crf", fmt.Sprintf("%d", min(opts.Quality*51/63, 51)))
	} else {
		args = append(args, "-crf", "23")
	}
	if opts.Bitrate > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%dk", opts.Bitrate))
	}

	// Fragmented MP4 stays playable if the process dies mid-recording.
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov", ".m4v":
		args = append(args, "-movflags", "+frag_keyframe+empty_moov+default_base_moof")
	}
	return append(args, path)
}

// WriteFrame pipes one frame to ffmpeg.
func (w *Writer) WriteFrame(f *frame.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stdin == nil {
		return ErrNotInitialized
	}
	if f.Width != w.width || f.Height != w.height {
		return fmt.Errorf("%w: got %dx%d, recording %dx%d", ErrFrameSize, f.Width, f.Height, w.width, w.height)
	}
	f.MustBeBGR24()

	row := f.Width * frame.Channels
	if f.Stride == row {
		if _, err := w.stdin.Write(f.Data[:row*f.Height]); err != nil {
			return fmt.Errorf("failed to write frame: %w", err)
		}
	} else {
		for y := 0; y < f.Height; y++ {
			if _, err := w.stdin.Write(f.Data[y*f.Stride : y*f.Stride+row]); err != nil {
				return fmt.Errorf("failed to write frame: %w", err)
			}
		}
	}
	w.frames++
	return nil
}

// End closes the pipe and waits for ffmpeg to finalize the file.
func (w *Writer) End() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stdin == nil {
		return ErrNotInitialized
	}
	w.stdin.Close()
	w.stdin = nil

	if err := w.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encoding failed: %w\nstderr: %s", err, strings.TrimSpace(w.stderr.String()))
	}
	return nil
}

// Frames returns how many frames were written to the current file.
func (w *Writer) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

var _ ports.VideoWriter = (*Writer)(nil)
