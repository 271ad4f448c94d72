// Package ffmpegsource reads video files and stream URLs by letting an ffmpeg
// subprocess decode them to raw BGR24 frames.
package ffmpegsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/user/multicam/pkg/adapters/ffmpeg"
	"github.com/user/multicam/pkg/adapters/mp4probe"
	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/ports"
)

var (
	// ErrNoGeometry is returned when the frame size of the input cannot be determined.
	ErrNoGeometry = errors.New("ffmpegsource: cannot determine frame size")

	// ErrClosed is returned by Read after Close.
	ErrClosed = errors.New("ffmpegsource: source closed")
)

// Source implements ports.FrameSource.
type Source struct {
	path   string
	width  int
	height int

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer

	closeOnce sync.Once
	closed    chan struct{}
}

// Open probes the geometry of path and starts decoding it.
func Open(ctx context.Context, path string) (*Source, error) {
	w, h, err := Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	ffmpegPath, err := ffmpeg.FindFFmpeg()
	if err != nil {
		return nil, err
	}

	s := &Source{path: path, width: w, height: h, closed: make(chan struct{})}
	s.cmd = exec.Command(ffmpegPath, Args(path)...)
	s.cmd.Stderr = &s.stderr

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	s.stdout = stdout
	return s, nil
}

// Args builds the ffmpeg command line that decodes path to raw bgr24 on stdout.
func Args(path string) []string {
	return []string{
		"-loglevel", "error",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-an", "-sn",
		"pipe:1",
	}
}

// Probe returns the frame size of path. MP4 containers are read directly,
// everything else is asked to ffprobe.
func Probe(ctx context.Context, path string) (width, height int, err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov", ".m4v":
		if w, h, err := mp4probe.Geometry(path); err == nil {
			return w, h, nil
		}
	}

	ffprobePath, err := ffmpeg.FindFFprobe()
	if err != nil {
		return 0, 0, err
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe failed: %w\nstderr: %s", err, stderr.String())
	}
	return ParseGeometry(string(out))
}

// ParseGeometry parses ffprobe output of the form "WxH".
func ParseGeometry(s string) (width, height int, err error) {
	line := strings.TrimSpace(s)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	ws, hs, ok := strings.Cut(line, "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrNoGeometry, s)
	}
	width, err1 := strconv.Atoi(ws)
	height, err2 := strconv.Atoi(strings.TrimRight(hs, "x"))
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrNoGeometry, s)
	}
	return width, height, nil
}

// Size returns the decoded frame size.
func (s *Source) Size() (int, int) {
	return s.width, s.height
}

// Read decodes the next frame into dst.
func (s *Source) Read(dst *frame.Frame) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}

	dst.Reset(s.width, s.height)
	if _, err := io.ReadFull(s.stdout, dst.Data); err != nil {
		select {
		case <-s.closed:
			return ErrClosed
		default:
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return io.EOF
		}
		return fmt.Errorf("read frame: %w", err)
	}
	return nil
}

// Close stops ffmpeg and unblocks a pending Read. It is safe to call more than once.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		s.stdout.Close()
		// Killed on purpose; the exit status is not interesting.
		_ = s.cmd.Wait()
	})
	return nil
}

var _ ports.FrameSource = (*Source)(nil)
