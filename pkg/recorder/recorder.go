// Package recorder persists a source's frames to timestamped video files.
//
// A Recorder moves between Idle, Recording and Paused. Starting while a file
// is open and stopping while Idle are no-ops. Pausing keeps the file open and
// only suppresses writes.
package recorder

import (
	"fmt"
	"sync"
	"time"

	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/naming"
	"github.com/user/multicam/pkg/ports"
)

// State is the recording state of one source.
type State int

const (
	Idle State = iota
	Recording
	Paused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Options configures where and how recordings are written.
type Options struct {
	Dir     string
	Ext     string
	Encoder ports.EncoderOptions
}

// DefaultExt is used when Options.Ext is empty.
const DefaultExt = "mp4"

// File describes one finished output file.
type File struct {
	Source  string
	Path    string
	Frames  int
	Started time.Time
	Stopped time.Time
	Info    *ports.VideoInfo
	Err     error
}

// Recorder owns at most one open output file.
type Recorder struct {
	opts      Options
	newWriter ports.VideoWriterFactory
	fs        ports.FileSystem
	inspector ports.VideoInspector
	logger    ports.Logger
	now       func() time.Time

	mu       sync.Mutex
	state    State
	writer   ports.VideoWriter
	current  File
	finished []File
}

// New creates an idle Recorder.
func New(opts Options, newWriter ports.VideoWriterFactory, fs ports.FileSystem, logger ports.Logger) *Recorder {
	if opts.Ext == "" {
		opts.Ext = DefaultExt
	}
	return &Recorder{
		opts:      opts,
		newWriter: newWriter,
		fs:        fs,
		logger:    logger,
		now:       time.Now,
	}
}

// SetInspector enables inspection of each file after it is finalized.
func (r *Recorder) SetInspector(i ports.VideoInspector) {
	r.mu.Lock()
	r.inspector = i
	r.mu.Unlock()
}

// SetClock replaces the time source used for file names.
func (r *Recorder) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

// State returns the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Path returns the file being written, or "" when Idle.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Idle {
		return ""
	}
	return r.current.Path
}

// Start opens a new output file for source. It reports started=false without
// error when a file is already open. On failure the state stays Idle.
func (r *Recorder) Start(source string, width, height int, fps float64) (started bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Idle {
		return false, nil
	}
	if width <= 0 || height <= 0 {
		return false, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, width, height)
	}

	if err := r.fs.MkdirAll(r.opts.Dir); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrOpenFailed, r.opts.Dir, err)
	}

	startedAt := r.now()
	path := naming.Path(r.opts.Dir, source, startedAt, r.opts.Ext)
	w := r.newWriter()
	if err := w.Begin(path, width, height, fps, r.opts.Encoder); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrOpenFailed, path, err)
	}

	r.writer = w
	r.current = File{Source: source, Path: path, Started: startedAt}
	r.state = Recording
	r.logger.Info("Recording started: %s", path)
	return true, nil
}

// Append writes f when Recording. It is a no-op when Idle or Paused.
// A write error finalizes the file and returns ErrWriteFailed.
func (r *Recorder) Append(f *frame.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Recording {
		return nil
	}
	if err := r.writer.WriteFrame(f); err != nil {
		r.current.Err = err
		r.finalizeLocked()
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	r.current.Frames++
	return nil
}

// Stop finalizes the open file. ok is false when the recorder was Idle.
func (r *Recorder) Stop() (rec File, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Idle {
		return File{}, false
	}
	return r.finalizeLocked(), true
}

// Pause suppresses writes without closing the file.
func (r *Recorder) Pause() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Recording {
		return false
	}
	r.state = Paused
	return true
}

// Continue resumes writes after Pause.
func (r *Recorder) Continue() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Paused {
		return false
	}
	r.state = Recording
	return true
}

// Recordings returns every finalized recording in order.
func (r *Recorder) Recordings() []File {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]File, len(r.finished))
	copy(out, r.finished)
	return out
}

func (r *Recorder) finalizeLocked() File {
	rec := r.current
	rec.Stopped = r.now()

	if err := r.writer.End(); err != nil && rec.Err == nil {
		rec.Err = err
	}
	r.writer = nil
	r.state = Idle

	switch {
	case rec.Frames == 0:
		// Nothing was written; do not leave an unplayable file behind.
		if err := r.fs.Remove(rec.Path); err != nil {
			r.logger.Debug("Failed to remove empty recording %s: %v", rec.Path, err)
		}
	case rec.Err != nil:
		r.logger.Warn("Recording finished with error: %s: %v", rec.Path, rec.Err)
	case r.inspector != nil:
		info, err := r.inspector.Inspect(rec.Path)
		if err != nil {
			r.logger.Debug("Failed to inspect recording %s: %v", rec.Path, err)
			break
		}
		rec.Info = &info
	}

	r.logger.Info("Recording stopped: %s (%d frames)", rec.Path, rec.Frames)
	r.finished = append(r.finished, rec)
	r.current = File{}
	return rec
}
