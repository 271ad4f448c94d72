// Package capture implements the stage that drives a frame source.
//
// Each Stage owns one read goroutine. Frames are stamped, overlaid with the
// source name and measured FPS, appended to the recorder when recording,
// and published to the next stage, which takes over the reference.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/multicam/pkg/events"
	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/ports"
	"github.com/user/multicam/pkg/recorder"
)

// FileFrameInterval paces file sources to roughly 30 frames per second.
const FileFrameInterval = 33 * time.Millisecond

// FrameConsumer receives published frames and owns the passed reference.
type FrameConsumer interface {
	ProcessFrame(f *frame.Frame)
}

// Options configures a capture stage.
type Options struct {
	FileFrameInterval time.Duration
	DeviceFPS         float64 // frame rate written to recordings of device sources
	StopGrace         time.Duration
	ImagesDir         string
	ImageFormat       ports.ImageFormat
	ImageQuality      int
	LabelStyle        ports.TextStyle
}

// DefaultOptions returns the stage defaults.
func DefaultOptions() Options {
	return Options{
		FileFrameInterval: FileFrameInterval,
		DeviceFPS:         30,
		StopGrace:         time.Second,
		ImagesDir:         "images",
		ImageFormat:       ports.FormatJPEG,
		ImageQuality:      90,
	}
}

// Stats is a snapshot of stage counters.
type Stats struct {
	Running   bool
	Frames    uint64
	FPS       float64
	// Reallocs counts frame buffers the capture pool had to allocate. Buffers
	// rotate between the latest frame, the convert inbox and the converter,
	// so a healthy source stops growing after a few frames.
	Reallocs  uint64
	Recording recorder.State
	Snapshots uint64
}

// Stage drives one FrameSource.
type Stage struct {
	opener   ports.SourceOpener
	rec      *recorder.Recorder
	renderer ports.Renderer
	fs       ports.FileSystem
	consumer FrameConsumer
	emitter  events.Emitter
	logger   ports.Logger
	opts     Options
	pool     *frame.Pool
	now      func() time.Time

	// lifecycle serializes Start and Stop; mu guards the fields below.
	lifecycle sync.Mutex
	mu        sync.Mutex
	desc      ports.SourceDescriptor
	source    ports.FrameSource
	width     int
	height    int
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}

	// latest is the most recently published frame, shared with Snapshot.
	frameMu sync.Mutex
	latest  *frame.Frame

	snapshots sync.WaitGroup
	frames    atomic.Uint64
	fpsBits   atomic.Uint64
	saved     atomic.Uint64

	// Owned by the read goroutine.
	fpsWindow   time.Time
	fpsCount    int
	nameLabel   image.Image
	fpsLabel    image.Image
	fpsLabelFor int
}

// New creates an idle capture stage. renderer may be nil to disable overlays.
func New(
	opener ports.SourceOpener,
	rec *recorder.Recorder,
	renderer ports.Renderer,
	fs ports.FileSystem,
	consumer FrameConsumer,
	emitter events.Emitter,
	logger ports.Logger,
	opts Options,
) *Stage {
	defaults := DefaultOptions()
	if opts.FileFrameInterval <= 0 {
		opts.FileFrameInterval = defaults.FileFrameInterval
	}
	if opts.DeviceFPS <= 0 {
		opts.DeviceFPS = defaults.DeviceFPS
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = defaults.StopGrace
	}
	if opts.ImageQuality <= 0 {
		opts.ImageQuality = defaults.ImageQuality
	}
	if emitter == nil {
		emitter = events.Discard
	}
	return &Stage{
		opener:   opener,
		rec:      rec,
		renderer: renderer,
		fs:       fs,
		consumer: consumer,
		emitter:  emitter,
		logger:   logger,
		opts:     opts,
		pool:     frame.NewPool(),
		now:      time.Now,
	}
}

// Start opens desc and begins the read loop. An open failure leaves the
// stage idle and returns an error wrapping ErrOpenFailed.
func (s *Stage) Start(ctx context.Context, desc ports.SourceDescriptor, recordRequested bool) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if running {
		return ErrAlreadyRunning
	}

	src, err := s.opener.Open(ctx, desc)
	if err != nil {
		s.logger.Warn("Failed to open %s (%s): %v", desc.Name, desc.Target(), err)
		s.emitter.Emit(events.Event{Kind: events.CaptureFailed, Source: desc.Name, Err: err})
		return fmt.Errorf("%w: %s: %v", ErrOpenFailed, desc.Target(), err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.desc = desc
	s.source = src
	s.width, s.height = src.Size()
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	s.fpsWindow = time.Time{}
	s.fpsCount = 0
	s.nameLabel, s.fpsLabel = nil, nil
	s.fpsLabelFor = -1
	done := s.done
	s.mu.Unlock()

	s.logger.Info("Capture started: %s (%s, %dx%d)", desc.Name, desc.Target(), s.width, s.height)
	s.emitter.Emit(events.Event{Kind: events.CameraNamed, Source: desc.Name, Text: desc.Name})
	s.emitter.Emit(events.Event{Kind: events.CaptureStarted, Source: desc.Name})

	if recordRequested {
		// Failures are reported through events; capture keeps running.
		_ = s.StartRecording()
	}

	go s.loop(loopCtx, src, desc, done)
	return nil
}

// Stop ends the read loop, finalizes any recording and closes the source.
// It is idempotent and safe to call while a read is in flight.
func (s *Stage) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, src, done := s.cancel, s.source, s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(s.opts.StopGrace):
		// A read is stuck on the device; closing the source unblocks it.
		s.logger.Debug("Read still blocked after %v, closing source", s.opts.StopGrace)
		if err := src.Close(); err != nil {
			s.logger.Debug("Close source: %v", err)
		}
		<-done
	}

	s.StopRecording()

	if err := src.Close(); err != nil {
		s.logger.Debug("Close source: %v", err)
	}

	s.frameMu.Lock()
	if s.latest != nil {
		s.latest.Release()
		s.latest = nil
	}
	s.frameMu.Unlock()

	s.mu.Lock()
	s.source = nil
	s.mu.Unlock()
}

// Running reports whether the read loop is active.
func (s *Stage) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the current read loop exits, or nil when idle.
func (s *Stage) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Stage) loop(ctx context.Context, src ports.FrameSource, desc ports.SourceDescriptor, done chan struct{}) {
	defer close(done)

	var tick <-chan time.Time
	if desc.IsFile() {
		ticker := time.NewTicker(s.opts.FileFrameInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				s.stopped(desc, nil)
				return
			case <-tick:
			}
		} else if ctx.Err() != nil {
			s.stopped(desc, nil)
			return
		}

		f := s.pool.Get(s.width, s.height)
		if err := src.Read(f); err != nil {
			f.Release()
			if ctx.Err() != nil {
				s.stopped(desc, nil)
				return
			}
			if errors.Is(err, io.EOF) {
				s.logger.Info("End of stream: %s", desc.Name)
			} else {
				s.logger.Warn("Read failed on %s: %v", desc.Name, err)
			}
			s.stopped(desc, err)
			return
		}
		s.handle(f, desc)
	}
}

func (s *Stage) stopped(desc ports.SourceDescriptor, err error) {
	s.emitter.Emit(events.Event{Kind: events.CaptureStopped, Source: desc.Name, Err: err})
}

// handle processes one successfully read frame and hands it on.
func (s *Stage) handle(f *frame.Frame, desc ports.SourceDescriptor) {
	now := s.now()
	f.Seq = s.frames.Add(1)
	f.Captured = now

	s.measureFPS(now)
	s.overlay(f, desc)

	if err := s.rec.Append(f); err != nil {
		s.logger.Warn("Recording of %s stopped: %v", desc.Name, err)
		s.emitter.Emit(events.Event{Kind: events.RecordingStopped, Source: desc.Name, Err: err})
	}

	s.frameMu.Lock()
	prev := s.latest
	s.latest = f.Retain()
	s.frameMu.Unlock()
	if prev != nil {
		prev.Release()
	}

	s.emitter.Emit(events.Event{Kind: events.FrameReady, Source: desc.Name})
	s.consumer.ProcessFrame(f)
}

func (s *Stage) measureFPS(now time.Time) {
	if s.fpsWindow.IsZero() {
		s.fpsWindow = now
	}
	s.fpsCount++
	if elapsed := now.Sub(s.fpsWindow); elapsed >= time.Second {
		fps := float64(s.fpsCount) / elapsed.Seconds()
		s.fpsBits.Store(math.Float64bits(fps))
		s.fpsCount = 0
		s.fpsWindow = now
	}
}

const labelMargin = 8

func (s *Stage) overlay(f *frame.Frame, desc ports.SourceDescriptor) {
	if s.renderer == nil {
		return
	}
	if s.nameLabel == nil {
		s.nameLabel = s.renderer.RenderLabel(desc.Name, s.opts.LabelStyle)
	}
	fps := int(math.Round(s.FPS()))
	if s.fpsLabel == nil || fps != s.fpsLabelFor {
		s.fpsLabel = s.renderer.RenderLabel(fmt.Sprintf("FPS: %d", fps), s.opts.LabelStyle)
		s.fpsLabelFor = fps
	}

	f.Overlay(s.nameLabel, image.Pt(labelMargin, labelMargin))
	y := labelMargin + s.nameLabel.Bounds().Dy() + labelMargin/2
	f.Overlay(s.fpsLabel, image.Pt(labelMargin, y))
}

// FPS returns the read rate measured over the last full second.
func (s *Stage) FPS() float64 {
	return math.Float64frombits(s.fpsBits.Load())
}

// Stats returns the current counters.
func (s *Stage) Stats() Stats {
	return Stats{
		Running:   s.Running(),
		Frames:    s.frames.Load(),
		FPS:       s.FPS(),
		Reallocs:  s.pool.Allocs(),
		Recording: s.rec.State(),
		Snapshots: s.saved.Load(),
	}
}
