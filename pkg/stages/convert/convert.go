// Package convert implements the stage that turns captured BGR frames into
// display images.
//
// Frames are handed over through a single-slot mailbox: when conversion
// falls behind, the waiting frame is replaced by the newer one and counted
// as dropped. Memory per source stays constant and latency stays bounded.
package convert

import (
	"context"
	"image"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/image/draw"

	"github.com/user/multicam/pkg/events"
	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/mailbox"
	"github.com/user/multicam/pkg/ports"
)

// ImageSink receives converted images. The image is only valid during the
// call; sinks copy what they keep.
type ImageSink interface {
	SetImage(img *frame.Image)
}

// Options configures the stage.
type Options struct {
	// Scale multiplies the native frame size. 0 means 1.
	Scale float64
	// ProcessAll converts every frame on the caller's goroutine instead of
	// keeping only the newest.
	ProcessAll bool
}

// Stats is a snapshot of stage counters.
type Stats struct {
	Submitted uint64
	Converted uint64
	Dropped   uint64
	Reallocs  uint64
}

// Stage converts frames for one source.
type Stage struct {
	name    string
	sink    ImageSink
	emitter events.Emitter
	logger  ports.Logger
	opts    Options
	inbox   *mailbox.Slot[*frame.Frame]

	// mu serializes conversions and guards the buffers they reuse.
	mu      sync.Mutex
	dst     *frame.Image
	rgba    *image.RGBA
	scaled  *image.RGBA
	tracker frame.AddressTracker

	submitted atomic.Uint64
	converted atomic.Uint64
}

// New creates a convert stage publishing to sink.
func New(name string, sink ImageSink, emitter events.Emitter, logger ports.Logger, opts Options) *Stage {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if emitter == nil {
		emitter = events.Discard
	}
	return &Stage{
		name:    name,
		sink:    sink,
		emitter: emitter,
		logger:  logger,
		opts:    opts,
		inbox:   mailbox.New[*frame.Frame](),
	}
}

// ProcessFrame accepts f and takes over its reference. It never blocks on
// conversion unless ProcessAll is set.
func (s *Stage) ProcessFrame(f *frame.Frame) {
	s.submitted.Add(1)
	if s.opts.ProcessAll {
		s.convert(f)
		f.Release()
		return
	}
	if old, dropped := s.inbox.Put(f); dropped {
		s.logger.Debug("Dropped frame %d", old.Seq)
		old.Release()
	}
}

// Run converts the newest pending frame until ctx is done. Run may be
// called once; the stage does not accept frames afterwards.
func (s *Stage) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, s.Close)
	defer stop()

	for {
		f, ok := s.inbox.Take()
		if !ok {
			return
		}
		s.convert(f)
		f.Release()
	}
}

// Close stops Run and releases a frame still waiting in the inbox.
func (s *Stage) Close() {
	if pending, had := s.inbox.Close(); had {
		pending.Release()
	}
}

func (s *Stage) convert(f *frame.Frame) {
	f.MustBeBGR24()

	w, h := f.Width, f.Height
	if s.opts.Scale != 1 {
		w = max(1, int(math.Round(float64(f.Width)*s.opts.Scale)))
		h = max(1, int(math.Round(float64(f.Height)*s.opts.Scale)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dst == nil || s.dst.Width != w || s.dst.Height != h {
		s.dst = frame.NewImage(w, h)
	}
	s.tracker.Track(s.dst.Pix)

	if w == f.Width && h == f.Height {
		swapToRGB(s.dst, f)
	} else {
		s.rgba = f.ToRGBA(s.rgba)
		if s.scaled == nil || s.scaled.Rect.Dx() != w || s.scaled.Rect.Dy() != h {
			s.scaled = image.NewRGBA(image.Rect(0, 0, w, h))
		}
		draw.ApproxBiLinear.Scale(s.scaled, s.scaled.Rect, s.rgba, s.rgba.Rect, draw.Src, nil)
		packRGB(s.dst, s.scaled)
	}

	s.converted.Add(1)
	s.sink.SetImage(s.dst)
	s.emitter.Emit(events.Event{Kind: events.ImageReady, Source: s.name})
}

// swapToRGB copies a same-sized BGR frame into dst, reversing channel order.
func swapToRGB(dst *frame.Image, f *frame.Frame) {
	for y := 0; y < f.Height; y++ {
		src := f.Data[y*f.Stride : y*f.Stride+f.Width*frame.Channels]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+f.Width*frame.Channels]
		for i := 0; i < len(src); i += 3 {
			out[i] = src[i+2]
			out[i+1] = src[i+1]
			out[i+2] = src[i]
		}
	}
}

func packRGB(dst *frame.Image, src *image.RGBA) {
	for y := 0; y < dst.Height; y++ {
		in := src.Pix[y*src.Stride : y*src.Stride+dst.Width*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+dst.Width*frame.Channels]
		for x, o := 0, 0; o < len(out); x, o = x+4, o+3 {
			out[o] = in[x]
			out[o+1] = in[x+1]
			out[o+2] = in[x+2]
		}
	}
}

// Stats returns the current counters.
func (s *Stage) Stats() Stats {
	return Stats{
		Submitted: s.submitted.Load(),
		Converted: s.converted.Load(),
		Dropped:   s.inbox.Stats().Drops,
		Reallocs:  s.tracker.Reallocs(),
	}
}
