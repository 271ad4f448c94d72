// Package display implements the sink that holds the latest image of a
// source for the viewer and carries the viewer's control requests back to
// capture.
package display

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/user/multicam/pkg/events"
	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/ports"
)

// FPSPeriod is how often the displayed frame rate is recomputed.
const FPSPeriod = time.Second

// RequestBuffer is how many control requests may wait before senders block.
const RequestBuffer = 16

// ErrClosed is returned by requests sent after Close.
var ErrClosed = errors.New("display: sink closed")

// Request is a control request from the viewer.
type Request int

const (
	RequestStart Request = iota
	RequestStop
	RequestStartRecording
	RequestStopRecording
	RequestPauseRecording
	RequestContinueRecording
	RequestSnapshot
)

var requestNames = map[Request]string{
	RequestStart:             "start",
	RequestStop:              "stop",
	RequestStartRecording:    "start-recording",
	RequestStopRecording:     "stop-recording",
	RequestPauseRecording:    "pause-recording",
	RequestContinueRecording: "continue-recording",
	RequestSnapshot:          "snapshot",
}

// String returns the request name.
func (r Request) String() string {
	if s, ok := requestNames[r]; ok {
		return s
	}
	return "unknown"
}

// ParseRequest maps a request name back to a Request.
func ParseRequest(s string) (Request, bool) {
	for r, name := range requestNames {
		if name == s {
			return r, true
		}
	}
	return 0, false
}

// Stats is a snapshot of sink counters.
type Stats struct {
	Images   uint64
	Rendered uint64
	Drops    uint64
	Stalls   uint64
	FPS      float64
	Reallocs uint64
}

// RecordingStatus is the recording state as last reported by capture.
type RecordingStatus struct {
	Recording bool
	Paused    bool
	Path      string
}

// Sink stores the latest image of one source.
type Sink struct {
	name    string
	emitter events.Emitter
	logger  ports.Logger
	period  time.Duration

	mu       sync.Mutex
	img      *frame.Image
	rendered bool
	label    string
	count    int // images since the last FPS tick
	fps      float64
	status   RecordingStatus
	tracker  frame.AddressTracker
	stats    Stats

	requests  chan Request
	closed    chan struct{}
	closeOnce sync.Once
}

// New creates an empty sink for source name.
func New(name string, emitter events.Emitter, logger ports.Logger) *Sink {
	if emitter == nil {
		emitter = events.Discard
	}
	return &Sink{
		name:     name,
		emitter:  emitter,
		logger:   logger,
		period:   FPSPeriod,
		label:    name,
		requests: make(chan Request, RequestBuffer),
		closed:   make(chan struct{}),
	}
}

// Name returns the source name.
func (s *Sink) Name() string {
	return s.name
}

// SetImage stores a copy of img as the current image. When the previous
// image was never rendered a drop is counted. Same geometry reuses the
// stored buffer.
func (s *Sink) SetImage(img *frame.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.img != nil && !s.rendered {
		s.stats.Drops++
	}
	if s.img.SameGeometry(img) {
		s.img.CopyFrom(img)
	} else {
		s.img = img.Clone()
	}
	s.tracker.Track(s.img.Pix)
	s.rendered = false
	s.count++
	s.stats.Images++
}

// HasImage reports whether any image arrived yet. Viewers draw a
// placeholder until it does.
func (s *Sink) HasImage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img != nil
}

// Render calls fn with the current image and marks it consumed. The image
// must not be retained after fn returns. Render returns false when no image
// has arrived yet.
func (s *Sink) Render(fn func(img *frame.Image)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img == nil {
		return false
	}
	fn(s.img)
	s.rendered = true
	s.stats.Rendered++
	return true
}

// Label returns the display label announced by capture.
func (s *Sink) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// FPS returns the displayed frame rate over the last period.
func (s *Sink) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

// Run recomputes the displayed frame rate every period until ctx is done.
// A period without images emits a stalled Redraw so viewers refresh the
// overlay and can mark the source as stalled.
func (s *Sink) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Sink) tick() {
	s.mu.Lock()
	n := s.count
	s.count = 0
	s.fps = float64(n) / s.period.Seconds()
	fps := s.fps
	if n == 0 {
		s.stats.Stalls++
	}
	s.mu.Unlock()

	if n == 0 {
		s.emitter.Emit(events.Event{Kind: events.Redraw, Source: s.name, Stalled: true})
	}
	s.logger.Debug("Displayed %.1f fps", fps)
}

// Requests returns the channel of control requests for capture.
func (s *Sink) Requests() <-chan Request {
	return s.requests
}

// Request queues r for capture. It blocks only while RequestBuffer requests
// are pending, and fails once the sink is closed.
func (s *Sink) Request(r Request) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}
	select {
	case s.requests <- r:
		return nil
	case <-s.closed:
		return ErrClosed
	}
}

func (s *Sink) RequestStartRecording() error    { return s.Request(RequestStartRecording) }
func (s *Sink) RequestStopRecording() error     { return s.Request(RequestStopRecording) }
func (s *Sink) RequestPauseRecording() error    { return s.Request(RequestPauseRecording) }
func (s *Sink) RequestContinueRecording() error { return s.Request(RequestContinueRecording) }
func (s *Sink) RequestSnapshot() error          { return s.Request(RequestSnapshot) }

// Close rejects further requests.
func (s *Sink) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// HandleEvent relays capture notifications for this source into the state
// viewers read for labels and button state.
func (s *Sink) HandleEvent(e events.Event) {
	if e.Source != s.name {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e.Kind {
	case events.CameraNamed:
		s.label = e.Text
	case events.RecordingStarted:
		s.status = RecordingStatus{Recording: true, Path: e.Text}
	case events.RecordingPaused:
		s.status.Paused = true
	case events.RecordingResumed:
		s.status.Paused = false
	case events.RecordingStopped:
		s.status = RecordingStatus{}
	}
}

// Recording returns the last reported recording state.
func (s *Sink) Recording() RecordingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Stats returns the current counters.
func (s *Sink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.FPS = s.fps
	st.Reallocs = s.tracker.Reallocs()
	return st
}
