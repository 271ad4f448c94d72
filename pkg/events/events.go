// Package events defines the notifications a pipeline publishes to the UI layer.
package events

import (
	"sync"
	"time"
)

// Kind identifies an event.
type Kind int

const (
	CaptureStarted Kind = iota
	CaptureFailed
	CaptureStopped
	CameraNamed
	FrameReady
	ImageReady
	RecordingStarted
	RecordingStopped
	RecordingPaused
	RecordingResumed
	SnapshotSaved
	SnapshotFailed
	Redraw
	DiskStatus
	DiskFloorReached
)

var kindNames = map[Kind]string{
	CaptureStarted:   "capture-started",
	CaptureFailed:    "capture-failed",
	CaptureStopped:   "capture-stopped",
	CameraNamed:      "camera-named",
	FrameReady:       "frame-ready",
	ImageReady:       "image-ready",
	RecordingStarted: "recording-started",
	RecordingStopped: "recording-stopped",
	RecordingPaused:  "recording-paused",
	RecordingResumed: "recording-resumed",
	SnapshotSaved:    "snapshot-saved",
	SnapshotFailed:   "snapshot-failed",
	Redraw:           "redraw",
	DiskStatus:       "disk-status",
	DiskFloorReached: "disk-floor-reached",
}

// String returns the event name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Event is one notification.
type Event struct {
	Kind    Kind
	Source  string // source name, empty for system-wide events
	Text    string // label, file path or status line
	Err     error
	FPS     float64
	Stalled bool // redraw issued because no image arrived for a period
	Time    time.Time
}

// Emitter publishes events.
type Emitter interface {
	Emit(e Event)
}

// Handler receives events. Handlers run on the emitting goroutine and must not block.
type Handler func(e Event)

// Bus fans events out to subscribed handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	next     int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Emit delivers e to every handler.
func (b *Bus) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		h(e)
	}
}

// Discard is an Emitter that drops everything.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// Recorder is an Emitter that keeps every event, for tests and summaries.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit stores e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the stored events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind k were stored.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

var (
	_ Emitter = (*Bus)(nil)
	_ Emitter = (*Recorder)(nil)
)
