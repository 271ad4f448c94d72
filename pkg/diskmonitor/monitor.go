// Package diskmonitor stops every recording when the recording volume runs
// low on free space.
package diskmonitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/multicam/pkg/events"
	"github.com/user/multicam/pkg/ports"
)

const (
	// DefaultPeriod is the polling interval.
	DefaultPeriod = time.Second
	// DefaultFloor is the free-space threshold, 2 GiB.
	DefaultFloor uint64 = 2 << 30
)

// RecordingStopper is anything whose recording can be stopped on request.
type RecordingStopper interface {
	RequestStopRecording()
}

// Options configures the monitor.
type Options struct {
	Dir    string
	Period time.Duration
	Floor  uint64
}

// Monitor polls free space and trips once below the floor.
type Monitor struct {
	disk    ports.DiskSpace
	emitter events.Emitter
	logger  ports.Logger
	opts    Options

	mu       sync.Mutex
	stoppers []RecordingStopper
	status   string
	tripped  bool
}

// New creates a monitor for opts.Dir.
func New(disk ports.DiskSpace, emitter events.Emitter, logger ports.Logger, opts Options) *Monitor {
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.Floor == 0 {
		opts.Floor = DefaultFloor
	}
	if emitter == nil {
		emitter = events.Discard
	}
	return &Monitor{
		disk:    disk,
		emitter: emitter,
		logger:  logger,
		opts:    opts,
	}
}

// Register adds a stopper to notify when the floor is reached.
func (m *Monitor) Register(s RecordingStopper) {
	m.mu.Lock()
	m.stoppers = append(m.stoppers, s)
	m.mu.Unlock()
}

// Status returns the last status line.
func (m *Monitor) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Tripped reports whether the floor was reached.
func (m *Monitor) Tripped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tripped
}

// Run polls every period until ctx is done or the floor is reached. It
// returns true when it stopped because of low space.
func (m *Monitor) Run(ctx context.Context) bool {
	ticker := time.NewTicker(m.opts.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if m.check() {
				return true
			}
		}
	}
}

// check queries free space once and reports whether the monitor tripped.
func (m *Monitor) check() bool {
	free, err := m.disk.Available(m.opts.Dir)
	if err != nil {
		m.logger.Warn("Failed to query free space on %s: %v", m.opts.Dir, err)
		return false
	}

	status := "Disk: " + FormatBytes(free) + " free"
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	m.logger.Debug("%s", status)
	m.emitter.Emit(events.Event{Kind: events.DiskStatus, Text: status})

	if free >= m.opts.Floor {
		return false
	}

	m.mu.Lock()
	m.tripped = true
	stoppers := append([]RecordingStopper(nil), m.stoppers...)
	m.mu.Unlock()

	for _, s := range stoppers {
		s.RequestStopRecording()
	}

	msg := fmt.Sprintf("Disk space below %s (%s free): all recordings stopped", FormatBytes(m.opts.Floor), FormatBytes(free))
	m.logger.Error("Disk space below %s (%s free): all recordings stopped", FormatBytes(m.opts.Floor), FormatBytes(free))
	m.emitter.Emit(events.Event{Kind: events.DiskFloorReached, Text: msg})
	return true
}

// FormatBytes renders n in binary units with one decimal, e.g. "12.3 GiB".
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit && exp < 4; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTP"[exp])
}
