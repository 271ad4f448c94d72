// Package summarizer builds the end-of-session report: what each source
// captured, what the stages dropped and which files were recorded.
package summarizer

import "time"

// Summary contains all data collected during a capture session.
type Summary struct {
	GeneratedAt time.Time
	StartedAt   time.Time
	Duration    time.Duration

	Settings Settings
	Disk     DiskInfo
	Sources  []SourceInfo
}

// Settings contains the session configuration worth reporting.
type Settings struct {
	VideosDir    string
	ImagesDir    string
	VideoExt     string
	ConvertScale float64
	ProcessAll   bool
	Quality      int
}

// DiskInfo reports the last disk status and whether the floor was hit.
type DiskInfo struct {
	Status     string
	Tripped    bool
	FloorBytes uint64
}

// SourceInfo contains the counters of one pipeline.
type SourceInfo struct {
	Name   string
	Kind   string
	Target string
	Error  string // open failure, empty when capture started

	Frames     uint64
	CaptureFPS float64
	Snapshots  uint64

	Converted      uint64
	ConvertDropped uint64

	Displayed    uint64
	DisplayDrops uint64
	Stalls       uint64

	Reallocs uint64

	Recordings []RecordingInfo
}

// RecordingInfo describes one finalized output file.
type RecordingInfo struct {
	Path     string
	Frames   int
	Duration time.Duration
	Codec    string
	Width    int
	Height   int
	Samples  int
	Error    string
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// RecordingCount returns the number of files recorded by all sources.
func (s *Summary) RecordingCount() int {
	n := 0
	for _, src := range s.Sources {
		n += len(src.Recordings)
	}
	return n
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSession sets the session start and computes its duration from the
// generation time.
func (b *Builder) WithSession(started time.Time) *Builder {
	b.summary.StartedAt = started
	b.summary.Duration = b.summary.GeneratedAt.Sub(started)
	return b
}

// WithSettings sets the session settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithDisk sets disk information.
func (b *Builder) WithDisk(disk DiskInfo) *Builder {
	b.summary.Disk = disk
	return b
}

// AddSource appends a source in display order.
func (b *Builder) AddSource(src SourceInfo) *Builder {
	b.summary.Sources = append(b.summary.Sources, src)
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
