// Package pipeline composes the per-source capture, convert and display chain.
package pipeline

import (
	"github.com/user/multicam/pkg/events"
	"github.com/user/multicam/pkg/ports"
	"github.com/user/multicam/pkg/recorder"
	"github.com/user/multicam/pkg/stages/capture"
	"github.com/user/multicam/pkg/stages/convert"
	"github.com/user/multicam/pkg/stages/display"
)

// SourceDescriptor identifies a device index or a file path with a name.
type SourceDescriptor = ports.SourceDescriptor

// SourceSpec is one resolved source and whether it records from the start.
type SourceSpec struct {
	Descriptor    SourceDescriptor
	RecordOnStart bool
}

// Options configures the stages of one pipeline.
type Options struct {
	Capture  capture.Options
	Convert  convert.Options
	Recorder recorder.Options
}

// DefaultOptions returns the stage defaults.
func DefaultOptions() Options {
	return Options{
		Capture:  capture.DefaultOptions(),
		Convert:  convert.Options{Scale: 1},
		Recorder: recorder.Options{Dir: "videos", Ext: recorder.DefaultExt},
	}
}

// Deps are the adapters a pipeline is built from.
type Deps struct {
	Opener    ports.SourceOpener
	NewWriter ports.VideoWriterFactory
	Inspector ports.VideoInspector // optional
	Renderer  ports.Renderer       // optional; disables overlays and stills when nil
	FS        ports.FileSystem
	Bus       *events.Bus // optional; a private bus is created when nil
	Logger    ports.Logger
}

// Stats aggregates the counters of every stage.
type Stats struct {
	ID         string
	Name       string
	Target     string
	Capture    capture.Stats
	Convert    convert.Stats
	Display    display.Stats
	Recordings []recorder.File
}
