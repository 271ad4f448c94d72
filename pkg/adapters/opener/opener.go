// Package opener routes source descriptors to the adapter that can open them.
package opener

import (
	"context"
	"fmt"

	"github.com/user/multicam/pkg/adapters/camerasource"
	"github.com/user/multicam/pkg/adapters/ffmpegsource"
	"github.com/user/multicam/pkg/ports"
)

// Router implements ports.SourceOpener by dispatching on the descriptor kind.
type Router struct {
	Device ports.SourceOpener
	File   ports.SourceOpener
}

// New returns a router backed by the camera and ffmpeg adapters.
func New() *Router {
	return &Router{
		Device: ports.SourceOpenerFunc(func(_ context.Context, d ports.SourceDescriptor) (ports.FrameSource, error) {
			return camerasource.Open(d.Index)
		}),
		File: ports.SourceOpenerFunc(func(ctx context.Context, d ports.SourceDescriptor) (ports.FrameSource, error) {
			return ffmpegsource.Open(ctx, d.Path)
		}),
	}
}

// Open opens desc with the matching adapter.
func (r *Router) Open(ctx context.Context, desc ports.SourceDescriptor) (ports.FrameSource, error) {
	var o ports.SourceOpener
	switch desc.Kind {
	case ports.SourceDevice:
		o = r.Device
	case ports.SourceFile:
		o = r.File
	}
	if o == nil {
		return nil, fmt.Errorf("opener: no adapter for %s source %q", desc.Kind, desc.Name)
	}
	return o.Open(ctx, desc)
}

var _ ports.SourceOpener = (*Router)(nil)
