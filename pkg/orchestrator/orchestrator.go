// Package orchestrator runs one pipeline per displayed source together with
// the disk monitor and the optional browser viewer.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/multicam/pkg/adapters/wsviewer"
	"github.com/user/multicam/pkg/diskmonitor"
	"github.com/user/multicam/pkg/events"
	"github.com/user/multicam/pkg/pipeline"
	"github.com/user/multicam/pkg/ports"
	"github.com/user/multicam/pkg/summarizer"
)

// idlePoll is how often StopWhenIdle checks the capture loops.
const idlePoll = 50 * time.Millisecond

// Config contains all configuration for a session.
type Config struct {
	Sources  []pipeline.SourceSpec
	Pipeline pipeline.Options
	Disk     diskmonitor.Options

	// Viewer is served when Viewer.Addr is set.
	Viewer wsviewer.Options

	// StopWhenIdle ends the session once every capture loop has ended,
	// e.g. when all file sources reached end of stream.
	StopWhenIdle bool

	// SummaryPath receives a Markdown summary when set.
	SummaryPath string
	Version     string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Pipeline: pipeline.DefaultOptions(),
		Disk: diskmonitor.Options{
			Dir:    "videos",
			Period: diskmonitor.DefaultPeriod,
			Floor:  diskmonitor.DefaultFloor,
		},
	}
}

// Deps are the adapters shared by every pipeline.
type Deps struct {
	Pipeline pipeline.Deps
	Disk     ports.DiskSpace
	// Translate localizes summary labels; identity when nil.
	Translate func(string) string
}

// Orchestrator coordinates the pipelines of one session.
type Orchestrator struct {
	deps   Deps
	logger ports.Logger

	// bus carries system-wide events such as disk status. Every pipeline
	// emits on its own bus.
	bus *events.Bus

	mu        sync.Mutex
	watchers  []events.Handler
	pipelines []*pipeline.Instance
	monitor   *diskmonitor.Monitor
	viewer    *wsviewer.Server
}

// New creates a new Orchestrator. deps.Pipeline.Bus is ignored; each
// pipeline gets a private bus.
func New(deps Deps) *Orchestrator {
	deps.Pipeline.Bus = nil
	return &Orchestrator{deps: deps, logger: deps.Pipeline.Logger, bus: events.NewBus()}
}

// Subscribe registers h for the system bus and the bus of every pipeline
// started by a later Run. h may be called from several goroutines at once.
func (o *Orchestrator) Subscribe(h events.Handler) {
	o.mu.Lock()
	o.watchers = append(o.watchers, h)
	o.mu.Unlock()
}

// Pipelines returns the instances of the running session.
func (o *Orchestrator) Pipelines() []*pipeline.Instance {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*pipeline.Instance(nil), o.pipelines...)
}

// Run starts every source and blocks until ctx is done (or, with
// StopWhenIdle, until every capture loop ended). A source that fails to
// open is reported and does not affect the others.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (*summarizer.Summary, error) {
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("orchestrator: no sources to display")
	}
	started := time.Now()

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pipes := make([]*pipeline.Instance, len(cfg.Sources))
	buses := []*events.Bus{o.bus}
	for i, spec := range cfg.Sources {
		deps := o.deps.Pipeline
		deps.Bus = events.NewBus()
		pipes[i] = pipeline.New(spec, cfg.Pipeline, deps)
		buses = append(buses, pipes[i].Bus)
	}

	o.mu.Lock()
	watchers := append([]events.Handler(nil), o.watchers...)
	o.mu.Unlock()
	for _, h := range watchers {
		defer subscribeAll(buses, h)()
	}

	monitor := diskmonitor.New(o.deps.Disk, o.bus, o.logger.WithComponent("disk"), cfg.Disk)
	for _, p := range pipes {
		monitor.Register(p)
	}

	var viewer *wsviewer.Server
	if cfg.Viewer.Addr != "" {
		tiles := make([]wsviewer.Tile, len(pipes))
		for i, p := range pipes {
			tiles[i] = p.Display
		}
		viewer = wsviewer.New(tiles, o.deps.Pipeline.Renderer, o.logger.WithComponent("viewer"), cfg.Viewer)
		defer subscribeAll(buses, viewer.HandleEvent)()
	}

	o.mu.Lock()
	o.pipelines, o.monitor, o.viewer = pipes, monitor, viewer
	o.mu.Unlock()

	var bg sync.WaitGroup
	if o.deps.Disk != nil {
		bg.Add(1)
		go func() {
			defer bg.Done()
			monitor.Run(sessionCtx)
		}()
	}
	if viewer != nil {
		bg.Add(1)
		go func() {
			defer bg.Done()
			if err := viewer.Run(sessionCtx); err != nil {
				cancel()
			}
		}()
	}

	o.logger.Info("Starting %d pipelines", len(pipes))
	openErrs := make(map[string]error)
	for _, p := range pipes {
		if err := p.Start(sessionCtx); err != nil {
			o.logger.Warn("Pipeline %s failed to start: %v", p.Name(), err)
			openErrs[p.Name()] = err
		}
	}

	if cfg.StopWhenIdle {
		o.waitIdle(sessionCtx, pipes)
	} else {
		<-sessionCtx.Done()
	}
	if ctx.Err() != nil {
		o.logger.Info("Interrupted, shutting down...")
	}

	o.shutdown(pipes)
	cancel()
	bg.Wait()

	summary := o.summarize(cfg, started, pipes, monitor, openErrs)
	o.logger.Info("Session finished: %d recordings", summary.RecordingCount())

	if cfg.SummaryPath != "" {
		var opts []summarizer.Option
		if o.deps.Translate != nil {
			opts = append(opts, summarizer.WithTranslator(o.deps.Translate))
		}
		if cfg.Version != "" {
			opts = append(opts, summarizer.WithVersion(cfg.Version))
		}
		w := summarizer.NewWriter(summarizer.NewMarkdownFormatter(opts...), o.deps.Pipeline.FS)
		if err := w.Write(cfg.SummaryPath, summary); err != nil {
			o.logger.Error("Failed to write summary: %s", err)
			return summary, err
		}
		o.logger.Info("Summary written to %s", cfg.SummaryPath)
	}
	return summary, nil
}

// subscribeAll attaches h to every bus and returns a function detaching it.
func subscribeAll(buses []*events.Bus, h events.Handler) func() {
	unsubs := make([]func(), len(buses))
	for i, b := range buses {
		unsubs[i] = b.Subscribe(h)
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (o *Orchestrator) waitIdle(ctx context.Context, pipes []*pipeline.Instance) {
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		idle := true
		for _, p := range pipes {
			if p.Capture.Running() {
				idle = false
				break
			}
		}
		if idle {
			return
		}
	}
}

// shutdown stops every pipeline concurrently; each finalizes its own file.
func (o *Orchestrator) shutdown(pipes []*pipeline.Instance) {
	var wg sync.WaitGroup
	for _, p := range pipes {
		wg.Add(1)
		go func(p *pipeline.Instance) {
			defer wg.Done()
			p.Shutdown()
		}(p)
	}
	wg.Wait()
}

func (o *Orchestrator) summarize(cfg Config, started time.Time, pipes []*pipeline.Instance, monitor *diskmonitor.Monitor, openErrs map[string]error) *summarizer.Summary {
	b := summarizer.NewBuilder().
		WithSession(started).
		WithSettings(summarizer.Settings{
			VideosDir:    cfg.Pipeline.Recorder.Dir,
			ImagesDir:    cfg.Pipeline.Capture.ImagesDir,
			VideoExt:     cfg.Pipeline.Recorder.Ext,
			ConvertScale: cfg.Pipeline.Convert.Scale,
			ProcessAll:   cfg.Pipeline.Convert.ProcessAll,
			Quality:      cfg.Pipeline.Recorder.Encoder.Quality,
		}).
		WithDisk(summarizer.DiskInfo{
			Status:     monitor.Status(),
			Tripped:    monitor.Tripped(),
			FloorBytes: cfg.Disk.Floor,
		})

	for _, p := range pipes {
		b.AddSource(SourceInfo(p.Stats(), p.Spec.Descriptor.Kind.String(), openErrs[p.Name()]))
	}
	return b.Build()
}

// SourceInfo converts pipeline counters into a summary row.
func SourceInfo(st pipeline.Stats, kind string, openErr error) summarizer.SourceInfo {
	info := summarizer.SourceInfo{
		Name:           st.Name,
		Kind:           kind,
		Target:         st.Target,
		Frames:         st.Capture.Frames,
		CaptureFPS:     st.Capture.FPS,
		Snapshots:      st.Capture.Snapshots,
		Converted:      st.Convert.Converted,
		ConvertDropped: st.Convert.Dropped,
		Displayed:      st.Display.Images,
		DisplayDrops:   st.Display.Drops,
		Stalls:         st.Display.Stalls,
		Reallocs:       st.Capture.Reallocs + st.Convert.Reallocs + st.Display.Reallocs,
	}
	if openErr != nil {
		info.Error = openErr.Error()
	}
	for _, r := range st.Recordings {
		ri := summarizer.RecordingInfo{
			Path:     r.Path,
			Frames:   r.Frames,
			Duration: r.Stopped.Sub(r.Started),
		}
		if r.Info != nil {
			ri.Codec, ri.Width, ri.Height, ri.Samples = r.Info.Codec, r.Info.Width, r.Info.Height, r.Info.Samples
		}
		if r.Err != nil {
			ri.Error = r.Err.Error()
		}
		info.Recordings = append(info.Recordings, ri)
	}
	return info
}
