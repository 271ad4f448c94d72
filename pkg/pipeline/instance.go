package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/user/multicam/pkg/events"
	"github.com/user/multicam/pkg/ports"
	"github.com/user/multicam/pkg/recorder"
	"github.com/user/multicam/pkg/stages/capture"
	"github.com/user/multicam/pkg/stages/convert"
	"github.com/user/multicam/pkg/stages/display"
)

// Instance runs one source: a capture goroutine, a convert goroutine, the
// display FPS timer and the control loop that applies viewer requests.
// Instances share nothing with each other, not even an event bus.
type Instance struct {
	ID   string
	Spec SourceSpec

	Capture  *capture.Stage
	Convert  *convert.Stage
	Display  *display.Sink
	Recorder *recorder.Recorder
	// Bus carries this instance's events only.
	Bus      *events.Bus

	logger      ports.Logger
	unsubscribe func()

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown sync.Once
}

// New wires the stages for spec. Nothing runs until Start.
func New(spec SourceSpec, opts Options, deps Deps) *Instance {
	name := spec.Descriptor.Name
	bus := deps.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	logger := deps.Logger

	rec := recorder.New(opts.Recorder, deps.NewWriter, deps.FS, logger.WithComponent("recorder:"+name))
	if deps.Inspector != nil {
		rec.SetInspector(deps.Inspector)
	}

	sink := display.New(name, bus, logger.WithComponent("display:"+name))
	conv := convert.New(name, sink, bus, logger.WithComponent("convert:"+name), opts.Convert)
	capt := capture.New(deps.Opener, rec, deps.Renderer, deps.FS, conv, bus, logger.WithComponent("capture:"+name), opts.Capture)

	return &Instance{
		ID:          uuid.NewString(),
		Spec:        spec,
		Capture:     capt,
		Convert:     conv,
		Display:     sink,
		Recorder:    rec,
		Bus:         bus,
		logger:      logger,
		unsubscribe: bus.Subscribe(sink.HandleEvent),
	}
}

// Name returns the source name.
func (p *Instance) Name() string {
	return p.Spec.Descriptor.Name
}

// Start launches the stage goroutines and opens the source. An open
// failure is returned; the instance stays idle and can still be shut down.
func (p *Instance) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(3)
	go func() {
		defer p.wg.Done()
		p.Convert.Run(runCtx)
	}()
	go func() {
		defer p.wg.Done()
		p.Display.Run(runCtx)
	}()
	go func() {
		defer p.wg.Done()
		p.control(runCtx)
	}()

	return p.Capture.Start(runCtx, p.Spec.Descriptor, p.Spec.RecordOnStart)
}

// control applies viewer requests to capture, one at a time.
func (p *Instance) control(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-p.Display.Requests():
			p.apply(ctx, r)
		}
	}
}

func (p *Instance) apply(ctx context.Context, r display.Request) {
	p.logger.Debug("Request %s for %s", r, p.Name())
	switch r {
	case display.RequestStart:
		if p.Capture.Running() {
			return
		}
		p.Capture.Stop()
		if err := p.Capture.Start(ctx, p.Spec.Descriptor, false); err != nil {
			p.logger.Warn("Restart of %s failed: %v", p.Name(), err)
		}
	case display.RequestStop:
		p.Capture.Stop()
	case display.RequestStartRecording:
		_ = p.Capture.StartRecording()
	case display.RequestStopRecording:
		p.Capture.StopRecording()
	case display.RequestPauseRecording:
		p.Capture.PauseRecording()
	case display.RequestContinueRecording:
		p.Capture.ContinueRecording()
	case display.RequestSnapshot:
		_ = p.Capture.Snapshot()
	}
}

// RequestStopRecording asks the control loop to stop recording. After
// shutdown the recording is stopped directly.
func (p *Instance) RequestStopRecording() {
	if err := p.Display.RequestStopRecording(); errors.Is(err, display.ErrClosed) {
		p.Capture.StopRecording()
	}
}

// Shutdown closes the request channel and joins the control, convert and
// display goroutines first, so no queued request can reopen the source.
// Capture is stopped last: that joins the read loop, finalizes the output
// file and closes the source. It is idempotent.
func (p *Instance) Shutdown() {
	p.shutdown.Do(func() {
		p.Display.Close()

		p.mu.Lock()
		cancel := p.cancel
		p.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		p.Convert.Close()
		p.wg.Wait()

		p.Capture.Stop()
		p.Capture.WaitSnapshots()
		p.unsubscribe()
		p.logger.Debug("Pipeline %s (%s) shut down", p.Name(), p.ID)
	})
}

// Stats returns counters of every stage.
func (p *Instance) Stats() Stats {
	return Stats{
		ID:         p.ID,
		Name:       p.Name(),
		Target:     p.Spec.Descriptor.Target(),
		Capture:    p.Capture.Stats(),
		Convert:    p.Convert.Stats(),
		Display:    p.Display.Stats(),
		Recordings: p.Recorder.Recordings(),
	}
}
