package capture

import (
	"fmt"
	"time"

	"github.com/user/multicam/pkg/events"
	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/naming"
	"github.com/user/multicam/pkg/ports"
)

// StartRecording opens a new output file. It is a no-op while a file is
// already open. Failures emit RecordingStopped and leave the recorder Idle.
func (s *Stage) StartRecording() error {
	s.mu.Lock()
	running, desc, w, h := s.running, s.desc, s.width, s.height
	s.mu.Unlock()

	if !running {
		s.emitter.Emit(events.Event{Kind: events.RecordingStopped, Source: desc.Name, Err: ErrNotRunning})
		return ErrNotRunning
	}

	started, err := s.rec.Start(desc.Name, w, h, s.recordFPS(desc))
	if err != nil {
		s.logger.Warn("Failed to start recording %s: %v", desc.Name, err)
		s.emitter.Emit(events.Event{Kind: events.RecordingStopped, Source: desc.Name, Err: err})
		return err
	}
	if started {
		s.emitter.Emit(events.Event{Kind: events.RecordingStarted, Source: desc.Name, Text: s.rec.Path()})
	}
	return nil
}

// StopRecording finalizes the open file, if any.
func (s *Stage) StopRecording() {
	rec, ok := s.rec.Stop()
	if !ok {
		return
	}
	s.emitter.Emit(events.Event{Kind: events.RecordingStopped, Source: s.name(), Text: rec.Path, Err: rec.Err})
}

// RequestStopRecording implements the disk monitor's stop hook.
func (s *Stage) RequestStopRecording() {
	s.StopRecording()
}

// PauseRecording suppresses writes without closing the file.
func (s *Stage) PauseRecording() {
	if s.rec.Pause() {
		s.emitter.Emit(events.Event{Kind: events.RecordingPaused, Source: s.name()})
	}
}

// ContinueRecording resumes writes after PauseRecording.
func (s *Stage) ContinueRecording() {
	if s.rec.Continue() {
		s.emitter.Emit(events.Event{Kind: events.RecordingResumed, Source: s.name()})
	}
}

func (s *Stage) recordFPS(desc ports.SourceDescriptor) float64 {
	if desc.IsFile() {
		return float64(time.Second) / float64(s.opts.FileFrameInterval)
	}
	return s.opts.DeviceFPS
}

func (s *Stage) name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc.Name
}

// Snapshot saves a copy of the latest frame as a still image. The copy is
// taken under the frame lock so the still is never torn; encoding and
// writing happen on a separate goroutine.
func (s *Stage) Snapshot() error {
	s.frameMu.Lock()
	if s.latest == nil {
		s.frameMu.Unlock()
		s.emitter.Emit(events.Event{Kind: events.SnapshotFailed, Source: s.name(), Err: ErrNoFrame})
		return ErrNoFrame
	}
	still := s.latest.Clone()
	s.frameMu.Unlock()

	name := s.name()
	taken := s.now()
	s.snapshots.Add(1)
	go func() {
		defer s.snapshots.Done()
		path, err := s.writeStill(name, taken, still)
		if err != nil {
			s.logger.Warn("Snapshot of %s failed: %v", name, err)
			s.emitter.Emit(events.Event{Kind: events.SnapshotFailed, Source: name, Err: err})
			return
		}
		s.saved.Add(1)
		s.logger.Info("Snapshot saved: %s", path)
		s.emitter.Emit(events.Event{Kind: events.SnapshotSaved, Source: name, Text: path})
	}()
	return nil
}

// WaitSnapshots blocks until pending snapshots are written.
func (s *Stage) WaitSnapshots() {
	s.snapshots.Wait()
}

func (s *Stage) writeStill(name string, taken time.Time, still *frame.Frame) (string, error) {
	if s.renderer == nil {
		return "", ErrNoEncoder
	}
	data, err := s.renderer.EncodeImage(still.ToRGBA(nil), s.opts.ImageFormat, s.opts.ImageQuality)
	if err != nil {
		return "", fmt.Errorf("encode still: %w", err)
	}
	if err := s.fs.MkdirAll(s.opts.ImagesDir); err != nil {
		return "", fmt.Errorf("create %s: %w", s.opts.ImagesDir, err)
	}
	path := naming.Path(s.opts.ImagesDir, name, taken, s.opts.ImageFormat.Extension())
	if err := s.fs.WriteFile(path, data); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
