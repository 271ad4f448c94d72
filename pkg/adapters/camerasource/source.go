// Package camerasource captures frames from local cameras through the
// pion/mediadevices camera driver.
package camerasource

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/camera" // registers the camera driver
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"

	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/ports"
)

var (
	// ErrNoDevice is returned when no camera exists at the requested index.
	ErrNoDevice = errors.New("camerasource: no camera at index")

	// ErrNoTrack is returned when the camera opened without a video track.
	ErrNoTrack = errors.New("camerasource: no video track")

	// ErrClosed is returned by Read after Close.
	ErrClosed = errors.New("camerasource: source closed")
)

// Device describes an attached camera.
type Device struct {
	Index int
	ID    string
	Label string
}

// Devices lists the cameras in driver order. The position in the list is the
// device index used in source descriptors.
func Devices() []Device {
	var out []Device
	for _, d := range mediadevices.EnumerateDevices() {
		if d.Kind != mediadevices.VideoInput {
			continue
		}
		out = append(out, Device{Index: len(out), ID: d.DeviceID, Label: d.Label})
	}
	return out
}

// Source implements ports.FrameSource for one camera.
type Source struct {
	track  mediadevices.Track
	reader video.Reader
	width  int
	height int

	// scratch holds the RGBA copy of driver frames, which usually arrive
	// as YCbCr. Only the read goroutine touches it.
	scratch *image.RGBA

	mu      sync.Mutex
	pending image.Image
	release func()
	closed  bool
}

// Open opens the camera at index and reads one frame to learn its size.
func Open(index int) (*Source, error) {
	devices := Devices()
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("%w: %d (%d attached)", ErrNoDevice, index, len(devices))
	}
	id := devices[index].ID

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.DeviceID = prop.String(id)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get user media: %w", err)
	}
	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return nil, ErrNoTrack
	}
	vt, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		tracks[0].Close()
		return nil, ErrNoTrack
	}

	s := &Source{track: tracks[0], reader: vt.NewReader(false)}
	img, release, err := s.reader.Read()
	if err != nil {
		s.track.Close()
		return nil, fmt.Errorf("read first frame: %w", err)
	}
	b := img.Bounds()
	s.width, s.height = b.Dx(), b.Dy()
	s.pending, s.release = img, release
	return s, nil
}

// Size returns the camera frame size.
func (s *Source) Size() (int, int) {
	return s.width, s.height
}

// Read blocks for the next camera frame and converts it to BGR24.
func (s *Source) Read(dst *frame.Frame) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	img, release := s.pending, s.release
	s.pending, s.release = nil, nil
	s.mu.Unlock()

	if img == nil {
		var err error
		img, release, err = s.reader.Read()
		if err != nil {
			if s.isClosed() {
				return ErrClosed
			}
			return fmt.Errorf("read camera frame: %w", err)
		}
	}
	s.scratch = frame.NormalizeRGBA(s.scratch, img)
	dst.FromImage(s.scratch)
	if release != nil {
		release()
	}
	return nil
}

func (s *Source) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops the camera. Closing the track unblocks a pending Read.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.release != nil {
		s.release()
		s.pending, s.release = nil, nil
	}
	s.mu.Unlock()
	return s.track.Close()
}

var _ ports.FrameSource = (*Source)(nil)
