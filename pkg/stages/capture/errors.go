package capture

import "errors"

var (
	// ErrOpenFailed is returned when the source cannot be opened.
	ErrOpenFailed = errors.New("capture: cannot open source")

	// ErrAlreadyRunning is returned by Start while a read loop is active.
	ErrAlreadyRunning = errors.New("capture: already running")

	// ErrNotRunning is returned by operations that need an open source.
	ErrNotRunning = errors.New("capture: not running")

	// ErrNoFrame is returned by Snapshot before the first frame was read.
	ErrNoFrame = errors.New("capture: no frame captured yet")

	// ErrNoEncoder is returned when snapshots are taken without a renderer.
	ErrNoEncoder = errors.New("capture: no image encoder configured")
)
