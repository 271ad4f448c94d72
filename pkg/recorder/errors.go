package recorder

import "errors"

var (
	// ErrOpenFailed is returned when the output file cannot be created.
	ErrOpenFailed = errors.New("recorder: cannot open output file")

	// ErrWriteFailed is returned when appending a frame fails. The recording is finalized.
	ErrWriteFailed = errors.New("recorder: write failed")

	// ErrInvalidGeometry is returned when recording is started without a frame size.
	ErrInvalidGeometry = errors.New("recorder: invalid frame size")
)
