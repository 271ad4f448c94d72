// Package diskspace reports free space on the volume holding a directory.
package diskspace

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/user/multicam/pkg/ports"
)

// ErrUnsupported is returned on platforms without a free-space query.
var ErrUnsupported = errors.New("diskspace: free space query not supported on this platform")

// Volume implements ports.DiskSpace.
type Volume struct{}

// New creates a Volume.
func New() *Volume {
	return &Volume{}
}

// Available returns the bytes available to an unprivileged user on the
// volume containing path. A path that does not exist yet, such as a videos
// directory created on the first recording, is measured at its nearest
// existing ancestor.
func (Volume) Available(path string) (uint64, error) {
	return available(existingAncestor(path))
}

func existingAncestor(path string) string {
	if path == "" {
		path = "."
	}
	path = filepath.Clean(path)
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

var _ ports.DiskSpace = Volume{}
