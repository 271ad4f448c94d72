// Package stills assembles a directory tree of still images into one video.
package stills

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/ports"
)

// DefaultFPS is the frame rate of assembled videos.
const DefaultFPS = 20.0

var (
	// ErrNoStills is returned when the tree holds no usable image.
	ErrNoStills = errors.New("stills: no images found")

	// ErrSizeMismatch marks an image whose size differs from the first one.
	ErrSizeMismatch = errors.New("stills: image size differs from first image")
)

// Options configures an assembly run.
type Options struct {
	FPS     float64
	Encoder ports.EncoderOptions
}

// Result describes the written video.
type Result struct {
	Path    string
	Frames  int
	Skipped int
	Width   int
	Height  int
}

// Stage encodes stills in walk order: the images of a directory first, then
// its subdirectories.
type Stage struct {
	fs        ports.FileSystem
	renderer  ports.Renderer
	newWriter ports.VideoWriterFactory
	logger    ports.Logger
}

// NewStage creates a stills stage.
func NewStage(fs ports.FileSystem, renderer ports.Renderer, newWriter ports.VideoWriterFactory, logger ports.Logger) *Stage {
	return &Stage{fs: fs, renderer: renderer, newWriter: newWriter, logger: logger}
}

// Execute writes every JPEG and PNG below root into output. The video size
// is taken from the first image; later images of another size are skipped.
func (s *Stage) Execute(ctx context.Context, root, output string, opts Options) (Result, error) {
	result := Result{Path: output}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}

	files, err := s.fs.Walk(root)
	if err != nil {
		return result, fmt.Errorf("walk %s: %w", root, err)
	}
	files = Order(root, Filter(files))
	if len(files) == 0 {
		return result, fmt.Errorf("%w in %s", ErrNoStills, root)
	}
	s.logger.Info("Assembling %d stills into %s", len(files), output)

	var (
		w   ports.VideoWriter
		buf = &frame.Frame{}
	)
	for _, path := range files {
		select {
		case <-ctx.Done():
			if w != nil {
				w.End()
			}
			return result, ctx.Err()
		default:
		}

		if err := s.load(path, buf); err != nil {
			s.logger.Warn("Skipping %s: %v", path, err)
			result.Skipped++
			continue
		}

		if w == nil {
			result.Width, result.Height = buf.Width, buf.Height
			w = s.newWriter()
			if err := w.Begin(output, buf.Width, buf.Height, opts.FPS, opts.Encoder); err != nil {
				return result, fmt.Errorf("begin video: %w", err)
			}
		} else if buf.Width != result.Width || buf.Height != result.Height {
			s.logger.Warn("Skipping %s: %v", path, fmt.Errorf("%w: %dx%d", ErrSizeMismatch, buf.Width, buf.Height))
			result.Skipped++
			continue
		}

		if err := w.WriteFrame(buf); err != nil {
			w.End()
			return result, fmt.Errorf("write %s: %w", path, err)
		}
		result.Frames++
	}

	if w == nil {
		return result, fmt.Errorf("%w in %s", ErrNoStills, root)
	}
	if err := w.End(); err != nil {
		return result, fmt.Errorf("end video: %w", err)
	}
	s.logger.Info("Stills video written: %s (%d frames)", output, result.Frames)
	return result, nil
}

func (s *Stage) load(path string, dst *frame.Frame) error {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return err
	}
	img, err := s.renderer.DecodeImage(data, ports.ParseImageFormat(strings.ToLower(filepath.Ext(path))))
	if err != nil {
		return err
	}
	dst.FromImage(img)
	return nil
}

// Filter keeps JPEG and PNG files.
func Filter(files []string) []string {
	var out []string
	for _, f := range files {
		switch strings.ToLower(filepath.Ext(f)) {
		case ".jpg", ".jpeg", ".png":
			out = append(out, f)
		}
	}
	return out
}

// Order sorts paths so that the files of each directory come before its
// subdirectories, each group in lexical order.
func Order(root string, files []string) []string {
	keys := make(map[string][]string, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			rel = f
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		key := make([]string, len(parts))
		for i, p := range parts {
			if i == len(parts)-1 {
				key[i] = "0" + p
			} else {
				key[i] = "1" + p
			}
		}
		keys[f] = key
	}

	out := append([]string(nil), files...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := keys[out[i]], keys[out[j]]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return out
}
