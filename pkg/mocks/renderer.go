package mocks

import (
	"image"
	"sync"

	"github.com/user/multicam/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
type Renderer struct {
	RenderLabelFunc func(text string, style ports.TextStyle) image.Image
	DecodeImageFunc func(data []byte, format ports.ImageFormat) (image.Image, error)
	EncodeImageFunc func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)

	mu sync.Mutex
	// Recorded calls for verification
	Labels      []string
	EncodeCalls int
}

func (m *Renderer) RenderLabel(text string, style ports.TextStyle) image.Image {
	m.mu.Lock()
	m.Labels = append(m.Labels, text)
	m.mu.Unlock()
	if m.RenderLabelFunc != nil {
		return m.RenderLabelFunc(text, style)
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 2))
}

func (m *Renderer) DecodeImage(data []byte, format ports.ImageFormat) (image.Image, error) {
	if m.DecodeImageFunc != nil {
		return m.DecodeImageFunc(data, format)
	}
	return image.NewRGBA(image.Rect(0, 0, 100, 100)), nil
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	m.mu.Lock()
	m.EncodeCalls++
	m.mu.Unlock()
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{0xFF, 0xD8, 0xFF}, nil
}

// LabelCount returns how many labels were rendered.
func (m *Renderer) LabelCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Labels)
}

var _ ports.Renderer = (*Renderer)(nil)
