// Package ggrenderer provides a renderer implementation using the gg library.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/user/multicam/pkg/ports"
)

// Renderer implements ports.Renderer using the gg library.
type Renderer struct {
	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	path string
	size float64
}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{faces: make(map[faceKey]font.Face)}
}

// DefaultLabelStyle is white text on a translucent black plate.
func DefaultLabelStyle() ports.TextStyle {
	return ports.TextStyle{
		FontSize:   13,
		Color:      color.White,
		Background: color.RGBA{A: 160},
		Padding:    4,
	}
}

// RenderLabel draws text on a rounded plate sized to fit it.
func (r *Renderer) RenderLabel(text string, style ports.TextStyle) image.Image {
	face := r.face(style)

	measure := gg.NewContext(1, 1)
	if face != nil {
		measure.SetFontFace(face)
	}
	tw, th := measure.MeasureString(text)

	pad := float64(style.Padding)
	w := max(1, int(math.Ceil(tw+2*pad)))
	h := max(1, int(math.Ceil(th+2*pad)))

	dc := gg.NewContext(w, h)
	if face != nil {
		dc.SetFontFace(face)
	}
	if style.Background != nil {
		dc.SetColor(style.Background)
		dc.DrawRoundedRectangle(0, 0, float64(w), float64(h), pad)
		dc.Fill()
	}
	fg := style.Color
	if fg == nil {
		fg = color.White
	}
	dc.SetColor(fg)
	dc.DrawStringAnchored(text, pad, pad, 0, 1)
	return dc.Image()
}

// face returns the font face for style, or nil for gg's built-in face.
func (r *Renderer) face(style ports.TextStyle) font.Face {
	if style.FontPath == "" {
		return nil
	}
	key := faceKey{style.FontPath, style.FontSize}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[key]; ok {
		return f
	}
	// nil on error: unreadable fonts fall back to the built-in face.
	f, _ := gg.LoadFontFace(style.FontPath, style.FontSize)
	r.faces[key] = f
	return f
}

// DecodeImage decodes image data into an image.Image.
func (r *Renderer) DecodeImage(data []byte, format ports.ImageFormat) (image.Image, error) {
	reader := bytes.NewReader(data)

	switch format {
	case ports.FormatJPEG:
		return jpeg.Decode(reader)
	case ports.FormatPNG:
		return png.Decode(reader)
	default:
		// Try to auto-detect
		img, _, err := image.Decode(reader)
		return img, err
	}
}

// EncodeImage encodes an image to the specified format.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		opts := &jpeg.Options{Quality: quality}
		if err := jpeg.Encode(&buf, img, opts); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

// Ensure Renderer implements ports.Renderer
var _ ports.Renderer = (*Renderer)(nil)
