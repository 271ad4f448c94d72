package ports

import (
	"image"
	"image/color"
)

// Renderer abstracts text overlays and still-image encoding.
type Renderer interface {
	// RenderLabel draws text on a translucent plate and returns it.
	RenderLabel(text string, style TextStyle) image.Image

	// DecodeImage decodes image data into an image.Image.
	DecodeImage(data []byte, format ImageFormat) (image.Image, error)

	// EncodeImage encodes an image to the specified format.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)
}

// TextStyle defines text rendering properties.
type TextStyle struct {
	FontSize   float64
	FontPath   string
	Color      color.Color
	Background color.Color
	Padding    int
}

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
)

// Extension returns the file extension for the format, without dot.
func (f ImageFormat) Extension() string {
	if f == FormatPNG {
		return "png"
	}
	return "jpg"
}

// ParseImageFormat maps a file extension to a format. Unknown values mean JPEG.
func ParseImageFormat(ext string) ImageFormat {
	switch ext {
	case "png", ".png", "PNG":
		return FormatPNG
	default:
		return FormatJPEG
	}
}
