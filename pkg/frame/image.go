package frame

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Geometry describes the shape of a pixel buffer.
type Geometry struct {
	Width  int
	Height int
	Stride int
	Layout Layout
}

// Image is a display-ready RGB24 buffer whose rows are aligned to 4 bytes.
type Image struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// AlignedStride returns the row length in bytes for an RGB24 row of width pixels.
func AlignedStride(width int) int {
	return (width*Channels + 3) &^ 3
}

// NewImage allocates a zeroed display image.
func NewImage(width, height int) *Image {
	stride := AlignedStride(width)
	return &Image{
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}
}

// Geometry returns the image geometry.
func (m *Image) Geometry() Geometry {
	return Geometry{Width: m.Width, Height: m.Height, Stride: m.Stride, Layout: LayoutRGB24}
}

// SameGeometry reports whether both images share dimensions, layout and stride.
func (m *Image) SameGeometry(o *Image) bool {
	return m != nil && o != nil && m.Geometry() == o.Geometry()
}

// CopyFrom copies pixels from src. Both images must share geometry.
func (m *Image) CopyFrom(src *Image) {
	copy(m.Pix, src.Pix)
}

// Clone returns an independent copy.
func (m *Image) Clone() *Image {
	c := &Image{Width: m.Width, Height: m.Height, Stride: m.Stride, Pix: make([]byte, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

// ColorModel implements image.Image.
func (m *Image) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (m *Image) Bounds() image.Rectangle { return image.Rect(0, 0, m.Width, m.Height) }

// At implements image.Image.
func (m *Image) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(m.Bounds())) {
		return color.RGBA{}
	}
	i := y*m.Stride + x*Channels
	return color.RGBA{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2], A: 0xff}
}

// ToRGBA expands the frame into dst, allocating when dst is nil or the wrong size.
func (f *Frame) ToRGBA(dst *image.RGBA) *image.RGBA {
	if dst == nil || dst.Rect.Dx() != f.Width || dst.Rect.Dy() != f.Height {
		dst = image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	}
	for y := 0; y < f.Height; y++ {
		src := f.Data[y*f.Stride : y*f.Stride+f.Width*Channels]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+f.Width*4]
		for x, o := 0, 0; x < len(src); x, o = x+3, o+4 {
			out[o] = src[x+2]
			out[o+1] = src[x+1]
			out[o+2] = src[x]
			out[o+3] = 0xff
		}
	}
	return dst
}

// FromImage fills the frame from any image, converting to BGR24. Images
// other than *image.RGBA are first normalized with NormalizeRGBA.
func (f *Frame) FromImage(img image.Image) {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = NormalizeRGBA(nil, img)
	}
	b := rgba.Bounds()
	f.Reset(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		off := rgba.PixOffset(b.Min.X, b.Min.Y+y)
		src := rgba.Pix[off : off+f.Width*4]
		out := f.Data[y*f.Stride : y*f.Stride+f.Stride]
		for x, o := 0, 0; o < len(out); x, o = x+4, o+3 {
			out[o] = src[x+2]
			out[o+1] = src[x+1]
			out[o+2] = src[x]
		}
	}
}

// NormalizeRGBA draws img into dst, allocating dst when it is nil or of a
// different size. *image.RGBA input is returned unchanged.
func NormalizeRGBA(dst *image.RGBA, img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	if dst == nil || dst.Rect.Dx() != b.Dx() || dst.Rect.Dy() != b.Dy() {
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

// ToRGBA expands the display image into dst.
func (m *Image) ToRGBA(dst *image.RGBA) *image.RGBA {
	if dst == nil || dst.Rect.Dx() != m.Width || dst.Rect.Dy() != m.Height {
		dst = image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	}
	for y := 0; y < m.Height; y++ {
		src := m.Pix[y*m.Stride : y*m.Stride+m.Width*Channels]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+m.Width*4]
		for x, o := 0, 0; x < len(src); x, o = x+3, o+4 {
			out[o] = src[x]
			out[o+1] = src[x+1]
			out[o+2] = src[x+2]
			out[o+3] = 0xff
		}
	}
	return dst
}
