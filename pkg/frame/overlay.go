package frame

import (
	"image"
)

// Overlay alpha-blends src onto the frame with its top-left corner at at.
// Pixels outside the frame are clipped.
func (f *Frame) Overlay(src image.Image, at image.Point) {
	sb := src.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(sb.Size())}.Intersect(image.Rect(0, 0, f.Width, f.Height))
	if r.Empty() {
		return
	}

	rgba, _ := src.(*image.RGBA)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		sy := sb.Min.Y + y - at.Y
		row := f.Data[y*f.Stride:]
		for x := r.Min.X; x < r.Max.X; x++ {
			sx := sb.Min.X + x - at.X

			var sr, sg, sbl, sa uint32
			if rgba != nil {
				i := rgba.PixOffset(sx, sy)
				p := rgba.Pix[i : i+4 : i+4]
				sr, sg, sbl, sa = uint32(p[0]), uint32(p[1]), uint32(p[2]), uint32(p[3])
			} else {
				cr, cg, cb, ca := src.At(sx, sy).RGBA()
				sr, sg, sbl, sa = cr>>8, cg>>8, cb>>8, ca>>8
			}
			if sa == 0 {
				continue
			}

			// Source is premultiplied: dst = src + dst*(1-a).
			o := x * Channels
			inv := 255 - sa
			row[o] = uint8(sbl + uint32(row[o])*inv/255)
			row[o+1] = uint8(sg + uint32(row[o+1])*inv/255)
			row[o+2] = uint8(sr + uint32(row[o+2])*inv/255)
		}
	}
}
