package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultOverlay burns the row headings and cell labels into the frame.
func DefaultOverlay(img *image.RGBA, labels []Label, headings []Heading) {
	d := &font.Drawer{Dst: img, Src: image.Black, Face: basicfont.Face7x13}
	ascent := basicfont.Face7x13.Ascent
	for _, h := range headings {
		d.Dot = fixed.P(int(h.Left), int(h.Top)+ascent)
		d.DrawString(h.Text)
	}
	for _, l := range labels {
		d.Dot = fixed.P(int(l.Left), int(l.Top)+ascent)
		d.DrawString(l.Text)
	}
}

// TextWidth is the advance of s in the overlay face, in pixels.
func TextWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

var borderColor = color.RGBA{0xcc, 0xcc, 0xcc, 0xff}

// CellBorders outlines every cell rectangle with a 1px line.
func CellBorders(img *image.RGBA, cells []image.Rectangle) {
	u := image.NewUniform(borderColor)
	for _, r := range cells {
		if r.Empty() {
			continue
		}
		for _, e := range []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
			image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
			image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
			image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
		} {
			draw.Draw(img, e.Intersect(img.Bounds()), u, image.Point{}, draw.Src)
		}
	}
}
