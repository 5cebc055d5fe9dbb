package fake

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Driver logs a compact summary of each frame (first pixel and average) and optionally
// writes it as a numbered PNG under Dir. Useful for headless runs.
type Driver struct {
	Dir   string
	Count int
	Log   zerolog.Logger

	last *image.RGBA
}

func (d *Driver) String() string { return "fake" }

func (d *Driver) Halt() error { return nil }

func (d *Driver) ColorModel() color.Model { return color.RGBAModel }

// Bounds is the size of the last frame, empty before the first.
func (d *Driver) Bounds() image.Rectangle {
	if d.last == nil {
		return image.Rectangle{}
	}
	return d.last.Bounds()
}

// Last returns the most recent frame, or nil.
func (d *Driver) Last() *image.RGBA { return d.last }

// Draw copies the whole source frame; the canvas may have been resized since the last one.
func (d *Driver) Draw(_ image.Rectangle, src image.Image, _ image.Point) error {
	if d.last == nil || d.last.Bounds() != src.Bounds() {
		d.last = image.NewRGBA(src.Bounds())
	}
	draw.Draw(d.last, src.Bounds(), src, src.Bounds().Min, draw.Src)
	d.Count++

	var sr, sg, sb float64
	b := d.last.Bounds()
	n := float64(b.Dx() * b.Dy())
	for i := 0; i+3 < len(d.last.Pix); i += 4 {
		sr += float64(d.last.Pix[i])
		sg += float64(d.last.Pix[i+1])
		sb += float64(d.last.Pix[i+2])
	}
	if n == 0 {
		n = 1
	}
	first := d.last.RGBAAt(b.Min.X, b.Min.Y)
	d.Log.Debug().
		Int("frame", d.Count).
		Str("avg", fmt.Sprintf("(%.1f,%.1f,%.1f)", sr/n, sg/n, sb/n)).
		Str("first", fmt.Sprintf("(%d,%d,%d)", first.R, first.G, first.B)).
		Msg("frame")

	if d.Dir == "" {
		return nil
	}
	return d.writePNG(filepath.Join(d.Dir, fmt.Sprintf("frame_%04d.png", d.Count)))
}

func (d *Driver) writePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, d.last); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
