package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"
)

// Driver encodes presented frames as PNG for the websocket preview. Frames arriving within
// the throttle window of the previous emit are dropped.
type Driver struct {
	throttle time.Duration
	lastEmit time.Time
	bounds   image.Rectangle
	latest   []byte
	emit     func(png []byte)
	enc      png.Encoder
	now      func() time.Time
	mu       sync.Mutex
}

// New returns a preview driver calling emit with each accepted frame. emit may be nil.
func New(throttle time.Duration, emit func(png []byte)) *Driver {
	return &Driver{
		throttle: throttle,
		emit:     emit,
		enc:      png.Encoder{CompressionLevel: png.BestSpeed},
		now:      time.Now,
	}
}

func (d *Driver) String() string { return "preview" }

func (d *Driver) Halt() error { return nil }

func (d *Driver) ColorModel() color.Model { return color.RGBAModel }

func (d *Driver) Bounds() image.Rectangle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bounds
}

// Latest returns the last encoded frame, or nil.
func (d *Driver) Latest() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest
}

// Draw encodes the whole source frame. The destination rectangle is ignored.
func (d *Driver) Draw(_ image.Rectangle, src image.Image, _ image.Point) error {
	d.mu.Lock()
	now := d.now()
	if !d.lastEmit.IsZero() && d.lastEmit.Add(d.throttle).After(now) {
		d.mu.Unlock()
		return nil // throttle UI updates
	}
	d.lastEmit = now
	d.mu.Unlock()

	var buf bytes.Buffer
	if err := d.enc.Encode(&buf, src); err != nil {
		return err
	}

	d.mu.Lock()
	d.bounds = src.Bounds()
	d.latest = buf.Bytes()
	emit := d.emit
	d.mu.Unlock()
	if emit != nil {
		emit(buf.Bytes())
	}
	return nil
}
