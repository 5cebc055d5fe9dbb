// Package strip mirrors the load state of every grid cell onto an addressable LED strip,
// one pixel per cell in row-major order. Without an SPI port it prints to the console.
package strip

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"
)

type Status uint8

const (
	Pending Status = iota
	Loaded
	Colored // reference cell with its intersection colors applied
	Failed
)

var palette = map[Status]color.NRGBA{
	Pending: {R: 40, G: 40, B: 0, A: 255},
	Loaded:  {G: 160, A: 255},
	Colored: {R: 160, G: 40, B: 40, A: 255},
	Failed:  {R: 255, A: 255},
}

// ConsolePort skips SPI probing.
const ConsolePort = "console"

type Strip struct {
	SPI bool

	drawer display.Drawer
	img    *image.NRGBA
	status []Status
	mu     sync.Mutex
}

// Open initializes the host and opens an nrzled strip of n pixels on port. An empty port
// picks the first SPI port. When none is available the strip falls back to the console.
func Open(n int, port string) (*Strip, error) {
	if n <= 0 {
		return nil, fmt.Errorf("strip: need at least one pixel, got %d", n)
	}
	if port == ConsolePort {
		return New(screen.New(n), n), nil
	}
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	p, err := spireg.Open(port)
	if err != nil {
		return New(screen.New(n), n), nil
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: n,
		Channels:  3,
		Freq:      2500 * physic.KiloHertz,
	})
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := d.Halt(); err != nil {
		return nil, err
	}
	s := New(d, n)
	s.SPI = true
	return s, nil
}

// New wraps an existing drawer. All cells start Pending.
func New(d display.Drawer, n int) *Strip {
	s := &Strip{
		drawer: d,
		img:    image.NewNRGBA(image.Rect(0, 0, n, 1)),
		status: make([]Status, n),
	}
	for i := range s.status {
		s.img.SetNRGBA(i, 0, palette[Pending])
	}
	return s
}

func (s *Strip) Len() int { return len(s.status) }

// Set records the status of cell i.
func (s *Strip) Set(i int, st Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.status) {
		return fmt.Errorf("strip: cell %d out of range [0,%d)", i, len(s.status))
	}
	s.status[i] = st
	s.img.SetNRGBA(i, 0, palette[st])
	return nil
}

func (s *Strip) Status(i int) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status[i]
}

// Image is the current pixel row.
func (s *Strip) Image() *image.NRGBA { return s.img }

// Present pushes the pixel row to the drawer.
func (s *Strip) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawer.Draw(s.drawer.Bounds(), s.img, image.Point{})
}

// Close blanks the strip.
func (s *Strip) Close() error { return s.drawer.Halt() }
