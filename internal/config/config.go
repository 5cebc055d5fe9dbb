package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-meshgrid/internal/diagnostics"
	"github.com/coreman2200/funtimes-meshgrid/internal/mesh"
)

type Vec3 struct {
	X float64 `yaml:"x" toml:"x"`
	Y float64 `yaml:"y" toml:"y"`
	Z float64 `yaml:"z" toml:"z"`
}

type Method struct {
	File  string `yaml:"file" toml:"file"`
	Label string `yaml:"label" toml:"label"`
}

type Layout struct {
	Width         float64 `yaml:"width" toml:"width"`
	HeadingHeight float64 `yaml:"heading_height" toml:"heading_height"`
	CellHeight    float64 `yaml:"cell_height" toml:"cell_height"`
	RowSpacing    float64 `yaml:"row_spacing" toml:"row_spacing"`
	Margin        float64 `yaml:"margin" toml:"margin"`
	LabelInset    float64 `yaml:"label_inset" toml:"label_inset"`
}

type Camera struct {
	FOV      float64 `yaml:"fov" toml:"fov"`
	Near     float64 `yaml:"near" toml:"near"`
	Far      float64 `yaml:"far" toml:"far"`
	Position Vec3    `yaml:"position" toml:"position"`
	Target   Vec3    `yaml:"target" toml:"target"`
	Damping  float64 `yaml:"damping" toml:"damping"`
}

type Clip struct {
	Mode   string  `yaml:"mode" toml:"mode"` // "row" | "global"
	Normal Vec3    `yaml:"normal" toml:"normal"`
	Min    float64 `yaml:"min" toml:"min"`
	Max    float64 `yaml:"max" toml:"max"`
	Step   float64 `yaml:"step" toml:"step"`
}

type Lighting struct {
	Background       string  `yaml:"background" toml:"background"` // #rrggbb
	AmbientColor     string  `yaml:"ambient_color" toml:"ambient_color"`
	Ambient          float64 `yaml:"ambient" toml:"ambient"`
	DirectionalColor string  `yaml:"directional_color" toml:"directional_color"`
	Directional      float64 `yaml:"directional" toml:"directional"`
	Position         Vec3    `yaml:"position" toml:"position"`
}

type Feed struct {
	Source        string `yaml:"source" toml:"source"` // "fs" | "http"
	Root          string `yaml:"root" toml:"root"`
	BaseURL       string `yaml:"base_url" toml:"base_url"`
	MaxConcurrent int    `yaml:"max_concurrent" toml:"max_concurrent"`
	TimeoutMs     int    `yaml:"timeout_ms" toml:"timeout_ms"`
}

// Strip is the optional per-cell load status strip.
type Strip struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	SPI     string `yaml:"spi" toml:"spi"` // port name; empty picks the first, "console" skips SPI
}

type Config struct {
	Cases     []string `yaml:"cases" toml:"cases"`
	Methods   []Method `yaml:"methods" toml:"methods"`
	Reference string   `yaml:"reference" toml:"reference"` // method file that gets intersection colors

	Layout   Layout   `yaml:"layout" toml:"layout"`
	Camera   Camera   `yaml:"camera" toml:"camera"`
	Clip     Clip     `yaml:"clip" toml:"clip"`
	Lighting Lighting `yaml:"lighting" toml:"lighting"`
	Feed     Feed     `yaml:"feed" toml:"feed"`
	Strip    Strip    `yaml:"strip,omitempty" toml:"strip,omitempty"`

	FPS        int    `yaml:"fps" toml:"fps"`
	Continuous bool   `yaml:"continuous" toml:"continuous"` // render every tick, not only on request
	Post       string `yaml:"post" toml:"post"`             // "labels" | "annotated" | "bare"
	Addr       string `yaml:"addr" toml:"addr"`
}

// Default reproduces the comparison grid: four test cases by six repair methods.
func Default() *Config {
	return &Config{
		Cases: []string{"meshes/test1/", "meshes/test2/", "meshes/test3/", "meshes/test4/"},
		Methods: []Method{
			{File: "original.obj", Label: "Original"},
			{File: "pymeshfix.obj", Label: "PyMeshFix"},
			{File: "pymesh.obj", Label: "PyMesh"},
			{File: "meshlib.obj", Label: "MeshLib"},
			{File: "surfacenets.obj", Label: "SurfaceNets"},
			{File: "localremesh.obj", Label: "Local Remesh"},
		},
		Reference: "original.obj",
		Layout: Layout{
			Width:         1200,
			HeadingHeight: 50,
			CellHeight:    300,
			RowSpacing:    40,
			Margin:        20,
			LabelInset:    5,
		},
		Camera: Camera{
			FOV:      45,
			Near:     0.1,
			Far:      1000,
			Position: Vec3{Y: 3, Z: 10},
			Damping:  0.05,
		},
		Clip: Clip{Mode: "row", Normal: Vec3{X: -1}, Min: -5, Max: 5, Step: 0.1},
		Lighting: Lighting{
			Background:       "#ffffff",
			AmbientColor:     "#ffffff",
			Ambient:          0.6,
			DirectionalColor: "#ffffff",
			Directional:      0.8,
			Position:         Vec3{X: 5, Y: 10, Z: 5},
		},
		Feed:       Feed{Source: "fs", Root: ".", MaxConcurrent: 4, TimeoutMs: 30000},
		FPS:        60,
		Continuous: true,
		Post:       "labels",
		Addr:       ":8080",
	}
}

// Load reads YAML, or TOML for a .toml path, over the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if isTOML(path) {
		err = toml.Unmarshal(b, c)
	} else {
		err = yaml.Unmarshal(b, c)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	var (
		b   []byte
		err error
	)
	if isTOML(path) {
		b, err = toml.Marshal(c)
	} else {
		b, err = yaml.Marshal(c)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func isTOML(path string) bool { return strings.EqualFold(filepath.Ext(path), ".toml") }

// Validate reports the first invalid setting as a *diagnostics.ConfigurationError.
func (c *Config) Validate() error {
	switch {
	case len(c.Cases) == 0:
		return diagnostics.Configf("cases", "at least one test case is required")
	case len(c.Methods) == 0:
		return diagnostics.Configf("methods", "at least one method is required")
	case c.Layout.Width <= 0:
		return diagnostics.Configf("layout.width", "must be > 0, got %v", c.Layout.Width)
	case c.Layout.CellHeight <= 0:
		return diagnostics.Configf("layout.cell_height", "must be > 0, got %v", c.Layout.CellHeight)
	case c.Camera.FOV <= 0 || c.Camera.FOV >= 180:
		return diagnostics.Configf("camera.fov", "must be in (0,180), got %v", c.Camera.FOV)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return diagnostics.Configf("camera.near", "need 0 < near < far, got %v/%v", c.Camera.Near, c.Camera.Far)
	case c.Camera.Damping < 0 || c.Camera.Damping >= 1:
		return diagnostics.Configf("camera.damping", "must be in [0,1), got %v", c.Camera.Damping)
	case c.Clip.Mode != "row" && c.Clip.Mode != "global":
		return diagnostics.Configf("clip.mode", "must be row or global, got %q", c.Clip.Mode)
	case c.Clip.Min > c.Clip.Max:
		return diagnostics.Configf("clip.min", "min %v > max %v", c.Clip.Min, c.Clip.Max)
	case c.FPS <= 0:
		return diagnostics.Configf("fps", "must be > 0, got %d", c.FPS)
	case c.Feed.Source != "fs" && c.Feed.Source != "http":
		return diagnostics.Configf("feed.source", "must be fs or http, got %q", c.Feed.Source)
	case c.Feed.Source == "http" && c.Feed.BaseURL == "":
		return diagnostics.Configf("feed.base_url", "required for the http source")
	}
	for _, f := range []struct{ name, v string }{
		{"lighting.background", c.Lighting.Background},
		{"lighting.ambient_color", c.Lighting.AmbientColor},
		{"lighting.directional_color", c.Lighting.DirectionalColor},
	} {
		if _, err := ParseColor(f.v); err != nil {
			return diagnostics.Configf(f.name, "%v", err)
		}
	}
	return nil
}

// RefCol is the column of the reference method, or -1.
func (c *Config) RefCol() int {
	for i, m := range c.Methods {
		if m.File == c.Reference {
			return i
		}
	}
	return -1
}

// MethodFiles lists the mesh file of every column.
func (c *Config) MethodFiles() []string {
	out := make([]string, len(c.Methods))
	for i, m := range c.Methods {
		out[i] = m.File
	}
	return out
}

// Labels lists the display label of every column.
func (c *Config) Labels() []string {
	out := make([]string, len(c.Methods))
	for i, m := range c.Methods {
		out[i] = m.Label
	}
	return out
}

// ParseColor accepts #rrggbb or 0xrrggbb.
func ParseColor(s string) (mesh.Color, error) {
	h := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "#"), "0x")
	if len(h) != 6 {
		return mesh.Color{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return mesh.Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return mesh.Color{
		R: float32(v>>16&0xff) / 255,
		G: float32(v>>8&0xff) / 255,
		B: float32(v&0xff) / 255,
	}, nil
}
