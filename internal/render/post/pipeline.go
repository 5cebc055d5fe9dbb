// Package post holds ready-made post pipelines for the render engine.
package post

import "github.com/coreman2200/funtimes-meshgrid/internal/render"

// Annotated draws cell borders, then headings and labels. Used for snapshots, where there is
// no DOM to carry the overlays.
func Annotated() render.PostPipeline {
	return render.PostPipeline{
		Borders: render.CellBorders,
		Overlay: render.DefaultOverlay,
	}
}

// Bare leaves the frame as rasterized. Used when the client lays out its own labels from the
// topology message.
func Bare() render.PostPipeline { return render.PostPipeline{} }

// ByName resolves a pipeline from configuration; unknown names fall back to the engine default.
func ByName(name string) (render.PostPipeline, bool) {
	switch name {
	case "annotated":
		return Annotated(), true
	case "bare":
		return Bare(), true
	case "", "labels":
		return render.PostPipeline{Overlay: render.DefaultOverlay}, true
	}
	return render.PostPipeline{Overlay: render.DefaultOverlay}, false
}
