package viewer

import (
	"fmt"

	"folio/pkg/layout"
	"folio/pkg/surface"
)

// Geometry measures the host container.
type Geometry interface {
	// Container returns the current container dimensions.
	Container() layout.Container

	// PixelRatio returns the ratio of device to logical pixels.
	PixelRatio() float64
}

// Presenter applies viewer output to the host.
type Presenter interface {
	// SetLoading shows or hides the loading indicator.
	SetLoading(loading bool)

	// SetStageHeight fixes the stage height. Zero clears it.
	SetStageHeight(height float64)

	// SetControls updates the navigation controls.
	SetControls(c Controls)

	// SetTitle sets the document title.
	SetTitle(title string)

	// ShowFrame displays a presented frame.
	ShowFrame(f surface.Frame)
}

// Controls is the state of the navigation bar.
type Controls struct {
	PrevEnabled bool
	NextEnabled bool

	// Status is the page counter or a status message.
	Status string
}

// Status messages shown in place of the page counter.
const (
	StatusNotFound   = "PDF not found"
	StatusLoadFailed = "Failed to load PDF"
	StatusLoading    = "Loading page..."
)

// PageControls returns the controls for a page position.
func PageControls(current, count int) Controls {
	return Controls{
		PrevEnabled: current > 1,
		NextEnabled: current < count,
		Status:      fmt.Sprintf("Page %d of %d", current, count),
	}
}

// DisabledControls returns controls with both buttons disabled.
func DisabledControls(status string) Controls {
	return Controls{Status: status}
}

// StaticGeometry is a fixed container, used by headless hosts.
type StaticGeometry struct {
	Box   layout.Container
	Ratio float64
}

// Container implements Geometry.
func (g StaticGeometry) Container() layout.Container {
	return g.Box
}

// PixelRatio implements Geometry.
func (g StaticGeometry) PixelRatio() float64 {
	if g.Ratio <= 0 {
		return 1
	}
	return g.Ratio
}

// NopPresenter discards all output.
type NopPresenter struct{}

func (NopPresenter) SetLoading(bool)         {}
func (NopPresenter) SetStageHeight(float64)  {}
func (NopPresenter) SetControls(Controls)    {}
func (NopPresenter) SetTitle(string)         {}
func (NopPresenter) ShowFrame(surface.Frame) {}
