// Package layout computes the pixel size at which a page is rasterized so that
// it fits the available viewport without overflowing either axis.
package layout

import "math"

// DefaultAspectRatio is the height/width ratio assumed before the first page's
// intrinsic size is known.
const DefaultAspectRatio = 1.35

// Size is a computed page size in logical pixels.
type Size struct {
	Width  float64
	Height float64
}

// Container describes the host geometry measured at layout time.
type Container struct {
	// Width is the stage width.
	Width float64

	// Height is the viewer element's own height. Zero means unknown.
	Height float64

	// ViewportHeight is the full window (or screen) height.
	ViewportHeight float64

	// ChromeHeight is the height of the controls bar.
	ChromeHeight float64

	// Fullscreen reports whether the viewer is presented fullscreen.
	Fullscreen bool
}

// Config parameterizes the fit-to-viewport formula. The viewer variants
// differ only in these values.
type Config struct {
	// ReservedHeight is subtracted from the container height, after chrome.
	ReservedHeight float64

	// ReservedHeightSingle replaces ReservedHeight when a spread collapses
	// to a single column. Zero means ReservedHeight.
	ReservedHeightSingle float64

	// Padding is applied on both sides of each axis.
	Padding float64

	// ChromeGap is extra space kept between the page and the controls.
	ChromeGap float64

	// MinWidth and MinHeight floor the available space.
	MinWidth  float64
	MinHeight float64

	// MinContainerHeight floors the container height before reservations.
	MinContainerHeight float64

	// ViewportOnly measures the viewport height even outside fullscreen.
	ViewportOnly bool

	// FloorWidth truncates the final width to a whole pixel no smaller than
	// MinWidth.
	FloorWidth bool

	// Columns is the number of pages shown side by side. Zero means one.
	Columns int

	// SingleColumnBelow collapses a spread to one column on containers
	// narrower than this width.
	SingleColumnBelow float64
}

// Canvas returns the configuration of the single-canvas viewer. It is the
// reference layout.
func Canvas() Config {
	return Config{
		Padding:            2,
		ChromeGap:          12,
		MinWidth:           260,
		MinHeight:          220,
		MinContainerHeight: 220,
	}
}

// Page returns the configuration of the page viewer that sizes against the
// window height and keeps room for surrounding page content.
func Page() Config {
	return Config{
		ReservedHeight: 240,
		Padding:        16,
		MinWidth:       260,
		MinHeight:      320,
		ViewportOnly:   true,
		FloorWidth:     true,
	}
}

// Spread returns the configuration of the two-page flipbook.
func Spread() Config {
	return Config{
		ReservedHeight:       260,
		ReservedHeightSingle: 280,
		MinWidth:             320,
		MinHeight:            360,
		ViewportOnly:         true,
		FloorWidth:           true,
		Columns:              2,
		SingleColumnBelow:    768,
	}
}

// Variant returns the named configuration: "canvas", "page" or "spread".
func Variant(name string) (Config, bool) {
	switch name {
	case "", "canvas":
		return Canvas(), true
	case "page":
		return Page(), true
	case "spread", "flipbook":
		return Spread(), true
	}
	return Config{}, false
}

// Fit returns the largest size with the given height/width ratio that fits
// inside the available width and height.
func Fit(availableWidth, availableHeight, ratio float64) Size {
	ratio = sanitizeRatio(ratio)
	widthFromHeight := availableHeight / ratio
	width := math.Min(availableWidth, widthFromHeight)
	return Size{
		Width:  width,
		Height: math.Round(width * ratio),
	}
}

// ComputeSize fits a page into a container using the canvas layout.
func ComputeSize(containerWidth, containerHeight, chromeHeight, ratio float64) Size {
	return Canvas().ComputeSize(Container{
		Width:          containerWidth,
		Height:         containerHeight,
		ViewportHeight: containerHeight,
		ChromeHeight:   chromeHeight,
	}, ratio)
}

// columns returns the number of page columns used for a container width.
func (c Config) columns(width float64) int {
	if c.Columns <= 1 {
		return 1
	}
	if width < c.SingleColumnBelow {
		return 1
	}
	return c.Columns
}

// Available returns the space a single page may occupy in the container.
func (c Config) Available(ct Container) (width, height float64) {
	viewerHeight := ct.Height
	if ct.Fullscreen || c.ViewportOnly || viewerHeight <= 0 {
		viewerHeight = ct.ViewportHeight
	}

	containerHeight := math.Max(viewerHeight-ct.ChromeHeight-c.ChromeGap, c.MinContainerHeight)

	cols := c.columns(ct.Width)
	reserved := c.ReservedHeight
	if cols == 1 && c.Columns > 1 && c.ReservedHeightSingle > 0 {
		reserved = c.ReservedHeightSingle
	}

	columnWidth := ct.Width
	if cols > 1 {
		columnWidth = math.Floor(ct.Width / float64(cols))
	}

	width = math.Max(columnWidth-c.Padding*2, c.MinWidth)
	height = math.Max(containerHeight-reserved-c.Padding*2, c.MinHeight)
	return width, height
}

// ComputeSize returns the page size for the container and page ratio.
func (c Config) ComputeSize(ct Container, ratio float64) Size {
	ratio = sanitizeRatio(ratio)
	width, height := c.Available(ct)
	size := Fit(width, height, ratio)
	if c.FloorWidth {
		size.Width = math.Floor(math.Max(size.Width, c.MinWidth))
		size.Height = math.Round(size.Width * ratio)
	}
	return size
}

func sanitizeRatio(ratio float64) float64 {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return DefaultAspectRatio
	}
	return ratio
}
