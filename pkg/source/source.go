// Package source defines the document source the viewer renders from: load a
// document, count its pages, measure a page and rasterize it into a surface.
package source

import (
	"context"
	"fmt"
	"math"

	"folio/pkg/surface"
)

// Source loads documents by URL or path.
type Source interface {
	Load(ctx context.Context, url string) (Document, error)
}

// Document is a loaded document. It is owned by the viewer that loaded it.
type Document interface {
	// PageCount returns the number of pages, at least 1.
	PageCount() int

	// Page returns the page with the given 1-based number.
	Page(ctx context.Context, number int) (Page, error)

	// Close releases resources associated with the document.
	Close() error
}

// Page is a single page of a document.
type Page interface {
	// Number returns the 1-based page number.
	Number() int

	// IntrinsicSize returns the page size at the given scale, where scale 1
	// is one pixel per point.
	IntrinsicSize(scale float64) Size

	// RenderInto rasterizes the page into the surface's back buffer.
	RenderInto(ctx context.Context, dst *surface.Surface, vp Viewport) error
}

// Size contains page dimensions.
type Size struct {
	Width  float64
	Height float64
}

// AspectRatio returns the height/width ratio, or 0 for a degenerate size.
func (s Size) AspectRatio() float64 {
	if s.Width <= 0 || s.Height <= 0 {
		return 0
	}
	return s.Height / s.Width
}

// Common page sizes in points
var (
	SizeLetter = Size{612, 792}
	SizeA4     = Size{595.28, 841.89}
)

// Viewport is the raster target for one page: the scale from points to device
// pixels and the resulting size.
type Viewport struct {
	Scale  float64
	Width  float64
	Height float64
}

// ViewportAt returns the viewport of the page at the given scale.
func ViewportAt(p Page, scale float64) Viewport {
	size := p.IntrinsicSize(scale)
	return Viewport{Scale: scale, Width: size.Width, Height: size.Height}
}

// Pixels returns the viewport size in whole device pixels.
func (v Viewport) Pixels() (width, height int) {
	return int(math.Floor(v.Width)), int(math.Floor(v.Height))
}

// DPI returns the resolution that yields this viewport.
func (v Viewport) DPI() float64 {
	return v.Scale * 72
}

// LoadError reports a document that could not be fetched or parsed.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PageFetchError reports a page that could not be retrieved.
type PageFetchError struct {
	Page int
	Err  error
}

func (e *PageFetchError) Error() string {
	return fmt.Sprintf("failed to get page %d: %v", e.Page, e.Err)
}

func (e *PageFetchError) Unwrap() error { return e.Err }

// RenderError reports a page that failed to rasterize.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// CheckPage returns a PageFetchError if number is outside [1, count].
func CheckPage(number, count int) error {
	if number < 1 || number > count {
		return &PageFetchError{
			Page: number,
			Err:  fmt.Errorf("page out of range (1-%d)", count),
		}
	}
	return nil
}
