// Package surface provides the display surface a page is rasterized into.
//
// A Surface keeps two buffers. Rasterization draws into the back buffer, and
// the frame becomes visible only when the back buffer is presented, so the
// front buffer always holds a complete frame.
package surface

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Frame is a presented image together with the logical size it is shown at.
type Frame struct {
	Image *image.RGBA

	// Width and Height are the display size in logical pixels, the backing
	// size divided by the pixel ratio.
	Width  float64
	Height float64

	PixelRatio float64
}

// Empty reports whether the frame has no pixels.
func (f Frame) Empty() bool {
	return f.Image == nil || f.Image.Bounds().Empty()
}

// Surface is a double-buffered drawing surface.
type Surface struct {
	mu sync.Mutex

	front Frame
	back  *image.RGBA
	ratio float64

	// Default background
	background color.Color
}

// New creates a surface with a white background.
func New() *Surface {
	return &Surface{
		ratio:      1,
		background: color.White,
	}
}

// SetBackground sets the color back buffers are cleared to.
func (s *Surface) SetBackground(col color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = col
}

// Prepare allocates a cleared back buffer of width×height device pixels.
// The pixel ratio converts the backing size to the logical display size.
func (s *Surface) Prepare(width, height int, pixelRatio float64) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if pixelRatio <= 0 {
		pixelRatio = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{s.background}, image.Point{}, draw.Src)
	s.back = img
	s.ratio = pixelRatio
}

// Back returns the back buffer, or nil if none is prepared.
func (s *Surface) Back() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.back
}

// Draw copies src into the back buffer. A source that differs in size from
// the buffer is scaled to cover it.
func (s *Surface) Draw(src image.Image) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.back == nil || src == nil {
		return false
	}

	dst := s.back.Bounds()
	if src.Bounds().Size() == dst.Size() {
		draw.Draw(s.back, dst, src, src.Bounds().Min, draw.Over)
		return true
	}

	xdraw.CatmullRom.Scale(s.back, dst, src, src.Bounds(), xdraw.Over, nil)
	return true
}

// Present makes the back buffer the visible frame and returns it.
func (s *Surface) Present() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.back == nil {
		return s.front, false
	}

	b := s.back.Bounds()
	s.front = Frame{
		Image:      s.back,
		Width:      float64(b.Dx()) / s.ratio,
		Height:     float64(b.Dy()) / s.ratio,
		PixelRatio: s.ratio,
	}
	s.back = nil
	return s.front, true
}

// Discard drops the back buffer, leaving the visible frame untouched.
func (s *Surface) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.back = nil
}

// Frame returns the visible frame.
func (s *Surface) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.front
}

// Placeholder presents an empty page of the given logical size with a thin
// border, shown while a document loads.
func (s *Surface) Placeholder(width, height, pixelRatio float64) Frame {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	w := int(math.Floor(width * pixelRatio))
	h := int(math.Floor(height * pixelRatio))
	s.Prepare(w, h, pixelRatio)

	s.mu.Lock()
	border := math.Max(1, math.Round(pixelRatio))
	strokeRect(s.back, float32(border), color.RGBA{R: 0xd0, G: 0xd0, B: 0xd0, A: 0xff})
	s.mu.Unlock()

	frame, _ := s.Present()
	return frame
}

// strokeRect outlines the image bounds with a line of the given width.
func strokeRect(img *image.RGBA, width float32, col color.Color) {
	b := img.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())
	if w <= 2*width || h <= 2*width {
		return
	}

	r := vector.NewRasterizer(b.Dx(), b.Dy())

	// Outer rectangle clockwise, inner counter-clockwise, so the nonzero
	// winding rule leaves the inside empty.
	r.MoveTo(0, 0)
	r.LineTo(w, 0)
	r.LineTo(w, h)
	r.LineTo(0, h)
	r.ClosePath()
	r.MoveTo(width, width)
	r.LineTo(width, h-width)
	r.LineTo(w-width, h-width)
	r.LineTo(w-width, width)
	r.ClosePath()

	r.Draw(img, b, &image.Uniform{col}, image.Point{})
}
