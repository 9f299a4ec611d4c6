package gui

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"folio/pkg/surface"
)

// Stage is the widget the current page is drawn on. Taps and horizontal
// drags on it are reported through its callbacks.
type Stage struct {
	widget.BaseWidget

	image *canvas.Image

	// Callbacks
	OnTap        func(x, width float64)
	OnSwipeStart func(x float64)
	OnSwipeEnd   func(x float64)

	mu     sync.Mutex
	width  float32
	frameH float32
	height float32

	// Dragging state
	dragging bool
	lastX    float32
}

// NewStage creates an empty stage.
func NewStage() *Stage {
	s := &Stage{}
	s.ExtendBaseWidget(s)

	s.image = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	s.image.FillMode = canvas.ImageFillStretch
	s.image.ScaleMode = canvas.ImageScaleSmooth

	return s
}

// CreateRenderer creates the renderer for this widget.
func (s *Stage) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(s.image)
}

// MinSize is the logical size of the last frame, or the fixed stage height
// when one is set.
func (s *Stage) MinSize() fyne.Size {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.frameH
	if s.height > 0 {
		h = s.height
	}
	return fyne.NewSize(s.width, h)
}

// SetFrame shows a presented frame.
func (s *Stage) SetFrame(f surface.Frame) {
	if f.Empty() {
		return
	}
	s.mu.Lock()
	s.width = float32(f.Width)
	s.frameH = float32(f.Height)
	s.mu.Unlock()

	s.image.Image = f.Image
	s.image.Refresh()
	s.Refresh()
}

// SetHeight fixes the stage height. Zero returns to the frame height.
func (s *Stage) SetHeight(h float64) {
	s.mu.Lock()
	s.height = float32(h)
	s.mu.Unlock()
	s.Refresh()
}

// Tapped handles a click on the stage.
func (s *Stage) Tapped(ev *fyne.PointEvent) {
	if s.OnTap != nil {
		s.OnTap(float64(ev.Position.X), float64(s.Size().Width))
	}
}

// Dragged tracks a horizontal swipe.
func (s *Stage) Dragged(ev *fyne.DragEvent) {
	if !s.dragging {
		s.dragging = true
		if s.OnSwipeStart != nil {
			s.OnSwipeStart(float64(ev.Position.X - ev.Dragged.DX))
		}
	}
	s.lastX = ev.Position.X
}

// DragEnd completes the swipe.
func (s *Stage) DragEnd() {
	if !s.dragging {
		return
	}
	s.dragging = false
	if s.OnSwipeEnd != nil {
		s.OnSwipeEnd(float64(s.lastX))
	}
}
