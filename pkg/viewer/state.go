package viewer

import (
	"sync"

	"folio/pkg/layout"
	"folio/pkg/source"
)

// State is the mutable state of one viewer instance.
type State struct {
	mu sync.Mutex

	doc       source.Document
	current   int
	displayed int
	count     int
	rendering bool
	ratio     float64
}

// Snapshot is a copy of the viewer state.
type Snapshot struct {
	CurrentPage   int
	DisplayedPage int
	PageCount     int
	Rendering     bool
	AspectRatio   float64
	Loaded        bool
}

func newState() *State {
	return &State{ratio: layout.DefaultAspectRatio}
}

// Snapshot returns a copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		CurrentPage:   s.current,
		DisplayedPage: s.displayed,
		PageCount:     s.count,
		Rendering:     s.rendering,
		AspectRatio:   s.ratio,
		Loaded:        s.doc != nil,
	}
}

// document returns the loaded document and the current page.
func (s *State) document() (source.Document, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, s.current
}

// currentPage returns the current page, if a document is loaded.
func (s *State) currentPage() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.doc != nil && s.current > 0
}

// reset installs a document at page 1 and returns the previous one.
func (s *State) reset(doc source.Document) source.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.doc
	s.doc = doc
	s.count = 0
	s.current = 0
	s.displayed = 0
	s.ratio = layout.DefaultAspectRatio
	if doc != nil {
		s.count = doc.PageCount()
		s.current = 1
	}
	return prev
}

// target returns current+delta if it is a valid page.
func (s *State) target(delta int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return 0, false
	}
	t := s.current + delta
	if t < 1 || t > s.count {
		return 0, false
	}
	return t, true
}

func (s *State) setCurrent(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = page
}

func (s *State) setRendering(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rendering = v
}

func (s *State) setRatio(r float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r > 0 {
		s.ratio = r
	}
}

func (s *State) aspectRatio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ratio
}

// finish ends a render. A failed render reverts the current page to the
// last displayed one.
func (s *State) finish(page int, ok bool) Controls {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rendering = false
	if ok {
		s.displayed = page
	} else if s.displayed > 0 {
		s.current = s.displayed
	}
	return PageControls(s.current, s.count)
}

func (s *State) controls() Controls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PageControls(s.current, s.count)
}
