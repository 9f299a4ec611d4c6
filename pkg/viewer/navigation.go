package viewer

import (
	"context"
	"sync"
)

// Click zones and swipe threshold.
const (
	PrevZone       = 0.45
	NextZone       = 0.55
	SwipeThreshold = 50
)

// Key is a navigation key.
type Key int

const (
	KeyNone Key = iota
	KeyPrev
	KeyNext
	KeyFirst
	KeyLast
)

// ClickDelta maps a click at x on a stage of the given width to a page
// delta. The middle of the stage is a dead zone.
func ClickDelta(x, width float64) int {
	if width <= 0 {
		return 0
	}
	if x < width*PrevZone {
		return -1
	}
	if x > width*NextZone {
		return 1
	}
	return 0
}

// SwipeDelta maps a horizontal swipe distance to a page delta. Swiping
// right reveals the previous page.
func SwipeDelta(dx float64) int {
	switch {
	case dx > SwipeThreshold:
		return -1
	case dx < -SwipeThreshold:
		return 1
	}
	return 0
}

// Navigator turns navigation intents into page changes.
type Navigator struct {
	state *State
	sched *Scheduler

	mu         sync.Mutex
	touchStart *float64
}

func newNavigator(state *State, sched *Scheduler) *Navigator {
	return &Navigator{state: state, sched: sched}
}

// GoToPage moves delta pages from the current page and renders it. Targets
// outside the document are ignored. A request made while a render is in
// flight is dropped and leaves the current page unchanged, so the page shown
// and the page reported never disagree. It returns the started render, if
// any.
func (n *Navigator) GoToPage(ctx context.Context, delta int) (*Task, bool) {
	if _, ok := n.state.target(delta); !ok {
		return nil, false
	}
	return n.sched.submit(ctx, func() (int, bool) {
		target, ok := n.state.target(delta)
		if ok {
			n.state.setCurrent(target)
		}
		return target, ok
	})
}

// Prev goes to the previous page.
func (n *Navigator) Prev(ctx context.Context) (*Task, bool) {
	return n.GoToPage(ctx, -1)
}

// Next goes to the next page.
func (n *Navigator) Next(ctx context.Context) (*Task, bool) {
	return n.GoToPage(ctx, 1)
}

// Click handles a click at x on a stage of the given width.
func (n *Navigator) Click(ctx context.Context, x, width float64) (*Task, bool) {
	delta := ClickDelta(x, width)
	if delta == 0 {
		return nil, false
	}
	return n.GoToPage(ctx, delta)
}

// TouchStart records where a touch began.
func (n *Navigator) TouchStart(x float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.touchStart = &x
}

// TouchEnd completes a swipe that ended at x. A touch end without a
// matching start is ignored.
func (n *Navigator) TouchEnd(ctx context.Context, x float64) (*Task, bool) {
	n.mu.Lock()
	start := n.touchStart
	n.touchStart = nil
	n.mu.Unlock()

	if start == nil {
		return nil, false
	}
	delta := SwipeDelta(x - *start)
	if delta == 0 {
		return nil, false
	}
	return n.GoToPage(ctx, delta)
}

// Key handles a navigation key. First and Last do nothing when already on
// that page.
func (n *Navigator) Key(ctx context.Context, k Key) (*Task, bool) {
	snap := n.state.Snapshot()
	var delta int
	switch k {
	case KeyPrev:
		delta = -1
	case KeyNext:
		delta = 1
	case KeyFirst:
		delta = 1 - snap.CurrentPage
	case KeyLast:
		delta = snap.PageCount - snap.CurrentPage
	}
	if delta == 0 {
		return nil, false
	}
	return n.GoToPage(ctx, delta)
}
