// Package viewer implements the page viewer: it loads a document, fits the
// current page to the host container, rasterizes it with at most one render
// in flight, and turns buttons, clicks, swipes and keys into page changes.
package viewer

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"folio/pkg/layout"
	"folio/pkg/source"
	"folio/pkg/surface"
)

// Viewer is one viewer instance. Its methods may be called from UI
// callbacks; renders run in the background.
type Viewer struct {
	src    source.Source
	geom   Geometry
	view   Presenter
	opts   Options
	logger *slog.Logger

	state   *State
	surface *surface.Surface
	sched   *Scheduler
	nav     *Navigator
	obs     *Observer

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	params Params
}

// New creates a viewer that loads documents from src and draws through the
// host's geometry and presenter.
func New(src source.Source, geom Geometry, view Presenter, opts ...Option) *Viewer {
	o := NewOptions(opts...)
	ctx, cancel := context.WithCancel(context.Background())

	v := &Viewer{
		src:     src,
		geom:    geom,
		view:    view,
		opts:    o,
		logger:  o.Logger.With(slog.String("component", "viewer")),
		state:   newState(),
		surface: surface.New(),
		ctx:     ctx,
		cancel:  cancel,
	}
	v.sched = newScheduler(v.state, geom, view, v.surface, o)
	v.nav = newNavigator(v.state, v.sched)
	v.obs = newObserver(v.state, v.sched, view, o)
	return v
}

// Scheduler returns the render scheduler.
func (v *Viewer) Scheduler() *Scheduler { return v.sched }

// Navigator returns the navigation controller.
func (v *Viewer) Navigator() *Navigator { return v.nav }

// Observer returns the viewport observer.
func (v *Viewer) Observer() *Observer { return v.obs }

// Surface returns the display surface.
func (v *Viewer) Surface() *surface.Surface { return v.surface }

// State returns a snapshot of the viewer state.
func (v *Viewer) State() Snapshot { return v.state.Snapshot() }

// Params returns the parameters of the last Open.
func (v *Viewer) Params() Params {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.params
}

// Open loads the document named by p and renders its first page. An empty
// File is not an error: the viewer shows a not-found status with navigation
// disabled. A document that fails to load yields a *source.LoadError and
// leaves navigation disabled. In both cases any previous document is
// closed and the placeholder page is shown again.
//
// Open waits for an in-flight render to finish before swapping documents.
func (v *Viewer) Open(ctx context.Context, p Params) error {
	v.mu.Lock()
	v.params = p
	v.mu.Unlock()

	v.view.SetTitle(p.Title)
	if !v.state.Snapshot().Loaded {
		v.sched.exclusive(v.placeholder)
	}

	if p.File == "" {
		v.swap(nil)
		v.view.SetControls(DisabledControls(StatusNotFound))
		v.view.SetLoading(false)
		return nil
	}

	v.view.SetLoading(true)
	doc, err := v.src.Load(ctx, p.File)
	if err != nil {
		v.logger.Error("failed to load document", slog.String("file", p.File), slog.Any("err", err))
		v.swap(nil)
		v.view.SetControls(DisabledControls(StatusLoadFailed))
		v.view.SetLoading(false)
		var loadErr *source.LoadError
		if !errors.As(err, &loadErr) {
			err = &source.LoadError{URL: p.File, Err: err}
		}
		return err
	}

	v.swap(doc)
	v.logger.Info("document loaded", slog.String("file", p.File), slog.Int("pages", doc.PageCount()))

	v.view.SetControls(v.state.controls())
	if _, ok := v.sched.Submit(v.ctx, 1); !ok {
		v.view.SetLoading(false)
	}
	return nil
}

// swap installs doc, closes the previous document and shows the
// placeholder, all under the render latch.
func (v *Viewer) swap(doc source.Document) {
	v.sched.exclusive(func() {
		if prev := v.state.reset(doc); prev != nil && prev != doc {
			if err := prev.Close(); err != nil {
				v.logger.Warn("failed to close document", slog.Any("err", err))
			}
		}
		v.placeholder()
	})
}

// placeholder sizes the stage for the current page ratio and draws an empty
// page if nothing is shown yet. The caller holds the render latch.
func (v *Viewer) placeholder() {
	size := v.opts.Layout.ComputeSize(v.geom.Container(), v.state.aspectRatio())
	v.view.SetStageHeight(size.Height)
	if v.state.Snapshot().DisplayedPage == 0 {
		v.view.ShowFrame(v.surface.Placeholder(size.Width, size.Height, v.geom.PixelRatio()))
	}
}

// Wait blocks until no render is in flight.
func (v *Viewer) Wait() {
	for {
		t := v.sched.InFlight()
		if t == nil {
			return
		}
		<-t.Done()
	}
}

// Close cancels pending work and releases the document.
func (v *Viewer) Close() error {
	v.cancel()
	var err error
	v.sched.exclusive(func() {
		if doc := v.state.reset(nil); doc != nil {
			err = doc.Close()
		}
	})
	return err
}

// GoToPage moves delta pages.
func (v *Viewer) GoToPage(delta int) { v.nav.GoToPage(v.ctx, delta) }

// Prev goes to the previous page.
func (v *Viewer) Prev() { v.nav.Prev(v.ctx) }

// Next goes to the next page.
func (v *Viewer) Next() { v.nav.Next(v.ctx) }

// Click handles a click on the stage.
func (v *Viewer) Click(x, width float64) { v.nav.Click(v.ctx, x, width) }

// TouchStart records the start of a swipe.
func (v *Viewer) TouchStart(x float64) { v.nav.TouchStart(x) }

// TouchEnd completes a swipe.
func (v *Viewer) TouchEnd(x float64) { v.nav.TouchEnd(v.ctx, x) }

// Key handles a navigation key.
func (v *Viewer) Key(k Key) { v.nav.Key(v.ctx, k) }

// Resized re-renders after a container size change.
func (v *Viewer) Resized() { v.obs.Resized(v.ctx) }

// FullscreenChanged re-renders after entering or leaving fullscreen.
func (v *Viewer) FullscreenChanged() { v.obs.FullscreenChanged(v.ctx) }

// Layout returns the page size for the current container and page ratio.
func (v *Viewer) Layout() layout.Size {
	return v.opts.Layout.ComputeSize(v.geom.Container(), v.state.aspectRatio())
}
