package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"folio/pkg/source"
	"folio/pkg/surface"
)

// latch is a single-slot request latch. A request either takes the empty
// slot or is discarded; it is never queued.
type latch struct {
	held atomic.Bool
}

func (l *latch) acquire() bool { return l.held.CompareAndSwap(false, true) }
func (l *latch) release()      { l.held.Store(false) }
func (l *latch) busy() bool    { return l.held.Load() }

// Status is the outcome of a render request.
type Status int

const (
	// Rendered means the page was rasterized and presented.
	Rendered Status = iota + 1

	// Dropped means the request was discarded because no document was
	// loaded or another render was in flight.
	Dropped

	// Failed means the page could not be fetched or rasterized. The previous
	// frame stays visible.
	Failed
)

func (s Status) String() string {
	switch s {
	case Rendered:
		return "rendered"
	case Dropped:
		return "dropped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// PageRequest is the target of one render.
type PageRequest struct {
	Page         int
	TargetWidth  float64
	TargetHeight float64
	PixelRatio   float64
}

// Result describes a finished render request.
type Result struct {
	Page    int
	Status  Status
	Request PageRequest

	// Scale is the raster scale, including the pixel ratio.
	Scale float64

	// Frame is the presented frame of a successful render.
	Frame surface.Frame
}

// Task is an accepted render request.
type Task struct {
	page int
	done chan struct{}
	res  Result
	err  error
}

// Page returns the page being rendered.
func (t *Task) Page() int { return t.page }

// Done is closed when the render has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the render finishes and returns its result.
func (t *Task) Wait() (Result, error) {
	<-t.done
	return t.res, t.err
}

// Scheduler serializes page renders so at most one rasterization is in
// flight. Requests arriving while one is running are dropped; callers
// re-evaluate their trigger instead.
type Scheduler struct {
	state   *State
	geom    Geometry
	view    Presenter
	surface *surface.Surface
	opts    Options
	logger  *slog.Logger

	latch latch

	mu    sync.Mutex
	task  *Task
	hooks []func(Result, error)
}

func newScheduler(state *State, geom Geometry, view Presenter, surf *surface.Surface, opts Options) *Scheduler {
	return &Scheduler{
		state:   state,
		geom:    geom,
		view:    view,
		surface: surf,
		opts:    opts,
		logger:  opts.Logger.With(slog.String("component", "scheduler")),
	}
}

// Busy reports whether a render is in flight.
func (s *Scheduler) Busy() bool {
	return s.latch.busy()
}

// InFlight returns the running task, or nil.
func (s *Scheduler) InFlight() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

// OnSettled registers fn to run after every render, once the latch is free
// again.
func (s *Scheduler) OnSettled(fn func(Result, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Submit starts rendering page unless no document is loaded or a render is
// already in flight.
func (s *Scheduler) Submit(ctx context.Context, page int) (*Task, bool) {
	return s.submit(ctx, func() (int, bool) { return page, true })
}

// RenderPage renders page and waits for the result. A dropped request
// returns a Dropped result and no error.
func (s *Scheduler) RenderPage(ctx context.Context, page int) (Result, error) {
	t, ok := s.Submit(ctx, page)
	if !ok {
		return Result{Page: page, Status: Dropped}, nil
	}
	return t.Wait()
}

// submit takes the latch and starts the render. pick runs while the latch is
// held and a document is loaded; it chooses the page and may commit state
// for it. A pick that reports false releases the latch without rendering.
func (s *Scheduler) submit(ctx context.Context, pick func() (int, bool)) (*Task, bool) {
	if !s.latch.acquire() {
		s.logger.Debug("render dropped: busy")
		return nil, false
	}

	doc, _ := s.state.document()
	if doc == nil {
		s.latch.release()
		s.logger.Debug("render dropped: no document")
		return nil, false
	}
	page, ok := pick()
	if !ok {
		s.latch.release()
		return nil, false
	}

	t := &Task{page: page, done: make(chan struct{})}
	s.mu.Lock()
	s.task = t
	s.mu.Unlock()

	s.state.setRendering(true)
	s.view.SetLoading(true)

	go s.run(ctx, doc, t)
	return t, true
}

// exclusive runs fn with the latch held, after any in-flight render and its
// settle hooks have finished. Renders requested while fn runs are dropped.
func (s *Scheduler) exclusive(fn func()) {
	for !s.latch.acquire() {
		if t := s.InFlight(); t != nil {
			<-t.Done()
		} else {
			runtime.Gosched()
		}
	}
	defer s.latch.release()
	fn()
}

func (s *Scheduler) run(ctx context.Context, doc source.Document, t *Task) {
	res, err := s.render(ctx, doc, t.page)
	if err != nil {
		s.surface.Discard()
		res.Status = Failed
		s.logger.Warn("render failed", slog.Int("page", t.page), slog.Any("err", err))
	} else {
		frame, _ := s.surface.Present()
		res.Status = Rendered
		res.Frame = frame
		s.view.ShowFrame(frame)
	}

	controls := s.state.finish(t.page, err == nil)
	s.view.SetLoading(false)
	s.view.SetControls(controls)

	t.res, t.err = res, err

	s.mu.Lock()
	hooks := slices.Clone(s.hooks)
	s.mu.Unlock()

	s.latch.release()
	for _, fn := range hooks {
		fn(res, err)
	}

	// t stays in flight until its hooks have run, so waiters also see any
	// render a hook started.
	s.mu.Lock()
	if s.task == t {
		s.task = nil
	}
	s.mu.Unlock()
	close(t.done)
}

// render lays out and rasterizes one page into the surface's back buffer.
func (s *Scheduler) render(ctx context.Context, doc source.Document, page int) (Result, error) {
	res := Result{Page: page}

	p, err := doc.Page(ctx, page)
	if err != nil {
		var fetchErr *source.PageFetchError
		if !errors.As(err, &fetchErr) {
			err = &source.PageFetchError{Page: page, Err: err}
		}
		return res, err
	}

	base := p.IntrinsicSize(1)
	ratio := base.AspectRatio()
	if ratio == 0 {
		return res, &source.PageFetchError{Page: page, Err: fmt.Errorf("page has no size")}
	}
	s.state.setRatio(ratio)

	size := s.opts.Layout.ComputeSize(s.geom.Container(), ratio)
	s.view.SetStageHeight(size.Height)

	dpr := s.geom.PixelRatio()
	if dpr <= 0 {
		dpr = 1
	}
	scale := math.Min(size.Width/base.Width, s.opts.ScaleCap)
	vp := source.ViewportAt(p, scale*dpr)

	res.Request = PageRequest{
		Page:         page,
		TargetWidth:  size.Width,
		TargetHeight: size.Height,
		PixelRatio:   dpr,
	}
	res.Scale = vp.Scale

	w, h := vp.Pixels()
	s.surface.Prepare(w, h, dpr)

	if err := p.RenderInto(ctx, s.surface, vp); err != nil {
		var renderErr *source.RenderError
		if !errors.As(err, &renderErr) {
			err = &source.RenderError{Page: page, Err: err}
		}
		return res, err
	}
	return res, nil
}
