package viewer

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Observer re-renders the current page when the container is resized or the
// fullscreen state changes.
type Observer struct {
	state   *State
	sched   *Scheduler
	view    Presenter
	deferFn func(func())
	logger  *slog.Logger

	// pending is set when a resize was dropped by a busy scheduler; the
	// current page is rendered once more after that render completes.
	pending atomic.Bool
	ctx     atomic.Pointer[context.Context]
}

func newObserver(state *State, sched *Scheduler, view Presenter, opts Options) *Observer {
	o := &Observer{
		state:   state,
		sched:   sched,
		view:    view,
		deferFn: opts.Defer,
		logger:  opts.Logger.With(slog.String("component", "observer")),
	}
	sched.OnSettled(o.settled)
	return o
}

// Resized renders the current page for the new container size.
func (o *Observer) Resized(ctx context.Context) (*Task, bool) {
	doc, page := o.state.document()
	if doc == nil {
		return nil, false
	}

	t, ok := o.sched.submit(ctx, o.state.currentPage)
	if !ok {
		o.ctx.Store(&ctx)
		o.pending.Store(true)
		o.logger.Debug("resize deferred until render completes", slog.Int("page", page))
	}
	return t, ok
}

// FullscreenChanged clears the stage height and, one tick later, renders
// the current page against the new viewport.
func (o *Observer) FullscreenChanged(ctx context.Context) {
	if doc, _ := o.state.document(); doc == nil {
		return
	}
	o.view.SetStageHeight(0)
	o.deferFn(func() {
		o.Resized(ctx)
	})
}

func (o *Observer) settled(Result, error) {
	if !o.pending.Swap(false) {
		return
	}
	ctx := context.Background()
	if p := o.ctx.Load(); p != nil {
		ctx = *p
	}
	if ctx.Err() != nil {
		return
	}
	o.Resized(ctx)
}
