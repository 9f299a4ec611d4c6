package viewer

import (
	"log/slog"

	"folio/pkg/layout"
)

// DefaultScaleCap bounds the render scale before the pixel ratio is applied,
// so very large containers do not oversample without limit.
const DefaultScaleCap = 2.5

// Options configures a viewer.
type Options struct {
	// Layout selects the fit-to-viewport formula.
	// Default: layout.Canvas()
	Layout layout.Config

	// ScaleCap is the maximum page scale.
	// Default: 2.5
	ScaleCap float64

	// Logger receives diagnostics.
	// Default: slog.Default()
	Logger *slog.Logger

	// Defer runs fn after the host has settled, one scheduling tick later.
	// Default: run fn on a new goroutine
	Defer func(fn func())
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Layout:   layout.Canvas(),
		ScaleCap: DefaultScaleCap,
		Logger:   slog.Default(),
		Defer:    func(fn func()) { go fn() },
	}
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// WithLayout sets the layout configuration.
func WithLayout(cfg layout.Config) Option {
	return func(o *Options) {
		o.Layout = cfg
	}
}

// WithScaleCap sets the maximum page scale.
func WithScaleCap(limit float64) Option {
	return func(o *Options) {
		if limit > 0 {
			o.ScaleCap = limit
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithDefer sets the deferral used to let fullscreen geometry settle.
func WithDefer(fn func(func())) Option {
	return func(o *Options) {
		if fn != nil {
			o.Defer = fn
		}
	}
}

// NewOptions creates options from functional options.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
