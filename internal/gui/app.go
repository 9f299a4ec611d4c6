// Package gui hosts the page viewer in a native window using Fyne.
package gui

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fynelayout "fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"folio/pkg/layout"
	"folio/pkg/source"
	"folio/pkg/surface"
	"folio/pkg/viewer"
)

// frameInterval is how long fullscreen transitions are given to settle
// before the page is re-rendered.
const frameInterval = 16 * time.Millisecond

// App is the viewer window. It is the viewer's Geometry and Presenter.
type App struct {
	fyneApp fyne.App
	window  fyne.Window
	viewer  *viewer.Viewer

	// UI components
	stage    *Stage
	toolbar  *Toolbar
	progress *widget.ProgressBarInfinite

	buildOnce sync.Once
}

// Option configures an App.
type Option func(*appConfig)

type appConfig struct {
	fyneApp fyne.App
	logger  *slog.Logger
	opts    []viewer.Option
}

// WithFyneApp runs the window on an existing Fyne application.
func WithFyneApp(a fyne.App) Option {
	return func(c *appConfig) { c.fyneApp = a }
}

// WithLogger sets the logger for the window and its viewer.
func WithLogger(l *slog.Logger) Option {
	return func(c *appConfig) { c.logger = l }
}

// WithViewerOptions passes options through to the viewer.
func WithViewerOptions(opts ...viewer.Option) Option {
	return func(c *appConfig) { c.opts = append(c.opts, opts...) }
}

// NewApp creates a viewer window loading documents from src.
func NewApp(src source.Source, opts ...Option) *App {
	cfg := appConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.fyneApp == nil {
		cfg.fyneApp = app.New()
	}

	a := &App{fyneApp: cfg.fyneApp}

	a.fyneApp.Settings().SetTheme(theme.DarkTheme())
	a.window = a.fyneApp.NewWindow("Folio")
	a.window.Resize(fyne.NewSize(900, 700))

	vopts := []viewer.Option{
		viewer.WithLogger(cfg.logger),
		viewer.WithDefer(func(fn func()) { time.AfterFunc(frameInterval, fn) }),
	}
	a.viewer = viewer.New(src, a, a, append(vopts, cfg.opts...)...)

	return a
}

// Viewer returns the hosted viewer.
func (a *App) Viewer() *viewer.Viewer {
	return a.viewer
}

// Run opens p and runs the window until it is closed.
func (a *App) Run(p viewer.Params) {
	a.buildUI()

	// Load after the window is up so the first layout sees its real size.
	go a.Open(context.Background(), p)

	a.window.ShowAndRun()
	a.viewer.Close()
}

// Open loads p into the window, reporting load failures in a dialog.
func (a *App) Open(ctx context.Context, p viewer.Params) error {
	a.buildUI()
	err := a.viewer.Open(ctx, p)
	if err != nil {
		dialog.ShowError(err, a.window)
	}
	return err
}

// openFile shows a file dialog and loads the selected PDF.
func (a *App) openFile() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if reader == nil {
			return // Cancelled
		}
		defer reader.Close()

		go a.openURI(context.Background(), reader.URI())
	}, a.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".pdf", ".PDF"}))
	d.Show()
}

// openURI loads the document at uri, titled after its file name.
func (a *App) openURI(ctx context.Context, uri fyne.URI) error {
	return a.Open(ctx, viewer.NewParams(uri.Path(), ""))
}

// buildUI constructs the user interface.
func (a *App) buildUI() {
	a.buildOnce.Do(func() {
		a.stage = NewStage()
		a.stage.OnTap = a.viewer.Click
		a.stage.OnSwipeStart = a.viewer.TouchStart
		a.stage.OnSwipeEnd = a.viewer.TouchEnd

		a.toolbar = NewToolbar()
		a.toolbar.OnOpen = a.openFile
		a.toolbar.OnPrev = a.viewer.Prev
		a.toolbar.OnNext = a.viewer.Next
		a.toolbar.OnFullscreen = a.toggleFullscreen

		a.progress = widget.NewProgressBarInfinite()
		a.progress.Hide()

		content := container.NewBorder(
			container.NewPadded(a.toolbar.Container()), // Top
			a.progress,                                 // Bottom
			nil,                                        // Left
			nil,                                        // Right
			container.NewCenter(a.stage),               // Center
		)

		watch := &resizeLayout{inner: fynelayout.NewStackLayout(), onResize: a.viewer.Resized}
		a.window.SetContent(container.New(watch, content))

		a.window.Canvas().SetOnTypedKey(a.handleKey)
	})
}

// handleKey handles keyboard navigation.
func (a *App) handleKey(ev *fyne.KeyEvent) {
	switch ev.Name {
	case fyne.KeyF11:
		a.toggleFullscreen()
	case fyne.KeyEscape:
		if a.window.FullScreen() {
			a.toggleFullscreen()
		}
	default:
		if k := keyFor(ev.Name); k != viewer.KeyNone {
			a.viewer.Key(k)
		}
	}
}

func keyFor(name fyne.KeyName) viewer.Key {
	switch name {
	case fyne.KeyLeft, fyne.KeyUp, fyne.KeyPageUp:
		return viewer.KeyPrev
	case fyne.KeyRight, fyne.KeyDown, fyne.KeyPageDown, fyne.KeySpace:
		return viewer.KeyNext
	case fyne.KeyHome:
		return viewer.KeyFirst
	case fyne.KeyEnd:
		return viewer.KeyLast
	}
	return viewer.KeyNone
}

func (a *App) toggleFullscreen() {
	on := !a.window.FullScreen()
	a.window.SetFullScreen(on)
	a.toolbar.SetFullscreen(on)
	a.viewer.FullscreenChanged()
}

// Container implements viewer.Geometry.
func (a *App) Container() layout.Container {
	size := a.window.Canvas().Size()
	var chrome float32
	if a.toolbar != nil {
		chrome = a.toolbar.Container().MinSize().Height + 2*theme.Padding() + a.progress.MinSize().Height
	}
	return layout.Container{
		Width:          float64(size.Width),
		Height:         float64(size.Height),
		ViewportHeight: float64(size.Height),
		ChromeHeight:   float64(chrome),
		Fullscreen:     a.window.FullScreen(),
	}
}

// PixelRatio implements viewer.Geometry.
func (a *App) PixelRatio() float64 {
	if s := a.window.Canvas().Scale(); s > 0 {
		return float64(s)
	}
	return 1
}

// SetLoading implements viewer.Presenter.
func (a *App) SetLoading(loading bool) {
	if a.progress == nil {
		return
	}
	if loading {
		a.progress.Start()
		a.progress.Show()
	} else {
		a.progress.Stop()
		a.progress.Hide()
	}
}

// SetStageHeight implements viewer.Presenter.
func (a *App) SetStageHeight(h float64) {
	if a.stage != nil {
		a.stage.SetHeight(h)
	}
}

// SetControls implements viewer.Presenter.
func (a *App) SetControls(c viewer.Controls) {
	if a.toolbar != nil {
		a.toolbar.SetControls(c)
	}
}

// SetTitle implements viewer.Presenter.
func (a *App) SetTitle(title string) {
	a.window.SetTitle("Folio - " + title)
	if a.toolbar != nil {
		a.toolbar.SetTitle(title)
	}
}

// ShowFrame implements viewer.Presenter.
func (a *App) ShowFrame(f surface.Frame) {
	if a.stage != nil {
		a.stage.SetFrame(f)
	}
}

// resizeLayout lays out its objects with inner and reports size changes.
type resizeLayout struct {
	inner    fyne.Layout
	last     fyne.Size
	onResize func()
}

func (l *resizeLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	l.inner.Layout(objects, size)
	if size == l.last {
		return
	}
	l.last = size
	if l.onResize != nil {
		l.onResize()
	}
}

func (l *resizeLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	return l.inner.MinSize(objects)
}
