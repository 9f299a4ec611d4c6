package viewer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/pkg/layout"
	"folio/pkg/source"
	"folio/pkg/source/sourcetest"
	"folio/pkg/surface"
)

// recorder is a Presenter that keeps everything it is told.
type recorder struct {
	mu       sync.Mutex
	loading  []bool
	heights  []float64
	controls []Controls
	title    string
	frames   []surface.Frame
}

func (r *recorder) SetLoading(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = append(r.loading, v)
}

func (r *recorder) SetStageHeight(h float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heights = append(r.heights, h)
}

func (r *recorder) SetControls(c Controls) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls = append(r.controls, c)
}

func (r *recorder) SetTitle(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.title = title
}

func (r *recorder) ShowFrame(f surface.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recorder) lastControls() Controls {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.controls) == 0 {
		return Controls{}
	}
	return r.controls[len(r.controls)-1]
}

func (r *recorder) lastLoading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loading) > 0 && r.loading[len(r.loading)-1]
}

func (r *recorder) lastHeight() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.heights) == 0 {
		return -1
	}
	return r.heights[len(r.heights)-1]
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var testGeometry = StaticGeometry{
	Box:   layout.Container{Width: 604, Height: 1000, ChromeHeight: 40},
	Ratio: 2,
}

type harness struct {
	v   *Viewer
	rec *recorder
	src *sourcetest.Source
	doc *sourcetest.Document
}

func newHarness(t *testing.T, doc *sourcetest.Document, opts ...Option) *harness {
	t.Helper()
	src := sourcetest.New()
	src.Add("docs/Biology.pdf", doc)

	rec := &recorder{}
	v := New(src, testGeometry, rec, append([]Option{WithLogger(discard)}, opts...)...)
	t.Cleanup(func() { v.Close() })

	return &harness{v: v, rec: rec, src: src, doc: doc}
}

func (h *harness) open(t *testing.T) {
	t.Helper()
	require.NoError(t, h.v.Open(context.Background(), NewParams("docs/Biology.pdf", "")))
	h.v.Wait()
}

// goTo moves to page n one step at a time.
func (h *harness) goTo(t *testing.T, n int) {
	t.Helper()
	for h.v.State().CurrentPage != n {
		delta := 1
		if n < h.v.State().CurrentPage {
			delta = -1
		}
		task, ok := h.v.Navigator().GoToPage(context.Background(), delta)
		require.True(t, ok)
		_, err := task.Wait()
		require.NoError(t, err)
	}
}

func TestOpenRendersFirstPage(t *testing.T) {
	h := newHarness(t, sourcetest.NewDocument(10, source.SizeLetter))
	h.open(t)

	st := h.v.State()
	assert.Equal(t, 1, st.CurrentPage)
	assert.Equal(t, 1, st.DisplayedPage)
	assert.Equal(t, 10, st.PageCount)
	assert.False(t, st.Rendering)
	assert.InDelta(t, 792.0/612.0, st.AspectRatio, 1e-9)

	assert.Equal(t, Controls{PrevEnabled: false, NextEnabled: true, Status: "Page 1 of 10"}, h.rec.lastControls())
	assert.False(t, h.rec.lastLoading())
	assert.Equal(t, "Biology", h.rec.title)

	renders := h.doc.Renders()
	require.Len(t, renders, 1)
	assert.Equal(t, 1, renders[0].Page)

	// 604 wide leaves 600; the page is width bound at 600/612, doubled by
	// the pixel ratio.
	assert.InDelta(t, 600.0/612.0*2, renders[0].Viewport.Scale, 1e-9)

	frame := h.v.Surface().Frame()
	require.False(t, frame.Empty())
	assert.Equal(t, sourcetest.PageColor(1), frame.Image.RGBAAt(5, 5))
	assert.InDelta(t, 600, frame.Width, 1)
}

func TestStageHeightApplied(t *testing.T) {
	h := newHarness(t, sourcetest.NewDocument(2, source.Size{Width: 400, Height: 600}))
	h.open(t)

	// Available 600 wide, 1000-40-12-4 = 944 high; ratio 1.5 gives 600x900.
	assert.Equal(t, 900.0, h.rec.lastHeight())
	assert.Equal(t, 1.5, h.v.State().AspectRatio)
}

func TestScaleCap(t *testing.T) {
	src := sourcetest.New()
	doc := src.Add("big.pdf", sourcetest.NewDocument(1, source.Size{Width: 100, Height: 100}))

	geom := StaticGeometry{Box: layout.Container{Width: 5000, Height: 5000}, Ratio: 2}
	v := New(src, geom, NopPresenter{}, WithLogger(discard))
	defer v.Close()

	require.NoError(t, v.Open(context.Background(), NewParams("big.pdf", "")))
	v.Wait()

	renders := doc.Renders()
	require.Len(t, renders, 1)
	assert.Equal(t, DefaultScaleCap*2, renders[0].Viewport.Scale)
	assert.Equal(t, 500.0, renders[0].Viewport.Width)
}

func TestScaleCapOption(t *testing.T) {
	src := sourcetest.New()
	doc := src.Add("big.pdf", sourcetest.NewDocument(1, source.Size{Width: 100, Height: 100}))

	geom := StaticGeometry{Box: layout.Container{Width: 5000, Height: 5000}}
	v := New(src, geom, NopPresenter{}, WithLogger(discard), WithScaleCap(1.25))
	defer v.Close()

	require.NoError(t, v.Open(context.Background(), NewParams("big.pdf", "")))
	v.Wait()

	res, err := v.Scheduler().RenderPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, Rendered, res.Status)
	assert.Equal(t, 1.25, res.Scale)
	assert.Equal(t, 1.0, res.Request.PixelRatio)
	assert.Len(t, doc.Renders(), 2)
}

func TestPrevAtFirstPageIsNoop(t *testing.T) {
	h := newHarness(t, sourcetest.NewDocument(10, source.SizeLetter))
	h.open(t)

	task, ok := h.v.Navigator().Prev(context.Background())
	assert.False(t, ok)
	assert.Nil(t, task)

	assert.Equal(t, 1, h.v.State().CurrentPage)
	assert.False(t, h.rec.lastControls().PrevEnabled)
	assert.Len(t, h.doc.Renders(), 1)
}

func TestNextAtLastPageIsNoop(t *testing.T) {
	h := newHarness(t, sourcetest.NewDocument(3, source.SizeLetter))
	h.open(t)
	h.goTo(t, 3)

	_, ok := h.v.Navigator().Next(context.Background())
	assert.False(t, ok)
	assert.Equal(t, 3, h.v.State().CurrentPage)
	assert.Equal(t, Controls{PrevEnabled: true, NextEnabled: false, Status: "Page 3 of 3"}, h.rec.lastControls())
}

func TestSwipe(t *testing.T) {
	h := newHarness(t, sourcetest.NewDocument(10, source.SizeLetter))
	h.open(t)
	h.goTo(t, 5)

	nav := h.v.Navigator()
	nav.TouchStart(300)
	task, ok := nav.TouchEnd(context.Background(), 220)
	require.True(t, ok)
	_, err := task.Wait()
	require.NoError(t, err)
	assert.Equal(t, 6, h.v.State().CurrentPage)

	nav.TouchStart(100)
	task, ok = nav.TouchEnd(context.Background(), 200)
	require.True(t, ok)
	task.Wait()
	assert.Equal(t, 5, h.v.State().CurrentPage)

	// Short swipes and ends without a start do nothing.
	nav.TouchStart(100)
	_, ok = nav.TouchEnd(context.Background(), 140)
	assert.False(t, ok)
	_, ok = nav.TouchEnd(context.Background(), 0)
	assert.False(t, ok)
	assert.Equal(t, 5, h.v.State().CurrentPage)
}

func TestClickZones(t *testing.T) {
	h := newHarness(t, sourcetest.NewDocument(10, source.SizeLetter))
	h.open(t)
	h.goTo(t, 2)

	nav := h.v.Navigator()

	_, ok := nav.Click(context.Background(), 200, 400)
	assert.False(t, ok, "dead zone")

	task, ok := nav.Click(context.Background(), 150, 400)
	require.True(t, ok)
	task.Wait()
	assert.Equal(t, 1, h.v.State().CurrentPage)

	task, ok = nav.Click(context.Background(), 221, 400)
	require.True(t, ok)
	task.Wait()
	assert.Equal(t, 2, h.v.State().CurrentPage)
}

func TestClickDelta(t *testing.T) {
	assert.Equal(t, -1, ClickDelta(150, 400))
	assert.Equal(t, -1, ClickDelta(179.9, 400))
	assert.Equal(t, 0, ClickDelta(180, 400))
	assert.Equal(t, 0, ClickDelta(220, 400))
	assert.Equal(t, 1, ClickDelta(220.1, 400))
	assert.Equal(t, 0, ClickDelta(10, 0))
}

func TestSwipeDelta(t *testing.T) {
	assert.Equal(t, 1, SwipeDelta(-80))
	assert.Equal(t, -1, SwipeDelta(51))
	assert.Equal(t, 0, SwipeDelta(50))
	assert.Equal(t, 0, SwipeDelta(-50))
}

func TestKeys(t *testing.T) {
	h := newHarness(t, sourcetest.NewDocument(7, source.SizeLetter))
	h.open(t)
	nav := h.v.Navigator()

	task, ok := nav.Key(context.Background(), KeyLast)
	require.True(t, ok)
	task.Wait()
	assert.Equal(t, 7, h.v.State().CurrentPage)

	task, ok = nav.Key(context.Background(), KeyFirst)
	require.True(t, ok)
	task.Wait()
	assert.Equal(t, 1, h.v.State().CurrentPage)

	_, ok = nav.Key(context.Background(), KeyFirst)
	assert.False(t, ok)
	_, ok = nav.Key(context.Background(), KeyNone)
	assert.False(t, ok)
}

func TestGoToPageStaysInBounds(t *testing.T) {
	h := newHarness(t, sourcetest.NewDocument(4, source.SizeLetter))
	h.open(t)

	deltas := []int{-1, 1, 1, 5, 1, 1, -10, 1, -1, -1, -1, 3, 0, 2, -4}
	for _, d := range deltas {
		if task, ok := h.v.Navigator().GoToPage(context.Background(), d); ok {
			task.Wait()
		}
		st := h.v.State()
		require.GreaterOrEqual(t, st.CurrentPage, 1)
		require.LessOrEqual(t, st.CurrentPage, st.PageCount)
	}
}

func TestDropWhileRendering(t *testing.T) {
	doc := sourcetest.NewDocument(10, source.SizeLetter)
	doc.Hold()
	h := newHarness(t, doc)

	require.NoError(t, h.v.Open(context.Background(), NewParams("docs/Biology.pdf", "")))
	assert.Equal(t, 1, <-doc.Started())
	assert.True(t, h.v.State().Rendering)
	assert.True(t, h.v.Scheduler().Busy())

	// Navigation and direct requests are dropped while busy.
	_, ok := h.v.Navigator().Next(context.Background())
	assert.False(t, ok)
	_, ok = h.v.Navigator().Click(context.Background(), 390, 400)
	assert.False(t, ok)
	res, err := h.v.Scheduler().RenderPage(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, Dropped, res.Status)
	assert.Equal(t, 1, h.v.State().CurrentPage)

	// A dropped resize is re-evaluated once the render completes.
	_, ok = h.v.Observer().Resized(context.Background())
	assert.False(t, ok)
	_, ok = h.v.Observer().Resized(context.Background())
	assert.False(t, ok)

	doc.Release()
	assert.Equal(t, 1, <-doc.Started())
	doc.Release()
	h.v.Wait()

	renders := doc.Renders()
	require.Len(t, renders, 2)
	assert.Equal(t, 1, renders[1].Page)
	assert.Equal(t, 1, doc.PeakConcurrency())
	assert.Equal(t, 1, h.v.State().CurrentPage)
	assert.False(t, h.v.State().Rendering)
}

func TestRenderFailureKeepsFrame(t *testing.T) {
	doc := sourcetest.NewDocument(5, source.SizeLetter)
	doc.FailRender(2, errors.New("corrupt stream"))
	h := newHarness(t, doc)
	h.open(t)

	before := h.v.Surface().Frame()
	task, ok := h.v.Navigator().Next(context.Background())
	require.True(t, ok)

	res, err := task.Wait()
	var renderErr *source.RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, 2, renderErr.Page)
	assert.Equal(t, Failed, res.Status)

	st := h.v.State()
	assert.Equal(t, 1, st.CurrentPage)
	assert.Equal(t, 1, st.DisplayedPage)
	assert.False(t, st.Rendering)
	assert.False(t, h.rec.lastLoading())
	assert.Same(t, before.Image, h.v.Surface().Frame().Image)
	assert.False(t, h.rec.lastControls().PrevEnabled)

	// Navigating again retries.
	_, ok = h.v.Navigator().Next(context.Background())
	assert.True(t, ok)
}

func TestPageFetchFailure(t *testing.T) {
	doc := sourcetest.NewDocument(5, source.SizeLetter)
	doc.FailFetch(2, errors.New("missing object"))
	h := newHarness(t, doc)
	h.open(t)

	task, ok := h.v.Navigator().Next(context.Background())
	require.True(t, ok)
	_, err := task.Wait()

	var fetchErr *source.PageFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 1, h.v.State().CurrentPage)
	assert.Len(t, doc.Renders(), 1)
}

func TestOpenWithoutFile(t *testing.T) {
	h := newHarness(t, sourcetest.NewDocument(3, source.SizeLetter))

	require.NoError(t, h.v.Open(context.Background(), ParseQuery("")))
	h.v.Wait()

	assert.Equal(t, Controls{Status: StatusNotFound}, h.rec.lastControls())
	assert.False(t, h.rec.lastLoading())
	assert.Empty(t, h.doc.Renders())
	assert.False(t, h.v.State().Loaded)

	h.v.Next()
	h.v.Resized()
	h.v.FullscreenChanged()
	h.v.Wait()
	assert.Empty(t, h.doc.Renders())

	// The stage is sized for the placeholder ratio.
	assert.Equal(t, 810.0, h.rec.lastHeight())
}

func TestOpenLoadError(t *testing.T) {
	h := newHarness(t, sourcetest.NewDocument(3, source.SizeLetter))
	h.src.Fail("broken.pdf", errors.New("not a PDF"))

	err := h.v.Open(context.Background(), NewParams("broken.pdf", ""))
	var loadErr *source.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "broken.pdf", loadErr.URL)

	assert.Equal(t, Controls{Status: StatusLoadFailed}, h.rec.lastControls())
	assert.False(t, h.rec.lastLoading())
	assert.False(t, h.v.State().Loaded)
}

func TestOpenReplacesDocument(t *testing.T) {
	h := newHarness(t, sourcetest.NewDocument(3, source.SizeLetter))
	h.open(t)
	h.goTo(t, 2)

	next := h.src.Add("second.pdf", sourcetest.NewDocument(8, source.SizeA4))
	require.NoError(t, h.v.Open(context.Background(), NewParams("second.pdf", "Second")))
	h.v.Wait()

	assert.True(t, h.doc.Closed())
	assert.False(t, next.Closed())
	st := h.v.State()
	assert.Equal(t, 1, st.CurrentPage)
	assert.Equal(t, 8, st.PageCount)
	assert.Equal(t, "Second", h.rec.title)
}

func TestFailedOpenReleasesDocument(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		status string
	}{
		{"load error", NewParams("broken.pdf", ""), StatusLoadFailed},
		{"no file", ParseQuery(""), StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, sourcetest.NewDocument(10, source.SizeLetter))
			h.src.Fail("broken.pdf", errors.New("not a PDF"))
			h.open(t)
			h.goTo(t, 3)
			renders := len(h.doc.Renders())

			h.v.Open(context.Background(), tt.params)
			h.v.Wait()

			assert.True(t, h.doc.Closed())
			st := h.v.State()
			assert.False(t, st.Loaded)
			assert.Equal(t, 0, st.CurrentPage)
			assert.Equal(t, 0, st.DisplayedPage)

			// The stage shows the empty page again.
			frame := h.v.Surface().Frame()
			require.False(t, frame.Empty())
			assert.NotEqual(t, sourcetest.PageColor(3), frame.Image.RGBAAt(10, 10))

			h.v.Resized()
			h.v.Next()
			h.v.Prev()
			h.v.Click(590, 600)
			h.v.Key(KeyLast)
			h.v.FullscreenChanged()
			h.v.Wait()

			assert.Len(t, h.doc.Renders(), renders)
			assert.Equal(t, DisabledControls(tt.status), h.rec.lastControls())
		})
	}
}

func TestOpenWaitsForInFlightRender(t *testing.T) {
	doc := sourcetest.NewDocument(3, source.SizeLetter)
	doc.Hold()
	h := newHarness(t, doc)
	next := h.src.Add("second.pdf", sourcetest.NewDocument(5, source.SizeLetter))

	require.NoError(t, h.v.Open(context.Background(), NewParams("docs/Biology.pdf", "")))
	<-doc.Started()

	done := make(chan error, 1)
	go func() {
		done <- h.v.Open(context.Background(), NewParams("second.pdf", ""))
	}()

	assert.Never(t, doc.Closed, 50*time.Millisecond, 5*time.Millisecond,
		"document closed while its page was rendering")

	doc.Release()
	require.NoError(t, <-done)
	h.v.Wait()

	assert.True(t, doc.Closed())
	assert.Len(t, next.Renders(), 1)
	assert.Equal(t, 5, h.v.State().PageCount)
	assert.Equal(t, 1, h.v.State().DisplayedPage)
}

func TestFullscreenDefersRender(t *testing.T) {
	var (
		mu       sync.Mutex
		deferred []func()
	)
	deferFn := func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		deferred = append(deferred, fn)
	}

	h := newHarness(t, sourcetest.NewDocument(3, source.SizeLetter), WithDefer(deferFn))
	h.open(t)

	h.v.FullscreenChanged()
	assert.Equal(t, 0.0, h.rec.lastHeight(), "stage height cleared first")
	assert.Len(t, h.doc.Renders(), 1, "render waits for the next tick")

	mu.Lock()
	require.Len(t, deferred, 1)
	fn := deferred[0]
	mu.Unlock()

	fn()
	h.v.Wait()
	assert.Len(t, h.doc.Renders(), 2)
	assert.Greater(t, h.rec.lastHeight(), 0.0)
}

func TestCloseReleasesDocument(t *testing.T) {
	h := newHarness(t, sourcetest.NewDocument(3, source.SizeLetter))
	h.open(t)

	require.NoError(t, h.v.Close())
	assert.True(t, h.doc.Closed())
	assert.False(t, h.v.State().Loaded)
}

func TestCloseCancelsHeldRender(t *testing.T) {
	doc := sourcetest.NewDocument(3, source.SizeLetter)
	doc.Hold()
	h := newHarness(t, doc)

	require.NoError(t, h.v.Open(context.Background(), NewParams("docs/Biology.pdf", "")))
	<-doc.Started()

	require.NoError(t, h.v.Close())
	assert.False(t, h.v.Scheduler().Busy())
	assert.Equal(t, 0, h.v.State().DisplayedPage)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "rendered", Rendered.String())
	assert.Equal(t, "dropped", Dropped.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}

func TestConcurrentNavigation(t *testing.T) {
	h := newHarness(t, sourcetest.NewDocument(50, source.SizeLetter))
	h.open(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if i%2 == 0 {
					h.v.Next()
				} else {
					h.v.Resized()
				}
			}
		}(i)
	}
	wg.Wait()
	h.v.Wait()

	st := h.v.State()
	assert.Equal(t, 1, h.doc.PeakConcurrency())
	assert.GreaterOrEqual(t, st.CurrentPage, 1)
	assert.LessOrEqual(t, st.CurrentPage, 50)
	assert.Equal(t, st.CurrentPage, st.DisplayedPage)
	assert.False(t, st.Rendering)
}
