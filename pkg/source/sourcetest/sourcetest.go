// Package sourcetest provides an in-memory document source for tests.
package sourcetest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"folio/pkg/source"
	"folio/pkg/surface"
)

// ErrNotFound is returned by Load for unknown URLs.
var ErrNotFound = errors.New("document not found")

// Source serves documents registered by URL.
type Source struct {
	mu   sync.Mutex
	docs map[string]*Document
	errs map[string]error
}

// New creates an empty source.
func New() *Source {
	return &Source{
		docs: make(map[string]*Document),
		errs: make(map[string]error),
	}
}

// Add registers a document under url and returns it.
func (s *Source) Add(url string, doc *Document) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[url] = doc
	return doc
}

// Fail makes loading url fail with err.
func (s *Source) Fail(url string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[url] = err
}

// Load implements source.Source.
func (s *Source) Load(ctx context.Context, url string) (source.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &source.LoadError{URL: url, Err: err}
	}
	if err, ok := s.errs[url]; ok {
		return nil, &source.LoadError{URL: url, Err: err}
	}
	doc, ok := s.docs[url]
	if !ok {
		return nil, &source.LoadError{URL: url, Err: ErrNotFound}
	}
	return doc, nil
}

// Render records one rasterization.
type Render struct {
	Page     int
	Viewport source.Viewport
}

// Document is an in-memory document whose pages render as solid colors.
type Document struct {
	mu sync.Mutex

	sizes     []source.Size
	fetchErrs map[int]error
	renderErr map[int]error
	renders   []Render
	closed    bool
	active    int
	peak      int

	// gate, when set, holds each render until a value is received.
	gate chan struct{}

	// started receives the page number each time a render begins.
	started chan int
}

// NewDocument creates a document of count pages of the given size.
func NewDocument(count int, size source.Size) *Document {
	sizes := make([]source.Size, count)
	for i := range sizes {
		sizes[i] = size
	}
	return WithSizes(sizes...)
}

// WithSizes creates a document with one page per size.
func WithSizes(sizes ...source.Size) *Document {
	return &Document{
		sizes:     sizes,
		fetchErrs: make(map[int]error),
		renderErr: make(map[int]error),
		started:   make(chan int, 64),
	}
}

// FailFetch makes Page fail for the given page.
func (d *Document) FailFetch(page int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fetchErrs[page] = err
}

// FailRender makes RenderInto fail for the given page.
func (d *Document) FailRender(page int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.renderErr[page] = err
}

// Hold makes every render block until Release is called once per render.
func (d *Document) Hold() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gate = make(chan struct{})
}

// Release lets one held render continue.
func (d *Document) Release() {
	d.mu.Lock()
	gate := d.gate
	d.mu.Unlock()
	if gate != nil {
		gate <- struct{}{}
	}
}

// Started returns a channel receiving the page number of each render as it
// begins.
func (d *Document) Started() <-chan int {
	return d.started
}

// Renders returns the completed and in-flight renders in order.
func (d *Document) Renders() []Render {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Render, len(d.renders))
	copy(out, d.renders)
	return out
}

// PeakConcurrency returns the largest number of renders that ran at once.
func (d *Document) PeakConcurrency() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.peak
}

// Closed reports whether Close was called.
func (d *Document) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// PageCount implements source.Document.
func (d *Document) PageCount() int {
	return len(d.sizes)
}

// Page implements source.Document.
func (d *Document) Page(ctx context.Context, number int) (source.Page, error) {
	if err := source.CheckPage(number, len(d.sizes)); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.fetchErrs[number]; ok {
		return nil, &source.PageFetchError{Page: number, Err: err}
	}
	return &page{doc: d, number: number, size: d.sizes[number-1]}, nil
}

// Close implements source.Document.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

type page struct {
	doc    *Document
	number int
	size   source.Size
}

func (p *page) Number() int {
	return p.number
}

func (p *page) IntrinsicSize(scale float64) source.Size {
	return source.Size{Width: p.size.Width * scale, Height: p.size.Height * scale}
}

func (p *page) RenderInto(ctx context.Context, dst *surface.Surface, vp source.Viewport) error {
	d := p.doc

	d.mu.Lock()
	d.renders = append(d.renders, Render{Page: p.number, Viewport: vp})
	d.active++
	if d.active > d.peak {
		d.peak = d.active
	}
	gate := d.gate
	renderErr := d.renderErr[p.number]
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.active--
		d.mu.Unlock()
	}()

	select {
	case d.started <- p.number:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return &source.RenderError{Page: p.number, Err: ctx.Err()}
		}
	}

	if renderErr != nil {
		return &source.RenderError{Page: p.number, Err: renderErr}
	}

	w, h := vp.Pixels()
	if w < 1 || h < 1 {
		return &source.RenderError{Page: p.number, Err: fmt.Errorf("empty viewport %dx%d", w, h)}
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{PageColor(p.number)}, image.Point{}, draw.Src)
	dst.Draw(img)
	return nil
}

// PageColor returns the solid color page n renders as.
func PageColor(n int) color.RGBA {
	return color.RGBA{R: uint8(n * 17), G: uint8(255 - n*13), B: uint8(n * 29), A: 0xff}
}
