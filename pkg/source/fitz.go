package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gen2brain/go-fitz"

	"folio/pkg/surface"
)

// Fitz is a Source backed by MuPDF through go-fitz.
type Fitz struct {
	client *http.Client
	logger *slog.Logger
}

// FitzOption configures a Fitz source.
type FitzOption func(*Fitz)

// WithHTTPClient sets the client used to fetch http and https URLs.
func WithHTTPClient(c *http.Client) FitzOption {
	return func(f *Fitz) {
		f.client = c
	}
}

// WithSourceLogger sets the logger.
func WithSourceLogger(l *slog.Logger) FitzOption {
	return func(f *Fitz) {
		f.logger = l
	}
}

// NewFitz creates a go-fitz backed source.
func NewFitz(opts ...FitzOption) *Fitz {
	f := &Fitz{
		client: http.DefaultClient,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load opens the document at url. Remote URLs are downloaded first.
func (f *Fitz) Load(ctx context.Context, url string) (Document, error) {
	var (
		doc *fitz.Document
		err error
	)

	if IsRemote(url) {
		var data []byte
		data, err = Fetch(ctx, f.client, url)
		if err != nil {
			return nil, &LoadError{URL: url, Err: err}
		}
		f.logger.Debug("fetched document", slog.String("url", url), slog.Int("bytes", len(data)))
		doc, err = fitz.NewFromMemory(data)
	} else {
		doc, err = fitz.New(LocalPath(url))
	}
	if err != nil {
		return nil, &LoadError{URL: url, Err: fmt.Errorf("failed to parse PDF: %w", err)}
	}

	count := doc.NumPage()
	if count < 1 {
		doc.Close()
		return nil, &LoadError{URL: url, Err: fmt.Errorf("document has no pages")}
	}

	return &fitzDocument{doc: doc, count: count}, nil
}

type fitzDocument struct {
	doc   *fitz.Document
	count int
}

func (d *fitzDocument) PageCount() int {
	return d.count
}

func (d *fitzDocument) Page(ctx context.Context, number int) (Page, error) {
	if err := CheckPage(number, d.count); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &PageFetchError{Page: number, Err: err}
	}

	// Bounds are reported in points.
	bounds, err := d.doc.Bound(number - 1)
	if err != nil {
		return nil, &PageFetchError{Page: number, Err: err}
	}

	size := Size{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}
	if size.AspectRatio() == 0 {
		size = SizeLetter
	}

	return &fitzPage{doc: d.doc, number: number, size: size}, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}

type fitzPage struct {
	doc    *fitz.Document
	number int
	size   Size
}

func (p *fitzPage) Number() int {
	return p.number
}

func (p *fitzPage) IntrinsicSize(scale float64) Size {
	return Size{Width: p.size.Width * scale, Height: p.size.Height * scale}
}

func (p *fitzPage) RenderInto(ctx context.Context, dst *surface.Surface, vp Viewport) error {
	if err := ctx.Err(); err != nil {
		return &RenderError{Page: p.number, Err: err}
	}

	img, err := p.doc.ImageDPI(p.number-1, vp.DPI())
	if err != nil {
		return &RenderError{Page: p.number, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return &RenderError{Page: p.number, Err: err}
	}

	if !dst.Draw(img) {
		return &RenderError{Page: p.number, Err: fmt.Errorf("surface not prepared")}
	}
	return nil
}
