package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Info is document metadata read without rasterizing.
type Info struct {
	PageCount int

	// Pages holds the media box size of every page in points.
	Pages []Size
}

// First returns the size of the first page.
func (i Info) First() (Size, bool) {
	if len(i.Pages) == 0 {
		return Size{}, false
	}
	return i.Pages[0], true
}

var configOnce sync.Once

func inspectConfig() *model.Configuration {
	// Keep pdfcpu from writing a configuration directory.
	configOnce.Do(func() {
		model.ConfigPath = "disable"
	})
	return model.NewDefaultConfiguration()
}

// Inspect reads the page count and page sizes of a document with pdfcpu.
func Inspect(rs io.ReadSeeker) (Info, error) {
	conf := inspectConfig()

	count, err := api.PageCount(rs, conf)
	if err != nil {
		return Info{}, fmt.Errorf("failed to get page count: %w", err)
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Info{}, fmt.Errorf("failed to rewind document: %w", err)
	}

	dims, err := api.PageDims(rs, conf)
	if err != nil {
		return Info{}, fmt.Errorf("failed to get page dimensions: %w", err)
	}

	info := Info{PageCount: count, Pages: make([]Size, 0, len(dims))}
	for _, d := range dims {
		info.Pages = append(info.Pages, Size{Width: d.Width, Height: d.Height})
	}
	return info, nil
}

// InspectURL inspects a local or remote document.
func InspectURL(ctx context.Context, client *http.Client, url string) (Info, error) {
	if IsRemote(url) {
		data, err := Fetch(ctx, client, url)
		if err != nil {
			return Info{}, &LoadError{URL: url, Err: err}
		}
		info, err := Inspect(bytes.NewReader(data))
		if err != nil {
			return Info{}, &LoadError{URL: url, Err: err}
		}
		return info, nil
	}

	f, err := os.Open(LocalPath(url))
	if err != nil {
		return Info{}, &LoadError{URL: url, Err: fmt.Errorf("failed to read file: %w", err)}
	}
	defer f.Close()

	info, err := Inspect(f)
	if err != nil {
		return Info{}, &LoadError{URL: url, Err: err}
	}
	return info, nil
}
