package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsUnwrap(t *testing.T) {
	cause := io.ErrUnexpectedEOF

	var loadErr *LoadError
	err := fmt.Errorf("open: %w", &LoadError{URL: "a.pdf", Err: cause})
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "a.pdf", loadErr.URL)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to load a.pdf")

	var fetchErr *PageFetchError
	require.True(t, errors.As(&PageFetchError{Page: 3, Err: cause}, &fetchErr))
	assert.Equal(t, 3, fetchErr.Page)

	var renderErr *RenderError
	err = &RenderError{Page: 2, Err: cause}
	require.True(t, errors.As(err, &renderErr))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to render page 2: unexpected EOF", err.Error())
}

func TestCheckPage(t *testing.T) {
	assert.NoError(t, CheckPage(1, 1))
	assert.NoError(t, CheckPage(10, 10))

	var fetchErr *PageFetchError
	assert.True(t, errors.As(CheckPage(0, 10), &fetchErr))
	assert.True(t, errors.As(CheckPage(11, 10), &fetchErr))
	assert.Equal(t, 11, fetchErr.Page)
}

func TestSize(t *testing.T) {
	assert.InDelta(t, 792.0/612.0, SizeLetter.AspectRatio(), 1e-9)
	assert.Zero(t, Size{Width: 0, Height: 10}.AspectRatio())
}

func TestViewport(t *testing.T) {
	vp := Viewport{Scale: 2, Width: 1224.9, Height: 1584.2}
	w, h := vp.Pixels()
	assert.Equal(t, 1224, w)
	assert.Equal(t, 1584, h)
	assert.Equal(t, 144.0, vp.DPI())
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/a.pdf"))
	assert.True(t, IsRemote("HTTP://example.com/a.pdf"))
	assert.False(t, IsRemote("/pdfs/a.pdf"))
	assert.False(t, IsRemote("file:///tmp/a.pdf"))
}

func TestLocalPath(t *testing.T) {
	assert.Equal(t, "/tmp/a b.pdf", LocalPath("file:///tmp/a%20b.pdf"))
	assert.Equal(t, "docs/a.pdf", LocalPath("docs/a.pdf"))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	data, err := Fetch(context.Background(), srv.Client(), srv.URL+"/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	_, err = Fetch(context.Background(), srv.Client(), srv.URL+"/missing.pdf")
	assert.ErrorContains(t, err, "404")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Fetch(ctx, srv.Client(), srv.URL+"/a.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}
