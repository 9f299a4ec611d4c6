package cli

import (
	"fmt"
	"io"
	"sync"

	"folio/pkg/surface"
	"folio/pkg/viewer"
)

// progress is a viewer.Presenter that reports status lines. On a terminal
// the line is redrawn in place; otherwise each status is printed once.
type progress struct {
	mu    sync.Mutex
	w     io.Writer
	tty   bool
	title string
	last  string
	open  bool
}

func newProgress(w io.Writer) *progress {
	return &progress{w: w, tty: isTerminal(w)}
}

func (p *progress) SetLoading(loading bool) {
	if loading {
		p.status(viewer.StatusLoading)
	}
}

func (p *progress) SetStageHeight(float64) {}

func (p *progress) SetControls(c viewer.Controls) {
	p.status(c.Status)
}

func (p *progress) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.title = title
}

func (p *progress) ShowFrame(surface.Frame) {}

func (p *progress) status(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s == "" || s == p.last {
		return
	}
	p.last = s

	line := s
	if p.title != "" {
		line = p.title + ": " + s
	}
	if p.tty {
		fmt.Fprintf(p.w, "\r\033[K%s", line)
		p.open = true
		return
	}
	if s != viewer.StatusLoading {
		fmt.Fprintln(p.w, line)
	}
}

// done ends an in-place status line.
func (p *progress) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open {
		fmt.Fprintln(p.w)
		p.open = false
	}
}
