package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"folio/pkg/viewer"
)

// Toolbar provides the open, navigation and fullscreen controls.
type Toolbar struct {
	container *fyne.Container

	// Callbacks
	OnOpen       func()
	OnPrev       func()
	OnNext       func()
	OnFullscreen func()

	// Components
	title   *widget.Label
	status  *widget.Label
	openBtn *widget.Button
	prevBtn *widget.Button
	nextBtn *widget.Button
	fullBtn *widget.Button
}

// NewToolbar creates a new toolbar with navigation disabled.
func NewToolbar() *Toolbar {
	t := &Toolbar{}
	t.build()
	return t
}

func (t *Toolbar) build() {
	t.openBtn = widget.NewButtonWithIcon("Open", theme.FolderOpenIcon(), func() {
		if t.OnOpen != nil {
			t.OnOpen()
		}
	})

	t.prevBtn = widget.NewButtonWithIcon("", theme.NavigateBackIcon(), func() {
		if t.OnPrev != nil {
			t.OnPrev()
		}
	})
	t.prevBtn.Disable()

	t.nextBtn = widget.NewButtonWithIcon("", theme.NavigateNextIcon(), func() {
		if t.OnNext != nil {
			t.OnNext()
		}
	})
	t.nextBtn.Disable()

	t.fullBtn = widget.NewButtonWithIcon("", theme.ViewFullScreenIcon(), func() {
		if t.OnFullscreen != nil {
			t.OnFullscreen()
		}
	})

	t.title = widget.NewLabel("")
	t.title.TextStyle = fyne.TextStyle{Bold: true}

	t.status = widget.NewLabel(viewer.StatusLoading)
	t.status.Alignment = fyne.TextAlignCenter

	t.container = container.NewBorder(nil, nil,
		container.NewHBox(t.openBtn, widget.NewSeparator(), t.title),
		t.fullBtn,
		container.NewCenter(container.NewHBox(t.prevBtn, t.status, t.nextBtn)),
	)
}

// Container returns the toolbar container.
func (t *Toolbar) Container() *fyne.Container {
	return t.container
}

// SetControls updates the buttons and the page counter.
func (t *Toolbar) SetControls(c viewer.Controls) {
	t.status.SetText(c.Status)
	setEnabled(t.prevBtn, c.PrevEnabled)
	setEnabled(t.nextBtn, c.NextEnabled)
}

// SetTitle sets the document label.
func (t *Toolbar) SetTitle(title string) {
	t.title.SetText(title)
}

// SetFullscreen switches the fullscreen button icon.
func (t *Toolbar) SetFullscreen(on bool) {
	if on {
		t.fullBtn.SetIcon(theme.ViewRestoreIcon())
	} else {
		t.fullBtn.SetIcon(theme.ViewFullScreenIcon())
	}
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}
