package viewer

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// Params are the startup parameters of a viewer.
type Params struct {
	// File is the URL or path of the document. Empty means none.
	File string

	// Title is the display label.
	Title string
}

var pdfSuffix = regexp.MustCompile(`(?i)\.pdf$`)

// ParseQuery reads startup parameters from a query string. raw may be a bare
// query, a query with a leading '?', or a full URL. "pdf" is accepted in
// place of "file". Malformed pairs are skipped and logged at debug level;
// the well-formed ones are still used.
func ParseQuery(raw string) Params {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[i+1:]
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}

	q, err := url.ParseQuery(raw)
	if err != nil {
		slog.Debug("skipped malformed query parameters", slog.String("query", raw), slog.Any("err", err))
	}
	file := q.Get("file")
	if file == "" {
		file = q.Get("pdf")
	}
	return NewParams(file, q.Get("title"))
}

// NewParams decodes file and title and fills in the title from the file
// name when it is empty.
func NewParams(file, title string) Params {
	p := Params{File: SafeDecode(file)}

	if title == "" {
		title = file[strings.LastIndexByte(file, '/')+1:]
	}
	if title == "" {
		title = "Document"
	}
	p.Title = pdfSuffix.ReplaceAllString(SafeDecode(title), "")
	return p
}

// SafeDecode percent-decodes s, returning s unchanged if it is malformed.
func SafeDecode(s string) string {
	d, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return d
}
