package redline

import (
	"io"
	"log/slog"

	"github.com/codalotl/redline/internal/document"
)

// Options configures Apply and the functions built on it. The zero value is ready to use.
type Options struct {
	EqualSearch  *document.SearchOptions // how EQUAL anchors are located; nil means document.Lenient
	DeleteSearch *document.SearchOptions // how DELETE targets are located; nil means document.Strict
	Logger       *slog.Logger            // nil discards logs
	Metrics      *Metrics                // nil disables metrics
}

func (o Options) equalSearch() document.SearchOptions {
	if o.EqualSearch != nil {
		return *o.EqualSearch
	}
	return document.Lenient
}

func (o Options) deleteSearch() document.SearchOptions {
	if o.DeleteSearch != nil {
		return *o.DeleteSearch
	}
	return document.Strict
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return discardLogger
}

// SearchMode parses a search mode name: "strict", "lenient", "strict-nocase", or "lenient-nocase".
func SearchMode(name string) (document.SearchOptions, bool) {
	switch name {
	case "strict":
		return document.Strict, true
	case "lenient":
		return document.Lenient, true
	case "strict-nocase":
		return document.SearchOptions{}, true
	case "lenient-nocase":
		return document.SearchOptions{IgnoreSpace: true, IgnorePunct: true}, true
	}
	return document.SearchOptions{}, false
}
