package redline

import (
	"context"
	"strings"

	"github.com/codalotl/redline/internal/document"
	"github.com/codalotl/redline/internal/normalize"
	"github.com/codalotl/redline/internal/q/health"
)

// InsertTracked replaces the whole selection of doc with text (markdown stripped, trimmed) as one change, then attaches comment to the new selection if comment is
// non-empty. A failed insertion is returned. A failed comment is only logged, since the text is already in place.
func InsertTracked(ctx context.Context, doc document.Document, text, comment string, opts Options) error {
	log := health.NewCtx(opts.logger())
	clean := strings.TrimSpace(normalize.StripMarkdown(text))

	if err := doc.SetSelectedText(ctx, clean); err != nil {
		return log.LogWrappedErr("redline: could not insert text", err)
	}
	if err := doc.Sync(ctx); err != nil {
		return log.LogWrappedErr("redline: could not insert text", err)
	}
	Annotate(ctx, doc, comment, opts)
	return nil
}

// Annotate attaches comment to doc's current selection and commits it, typically to record why a redline was made. An empty comment is a no-op. Failures are
// logged at Warn and reported as false, never returned: the edit the comment explains is already in place.
func Annotate(ctx context.Context, doc document.Document, comment string, opts Options) bool {
	if comment == "" {
		return false
	}
	if err := addComment(ctx, doc, comment); err != nil {
		health.NewCtx(opts.logger()).Warn("redline: could not add comment", "err", err)
		return false
	}
	return true
}

func addComment(ctx context.Context, doc document.Document, comment string) error {
	sel, err := doc.Selection(ctx)
	if err != nil {
		return err
	}
	if err := sel.InsertComment(comment); err != nil {
		return err
	}
	return doc.Sync(ctx)
}

// EnableTracking turns on change tracking in doc and commits it.
func EnableTracking(ctx context.Context, doc document.Document) error {
	if err := doc.SetTracking(ctx, true); err != nil {
		return err
	}
	return doc.Sync(ctx)
}
