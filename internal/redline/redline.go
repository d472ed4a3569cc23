package redline

import (
	"context"
	"errors"

	"github.com/codalotl/redline/internal/diff"
	"github.com/codalotl/redline/internal/document"
	"github.com/codalotl/redline/internal/normalize"
)

// ErrNothingSelected is returned by RedlineSelection when the selection has no text.
var ErrNothingSelected = errors.New("redline: selection is empty")

// Prepare normalizes original and replacement and diffs them. It is the pure half of Redline.
func Prepare(original, replacement string) diff.Script {
	o, r := normalize.Pair(original, replacement)
	return diff.DiffWords(o, r)
}

// Redline replaces original (which the caller has selected in doc) with replacement by applying only their word-level difference. The script is returned even
// when applying it fails.
func Redline(ctx context.Context, doc document.Document, original, replacement string, opts Options) (Result, diff.Script, error) {
	script := Prepare(original, replacement)
	log := opts.logger()
	eq, del, ins := script.Counts()
	log.Info("redline prepared", "equal", eq, "delete", del, "insert", ins)

	res, err := Apply(ctx, doc, script, opts)
	if err != nil {
		return res, script, err
	}
	log.Info("redline applied", "deleted", res.Deleted, "inserted", res.Inserted, "skipped", len(res.Skips))
	return res, script, nil
}

// RedlineSelection reads the current selection of doc and redlines it into replacement.
func RedlineSelection(ctx context.Context, doc document.Document, replacement string, opts Options) (Result, diff.Script, error) {
	sel, err := doc.Selection(ctx)
	if err != nil {
		return Result{}, diff.Script{}, err
	}
	original, err := sel.Text(ctx)
	if err != nil {
		return Result{}, diff.Script{}, err
	}
	if normalize.Text(original) == "" {
		return Result{}, diff.Script{}, ErrNothingSelected
	}
	return Redline(ctx, doc, original, replacement, opts)
}
