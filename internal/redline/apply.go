package redline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/codalotl/redline/internal/diff"
	"github.com/codalotl/redline/internal/document"
	"github.com/codalotl/redline/internal/q/health"
)

// Result summarizes an Apply call.
type Result struct {
	Equal    int    // EQUAL anchors located
	Deleted  int    // DELETE ops applied
	Inserted int    // INSERT ops applied
	Skips    []Skip // ops that were not applied, in script order
}

// Complete reports whether no op was skipped.
func (r Result) Complete() bool {
	return len(r.Skips) == 0
}

// Apply applies script to the current selection of doc, which must contain script.Old (modulo whatever leniency opts.EqualSearch allows).
//
// Ops are applied strictly in order:
//   - EQUAL: the first match inside the cursor moves the cursor past it.
//   - DELETE: the first strict match inside the cursor is deleted and the cursor moves past it.
//   - INSERT: the text is inserted just before the cursor; the cursor does not move.
//
// An EQUAL or DELETE whose text is not found is skipped (see Result.Skips) and the cursor stays put. If the host fails a search, mutation, or Sync, Apply stops
// and returns a *StepError alongside the Result so far. Ops with empty text are ignored.
func Apply(ctx context.Context, doc document.Document, script diff.Script, opts Options) (Result, error) {
	started := time.Now()
	a := &applier{doc: doc, opts: opts, log: health.NewCtx(opts.logger())}
	res, err := a.run(ctx, script)

	outcome := OutcomeComplete
	switch {
	case err != nil:
		outcome = OutcomeFailed
	case !res.Complete():
		outcome = OutcomePartial
	}
	opts.Metrics.run(outcome, time.Since(started))
	return res, err
}

type applier struct {
	doc  document.Document
	opts Options
	log  health.Ctx
	res  Result
}

func (a *applier) run(ctx context.Context, script diff.Script) (Result, error) {
	sel, err := a.doc.Selection(ctx)
	if err != nil {
		return a.res, a.log.LogWrappedErr("redline: could not get selection", err)
	}

	// selectionEnd is captured once: every cursor is rebuilt as [X, selectionEnd), so edits before the cursor never leave it stale.
	selectionEnd := sel.Boundary(document.End)
	cursor := sel

	for i, op := range script.Ops {
		if op.Text == "" {
			continue
		}
		step := i + 1
		if err := ctx.Err(); err != nil {
			return a.res, a.fail(step, op, err)
		}

		switch op.Op {
		case diff.OpEqual:
			match, err := a.find(ctx, cursor, op.Text, a.opts.equalSearch())
			if err != nil {
				return a.res, a.fail(step, op, err)
			}
			if match == nil {
				a.skip(step, op)
				continue
			}
			cursor = match.Boundary(document.End).ExpandTo(selectionEnd)
			a.res.Equal++

		case diff.OpDelete:
			match, err := a.find(ctx, cursor, op.Text, a.opts.deleteSearch())
			if err != nil {
				return a.res, a.fail(step, op, err)
			}
			if match == nil {
				a.skip(step, op)
				continue
			}
			// Deleting collapses the match, so the next cursor must be derived first.
			next := match.Boundary(document.End).ExpandTo(selectionEnd)
			if err := match.Delete(); err != nil {
				return a.res, a.fail(step, op, err)
			}
			if err := a.doc.Sync(ctx); err != nil {
				return a.res, a.fail(step, op, err)
			}
			cursor = next
			a.res.Deleted++

		case diff.OpInsert:
			if err := cursor.Boundary(document.Start).InsertText(op.Text, document.Before); err != nil {
				return a.res, a.fail(step, op, err)
			}
			if err := a.doc.Sync(ctx); err != nil {
				return a.res, a.fail(step, op, err)
			}
			a.res.Inserted++

		default:
			return a.res, a.fail(step, op, fmt.Errorf("unknown op %d", int(op.Op)))
		}

		a.opts.Metrics.op(op.Op, "applied")
		a.log.Logger.Debug("redline step applied", "step", step, "op", op.Op.String(), "text", abbrev(op.Text))
	}
	return a.res, nil
}

// find returns the first match of text inside r, or nil if there is none.
func (a *applier) find(ctx context.Context, r document.Range, text string, opts document.SearchOptions) (document.Range, error) {
	matches, err := r.Search(ctx, text, effectiveSearch(text, opts))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

func (a *applier) skip(step int, op diff.EditOp) {
	s := Skip{Step: step, Op: op, Err: ErrAnchorNotFound}
	a.res.Skips = append(a.res.Skips, s)
	a.opts.Metrics.op(op.Op, "skipped")
	a.log.Logger.Warn("redline anchor not found; skipping", "step", step, "op", op.Op.String(), "text", abbrev(op.Text))
}

func (a *applier) fail(step int, op diff.EditOp, err error) error {
	a.opts.Metrics.op(op.Op, "failed")
	stepErr := &StepError{Step: step, Op: op, Err: err}
	a.log.Logger.Error("redline step failed", "step", step, "op", op.Op.String(), "text", abbrev(op.Text), slog.Any("err", err))
	return stepErr
}

// effectiveSearch drops space/punctuation leniency for needles that consist only of ignorable characters, which would otherwise match nothing (or everything).
func effectiveSearch(text string, opts document.SearchOptions) document.SearchOptions {
	if !opts.IgnoreSpace && !opts.IgnorePunct {
		return opts
	}
	for _, r := range text {
		if opts.IgnoreSpace && unicode.IsSpace(r) {
			continue
		}
		if opts.IgnorePunct && unicode.IsPunct(r) {
			continue
		}
		return opts
	}
	opts.IgnoreSpace, opts.IgnorePunct = false, false
	return opts
}
