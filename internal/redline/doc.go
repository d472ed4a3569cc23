// Package redline applies word-level edit scripts to a live document as tracked changes.
//
// A redline replaces the selected passage of a document with a new passage, but instead of retyping the whole selection it applies only the minimal difference:
//
//	res, script, err := redline.Redline(ctx, doc, original, replacement, redline.Options{})
//
// Redline normalizes both passages (package normalize), diffs them (package diff), and walks the resulting script with Apply. Apply keeps one cursor: the part of
// the original selection not yet processed. The cursor is always rebuilt as "from the end of the last match to the end of the selection", never from offsets, so
// it stays valid while earlier edits grow and shrink the document. Every mutation is committed with Sync before the next search.
//
// Anchors that can't be found are skipped and reported in Result.Skips; host failures abort with a *StepError naming the step. Edits committed before a failure
// stay in the document.
//
// InsertTracked is the non-surgical sibling: it replaces the whole selection with one block of text and optionally comments on it.
package redline
