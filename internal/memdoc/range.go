package memdoc

import (
	"context"
	"fmt"

	"github.com/codalotl/redline/internal/document"
)

// Range is a live range in a Document. The zero Range and ranges built from foreign ranges are invalid: every operation on them fails with
// document.ErrInvalidRange.
type Range struct {
	d  *Document
	sp *span
}

var _ document.Range = (*Range)(nil)

func (d *Document) rangeOf(sp *span) *Range {
	return &Range{d: d, sp: sp}
}

func (r *Range) valid() bool {
	return r != nil && r.d != nil && r.sp != nil
}

// Offsets returns the committed byte offsets of r in the stored content.
func (r *Range) Offsets() (start, end int) {
	if !r.valid() {
		return 0, 0
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.sp.start, r.sp.end
}

// Text returns the visible text of r.
func (r *Range) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !r.valid() {
		return "", document.ErrInvalidRange
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.d.checkCommitted(); err != nil {
		return "", err
	}
	return r.d.visibleText(r.sp.start, r.sp.end), nil
}

// Search returns the matches of needle inside r, in document order.
func (r *Range) Search(ctx context.Context, needle string, opts document.SearchOptions) ([]document.Range, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.valid() {
		return nil, document.ErrInvalidRange
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.d.checkCommitted(); err != nil {
		return nil, err
	}
	matches, err := r.d.search(r.sp.start, r.sp.end, needle, opts)
	if err != nil {
		return nil, err
	}
	out := make([]document.Range, len(matches))
	for i, m := range matches {
		out[i] = r.d.rangeOf(r.d.newSpan(m.start, m.end))
	}
	return out, nil
}

// Delete queues deleting r's content.
func (r *Range) Delete() error {
	if !r.valid() {
		return document.ErrInvalidRange
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	sp := r.sp
	r.d.enqueue(fmt.Sprintf("delete %q", abbrev(r.d.visibleText(sp.start, sp.end))), func() error {
		r.d.deleteRange(sp)
		return nil
	})
	return nil
}

// InsertText queues inserting text before, after, or in place of r. After a Replace commits, r covers the inserted text.
func (r *Range) InsertText(text string, loc document.InsertLocation) error {
	if !r.valid() {
		return document.ErrInvalidRange
	}
	switch loc {
	case document.Before, document.After, document.Replace:
	default:
		return fmt.Errorf("insert text: unknown location %d", int(loc))
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	sp := r.sp
	r.d.enqueue(fmt.Sprintf("insert %q %s range", abbrev(text), loc), func() error {
		switch loc {
		case document.Before:
			r.d.insertText(sp.start, text)
		case document.After:
			r.d.insertText(sp.end, text)
		case document.Replace:
			r.d.replace(sp, text)
		}
		return nil
	})
	return nil
}

// Boundary returns a collapsed range at r's start or end.
func (r *Range) Boundary(loc document.Location) document.Range {
	if !r.valid() {
		return &Range{}
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	pos := r.sp.start
	if loc == document.End {
		pos = r.sp.end
	}
	return r.d.rangeOf(r.d.newSpan(pos, pos))
}

// ExpandTo returns the smallest range covering r and other. other must come from the same Document.
func (r *Range) ExpandTo(other document.Range) document.Range {
	o, ok := other.(*Range)
	if !r.valid() || !ok || !o.valid() || o.d != r.d {
		return &Range{}
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.d.rangeOf(r.d.newSpan(min(r.sp.start, o.sp.start), max(r.sp.end, o.sp.end)))
}

// InsertComment queues attaching a comment to r.
func (r *Range) InsertComment(text string) error {
	if !r.valid() {
		return document.ErrInvalidRange
	}
	if text == "" {
		return fmt.Errorf("insert comment: empty text")
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	sp := r.sp
	r.d.enqueue(fmt.Sprintf("insert comment %q", abbrev(text)), func() error {
		r.d.addComment(sp.start, sp.end, text)
		return nil
	})
	return nil
}
