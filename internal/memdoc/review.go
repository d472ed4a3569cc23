package memdoc

import (
	"time"

	"github.com/google/uuid"

	"github.com/codalotl/redline/internal/diff"
)

// RevisionKind is the kind of a tracked change.
type RevisionKind int

const (
	Insertion RevisionKind = iota
	Deletion
)

func (k RevisionKind) String() string {
	if k == Deletion {
		return "deletion"
	}
	return "insertion"
}

// Revision is one contiguous tracked change.
type Revision struct {
	ID     string
	Kind   RevisionKind
	Author string
	Date   time.Time
	Text   string
	Start  int // byte offsets in the stored content
	End    int
}

// Comment is a review comment anchored to a span of the document.
type Comment struct {
	ID     string
	Author string
	Date   time.Time
	Text   string
	Quote  string // visible text the comment is anchored to, as of now
	Start  int
	End    int
}

type comment struct {
	id     string
	author string
	date   time.Time
	text   string
	sp     *span
}

func (d *Document) addComment(start, end int, text string) {
	d.comments = append(d.comments, &comment{
		id:     uuid.NewString(),
		author: d.author,
		date:   d.now(),
		text:   text,
		sp:     d.newSpan(start, end),
	})
}

// Comments returns the document's comments in insertion order.
func (d *Document) Comments() []Comment {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Comment, len(d.comments))
	for i, c := range d.comments {
		out[i] = Comment{
			ID:     c.id,
			Author: c.author,
			Date:   c.date,
			Text:   c.text,
			Quote:  d.visibleText(c.sp.start, c.sp.end),
			Start:  c.sp.start,
			End:    c.sp.end,
		}
	}
	return out
}

// Revisions returns the tracked changes in document order.
func (d *Document) Revisions() []Revision {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Revision
	off := 0
	for _, r := range d.runs {
		start := off
		off += r.n
		if r.kind == kindNone {
			continue
		}
		kind := Insertion
		if r.kind == kindDelete {
			kind = Deletion
		}
		out = append(out, Revision{
			ID:     r.rev.id,
			Kind:   kind,
			Author: r.rev.author,
			Date:   r.rev.date,
			Text:   d.content[start:off],
			Start:  start,
			End:    off,
		})
	}
	return out
}

// Text returns the visible text of the whole document: the text as it reads with every tracked change accepted.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visibleText(0, len(d.content))
}

// Accepted is an alias for Text.
func (d *Document) Accepted() string {
	return d.Text()
}

// Original returns the text with every tracked change rejected.
func (d *Document) Original() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.textWhere(0, len(d.content), func(k markKind) bool { return k != kindInsert })
}

// Script returns the tracked state as an edit script from Original to Accepted. Adjacent changes of the same kind are joined; unlike scripts from
// diff.DiffWords, an insertion may precede a deletion.
func (d *Document) Script() diff.Script {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := diff.Script{
		Old: d.textWhere(0, len(d.content), func(k markKind) bool { return k != kindInsert }),
		New: d.visibleText(0, len(d.content)),
	}
	off := 0
	for _, r := range d.runs {
		text := d.content[off : off+r.n]
		off += r.n
		op := diff.OpEqual
		switch r.kind {
		case kindInsert:
			op = diff.OpInsert
		case kindDelete:
			op = diff.OpDelete
		}
		if n := len(s.Ops); n > 0 && s.Ops[n-1].Op == op {
			s.Ops[n-1].Text += text
			continue
		}
		s.Ops = append(s.Ops, diff.EditOp{Op: op, Text: text})
	}
	return s
}

// Render returns the document with tracked deletions marked "[-...-]" and insertions "{+...+}" (or ANSI colors if color is true).
func (d *Document) Render(color bool) string {
	return d.Script().RenderInline(color)
}

// AcceptAll accepts every tracked change: deleted text is removed and inserted text becomes plain.
func (d *Document) AcceptAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolve(kindDelete)
}

// RejectAll rejects every tracked change: inserted text is removed and deleted text becomes plain.
func (d *Document) RejectAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolve(kindInsert)
}

// resolve removes runs of kind drop and clears the marks on all others.
func (d *Document) resolve(drop markKind) {
	for {
		off, found := 0, false
		for _, r := range d.runs {
			if r.kind == drop {
				d.removeBytes(off, off+r.n)
				found = true
				break
			}
			off += r.n
		}
		if !found {
			break
		}
	}
	for i := range d.runs {
		d.runs[i].kind = kindNone
		d.runs[i].rev = nil
	}
	d.mergeRuns()
}
