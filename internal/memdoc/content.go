package memdoc

import (
	"time"
	"weak"

	"github.com/google/uuid"
)

type markKind int

const (
	kindNone markKind = iota
	kindInsert
	kindDelete
)

// revision identifies one tracked change. Every run created by the same tracked operation shares one *revision.
type revision struct {
	id     string
	author string
	date   time.Time
}

// run marks n consecutive content bytes.
type run struct {
	n    int
	kind markKind
	rev  *revision // nil iff kind == kindNone
}

// span is a registered anchor pair into content. Committed edits shift every registered span.
type span struct {
	start, end int
}

// minPrune is the registry size below which newSpan does not bother pruning.
const minPrune = 64

// newSpan registers an anchor pair. The registry holds spans weakly: a span stays registered only while the selection, a comment, a live Range, or a queued mutation
// still refers to it, so searches and boundaries that callers drop stop costing anything on later edits.
func (d *Document) newSpan(start, end int) *span {
	sp := &span{start: start, end: end}
	if len(d.spans) >= max(d.pruneAt, minPrune) {
		d.eachSpan(func(*span) {})
		d.pruneAt = 2 * len(d.spans)
	}
	d.spans = append(d.spans, weak.Make(sp))
	return sp
}

// eachSpan calls f for every registered span that is still referenced and drops the rest from the registry.
func (d *Document) eachSpan(f func(*span)) {
	live := d.spans[:0]
	for _, w := range d.spans {
		if sp := w.Value(); sp != nil {
			f(sp)
			live = append(live, w)
		}
	}
	clear(d.spans[len(live):])
	d.spans = live
}

func (d *Document) newRevision() *revision {
	return &revision{id: uuid.NewString(), author: d.author, date: d.now()}
}

// splitAt ensures a run boundary at pos and returns the index of the first run starting at or after pos.
func (d *Document) splitAt(pos int) int {
	off := 0
	for i, r := range d.runs {
		if off == pos {
			return i
		}
		if pos < off+r.n {
			left, right := r, r
			left.n = pos - off
			right.n = r.n - left.n
			d.runs = append(d.runs, run{})
			copy(d.runs[i+1:], d.runs[i:])
			d.runs[i] = left
			d.runs[i+1] = right
			return i + 1
		}
		off += r.n
	}
	return len(d.runs)
}

// mergeRuns drops empty runs and joins neighbours with the same mark.
func (d *Document) mergeRuns() {
	out := d.runs[:0]
	for _, r := range d.runs {
		if r.n == 0 {
			continue
		}
		if len(out) > 0 && out[len(out)-1].kind == r.kind && out[len(out)-1].rev == r.rev {
			out[len(out)-1].n += r.n
			continue
		}
		out = append(out, r)
	}
	d.runs = out
}

// insertAt inserts text at pos with the given mark and shifts spans.
func (d *Document) insertAt(pos int, text string, kind markKind, rev *revision) {
	if text == "" {
		return
	}
	n := len(text)
	d.content = d.content[:pos] + text + d.content[pos:]

	i := d.splitAt(pos)
	d.runs = append(d.runs[:i], append([]run{{n: n, kind: kind, rev: rev}}, d.runs[i:]...)...)
	d.mergeRuns()

	d.eachSpan(func(sp *span) {
		if sp.start == pos && sp.end == pos {
			sp.start += n
			sp.end += n
			return
		}
		if sp.start >= pos {
			sp.start += n
		}
		if sp.end > pos {
			sp.end += n
		}
	})
}

// removeBytes physically removes content [s, e) and shifts spans.
func (d *Document) removeBytes(s, e int) {
	if e <= s {
		return
	}
	n := e - s
	d.content = d.content[:s] + d.content[e:]

	i := d.splitAt(s)
	j := d.splitAt(e)
	d.runs = append(d.runs[:i], d.runs[j:]...)
	d.mergeRuns()

	shift := func(p int) int {
		switch {
		case p <= s:
			return p
		case p <= e:
			return s
		default:
			return p - n
		}
	}
	d.eachSpan(func(sp *span) {
		sp.start = shift(sp.start)
		sp.end = shift(sp.end)
	})
}

// trackDelete records [s, e) as a tracked deletion. Plain text is marked deleted; text that is itself a tracked insertion is removed outright; text already deleted
// is left alone.
func (d *Document) trackDelete(s, e int) {
	if e <= s {
		return
	}
	rev := d.newRevision()
	i := d.splitAt(s)
	j := d.splitAt(e)

	type byteSpan struct{ s, e int }
	var inserted []byteSpan
	off := s
	for k := i; k < j; k++ {
		r := &d.runs[k]
		switch r.kind {
		case kindNone:
			r.kind = kindDelete
			r.rev = rev
		case kindInsert:
			inserted = append(inserted, byteSpan{off, off + r.n})
		}
		off += r.n
	}
	d.mergeRuns()

	for k := len(inserted) - 1; k >= 0; k-- {
		d.removeBytes(inserted[k].s, inserted[k].e)
	}
}

// deleteRange deletes sp's content, tracked or not per the current mode.
func (d *Document) deleteRange(sp *span) {
	if d.tracking {
		d.trackDelete(sp.start, sp.end)
	} else {
		d.removeBytes(sp.start, sp.end)
	}
}

// insertText inserts text at pos, tracked or not per the current mode.
func (d *Document) insertText(pos int, text string) {
	if d.tracking {
		d.insertAt(pos, text, kindInsert, d.newRevision())
	} else {
		d.insertAt(pos, text, kindNone, nil)
	}
}

// replace deletes sp's content and inserts text, then makes sp cover exactly the inserted text. With tracking on the insertion goes after the deleted text.
func (d *Document) replace(sp *span, text string) {
	d.deleteRange(sp)
	pos := sp.start
	if d.tracking {
		pos = sp.end
	}
	d.insertText(pos, text)
	sp.start = pos
	sp.end = pos + len(text)
}

// visibleText returns content [s, e) without tracked deletions.
func (d *Document) visibleText(s, e int) string {
	return d.textWhere(s, e, func(k markKind) bool { return k != kindDelete })
}

// textWhere returns the bytes of content [s, e) whose runs satisfy keep.
func (d *Document) textWhere(s, e int, keep func(markKind) bool) string {
	var out []byte
	off := 0
	for _, r := range d.runs {
		rs, re := off, off+r.n
		off = re
		if re <= s || rs >= e || !keep(r.kind) {
			continue
		}
		out = append(out, d.content[max(rs, s):min(re, e)]...)
	}
	return string(out)
}
