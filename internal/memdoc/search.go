package memdoc

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/codalotl/redline/internal/document"
)

// unit is one (possibly case-folded) rune of visible text together with the content bytes it came from.
type unit struct {
	r          rune
	start, end int
	ignorable  bool
}

type match struct {
	start, end int
}

// search finds non-overlapping matches of needle in the visible text of content [s, e).
//
// When opts ignores spaces or punctuation, those characters are skipped on both sides. If the needle consists only of ignorable characters, it is matched strictly
// instead. A match is widened over the ignorable characters next to it only as far as they correspond to the needle's own leading or trailing ignorable characters:
// "quick " matches through the space(s) that follow "quick", but not through a comma after it. A run of whitespace in the needle absorbs a run of whitespace in the
// text.
func (d *Document) search(s, e int, needle string, opts document.SearchOptions) ([]match, error) {
	if needle == "" {
		return nil, document.ErrEmptyNeedle
	}
	pat := units(needle, 0, opts)
	if countKept(pat) == 0 {
		opts.IgnoreSpace, opts.IgnorePunct = false, false
		pat = units(needle, 0, opts)
	}
	var want []rune
	for _, u := range pat {
		if !u.ignorable {
			want = append(want, u.r)
		}
	}
	head, tail := ignorableEdges(pat)

	hay := d.visibleUnits(s, e, opts)
	var kept []int // indexes into hay
	for i, u := range hay {
		if !u.ignorable {
			kept = append(kept, i)
		}
	}

	var out []match
	floor := 0 // first hay index not consumed by a previous match
	for k := 0; k+len(want) <= len(kept); {
		if kept[k] < floor || !runesAt(hay, kept[k:k+len(want)], want) {
			k++
			continue
		}
		first, last := kept[k], kept[k+len(want)-1]
		first = widen(hay, first, floor, -1, head)
		last = widen(hay, last, len(hay)-1, +1, tail)
		out = append(out, match{start: hay[first].start, end: hay[last].end})
		floor = last + 1
		k += len(want)
	}
	return out, nil
}

// ignorableEdges returns the needle's leading and trailing ignorable units, each ordered outward from the kept text.
func ignorableEdges(pat []unit) (head, tail []unit) {
	for i := 0; i < len(pat) && pat[i].ignorable; i++ {
		head = append([]unit{pat[i]}, head...)
	}
	k := len(pat)
	for k > 0 && pat[k-1].ignorable {
		k--
	}
	return head, pat[k:]
}

// widen moves from hay index at in direction step (-1 or +1), consuming ignorable hay units that correspond to edge (the needle's ignorable units, in the same
// outward order), and never past bound. Whitespace runs match whitespace runs; any other ignorable rune must match exactly. It returns the outermost index consumed.
func widen(hay []unit, at, bound, step int, edge []unit) int {
	inBounds := func(i int) bool {
		if step < 0 {
			return i >= bound
		}
		return i <= bound
	}
	i, j := at+step, 0
	for j < len(edge) && inBounds(i) && hay[i].ignorable {
		h, e := hay[i].r, edge[j].r
		switch {
		case unicode.IsSpace(h) && unicode.IsSpace(e):
			for inBounds(i) && hay[i].ignorable && unicode.IsSpace(hay[i].r) {
				i += step
			}
			for j < len(edge) && unicode.IsSpace(edge[j].r) {
				j++
			}
		case h == e:
			i += step
			j++
		default:
			return i - step
		}
	}
	return i - step
}

func runesAt(hay []unit, idx []int, want []rune) bool {
	for i, j := range idx {
		if hay[j].r != want[i] {
			return false
		}
	}
	return true
}

func countKept(us []unit) int {
	n := 0
	for _, u := range us {
		if !u.ignorable {
			n++
		}
	}
	return n
}

// visibleUnits returns the units of content [s, e), skipping tracked deletions.
func (d *Document) visibleUnits(s, e int, opts document.SearchOptions) []unit {
	var out []unit
	off := 0
	for _, r := range d.runs {
		rs, re := off, off+r.n
		off = re
		if re <= s || rs >= e || r.kind == kindDelete {
			continue
		}
		lo, hi := max(rs, s), min(re, e)
		out = append(out, units(d.content[lo:hi], lo, opts)...)
	}
	return out
}

// units decodes text (which starts at content offset base) into units. Without MatchCase, each rune is case folded; a rune that folds to several runes yields several
// units sharing its byte span.
func units(text string, base int, opts document.SearchOptions) []unit {
	var fold cases.Caser
	if !opts.MatchCase {
		fold = cases.Fold()
	}
	var out []unit
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		start, end := base+i, base+i+size
		ign := (opts.IgnoreSpace && unicode.IsSpace(r)) || (opts.IgnorePunct && unicode.IsPunct(r))
		if opts.MatchCase {
			out = append(out, unit{r: r, start: start, end: end, ignorable: ign})
		} else {
			for _, fr := range fold.String(string(r)) {
				out = append(out, unit{r: fr, start: start, end: end, ignorable: ign})
			}
		}
		i += size
	}
	return out
}
