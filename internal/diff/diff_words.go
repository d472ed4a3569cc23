package diff

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffWords diffs oldText to newText at word granularity, returning a Script. Callers are expected to normalize both sides first (see package normalize).
//
// DiffWords panics if the resulting Script violates its invariants; that is a bug in this package, not a property of the input.
func DiffWords(oldText, newText string) Script {
	var tok tokenTable
	rOld := tok.encode(oldText)
	rNew := tok.encode(newText)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMainRunes(rOld, rNew, false)
	diffs = dmp.DiffCleanupMerge(diffs)

	var ops []EditOp
	for _, d := range diffs {
		text := tok.decode(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			ops = append(ops, EditOp{Op: OpEqual, Text: text})
		case diffmatchpatch.DiffDelete:
			ops = append(ops, EditOp{Op: OpDelete, Text: text})
		case diffmatchpatch.DiffInsert:
			ops = append(ops, EditOp{Op: OpInsert, Text: text})
		}
	}

	script := Script{Old: oldText, New: newText, Ops: regroup(absorbFillers(ops))}
	if err := script.Validate(); err != nil {
		panic(fmt.Errorf("DiffWords: validate failed with %v", err))
	}
	return script
}

// tokenTable maps each distinct word token to a single rune so diffmatchpatch can diff token sequences as if they were characters.
type tokenTable struct {
	tokens []string
	index  map[string]int
}

func (t *tokenTable) encode(s string) []rune {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	var out []rune
	iter := words.FromString(s)
	for iter.Next() {
		w := iter.Value()
		i, ok := t.index[w]
		if !ok {
			i = len(t.tokens)
			t.tokens = append(t.tokens, w)
			t.index[w] = i
		}
		out = append(out, tokenRune(i))
	}
	return out
}

func (t *tokenTable) decode(s string) string {
	var b strings.Builder
	for _, r := range s {
		i := runeToken(r)
		if i >= 0 && i < len(t.tokens) {
			b.WriteString(t.tokens[i])
		}
	}
	return b.String()
}

// tokenRune maps a token index to a rune, skipping the surrogate range (surrogates do not survive a round trip through string).
func tokenRune(i int) rune {
	if i >= 0xD800 {
		i += 0x800
	}
	return rune(i)
}

func runeToken(r rune) int {
	i := int(r)
	if i >= 0xE000 {
		i -= 0x800
	}
	return i
}

// absorbFillers rewrites equal runs that contain no letters or digits and sit between two changes as a delete plus an insert of the same text. Such runs (a lone
// space, ", ") match almost anywhere, so they are unsafe to search for.
func absorbFillers(ops []EditOp) []EditOp {
	out := make([]EditOp, 0, len(ops))
	for i, op := range ops {
		if op.Text == "" {
			continue
		}
		if op.Op == OpEqual && i > 0 && i < len(ops)-1 && ops[i-1].Op != OpEqual && ops[i+1].Op != OpEqual && isFiller(op.Text) {
			out = append(out, EditOp{Op: OpDelete, Text: op.Text}, EditOp{Op: OpInsert, Text: op.Text})
			continue
		}
		out = append(out, op)
	}
	return out
}

func isFiller(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// regroup drops empty ops, coalesces adjacent equals, and collapses every run of changes into at most one delete followed by at most one insert.
func regroup(ops []EditOp) []EditOp {
	var out []EditOp
	var dels, ins strings.Builder

	flush := func() {
		if dels.Len() > 0 {
			out = append(out, EditOp{Op: OpDelete, Text: dels.String()})
		}
		if ins.Len() > 0 {
			out = append(out, EditOp{Op: OpInsert, Text: ins.String()})
		}
		dels.Reset()
		ins.Reset()
	}

	for _, op := range ops {
		if op.Text == "" {
			continue
		}
		switch op.Op {
		case OpEqual:
			flush()
			if len(out) > 0 && out[len(out)-1].Op == OpEqual {
				out[len(out)-1].Text += op.Text
				continue
			}
			out = append(out, op)
		case OpDelete:
			dels.WriteString(op.Text)
		case OpInsert:
			ins.WriteString(op.Text)
		}
	}
	flush()
	return out
}
