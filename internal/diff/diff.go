package diff

import (
	"fmt"
	"strings"
)

// Op is an operation from old text to new text.
type Op int

// Operations from old text to new text.
const (
	OpEqual Op = iota
	OpInsert
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "EQUAL"
	case OpInsert:
		return "INSERT"
	case OpDelete:
		return "DELETE"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// MarshalText encodes o as "equal", "insert", or "delete".
func (o Op) MarshalText() ([]byte, error) {
	switch o {
	case OpEqual, OpInsert, OpDelete:
		return []byte(strings.ToLower(o.String())), nil
	}
	return nil, fmt.Errorf("diff: unknown op %d", int(o))
}

// UnmarshalText accepts the forms produced by MarshalText (case-insensitive).
func (o *Op) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "equal":
		*o = OpEqual
	case "insert":
		*o = OpInsert
	case "delete":
		*o = OpDelete
	default:
		return fmt.Errorf("diff: unknown op %q", string(b))
	}
	return nil
}

// EditOp is one step of a Script. Text is never empty in a Script returned by DiffWords.
type EditOp struct {
	Op   Op     `json:"op"`
	Text string `json:"text"`
}

func (e EditOp) String() string {
	return fmt.Sprintf("%s %q", e.Op, e.Text)
}

// Script is an edit script from Old to New.
//
// As an illustration: replacing one word in the middle of a sentence produces [OpEqual prefix, OpDelete old word, OpInsert new word, OpEqual suffix].
//
// Invariants:
//   - concat(OpEqual + OpDelete texts) == Old
//   - concat(OpEqual + OpInsert texts) == New
type Script struct {
	Old string   `json:"old"` // Entire (normalized) original text.
	New string   `json:"new"` // Entire (normalized) replacement text.
	Ops []EditOp `json:"ops"` // Ordered ops covering both texts.
}

// OldText reconstructs the old side from the ops.
func (s Script) OldText() string {
	var b strings.Builder
	for _, op := range s.Ops {
		if op.Op != OpInsert {
			b.WriteString(op.Text)
		}
	}
	return b.String()
}

// NewText reconstructs the new side from the ops.
func (s Script) NewText() string {
	var b strings.Builder
	for _, op := range s.Ops {
		if op.Op != OpDelete {
			b.WriteString(op.Text)
		}
	}
	return b.String()
}

// IsNoop reports whether s contains no deletions or insertions.
func (s Script) IsNoop() bool {
	for _, op := range s.Ops {
		if op.Op != OpEqual {
			return false
		}
	}
	return true
}

// Counts returns the number of ops of each kind.
func (s Script) Counts() (equal, deleted, inserted int) {
	for _, op := range s.Ops {
		switch op.Op {
		case OpEqual:
			equal++
		case OpDelete:
			deleted++
		case OpInsert:
			inserted++
		}
	}
	return equal, deleted, inserted
}

// String returns a compact, log-friendly form of the ops, ex: [EQUAL "a " DELETE "b" INSERT "c"].
func (s Script) String() string {
	parts := make([]string, len(s.Ops))
	for i, op := range s.Ops {
		parts[i] = op.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
