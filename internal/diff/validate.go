package diff

import (
	"errors"
	"fmt"
)

// ErrInvariant is wrapped by every error returned from Script.Validate.
var ErrInvariant = errors.New("edit script invariant violated")

// Validate checks the Script invariants and returns an error wrapping ErrInvariant on the first violation.
func (s Script) Validate() error {
	for i, op := range s.Ops {
		switch op.Op {
		case OpEqual, OpInsert, OpDelete:
		default:
			return fmt.Errorf("%w: op[%d]: unknown op %d", ErrInvariant, i, int(op.Op))
		}
		if op.Text == "" {
			return fmt.Errorf("%w: op[%d]: %s has empty text", ErrInvariant, i, op.Op)
		}
		if i > 0 && s.Ops[i-1].Op == op.Op {
			return fmt.Errorf("%w: op[%d]: adjacent %s ops", ErrInvariant, i, op.Op)
		}
		if op.Op == OpDelete && i > 0 && s.Ops[i-1].Op == OpInsert {
			return fmt.Errorf("%w: op[%d]: DELETE follows INSERT in one change group", ErrInvariant, i)
		}
	}
	if got := s.OldText(); got != s.Old {
		return fmt.Errorf("%w: EQUAL+DELETE texts give %q, want %q", ErrInvariant, got, s.Old)
	}
	if got := s.NewText(); got != s.New {
		return fmt.Errorf("%w: EQUAL+INSERT texts give %q, want %q", ErrInvariant, got, s.New)
	}
	return nil
}
