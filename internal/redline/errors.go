package redline

import (
	"errors"
	"fmt"

	"github.com/codalotl/redline/internal/diff"
)

// ErrAnchorNotFound is the Err of a Skip whose text was not found in the unprocessed part of the selection.
var ErrAnchorNotFound = errors.New("anchor not found")

// Skip records an EQUAL or DELETE step that was not applied. Step is 1-based.
type Skip struct {
	Step int
	Op   diff.EditOp
	Err  error
}

func (s Skip) String() string {
	return fmt.Sprintf("step %d (%s %q): %v", s.Step, s.Op.Op, abbrev(s.Op.Text), s.Err)
}

// StepError reports that the host rejected or failed to commit a step. Step is 1-based; edits from earlier steps remain applied.
type StepError struct {
	Step int
	Op   diff.EditOp
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("redline step %d (%s %q): %v", e.Step, e.Op.Op, abbrev(e.Op.Text), e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func abbrev(s string) string {
	const limit = 40
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
