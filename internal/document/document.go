// Package document describes the editing surface a redline is applied to: a live rich-text document whose mutations are batched and only become observable after
// Sync. Implementations include in-memory documents (package memdoc) and adapters to remote editors.
package document

import (
	"context"
	"errors"
)

// Location names one edge of a Range.
type Location int

const (
	Start Location = iota
	End
)

func (l Location) String() string {
	if l == End {
		return "End"
	}
	return "Start"
}

// InsertLocation says where InsertText puts its text relative to the Range.
type InsertLocation int

const (
	Before  InsertLocation = iota // immediately before the range's start
	After                         // immediately after the range's end
	Replace                       // in place of the range's content
)

func (l InsertLocation) String() string {
	switch l {
	case After:
		return "After"
	case Replace:
		return "Replace"
	}
	return "Before"
}

// SearchOptions controls how Range.Search compares the needle with document text.
type SearchOptions struct {
	MatchCase   bool // if false, comparison uses Unicode case folding
	IgnoreSpace bool // if true, whitespace is skipped on both sides while matching
	IgnorePunct bool // if true, punctuation is skipped on both sides while matching
}

// Strict matches the needle exactly.
var Strict = SearchOptions{MatchCase: true}

// Lenient matches case-sensitively but ignores incidental whitespace and punctuation differences.
var Lenient = SearchOptions{MatchCase: true, IgnoreSpace: true, IgnorePunct: true}

// Errors hosts return for common rejections. Hosts may wrap them.
var (
	ErrNoSelection  = errors.New("document has no active selection")
	ErrInvalidRange = errors.New("range is no longer valid")
	ErrEmptyNeedle  = errors.New("search text is empty")
	ErrUncommitted  = errors.New("read observed uncommitted mutations")
)

// Document is a live document with a current selection.
//
// Mutations (on the Document or any of its Ranges) are queued and take effect, in order, on the next Sync. Reads observe committed state only.
type Document interface {
	// Selection returns the current selection. It is a live range: it moves as committed edits occur before it.
	Selection(ctx context.Context) (Range, error)

	// SetSelectedText queues replacing the selection's content with text. After Sync, the selection covers the new text.
	SetSelectedText(ctx context.Context, text string) error

	// SetTracking turns change tracking on or off. With tracking on, deletions and insertions are recorded as revisions instead of applied silently.
	SetTracking(ctx context.Context, on bool) error

	// Sync commits all queued mutations. If one fails, the ones before it stay committed and the rest are discarded.
	Sync(ctx context.Context) error
}

// Range is a live handle to a contiguous span of a Document. Ranges are re-anchored by the host as edits are committed; callers still should re-derive them after
// mutating rather than reasoning about offsets.
type Range interface {
	// Text returns the visible (committed) text of the range.
	Text(ctx context.Context) (string, error)

	// Search returns all non-overlapping matches of needle inside the range, in document order.
	Search(ctx context.Context, needle string, opts SearchOptions) ([]Range, error)

	// Delete queues deleting the range's content.
	Delete() error

	// InsertText queues inserting text at loc.
	InsertText(text string, loc InsertLocation) error

	// Boundary returns the zero-length range at the given edge.
	Boundary(loc Location) Range

	// ExpandTo returns the smallest range covering both r and other.
	ExpandTo(other Range) Range

	// InsertComment queues attaching a review comment to the range.
	InsertComment(text string) error
}
