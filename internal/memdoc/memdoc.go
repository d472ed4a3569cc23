package memdoc

import (
	"context"
	"fmt"
	"sync"
	"time"
	"weak"

	"github.com/codalotl/redline/internal/document"
)

// DefaultAuthor is the revision author used when none is configured.
const DefaultAuthor = "redline"

// Option configures a Document.
type Option func(*Document)

// WithAuthor sets the author recorded on revisions and comments.
func WithAuthor(author string) Option {
	return func(d *Document) { d.author = author }
}

// WithTracking sets the initial change-tracking mode.
func WithTracking(on bool) Option {
	return func(d *Document) { d.tracking = on }
}

// WithStrictSync makes reads (Selection, Range.Text, Range.Search) fail with document.ErrUncommitted while mutations are queued.
func WithStrictSync() Option {
	return func(d *Document) { d.strictSync = true }
}

// WithCommitHook installs hook, which Sync calls with each queued mutation's description before applying it. If hook returns an error, that mutation and the rest
// of the batch are discarded and Sync returns the error.
func WithCommitHook(hook func(desc string) error) Option {
	return func(d *Document) { d.commitHook = hook }
}

// WithClock sets the clock used to date revisions and comments.
func WithClock(now func() time.Time) Option {
	return func(d *Document) { d.now = now }
}

// Document is an in-memory tracked-change document. It is safe for concurrent use.
type Document struct {
	mu sync.Mutex

	content string
	runs    []run
	spans   []weak.Pointer[span] // every anchor pair an edit must shift; see newSpan
	pruneAt int

	selection *span
	comments  []*comment

	tracking   bool
	author     string
	strictSync bool
	commitHook func(desc string) error
	now        func() time.Time

	pending []pendingOp
}

type pendingOp struct {
	desc  string
	apply func() error
}

var _ document.Document = (*Document)(nil)

// New returns a Document containing text, with the whole text selected. Tracking is off unless WithTracking(true) is given.
func New(text string, opts ...Option) *Document {
	d := &Document{
		content: text,
		author:  DefaultAuthor,
		now:     time.Now,
	}
	if text != "" {
		d.runs = []run{{n: len(text), kind: kindNone}}
	}
	for _, opt := range opts {
		opt(d)
	}
	d.selection = d.newSpan(0, len(text))
	return d
}

// Selection returns a live range covering the current selection.
func (d *Document) Selection(ctx context.Context) (document.Range, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkCommitted(); err != nil {
		return nil, err
	}
	if d.selection == nil {
		return nil, document.ErrNoSelection
	}
	return d.rangeOf(d.newSpan(d.selection.start, d.selection.end)), nil
}

// SetSelectedText queues replacing the selection's content with text. After Sync the selection covers the inserted text.
func (d *Document) SetSelectedText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enqueue(fmt.Sprintf("set selected text %q", abbrev(text)), func() error {
		if d.selection == nil {
			return document.ErrNoSelection
		}
		d.replace(d.selection, text)
		return nil
	})
	return nil
}

// SetTracking queues turning change tracking on or off.
func (d *Document) SetTracking(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enqueue(fmt.Sprintf("set tracking %t", on), func() error {
		d.tracking = on
		return nil
	})
	return nil
}

// Sync applies queued mutations in order. If one fails, the ones before it stay applied, the rest are discarded, and the error names the failing mutation.
func (d *Document) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	ops := d.pending
	d.pending = nil
	for _, op := range ops {
		if d.commitHook != nil {
			if err := d.commitHook(op.desc); err != nil {
				return fmt.Errorf("%s: %w", op.desc, err)
			}
		}
		if err := op.apply(); err != nil {
			return fmt.Errorf("%s: %w", op.desc, err)
		}
	}
	return nil
}

// Pending returns the number of queued, uncommitted mutations.
func (d *Document) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Tracking reports whether change tracking is on (committed state).
func (d *Document) Tracking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tracking
}

// Select selects the bytes [start, end) of the stored content (which includes tracked-deleted text).
func (d *Document) Select(start, end int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if start < 0 || end < start || end > len(d.content) {
		return fmt.Errorf("select [%d, %d): out of bounds (content is %d bytes)", start, end, len(d.content))
	}
	d.selection = d.newSpan(start, end)
	return nil
}

// SelectText selects the first exact occurrence of needle in the visible text.
func (d *Document) SelectText(needle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	matches, err := d.search(0, len(d.content), needle, document.Strict)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("select %q: text not found", needle)
	}
	d.selection = d.newSpan(matches[0].start, matches[0].end)
	return nil
}

// Len returns the length in bytes of the stored content, including tracked-deleted text. Select(Len(), Len()) places a collapsed selection at the end.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.content)
}

// SelectAll selects the whole document.
func (d *Document) SelectAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selection = d.newSpan(0, len(d.content))
}

// Deselect clears the selection. Until something is selected again, Selection and SetSelectedText fail with document.ErrNoSelection.
func (d *Document) Deselect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selection = nil
}

// SelectedText returns the visible text of the selection, or "" if there is none.
func (d *Document) SelectedText() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selection == nil {
		return ""
	}
	return d.visibleText(d.selection.start, d.selection.end)
}

func (d *Document) enqueue(desc string, apply func() error) {
	d.pending = append(d.pending, pendingOp{desc: desc, apply: apply})
}

func (d *Document) checkCommitted() error {
	if d.strictSync && len(d.pending) > 0 {
		return fmt.Errorf("%w (%d queued)", document.ErrUncommitted, len(d.pending))
	}
	return nil
}

// abbrev shortens s for use in operation descriptions.
func abbrev(s string) string {
	const limit = 40
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
