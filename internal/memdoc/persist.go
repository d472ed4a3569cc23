package memdoc

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

type snapshot struct {
	Content   string            `json:"content"`
	Runs      []snapshotRun     `json:"runs,omitempty"`
	Revisions []snapshotRev     `json:"revisions,omitempty"`
	Comments  []snapshotComment `json:"comments,omitempty"`
	Selection *[2]int           `json:"selection,omitempty"`
	Tracking  bool              `json:"tracking"`
	Author    string            `json:"author,omitempty"`
}

type snapshotRun struct {
	N    int    `json:"n"`
	Kind string `json:"kind"`
	Rev  string `json:"rev,omitempty"`
}

type snapshotRev struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	Date   time.Time `json:"date"`
}

type snapshotComment struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	Date   time.Time `json:"date"`
	Text   string    `json:"text"`
	Start  int       `json:"start"`
	End    int       `json:"end"`
}

var kindNames = map[markKind]string{kindNone: "none", kindInsert: "insert", kindDelete: "delete"}

// Save writes d's committed state as JSON. Queued mutations are not saved.
func (d *Document) Save(w io.Writer) error {
	d.mu.Lock()
	snap := snapshot{Content: d.content, Tracking: d.tracking, Author: d.author}
	seen := make(map[*revision]bool)
	for _, r := range d.runs {
		sr := snapshotRun{N: r.n, Kind: kindNames[r.kind]}
		if r.rev != nil {
			sr.Rev = r.rev.id
			if !seen[r.rev] {
				seen[r.rev] = true
				snap.Revisions = append(snap.Revisions, snapshotRev{ID: r.rev.id, Author: r.rev.author, Date: r.rev.date})
			}
		}
		snap.Runs = append(snap.Runs, sr)
	}
	for _, c := range d.comments {
		snap.Comments = append(snap.Comments, snapshotComment{ID: c.id, Author: c.author, Date: c.date, Text: c.text, Start: c.sp.start, End: c.sp.end})
	}
	if d.selection != nil {
		snap.Selection = &[2]int{d.selection.start, d.selection.end}
	}
	d.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Load reads a Document written by Save. opts are applied after the saved state, so they may override tracking and author.
func Load(r io.Reader, opts ...Option) (*Document, error) {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("memdoc: decode: %w", err)
	}

	d := New("")
	d.spans = nil
	d.selection = nil
	d.content = snap.Content
	d.tracking = snap.Tracking
	if snap.Author != "" {
		d.author = snap.Author
	}

	revs := make(map[string]*revision, len(snap.Revisions))
	for _, sr := range snap.Revisions {
		revs[sr.ID] = &revision{id: sr.ID, author: sr.Author, date: sr.Date}
	}

	total := 0
	d.runs = nil
	for i, sr := range snap.Runs {
		var kind markKind
		switch sr.Kind {
		case "none":
			kind = kindNone
		case "insert":
			kind = kindInsert
		case "delete":
			kind = kindDelete
		default:
			return nil, fmt.Errorf("memdoc: run %d: unknown kind %q", i, sr.Kind)
		}
		var rev *revision
		if kind != kindNone {
			rev = revs[sr.Rev]
			if rev == nil {
				return nil, fmt.Errorf("memdoc: run %d: unknown revision %q", i, sr.Rev)
			}
		}
		if sr.N < 0 {
			return nil, fmt.Errorf("memdoc: run %d: negative length", i)
		}
		d.runs = append(d.runs, run{n: sr.N, kind: kind, rev: rev})
		total += sr.N
	}
	if len(snap.Runs) == 0 && snap.Content != "" {
		d.runs = []run{{n: len(snap.Content), kind: kindNone}}
		total = len(snap.Content)
	}
	if total != len(snap.Content) {
		return nil, fmt.Errorf("memdoc: runs cover %d bytes, content has %d", total, len(snap.Content))
	}
	d.mergeRuns()

	inBounds := func(s, e int) bool { return s >= 0 && s <= e && e <= len(d.content) }
	for _, sc := range snap.Comments {
		if !inBounds(sc.Start, sc.End) {
			return nil, fmt.Errorf("memdoc: comment %s: span [%d, %d) out of bounds", sc.ID, sc.Start, sc.End)
		}
		d.comments = append(d.comments, &comment{id: sc.ID, author: sc.Author, date: sc.Date, text: sc.Text, sp: d.newSpan(sc.Start, sc.End)})
	}

	if snap.Selection != nil {
		s, e := snap.Selection[0], snap.Selection[1]
		if !inBounds(s, e) {
			return nil, fmt.Errorf("memdoc: selection [%d, %d) out of bounds", s, e)
		}
		d.selection = d.newSpan(s, e)
	}

	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}
