package redline

import (
	"context"
	"errors"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codalotl/redline/internal/diff"
	"github.com/codalotl/redline/internal/document"
	"github.com/codalotl/redline/internal/memdoc"
)

// recDoc records the host calls made through it.
type recDoc struct {
	*memdoc.Document
	calls *[]string
}

func newRecDoc(d *memdoc.Document) recDoc {
	return recDoc{Document: d, calls: new([]string)}
}

func (d recDoc) rec(call string) { *d.calls = append(*d.calls, call) }

func (d recDoc) Selection(ctx context.Context) (document.Range, error) {
	d.rec("selection")
	r, err := d.Document.Selection(ctx)
	if err != nil {
		return nil, err
	}
	return recRange{Range: r, doc: d}, nil
}

func (d recDoc) Sync(ctx context.Context) error {
	d.rec("sync")
	return d.Document.Sync(ctx)
}

type recRange struct {
	document.Range
	doc recDoc
}

func (r recRange) Search(ctx context.Context, needle string, opts document.SearchOptions) ([]document.Range, error) {
	r.doc.rec("search " + needle)
	ms, err := r.Range.Search(ctx, needle, opts)
	for i := range ms {
		ms[i] = recRange{Range: ms[i], doc: r.doc}
	}
	return ms, err
}

func (r recRange) Delete() error {
	r.doc.rec("delete")
	return r.Range.Delete()
}

func (r recRange) InsertText(text string, loc document.InsertLocation) error {
	r.doc.rec("insert " + text)
	return r.Range.InsertText(text, loc)
}

func (r recRange) Boundary(loc document.Location) document.Range {
	return recRange{Range: r.Range.Boundary(loc), doc: r.doc}
}

func (r recRange) ExpandTo(other document.Range) document.Range {
	if o, ok := other.(recRange); ok {
		other = o.Range
	}
	return recRange{Range: r.Range.ExpandTo(other), doc: r.doc}
}

func TestRedline_QuickBrownFox(t *testing.T) {
	ctx := context.Background()
	d := memdoc.New("The quick brown fox", memdoc.WithTracking(true), memdoc.WithStrictSync())

	res, script, err := Redline(ctx, d, "The quick brown fox", "The quick red fox", Options{})
	require.NoError(t, err)

	assert.Equal(t, []diff.EditOp{
		{Op: diff.OpEqual, Text: "The quick "},
		{Op: diff.OpDelete, Text: "brown"},
		{Op: diff.OpInsert, Text: "red"},
		{Op: diff.OpEqual, Text: " fox"},
	}, script.Ops)
	assert.Equal(t, Result{Equal: 2, Deleted: 1, Inserted: 1}, res)
	assert.True(t, res.Complete())

	assert.Equal(t, "The quick [-brown-]{+red+} fox", d.Render(false))
	assert.Equal(t, "The quick red fox", d.Text())
	assert.Equal(t, "The quick brown fox", d.Original())
}

func TestApply_HostCalls(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		original    string
		replacement string
		want        []string
	}{
		{
			name:        "replace one word",
			doc:         "The quick brown fox",
			original:    "The quick brown fox",
			replacement: "The quick red fox",
			want:        []string{"selection", "search The quick ", "search brown", "delete", "sync", "insert red", "sync", "search  fox"},
		},
		{
			name:        "noop makes no mutations",
			doc:         "Nothing changes here.",
			original:    "Nothing changes here.",
			replacement: "Nothing changes here.",
			want:        []string{"selection", "search Nothing changes here."},
		},
		{
			name:        "pure insertion",
			doc:         "",
			original:    "",
			replacement: "Hello world",
			want:        []string{"selection", "insert Hello world", "sync"},
		},
		{
			name:        "pure deletion",
			doc:         "hello world",
			original:    "hello world",
			replacement: "",
			want:        []string{"selection", "search hello world", "delete", "sync"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newRecDoc(memdoc.New(tt.doc, memdoc.WithTracking(true)))
			_, _, err := Redline(context.Background(), d, tt.original, tt.replacement, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, *d.calls)
		})
	}
}

func TestRedline_ResultText(t *testing.T) {
	pairs := []struct {
		original    string
		replacement string
	}{
		{"The quick brown fox", "The quick red fox"},
		{"a b c", "x y z"},
		{"The Seller shall deliver the Goods.", "The Buyer shall collect the Goods."},
		{"one two three", "one three"},
		{"Section 4.2 applies", "Section 4.3 applies"},
		{"Remove all of this.", ""},
		{"", "New text."},
	}
	for _, p := range pairs {
		t.Run(p.original+"->"+p.replacement, func(t *testing.T) {
			ctx := context.Background()
			d := memdoc.New(p.original, memdoc.WithTracking(true), memdoc.WithStrictSync())
			res, _, err := Redline(ctx, d, p.original, p.replacement, Options{})
			require.NoError(t, err)
			assert.Empty(t, res.Skips)
			assert.Equal(t, p.replacement, d.Text())
			assert.Equal(t, p.original, d.Original())
		})
	}
}

func TestRedline_PunctuationEdits(t *testing.T) {
	tests := []struct {
		name        string
		original    string
		replacement string
		render      string
	}{
		{name: "remove parentheses", original: "the (Seller) shall", replacement: "the Seller shall", render: "the [-(-]Seller[-)-] shall"},
		{name: "remove quotes", original: `the "Seller" shall`, replacement: "the Seller shall", render: `the [-"-]Seller[-"-] shall`},
		{name: "remove dash", original: "Hello - world", replacement: "Hello world", render: "Hello [-- -]world"},
		{name: "remove comma", original: "the Buyer, shall", replacement: "the Buyer shall", render: "the Buyer[-,-] shall"},
		{name: "add parentheses", original: "the Seller shall", replacement: "the (Seller) shall", render: "the {+(+}Seller{+)+} shall"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			d := memdoc.New(tt.original, memdoc.WithTracking(true), memdoc.WithStrictSync())
			res, _, err := Redline(ctx, d, tt.original, tt.replacement, Options{})
			require.NoError(t, err)
			assert.Empty(t, res.Skips)
			assert.Equal(t, tt.replacement, d.Text())
			assert.Equal(t, tt.original, d.Original())
			assert.Equal(t, tt.render, d.Render(false))
		})
	}
}

func TestRedline_PrefixInsertionInsideLargerDocument(t *testing.T) {
	ctx := context.Background()
	d := memdoc.New("The quick. Next sentence.", memdoc.WithTracking(true))
	require.NoError(t, d.SelectText("The quick"))

	res, _, err := Redline(ctx, d, "The quick", "The quick brown fox", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Zero(t, res.Deleted)
	assert.Equal(t, "The quick brown fox. Next sentence.", d.Text())
}

func TestRedline_CurlyApostropheIsNotAChange(t *testing.T) {
	ctx := context.Background()
	d := memdoc.New("The Seller’s obligations", memdoc.WithTracking(true))

	res, script, err := Redline(ctx, d, "The Seller’s obligations", "The Seller's obligations", Options{})
	require.NoError(t, err)
	assert.True(t, script.IsNoop())
	assert.Equal(t, 1, res.Equal)
	assert.Empty(t, res.Skips)
	assert.Empty(t, d.Revisions())
}

func TestRedline_MarkdownIsStripped(t *testing.T) {
	ctx := context.Background()
	d := memdoc.New("The quick fox", memdoc.WithTracking(true))

	_, script, err := Redline(ctx, d, "The quick fox", "The **very quick** fox", Options{})
	require.NoError(t, err)
	for _, op := range script.Ops {
		assert.NotContains(t, op.Text, "*")
	}
	assert.Equal(t, "The very quick fox", d.Text())
	assert.Equal(t, "The {+very +}quick fox", d.Render(false))
}

func TestRedline_DoubleSpaceAnchor(t *testing.T) {
	ctx := context.Background()
	d := memdoc.New("The  quick brown fox", memdoc.WithTracking(true))

	res, _, err := Redline(ctx, d, "The quick brown fox", "The quick red fox", Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Skips)
	assert.Equal(t, "The  quick red fox", d.Text())
	assert.Equal(t, "The  quick [-brown-]{+red+} fox", d.Render(false))
}

func TestRedline_StrictEqualSearchIsConfigurable(t *testing.T) {
	ctx := context.Background()
	d := memdoc.New("The  quick brown fox", memdoc.WithTracking(true))

	strict := document.Strict
	res, _, err := Redline(ctx, d, "The quick brown fox", "The quick red fox", Options{EqualSearch: &strict})
	require.NoError(t, err)
	require.Len(t, res.Skips, 1)
	assert.Equal(t, 1, res.Skips[0].Step)
	assert.Equal(t, "The  quick red fox", d.Text())
}

func TestApply_MissingAnchorIsSkipped(t *testing.T) {
	ctx := context.Background()
	d := memdoc.New("The quick brown fox", memdoc.WithTracking(true))

	res, _, err := Redline(ctx, d, "The quick green fox", "The quick red fox", Options{})
	require.NoError(t, err)
	require.Len(t, res.Skips, 1)
	skip := res.Skips[0]
	assert.Equal(t, 2, skip.Step)
	assert.Equal(t, diff.EditOp{Op: diff.OpDelete, Text: "green"}, skip.Op)
	assert.ErrorIs(t, skip.Err, ErrAnchorNotFound)
	assert.Contains(t, skip.String(), `step 2 (DELETE "green")`)

	assert.Equal(t, 2, res.Equal)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, "The quick redbrown fox", d.Text())
}

func TestApply_HostFailureStopsWithStepError(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("boom")
	d := memdoc.New("The quick brown fox", memdoc.WithTracking(true), memdoc.WithCommitHook(func(desc string) error {
		if strings.HasPrefix(desc, "insert") {
			return errBoom
		}
		return nil
	}))

	res, _, err := Redline(ctx, d, "The quick brown fox", "The quick red fox", Options{})
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 3, stepErr.Step)
	assert.Equal(t, diff.EditOp{Op: diff.OpInsert, Text: "red"}, stepErr.Op)
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, strings.HasPrefix(err.Error(), `redline step 3 (INSERT "red"): `))

	// The deletion committed before the failure stays.
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, "The quick  fox", d.Text())
	assert.Len(t, d.Revisions(), 1)
}

func TestApply_NoSelection(t *testing.T) {
	d := memdoc.New("abc")
	d.Deselect()
	_, err := Apply(context.Background(), d, diff.DiffWords("abc", "abd"), Options{})
	assert.ErrorIs(t, err, document.ErrNoSelection)
}

func TestApply_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := memdoc.New("abc")
	_, err := Apply(ctx, d, diff.DiffWords("abc", "abd"), Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "abc", d.Text())
}

func TestApply_Metrics(t *testing.T) {
	reg := prom.NewRegistry()
	m := NewMetrics(reg)
	d := memdoc.New("The quick brown fox", memdoc.WithTracking(true))

	_, _, err := Redline(context.Background(), d, "The quick brown fox", "The quick red fox", Options{Metrics: m})
	require.NoError(t, err)

	assert.Equal(t, 1.0, counterValue(t, reg, "redline_runs_total", map[string]string{"outcome": OutcomeComplete}))
	assert.Equal(t, 2.0, counterValue(t, reg, "redline_ops_total", map[string]string{"op": "EQUAL", "result": "applied"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "redline_ops_total", map[string]string{"op": "DELETE", "result": "applied"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "redline_ops_total", map[string]string{"op": "INSERT", "result": "applied"}))
}

func counterValue(t *testing.T, reg *prom.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestEffectiveSearch(t *testing.T) {
	assert.Equal(t, document.Lenient, effectiveSearch("The quick ", document.Lenient))
	assert.Equal(t, document.Strict, effectiveSearch(" , ", document.Lenient))
	assert.Equal(t, document.SearchOptions{}, effectiveSearch(" ", document.SearchOptions{IgnoreSpace: true}))
	assert.Equal(t, document.Strict, effectiveSearch(" ", document.Strict))
}

func TestSearchMode(t *testing.T) {
	opts, ok := SearchMode("lenient")
	assert.True(t, ok)
	assert.Equal(t, document.Lenient, opts)
	_, ok = SearchMode("fuzzy")
	assert.False(t, ok)
}
