package normalize

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// markupParser only knows the constructs StripMarkdown cares about. Indented and fenced code blocks, HTML, links, and code spans are deliberately absent, so
// emphasis inside them is still found (AI output is not reliably well-formed markdown).
var markupParser = parser.NewParser(
	parser.WithBlockParsers(
		util.Prioritized(parser.NewThematicBreakParser(), 200),
		util.Prioritized(parser.NewListParser(), 300),
		util.Prioritized(parser.NewListItemParser(), 400),
		util.Prioritized(parser.NewATXHeadingParser(), 600),
		util.Prioritized(parser.NewBlockquoteParser(), 800),
		util.Prioritized(parser.NewParagraphParser(), 1000),
	),
	parser.WithInlineParsers(
		util.Prioritized(parser.NewEmphasisParser(), 500),
	),
)

// StripMarkdown removes lightweight markup from s:
//   - paired asterisk emphasis (**bold**, *italic*, ***both***) is removed, keeping the inner text. Underscore emphasis is left alone.
//   - leading ATX header markers ("### ") and any closing hash run are removed, keeping the heading text.
//   - lines consisting only of three or more '-' (a rule) are removed along with their line break.
//
// Everything else is returned unchanged. StripMarkdown does not trim.
func StripMarkdown(s string) string {
	if s == "" {
		return s
	}
	src := []byte(s)
	drop := make([]bool, len(src))

	root := markupParser.Parse(text.NewReader(src))
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			markHeading(src, n, drop)
		case *ast.Emphasis:
			markEmphasis(src, n, drop)
		}
		return ast.WalkContinue, nil
	})
	markRules(src, drop)

	var out bytes.Buffer
	out.Grow(len(src))
	for i, b := range src {
		if !drop[i] {
			out.WriteByte(b)
		}
	}
	return out.String()
}

// markEmphasis marks the delimiter runs of n. Nodes whose delimiters can't be located exactly (or aren't asterisks) are left alone.
func markEmphasis(src []byte, n *ast.Emphasis, drop []bool) {
	start, stop, ok := inlineSpan(n)
	if !ok || start < 0 || stop > len(src) {
		return
	}
	open := src[start : start+n.Level]
	closing := src[stop-n.Level : stop]
	if !allByte(open, '*') || !allByte(closing, '*') {
		return
	}
	for i := start; i < start+n.Level; i++ {
		drop[i] = true
	}
	for i := stop - n.Level; i < stop; i++ {
		drop[i] = true
	}
}

// inlineSpan returns the source span of n including emphasis delimiters. ok is false if n contains nodes whose source position is unknown at either edge.
func inlineSpan(n ast.Node) (start, stop int, ok bool) {
	switch n := n.(type) {
	case *ast.Text:
		return n.Segment.Start, n.Segment.Stop, true
	case *ast.Emphasis:
		first, last := n.FirstChild(), n.LastChild()
		if first == nil || last == nil {
			return 0, 0, false
		}
		s, _, ok1 := inlineSpan(first)
		_, e, ok2 := inlineSpan(last)
		if !ok1 || !ok2 {
			return 0, 0, false
		}
		return s - n.Level, e + n.Level, true
	}
	return 0, 0, false
}

// markHeading marks the opening hash run (and any closing hash run) of an ATX heading.
func markHeading(src []byte, n *ast.Heading, drop []bool) {
	lines := n.Lines()
	if lines.Len() == 0 {
		return
	}
	seg := lines.At(0)
	lineStart := bytes.LastIndexByte(src[:seg.Start], '\n') + 1
	prefix := bytes.TrimLeft(src[lineStart:seg.Start], " \t")
	if len(prefix) == 0 || prefix[0] != '#' {
		return
	}
	for i := lineStart; i < seg.Start; i++ {
		drop[i] = true
	}

	contentEnd := seg.Start + len(bytes.TrimRight(src[seg.Start:seg.Stop], " \t"))
	lineEnd := len(src)
	if idx := bytes.IndexByte(src[contentEnd:], '\n'); idx >= 0 {
		lineEnd = contentEnd + idx
	}
	tail := bytes.Trim(src[contentEnd:lineEnd], " \t")
	if len(tail) > 0 && allByte(tail, '#') {
		for i := contentEnd; i < lineEnd; i++ {
			drop[i] = true
		}
	}
}

// markRules marks lines that are only a run of 3+ '-', plus their trailing newline.
func markRules(src []byte, drop []bool) {
	for lineStart := 0; lineStart < len(src); {
		lineEnd := len(src)
		next := len(src)
		if idx := bytes.IndexByte(src[lineStart:], '\n'); idx >= 0 {
			lineEnd = lineStart + idx
			next = lineEnd + 1
		}
		body := bytes.Trim(src[lineStart:lineEnd], " \t")
		if len(body) >= 3 && allByte(body, '-') {
			for i := lineStart; i < next; i++ {
				drop[i] = true
			}
		}
		lineStart = next
	}
}

func allByte(b []byte, c byte) bool {
	for _, x := range b {
		if x != c {
			return false
		}
	}
	return true
}
