package diff

import "strings"

// Colors (ANSI) for inline output.
const (
	reset     = "\x1b[0m"
	blackFG   = "\x1b[30m"
	pinkSpan  = "\x1b[48;5;217m" // deleted text
	greenSpan = "\x1b[48;5;114m" // inserted text
	strike    = "\x1b[9m"
)

// RenderInline returns s as a single running text in which deleted text is marked "[-like this-]" and inserted text "{+like this+}".
//
// If color is true, markers are replaced by ANSI sequences: deletions are struck through on a pink background and insertions are on a green background. Equal
// text is emitted unchanged, so stripping the markup from the colorless form and dropping the "[-...-]" runs yields s.New.
func (s Script) RenderInline(color bool) string {
	var b strings.Builder
	for _, op := range s.Ops {
		switch op.Op {
		case OpEqual:
			b.WriteString(op.Text)
		case OpDelete:
			if color {
				b.WriteString(blackFG + pinkSpan + strike)
				b.WriteString(op.Text)
				b.WriteString(reset)
			} else {
				b.WriteString("[-")
				b.WriteString(op.Text)
				b.WriteString("-]")
			}
		case OpInsert:
			if color {
				b.WriteString(blackFG + greenSpan)
				b.WriteString(op.Text)
				b.WriteString(reset)
			} else {
				b.WriteString("{+")
				b.WriteString(op.Text)
				b.WriteString("+}")
			}
		}
	}
	return b.String()
}
