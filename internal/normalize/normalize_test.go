package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "crlf", in: "a\r\nb", want: "a\nb"},
		{name: "lone cr", in: "a\rb\r\nc", want: "a\nb\nc"},
		{name: "smart single quotes", in: "‘it’s’", want: "'it's'"},
		{name: "smart double quotes", in: "“quoted”", want: `"quoted"`},
		{name: "en dash", in: "pages 1–2", want: "pages 1-2"},
		{name: "em dash", in: "wait—what", want: "wait--what"},
		{name: "nbsp", in: "Section\u00a04", want: "Section 4"},
		{name: "trim whole string only", in: "  \n a \n b  \n", want: "a \n b"},
		{name: "nbsp at edges is trimmed", in: "\u00a0x\u00a0", want: "x"},
		{name: "markdown is untouched", in: "**bold**", want: "**bold**"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestText_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"plain",
		"\r\n\r\n",
		"“Hello,” she said — ‘twice’.\r\n",
		"  lead and trail \r",
		"a–b—c\r\rd",
		"---\n**x**\n### y",
	}
	for _, in := range inputs {
		once := Text(in)
		require.Equal(t, once, Text(once), "input %q", in)
	}
}

func TestReplacement(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bold", in: "The **quick** fox", want: "The quick fox"},
		{name: "italic", in: "The *quick* fox", want: "The quick fox"},
		{name: "bold italic", in: "***very*** important", want: "very important"},
		{name: "nested", in: "*a **b** c*", want: "a b c"},
		{name: "header", in: "### Section 4\nBody text.", want: "Section 4\nBody text."},
		{name: "header with closing hashes", in: "## Title ##\nx", want: "Title\nx"},
		{name: "rule", in: "Para one.\n---\nPara two.", want: "Para one.\nPara two."},
		{name: "long rule with spaces", in: "a\n  -----  \nb", want: "a\nb"},
		{name: "unpaired asterisk kept", in: "2 * 3 = 6", want: "2 * 3 = 6"},
		{name: "underscore kept", in: "snake_case_name and _x_", want: "snake_case_name and _x_"},
		{name: "indented line still stripped", in: "    the **Seller** shall", want: "the Seller shall"},
		{name: "list item emphasis", in: "- the **Buyer**\n- the Seller", want: "- the Buyer\n- the Seller"},
		{name: "typography folded and trimmed", in: "  “**Agreement**” means… ", want: "\"Agreement\" means…"},
		{name: "dashes inside text kept", in: "well--known", want: "well--known"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Replacement(tt.in))
		})
	}
}

func TestReplacement_NoAsterisksAfterStrip(t *testing.T) {
	got := Replacement("The parties agree that **all** fees are *non-refundable*.")
	assert.NotContains(t, got, "*")
	assert.Equal(t, "The parties agree that all fees are non-refundable.", got)
}

func TestPair_ApostropheFolding(t *testing.T) {
	orig, repl := Pair("The Seller’s obligations", "The Seller's obligations")
	assert.Equal(t, orig, repl)
}

func TestStripMarkdown_DoesNotTrim(t *testing.T) {
	assert.Equal(t, "  x  ", StripMarkdown("  **x**  "))
}
