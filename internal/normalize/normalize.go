package normalize

import "strings"

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

var typography = strings.NewReplacer(
	"\u2018", "'",  // left single quotation mark
	"\u2019", "'",  // right single quotation mark
	"\u201C", `"`,  // left double quotation mark
	"\u201D", `"`,  // right double quotation mark
	"\u2013", "-",  // en dash
	"\u2014", "--", // em dash
	"\u00A0", " ",  // non-breaking space
)

// Fold canonicalizes line endings and folds typographic characters to their ASCII forms. It does not trim.
func Fold(s string) string {
	return typography.Replace(lineEndings.Replace(s))
}

// Text folds s (see Fold) and trims leading/trailing whitespace from the whole string.
func Text(s string) string {
	return strings.TrimSpace(Fold(s))
}

// Original normalizes the original (live document) side of a redline.
func Original(s string) string {
	return Text(s)
}

// Replacement normalizes the replacement side of a redline: fold, strip lightweight markdown, then trim.
func Replacement(s string) string {
	return strings.TrimSpace(StripMarkdown(Fold(s)))
}

// Pair normalizes an original/replacement pair for diffing.
func Pair(original, replacement string) (string, string) {
	return Original(original), Replacement(replacement)
}
