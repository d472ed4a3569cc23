// Package normalize canonicalizes the two sides of a redline before they are diffed, so cosmetic differences never show up as edits.
//
// Text is applied to both sides. It is pure, total, and idempotent:
//  1. CR LF and lone CR become LF.
//  2. Typographic folding: ‘ ’ → ', “ ” → ", en dash → -, em dash → --, non-breaking space → space.
//  3. Leading and trailing whitespace of the whole string is trimmed (not per line).
//
// Replacement is applied to AI-authored replacement text. It runs steps 1-2, then StripMarkdown, then step 3. StripMarkdown removes asterisk emphasis pairs
// (**bold**, *italic*), leading ATX header markers (### Title), and standalone --- rule lines, leaving all other text byte-for-byte intact.
//
// Normalize both sides with the same steps. Any asymmetry turns into spurious DELETE/INSERT pairs in the edit script.
package normalize
