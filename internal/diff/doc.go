// Package diff computes word-level edit scripts between an "old" and a "new" string.
//
// Representation: A Script holds both normalized inputs and an ordered slice of EditOps. Each op has an Op and a non-empty Text:
//   - OpEqual: text present on both sides
//   - OpDelete: text present only in the old side
//   - OpInsert: text present only in the new side
//
// Ops are consumed strictly in order, left-to-right over both strings simultaneously. Within one change group (the ops between two equal runs), every delete precedes
// every insert, and there is at most one of each.
//
// Invariants:
//   - concat(OpEqual + OpDelete texts) == Script.Old
//   - concat(OpEqual + OpInsert texts) == Script.New
//   - no op has empty Text, and no two adjacent ops share an Op.
//
// Granularity: Tokens are UAX #29 word boundaries (words, runs of whitespace, single punctuation marks), so a changed word is replaced as a whole rather than letter
// by letter. Whitespace or punctuation that sits alone between two changes is folded into them, since it makes a poor search anchor in a live document. Consumers
// should rely on the invariants above rather than any particular chunking.
//
// Getting a script:
//
//	s := diff.DiffWords("The quick brown fox", "The quick red fox")
//	fmt.Println(s) // [EQUAL "The quick " DELETE "brown" INSERT "red" EQUAL " fox"]
//
// Rendering: Script.RenderInline shows the new text with deletions and insertions marked inline, either with wdiff-style markers or ANSI colors.
package diff
