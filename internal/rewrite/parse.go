package rewrite

import (
	"encoding/json"
	"regexp"
	"strings"
)

// DefaultJustification is reported when the model gives none.
const DefaultJustification = "Edited based on instructions"

var (
	rewrittenFieldRE     = regexp.MustCompile(`"rewritten_text":\s*"([^"]+)"`)
	justificationFieldRE = regexp.MustCompile(`"justification":\s*"([^"]+)"`)
	docBlockRE           = regexp.MustCompile(`(?s)<doc>(.*?)</doc>`)
)

type replyJSON struct {
	RewrittenText *string `json:"rewritten_text"`
	Justification string  `json:"justification"`
}

// ParseReply extracts the rewritten text and justification from a model reply. It tries, in order:
//   - the JSON object spanning the first '{' to the last '}'.
//   - a regex scrape of the "rewritten_text" and "justification" fields (for JSON broken by unescaped characters).
//   - the content of a <doc>...</doc> block.
//   - the whole reply with code fences removed.
//
// The justification is DefaultJustification whenever the reply does not supply one.
func ParseReply(reply string) (rewritten, justification string) {
	content := strings.TrimSpace(reply)

	if first, last := strings.Index(content, "{"), strings.LastIndex(content, "}"); first >= 0 && last > first {
		var parsed replyJSON
		if err := json.Unmarshal([]byte(content[first:last+1]), &parsed); err == nil && parsed.RewrittenText != nil {
			return *parsed.RewrittenText, justificationOrDefault(parsed.Justification)
		}
	}

	if m := rewrittenFieldRE.FindStringSubmatch(content); m != nil {
		justification = DefaultJustification
		if j := justificationFieldRE.FindStringSubmatch(content); j != nil {
			justification = j[1]
		}
		return m[1], justification
	}

	if doc, ok := ExtractDoc(content); ok {
		return doc, DefaultJustification
	}

	stripped := strings.ReplaceAll(content, "```json", "")
	stripped = strings.ReplaceAll(stripped, "```", "")
	return strings.TrimSpace(stripped), DefaultJustification
}

// ExtractDoc returns the trimmed content of the first <doc>...</doc> block in reply. ok is false if there is none.
func ExtractDoc(reply string) (string, bool) {
	m := docBlockRE.FindStringSubmatch(reply)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func justificationOrDefault(j string) string {
	if strings.TrimSpace(j) == "" {
		return DefaultJustification
	}
	return j
}
