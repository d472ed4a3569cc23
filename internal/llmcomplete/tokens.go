package llmcomplete

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// getCodec returns the o200k_base codec used by all current OpenAI chat models.
func getCodec() tokenizer.Codec {
	codecOnce.Do(func() {
		enc, err := tokenizer.Get(tokenizer.O200kBase)
		if err != nil {
			panic(fmt.Errorf("invalid encoder: %v", tokenizer.O200kBase))
		}
		codec = enc
	})
	return codec
}

// CountTokens returns the token count for text. If the tokenizer fails, it falls back to a bytes/4 estimate.
func CountTokens(text string) int {
	count, err := getCodec().Count(text)
	if err != nil {
		return tokenEstimate(len(text))
	}
	return count
}

// TruncateToTokens returns the longest prefix of text that is at most maxTokens tokens, and whether anything was cut. maxTokens <= 0 means no limit.
func TruncateToTokens(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 || text == "" {
		return text, false
	}
	ids, _, err := getCodec().Encode(text)
	if err != nil {
		// Estimate instead: 4 bytes per token.
		if len(text) <= maxTokens*4 {
			return text, false
		}
		return strings.ToValidUTF8(text[:maxTokens*4], ""), true
	}
	if len(ids) <= maxTokens {
		return text, false
	}
	prefix, err := getCodec().Decode(ids[:maxTokens])
	if err != nil {
		return strings.ToValidUTF8(text[:min(len(text), maxTokens*4)], ""), true
	}
	// A token boundary may split a multi-byte rune.
	return strings.TrimRight(strings.ToValidUTF8(prefix, ""), "�"), true
}
