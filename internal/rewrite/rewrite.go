// Package rewrite asks a language model for a minimally edited version of a passage. The result is meant to be fed to redline.Redline, which turns it into tracked
// changes.
package rewrite

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"strings"

	"github.com/codalotl/redline/internal/llmcomplete"
	"github.com/codalotl/redline/internal/q/health"
)

//go:embed prompts/rewrite.md
var promptRewrite string

// DefaultMaxContextTokens bounds Request.Context when Rewriter.MaxContextTokens is zero.
const DefaultMaxContextTokens = 8000

var (
	ErrEmptyText         = errors.New("rewrite: text is empty")
	ErrEmptyInstructions = errors.New("rewrite: instructions are empty")
	ErrEmptyReply        = errors.New("rewrite: empty reply from model")
)

type Request struct {
	Text         string `json:"text"`
	Instructions string `json:"instructions"`
	Context      string `json:"context,omitempty"` // optional reference document (policy, precedent) the rewrite must respect
}

type Suggestion struct {
	Original         string `json:"original"`
	Rewritten        string `json:"rewritten"`
	Justification    string `json:"justification"`
	ContextTruncated bool   `json:"context_truncated,omitempty"`

	Usage llmcomplete.Usage `json:"-"` // summed over the conversation's replies
}

// Rewriter produces Suggestions. NewConversation is required; use llmcomplete.NewFactory for a real model or llmcomplete.NewMockFactory in tests.
type Rewriter struct {
	NewConversation  llmcomplete.Factory
	MaxContextTokens int // <= 0 means DefaultMaxContextTokens
	Logger           *slog.Logger
}

// Suggest asks the model to rewrite req.Text per req.Instructions. The reply is parsed leniently (see ParseReply), so a model that ignores the JSON contract still
// yields a usable suggestion. Suggest does not normalize the rewritten text; redline.Prepare does that.
func (r *Rewriter) Suggest(ctx context.Context, req Request) (Suggestion, error) {
	hc := health.NewCtx(r.Logger)
	if strings.TrimSpace(req.Text) == "" {
		return Suggestion{}, ErrEmptyText
	}
	if strings.TrimSpace(req.Instructions) == "" {
		return Suggestion{}, ErrEmptyInstructions
	}
	if r.NewConversation == nil {
		return Suggestion{}, hc.LogNewErr("rewrite.Suggest: no conversation factory")
	}

	maxTokens := r.MaxContextTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	msg, truncated := userMessage(req, maxTokens)
	if truncated {
		hc.Log("rewrite.context_truncated", "max_tokens", maxTokens)
	}

	conversation := r.NewConversation(promptRewrite)
	conversation.SetLogger(r.Logger)
	conversation.AddUserMessage(msg)
	resp, err := conversation.Send(ctx)
	if err != nil {
		return Suggestion{}, hc.LogWrappedErr("rewrite.Suggest", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return Suggestion{}, ErrEmptyReply
	}

	rewritten, justification := ParseReply(resp.Text)
	return Suggestion{
		Original:         req.Text,
		Rewritten:        rewritten,
		Justification:    justification,
		ContextTruncated: truncated,
		Usage:            llmcomplete.TotalUsage(conversation.Usage()),
	}, nil
}

// userMessage builds the user turn. The reference context, if any, comes first and is cut to maxTokens.
func userMessage(req Request, maxTokens int) (string, bool) {
	var b strings.Builder
	truncated := false
	if ctxText := strings.TrimSpace(req.Context); ctxText != "" {
		ctxText, truncated = llmcomplete.TruncateToTokens(ctxText, maxTokens)
		b.WriteString("Reference Context:\n")
		b.WriteString(ctxText)
		if truncated {
			b.WriteString("\n[context truncated]")
		}
		b.WriteString("\n\n")
	}
	b.WriteString("Here is the user's selected text to rewrite:\n\n[SELECTED_TEXT]\n")
	b.WriteString(req.Text)
	b.WriteString("\n[/SELECTED_TEXT]\n\nINSTRUCTIONS:\n")
	b.WriteString(req.Instructions)
	return b.String(), truncated
}
