package llmcomplete

import (
	"context"
	"fmt"
	"strings"
)

type mockConversation struct {
	conversation
	responses map[string]string // keyword in the user message -> assistant reply
}

var _ Conversation = (*mockConversation)(nil) // ensure mockConversation is a Conversation

// NewMockConversation returns a mock conversation that replies with the value for any key contained (case-insensitively) in the last user message. When several
// keys match, the longest wins, so replies are deterministic.
func NewMockConversation(systemMessage string, responses map[string]string) Conversation {
	return &mockConversation{
		conversation: conversation{
			cfg: Config{Model: "mock"},
			messages: []*Message{
				{Role: RoleSystem, Text: systemMessage},
			},
		},
		responses: responses,
	}
}

// NewMockFactory returns a Factory producing mock conversations sharing responses.
func NewMockFactory(responses map[string]string) Factory {
	return func(systemMessage string) Conversation {
		return NewMockConversation(systemMessage, responses)
	}
}

// Send checks the last user message for any keyword in responses and returns the associated reply.
func (c *mockConversation) Send(ctx context.Context) (*Message, error) {
	if err := c.validateForSend(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lastUserMessage := c.LastMessage()
	lower := strings.ToLower(lastUserMessage.Text)

	bestKey, found := "", false
	for k := range c.responses {
		if strings.Contains(lower, strings.ToLower(k)) && (!found || len(k) > len(bestKey) || (len(k) == len(bestKey) && k < bestKey)) {
			bestKey, found = k, true
		}
	}
	if !found {
		err := fmt.Errorf("no mock response for %q", lastUserMessage.Text)
		lastUserMessage.Errors = append(lastUserMessage.Errors, &ResponseError{Error: err, Message: err.Error()})
		return nil, err
	}

	reply := c.responses[bestKey]
	m := &Message{
		Role: RoleAssistant,
		Text: reply,
		ResponseMetadata: &ResponseMetadata{
			Model:        "mock",
			StopReason:   "stop",
			InputTokens:  len(lastUserMessage.Text) / 4,
			OutputTokens: len(reply) / 4,
		},
	}
	m.ResponseMetadata.TotalTokens = m.ResponseMetadata.InputTokens + m.ResponseMetadata.OutputTokens
	c.messages = append(c.messages, m)
	return m, nil
}
