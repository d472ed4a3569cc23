package llmcomplete

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockConversation(t *testing.T) {
	tests := []struct {
		name        string
		responses   map[string]string
		userMessage string
		wantReply   string
		wantErr     bool
	}{
		{
			name:        "keyword match",
			responses:   map[string]string{"hello": "Hi there!"},
			userMessage: "hello world",
			wantReply:   "Hi there!",
		},
		{
			name:        "case insensitive",
			responses:   map[string]string{"HeLLo": "Hi there!"},
			userMessage: "HELLO",
			wantReply:   "Hi there!",
		},
		{
			name:        "longest key wins",
			responses:   map[string]string{"fox": "short", "quick fox": "long"},
			userMessage: "the quick fox",
			wantReply:   "long",
		},
		{
			name:        "no match",
			responses:   map[string]string{"hello": "Hi there!"},
			userMessage: "goodbye",
			wantErr:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMockFactory(tt.responses)("You are a helpful assistant")
			require.Len(t, c.Messages(), 1)
			assert.Equal(t, RoleSystem, c.Messages()[0].Role)

			c.AddUserMessage(tt.userMessage)
			m, err := c.Send(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, m)
				require.NotNil(t, c.LastError())
				assert.Contains(t, c.LastError().Message, tt.userMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, RoleAssistant, m.Role)
			assert.Equal(t, tt.wantReply, m.Text)
			assert.Len(t, c.Usage(), 1)
		})
	}
}

func TestMockConversation_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewMockConversation("sys", map[string]string{"a": "b"})
	c.AddUserMessage("a")
	_, err := c.Send(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
