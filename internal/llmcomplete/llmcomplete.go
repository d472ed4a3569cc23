// llmcomplete is a barebones package for chat completions against OpenAI-compatible endpoints. It purposefully does NOT take advantage of provider-specific features
// (tools, structured output, streaming). It only does text completions, which is all the rewrite service needs.
package llmcomplete

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codalotl/redline/internal/q/health"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o"

// Config selects the model and endpoint for a conversation. Empty APIKey means the OPENAI_API_KEY environment variable is consulted at send time.
type Config struct {
	Model           string
	APIKey          string
	BaseURL         string // ex: "https://api.openai.com/v1/". Empty uses the client library's default.
	ReasoningEffort string // ex: "low". Only sent when non-empty.
}

// ModelOrDefault returns c.Model, or DefaultModel if unset.
func (c Config) ModelOrDefault() string {
	if c.Model == "" {
		return DefaultModel
	}
	return c.Model
}

type Conversation interface {
	LastMessage() *Message
	Messages() []*Message
	AddUserMessage(message string) *Message

	// Send sends the conversation and appends the assistant reply. ctx bounds the whole call, including retries.
	Send(ctx context.Context) (*Message, error)
	LastError() *ResponseError

	// Usage returns usage for all assistant messages.
	Usage() []Usage

	SetLogger(logger *slog.Logger)
}

// Factory creates a conversation seeded with a system message. Callers that need completions depend on a Factory so tests can swap in NewMockFactory.
type Factory func(systemMessage string) Conversation

// NewFactory returns a Factory producing real conversations with cfg.
func NewFactory(cfg Config) Factory {
	return func(systemMessage string) Conversation {
		return NewConversation(cfg, systemMessage)
	}
}

type conversation struct {
	cfg      Config
	messages []*Message
	health.Ctx
}

type Role int

const (
	RoleUser Role = iota
	RoleSystem
	RoleAssistant
)

var roleNames = [...]string{RoleUser: "User", RoleSystem: "System", RoleAssistant: "Assistant"}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return "Unknown"
	}
	return roleNames[r]
}

type Message struct {
	Role             Role
	Text             string
	ResponseMetadata *ResponseMetadata // only set when Role=RoleAssistant
	Errors           []*ResponseError  // only set when Role=RoleUser AND the provider errored or rejected the request
}

type ResponseError struct {
	Error      error // actual error we get from the client library when creating a completion request
	StatusCode int   // HTTP status code
	Message    string
	RateLimits
}

type ResponseMetadata struct {
	RequestID  string // ex: "chatcmpl-BXYJ0U9PpC3uDzeoP2ZN1nBthfnpu"
	Model      string // ex: "gpt-4o-2024-08-06"
	StopReason string // ex: "stop"

	TotalTokens     int
	InputTokens     int
	ReasoningTokens int
	OutputTokens    int // total output tokens (includes reasoning tokens)
	RateLimits
}

type RateLimits struct {
	TokensLimit       int
	RequestsLimit     int
	TokensRemaining   int
	RequestsRemaining int
	TokensResetsAt    time.Time
	RequestsResetsAt  time.Time
}

// Usage captures token information for an assistant message.
type Usage struct {
	Model           string
	TotalTokens     int
	InputTokens     int
	ReasoningTokens int
	OutputTokens    int
	RateLimits
}

// NewConversation returns a conversation that will send to the OpenAI-compatible endpoint described by cfg.
func NewConversation(cfg Config, systemMessage string) Conversation {
	return &conversation{
		cfg: cfg,
		messages: []*Message{
			{Role: RoleSystem, Text: systemMessage},
		},
		Ctx: health.NewCtx(slog.New(slog.DiscardHandler)),
	}
}

// ErrRetryable marks an error as retryable by the caller.
var ErrRetryable = errors.New("llmcomplete: retryable")

// ErrNoAPIKey is returned by Send when neither Config.APIKey nor OPENAI_API_KEY is set.
var ErrNoAPIKey = errors.New("llmcomplete: no API key")

func makeRetryable(err error) error { return fmt.Errorf("%w: %w", ErrRetryable, err) }
func isRetryable(err error) bool    { return errors.Is(err, ErrRetryable) }

// retrySleepDurations' i'th index is the sleep duration for the i'th retry. Any retry after that would use the last value.
var retrySleepDurations = []time.Duration{
	10 * time.Millisecond,
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
}

const retryMaxAttempts = 3

func (c *conversation) Messages() []*Message {
	return c.messages
}

func (c *conversation) LastMessage() *Message {
	return c.messages[len(c.messages)-1]
}

func (c *conversation) AddUserMessage(message string) *Message {
	m := &Message{
		Role: RoleUser,
		Text: message,
	}
	c.messages = append(c.messages, m)
	return m
}

// validateForSend checks the message shape every backend expects: a system message first and a user message last.
func (c *conversation) validateForSend() error {
	if len(c.messages) < 2 {
		return c.LogNewErr("in order to send, the Conversation must contain a system and user message")
	}
	if c.messages[0].Role != RoleSystem {
		return c.LogNewErr("in order to send, the first message in the Conversation must be a system message")
	}
	if c.LastMessage().Role != RoleUser {
		return c.LogNewErr("in order to send, the last message in the Conversation must be a user message")
	}
	return nil
}

// Send sends the conversation to the model to get a RoleAssistant response message. The last message in Messages MUST be a UserMessage. If the request errors out,
// an error is returned. Additionally, the last UserMessage will contain details in a ResponseError struct.
func (c *conversation) Send(ctx context.Context) (*Message, error) {
	if err := c.validateForSend(); err != nil {
		return nil, err
	}
	lastUserMessage := c.LastMessage()

	for _, m := range c.messagesSinceLastReply() {
		txtLen := len(m.Text)
		c.Log("conversation.message", "model", c.cfg.ModelOrDefault(), "role", m.Role, "bytes", txtLen, "toks", tokenEstimate(txtLen))
	}

	var newMessage *Message
	var err error
	for attempt := 1; attempt <= retryMaxAttempts; attempt++ {
		newMessage, err = c.sendOpenAI(ctx)
		if err == nil || !isRetryable(err) || attempt == retryMaxAttempts || ctx.Err() != nil {
			break
		}

		sleep := retrySleepDurations[len(retrySleepDurations)-1]
		if attempt-1 < len(retrySleepDurations) {
			sleep = retrySleepDurations[attempt-1]
		}
		c.Log("conversation.retry", "attempt", attempt, "max", retryMaxAttempts, "sleep", sleep, "err", err.Error())
		if sleepErr := sleepCtx(ctx, sleep); sleepErr != nil {
			err = sleepErr
			break
		}
	}

	if err != nil {
		return nil, c.LogWrappedErr("conversation.send", err, "attempts", len(lastUserMessage.Errors))
	}

	c.Log("conversation.response", "role", newMessage.Role, "bytes", len(newMessage.Text))
	usages := c.Usage()
	if len(usages) > 0 {
		c.Log("conversation.usage", usages[len(usages)-1].LogPairs()...)
	}
	return newMessage, nil
}

// messagesSinceLastReply returns the messages after the last assistant message (or all of them if there is none).
func (c *conversation) messagesSinceLastReply() []*Message {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleAssistant {
			return c.messages[i+1:]
		}
	}
	return c.messages
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Returns nil if the last message isn't a User message with an error. Otherwise, returns the last element in Errors.
func (c *conversation) LastError() *ResponseError {
	lastMsg := c.LastMessage()
	if lastMsg.Role == RoleUser && len(lastMsg.Errors) > 0 {
		return lastMsg.Errors[len(lastMsg.Errors)-1]
	}
	return nil
}

func (c *conversation) Usage() []Usage {
	var usages []Usage
	for _, m := range c.messages {
		if m.Role == RoleAssistant && m.ResponseMetadata != nil {
			usages = append(usages, m.ResponseMetadata.usage())
		}
	}
	return usages
}

func (md *ResponseMetadata) usage() Usage {
	return Usage{
		Model:           md.Model,
		TotalTokens:     md.TotalTokens,
		InputTokens:     md.InputTokens,
		ReasoningTokens: md.ReasoningTokens,
		OutputTokens:    md.OutputTokens,
		RateLimits:      md.RateLimits,
	}
}

// String renders u as space-separated key=value pairs, in LogPairs order.
func (u Usage) String() string {
	pairs := u.LogPairs()
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%v", pairs[i], pairs[i+1]))
	}
	return strings.Join(parts, " ")
}

// LogPairs returns alternating keys and values for slog.
func (u Usage) LogPairs() []any {
	rl := u.RateLimits
	return []any{
		"model", u.Model,
		"tokens", u.TotalTokens,
		"in", u.InputTokens,
		"reasoning", u.ReasoningTokens,
		"out", u.OutputTokens,
		"token_limits", fmt.Sprintf("%d/%d", rl.TokensRemaining, rl.TokensLimit),
		"request_limits", fmt.Sprintf("%d/%d", rl.RequestsRemaining, rl.RequestsLimit),
	}
}

// TotalUsage sums usages. Model and RateLimits come from the last element.
func TotalUsage(usages []Usage) Usage {
	var total Usage
	for _, u := range usages {
		total.TotalTokens += u.TotalTokens
		total.InputTokens += u.InputTokens
		total.ReasoningTokens += u.ReasoningTokens
		total.OutputTokens += u.OutputTokens
	}
	if len(usages) > 0 {
		total.Model = usages[len(usages)-1].Model
		total.RateLimits = usages[len(usages)-1].RateLimits
	}
	return total
}

func (c *conversation) SetLogger(logger *slog.Logger) {
	c.Logger = logger
}

// English prose is roughly 4 bytes per token. Only used for log lines; CountTokens is exact.
func tokenEstimate(byteCount int) int {
	return byteCount / 4
}
