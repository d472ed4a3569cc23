package llmcomplete

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// apiKey returns cfg.APIKey, falling back to OPENAI_API_KEY.
func (cfg Config) apiKey() string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// newOpenAIClient returns a client for cfg, or nil if no API key can be found. The library's own retries are disabled; Send retries.
func newOpenAIClient(cfg Config) *openai.Client {
	key := cfg.apiKey()
	if key == "" {
		return nil
	}
	opts := []option.RequestOption{option.WithAPIKey(key), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &client
}

// setRateLimitsFromHeaders reads OpenAI's x-ratelimit-* headers. Missing or malformed counts are 0; missing or malformed resets are now.
func setRateLimitsFromHeaders(rl *RateLimits, h http.Header) {
	if rl == nil || h == nil {
		return
	}
	count := func(name string) int {
		n, err := strconv.Atoi(h.Get(name))
		if err != nil {
			return 0
		}
		return n
	}
	reset := func(name string) time.Time {
		now := time.Now()
		if d, err := time.ParseDuration(h.Get(name)); err == nil {
			return now.Add(d)
		}
		return now
	}

	rl.TokensLimit = count("x-ratelimit-limit-tokens")
	rl.RequestsLimit = count("x-ratelimit-limit-requests")
	rl.TokensRemaining = count("x-ratelimit-remaining-tokens")
	rl.RequestsRemaining = count("x-ratelimit-remaining-requests")
	rl.TokensResetsAt = reset("x-ratelimit-reset-tokens")
	rl.RequestsResetsAt = reset("x-ratelimit-reset-requests")
}

func (c *conversation) openAIParams() (openai.ChatCompletionNewParams, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(c.messages))
	for _, m := range c.messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Text))
		case RoleUser:
			msgs = append(msgs, openai.UserMessage(m.Text))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Text))
		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("unsupported role %s", m.Role)
		}
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.cfg.ModelOrDefault()),
		Messages: msgs,
	}
	if c.cfg.ReasoningEffort != "" {
		params.ReasoningEffort = openai.ReasoningEffort(c.cfg.ReasoningEffort)
	}
	return params, nil
}

// sendOpenAI makes one completion request. On success the reply is appended to the conversation; on failure a ResponseError is recorded on the last user message
// and the returned error is marked with ErrRetryable when another attempt could succeed.
func (c *conversation) sendOpenAI(ctx context.Context) (*Message, error) {
	client := newOpenAIClient(c.cfg)
	if client == nil {
		return nil, ErrNoAPIKey
	}
	params, err := c.openAIParams()
	if err != nil {
		return nil, err
	}

	var httpResp *http.Response
	resp, err := client.Chat.Completions.New(ctx, params, option.WithResponseInto(&httpResp))
	if err != nil {
		return nil, c.recordOpenAIError(err, httpResp)
	}

	reply, err := assistantReply(resp)
	if err != nil {
		return nil, err
	}
	if httpResp != nil {
		setRateLimitsFromHeaders(&reply.ResponseMetadata.RateLimits, httpResp.Header)
	}
	c.messages = append(c.messages, reply)
	return reply, nil
}

// assistantReply converts a completion with exactly one assistant choice into a Message. A refusal is returned as the message text.
func assistantReply(resp *openai.ChatCompletion) (*Message, error) {
	if resp == nil {
		return nil, errors.New("chat completion response is nil")
	}
	if len(resp.Choices) != 1 {
		return nil, fmt.Errorf("unexpected number of choices: %d", len(resp.Choices))
	}
	choice := resp.Choices[0]
	if role := string(choice.Message.Role); role != "assistant" {
		return nil, fmt.Errorf("unexpected reply role: %s", role)
	}

	text := choice.Message.Content
	if text == "" {
		text = choice.Message.Refusal
	}
	md := &ResponseMetadata{
		RequestID:    resp.ID,
		Model:        resp.Model,
		StopReason:   choice.FinishReason,
		TotalTokens:  int(resp.Usage.TotalTokens),
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
	if resp.Usage.JSON.CompletionTokensDetails.Valid() {
		md.ReasoningTokens = int(resp.Usage.CompletionTokensDetails.ReasoningTokens)
	}
	return &Message{Role: RoleAssistant, Text: text, ResponseMetadata: md}, nil
}

// recordOpenAIError appends a ResponseError for err to the last user message and returns err, marked retryable for 429s, 5xxs, and network failures.
// Context cancellation is never retryable.
func (c *conversation) recordOpenAIError(err error, httpResp *http.Response) error {
	re := &ResponseError{Error: err, Message: err.Error()}
	if httpResp != nil {
		setRateLimitsFromHeaders(&re.RateLimits, httpResp.Header)
		re.StatusCode = httpResp.StatusCode
	}
	last := c.LastMessage()
	last.Errors = append(last.Errors, re)

	var apiErr *openai.Error
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr):
		re.Message = apiErr.Message
		re.StatusCode = apiErr.StatusCode
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 && apiErr.StatusCode <= 599 {
			return makeRetryable(err)
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	case errors.As(err, &netErr):
		return makeRetryable(err)
	}
	return err
}
