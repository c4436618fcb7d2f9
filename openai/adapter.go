// Package openai implements chat.Adapter for the OpenAI Chat Completions
// format, delivered through Bedrock's InvokeModel transport.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/quells-bot/chat-assistants/chat"
)

const provider = "openai"

// Invoker abstracts the Bedrock InvokeModel call for testing.
type Invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Adapter submits conversations in the Chat Completions wire format.
type Adapter struct {
	client Invoker
	model  string

	temperature       *float64
	topP              *float64
	frequencyPenalty  *float64
	presencePenalty   *float64
	maxPromptTokens   int
	maxResponseTokens *int
	responseFormat    string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(a *Adapter) { a.temperature = &t }
}

// WithTopP sets nucleus sampling.
func WithTopP(p float64) Option {
	return func(a *Adapter) { a.topP = &p }
}

// WithFrequencyPenalty sets the frequency penalty.
func WithFrequencyPenalty(p float64) Option {
	return func(a *Adapter) { a.frequencyPenalty = &p }
}

// WithPresencePenalty sets the presence penalty.
func WithPresencePenalty(p float64) Option {
	return func(a *Adapter) { a.presencePenalty = &p }
}

// WithMaxPromptTokens caps the estimated size of the submission. A payload
// over the budget fails with ErrContextLength before any network call. The
// estimate is bytes/4, a rough stand-in for a tokenizer.
func WithMaxPromptTokens(n int) Option {
	return func(a *Adapter) { a.maxPromptTokens = n }
}

// WithMaxResponseTokens caps the response length (wire max_tokens).
func WithMaxResponseTokens(n int) Option {
	return func(a *Adapter) { a.maxResponseTokens = &n }
}

// WithResponseFormat sets the response_format type, e.g. "json_object".
func WithResponseFormat(format string) Option {
	return func(a *Adapter) { a.responseFormat = format }
}

// New creates an Adapter bound to a Bedrock client and model.
func New(client Invoker, model string, opts ...Option) *Adapter {
	a := &Adapter{client: client, model: model}
	for _, o := range opts {
		o(a)
	}
	return a
}

// FromConversation flattens the conversation into the ordered
// [{role, content}] list the Chat Completions API expects: system message,
// each exchange's prompt and response, then the pending prompt.
func (a *Adapter) FromConversation(conv *chat.Conversation) (any, error) {
	records := []chat.Record{conv.System().Record(false)}
	for _, e := range conv.Exchanges() {
		records = append(records, e.Prompt().Record(false), e.Response().Record(false))
	}
	if p := conv.NextPrompt(); p != nil {
		records = append(records, p.Record(false))
	}
	return records, nil
}

// ToConversation rebuilds a Conversation from a flat message list: a system
// message first, then complete prompt/response pairs, with an optional
// trailing user message becoming the pending prompt.
func ToConversation(records []chat.Record) (*chat.Conversation, error) {
	if len(records) < 1 {
		return nil, &chat.Error{Kind: chat.ErrValidation, Provider: provider,
			Message: "message list is empty"}
	}
	if records[0].Role != chat.RoleSystem {
		return nil, &chat.Error{Kind: chat.ErrValidation, Provider: provider,
			Message: "first message must have the system role, got " + string(records[0].Role)}
	}

	rest := records[1:]
	var pending *chat.Record
	if len(rest)%2 == 1 {
		pending = &rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}

	conv := chat.NewConversation(chat.NewSystemMessage(records[0].Content))
	for i := 0; i < len(rest); i += 2 {
		prompt, err := chat.FromRecord(rest[i])
		if err != nil {
			return nil, err
		}
		response, err := chat.FromRecord(rest[i+1])
		if err != nil {
			return nil, err
		}
		exchange, err := chat.NewExchange(prompt, response)
		if err != nil {
			return nil, err
		}
		if err := conv.Append(exchange); err != nil {
			return nil, err
		}
	}
	if pending != nil {
		prompt, err := chat.FromRecord(*pending)
		if err != nil {
			return nil, err
		}
		if err := conv.SetNextPrompt(prompt); err != nil {
			return nil, err
		}
	}
	return conv, nil
}

// --- Chat Completions wire types ---

type completionRequest struct {
	Model            string         `json:"model"`
	Messages         []chat.Record  `json:"messages"`
	Temperature      *float64       `json:"temperature,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	ResponseFormat   map[string]any `json:"response_format,omitempty"`
}

type completionResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []completionChoice `json:"choices"`
	Usage   completionUsage    `json:"usage"`
}

type completionChoice struct {
	Index        int               `json:"index"`
	Message      completionRespMsg `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type completionRespMsg struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type completionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Call serializes the conversation, enforces the prompt-token budget, and
// submits via InvokeModel. The advisory timeout from the run driver is
// enforced here through the context.
func (a *Adapter) Call(ctx context.Context, conv *chat.Conversation, opts chat.CallOptions) (any, error) {
	payload, _ := a.FromConversation(conv)
	records := payload.([]chat.Record)

	model := a.model
	if m, ok := opts.Options.String("model"); ok {
		model = m
	}

	req := completionRequest{
		Model:            model,
		Messages:         records,
		Temperature:      a.temperature,
		TopP:             a.topP,
		FrequencyPenalty: a.frequencyPenalty,
		PresencePenalty:  a.presencePenalty,
		MaxTokens:        a.maxResponseTokens,
	}
	if t, ok := opts.Options.Float64("temperature"); ok {
		req.Temperature = &t
	}
	if p, ok := opts.Options.Float64("top_p"); ok {
		req.TopP = &p
	}
	if n, ok := opts.Options.Int("max_response_tokens"); ok {
		req.MaxTokens = &n
	}
	format := a.responseFormat
	if f, ok := opts.Options.String("response_format"); ok {
		format = f
	}
	if format != "" {
		req.ResponseFormat = map[string]any{"type": format}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &chat.Error{Kind: chat.ErrAdapter, Provider: provider,
			Message: "failed to marshal request", Cause: err}
	}

	budget := a.maxPromptTokens
	if n, ok := opts.Options.Int("max_prompt_tokens"); ok {
		budget = n
	}
	if budget > 0 {
		if est := estimateTokens(records); est > budget {
			return nil, &chat.Error{
				Kind:     chat.ErrContextLength,
				Provider: provider,
				Message:  fmt.Sprintf("submission estimated at %d tokens exceeds budget of %d", est, budget),
			}
		}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	out, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &model,
		Body:        body,
		ContentType: strPtr("application/json"),
		Accept:      strPtr("application/json"),
	})
	if err != nil {
		return nil, classifyError(err)
	}
	return out.Body, nil
}

// ToMessage parses the Chat Completions response body into an assistant
// message.
func (a *Adapter) ToMessage(raw any) (*chat.Message, error) {
	body, ok := raw.([]byte)
	if !ok {
		return nil, &chat.Error{Kind: chat.ErrAdapter, Provider: provider,
			Message: "raw response is not a byte slice"}
	}
	var cr completionResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, &chat.Error{Kind: chat.ErrAdapter, Provider: provider,
			Message: "failed to unmarshal response", Cause: err, Raw: body}
	}
	if len(cr.Choices) == 0 {
		return nil, &chat.Error{Kind: chat.ErrAdapter, Provider: provider,
			Message: "response has no choices", Raw: body}
	}
	msg := cr.Choices[0].Message
	if msg.Content == nil {
		return nil, &chat.Error{Kind: chat.ErrAdapter, Provider: provider,
			Message: "response message has no content", Raw: body}
	}
	role := chat.Role(msg.Role)
	if role == "" {
		role = chat.RoleAssistant
	}
	return chat.NewMessage(role, *msg.Content)
}

// estimateTokens approximates the token count of the flattened messages.
// Four bytes per token is a coarse rule of thumb; callers needing exact
// budgets should size maxPromptTokens conservatively.
func estimateTokens(records []chat.Record) int {
	data, err := json.Marshal(records)
	if err != nil {
		return 0
	}
	return len(data) / 4
}

func classifyError(err error) error {
	var kind chat.ErrorKind
	msg := err.Error()
	lower := strings.ToLower(msg)

	var accessDenied *types.AccessDeniedException
	var validation *types.ValidationException
	var notFound *types.ResourceNotFoundException
	var throttling *types.ThrottlingException
	var internal *types.InternalServerException

	switch {
	case errors.As(err, &accessDenied):
		kind = chat.ErrAuthentication
	case errors.As(err, &validation):
		if strings.Contains(lower, "token") || strings.Contains(lower, "context") {
			kind = chat.ErrContextLength
		} else {
			kind = chat.ErrInvalidRequest
		}
	case errors.As(err, &notFound):
		kind = chat.ErrNotFound
	case errors.As(err, &throttling):
		kind = chat.ErrRateLimit
	case errors.As(err, &internal):
		kind = chat.ErrServer
	default:
		switch {
		case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
			kind = chat.ErrContextLength
		case strings.Contains(lower, "content filter"):
			kind = chat.ErrContentFilter
		default:
			kind = chat.ErrServer
		}
	}

	return &chat.Error{Kind: kind, Provider: provider, Message: msg, Cause: err}
}

func strPtr(s string) *string { return &s }
