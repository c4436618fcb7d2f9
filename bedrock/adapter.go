// Package bedrock implements chat.Adapter on the AWS Bedrock Converse API.
package bedrock

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/quells-bot/chat-assistants/chat"
)

const provider = "bedrock"

// Converser abstracts the Bedrock Converse call for testing.
type Converser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Adapter submits conversations through the Bedrock Converse API.
type Adapter struct {
	client Converser
	model  string

	maxTokens     *int
	temperature   *float64
	topP          *float64
	stopSequences []string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMaxTokens caps the response length (Converse inference config).
func WithMaxTokens(n int) Option {
	return func(a *Adapter) { a.maxTokens = &n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(a *Adapter) { a.temperature = &t }
}

// WithTopP sets nucleus sampling.
func WithTopP(p float64) Option {
	return func(a *Adapter) { a.topP = &p }
}

// WithStopSequences sets generation stop sequences.
func WithStopSequences(seqs ...string) Option {
	return func(a *Adapter) { a.stopSequences = seqs }
}

// New creates an Adapter bound to a Bedrock client and model.
func New(client Converser, model string, opts ...Option) *Adapter {
	a := &Adapter{client: client, model: model}
	for _, o := range opts {
		o(a)
	}
	return a
}

// FromConversation builds the ConverseInput payload: system message first,
// each exchange's prompt and response in order, then the pending prompt.
func (a *Adapter) FromConversation(conv *chat.Conversation) (any, error) {
	return a.buildInput(conv, chat.CallOptions{}), nil
}

func (a *Adapter) buildInput(conv *chat.Conversation, opts chat.CallOptions) *bedrockruntime.ConverseInput {
	model := a.model
	if m, ok := opts.Options.String("model"); ok {
		model = m
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: strPtr(model),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: conv.System().Content()},
		},
	}

	for _, e := range conv.Exchanges() {
		input.Messages = append(input.Messages,
			converseMessage(types.ConversationRoleUser, e.Prompt().Content()),
			converseMessage(types.ConversationRoleAssistant, e.Response().Content()),
		)
	}
	if p := conv.NextPrompt(); p != nil {
		input.Messages = append(input.Messages, converseMessage(types.ConversationRoleUser, p.Content()))
	}

	maxTokens := a.maxTokens
	if n, ok := opts.Options.Int("max_tokens"); ok {
		maxTokens = &n
	}
	temperature := a.temperature
	if t, ok := opts.Options.Float64("temperature"); ok {
		temperature = &t
	}
	topP := a.topP
	if p, ok := opts.Options.Float64("top_p"); ok {
		topP = &p
	}

	if maxTokens != nil || temperature != nil || topP != nil || len(a.stopSequences) > 0 {
		ic := &types.InferenceConfiguration{}
		if maxTokens != nil {
			v := int32(*maxTokens)
			ic.MaxTokens = &v
		}
		if temperature != nil {
			v := float32(*temperature)
			ic.Temperature = &v
		}
		if topP != nil {
			v := float32(*topP)
			ic.TopP = &v
		}
		if len(a.stopSequences) > 0 {
			ic.StopSequences = a.stopSequences
		}
		input.InferenceConfig = ic
	}

	return input
}

func converseMessage(role types.ConversationRole, text string) types.Message {
	return types.Message{
		Role:    role,
		Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
	}
}

// Call submits the conversation via Converse. The advisory timeout from the
// run driver is enforced here through the context.
func (a *Adapter) Call(ctx context.Context, conv *chat.Conversation, opts chat.CallOptions) (any, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	out, err := a.client.Converse(ctx, a.buildInput(conv, opts))
	if err != nil {
		return nil, classifyError(err)
	}
	if out.StopReason == types.StopReasonModelContextWindowExceeded {
		return nil, &chat.Error{
			Kind:     chat.ErrContextLength,
			Provider: provider,
			Message:  "model context window exceeded",
		}
	}
	return out, nil
}

// ToMessage extracts the assistant reply from a ConverseOutput.
func (a *Adapter) ToMessage(raw any) (*chat.Message, error) {
	out, ok := raw.(*bedrockruntime.ConverseOutput)
	if !ok {
		return nil, &chat.Error{
			Kind:     chat.ErrAdapter,
			Provider: provider,
			Message:  "raw response is not a ConverseOutput",
		}
	}
	msgOut, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, &chat.Error{
			Kind:     chat.ErrAdapter,
			Provider: provider,
			Message:  "unexpected output member type",
		}
	}

	var b strings.Builder
	for _, block := range msgOut.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	return chat.NewMessage(chat.RoleAssistant, b.String())
}

func classifyError(err error) error {
	var kind chat.ErrorKind
	msg := err.Error()
	lower := strings.ToLower(msg)

	var accessDenied *types.AccessDeniedException
	var validation *types.ValidationException
	var notFound *types.ResourceNotFoundException
	var throttling *types.ThrottlingException
	var timeout *types.ModelTimeoutException
	var internal *types.InternalServerException
	var modelErr *types.ModelErrorException

	switch {
	case errors.As(err, &accessDenied):
		kind = chat.ErrAuthentication
	case errors.As(err, &validation):
		// Bedrock reports oversized prompts as validation failures.
		if mentionsContextLength(lower) {
			kind = chat.ErrContextLength
		} else {
			kind = chat.ErrInvalidRequest
		}
	case errors.As(err, &notFound):
		kind = chat.ErrNotFound
	case errors.As(err, &throttling):
		kind = chat.ErrRateLimit
	case errors.As(err, &timeout):
		kind = chat.ErrServer
	case errors.As(err, &internal):
		kind = chat.ErrServer
	case errors.As(err, &modelErr):
		kind = chat.ErrServer
	default:
		switch {
		case mentionsContextLength(lower):
			kind = chat.ErrContextLength
		case strings.Contains(lower, "content filter") || strings.Contains(lower, "guardrail"):
			kind = chat.ErrContentFilter
		default:
			kind = chat.ErrServer
		}
	}

	return &chat.Error{
		Kind:     kind,
		Provider: provider,
		Message:  msg,
		Cause:    err,
	}
}

func mentionsContextLength(lower string) bool {
	return strings.Contains(lower, "context length") ||
		strings.Contains(lower, "context window") ||
		strings.Contains(lower, "too many tokens") ||
		strings.Contains(lower, "input is too long")
}

func strPtr(s string) *string { return &s }
