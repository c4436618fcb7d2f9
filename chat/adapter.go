package chat

import (
	"context"
	"time"
)

// Adapter translates between the core data model and a specific LLM
// provider's wire format, and performs the actual submission. Implementations
// hold their own configuration; the core never inspects the payload or raw
// response values it passes through.
type Adapter interface {
	// FromConversation produces the provider submission payload from the
	// full conversation: system message, every exchange in order, and the
	// pending prompt when present. It must not mutate the conversation.
	FromConversation(conv *Conversation) (any, error)

	// ToMessage translates a raw provider response into an assistant
	// Message. A response lacking the expected shape fails with an
	// ErrAdapter error.
	ToMessage(raw any) (*Message, error)

	// Call performs the network submission and returns the raw provider
	// response. A token/context-limit overflow must be reported as an
	// ErrContextLength error so the run driver can treat it as fatal.
	Call(ctx context.Context, conv *Conversation, opts CallOptions) (any, error)
}

// CallOptions carries per-call data from the run driver to the adapter.
type CallOptions struct {
	// Timeout is advisory: the driver records it per attempt but leaves
	// enforcement to the adapter.
	Timeout time.Duration

	// Options holds adapter-specific knobs (model, temperature, penalties,
	// and so on). The set of recognized keys is defined by each adapter.
	Options Options
}

// Options provides typed access to adapter-specific call options.
type Options map[string]any

// String returns the string value for the given key.
func (o Options) String(name string) (string, bool) {
	v, ok := o[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float64 returns the float64 value for the given key.
func (o Options) Float64(name string) (float64, bool) {
	v, ok := o[name]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Int returns the value for the given key as an int.
func (o Options) Int(name string) (int, bool) {
	switch v := o[name].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Bool returns the boolean value for the given key.
func (o Options) Bool(name string) (bool, bool) {
	v, ok := o[name]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
