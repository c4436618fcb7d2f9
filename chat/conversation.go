package chat

import (
	"context"
	"encoding/json"
	"strings"
)

// Conversation is the full ordered dialogue state: a system message, the
// completed exchanges in turn order, and at most one pending prompt.
//
// A Conversation is not safe for concurrent use; callers running multiple
// Runs against the same Conversation must serialize access externally.
type Conversation struct {
	system     *SystemMessage
	exchanges  []*Exchange
	nextPrompt *Message
}

// NewConversation creates a conversation with the given system message and
// optional prior exchanges.
func NewConversation(system *SystemMessage, exchanges ...*Exchange) *Conversation {
	c := &Conversation{system: system}
	c.exchanges = append(c.exchanges, exchanges...)
	return c
}

func (c *Conversation) System() *SystemMessage { return c.system }

// Exchanges returns the completed exchanges in turn order. The slice is a
// copy; the exchanges themselves are shared.
func (c *Conversation) Exchanges() []*Exchange {
	out := make([]*Exchange, len(c.exchanges))
	copy(out, c.exchanges)
	return out
}

func (c *Conversation) NextPrompt() *Message { return c.nextPrompt }

// SetNextPrompt stages the prompt for the next Run. The message must have
// the user role; nil clears the pending prompt.
func (c *Conversation) SetNextPrompt(prompt *Message) error {
	if prompt != nil && prompt.Role() != RoleUser {
		return validationError("next prompt must be a user message, got role %q", prompt.Role())
	}
	c.nextPrompt = prompt
	return nil
}

// Append adds a completed exchange to the end of the conversation.
func (c *Conversation) Append(exchange *Exchange) error {
	if exchange == nil {
		return validationError("exchange is nil")
	}
	c.exchanges = append(c.exchanges, exchange)
	return nil
}

// ConversationRecord is the canonical external representation of a
// conversation.
type ConversationRecord struct {
	SystemMessage Record           `json:"system_message"`
	ChatExchanges []ExchangeRecord `json:"chat_exchanges"`
}

// Record returns the record form of the conversation. The pending prompt is
// transient state and is not part of the canonical form.
func (c *Conversation) Record(includeID bool) ConversationRecord {
	rec := ConversationRecord{
		SystemMessage: c.system.Record(includeID),
		ChatExchanges: make([]ExchangeRecord, 0, len(c.exchanges)),
	}
	for _, e := range c.exchanges {
		rec.ChatExchanges = append(rec.ChatExchanges, e.Record(includeID))
	}
	return rec
}

// Serialize encodes the conversation in its canonical JSON form.
func (c *Conversation) Serialize() ([]byte, error) {
	return json.Marshal(c.Record(true))
}

// Deserialize replaces the conversation state from its canonical JSON form.
// Malformed input is a validation error and leaves the conversation
// unchanged.
func (c *Conversation) Deserialize(data []byte) error {
	var rec ConversationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return &Error{Kind: ErrValidation, Message: "invalid JSON", Cause: err}
	}
	if rec.SystemMessage.Role != RoleSystem {
		return validationError("system_message role is %q, want %q", rec.SystemMessage.Role, RoleSystem)
	}
	system := NewSystemMessage(rec.SystemMessage.Content)
	if rec.SystemMessage.ID != "" {
		system.msg.id = rec.SystemMessage.ID
	}
	exchanges := make([]*Exchange, 0, len(rec.ChatExchanges))
	for _, er := range rec.ChatExchanges {
		e, err := exchangeFromRecord(er)
		if err != nil {
			return err
		}
		exchanges = append(exchanges, e)
	}
	c.system = system
	c.exchanges = exchanges
	c.nextPrompt = nil
	return nil
}

// Clone returns a deep copy of the conversation, preserving message ids.
func (c *Conversation) Clone() *Conversation {
	cp := &Conversation{system: c.system.Clone()}
	cp.exchanges = make([]*Exchange, 0, len(c.exchanges))
	for _, e := range c.exchanges {
		cp.exchanges = append(cp.exchanges, e.Clone())
	}
	if c.nextPrompt != nil {
		cp.nextPrompt = c.nextPrompt.Clone()
	}
	return cp
}

// Run submits the pending prompt through the adapter, retrying recoverable
// failures up to the configured attempt limit. It fails immediately, without
// creating a Run, when no pending prompt is set.
//
// The returned Run reports the outcome through its Status in all but two
// cases: the missing-prompt precondition above, and a context-length
// overflow from the adapter, which is returned as an error because retrying
// the same oversized payload cannot succeed. On success the conversation
// gains one Exchange and the pending prompt is cleared.
func (c *Conversation) Run(ctx context.Context, adapter Adapter, opts ...RunOption) (*Run, error) {
	if c.nextPrompt == nil {
		return nil, validationError("next prompt must be set before running the conversation")
	}

	cfg := defaultRunConfig()
	for _, o := range opts {
		o(&cfg)
	}

	run := newRun(c, adapter, cfg)

	payload, err := adapter.FromConversation(c)
	if err != nil {
		run.Status = StatusFailed
		run.Errors = append(run.Errors, err)
		cfg.logger.Error("adapting submission payload failed", "run_id", run.ID, "error", err)
		return run, err
	}
	run.Payload = payload
	run.Status = StatusPending

	return run.drive(ctx, cfg)
}

func (c *Conversation) String() string {
	var b strings.Builder
	b.WriteString(c.system.String())
	for _, e := range c.exchanges {
		b.WriteString("\n")
		b.WriteString(e.String())
	}
	return b.String()
}
