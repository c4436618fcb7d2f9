package chat

import "fmt"

// Exchange pairs one user prompt with its assistant response. The role
// pairing is enforced at construction and on every reassignment.
type Exchange struct {
	prompt   *Message
	response *Message
}

// NewExchange creates a validated prompt/response pair.
func NewExchange(prompt, response *Message) (*Exchange, error) {
	e := &Exchange{}
	if err := e.SetPrompt(prompt); err != nil {
		return nil, err
	}
	if err := e.SetResponse(response); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Exchange) Prompt() *Message   { return e.prompt }
func (e *Exchange) Response() *Message { return e.response }

// SetPrompt replaces the prompt. The message must have the user role.
func (e *Exchange) SetPrompt(prompt *Message) error {
	if prompt == nil {
		return validationError("prompt is nil")
	}
	if prompt.Role() != RoleUser {
		return validationError("prompt must be a user message, got role %q", prompt.Role())
	}
	e.prompt = prompt
	return nil
}

// SetResponse replaces the response. The message must have the assistant role.
func (e *Exchange) SetResponse(response *Message) error {
	if response == nil {
		return validationError("response is nil")
	}
	if response.Role() != RoleAssistant {
		return validationError("response must be an assistant message, got role %q", response.Role())
	}
	e.response = response
	return nil
}

// ExchangeRecord is the canonical external representation of an exchange.
type ExchangeRecord struct {
	Prompt   Record `json:"prompt"`
	Response Record `json:"response"`
}

// Record returns the record form of the exchange.
func (e *Exchange) Record(includeID bool) ExchangeRecord {
	return ExchangeRecord{
		Prompt:   e.prompt.Record(includeID),
		Response: e.response.Record(includeID),
	}
}

func exchangeFromRecord(rec ExchangeRecord) (*Exchange, error) {
	prompt, err := FromRecord(rec.Prompt)
	if err != nil {
		return nil, err
	}
	response, err := FromRecord(rec.Response)
	if err != nil {
		return nil, err
	}
	return NewExchange(prompt, response)
}

// Clone returns a deep copy of the exchange, preserving message ids.
func (e *Exchange) Clone() *Exchange {
	return &Exchange{prompt: e.prompt.Clone(), response: e.response.Clone()}
}

func (e *Exchange) String() string {
	return fmt.Sprintf("%s\n%s", e.prompt, e.response)
}
