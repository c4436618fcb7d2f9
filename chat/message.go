package chat

import (
	"fmt"

	"github.com/google/uuid"
)

// Role identifies the speaker of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the three recognized roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single unit of dialogue: a unique id, a validated role, and
// text content. Role changes go through SetRole or Update, which reject any
// value outside the recognized set and leave the message unchanged.
type Message struct {
	id      string
	role    Role
	content string
}

// NewMessage creates a Message with a fresh id. The role must be valid.
func NewMessage(role Role, content string) (*Message, error) {
	if !role.Valid() {
		return nil, validationError("invalid role %q: must be one of user, assistant, system", role)
	}
	return &Message{id: uuid.NewString(), role: role, content: content}, nil
}

// UserMessage creates a user-role message.
func UserMessage(content string) *Message {
	m, _ := NewMessage(RoleUser, content)
	return m
}

// AssistantMessage creates an assistant-role message.
func AssistantMessage(content string) *Message {
	m, _ := NewMessage(RoleAssistant, content)
	return m
}

func (m *Message) ID() string      { return m.id }
func (m *Message) Role() Role      { return m.role }
func (m *Message) Content() string { return m.content }

// SetRole changes the message role. An invalid role is rejected and the
// previous role is retained.
func (m *Message) SetRole(role Role) error {
	if !role.Valid() {
		return validationError("invalid role %q: must be one of user, assistant, system", role)
	}
	m.role = role
	return nil
}

// SetContent replaces the message content.
func (m *Message) SetContent(content string) {
	m.content = content
}

// Update atomically replaces role and content. If the role is invalid,
// neither field changes.
func (m *Message) Update(role Role, content string) error {
	if err := m.SetRole(role); err != nil {
		return err
	}
	m.content = content
	return nil
}

// Record returns the canonical record form of the message. When includeID is
// false the id field is omitted.
func (m *Message) Record(includeID bool) Record {
	rec := Record{Role: m.role, Content: m.content}
	if includeID {
		rec.ID = m.id
	}
	return rec
}

// Clone returns a copy of the message preserving its id.
func (m *Message) Clone() *Message {
	cp := *m
	return &cp
}

func (m *Message) String() string {
	return fmt.Sprintf("%-11s%s", string(m.role)+":", m.content)
}

// Record is the canonical external representation of a message.
type Record struct {
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// FromRecord rebuilds a Message from its record form. A record without an id
// is assigned a fresh one.
func FromRecord(rec Record) (*Message, error) {
	m, err := NewMessage(rec.Role, rec.Content)
	if err != nil {
		return nil, err
	}
	if rec.ID != "" {
		m.id = rec.ID
	}
	return m, nil
}

// SystemMessage is a Message whose role is pinned to system.
type SystemMessage struct {
	msg Message
}

// NewSystemMessage creates a system message with the given content.
func NewSystemMessage(content string) *SystemMessage {
	return &SystemMessage{msg: Message{id: uuid.NewString(), role: RoleSystem, content: content}}
}

// SystemFromMessage narrows a plain Message into a SystemMessage. The source
// must already have the system role.
func SystemFromMessage(m *Message) (*SystemMessage, error) {
	if m == nil {
		return nil, validationError("message is nil")
	}
	if m.role != RoleSystem {
		return nil, validationError("message role is %q: only system messages can be narrowed", m.role)
	}
	return &SystemMessage{msg: *m}, nil
}

func (s *SystemMessage) ID() string      { return s.msg.id }
func (s *SystemMessage) Role() Role      { return RoleSystem }
func (s *SystemMessage) Content() string { return s.msg.content }

// SetRole accepts only the system role; any other value is rejected and the
// role stays system.
func (s *SystemMessage) SetRole(role Role) error {
	if role != RoleSystem {
		return validationError("role of a system message must be %q, got %q", RoleSystem, role)
	}
	return nil
}

// SetContent replaces the system message content.
func (s *SystemMessage) SetContent(content string) {
	s.msg.content = content
}

// AsMessage widens to a plain Message. The result is a fresh message (new
// id) so later role edits cannot reach back into the SystemMessage.
func (s *SystemMessage) AsMessage() *Message {
	m, _ := NewMessage(RoleSystem, s.msg.content)
	return m
}

// Record returns the canonical record form of the system message.
func (s *SystemMessage) Record(includeID bool) Record {
	return s.msg.Record(includeID)
}

// Clone returns a copy preserving the id.
func (s *SystemMessage) Clone() *SystemMessage {
	cp := *s
	return &cp
}

func (s *SystemMessage) String() string {
	return s.msg.String()
}
