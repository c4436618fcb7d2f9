package chat

import "encoding/json"

// MessageCollection is an ordered, id-addressable sequence of Messages.
// Insertion order is significant and preserved across serialization.
type MessageCollection struct {
	messages []*Message
}

// NewMessageCollection creates a collection holding the given messages.
func NewMessageCollection(messages ...*Message) *MessageCollection {
	c := &MessageCollection{}
	c.messages = append(c.messages, messages...)
	return c
}

// Create constructs a new Message and appends it.
func (c *MessageCollection) Create(role Role, content string) (*Message, error) {
	m, err := NewMessage(role, content)
	if err != nil {
		return nil, err
	}
	c.messages = append(c.messages, m)
	return m, nil
}

// Add appends an existing message.
func (c *MessageCollection) Add(m *Message) error {
	if m == nil {
		return validationError("cannot add a nil message")
	}
	c.messages = append(c.messages, m)
	return nil
}

// Remove deletes the message by identity. It is an error if the message is
// not a member.
func (c *MessageCollection) Remove(m *Message) error {
	for i, member := range c.messages {
		if member == m {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return nil
		}
	}
	return validationError("message not found")
}

// Get returns the message with the given id. It is an error if no member
// has that id.
func (c *MessageCollection) Get(id string) (*Message, error) {
	for _, m := range c.messages {
		if m.id == id {
			return m, nil
		}
	}
	return nil, validationError("message %q not found", id)
}

// List returns the messages in insertion order. The returned slice is a
// copy; the messages themselves are shared.
func (c *MessageCollection) List() []*Message {
	out := make([]*Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *MessageCollection) Len() int { return len(c.messages) }

// Records returns the record form of every message in order.
func (c *MessageCollection) Records(includeID bool) []Record {
	recs := make([]Record, 0, len(c.messages))
	for _, m := range c.messages {
		recs = append(recs, m.Record(includeID))
	}
	return recs
}

// Serialize encodes the collection as a JSON array of message records.
func (c *MessageCollection) Serialize() ([]byte, error) {
	return json.Marshal(c.Records(true))
}

// Deserialize replaces the collection contents from a JSON array of message
// records. Malformed input or an invalid role is a validation error and
// leaves the collection unchanged.
func (c *MessageCollection) Deserialize(data []byte) error {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return &Error{Kind: ErrValidation, Message: "invalid JSON", Cause: err}
	}
	messages := make([]*Message, 0, len(recs))
	for _, rec := range recs {
		m, err := FromRecord(rec)
		if err != nil {
			return err
		}
		messages = append(messages, m)
	}
	c.messages = messages
	return nil
}
