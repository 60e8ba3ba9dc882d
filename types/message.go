package types

import "time"

// MessageType classifies messages exchanged between agents.
type MessageType string

const (
	MessageRequest      MessageType = "request"
	MessageResponse     MessageType = "response"
	MessageReview       MessageType = "review"
	MessageNotification MessageType = "notification"
	MessageRevision     MessageType = "revision"
	MessageUserInput    MessageType = "user_input"
)

// Broadcast is the reserved receiver name that fans a message out to every
// subscribed participant except the sender. It is not a real participant and
// must never be subscribed on the bus.
const Broadcast = "broadcast"

// Message is a structured envelope exchanged between agents over the bus.
type Message struct {
	ID            string         `json:"id"`
	Sender        string         `json:"sender"`
	Receiver      string         `json:"receiver"`
	Type          MessageType    `json:"msg_type"`
	Content       map[string]any `json:"content"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// NewMessage creates a message with a fresh ID and timestamp.
func NewMessage(sender, receiver string, msgType MessageType, content map[string]any) Message {
	return Message{
		ID:        ShortID(12),
		Sender:    sender,
		Receiver:  receiver,
		Type:      msgType,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// Reply builds a response to this message: sender and receiver are swapped
// and the reply is correlated to this message's ID. An empty msgType defaults
// to MessageResponse.
func (m Message) Reply(content map[string]any, msgType MessageType) Message {
	if msgType == "" {
		msgType = MessageResponse
	}
	reply := NewMessage(m.Receiver, m.Sender, msgType, content)
	reply.CorrelationID = m.ID
	return reply
}
