package domain

import "time"

// Message is a direct message between two users. Sender, receiver, body and
// creation time never change; the delete flags only ever go from false to true.
type Message struct {
	ID                 string
	Seq                int64
	SenderID           string
	ReceiverID         string
	Body               string
	DeletedForSender   bool
	DeletedForReceiver bool
	CreatedAt          time.Time
}

// Involves reports whether userID is the sender or the receiver.
func (m Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// VisibleTo reports whether userID still sees the message on their side.
func (m Message) VisibleTo(userID string) bool {
	switch userID {
	case m.SenderID:
		return !m.DeletedForSender
	case m.ReceiverID:
		return !m.DeletedForReceiver
	}
	return false
}

// Before orders messages by creation time, then by insertion sequence.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.Seq < other.Seq
}
