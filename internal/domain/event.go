package domain

import "strconv"

// WebhookBatch is the JSON body of one signed webhook delivery.
type WebhookBatch struct {
	Destination string         `json:"destination,omitempty"`
	Events      []InboundEvent `json:"events"`
}

// InboundEvent is one unit of user activity delivered by the messaging
// transport. It is validated, dispatched and then discarded.
type InboundEvent struct {
	Type           EventType       `json:"type"`
	WebhookEventID string          `json:"webhookEventId,omitempty"`
	Timestamp      int64           `json:"timestamp"` // epoch millis
	ReplyToken     string          `json:"replyToken,omitempty"`
	Source         EventSource     `json:"source"`
	Message        *MessagePayload `json:"message,omitempty"`
	Postback       *PostbackData   `json:"postback,omitempty"`
}

// EventSource identifies the sender of an event.
type EventSource struct {
	Type   string `json:"type,omitempty"`
	UserID string `json:"userId"`
}

// MessagePayload carries the content of a message event.
type MessagePayload struct {
	ID   string      `json:"id"`
	Type MessageType `json:"type"`
	Text string      `json:"text,omitempty"`
}

// PostbackData carries a flat key=value payload from a menu action.
type PostbackData struct {
	Data string `json:"data"`
}

// UserID returns the sender's user id.
func (e *InboundEvent) UserID() string {
	return e.Source.UserID
}

// DedupeKey returns the stable identity of this delivery: the message id
// when present, else the webhook event id, else the event timestamp.
// Redeliveries of the same event carry the same identity.
func (e *InboundEvent) DedupeKey() string {
	if e.Message != nil && e.Message.ID != "" {
		return e.Message.ID
	}
	if e.WebhookEventID != "" {
		return e.WebhookEventID
	}
	return "ts:" + strconv.FormatInt(e.Timestamp, 10)
}
