// Package messenger is the client for the messaging platform: replies,
// pushes, the loading indicator and media content downloads.
package messenger

// Message is one outbound message object.
type Message struct {
	Type       string      `json:"type"` // "text" | "card"
	Text       string      `json:"text,omitempty"`
	Card       *Card       `json:"card,omitempty"`
	QuickReply *QuickReply `json:"quickReply,omitempty"`
}

// Card is a structured card: title, optional image, a fixed grid of
// numeric metrics and an optional free-text advisory block.
type Card struct {
	Title    string   `json:"title"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Metrics  []Metric `json:"metrics,omitempty"`
	Advisory string   `json:"advisory,omitempty"`
}

// Metric is one labelled value in a card's metric grid.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// QuickReply is the enumerated next-action menu attached to a message.
type QuickReply struct {
	Items []QuickReplyItem `json:"items"`
}

// QuickReplyItem is one choice in a quick-reply menu.
type QuickReplyItem struct {
	Type   string         `json:"type"` // always "action"
	Action PostbackAction `json:"action"`
}

// PostbackAction is a menu choice that posts a flat key=value payload back.
type PostbackAction struct {
	Type  string `json:"type"` // always "postback"
	Label string `json:"label"`
	Data  string `json:"data"`
}

// NewText builds a plain text message.
func NewText(text string) Message {
	return Message{Type: "text", Text: text}
}

// NewCard builds a card message.
func NewCard(card Card) Message {
	return Message{Type: "card", Card: &card}
}

// WithMenu attaches a quick-reply menu built from label/data pairs given
// in order. Odd-length input drops the trailing label.
func (m Message) WithMenu(labelData ...string) Message {
	var items []QuickReplyItem
	for i := 0; i+1 < len(labelData); i += 2 {
		items = append(items, QuickReplyItem{
			Type: "action",
			Action: PostbackAction{
				Type:  "postback",
				Label: labelData[i],
				Data:  labelData[i+1],
			},
		})
	}
	if len(items) == 0 {
		return m
	}
	m.QuickReply = &QuickReply{Items: items}
	return m
}
