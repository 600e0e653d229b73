package external

import (
	"context"
)

// Message is a rendered notification ready for the delivery API.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	IsHTML  bool   `json:"is_html"`
}

// Deliverer sends one rendered message. A nil error means the provider
// accepted it.
type Deliverer interface {
	Send(ctx context.Context, msg Message) error
}
