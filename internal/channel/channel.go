// Package channel delivers one message to one phone number.
package channel

import (
	"context"
	"fmt"
)

// Message is everything a channel needs for one recipient.
type Message struct {
	Phone        string
	Name         string
	Body         string
	TrackingLink string
	Image        []byte
}

// Delivery describes a successful send.
type Delivery struct {
	// Channel is the service that finally carried the message, e.g. "iMessage" or "SMS".
	Channel string
	// Status is a human-readable confirmation line.
	Status string
}

// Channel sends one message. A failure is returned as *appErrors.ChannelError.
type Channel interface {
	Send(ctx context.Context, msg Message) (Delivery, error)
}

// Reply is the most recent message in a conversation with one phone number.
type Reply struct {
	Text       string
	ReceivedAt string
}

// ResponseReader is implemented by channels that can read a recipient's replies.
type ResponseReader interface {
	LatestResponse(ctx context.Context, phone string) (Reply, error)
}

// ComposeText is the full text a recipient receives. The link follows the
// body directly.
func ComposeText(name, body, link string) string {
	return fmt.Sprintf("Hello %s,\n\n%s%s", name, body, link)
}

// KnownServices are the Messages service types a script may address.
var KnownServices = []string{"iMessage", "SMS", "RCS"}

func ValidService(s string) bool {
	for _, k := range KnownServices {
		if s == k {
			return true
		}
	}
	return false
}
