// Package notify delivers owner and admin notifications.
//
// Delivery is best-effort per recipient: one refused address never aborts the
// remaining sends, the caller partitions owners into notified/problem sets.
package notify

import "context"

// Message is one outbound notification.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string // HTML
}

// Sender delivers a message, or logs it when sending is disabled.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
