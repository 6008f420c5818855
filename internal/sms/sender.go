// Package sms delivers search links to a grown-up's phone. Delivery is
// fire-and-forget from the caller's point of view: a failed send is
// logged and recorded, never surfaced to the child.
package sms

import "context"

// Sender sends a single text message. Implementations must be safe for
// concurrent use.
type Sender interface {
	// Send delivers body to the destination number. A non-nil error
	// means the message was not accepted by the provider.
	Send(ctx context.Context, to, body string) error

	// Name identifies the delivery backend for logging and audit rows.
	Name() string
}
