// Package notify defines the outbound notification contract.
package notify

// Notifier delivers a text message to a user by opaque id. Delivery is
// best-effort: callers log failures and move on, never retry, and never let
// a slow send block store mutation.
type Notifier interface {
	Send(owner int64, text string) error
}
