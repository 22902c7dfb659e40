// Package notify delivers best-effort notifications: an external push
// provider and a WebSocket broadcast to live subscribers. Nothing in this
// package returns an error to the caller; transport failures are logged
// and the assignment stays committed.
package notify

import (
	"net/http"
	"time"
)

const externalHTTPTimeout = 10 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: externalHTTPTimeout,
}

// Pusher sends a push notification to an external service. Implementations
// swallow and log transport errors.
type Pusher interface {
	Push(target, title, message string)
}

// NopPusher is the provider when push notifications are disabled.
type NopPusher struct{}

func (NopPusher) Push(target, title, message string) {}
