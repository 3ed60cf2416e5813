// Package events provides a small in-process publish/subscribe mechanism.
//
// Services publish facts after their transaction has committed (a review was
// recorded, a card was suspended, cards were enrolled). Handlers run
// synchronously; their failures are reported to the publisher but never undo
// the change that produced the event.
package events
