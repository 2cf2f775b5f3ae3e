package ports

import "github.com/brightpath/accounts-api/internal/core/domain"

// AccountEventType labels a lifecycle event emitted by the auth service.
type AccountEventType string

const (
	EventSignedUp AccountEventType = "account.signed_up"
	EventLinked   AccountEventType = "account.linked"
	EventSignedIn AccountEventType = "account.signed_in"
)

// AccountEvent describes one auth lifecycle occurrence. Events are
// fire-and-forget operational signals (metrics, logs), not part of the
// request's success or failure.
type AccountEvent struct {
	Type     AccountEventType
	UserID   string
	Provider domain.Provider
}

// EventSink accepts account events for asynchronous processing.
type EventSink interface {
	Emit(event AccountEvent)
}
