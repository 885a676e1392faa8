package session

import (
	"github.com/csheth/adventure/internal/story"
)

// Kind distinguishes the two requests a page owns.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Status is the lifecycle state of one request.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Request is the latest request issued for one (position, kind).
type Request struct {
	Status Status
	Result string
	Err    string
	Tag    uint64
}

// Pending reports whether the request is still waiting on the backend.
func (r Request) Pending() bool {
	return r.Status == StatusPending
}

// Ticket describes work the caller has to run against the backend. Its outcome is handed back
// through Story.Resolve.
type Ticket struct {
	Position int
	Kind     Kind
	Tag      uint64
	Messages []story.Message
	Prompt   string
}

// Outcome is the backend result for a ticket.
type Outcome struct {
	Ticket Ticket
	Value  string
	Err    error
}

// EventType enumerates state transitions reported to listeners.
type EventType string

const (
	EventIssued         EventType = "issued"
	EventSucceeded      EventType = "succeeded"
	EventFailed         EventType = "failed"
	EventDiscarded      EventType = "discarded"
	EventTruncated      EventType = "truncated"
	EventChoiceSelected EventType = "choice_selected"
	EventRegenerated    EventType = "regenerated"
)

// Event is emitted synchronously on every transition.
type Event struct {
	Type     EventType
	Position int
	Kind     Kind
	Tag      uint64
	Detail   string
}
