package bridge

import "time"

// EventType enumerates the outbound moderation actions emitEvent accepts.
type EventType string

const (
	EventLabel           EventType = "label"
	EventTakedown        EventType = "takedown"
	EventReverseTakedown EventType = "reverseTakedown"
	EventComment         EventType = "comment"
	EventAcknowledge     EventType = "acknowledge"
	EventEscalate        EventType = "escalate"
)

// Policy identifies a platform policy that triggered a moderation action.
type Policy struct {
	ID   string
	Name string
}

// EmitEventParams is the input contract for Service.EmitEvent.
type EmitEventParams struct {
	TenantID              string
	EventType             EventType
	Labels                []string
	NegateLabels          []string
	Comment               *string
	SubjectDID            string
	SubjectURI            *string
	PlatformActionID      string
	PlatformCorrelationID string
	Policies              []Policy
	DurationInHours       *int
}

// PollResult is the output of Service.PollEvents.
type PollResult struct {
	Events    []ClassifiedEvent
	NewCursor *string
}

// ClassifiedEvent is an inbound external event resolved to the bridge's
// internal shape.
type ClassifiedEvent struct {
	Category   string
	Labels     []string
	Comment    *string
	SubjectDID *string
	SubjectURI *string
	CreatedAt  time.Time
}
