// Package ozoneevent defines the wire shapes exchanged with the external
// labeler's moderation XRPC surface: moderation events,
// subject references, and the query/response envelopes built around them.
package ozoneevent

import "encoding/json"

// SubjectRef is the tagged union the external labeler accepts as a
// moderation subject: either a repo-level reference (an account DID) or a
// strong reference to a specific record.
type SubjectRef struct {
	Type string `json:"$type"`
	// RepoRef fields.
	DID string `json:"did,omitempty"`
	// StrongRef fields.
	URI string `json:"uri,omitempty"`
	CID string `json:"cid,omitempty"`
}

const (
	SubjectTypeRepoRef   = "com.atproto.admin.defs#repoRef"
	SubjectTypeStrongRef = "com.atproto.repo.strongRef"
)

// RepoRefSubject builds a SubjectRef addressing an account by DID.
func RepoRefSubject(did string) SubjectRef {
	return SubjectRef{Type: SubjectTypeRepoRef, DID: did}
}

// StrongRefSubject builds a SubjectRef addressing a specific record. The
// external labeler accepts an empty CID for non-content subjects.
func StrongRefSubject(uri, cid string) SubjectRef {
	return SubjectRef{Type: SubjectTypeStrongRef, URI: uri, CID: cid}
}

// Event is the moderation event object embedded in an emitEvent request and
// echoed back inside a queryEvents response.
type Event struct {
	Type            string   `json:"$type"`
	Comment         *string  `json:"comment,omitempty"`
	CreateLabelVals []string `json:"createLabelVals,omitempty"`
	// NegateLabelVals has no omitempty: a label event always sets this to a
	// non-nil slice (possibly empty), and an empty slice must still
	// serialize as [] rather than drop off the wire entirely.
	NegateLabelVals []string `json:"negateLabelVals"`
	DurationInHours *int     `json:"durationInHours,omitempty"`
	Sticky          *bool    `json:"sticky,omitempty"`
}

// XRPC $type values for each event kind the bridge emits or classifies.
const (
	TypeModEventReport          = "tools.ozone.moderation.defs#modEventReport"
	TypeModEventTakedown        = "tools.ozone.moderation.defs#modEventTakedown"
	TypeModEventReverseTakedown = "tools.ozone.moderation.defs#modEventReverseTakedown"
	TypeModEventLabel           = "tools.ozone.moderation.defs#modEventLabel"
	TypeModEventComment         = "tools.ozone.moderation.defs#modEventComment"
	TypeModEventAcknowledge     = "tools.ozone.moderation.defs#modEventAcknowledge"
	TypeModEventEscalate        = "tools.ozone.moderation.defs#modEventEscalate"
)

// ExternalEvent is one entry in a queryEvents response: the moderation
// event together with its subject and provenance.
type ExternalEvent struct {
	ID        string          `json:"id"`
	Event     json.RawMessage `json:"event"`
	Subject   SubjectRef      `json:"subject"`
	CreatedBy string          `json:"createdBy"`
	CreatedAt string          `json:"createdAt"`
}

// rawEvent mirrors the fields classifyEvent actually reads off the
// polymorphic event object, without committing to every event kind's shape.
type rawEvent struct {
	Type            string   `json:"$type"`
	CreateLabelVals []string `json:"createLabelVals"`
	Comment         *string  `json:"comment"`
}

// DecodeEvent unmarshals the polymorphic event object embedded in an
// ExternalEvent, tolerating any event kind's shape.
func (e ExternalEvent) DecodeEvent() (typ string, labels []string, comment string, hasComment bool, err error) {
	var r rawEvent
	if len(e.Event) == 0 {
		return "", nil, "", false, nil
	}
	if err := json.Unmarshal(e.Event, &r); err != nil {
		return "", nil, "", false, err
	}
	if r.Comment != nil {
		comment, hasComment = *r.Comment, true
	}
	return r.Type, r.CreateLabelVals, comment, hasComment, nil
}

// EmitEventRequest is the JSON body for POST emitEvent.
type EmitEventRequest struct {
	Event           Event      `json:"event"`
	Subject         SubjectRef `json:"subject"`
	CreatedBy       string     `json:"createdBy"`
	SubjectBlobCIDs []string   `json:"subjectBlobCids,omitempty"`
}

// EmitEventResponse is the JSON response from emitEvent.
type EmitEventResponse struct {
	ID        string          `json:"id"`
	Event     json.RawMessage `json:"event"`
	Subject   SubjectRef      `json:"subject"`
	CreatedBy string          `json:"createdBy"`
	CreatedAt string          `json:"createdAt"`
}

// QueryEventsParams is the query string for GET queryEvents.
type QueryEventsParams struct {
	Cursor         string
	Limit          int
	Types          []string
	Subject        string
	SortDirection  string
	CreatedAfter   string
	CreatedBefore  string
}

// QueryEventsResponse is the JSON response from queryEvents.
type QueryEventsResponse struct {
	Cursor *string         `json:"cursor,omitempty"`
	Events []ExternalEvent `json:"events"`
}

// QueryStatusesParams is the query string for GET queryStatuses.
type QueryStatusesParams struct {
	Cursor      string
	Limit       int
	Subject     string
	ReviewState string
}

// QueryStatusesResponse is the JSON response from queryStatuses.
type QueryStatusesResponse struct {
	Cursor          *string           `json:"cursor,omitempty"`
	SubjectStatuses []json.RawMessage `json:"subjectStatuses"`
}

// HealthResponse is the JSON response from GET /xrpc/_health.
type HealthResponse struct {
	Version string `json:"version"`
}
