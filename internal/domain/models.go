// Package domain defines the persistence models for assistance requests,
// the request counter, and pending (incomplete) submissions. These types are
// mapped to Firestore documents and form the core data layer of the backend.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// RequestStatus is the lifecycle state of an assistance request.
// New requests are always created as StatusWaiting; matching and completion
// are owned by other parts of the platform.
type RequestStatus string

const (
	StatusWaiting   RequestStatus = "waiting"
	StatusMatched   RequestStatus = "matched"
	StatusCompleted RequestStatus = "completed"
)

// TransportMethod describes how the requester needs to travel.
type TransportMethod string

const (
	MethodVehicle TransportMethod = "vehicle"
	MethodWalking TransportMethod = "walking"
	MethodUnknown TransportMethod = "unknown"
)

// ParseTransportMethod maps an extracted method value to a TransportMethod.
// The language model answers in Korean for this app ("차량", "도보") but may
// also echo the English enum names; anything else is MethodUnknown.
func ParseTransportMethod(s string) TransportMethod {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "차량", "차", "vehicle", "car":
		return MethodVehicle
	case "도보", "걷기", "walking", "walk":
		return MethodWalking
	default:
		return MethodUnknown
	}
}

// TaskFields is the structured field set extracted from a transcript.
// Pointers distinguish "not mentioned" (nil) from an explicit value, which
// is what the slot-filling protocol needs to compute missing fields.
//
// TransportationNeeded is kept for the legacy scoring policy; current model
// prompts fill Method instead.
type TaskFields struct {
	Time                 *string `json:"time"                  firestore:"time"`
	LocationFrom         *string `json:"locationFrom"          firestore:"locationFrom"`
	LocationTo           *string `json:"locationTo"            firestore:"locationTo"`
	Method               *string `json:"method"                firestore:"method"`
	TaskDescription      *string `json:"task_description"      firestore:"taskDescription"`
	TransportationNeeded *bool   `json:"transportation_needed" firestore:"transportationNeeded"`
}

// TransportMethod resolves the extracted method value, MethodUnknown when absent.
func (f TaskFields) TransportMethod() TransportMethod {
	if f.Method == nil {
		return MethodUnknown
	}
	return ParseTransportMethod(*f.Method)
}

// Required field names, in the fixed order used both for the missing-field
// list and for assembling clarification prompts.
const (
	FieldTime        = "time"
	FieldOrigin      = "origin"
	FieldDestination = "destination"
	FieldMethod      = "method"
)

// RequiredFields is the fixed, ordered list of fields a request cannot be
// finalized without.
var RequiredFields = []string{FieldTime, FieldOrigin, FieldDestination, FieldMethod}

// MissingFields returns the required fields that are absent from f, in the
// fixed RequiredFields order. A method value that does not resolve to
// vehicle/walking counts as missing.
func (f TaskFields) MissingFields() []string {
	missing := make([]string, 0, len(RequiredFields))
	if f.Time == nil || strings.TrimSpace(*f.Time) == "" {
		missing = append(missing, FieldTime)
	}
	if f.LocationFrom == nil || strings.TrimSpace(*f.LocationFrom) == "" {
		missing = append(missing, FieldOrigin)
	}
	if f.LocationTo == nil || strings.TrimSpace(*f.LocationTo) == "" {
		missing = append(missing, FieldDestination)
	}
	if f.TransportMethod() == MethodUnknown {
		missing = append(missing, FieldMethod)
	}
	return missing
}

// Complete reports whether all required fields are present.
func (f TaskFields) Complete() bool { return len(f.MissingFields()) == 0 }

// Request is a finalized assistance request stored under requests/{reqNNN}.
//
// The document ID is the human-readable sequential ID ("req" + zero-padded
// counter value) and is allocated in the same Firestore transaction that
// writes the document, so IDs are gap-free and unique under concurrency.
type Request struct {
	RequesterID        string          `json:"requester_id"         firestore:"requesterId"`
	Status             RequestStatus   `json:"status"               firestore:"status"`
	Transcript         string          `json:"transcribed_text"     firestore:"transcribedText"`
	Task               TaskFields      `json:"task_details"         firestore:"taskDetails"`
	Method             TransportMethod `json:"method"               firestore:"method"`
	Points             int             `json:"points"               firestore:"points"`
	MatchedVolunteerID *string         `json:"matched_volunteer_id" firestore:"matchedVolunteerId"`
	CreatedAt          time.Time       `json:"created_at"           firestore:"createdAt,serverTimestamp"`
}

// RequestCounter is the singleton counters/request_counter document backing
// sequential ID allocation. LastID is never decremented below zero and is
// only ever read or written inside the allocation transaction.
type RequestCounter struct {
	LastID int64 `json:"last_id" firestore:"lastId"`
}

// RequestID formats a counter value as a human-readable request document ID.
// Values are zero-padded to three digits and widen naturally beyond 999.
func RequestID(n int64) string {
	return fmt.Sprintf("req%03d", n)
}

// PendingRequest is a transient partial submission stored under
// pending_requests/{uuid} while the app waits for the user to fill the
// remaining required fields. Partial and Missing are replaced wholesale on
// every follow-up turn; Transcript keeps the original utterance so the
// extractor can merge follow-ups against it.
type PendingRequest struct {
	ID            string     `json:"id"             firestore:"-"`
	RequesterID   string     `json:"requester_id"   firestore:"requesterId"`
	Partial       TaskFields `json:"partial_fields" firestore:"partialFields"`
	Missing       []string   `json:"missing_fields" firestore:"missingFields"`
	Transcript    string     `json:"transcript"     firestore:"transcript"`
	Clarification string     `json:"clarification"  firestore:"clarification"`
	CreatedAt     time.Time  `json:"created_at"     firestore:"createdAt,serverTimestamp"`
}

// User is the slice of the users/{id} document this service reads: the role
// flag and the registered push token. Registration itself is owned by the
// mobile app backend.
type User struct {
	Role     string `json:"role"     firestore:"role"`
	FCMToken string `json:"fcmToken" firestore:"fcmToken"`
}

// RoleVolunteer marks accounts that should receive new-request notifications.
const RoleVolunteer = "volunteer"
