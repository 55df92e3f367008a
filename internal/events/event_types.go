package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/signup-forms/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSignupCreated       EventType = "signup_created"
	EventSignupResubmitted   EventType = "signup_resubmitted"
	EventSignupStatusChanged EventType = "signup_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	StoreHash string      `json:"store_hash"`
	SignupID  string      `json:"signup_id"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event about signup request signupID with an id and the
// current time. RequestID correlates it with the HTTP request that caused it.
func NewEvent(eventType EventType, storeHash, signupID, requestID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		StoreHash: storeHash,
		SignupID:  signupID,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SignupStatusChangedPayload payload.
type SignupStatusChangedPayload struct {
	OldStatus           domain.SignupStatus `json:"old_status"`
	NewStatus           domain.SignupStatus `json:"new_status"`
	RequiredInformation string              `json:"required_information,omitempty"`
	MerchantMessage     string              `json:"merchant_message,omitempty"`
}
