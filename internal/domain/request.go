package domain

import "time"

// RequestStatus enumerates lifecycle states for a support conversation.
type RequestStatus string

const (
	RequestStatusWaiting   RequestStatus = "waiting"
	RequestStatusActive    RequestStatus = "active"
	RequestStatusCompleted RequestStatus = "completed"
)

// requestTransitions lists the only forward moves a request may take.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusWaiting: {RequestStatusActive},
	RequestStatusActive:  {RequestStatusCompleted},
}

// Request is one support conversation opened by a participant.
type Request struct {
	ID            string
	ParticipantID string
	Issue         string
	Status        RequestStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RequestSummary is a request joined with its owner's display fields.
type RequestSummary struct {
	Request
	ParticipantName  string
	ParticipantEmail string
}

// CanTransition reports whether moving from s to next is allowed.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusWaiting, RequestStatusActive, RequestStatusCompleted:
		return true
	}
	return false
}
