package domain

import "time"

// TypingStatus is the latest typing signal of one participant in one request.
// At most one row exists per (RequestID, ParticipantID).
type TypingStatus struct {
	RequestID     string
	ParticipantID string
	Role          ParticipantRole
	IsTyping      bool
	UpdatedAt     time.Time
}
