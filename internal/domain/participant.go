package domain

import (
	"strings"
	"time"
)

// ParticipantRole distinguishes the two sides of a conversation.
type ParticipantRole string

const (
	RoleCustomer ParticipantRole = "customer"
	RoleAgent    ParticipantRole = "agent"
)

// PresenceStatus is the coarse online state of a participant.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
)

// Participant is a customer or agent identity, keyed naturally by email.
type Participant struct {
	ID        string
	Name      string
	Email     string
	Role      ParticipantRole
	Status    PresenceStatus
	CreatedAt time.Time
}

// Valid reports whether the role is one of the known roles.
func (r ParticipantRole) Valid() bool {
	return r == RoleCustomer || r == RoleAgent
}

// DefaultAgentName is used when an agent email has no usable local part.
const DefaultAgentName = "Support Agent"

// AgentDisplayName derives an agent's name from the local part of the email.
func AgentDisplayName(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if local == "" {
		return DefaultAgentName
	}
	return local
}
