package domain

import "time"

// AgentCredential holds sign-in material for a support agent.
type AgentCredential struct {
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
