package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/live-chat/internal/domain"
)

// AgentCredentialRepository stores agent sign-in material.
type AgentCredentialRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.AgentCredential, error)
	Upsert(ctx context.Context, cred *domain.AgentCredential) error
}

type agentCredentialRepository struct {
	pool *pgxpool.Pool
}

// NewAgentCredentialRepository builds repository.
func NewAgentCredentialRepository(pool *pgxpool.Pool) AgentCredentialRepository {
	return &agentCredentialRepository{pool: pool}
}

func (r *agentCredentialRepository) GetByEmail(ctx context.Context, email string) (*domain.AgentCredential, error) {
	const query = `SELECT email, password_hash, created_at FROM agent_credentials WHERE email=$1`
	var cred domain.AgentCredential
	if err := r.pool.QueryRow(ctx, query, email).Scan(&cred.Email, &cred.PasswordHash, &cred.CreatedAt); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *agentCredentialRepository) Upsert(ctx context.Context, cred *domain.AgentCredential) error {
	const query = `
        INSERT INTO agent_credentials (email, password_hash)
        VALUES ($1, $2)
        ON CONFLICT (email) DO UPDATE SET password_hash=EXCLUDED.password_hash
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query, cred.Email, cred.PasswordHash).Scan(&cred.CreatedAt)
}
