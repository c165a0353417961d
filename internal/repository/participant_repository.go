package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/live-chat/internal/domain"
)

// ParticipantRepository defines persistence access for chat participants.
type ParticipantRepository interface {
	Create(ctx context.Context, participant *domain.Participant) error
	GetOrCreate(ctx context.Context, participant *domain.Participant) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Participant, error)
	GetByEmail(ctx context.Context, email string) (*domain.Participant, error)
}

type participantRepository struct {
	pool *pgxpool.Pool
}

// NewParticipantRepository returns a Postgres-backed implementation.
func NewParticipantRepository(pool *pgxpool.Pool) ParticipantRepository {
	return &participantRepository{pool: pool}
}

const participantColumns = `id, name, email, user_type, status, created_at`

func (r *participantRepository) Create(ctx context.Context, participant *domain.Participant) error {
	const query = `
        INSERT INTO chat_users (name, email, user_type, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		participant.Name,
		participant.Email,
		participant.Role,
		participant.Status,
	).Scan(&participant.ID, &participant.CreatedAt)
}

// GetOrCreate inserts the participant unless the email is taken, in which case
// the stored row is loaded into participant. The bool reports whether a row was created.
func (r *participantRepository) GetOrCreate(ctx context.Context, participant *domain.Participant) (bool, error) {
	const query = `
        INSERT INTO chat_users (name, email, user_type, status)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (email) DO NOTHING
        RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		participant.Name,
		participant.Email,
		participant.Role,
		participant.Status,
	).Scan(&participant.ID, &participant.CreatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	existing, err := r.GetByEmail(ctx, participant.Email)
	if err != nil {
		return false, err
	}
	*participant = *existing
	return false, nil
}

func (r *participantRepository) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM chat_users WHERE id=$1`
	return scanParticipant(r.pool.QueryRow(ctx, query, id))
}

func (r *participantRepository) GetByEmail(ctx context.Context, email string) (*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM chat_users WHERE email=$1`
	return scanParticipant(r.pool.QueryRow(ctx, query, email))
}

func scanParticipant(row pgx.Row) (*domain.Participant, error) {
	var participant domain.Participant
	if err := row.Scan(
		&participant.ID,
		&participant.Name,
		&participant.Email,
		&participant.Role,
		&participant.Status,
		&participant.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &participant, nil
}
