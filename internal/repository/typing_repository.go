package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/live-chat/internal/domain"
)

// TypingRepository stores the latest typing signal per participant and request.
type TypingRepository interface {
	Upsert(ctx context.Context, status *domain.TypingStatus) (bool, error)
	ClearStale(ctx context.Context, cutoff time.Time) ([]domain.TypingStatus, error)
}

type typingRepository struct {
	pool *pgxpool.Pool
}

// NewTypingRepository builds repository.
func NewTypingRepository(pool *pgxpool.Pool) TypingRepository {
	return &typingRepository{pool: pool}
}

// Upsert writes the status and reports whether a new row was inserted.
func (r *typingRepository) Upsert(ctx context.Context, status *domain.TypingStatus) (bool, error) {
	const query = `
        INSERT INTO chat_typing_status (request_id, user_id, user_type, is_typing, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (request_id, user_id)
        DO UPDATE SET user_type=EXCLUDED.user_type, is_typing=EXCLUDED.is_typing, updated_at=NOW()
        RETURNING updated_at, (xmax = 0)`
	var inserted bool
	err := r.pool.QueryRow(ctx, query,
		status.RequestID,
		status.ParticipantID,
		status.Role,
		status.IsTyping,
	).Scan(&status.UpdatedAt, &inserted)
	return inserted, err
}

// ClearStale flips typing rows not refreshed since cutoff back to idle and returns them.
func (r *typingRepository) ClearStale(ctx context.Context, cutoff time.Time) ([]domain.TypingStatus, error) {
	const query = `
        UPDATE chat_typing_status SET is_typing=false, updated_at=NOW()
        WHERE is_typing AND updated_at < $1
        RETURNING request_id, user_id, user_type, is_typing, updated_at`
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TypingStatus
	for rows.Next() {
		var status domain.TypingStatus
		if err := rows.Scan(&status.RequestID, &status.ParticipantID, &status.Role, &status.IsTyping, &status.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, status)
	}
	return result, rows.Err()
}
