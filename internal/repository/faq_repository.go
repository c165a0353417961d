package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/live-chat/internal/domain"
)

// FAQRepository persists questions the FAQ responder could not answer.
type FAQRepository interface {
	CreateUnanswered(ctx context.Context, q *domain.UnansweredQuestion) error
	ListPending(ctx context.Context, limit int) ([]domain.UnansweredQuestion, error)
}

type faqRepository struct {
	pool *pgxpool.Pool
}

// NewFAQRepository builds repository.
func NewFAQRepository(pool *pgxpool.Pool) FAQRepository {
	return &faqRepository{pool: pool}
}

func (r *faqRepository) CreateUnanswered(ctx context.Context, q *domain.UnansweredQuestion) error {
	const query = `
        INSERT INTO faq_unanswered (question, status)
        VALUES ($1, $2)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, q.Question, q.Status).Scan(&q.ID, &q.CreatedAt)
}

func (r *faqRepository) ListPending(ctx context.Context, limit int) ([]domain.UnansweredQuestion, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, question, status, created_at FROM faq_unanswered
        WHERE status='pending' ORDER BY created_at ASC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.UnansweredQuestion
	for rows.Next() {
		var q domain.UnansweredQuestion
		if err := rows.Scan(&q.ID, &q.Question, &q.Status, &q.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	return result, rows.Err()
}
