package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/live-chat/internal/domain"
)

// RequestFilter captures dashboard listing parameters.
type RequestFilter struct {
	Statuses []domain.RequestStatus
	Limit    int
	Offset   int
}

// RequestRepository encapsulates chat request persistence.
type RequestRepository interface {
	Create(ctx context.Context, request *domain.Request) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	ListSummaries(ctx context.Context, filter RequestFilter) ([]domain.RequestSummary, error)
	CompareAndSetStatus(ctx context.Context, id string, from, to domain.RequestStatus) (*domain.Request, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `id, user_id, issue, status, created_at, updated_at`

func (r *requestRepository) Create(ctx context.Context, request *domain.Request) error {
	const query = `
        INSERT INTO chat_requests (user_id, issue, status)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		request.ParticipantID,
		request.Issue,
		request.Status,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM chat_requests WHERE id=$1`
	return scanRequest(r.pool.QueryRow(ctx, query, id))
}

// CompareAndSetStatus moves the request to `to` only while it is still in
// `from`. pgx.ErrNoRows means either the id is unknown or the status moved.
func (r *requestRepository) CompareAndSetStatus(ctx context.Context, id string, from, to domain.RequestStatus) (*domain.Request, error) {
	query := `
        UPDATE chat_requests SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3
        RETURNING ` + requestColumns
	return scanRequest(r.pool.QueryRow(ctx, query, to, id, from))
}

func (r *requestRepository) ListSummaries(ctx context.Context, filter RequestFilter) ([]domain.RequestSummary, error) {
	query := `
        SELECT r.id, r.user_id, r.issue, r.status, r.created_at, r.updated_at, u.name, u.email
        FROM chat_requests r
        JOIN chat_users u ON u.id = r.user_id`
	args := []any{}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			statuses[i] = string(status)
		}
		args = append(args, statuses)
		query += fmt.Sprintf(" WHERE r.status = ANY($%d)", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY r.created_at DESC, r.id DESC LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RequestSummary
	for rows.Next() {
		var summary domain.RequestSummary
		if err := rows.Scan(
			&summary.ID,
			&summary.ParticipantID,
			&summary.Issue,
			&summary.Status,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&summary.ParticipantName,
			&summary.ParticipantEmail,
		); err != nil {
			return nil, err
		}
		result = append(result, summary)
	}
	return result, rows.Err()
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var request domain.Request
	if err := row.Scan(
		&request.ID,
		&request.ParticipantID,
		&request.Issue,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &request, nil
}
