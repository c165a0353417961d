package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/live-chat/internal/domain"
)

// MessageRepository manages chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	ListByRequest(ctx context.Context, requestID string, limit, offset int) ([]domain.Message, error)
	MarkRead(ctx context.Context, ids []string) ([]domain.Message, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

const messageColumns = `id, request_id, sender_id, user_type, content, image_url, status, created_at`

// Create inserts the message with its caller-supplied id. A zero CreatedAt
// defers to the database clock.
func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO chat_messages (id, request_id, sender_id, user_type, content, image_url, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
        RETURNING created_at`
	var createdAt *time.Time
	if !msg.CreatedAt.IsZero() {
		createdAt = &msg.CreatedAt
	}
	return r.pool.QueryRow(ctx, query,
		msg.ID,
		msg.RequestID,
		msg.SenderID,
		msg.SenderRole,
		msg.Content,
		msg.ImageURL,
		msg.Status,
		createdAt,
	).Scan(&msg.CreatedAt)
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM chat_messages WHERE id=$1`
	var msg domain.Message
	if err := scanMessage(r.pool.QueryRow(ctx, query, id), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListByRequest(ctx context.Context, requestID string, limit, offset int) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + `
        FROM chat_messages WHERE request_id=$1
        ORDER BY created_at ASC, id ASC
        LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, requestID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MarkRead moves the given messages to read and returns only the rows that
// actually changed, so repeated calls return nothing.
func (r *messageRepository) MarkRead(ctx context.Context, ids []string) ([]domain.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
        UPDATE chat_messages SET status='read'
        WHERE id = ANY($1::uuid[]) AND status <> 'read'
        RETURNING ` + messageColumns
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := scanMessage(rows, &msg); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func scanMessage(row pgx.Row, msg *domain.Message) error {
	return row.Scan(
		&msg.ID,
		&msg.RequestID,
		&msg.SenderID,
		&msg.SenderRole,
		&msg.Content,
		&msg.ImageURL,
		&msg.Status,
		&msg.CreatedAt,
	)
}
