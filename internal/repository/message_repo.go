package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"aether-backend/internal/models"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Append stores one turn; created_at is assigned by the database.
func (r *MessageRepo) Append(ctx context.Context, userID string, m *models.StoredMessage) error {
	m.ID = uuid.New()
	query := `
		INSERT INTO chat_messages (id, session_id, user_id, content, is_user_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	return r.pool.QueryRow(ctx, query, m.ID, m.SessionID, userID, m.Content, m.IsUserMessage).Scan(&m.CreatedAt)
}

func (r *MessageRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, userID string) ([]models.StoredMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, content, is_user_message, created_at
		FROM chat_messages
		WHERE session_id = $1 AND user_id = $2
		ORDER BY created_at, id
	`, sessionID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.StoredMessage{}
	for rows.Next() {
		var m models.StoredMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Content, &m.IsUserMessage, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
