package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aether-backend/internal/models"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

const sessionColumns = `id, user_id, session_name, is_starred, is_archived, start_time`

func scanSession(row pgx.Row) (*models.ChatSession, error) {
	s := &models.ChatSession{}
	err := row.Scan(&s.ID, &s.UserID, &s.SessionName, &s.IsStarred, &s.IsArchived, &s.StartTime)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create names the session "Chat N", N being one more than the user's
// current session count.
func (r *SessionRepo) Create(ctx context.Context, userID string) (*models.ChatSession, error) {
	query := `
		INSERT INTO chat_sessions (id, user_id, session_name)
		SELECT $1, $2, 'Chat ' || (COUNT(*) + 1)
		FROM chat_sessions WHERE user_id = $2
		RETURNING ` + sessionColumns

	return scanSession(r.pool.QueryRow(ctx, query, uuid.New(), userID))
}

// ListByUser returns the user's sessions newest first. Recent excludes
// archived sessions; search matches the name case-insensitively.
func (r *SessionRepo) ListByUser(ctx context.Context, userID, filter, search string) ([]models.ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE user_id = $1`
	args := []interface{}{userID}

	switch filter {
	case models.SessionFilterStarred:
		query += ` AND is_starred = TRUE`
	case models.SessionFilterArchived:
		query += ` AND is_archived = TRUE`
	default:
		query += ` AND is_archived = FALSE`
	}

	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		query += fmt.Sprintf(` AND session_name ILIKE $%d`, len(args))
	}
	query += ` ORDER BY start_time DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.ChatSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID, userID string) (*models.ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id = $1 AND user_id = $2`
	return scanSession(r.pool.QueryRow(ctx, query, id, userID))
}

func (r *SessionRepo) Rename(ctx context.Context, id uuid.UUID, userID, name string) (*models.ChatSession, error) {
	query := `UPDATE chat_sessions SET session_name = $3 WHERE id = $1 AND user_id = $2 RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, query, id, userID, name))
}

func (r *SessionRepo) ToggleStar(ctx context.Context, id uuid.UUID, userID string) (*models.ChatSession, error) {
	query := `UPDATE chat_sessions SET is_starred = NOT is_starred WHERE id = $1 AND user_id = $2 RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, query, id, userID))
}

func (r *SessionRepo) ToggleArchive(ctx context.Context, id uuid.UUID, userID string) (*models.ChatSession, error) {
	query := `UPDATE chat_sessions SET is_archived = NOT is_archived WHERE id = $1 AND user_id = $2 RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, query, id, userID))
}

// Delete removes the session and, by cascade, its messages.
func (r *SessionRepo) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
