package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aether-backend/internal/models"
)

type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

// Get returns the stored settings, or the defaults if the user never saved any.
func (r *SettingsRepo) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	s := &models.UserSettings{UserID: userID}
	var notifications []byte
	err := r.pool.QueryRow(ctx, `
		SELECT theme, language, default_mode, notifications, updated_at
		FROM user_settings WHERE user_id = $1
	`, userID).Scan(&s.Theme, &s.Language, &s.DefaultMode, &notifications, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultUserSettings(userID), nil
	}
	if err != nil {
		return nil, err
	}

	s.Notifications = map[string]bool{}
	if len(notifications) > 0 {
		if err := json.Unmarshal(notifications, &s.Notifications); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (r *SettingsRepo) Upsert(ctx context.Context, s *models.UserSettings) error {
	notifications, err := json.Marshal(s.Notifications)
	if err != nil {
		return err
	}
	if s.Notifications == nil {
		notifications = []byte("{}")
	}

	return r.pool.QueryRow(ctx, `
		INSERT INTO user_settings (user_id, theme, language, default_mode, notifications, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET theme = EXCLUDED.theme,
			language = EXCLUDED.language,
			default_mode = EXCLUDED.default_mode,
			notifications = EXCLUDED.notifications,
			updated_at = NOW()
		RETURNING updated_at
	`, s.UserID, s.Theme, s.Language, s.DefaultMode, notifications).Scan(&s.UpdatedAt)
}
