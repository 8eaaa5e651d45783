package models

import "time"

type UserSettings struct {
	UserID        string          `json:"-"`
	Theme         string          `json:"theme"`
	Language      string          `json:"language"`
	DefaultMode   ChatMode        `json:"defaultMode"`
	Notifications map[string]bool `json:"notifications"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// DefaultUserSettings is returned before a user saves anything.
func DefaultUserSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:      userID,
		Theme:       "dark",
		Language:    "en",
		DefaultMode: ModeGeneral,
		Notifications: map[string]bool{
			"email":   true,
			"push":    false,
			"updates": true,
		},
	}
}
