package services

import (
	"crypto/rsa"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"aether-backend/internal/config"
)

// Audience required by Firebase Authentication for custom tokens.
const firebaseTokenAudience = "https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit"

const firebaseTokenTTL = time.Hour

// FirebaseTokenMinter signs custom tokens that let a browser sign in to the
// document store as the identity-provider user.
type FirebaseTokenMinter struct {
	cfg     config.FirebaseConfig
	key     *rsa.PrivateKey
	keyErr  error
	now     func() time.Time
	missing []string
}

func NewFirebaseTokenMinter(cfg config.FirebaseConfig) *FirebaseTokenMinter {
	m := &FirebaseTokenMinter{cfg: cfg, now: time.Now, missing: cfg.Missing()}
	if len(m.missing) == 0 {
		pemKey := strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")
		m.key, m.keyErr = jwt.ParseRSAPrivateKeyFromPEM([]byte(pemKey))
	}
	return m
}

// CheckConfig returns a *ConfigError when any service-account field is unset.
func (m *FirebaseTokenMinter) CheckConfig() error {
	if len(m.missing) > 0 {
		return &ConfigError{Missing: m.missing}
	}
	return nil
}

// Mint returns a signed custom token whose uid is userID.
func (m *FirebaseTokenMinter) Mint(userID string) (string, error) {
	if err := m.CheckConfig(); err != nil {
		return "", err
	}
	if m.keyErr != nil {
		return "", fmt.Errorf("invalid FIREBASE_PRIVATE_KEY: %w", m.keyErr)
	}
	if userID == "" || len(userID) > 128 {
		return "", fmt.Errorf("uid must be 1-128 characters")
	}

	now := m.now()
	claims := jwt.MapClaims{
		"iss": m.cfg.ClientEmail,
		"sub": m.cfg.ClientEmail,
		"aud": firebaseTokenAudience,
		"iat": now.Unix(),
		"exp": now.Add(firebaseTokenTTL).Unix(),
		"uid": userID,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign firebase token: %w", err)
	}
	return token, nil
}
