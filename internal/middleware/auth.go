package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// JWTAuth verifies identity-provider tokens. Users are identified by the
// provider's opaque subject, never by a local account.
type JWTAuth struct {
	secret    []byte
	publicKey *rsa.PublicKey
}

// NewJWTAuth accepts an HS256 shared secret, an RS256 PEM public key, or both.
func NewJWTAuth(secret, publicKeyPEM string) (*JWTAuth, error) {
	j := &JWTAuth{}
	if secret != "" {
		j.secret = []byte(secret)
	}
	if publicKeyPEM != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("invalid identity public key: %w", err)
		}
		j.publicKey = key
	}
	if j.secret == nil && j.publicKey == nil {
		return nil, errors.New("no identity token key configured")
	}
	return j, nil
}

func (j *JWTAuth) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if j.secret != nil {
			return j.secret, nil
		}
	case *jwt.SigningMethodRSA:
		if j.publicKey != nil {
			return j.publicKey, nil
		}
	}
	return nil, jwt.ErrSignatureInvalid
}

// ParseUserID verifies tokenStr and returns its subject ("sub", falling back
// to "user_id").
func (j *JWTAuth) ParseUserID(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, j.keyFunc)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		userID, _ = claims["user_id"].(string)
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("%w: missing subject", jwt.ErrTokenInvalidClaims)
	}
	return userID, nil
}

// Middleware validates the bearer token and attaches the user ID to the context.
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		userID, err := j.ParseUserID(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
			}
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts user_id from request context
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get(RequestIDHeader)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
