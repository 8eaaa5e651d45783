package handlers

import (
	"log"
	"net/http"
	"strings"

	"aether-backend/internal/models"
)

type tokenMinter interface {
	CheckConfig() error
	Mint(userID string) (string, error)
}

type tokenParser interface {
	ParseUserID(token string) (string, error)
}

// AuthBridgeHandler exchanges an identity-provider session for a document
// store custom token. Configuration is checked before the caller so a
// misconfigured server reports itself even to anonymous clients.
type AuthBridgeHandler struct {
	minter       tokenMinter
	auth         tokenParser
	exposeErrors bool
}

func NewAuthBridgeHandler(minter tokenMinter, auth tokenParser, env string) *AuthBridgeHandler {
	return &AuthBridgeHandler{minter: minter, auth: auth, exposeErrors: env == "development"}
}

func (h *AuthBridgeHandler) FirebaseToken(w http.ResponseWriter, r *http.Request) {
	if err := h.minter.CheckConfig(); err != nil {
		handleServiceError(w, r, err)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" || token == r.Header.Get("Authorization") {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Unauthorized - No session found", r))
		return
	}
	userID, err := h.auth.ParseUserID(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Unauthorized - No session found", r))
		return
	}

	firebaseToken, err := h.minter.Mint(userID)
	if err != nil {
		log.Printf("Error generating Firebase token: %v", err)
		details := ""
		if h.exposeErrors {
			details = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, errorRespWithDetails("INTERNAL_ERROR", "Failed to generate Firebase token", details, r))
		return
	}

	writeJSON(w, http.StatusOK, models.FirebaseTokenResponse{FirebaseToken: firebaseToken})
}
