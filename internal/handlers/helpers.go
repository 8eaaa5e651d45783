package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5"

	"aether-backend/internal/flows"
	"aether-backend/internal/middleware"
	"aether-backend/internal/models"
	"aether-backend/internal/services"
)

const maxJSONBody = 2 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	resp := errorResp(code, message, r)
	resp.Error.Fields = fields
	return resp
}

func errorRespWithDetails(code, message, details string, r *http.Request) models.ErrorResponse {
	resp := errorResp(code, message, r)
	resp.Error.Details = details
	return resp
}

// decodeJSON reads a size-limited JSON body. Unknown fields are rejected when
// strict is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, strict bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("PAYLOAD_TOO_LARGE", "Request body is too large", r))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return false
	}
	return true
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		flowErr         *flows.ValidationError
		validationErr   *services.ValidationError
		conflictErr     *services.ConflictError
		notFoundErr     *services.NotFoundError
		unauthorizedErr *services.UnauthorizedError
		mediaErr        *services.UnsupportedMediaError
		upstreamErr     *services.UpstreamError
		configErr       *services.ConfigError
	)

	switch {
	case errors.As(err, &flowErr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", flowErr.Fields, r))
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validationErr.Fields, r))
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", conflictErr.Message, r))
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFoundErr.Message, r))
	case errors.Is(err, pgx.ErrNoRows):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Resource not found", r))
	case errors.As(err, &unauthorizedErr):
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauthorizedErr.Message, r))
	case errors.As(err, &mediaErr):
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_MEDIA", mediaErr.Message, r))
	case errors.As(err, &upstreamErr):
		log.Printf("Upstream failure: %v", err)
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", upstreamErr.Message, r))
	case errors.As(err, &configErr):
		log.Printf("Configuration error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorRespWithDetails("CONFIG_ERROR", "Server configuration error", configErr.Error(), r))
	default:
		log.Printf("Unhandled error on %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
