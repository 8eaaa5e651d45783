package services

import "strings"

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

// UnsupportedMediaError rejects uploads and URLs whose content cannot be read as text.
type UnsupportedMediaError struct{ Message string }

func (e *UnsupportedMediaError) Error() string { return e.Message }

// UpstreamError wraps failures of third-party services (pages, transcripts).
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ConfigError reports server-side settings that are missing.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "Missing Firebase Admin environment variables: " + strings.Join(e.Missing, ", ") +
		". Please add them to the server environment or .env file."
}
