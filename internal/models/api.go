package models

import "time"

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const WSTypeFlowRetry = "flow_retry"

// FlowStatus reports a retry inside an AI flow to the user's open sockets.
type FlowStatus struct {
	Flow        string    `json:"flow"`
	Attempt     int       `json:"attempt"`
	MaxAttempts int       `json:"maxAttempts"`
	RetryInMs   int64     `json:"retryInMs"`
	Reason      string    `json:"reason"`
	At          time.Time `json:"at"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Details   string            `json:"details,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type FirebaseTokenResponse struct {
	FirebaseToken string `json:"firebaseToken"`
}
