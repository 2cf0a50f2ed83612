package dto

import "antpi/internal/model"

// ReceiveResponse is returned by POST /receive.
type ReceiveResponse struct {
	Message  string         `json:"message"`
	Filename string         `json:"filename"`
	Metadata model.Metadata `json:"metadata"`
}

// ErrorResponse is the error body used by /receive.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewImageEvent is pushed to live gallery subscribers.
type NewImageEvent struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Filename string          `json:"filename"`
	Metadata *model.Metadata `json:"metadata,omitempty"`
}
