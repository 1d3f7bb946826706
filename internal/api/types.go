package api

import (
	"github.com/causerie-app/causerie/domain/entities"
)

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StartSessionResponse is returned when a session begins
type StartSessionResponse struct {
	ID        string         `json:"id"`
	Phase     entities.Phase `json:"phase"`
	StartedAt string         `json:"started_at"`
}

// MuteResponse reports the microphone state after a toggle
type MuteResponse struct {
	Muted bool `json:"muted"`
}

// SendTextRequest carries a typed user turn
type SendTextRequest struct {
	Text string `json:"text"`
}

// TranscriptResponse wraps the transcript snapshot
type TranscriptResponse struct {
	Transcript []entities.TranscriptEntry `json:"transcript"`
}
