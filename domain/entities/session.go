package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Phase represents the lifecycle phase of a conversation session
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseActive     Phase = "active"
	PhaseEnded      Phase = "ended"
)

// Role represents who produced a span of speech
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// TranscriptEntry is one turn of the conversation transcript. While a turn is
// still streaming, Accumulating is true and incoming deltas for the same role
// are appended to it; the entry is finalized exactly once at turn end.
type TranscriptEntry struct {
	Role         Role      `json:"role"`
	Text         string    `json:"text"`
	Timestamp    time.Time `json:"timestamp"`
	Accumulating bool      `json:"accumulating"`
}

// Session represents one spoken conversation with the model
type Session struct {
	ID         string            `json:"id"`
	Phase      Phase             `json:"phase"`
	StartedAt  time.Time         `json:"started_at"`
	ElapsedMs  int64             `json:"elapsed_ms"`
	Transcript []TranscriptEntry `json:"transcript"`
}

// SessionSummary is the snapshot handed to external collaborators on session end
type SessionSummary struct {
	ID         string            `json:"id"`
	StartedAt  time.Time         `json:"started_at"`
	ElapsedMs  int64             `json:"elapsed_ms"`
	Transcript []TranscriptEntry `json:"transcript"`
}

// SessionMetrics are computed locally from the finalized transcript. They stay
// valid even when the remote analysis fails.
type SessionMetrics struct {
	UserTurns  int   `json:"user_turns"`
	ModelTurns int   `json:"model_turns"`
	UserWords  int   `json:"user_words"`
	ModelWords int   `json:"model_words"`
	DurationMs int64 `json:"duration_ms"`
}

// NewSession creates a session entering the connecting phase
func NewSession() *Session {
	return &Session{
		ID:         uuid.NewString(),
		Phase:      PhaseConnecting,
		StartedAt:  time.Now(),
		Transcript: make([]TranscriptEntry, 0),
	}
}

// AddDelta appends a transcript delta for the given role. If the most recent
// entry is still accumulating for the same role the text is appended to it,
// otherwise a new accumulating entry is created.
func (s *Session) AddDelta(role Role, text string) {
	if text == "" {
		return
	}
	if n := len(s.Transcript); n > 0 {
		last := &s.Transcript[n-1]
		if last.Accumulating && last.Role == role {
			last.Text += text
			return
		}
	}
	s.Transcript = append(s.Transcript, TranscriptEntry{
		Role:         role,
		Text:         text,
		Timestamp:    time.Now(),
		Accumulating: true,
	})
}

// FinalizeTurn clears the accumulating flag on the most recent unfinalized
// entry, independent of which role's turn ended. It is a no-op when no entry
// is accumulating, so a stray turn boundary cannot finalize an entry twice.
func (s *Session) FinalizeTurn() {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Accumulating {
			s.Transcript[i].Accumulating = false
			return
		}
	}
}

// FinalizeAll closes any entries left accumulating at teardown, so metrics
// include a turn that was cut off mid-stream.
func (s *Session) FinalizeAll() {
	for i := range s.Transcript {
		s.Transcript[i].Accumulating = false
	}
}

// Summary returns the snapshot delivered to external collaborators
func (s *Session) Summary() SessionSummary {
	transcript := make([]TranscriptEntry, len(s.Transcript))
	copy(transcript, s.Transcript)
	return SessionSummary{
		ID:         s.ID,
		StartedAt:  s.StartedAt,
		ElapsedMs:  s.ElapsedMs,
		Transcript: transcript,
	}
}

// Metrics computes session metrics from finalized transcript entries
func (s *Session) Metrics() SessionMetrics {
	m := SessionMetrics{DurationMs: s.ElapsedMs}
	for _, entry := range s.Transcript {
		if entry.Accumulating {
			continue
		}
		words := len(strings.Fields(entry.Text))
		switch entry.Role {
		case RoleUser:
			m.UserTurns++
			m.UserWords += words
		case RoleModel:
			m.ModelTurns++
			m.ModelWords += words
		}
	}
	return m
}
