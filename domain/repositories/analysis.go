package repositories

import (
	"context"

	"github.com/causerie-app/causerie/domain/entities"
)

// StruggledWord is one vocabulary item the learner had difficulty with
type StruggledWord struct {
	Word        string `json:"word"`
	Context     string `json:"context"`
	Translation string `json:"translation"`
}

// SessionAnalysis is the structured result of post-session analysis
type SessionAnalysis struct {
	Summary        string          `json:"summary"`
	StruggledWords []StruggledWord `json:"struggled_words"`
}

// SessionAnalyzer produces a structured analysis from a finished session
type SessionAnalyzer interface {
	Analyze(ctx context.Context, summary entities.SessionSummary) (SessionAnalysis, error)
}

// ReviewSink receives the struggled-word list, unmodified, for scheduling.
// Spaced-repetition itself happens outside this core.
type ReviewSink interface {
	AddWords(words []StruggledWord)
}
