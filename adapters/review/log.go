package review

import (
	"sync"

	"go.uber.org/zap"

	"github.com/causerie-app/causerie/domain/repositories"
)

// LogSink records struggled words in memory and logs each batch. It stands in
// for a spaced-repetition scheduler, which consumes the same word list
// unmodified.
type LogSink struct {
	logger *zap.Logger

	mu    sync.Mutex
	words []repositories.StruggledWord
}

// NewLogSink creates an empty sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// AddWords appends a batch of struggled words as-is
func (s *LogSink) AddWords(words []repositories.StruggledWord) {
	s.mu.Lock()
	s.words = append(s.words, words...)
	s.mu.Unlock()

	for _, w := range words {
		s.logger.Info("Struggled word recorded",
			zap.String("word", w.Word),
			zap.String("translation", w.Translation))
	}
}

// Words returns a snapshot of everything recorded so far
func (s *LogSink) Words() []repositories.StruggledWord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repositories.StruggledWord, len(s.words))
	copy(out, s.words)
	return out
}
