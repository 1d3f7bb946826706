package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/causerie-app/causerie/domain/entities"
	"github.com/causerie-app/causerie/domain/repositories"
	"github.com/causerie-app/causerie/internal/audio"
	"github.com/causerie-app/causerie/internal/config"
)

// analysisTimeout bounds the post-session analysis call
const analysisTimeout = 60 * time.Second

// ErrNoActiveSession is returned by operations that require a running session
var ErrNoActiveSession = errors.New("no active session")

// SessionStatus is the point-in-time view of the running session
type SessionStatus struct {
	ID         string         `json:"id"`
	Phase      entities.Phase `json:"phase"`
	ElapsedMs  int64          `json:"elapsed_ms"`
	Muted      bool           `json:"muted"`
	Speaking   bool           `json:"speaking"`
	InputLevel float64        `json:"input_level"`
}

// SessionResult is returned when a session ends
type SessionResult struct {
	Summary entities.SessionSummary `json:"summary"`
	Metrics entities.SessionMetrics `json:"metrics"`
}

// SessionService orchestrates one spoken conversation at a time: it wires the
// capture pipeline into the stream, routes stream events into playback and the
// transcript, enforces the session ceiling, and runs post-session analysis.
// All session state is owned by a single run loop; public methods only take
// the lock long enough to read or to request a transition.
type SessionService struct {
	cfg    config.Config
	logger *zap.Logger

	credentials repositories.CredentialSource
	analyzer    repositories.SessionAnalyzer
	review      repositories.ReviewSink

	newCapture  func() repositories.CaptureSource
	newPlayback func() repositories.PlaybackSink
	newStream   func(apiKey string) repositories.ConversationStream

	mu       sync.Mutex
	session  *entities.Session
	capture  repositories.CaptureSource
	playback repositories.PlaybackSink
	stream   repositories.ConversationStream
	ended    bool
	level    float64
	speaking bool
	activeAt time.Time
	stopRun  chan struct{}

	analysisWG sync.WaitGroup
}

// NewSessionService creates a session service with injected pipeline factories
func NewSessionService(
	cfg config.Config,
	credentials repositories.CredentialSource,
	analyzer repositories.SessionAnalyzer,
	review repositories.ReviewSink,
	newCapture func() repositories.CaptureSource,
	newPlayback func() repositories.PlaybackSink,
	newStream func(apiKey string) repositories.ConversationStream,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		cfg:         cfg,
		credentials: credentials,
		analyzer:    analyzer,
		review:      review,
		newCapture:  newCapture,
		newPlayback: newPlayback,
		newStream:   newStream,
		logger:      logger,
	}
}

// Start begins a new session. Only one session runs at a time. Every pipeline
// brought up before a failure is torn down again before the error returns.
func (s *SessionService) Start(ctx context.Context) (*entities.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil && !s.ended {
		return nil, fmt.Errorf("session %s is still active", s.session.ID)
	}

	apiKey, err := s.credentials.APIKey()
	if err != nil {
		return nil, fmt.Errorf("resolve credentials: %w", err)
	}

	session := entities.NewSession()
	stream := s.newStream(apiKey)
	playback := s.newPlayback()
	capture := s.newCapture()

	if err := stream.Connect(ctx); err != nil {
		return nil, err
	}
	if err := playback.Start(); err != nil {
		_ = stream.Disconnect()
		return nil, err
	}
	// Chunks sent before the handshake completes are buffered by the stream
	// and flushed in order at readiness.
	if err := capture.Start(stream.SendAudio); err != nil {
		_ = playback.Close()
		_ = stream.Disconnect()
		return nil, err
	}

	s.session = session
	s.stream = stream
	s.playback = playback
	s.capture = capture
	s.ended = false
	s.level = 0
	s.speaking = false
	s.activeAt = time.Time{}
	s.stopRun = make(chan struct{})

	s.logger.Info("Session started",
		zap.String("sessionID", session.ID),
		zap.Duration("ceiling", s.cfg.SessionCeiling))

	go s.run(session, stream, capture, playback, s.stopRun)
	return session, nil
}

// run is the session's single event loop. It owns every transition after
// Start: transcript accumulation, playback routing, elapsed-time accounting,
// ceiling enforcement, and teardown on stream close.
func (s *SessionService) run(
	session *entities.Session,
	stream repositories.ConversationStream,
	capture repositories.CaptureSource,
	playback repositories.PlaybackSink,
	stop chan struct{},
) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	levelTicker := time.NewTicker(s.cfg.LevelPollInterval)
	defer levelTicker.Stop()

	events := stream.Events()
	for {
		select {
		case <-stop:
			return

		case <-levelTicker.C:
			s.mu.Lock()
			if !s.ended {
				s.level = capture.Level()
			}
			s.mu.Unlock()

		case <-ticker.C:
			s.mu.Lock()
			ceilingHit := false
			// Elapsed time and the ceiling count from handshake completion,
			// not from connect.
			if !s.ended && !s.activeAt.IsZero() {
				session.ElapsedMs = time.Since(s.activeAt).Milliseconds()
				ceilingHit = time.Since(s.activeAt) >= s.cfg.SessionCeiling
			}
			s.mu.Unlock()
			if ceilingHit {
				s.logger.Info("Session ceiling reached", zap.String("sessionID", session.ID))
				s.end("ceiling")
				return
			}

		case ev, ok := <-events:
			if !ok {
				return
			}
			if s.handleEvent(session, playback, ev) {
				return
			}
		}
	}
}

// handleEvent applies one stream event. Returns true when the event ended the
// session and the run loop must exit.
func (s *SessionService) handleEvent(
	session *entities.Session,
	playback repositories.PlaybackSink,
	ev repositories.StreamEvent,
) bool {
	switch ev := ev.(type) {
	case repositories.StreamReady:
		s.mu.Lock()
		if !s.ended {
			session.Phase = entities.PhaseActive
			s.activeAt = time.Now()
		}
		s.mu.Unlock()
		s.logger.Info("Session active", zap.String("sessionID", session.ID))

	case repositories.StreamAudio:
		samples := ev.Samples
		if ev.SampleRate != s.cfg.InboundRate {
			samples = audio.Quantize(audio.Resample(
				audio.Dequantize(samples), ev.SampleRate, s.cfg.InboundRate))
		}
		playback.Enqueue(samples)
		s.mu.Lock()
		s.speaking = true
		s.mu.Unlock()

	case repositories.StreamTranscript:
		s.mu.Lock()
		if !s.ended {
			session.AddDelta(ev.Role, ev.Text)
		}
		s.mu.Unlock()

	case repositories.StreamTurnComplete:
		s.mu.Lock()
		if !s.ended {
			session.FinalizeTurn()
		}
		s.speaking = false
		s.mu.Unlock()

	case repositories.StreamInterrupted:
		// The model was cut off mid-utterance. Unplayed audio belongs to the
		// abandoned turn and must not be heard.
		playback.Flush()
		s.mu.Lock()
		s.speaking = false
		s.mu.Unlock()
		s.logger.Info("Model turn interrupted", zap.String("sessionID", session.ID))

	case repositories.StreamClosed:
		if ev.Err != nil {
			s.logger.Error("Stream closed abnormally",
				zap.String("sessionID", session.ID), zap.Error(ev.Err))
		}
		s.end("stream closed")
		return true
	}
	return false
}

// End terminates the running session and returns its summary and metrics
func (s *SessionService) End() (*SessionResult, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	session := s.session
	s.mu.Unlock()

	s.end("user request")

	s.mu.Lock()
	defer s.mu.Unlock()
	return &SessionResult{
		Summary: session.Summary(),
		Metrics: session.Metrics(),
	}, nil
}

// end performs teardown exactly once per session, regardless of cause
func (s *SessionService) end(cause string) {
	s.mu.Lock()
	if s.session == nil || s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	session := s.session
	capture := s.capture
	playback := s.playback
	stream := s.stream
	close(s.stopRun)

	if !s.activeAt.IsZero() {
		session.ElapsedMs = time.Since(s.activeAt).Milliseconds()
	}
	session.Phase = entities.PhaseEnded
	session.FinalizeAll()
	summary := session.Summary()
	metrics := session.Metrics()
	s.mu.Unlock()

	_ = capture.Close()
	playback.Flush()
	_ = playback.Close()
	_ = stream.Disconnect()

	s.logger.Info("Session ended",
		zap.String("sessionID", session.ID),
		zap.String("cause", cause),
		zap.Int64("durationMs", metrics.DurationMs),
		zap.Int("userTurns", metrics.UserTurns),
		zap.Int("modelTurns", metrics.ModelTurns),
		zap.Int("userWords", metrics.UserWords),
		zap.Int("modelWords", metrics.ModelWords))

	if len(summary.Transcript) > 0 {
		s.analysisWG.Add(1)
		go s.analyze(summary)
	}
}

// analyze runs post-session analysis off the session path. A malformed
// response is logged and dropped; locally computed metrics already stand.
func (s *SessionService) analyze(summary entities.SessionSummary) {
	defer s.analysisWG.Done()

	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	analysis, err := s.analyzer.Analyze(ctx, summary)
	if err != nil {
		if errors.Is(err, entities.ErrAnalysisParse) {
			s.logger.Warn("Discarding malformed session analysis",
				zap.String("sessionID", summary.ID), zap.Error(err))
		} else {
			s.logger.Error("Session analysis failed",
				zap.String("sessionID", summary.ID), zap.Error(err))
		}
		return
	}

	s.logger.Info("Session analysis complete",
		zap.String("sessionID", summary.ID),
		zap.String("summary", analysis.Summary),
		zap.Int("struggledWords", len(analysis.StruggledWords)))

	if len(analysis.StruggledWords) > 0 {
		s.review.AddWords(analysis.StruggledWords)
	}
}

// Wait blocks until any in-flight post-session analysis has finished, so a
// shutting-down process does not drop the struggled-word handoff.
func (s *SessionService) Wait() {
	s.analysisWG.Wait()
}

// ToggleMute flips the microphone gate and returns the new state
func (s *SessionService) ToggleMute() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.ended {
		return false, ErrNoActiveSession
	}
	muted := !s.capture.Muted()
	s.capture.SetMuted(muted)
	s.logger.Info("Microphone mute toggled",
		zap.String("sessionID", s.session.ID), zap.Bool("muted", muted))
	return muted, nil
}

// SendText injects a typed user turn into the running conversation
func (s *SessionService) SendText(text string) error {
	s.mu.Lock()
	stream := s.stream
	active := s.session != nil && !s.ended
	s.mu.Unlock()
	if !active {
		return ErrNoActiveSession
	}
	return stream.SendText(text)
}

// Status reports the current session state
func (s *SessionService) Status() (*SessionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, ErrNoActiveSession
	}
	status := &SessionStatus{
		ID:        s.session.ID,
		Phase:     s.session.Phase,
		ElapsedMs: s.session.ElapsedMs,
	}
	if !s.ended {
		if !s.activeAt.IsZero() {
			status.ElapsedMs = time.Since(s.activeAt).Milliseconds()
		}
		status.Muted = s.capture.Muted()
		status.Speaking = s.speaking
		status.InputLevel = s.level
	}
	return status, nil
}

// Transcript returns a snapshot of the session transcript so far
func (s *SessionService) Transcript() ([]entities.TranscriptEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, ErrNoActiveSession
	}
	transcript := make([]entities.TranscriptEntry, len(s.session.Transcript))
	copy(transcript, s.session.Transcript)
	return transcript, nil
}
