package repositories

import (
	"context"

	"github.com/causerie-app/causerie/domain/entities"
)

// ConversationStream is the bidirectional audio conversation protocol client.
// Audio submitted before the handshake completes is buffered and flushed in
// original order exactly once when the stream becomes ready.
type ConversationStream interface {
	// Connect opens the transport and sends the setup message. Readiness is
	// reported asynchronously as a StreamReady event.
	Connect(ctx context.Context) error
	// SendAudio forwards one outbound chunk; fire-and-forget by design
	SendAudio(samples []int16)
	// SendText injects a fully-formed text turn without audio
	SendText(text string) error
	// Events yields inbound events in the exact order received. The channel
	// closes after a StreamClosed event has been delivered.
	Events() <-chan StreamEvent
	// Disconnect closes the transport, clears the outbound buffer, and resets
	// handshake state. Idempotent.
	Disconnect() error
}

// StreamEvent is the closed set of events a ConversationStream emits.
type StreamEvent interface {
	streamEvent()
}

// StreamReady signals that the setup handshake completed
type StreamReady struct{}

// StreamAudio carries decoded 16-bit samples at the inbound sample rate
type StreamAudio struct {
	Samples    []int16
	SampleRate int
}

// StreamTranscript carries an incremental transcription delta for one role
type StreamTranscript struct {
	Role entities.Role
	Text string
}

// StreamTurnComplete marks the end of the current turn
type StreamTurnComplete struct{}

// StreamInterrupted signals that the model's in-progress turn was cut off.
// Already-delivered transcript is unaffected.
type StreamInterrupted struct{}

// StreamClosed is the final event on any stream. Err is nil for a
// caller-initiated close and an entities.ErrAbnormalClose wrap otherwise.
type StreamClosed struct {
	Err error
}

func (StreamReady) streamEvent()        {}
func (StreamAudio) streamEvent()        {}
func (StreamTranscript) streamEvent()   {}
func (StreamTurnComplete) streamEvent() {}
func (StreamInterrupted) streamEvent()  {}
func (StreamClosed) streamEvent()       {}
