package live

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/causerie-app/causerie/domain/entities"
	"github.com/causerie-app/causerie/domain/repositories"
	"github.com/causerie-app/causerie/internal/audio"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Audio frames dominate; one
	// frame carries well under a second of base64 PCM.
	maxMessageSize = 4 << 20

	// eventBuffer absorbs bursts of server frames between consumer reads
	eventBuffer = 64
)

// Options configures a live conversation client
type Options struct {
	Endpoint string
	APIKey   string
	Model    string
	Voice    string
	Language string
	// OutboundRate is the sample rate of audio passed to SendAudio, in Hz
	OutboundRate int
}

// Client speaks the bidirectional generation protocol over a websocket. It is
// a single-shot connection: Connect once, consume Events until StreamClosed,
// Disconnect. Audio sent before the server acknowledges setup is held in
// arrival order and flushed as the first outbound media when the handshake
// completes.
type Client struct {
	opts   Options
	logger *zap.Logger

	conn   *websocket.Conn
	events chan repositories.StreamEvent
	done   chan struct{}

	// mu guards ready and pending, and orders SendAudio against the
	// handshake flush.
	mu      sync.Mutex
	ready   bool
	pending [][]int16

	// writeMu serializes all writes to conn
	writeMu sync.Mutex

	normalClose atomic.Bool
	closeOnce   sync.Once
}

// NewClient creates an unconnected client
func NewClient(opts Options, logger *zap.Logger) *Client {
	return &Client{
		opts:   opts,
		logger: logger,
		events: make(chan repositories.StreamEvent, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Connect dials the endpoint and sends the setup frame. The stream is not
// usable for typed input until StreamReady is observed on Events; audio may
// be sent immediately and is buffered until then.
func (c *Client) Connect(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s?key=%s", c.opts.Endpoint, url.QueryEscape(c.opts.APIKey))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", entities.ErrConnectionFailed, c.opts.Endpoint, err)
	}
	c.conn = conn

	setup := setupMessage{Setup: setupPayload{
		Model: c.opts.Model,
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: &voiceConfig{
					PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: c.opts.Voice},
				},
				LanguageCode: c.opts.Language,
			},
		},
		InputAudioTranscription:  &struct{}{},
		OutputAudioTranscription: &struct{}{},
	}}
	if err := c.writeJSON(setup); err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: send setup: %v", entities.ErrConnectionFailed, err)
	}

	c.logger.Info("Live stream connected",
		zap.String("model", c.opts.Model),
		zap.String("voice", c.opts.Voice))

	go c.readLoop()
	go c.pingLoop()
	return nil
}

// SendAudio ships one captured chunk. Before the handshake completes the
// chunk is queued; afterwards it goes straight to the wire. Never blocks the
// caller on network errors, which surface through Events as a closed stream.
func (c *Client) SendAudio(samples []int16) {
	c.mu.Lock()
	if !c.ready {
		c.pending = append(c.pending, samples)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := c.writeAudio(samples); err != nil {
		c.logger.Warn("Dropping audio chunk", zap.Error(err))
	}
}

// SendText ships a typed user turn with turn completion set, prompting an
// immediate model response.
func (c *Client) SendText(text string) error {
	c.mu.Lock()
	ready := c.ready
	c.mu.Unlock()
	if !ready {
		return fmt.Errorf("stream not ready")
	}
	msg := clientContentMessage{ClientContent: clientContent{
		Turns: []contentTurn{{
			Role:  "user",
			Parts: []contentPart{{Text: text}},
		}},
		TurnComplete: true,
	}}
	if err := c.writeJSON(msg); err != nil {
		return fmt.Errorf("send text turn: %w", err)
	}
	return nil
}

// Events returns the ordered stream of server events. The channel is closed
// after a terminal StreamClosed event.
func (c *Client) Events() <-chan repositories.StreamEvent {
	return c.events
}

// Disconnect closes the stream deliberately, dropping buffered audio and
// handshake state. The subsequent StreamClosed event carries no error. Safe
// to call more than once.
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.normalClose.Store(true)
		c.mu.Lock()
		c.pending = nil
		c.ready = false
		c.mu.Unlock()
		if c.conn != nil {
			c.writeMu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.writeMu.Unlock()
			_ = c.conn.Close()
		}
		close(c.done)
	})
	return nil
}

// readLoop pumps server frames into the event channel until the connection
// ends, then emits a terminal StreamClosed and closes the channel.
func (c *Client) readLoop() {
	defer close(c.events)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg serverMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.emit(c.closedEvent(err))
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		events, err := decodeServerMessage(msg)
		if err != nil {
			c.logger.Warn("Skipping undecodable server frame", zap.Error(err))
		}
		for _, ev := range events {
			if _, ok := ev.(repositories.StreamReady); ok {
				c.completeHandshake()
			}
			if !c.emit(ev) {
				return
			}
		}
	}
}

// completeHandshake flushes buffered audio in arrival order, then marks the
// stream ready. Holding mu across the flush keeps concurrently sent chunks
// behind every buffered one.
func (c *Client) completeHandshake() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, samples := range c.pending {
		if err := c.writeAudio(samples); err != nil {
			c.logger.Warn("Dropping buffered audio chunk", zap.Error(err))
		}
	}
	flushed := len(c.pending)
	c.pending = nil
	c.ready = true
	c.logger.Info("Live stream ready", zap.Int("flushedChunks", flushed))
}

// pingLoop keeps the connection alive per the peer's idle timeout
func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) writeAudio(samples []int16) error {
	msg := realtimeInputMessage{RealtimeInput: realtimeInput{
		MediaChunks: []mediaChunk{{
			MimeType: fmt.Sprintf("audio/pcm;rate=%d", c.opts.OutboundRate),
			Data:     base64.StdEncoding.EncodeToString(audio.EncodeS16LE(samples)),
		}},
	}}
	return c.writeJSON(msg)
}

func (c *Client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// closedEvent classifies the read error that ended the connection
func (c *Client) closedEvent(err error) repositories.StreamClosed {
	if c.normalClose.Load() ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return repositories.StreamClosed{}
	}
	return repositories.StreamClosed{
		Err: fmt.Errorf("%w: %v", entities.ErrAbnormalClose, err),
	}
}

// emit delivers an event unless the consumer is gone
func (c *Client) emit(ev repositories.StreamEvent) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}
