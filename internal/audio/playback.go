package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"

	"github.com/causerie-app/causerie/domain/entities"
)

// PlaybackConfig carries the playback pipeline tunables
type PlaybackConfig struct {
	// SampleRate is the rate of enqueued audio, in Hz
	SampleRate int
}

// contextGuard opens the process-wide output context exactly once and hands
// the same context to every later pipeline. oto allows a single context per
// process and contexts cannot be closed, so the open result, success or
// failure, is permanent.
type contextGuard struct {
	once sync.Once
	rate int
	ctx  *oto.Context
	err  error
}

var outputContext contextGuard

func (g *contextGuard) acquire(rate int, open func() (*oto.Context, error)) (*oto.Context, error) {
	g.once.Do(func() {
		g.rate = rate
		g.ctx, g.err = open()
	})
	if g.err != nil {
		return nil, g.err
	}
	if rate != g.rate {
		return nil, fmt.Errorf("output context already opened at %d Hz, requested %d", g.rate, rate)
	}
	return g.ctx, nil
}

// Playback owns the output audio graph for one session. The device context is
// shared process-wide; each session gets its own player and queue. Enqueued
// 16-bit chunks are dequantized into the queue; oto's render thread pulls one
// sample per output frame and hears silence when the queue is empty.
type Playback struct {
	cfg    PlaybackConfig
	logger *zap.Logger
	queue  *PlaybackQueue

	otoCtx *oto.Context
	player *oto.Player

	closeOnce sync.Once
}

// NewPlayback creates an unstarted playback pipeline
func NewPlayback(cfg PlaybackConfig, logger *zap.Logger) *Playback {
	return &Playback{
		cfg:    cfg,
		logger: logger,
		queue:  NewPlaybackQueue(),
	}
}

// Start acquires the shared output context and begins rendering from the
// queue through a fresh player.
func (p *Playback) Start() error {
	ctx, err := outputContext.acquire(p.cfg.SampleRate, func() (*oto.Context, error) {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   p.cfg.SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			return nil, err
		}
		<-ready
		return ctx, nil
	})
	if err != nil {
		return fmt.Errorf("%w: open output context: %v", entities.ErrUnsupportedCapability, err)
	}

	p.otoCtx = ctx
	p.player = ctx.NewPlayer(&queueReader{queue: p.queue})
	p.player.Play()
	p.logger.Info("Playback started", zap.Int("sampleRate", p.cfg.SampleRate))
	return nil
}

// Enqueue dequantizes a decoded chunk and appends it to the playback queue
func (p *Playback) Enqueue(samples []int16) {
	p.queue.Push(Dequantize(samples))
}

// Flush discards all queued audio immediately. Safe to call concurrently with
// rendering: the queue state is swapped, not mutated, so no pre-flush sample
// is audible afterward.
func (p *Playback) Flush() {
	p.queue.Flush()
}

// Close stops rendering and releases the player exactly once. The shared
// context stays open for the next session.
func (p *Playback) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.queue.Flush()
		if p.player != nil {
			err = p.player.Close()
			p.player = nil
		}
		p.logger.Info("Playback closed")
	})
	return err
}

// queueReader adapts the queue to oto's pull model. It always satisfies the
// read, substituting silence for missing samples, so the render thread never
// blocks and never underruns audibly.
type queueReader struct {
	queue *PlaybackQueue
}

func (r *queueReader) Read(buf []byte) (int, error) {
	n := len(buf) / 4 * 4
	for i := 0; i < n; i += 4 {
		s, ok := r.queue.Pull()
		if !ok {
			s = 0
		}
		binary.LittleEndian.PutUint32(buf[i:], math.Float32bits(s))
	}
	return n, nil
}
