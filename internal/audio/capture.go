package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/causerie-app/causerie/domain/entities"
)

// chunkQueueDepth bounds the audio-thread handoff channel. The coordination
// path drains it far faster than 20ms periods fill it.
const chunkQueueDepth = 8

// CaptureConfig carries the capture pipeline tunables
type CaptureConfig struct {
	// ChunkSamples is the number of native-rate samples accumulated on the
	// audio thread before a chunk is handed off
	ChunkSamples int
	// OutboundRate is the sample rate of chunks delivered to OnChunk, in Hz
	OutboundRate int
}

// Capture owns the microphone input graph. Samples arrive on miniaudio's
// realtime thread, which only accumulates them and hands full chunks to a
// coordinator goroutine through a non-blocking channel send. The coordinator
// resamples the native device rate to the outbound rate, quantizes, and
// invokes the chunk callback.
type Capture struct {
	cfg    CaptureConfig
	logger *zap.Logger

	mctx   *malgo.AllocatedContext
	device *malgo.Device

	chunks chan []float32
	done   chan struct{}

	muted atomic.Bool
	level atomic.Uint64 // math.Float64bits of the last chunk's RMS

	closeOnce sync.Once
}

// NewCapture creates an unstarted capture pipeline
func NewCapture(cfg CaptureConfig, logger *zap.Logger) *Capture {
	return &Capture{
		cfg:    cfg,
		logger: logger,
		chunks: make(chan []float32, chunkQueueDepth),
		done:   make(chan struct{}),
	}
}

// Start acquires the microphone at its native rate and begins delivering
// resampled, quantized chunks to onChunk. Any partially initialized device
// state is rolled back before an error is returned.
func (c *Capture) Start(onChunk func(samples []int16)) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{
		ThreadPriority: malgo.ThreadPriorityRealtime,
	}, nil)
	if err != nil {
		return classifyDeviceError("init audio context", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.PeriodSizeInMilliseconds = 20

	accum := make([]float32, 0, c.cfg.ChunkSamples*2)
	callbacks := malgo.DeviceCallbacks{
		// Runs on the isolated audio thread: accumulate, hand off, return.
		Data: func(_, input []byte, frameCount uint32) {
			for i := 0; i+4 <= len(input); i += 4 {
				accum = append(accum, math.Float32frombits(binary.LittleEndian.Uint32(input[i:])))
			}
			for len(accum) >= c.cfg.ChunkSamples {
				chunk := make([]float32, c.cfg.ChunkSamples)
				copy(chunk, accum)
				accum = append(accum[:0], accum[c.cfg.ChunkSamples:]...)
				select {
				case c.chunks <- chunk:
				default:
					// Dropping a chunk beats blocking the audio thread.
				}
			}
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return classifyDeviceError("init capture device", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return classifyDeviceError("start capture device", err)
	}

	c.mctx = mctx
	c.device = device
	deviceRate := int(device.SampleRate())
	c.logger.Info("Capture started",
		zap.Int("deviceRate", deviceRate),
		zap.Int("outboundRate", c.cfg.OutboundRate),
		zap.Int("chunkSamples", c.cfg.ChunkSamples))

	go c.forward(onChunk, deviceRate)
	return nil
}

// forward is the coordination side of the capture pipeline
func (c *Capture) forward(onChunk func([]int16), deviceRate int) {
	for {
		select {
		case <-c.done:
			return
		case chunk := <-c.chunks:
			c.level.Store(math.Float64bits(rms(chunk)))
			if c.muted.Load() {
				continue
			}
			resampled := Resample(chunk, deviceRate, c.cfg.OutboundRate)
			onChunk(Quantize(resampled))
		}
	}
}

// SetMuted drops chunks after capture. The device keeps running because
// restarting it has audible startup latency.
func (c *Capture) SetMuted(muted bool) {
	c.muted.Store(muted)
}

// Muted reports whether chunks are currently being dropped
func (c *Capture) Muted() bool {
	return c.muted.Load()
}

// Level reports the RMS level of the most recent chunk, in [0, 1]
func (c *Capture) Level() float64 {
	return math.Float64frombits(c.level.Load())
}

// Close stops the device and releases the audio context exactly once
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.device != nil {
			_ = c.device.Stop()
			c.device.Uninit()
			c.device = nil
		}
		if c.mctx != nil {
			_ = c.mctx.Uninit()
			c.mctx.Free()
			c.mctx = nil
		}
		c.logger.Info("Capture closed")
	})
	return nil
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// classifyDeviceError maps miniaudio failures onto the core's error kinds
func classifyDeviceError(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "access denied"), strings.Contains(msg, "permission"):
		return fmt.Errorf("%w: %s: %v", entities.ErrPermissionDenied, op, err)
	case strings.Contains(msg, "no device"), strings.Contains(msg, "not supported"),
		strings.Contains(msg, "no backend"), strings.Contains(msg, "format"):
		return fmt.Errorf("%w: %s: %v", entities.ErrUnsupportedCapability, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
