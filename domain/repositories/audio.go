package repositories

// CaptureSource owns the microphone input graph. Once started it delivers
// fixed-cadence chunks of 16-bit samples, already resampled to the outbound
// rate, through the callback passed to Start.
type CaptureSource interface {
	// Start acquires the device and begins invoking onChunk. Partial
	// initialization is rolled back before the error is returned.
	Start(onChunk func(samples []int16)) error
	// SetMuted drops chunks after capture without stopping the device
	SetMuted(muted bool)
	Muted() bool
	// Level reports the RMS level of the most recent chunk, in [0, 1]
	Level() float64
	// Close releases the device and audio context. Safe to call twice.
	Close() error
}

// PlaybackSink owns the output audio graph. Decoded 16-bit chunks are queued
// and drained by an isolated render path that emits silence when empty.
type PlaybackSink interface {
	Start() error
	Enqueue(samples []int16)
	// Flush discards all queued audio immediately; nothing enqueued before the
	// flush is audible afterward.
	Flush()
	Close() error
}
