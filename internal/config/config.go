package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultChunkSamples   = 4096
	defaultOutboundRate   = 16000
	defaultInboundRate    = 24000
	defaultSessionCeiling = 15 * time.Minute
	defaultTickInterval   = 1 * time.Second
	defaultLevelInterval  = 100 * time.Millisecond
	defaultModel          = "models/gemini-2.0-flash-live-001"
	defaultAnalysisModel  = "gemini-2.0-flash"
	defaultVoice          = "Puck"
	defaultLanguage       = "fr-FR"
	defaultEndpoint       = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	defaultHTTPPort       = "8080"
)

// Config carries every tunable the conversation core needs. Components take
// it (or a slice of it) in their constructors instead of reading globals, so
// tests can run with small chunk sizes and short ceilings.
type Config struct {
	// ChunkSamples is the number of captured samples accumulated before a
	// chunk is flushed off the audio thread
	ChunkSamples int
	// OutboundRate is the sample rate sent to the model, in Hz
	OutboundRate int
	// InboundRate is the sample rate received from the model, in Hz
	InboundRate int
	// SessionCeiling is the hard wall-clock limit for one session
	SessionCeiling time.Duration
	// TickInterval is the elapsed-time timer period
	TickInterval time.Duration
	// LevelPollInterval is the input-level polling period
	LevelPollInterval time.Duration

	// Model drives the live conversation; AnalysisModel the post-session
	// analysis call.
	Model         string
	AnalysisModel string
	Voice         string
	Language      string
	Endpoint      string

	HTTPPort string
}

// Default returns the production configuration
func Default() Config {
	return Config{
		ChunkSamples:      defaultChunkSamples,
		OutboundRate:      defaultOutboundRate,
		InboundRate:       defaultInboundRate,
		SessionCeiling:    defaultSessionCeiling,
		TickInterval:      defaultTickInterval,
		LevelPollInterval: defaultLevelInterval,
		Model:             defaultModel,
		AnalysisModel:     defaultAnalysisModel,
		Voice:             defaultVoice,
		Language:          defaultLanguage,
		Endpoint:          defaultEndpoint,
		HTTPPort:          defaultHTTPPort,
	}
}

// FromEnv returns the default configuration with CAUSERIE_* environment
// overrides applied.
func FromEnv() Config {
	cfg := Default()
	if v := os.Getenv("CAUSERIE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("CAUSERIE_ANALYSIS_MODEL"); v != "" {
		cfg.AnalysisModel = v
	}
	if v := os.Getenv("CAUSERIE_VOICE"); v != "" {
		cfg.Voice = v
	}
	if v := os.Getenv("CAUSERIE_LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv("CAUSERIE_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.HTTPPort = v
	}
	if v := os.Getenv("CAUSERIE_CHUNK_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChunkSamples = n
		}
	}
	if v := os.Getenv("CAUSERIE_SESSION_CEILING"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionCeiling = d
		}
	}
	return cfg
}

// Validate checks the configuration for values the pipeline cannot run with
func (c Config) Validate() error {
	if c.ChunkSamples <= 0 {
		return fmt.Errorf("chunk samples must be positive, got %d", c.ChunkSamples)
	}
	if c.OutboundRate <= 0 || c.InboundRate <= 0 {
		return fmt.Errorf("sample rates must be positive, got out=%d in=%d", c.OutboundRate, c.InboundRate)
	}
	if c.SessionCeiling <= 0 {
		return fmt.Errorf("session ceiling must be positive, got %s", c.SessionCeiling)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.AnalysisModel == "" {
		return fmt.Errorf("analysis model is required")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	return nil
}
