package live

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/causerie-app/causerie/domain/entities"
	"github.com/causerie-app/causerie/domain/repositories"
	"github.com/causerie-app/causerie/internal/audio"
)

// defaultInboundRate applies when a server audio part carries no rate in its
// mime type.
const defaultInboundRate = 24000

// setupMessage is the first client frame on a fresh connection
type setupMessage struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model                    string            `json:"model"`
	GenerationConfig         *generationConfig `json:"generationConfig,omitempty"`
	InputAudioTranscription  *struct{}         `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}         `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig  *voiceConfig `json:"voiceConfig,omitempty"`
	LanguageCode string       `json:"languageCode,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig *prebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// realtimeInputMessage carries one or more captured audio chunks
type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []mediaChunk `json:"mediaChunks"`
}

type mediaChunk struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// clientContentMessage carries a typed user turn
type clientContentMessage struct {
	ClientContent clientContent `json:"clientContent"`
}

type clientContent struct {
	Turns        []contentTurn `json:"turns"`
	TurnComplete bool          `json:"turnComplete"`
}

type contentTurn struct {
	Role  string        `json:"role"`
	Parts []contentPart `json:"parts"`
}

type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// serverMessage is the union of every frame the server sends. Exactly one of
// the top-level fields is set per frame.
type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete"`
	ServerContent *serverContent `json:"serverContent"`
}

type serverContent struct {
	ModelTurn           *contentTurn   `json:"modelTurn"`
	TurnComplete        bool           `json:"turnComplete"`
	Interrupted         bool           `json:"interrupted"`
	InputTranscription  *transcription `json:"inputTranscription"`
	OutputTranscription *transcription `json:"outputTranscription"`
}

type transcription struct {
	Text string `json:"text"`
}

// decodeServerMessage translates one server frame into stream events, in the
// order a consumer must observe them: readiness, transcript deltas, audio,
// then interruption and turn completion.
func decodeServerMessage(msg serverMessage) ([]repositories.StreamEvent, error) {
	var events []repositories.StreamEvent

	if msg.SetupComplete != nil {
		events = append(events, repositories.StreamReady{})
	}

	sc := msg.ServerContent
	if sc == nil {
		return events, nil
	}

	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		events = append(events, repositories.StreamTranscript{
			Role: entities.RoleUser,
			Text: sc.InputTranscription.Text,
		})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		events = append(events, repositories.StreamTranscript{
			Role: entities.RoleModel,
			Text: sc.OutputTranscription.Text,
		})
	}

	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return events, fmt.Errorf("decode audio part: %w", err)
			}
			events = append(events, repositories.StreamAudio{
				Samples:    audio.DecodeS16LE(raw),
				SampleRate: rateFromMimeType(part.InlineData.MimeType),
			})
		}
	}

	if sc.Interrupted {
		events = append(events, repositories.StreamInterrupted{})
	}
	if sc.TurnComplete {
		events = append(events, repositories.StreamTurnComplete{})
	}
	return events, nil
}

// rateFromMimeType extracts the rate parameter from a mime type such as
// "audio/pcm;rate=24000".
func rateFromMimeType(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		param = strings.TrimSpace(param)
		if v, ok := strings.CutPrefix(param, "rate="); ok {
			if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return defaultInboundRate
}
