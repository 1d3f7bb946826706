package live

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/causerie-app/causerie/domain/entities"
	"github.com/causerie-app/causerie/domain/repositories"
	"github.com/causerie-app/causerie/internal/audio"
)

func decodeFrame(t *testing.T, raw string) []repositories.StreamEvent {
	t.Helper()
	var msg serverMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Failed to unmarshal frame: %v", err)
	}
	events, err := decodeServerMessage(msg)
	if err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	return events
}

func TestDecodeSetupComplete(t *testing.T) {
	events := decodeFrame(t, `{"setupComplete": {}}`)

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if _, ok := events[0].(repositories.StreamReady); !ok {
		t.Errorf("Expected StreamReady, got %T", events[0])
	}
}

func TestDecodeAudioPart(t *testing.T) {
	samples := []int16{-100, 0, 100}
	data := base64.StdEncoding.EncodeToString(audio.EncodeS16LE(samples))
	events := decodeFrame(t, `{"serverContent": {"modelTurn": {"parts": [{"inlineData": {"mimeType": "audio/pcm;rate=24000", "data": "`+data+`"}}]}}}`)

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	ev, ok := events[0].(repositories.StreamAudio)
	if !ok {
		t.Fatalf("Expected StreamAudio, got %T", events[0])
	}
	if ev.SampleRate != 24000 {
		t.Errorf("Expected rate 24000, got %d", ev.SampleRate)
	}
	if len(ev.Samples) != 3 || ev.Samples[0] != -100 || ev.Samples[2] != 100 {
		t.Errorf("Expected samples [-100 0 100], got %v", ev.Samples)
	}
}

func TestDecodeTranscriptions(t *testing.T) {
	events := decodeFrame(t, `{"serverContent": {"inputTranscription": {"text": "salut"}, "outputTranscription": {"text": "bonjour"}}}`)

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}

	user, ok := events[0].(repositories.StreamTranscript)
	if !ok || user.Role != entities.RoleUser || user.Text != "salut" {
		t.Errorf("Expected user transcript 'salut', got %+v", events[0])
	}

	model, ok := events[1].(repositories.StreamTranscript)
	if !ok || model.Role != entities.RoleModel || model.Text != "bonjour" {
		t.Errorf("Expected model transcript 'bonjour', got %+v", events[1])
	}
}

func TestDecodeTurnCompleteAfterContent(t *testing.T) {
	events := decodeFrame(t, `{"serverContent": {"outputTranscription": {"text": "fin"}, "turnComplete": true}}`)

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if _, ok := events[1].(repositories.StreamTurnComplete); !ok {
		t.Errorf("Expected StreamTurnComplete last, got %T", events[1])
	}
}

func TestDecodeInterruptedBeforeTurnComplete(t *testing.T) {
	events := decodeFrame(t, `{"serverContent": {"interrupted": true, "turnComplete": true}}`)

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if _, ok := events[0].(repositories.StreamInterrupted); !ok {
		t.Errorf("Expected StreamInterrupted first, got %T", events[0])
	}
	if _, ok := events[1].(repositories.StreamTurnComplete); !ok {
		t.Errorf("Expected StreamTurnComplete second, got %T", events[1])
	}
}

func TestDecodeEmptyFrame(t *testing.T) {
	events := decodeFrame(t, `{}`)

	if len(events) != 0 {
		t.Errorf("Expected no events from empty frame, got %d", len(events))
	}
}

func TestDecodeBadAudioData(t *testing.T) {
	var msg serverMessage
	raw := `{"serverContent": {"modelTurn": {"parts": [{"inlineData": {"mimeType": "audio/pcm;rate=24000", "data": "!!!not-base64!!!"}}]}}}`
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Failed to unmarshal frame: %v", err)
	}

	if _, err := decodeServerMessage(msg); err == nil {
		t.Error("Expected error for undecodable audio data")
	}
}

func TestRateFromMimeType(t *testing.T) {
	cases := []struct {
		mimeType string
		want     int
	}{
		{"audio/pcm;rate=24000", 24000},
		{"audio/pcm; rate=16000", 16000},
		{"audio/pcm", defaultInboundRate},
		{"audio/pcm;rate=abc", defaultInboundRate},
		{"", defaultInboundRate},
	}
	for _, c := range cases {
		if got := rateFromMimeType(c.mimeType); got != c.want {
			t.Errorf("Expected rate %d for %q, got %d", c.want, c.mimeType, got)
		}
	}
}
