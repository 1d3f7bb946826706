package audio

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ebitengine/oto/v3"
)

func TestContextGuardOpensOnce(t *testing.T) {
	var g contextGuard
	opens := 0
	open := func() (*oto.Context, error) {
		opens++
		return nil, nil
	}

	for i := 0; i < 3; i++ {
		if _, err := g.acquire(24000, open); err != nil {
			t.Fatalf("Failed to acquire on attempt %d: %v", i+1, err)
		}
	}

	if opens != 1 {
		t.Errorf("Expected the context opened once, got %d opens", opens)
	}
}

func TestContextGuardRejectsRateChange(t *testing.T) {
	var g contextGuard
	open := func() (*oto.Context, error) { return nil, nil }

	if _, err := g.acquire(24000, open); err != nil {
		t.Fatalf("Failed to acquire at 24000: %v", err)
	}

	if _, err := g.acquire(48000, open); err == nil {
		t.Error("Expected error acquiring at a different rate")
	}

	// The original rate keeps working
	if _, err := g.acquire(24000, open); err != nil {
		t.Errorf("Expected original rate to stay usable, got %v", err)
	}
}

func TestContextGuardOpenFailureIsPermanent(t *testing.T) {
	var g contextGuard
	opens := 0
	openErr := errors.New("no output device")
	open := func() (*oto.Context, error) {
		opens++
		return nil, fmt.Errorf("open: %w", openErr)
	}

	for i := 0; i < 2; i++ {
		if _, err := g.acquire(24000, open); !errors.Is(err, openErr) {
			t.Errorf("Expected open error on attempt %d, got %v", i+1, err)
		}
	}

	if opens != 1 {
		t.Errorf("Expected a single open attempt, got %d", opens)
	}
}
