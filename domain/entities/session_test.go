package entities

import (
	"testing"
)

func TestSessionCreation(t *testing.T) {
	session := NewSession()

	if session.ID == "" {
		t.Error("Expected session ID to be set")
	}

	if session.Phase != PhaseConnecting {
		t.Errorf("Expected phase %s, got %s", PhaseConnecting, session.Phase)
	}

	if len(session.Transcript) != 0 {
		t.Errorf("Expected empty transcript, got %d entries", len(session.Transcript))
	}

	if session.StartedAt.IsZero() {
		t.Error("Expected StartedAt to be set")
	}
}

func TestAddDeltaAccumulatesSameRole(t *testing.T) {
	session := NewSession()

	session.AddDelta(RoleModel, "Bonjour")
	session.AddDelta(RoleModel, " tout le monde")

	if len(session.Transcript) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(session.Transcript))
	}

	if session.Transcript[0].Text != "Bonjour tout le monde" {
		t.Errorf("Expected accumulated text %q, got %q", "Bonjour tout le monde", session.Transcript[0].Text)
	}

	if !session.Transcript[0].Accumulating {
		t.Error("Expected entry to still be accumulating")
	}
}

func TestAddDeltaNewEntryOnRoleChange(t *testing.T) {
	session := NewSession()

	session.AddDelta(RoleUser, "Salut")
	session.AddDelta(RoleModel, "Bonjour")

	if len(session.Transcript) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(session.Transcript))
	}

	if session.Transcript[0].Role != RoleUser {
		t.Errorf("Expected first entry role %s, got %s", RoleUser, session.Transcript[0].Role)
	}

	if session.Transcript[1].Role != RoleModel {
		t.Errorf("Expected second entry role %s, got %s", RoleModel, session.Transcript[1].Role)
	}
}

func TestAddDeltaIgnoresEmptyText(t *testing.T) {
	session := NewSession()

	session.AddDelta(RoleUser, "")

	if len(session.Transcript) != 0 {
		t.Errorf("Expected no entries for empty delta, got %d", len(session.Transcript))
	}
}

func TestAddDeltaAfterFinalizeStartsNewEntry(t *testing.T) {
	session := NewSession()

	session.AddDelta(RoleModel, "Premier tour")
	session.FinalizeTurn()
	session.AddDelta(RoleModel, "Deuxieme tour")

	if len(session.Transcript) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(session.Transcript))
	}

	if session.Transcript[0].Accumulating {
		t.Error("Expected first entry to be finalized")
	}

	if !session.Transcript[1].Accumulating {
		t.Error("Expected second entry to be accumulating")
	}
}

func TestFinalizeTurnIsIdempotentPerEntry(t *testing.T) {
	session := NewSession()

	session.AddDelta(RoleUser, "Une question")
	session.AddDelta(RoleModel, "Une reponse")
	session.FinalizeTurn()
	session.FinalizeTurn()
	session.FinalizeTurn()

	if session.Transcript[1].Accumulating {
		t.Error("Expected most recent entry to be finalized")
	}

	if session.Transcript[0].Accumulating {
		t.Error("Expected older entry to be finalized by the second call")
	}
}

func TestFinalizeTurnNoopWhenNothingAccumulating(t *testing.T) {
	session := NewSession()

	// Must not panic or mutate anything
	session.FinalizeTurn()

	if len(session.Transcript) != 0 {
		t.Errorf("Expected transcript untouched, got %d entries", len(session.Transcript))
	}
}

func TestFinalizeAllClosesEverything(t *testing.T) {
	session := NewSession()

	session.AddDelta(RoleUser, "Salut")
	session.AddDelta(RoleModel, "Bonjour, comment ca va")

	session.FinalizeAll()

	for i, entry := range session.Transcript {
		if entry.Accumulating {
			t.Errorf("Expected entry %d to be finalized", i)
		}
	}
}

func TestMetricsCountsOnlyFinalizedEntries(t *testing.T) {
	session := NewSession()
	session.ElapsedMs = 90000

	session.AddDelta(RoleUser, "je voudrais un cafe")
	session.FinalizeTurn()
	session.AddDelta(RoleModel, "bien sur tout de suite")
	session.FinalizeTurn()
	session.AddDelta(RoleModel, "encore en cours")

	metrics := session.Metrics()

	if metrics.UserTurns != 1 {
		t.Errorf("Expected 1 user turn, got %d", metrics.UserTurns)
	}
	if metrics.ModelTurns != 1 {
		t.Errorf("Expected 1 model turn, got %d", metrics.ModelTurns)
	}
	if metrics.UserWords != 4 {
		t.Errorf("Expected 4 user words, got %d", metrics.UserWords)
	}
	if metrics.ModelWords != 5 {
		t.Errorf("Expected 5 model words, got %d", metrics.ModelWords)
	}
	if metrics.DurationMs != 90000 {
		t.Errorf("Expected duration 90000, got %d", metrics.DurationMs)
	}
}

func TestSummaryCopiesTranscript(t *testing.T) {
	session := NewSession()
	session.AddDelta(RoleUser, "Salut")

	summary := session.Summary()
	summary.Transcript[0].Text = "mutated"

	if session.Transcript[0].Text != "Salut" {
		t.Errorf("Expected session transcript unchanged, got %q", session.Transcript[0].Text)
	}
}
