package testutils

import (
	"time"

	"github.com/KirkDiggler/cyber-arena/internal/entities"
)

const (
	// TestPlayerID is the default player used by fixtures
	TestPlayerID = "player-test-001"
	// TestPlayerName is the default display name
	TestPlayerName = "Neo"
	// TestOpponentName is the default opponent display name
	TestOpponentName = "Trinity"
)

// FixedTime is a stable timestamp for fixtures
var FixedTime = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

// CreateTestCombatant creates a combatant with the online baseline stats
func CreateTestCombatant(name string) entities.Combatant {
	return entities.NewCombatant(name, 1, entities.Stats{
		MaxHealth: 100,
		MaxMana:   50,
		Attack:    20,
		Defense:   10,
	})
}

// CreateTestQuestion creates a multiple choice question whose correct
// choice is index 1
func CreateTestQuestion() *entities.Question {
	correct := 1
	return &entities.Question{
		ID:      "q-test-001",
		Module:  "cryptography",
		Prompt:  "What is the main difference between hashing and encryption?",
		Choices: []string{"Hashing is reversible", "Hashing is irreversible", "Encryption is faster"},
		Correct: &correct,
	}
}
