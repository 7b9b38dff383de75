package progress

import (
	"github.com/KirkDiggler/cyber-arena/internal/engine/experience"
	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/syncbus"
)

// AwardXPInput defines the request for awarding experience
type AwardXPInput struct {
	PlayerID string
	// Amount may be negative; the total never drops below zero
	Amount int
	Reason string
}

// AwardXPOutput defines the response for awarding experience
type AwardXPOutput struct {
	Update syncbus.Update
	// Applied is the change actually made after clamping
	Applied int
}

// RecordAnswerInput defines the request for recording a trivia answer
type RecordAnswerInput struct {
	PlayerID string
	Correct  bool
	Reason   string
}

// RecordAnswerOutput defines the response for recording a trivia answer
type RecordAnswerOutput struct {
	Reward experience.AnswerReward
	Update syncbus.Update
}

// CompleteQuizInput defines the request for completing a quiz
type CompleteQuizInput struct {
	PlayerID string
	QuizID   string
	Correct  int
	Total    int
}

// CompleteQuizOutput defines the response for completing a quiz
type CompleteQuizOutput struct {
	Reward   experience.QuizReward
	Update   syncbus.Update
	Snapshot *entities.ProgressSnapshot
}

// CompleteLessonInput defines the request for completing a lesson
type CompleteLessonInput struct {
	PlayerID string
	LessonID string
}

// CompleteLessonOutput defines the response for completing a lesson
type CompleteLessonOutput struct {
	// Awarded is false when the lesson was already completed
	Awarded  bool
	Update   syncbus.Update
	Snapshot *entities.ProgressSnapshot
}

// CaptureFlagInput defines the request for recording a captured CTF flag.
// Flag validation happens in the lab backend, not here.
type CaptureFlagInput struct {
	PlayerID    string
	ChallengeID string
	Difficulty  string
}

// CaptureFlagOutput defines the response for a captured flag
type CaptureFlagOutput struct {
	// Awarded is false when the challenge was already captured
	Awarded  bool
	Points   int
	Progress *entities.LabProgress
	Update   syncbus.Update
}

// GetProgressInput defines the request for reading all progress of a player
type GetProgressInput struct {
	PlayerID string
}

// GetProgressOutput defines the response for reading progress
type GetProgressOutput struct {
	Experience entities.ExperienceRecord
	Snapshot   *entities.ProgressSnapshot
	Lab        *entities.LabProgress
	Title      string
	Progress   int
}
