package entities

import "time"

// ExperienceRecord is the persisted experience state of a player.
//
// Level, CurrentLevelXP and XPToNextLevel are derived from TotalXP and are
// only ever filled by experience.NewRecord; nothing mutates them directly.
type ExperienceRecord struct {
	PlayerID       string    `json:"player_id"`
	TotalXP        int       `json:"total_xp"`
	Level          int       `json:"level"`
	CurrentLevelXP int       `json:"current_level_xp"`
	XPToNextLevel  int       `json:"xp_to_next_level"`
	Streak         int       `json:"streak"`
	LastGain       *XPGain   `json:"last_gain,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// XPGain describes the most recent award applied to a record
type XPGain struct {
	Amount int       `json:"amount"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// QuizCompletion records one finished quiz
type QuizCompletion struct {
	QuizID      string    `json:"quiz_id"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	XPEarned    int       `json:"xp_earned"`
	CompletedAt time.Time `json:"completed_at"`
}

// ProgressSnapshot is the full progress document pushed to the profile service
type ProgressSnapshot struct {
	PlayerID         string           `json:"player_id"`
	TotalXP          int              `json:"total_xp"`
	Level            int              `json:"level"`
	CompletedQuizzes []QuizCompletion `json:"completed_quizzes"`
	CompletedLessons []string         `json:"completed_lessons"`
}

// LabProgress tracks captured CTF challenges. Peripheral to combat.
type LabProgress struct {
	PlayerID  string   `json:"player_id"`
	Completed []string `json:"completed"`
	Points    int      `json:"points"`
	Rank      string   `json:"rank"`
}
