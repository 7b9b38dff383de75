// Package experience is the experience ledger: the one formula set that turns
// cumulative experience into levels, level progress and combat stats.
//
// Every function is total over non-negative input. Rejecting negative totals
// is the caller's job.
package experience

import (
	"math"
	"strings"
	"time"

	"github.com/KirkDiggler/cyber-arena/internal/entities"
)

const (
	// BaseLevelXP is the size of level 1
	BaseLevelXP = 100
	// LevelGrowth is the geometric growth of each following level
	LevelGrowth = 1.5

	XPPerCorrectAnswer   = 25
	XPPerLessonCompleted = 100

	XPBonusStreak3  = 15
	XPBonusStreak5  = 35
	XPBonusStreak10 = 75

	XPBonusPerfectQuiz   = 200
	XPBonusExcellentQuiz = 100
	XPBonusGoodQuiz      = 50

	// VictoryBaseXP is awarded for defeating a local arena enemy before bonuses
	VictoryBaseXP = 75
	// VictoryArenaXP is added per arena level
	VictoryArenaXP = 25
	// PvPVictoryXP is awarded for winning an online duel
	PvPVictoryXP = 100
)

// XPRequiredForLevel returns the experience needed to complete level n:
// floor(100 * 1.5^(n-1)). Levels below 1 are treated as 1.
func XPRequiredForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	required := math.Floor(BaseLevelXP * math.Pow(LevelGrowth, float64(level-1)))
	if required >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int(required)
}

// split walks the level thresholds and returns the level reached and the
// experience carried into it.
func split(totalXP int) (level, remainder int) {
	level = 1
	remainder = max(totalXP, 0)
	for {
		required := XPRequiredForLevel(level)
		if remainder < required {
			return level, remainder
		}
		remainder -= required
		level++
	}
}

// LevelFromXP returns the highest level whose cumulative threshold does not
// exceed totalXP
func LevelFromXP(totalXP int) int {
	level, _ := split(totalXP)
	return level
}

// CurrentLevelXP returns the experience earned inside the current level
func CurrentLevelXP(totalXP int) int {
	_, remainder := split(totalXP)
	return remainder
}

// XPNeededForNextLevel returns how much experience is missing to level up
func XPNeededForNextLevel(totalXP int) int {
	level, remainder := split(totalXP)
	return XPRequiredForLevel(level) - remainder
}

// LevelProgress returns the rounded percentage of the current level completed
func LevelProgress(totalXP int) int {
	level, remainder := split(totalXP)
	return int(math.Round(float64(remainder) * 100 / float64(XPRequiredForLevel(level))))
}

// NewRecord builds a record whose derived fields are computed from totalXP.
// XPToNextLevel holds the span of the current level, so a progress bar reads
// CurrentLevelXP / XPToNextLevel.
func NewRecord(playerID string, totalXP int, at time.Time) entities.ExperienceRecord {
	totalXP = max(totalXP, 0)
	level, remainder := split(totalXP)
	return entities.ExperienceRecord{
		PlayerID:       playerID,
		TotalXP:        totalXP,
		Level:          level,
		CurrentLevelXP: remainder,
		XPToNextLevel:  XPRequiredForLevel(level),
		UpdatedAt:      at,
	}
}

// Recompute refreshes the derived fields of rec from its TotalXP
func Recompute(rec entities.ExperienceRecord) entities.ExperienceRecord {
	fresh := NewRecord(rec.PlayerID, rec.TotalXP, rec.UpdatedAt)
	fresh.Streak = rec.Streak
	fresh.LastGain = rec.LastGain
	return fresh
}

// StatsForLevel returns the combat stats a player has at level
func StatsForLevel(level int) entities.Stats {
	if level < 1 {
		level = 1
	}
	n := level - 1
	return entities.Stats{
		MaxHealth: 100 + 15*n,
		MaxMana:   50 + 10*n,
		Attack:    20 + 3*n,
		Defense:   10 + 2*n,
	}
}

// AnswerReward is the breakdown of the experience earned by one answer
type AnswerReward struct {
	Base        int
	StreakBonus int
	Total       int
	NextStreak  int
}

// XPForAnswer awards a correct answer 25 XP plus a bonus tier based on the
// streak including this answer. Incorrect answers earn nothing and reset the
// streak.
func XPForAnswer(correct bool, currentStreak int) AnswerReward {
	if !correct {
		return AnswerReward{}
	}

	next := max(currentStreak, 0) + 1
	bonus := 0
	switch {
	case next >= 10:
		bonus = XPBonusStreak10
	case next >= 5:
		bonus = XPBonusStreak5
	case next >= 3:
		bonus = XPBonusStreak3
	}

	return AnswerReward{
		Base:        XPPerCorrectAnswer,
		StreakBonus: bonus,
		Total:       XPPerCorrectAnswer + bonus,
		NextStreak:  next,
	}
}

// QuizReward is the breakdown of a quiz completion award
type QuizReward struct {
	Base   int
	Bonus  int
	Total  int
	Reason string
}

// XPForQuizCompletion awards 25 XP per correct answer plus an accuracy bonus
// at 100%, 80% and 60%
func XPForQuizCompletion(correct, total int) QuizReward {
	if total <= 0 || correct < 0 {
		return QuizReward{}
	}
	correct = min(correct, total)

	reward := QuizReward{Base: correct * XPPerCorrectAnswer}
	switch {
	case correct == total:
		reward.Bonus, reward.Reason = XPBonusPerfectQuiz, "perfect quiz"
	case correct*100 >= total*80:
		reward.Bonus, reward.Reason = XPBonusExcellentQuiz, "excellent performance"
	case correct*100 >= total*60:
		reward.Bonus, reward.Reason = XPBonusGoodQuiz, "good performance"
	}
	reward.Total = max(reward.Base+reward.Bonus, 0)
	return reward
}

// XPForChallenge returns the experience for capturing a CTF flag. Unknown
// difficulties count as easy.
func XPForChallenge(difficulty string) int {
	switch strings.ToLower(strings.TrimSpace(difficulty)) {
	case "hard":
		return 200
	case "medium":
		return 150
	default:
		return 100
	}
}

// VictoryXP returns the reward for defeating an enemy in arena arenaLevel.
// xpPercent is the arena's experience multiplier in percent (120 for x1.2).
func VictoryXP(arenaLevel, xpPercent int) int {
	bonus := VictoryBaseXP * (xpPercent - 100) / 100
	return VictoryBaseXP + VictoryArenaXP*max(arenaLevel, 1) + max(bonus, 0)
}

var levelTitles = []struct {
	min   int
	title string
}{
	{50, "Cybersecurity Master"},
	{40, "Security Expert"},
	{30, "Cyber Specialist"},
	{25, "Senior Analyst"},
	{20, "Investigator"},
	{15, "Cryptographer"},
	{12, "Pentester"},
	{10, "Bug Hunter"},
	{8, "Junior Analyst"},
	{6, "Defender"},
	{4, "Apprentice Expert"},
	{2, "Apprentice"},
}

// LevelTitle returns the rank title displayed next to a level
func LevelTitle(level int) string {
	for _, t := range levelTitles {
		if level >= t.min {
			return t.title
		}
	}
	return "Beginner"
}
