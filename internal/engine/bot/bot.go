// Package bot is the local opponent. It never answers a real question: a
// success roll at the difficulty's odds stands in for one.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/KirkDiggler/cyber-arena/internal/engine/combat"
	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
)

// Difficulty of the bot
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

const (
	// BonusSides is the size of the bot's damage bonus U[0,8)
	BonusSides = 8
	// CritPercent is the bot's critical hit chance
	CritPercent = 15

	MinThink    = time.Second
	ThinkSpread = 2 * time.Second
)

// SuccessPercent returns the chance, in percent, that the bot answers right
func (d Difficulty) SuccessPercent() int {
	switch d {
	case DifficultyEasy:
		return 40
	case DifficultyHard:
		return 80
	default:
		return 60
	}
}

// ParseDifficulty parses a difficulty name, case insensitive
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	case "":
		return DifficultyMedium, nil
	}
	return "", errors.InvalidArgumentf("unknown difficulty %q", s)
}

// Bot plays the enemy side of a local session
type Bot struct {
	Difficulty Difficulty
	roller     dice.Roller
}

// New creates a bot. A nil roller uses dice.DefaultRoller.
func New(difficulty Difficulty, roller dice.Roller) *Bot {
	if roller == nil {
		roller = dice.DefaultRoller
	}
	return &Bot{Difficulty: difficulty, roller: roller}
}

// Think returns how long the bot pretends to think, between 1 and 3 seconds
func (b *Bot) Think() time.Duration {
	ms, err := b.roller.Roll(int(ThinkSpread / time.Millisecond))
	if err != nil {
		return MinThink
	}
	return MinThink + time.Duration(ms-1)*time.Millisecond
}

// Act resolves one bot attack against the player
func (b *Bot) Act(enemy, player entities.Combatant) (*combat.Outcome, error) {
	out := &combat.Outcome{Kind: combat.ActionAttack, AttackerAfter: enemy, DefenderAfter: player}

	roll, err := b.roller.Roll(100)
	if err != nil {
		return nil, errors.Wrap(err, "failed to roll bot success")
	}
	if roll > b.Difficulty.SuccessPercent() {
		out.Result = combat.ResultMiss
		out.Narration = fmt.Sprintf("%s fumbles the attack", enemy.Name)
		return out, nil
	}

	strike, err := combat.RollStrike(b.roller, enemy.Attack, player.Defense, BonusSides, CritPercent)
	if err != nil {
		return nil, err
	}

	out.Damage = strike.Damage
	out.DefenderAfter = player.WithHealth(player.Health - strike.Damage)
	if strike.Critical {
		out.Result = combat.ResultCritical
		out.Narration = fmt.Sprintf("CRITICAL HIT! %s deals %d damage to %s", enemy.Name, strike.Damage, player.Name)
	} else {
		out.Result = combat.ResultHit
		out.Narration = fmt.Sprintf("%s deals %d damage to %s", enemy.Name, strike.Damage, player.Name)
	}
	return out, nil
}
