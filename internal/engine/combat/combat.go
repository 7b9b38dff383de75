// Package combat resolves attack and heal actions gated on a trivia answer.
//
// The resolver is pure apart from the injected dice.Roller. It never decides
// who applies the outcome: local sessions apply AttackerAfter/DefenderAfter
// directly, online sessions only transmit them and wait for confirmation.
package combat

import (
	"fmt"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
)

// ActionKind is what the player tries to do with a question
type ActionKind string

const (
	ActionAttack ActionKind = "attack"
	ActionHeal   ActionKind = "heal"
)

// Valid reports whether the kind is known
func (k ActionKind) Valid() bool {
	return k == ActionAttack || k == ActionHeal
}

// Result classifies an outcome
type Result string

const (
	ResultHit              Result = "hit"
	ResultCritical         Result = "critical"
	ResultMiss             Result = "miss"
	ResultHealed           Result = "healed"
	ResultInsufficientMana Result = "insufficient_mana"
	ResultFailed           Result = "failed"
	ResultTimedOut         Result = "timed_out"
)

const (
	// PlayerBonusSides is the size of the uniform damage bonus U[0,10)
	PlayerBonusSides = 10
	// PlayerCritPercent is the player's critical hit chance
	PlayerCritPercent = 20

	AttackManaRegen   = 10
	AttackManaPenalty = 5

	HealCost        = 20
	HealPercent     = 30
	HealManaPenalty = 10
)

// Outcome is the result of resolving one action
type Outcome struct {
	Kind   ActionKind `json:"kind"`
	Result Result     `json:"result"`
	// Damage dealt to the defender, zero unless Result is hit or critical
	Damage int `json:"damage"`
	// Heal is the health actually restored to the attacker
	Heal int `json:"heal"`
	// ManaDelta is the applied change to the attacker's mana
	ManaDelta     int                `json:"mana_delta"`
	AttackerAfter entities.Combatant `json:"attacker_after"`
	DefenderAfter entities.Combatant `json:"defender_after"`
	Narration     string             `json:"narration"`
}

// Succeeded reports whether the action had its intended effect
func (o *Outcome) Succeeded() bool {
	switch o.Result {
	case ResultHit, ResultCritical, ResultHealed:
		return true
	}
	return false
}

// ResolveInput is the request to resolve one action
type ResolveInput struct {
	Kind     ActionKind
	Correct  bool
	TimedOut bool
	Attacker entities.Combatant
	Defender entities.Combatant
}

// Validate validates the input
func (i *ResolveInput) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateEnum("kind", string(i.Kind), []string{string(ActionAttack), string(ActionHeal)}, vb)
	if i.Correct && i.TimedOut {
		vb.Field("timed_out", "a timed out action cannot be correct")
	}
	return vb.Build()
}

// Resolver turns answered actions into outcomes
type Resolver struct {
	roller dice.Roller
}

// NewResolver creates a resolver. A nil roller uses dice.DefaultRoller.
func NewResolver(roller dice.Roller) *Resolver {
	if roller == nil {
		roller = dice.DefaultRoller
	}
	return &Resolver{roller: roller}
}

// Resolve resolves an attack or heal. A timed out action is handled exactly
// like a wrong answer of the same kind, only narrated differently.
func (r *Resolver) Resolve(input *ResolveInput) (*Outcome, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	switch input.Kind {
	case ActionHeal:
		return r.resolveHeal(input), nil
	default:
		return r.resolveAttack(input)
	}
}

func (r *Resolver) resolveAttack(input *ResolveInput) (*Outcome, error) {
	attacker, defender := input.Attacker, input.Defender
	out := &Outcome{Kind: ActionAttack, AttackerAfter: attacker, DefenderAfter: defender}

	if !input.Correct {
		out.AttackerAfter = attacker.WithMana(attacker.Mana - AttackManaPenalty)
		out.ManaDelta = out.AttackerAfter.Mana - attacker.Mana
		out.Result = failedResult(input.TimedOut, ResultMiss)
		if input.TimedOut {
			out.Narration = fmt.Sprintf("Time is up! %s's attack fizzles (%d mana)", attacker.Name, out.ManaDelta)
		} else {
			out.Narration = fmt.Sprintf("Wrong answer! %s's attack misses (%d mana)", attacker.Name, out.ManaDelta)
		}
		return out, nil
	}

	strike, err := RollStrike(r.roller, attacker.Attack, defender.Defense, PlayerBonusSides, PlayerCritPercent)
	if err != nil {
		return nil, err
	}

	out.Damage = strike.Damage
	out.DefenderAfter = defender.WithHealth(defender.Health - strike.Damage)
	out.AttackerAfter = attacker.WithMana(attacker.Mana + AttackManaRegen)
	out.ManaDelta = out.AttackerAfter.Mana - attacker.Mana
	if strike.Critical {
		out.Result = ResultCritical
		out.Narration = fmt.Sprintf("CRITICAL HIT! %s deals %d damage to %s", attacker.Name, strike.Damage, defender.Name)
	} else {
		out.Result = ResultHit
		out.Narration = fmt.Sprintf("%s deals %d damage to %s", attacker.Name, strike.Damage, defender.Name)
	}
	return out, nil
}

func (r *Resolver) resolveHeal(input *ResolveInput) *Outcome {
	attacker := input.Attacker
	out := &Outcome{Kind: ActionHeal, AttackerAfter: attacker, DefenderAfter: input.Defender}

	if !input.Correct {
		out.AttackerAfter = attacker.WithMana(attacker.Mana - HealManaPenalty)
		out.ManaDelta = out.AttackerAfter.Mana - attacker.Mana
		out.Result = failedResult(input.TimedOut, ResultFailed)
		if input.TimedOut {
			out.Narration = fmt.Sprintf("Time is up! %s's heal fails (%d mana)", attacker.Name, out.ManaDelta)
		} else {
			out.Narration = fmt.Sprintf("Wrong answer! %s's heal fails (%d mana)", attacker.Name, out.ManaDelta)
		}
		return out
	}

	if attacker.Mana < HealCost {
		out.Result = ResultInsufficientMana
		out.Narration = fmt.Sprintf("Correct, but %s lacks mana to heal (%d/%d)", attacker.Name, attacker.Mana, HealCost)
		return out
	}

	after := attacker.WithMana(attacker.Mana - HealCost)
	after = after.WithHealth(after.Health + HealAmount(attacker.MaxHealth))
	out.AttackerAfter = after
	out.Heal = after.Health - attacker.Health
	out.ManaDelta = after.Mana - attacker.Mana
	out.Result = ResultHealed
	out.Narration = fmt.Sprintf("%s restores %d health", attacker.Name, out.Heal)
	return out
}

func failedResult(timedOut bool, otherwise Result) Result {
	if timedOut {
		return ResultTimedOut
	}
	return otherwise
}

// HealAmount returns floor(30% of maxHealth)
func HealAmount(maxHealth int) int {
	return maxHealth * HealPercent / 100
}

// Damage is max(1, attack - defense + bonus)
func Damage(attack, defense, bonus int) int {
	return max(1, attack-defense+bonus)
}

// CriticalDamage multiplies damage by 1.5, floored, never below 1
func CriticalDamage(damage int) int {
	return max(1, damage*3/2)
}

// Strike is a rolled successful hit
type Strike struct {
	Damage   int
	Critical bool
}

// RollStrike rolls the damage bonus U[0,bonusSides) and then the critical hit
// with critPercent chance. Both sides of a fight use it with their own odds.
func RollStrike(roller dice.Roller, attack, defense, bonusSides, critPercent int) (Strike, error) {
	bonus, err := roller.Roll(bonusSides)
	if err != nil {
		return Strike{}, errors.Wrap(err, "failed to roll damage bonus")
	}
	crit, err := roller.Roll(100)
	if err != nil {
		return Strike{}, errors.Wrap(err, "failed to roll critical hit")
	}

	strike := Strike{Damage: Damage(attack, defense, bonus-1)}
	if crit <= critPercent {
		strike.Critical = true
		strike.Damage = CriticalDamage(strike.Damage)
	}
	return strike, nil
}

// PvP baseline, identical for both players regardless of level
const (
	BaselineHealth  = 100
	BaselineMana    = 50
	BaselineAttack  = 20
	BaselineDefense = 10
)

// PvPBaseline returns the combatant every online duel starts with. The level
// is kept for display only.
func PvPBaseline(name string, level int) entities.Combatant {
	return entities.NewCombatant(name, level, entities.Stats{
		MaxHealth: BaselineHealth,
		MaxMana:   BaselineMana,
		Attack:    BaselineAttack,
		Defense:   BaselineDefense,
	})
}
