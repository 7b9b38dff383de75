package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/cyber-arena/internal/engine/combat"
	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/testutils"
)

type ResolverTestSuite struct {
	suite.Suite
	roller   *testutils.ScriptedRoller
	resolver *combat.Resolver
	player   entities.Combatant
	enemy    entities.Combatant
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverTestSuite))
}

func (s *ResolverTestSuite) SetupTest() {
	s.roller = testutils.NewScriptedRoller()
	s.resolver = combat.NewResolver(s.roller)
	s.player = testutils.CreateTestCombatant(testutils.TestPlayerName)
	s.enemy = entities.NewCombatant("Cyber Criminal", 1, entities.Stats{MaxHealth: 120, Attack: 18, Defense: 8})
}

func (s *ResolverTestSuite) TestCorrectAttackHits() {
	// bonus roll 5 -> +4, crit roll 50 -> no crit
	s.roller.Push(5, 50)
	player := s.player.WithMana(30)

	out, err := s.resolver.Resolve(&combat.ResolveInput{
		Kind:     combat.ActionAttack,
		Correct:  true,
		Attacker: player,
		Defender: s.enemy,
	})
	s.Require().NoError(err)

	s.Equal(combat.ResultHit, out.Result)
	s.Equal(20-8+4, out.Damage)
	s.Equal(120-16, out.DefenderAfter.Health)
	s.Equal(40, out.AttackerAfter.Mana)
	s.Equal(10, out.ManaDelta)
	s.True(out.Succeeded())
	s.Equal([]int{10, 100}, s.roller.Calls)
}

func (s *ResolverTestSuite) TestCriticalHit() {
	s.roller.Push(10, 20)

	out, err := s.resolver.Resolve(&combat.ResolveInput{
		Kind:     combat.ActionAttack,
		Correct:  true,
		Attacker: s.player,
		Defender: s.enemy,
	})
	s.Require().NoError(err)

	// (20 - 8 + 9) * 1.5 = 31.5 -> 31
	s.Equal(combat.ResultCritical, out.Result)
	s.Equal(31, out.Damage)
	s.Contains(out.Narration, "CRITICAL")
}

func (s *ResolverTestSuite) TestManaRegenCapped() {
	s.roller.Push(1, 99)

	out, err := s.resolver.Resolve(&combat.ResolveInput{
		Kind:     combat.ActionAttack,
		Correct:  true,
		Attacker: s.player.WithMana(45),
		Defender: s.enemy,
	})
	s.Require().NoError(err)
	s.Equal(50, out.AttackerAfter.Mana)
	s.Equal(5, out.ManaDelta)
}

func (s *ResolverTestSuite) TestDamageCannotOverkillBelowZero() {
	s.roller.Push(10, 99)

	out, err := s.resolver.Resolve(&combat.ResolveInput{
		Kind:     combat.ActionAttack,
		Correct:  true,
		Attacker: s.player,
		Defender: s.enemy.WithHealth(5),
	})
	s.Require().NoError(err)
	s.Equal(0, out.DefenderAfter.Health)
	s.True(out.DefenderAfter.Defeated())
}

func (s *ResolverTestSuite) TestWrongAttackPenalizesMana() {
	out, err := s.resolver.Resolve(&combat.ResolveInput{
		Kind:     combat.ActionAttack,
		Attacker: s.player.WithMana(3),
		Defender: s.enemy,
	})
	s.Require().NoError(err)

	s.Equal(combat.ResultMiss, out.Result)
	s.Equal(0, out.Damage)
	s.Equal(0, out.AttackerAfter.Mana)
	s.Equal(-3, out.ManaDelta)
	s.Equal(s.enemy, out.DefenderAfter)
	s.Empty(s.roller.Calls)
	s.False(out.Succeeded())
}

func (s *ResolverTestSuite) TestTimedOutAttackMatchesWrongAnswer() {
	out, err := s.resolver.Resolve(&combat.ResolveInput{
		Kind:     combat.ActionAttack,
		TimedOut: true,
		Attacker: s.player,
		Defender: s.enemy,
	})
	s.Require().NoError(err)

	s.Equal(combat.ResultTimedOut, out.Result)
	s.Equal(0, out.Damage)
	s.Equal(-combat.AttackManaPenalty, out.ManaDelta)
	s.Contains(out.Narration, "Time is up")
}

func (s *ResolverTestSuite) TestCorrectHeal() {
	player := s.player.WithHealth(40).WithMana(30)

	out, err := s.resolver.Resolve(&combat.ResolveInput{
		Kind:     combat.ActionHeal,
		Correct:  true,
		Attacker: player,
		Defender: s.enemy,
	})
	s.Require().NoError(err)

	s.Equal(combat.ResultHealed, out.Result)
	s.Equal(30, out.Heal)
	s.Equal(70, out.AttackerAfter.Health)
	s.Equal(10, out.AttackerAfter.Mana)
	s.Equal(-combat.HealCost, out.ManaDelta)
}

func (s *ResolverTestSuite) TestHealCappedAtMax() {
	out, err := s.resolver.Resolve(&combat.ResolveInput{
		Kind:     combat.ActionHeal,
		Correct:  true,
		Attacker: s.player.WithHealth(90),
		Defender: s.enemy,
	})
	s.Require().NoError(err)
	s.Equal(100, out.AttackerAfter.Health)
	s.Equal(10, out.Heal)
}

func (s *ResolverTestSuite) TestHealInsufficientMana() {
	player := s.player.WithHealth(40).WithMana(15)

	out, err := s.resolver.Resolve(&combat.ResolveInput{
		Kind:     combat.ActionHeal,
		Correct:  true,
		Attacker: player,
		Defender: s.enemy,
	})
	s.Require().NoError(err)

	s.Equal(combat.ResultInsufficientMana, out.Result)
	s.Equal(player, out.AttackerAfter)
	s.Equal(0, out.ManaDelta)
	s.Contains(out.Narration, "lacks mana")
	s.NotContains(out.Narration, "Wrong answer")
}

func (s *ResolverTestSuite) TestWrongHealPenalizesMore() {
	out, err := s.resolver.Resolve(&combat.ResolveInput{
		Kind:     combat.ActionHeal,
		Attacker: s.player.WithHealth(40),
		Defender: s.enemy,
	})
	s.Require().NoError(err)

	s.Equal(combat.ResultFailed, out.Result)
	s.Equal(40, out.AttackerAfter.Health)
	s.Equal(-combat.HealManaPenalty, out.ManaDelta)
}

func (s *ResolverTestSuite) TestInvalidInput() {
	_, err := s.resolver.Resolve(&combat.ResolveInput{Kind: "dance"})
	s.True(errors.IsInvalidArgument(err))

	_, err = s.resolver.Resolve(&combat.ResolveInput{Kind: combat.ActionAttack, Correct: true, TimedOut: true})
	s.True(errors.IsInvalidArgument(err))

	_, err = s.resolver.Resolve(nil)
	s.True(errors.IsInvalidArgument(err))
}

func (s *ResolverTestSuite) TestRollerFailure() {
	s.roller.Push(11)

	_, err := s.resolver.Resolve(&combat.ResolveInput{
		Kind:     combat.ActionAttack,
		Correct:  true,
		Attacker: s.player,
		Defender: s.enemy,
	})
	s.Error(err)
}

func TestDamageNeverBelowOne(t *testing.T) {
	for attack := 0; attack <= 60; attack++ {
		for defense := 0; defense <= 60; defense++ {
			for bonus := 0; bonus < combat.PlayerBonusSides; bonus++ {
				d := combat.Damage(attack, defense, bonus)
				if d < 1 {
					t.Fatalf("Damage(%d, %d, %d) = %d", attack, defense, bonus, d)
				}
				assert.GreaterOrEqual(t, combat.CriticalDamage(d), d)
			}
		}
	}
}

func TestHealAmount(t *testing.T) {
	assert.Equal(t, 30, combat.HealAmount(100))
	assert.Equal(t, 34, combat.HealAmount(115))
}

func TestPvPBaseline(t *testing.T) {
	c := combat.PvPBaseline("Neo", 12)

	assert.Equal(t, 100, c.Health)
	assert.Equal(t, 100, c.MaxHealth)
	assert.Equal(t, 50, c.Mana)
	assert.Equal(t, 20, c.Attack)
	assert.Equal(t, 10, c.Defense)
	assert.Equal(t, 12, c.Level)
}
