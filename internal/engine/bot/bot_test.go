package bot_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/cyber-arena/internal/engine/bot"
	"github.com/KirkDiggler/cyber-arena/internal/engine/combat"
	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/testutils"
)

type BotTestSuite struct {
	suite.Suite
	roller *testutils.ScriptedRoller
	enemy  entities.Combatant
	player entities.Combatant
}

func TestBotSuite(t *testing.T) {
	suite.Run(t, new(BotTestSuite))
}

func (s *BotTestSuite) SetupTest() {
	s.roller = testutils.NewScriptedRoller()
	s.enemy = entities.NewCombatant("AI Guardian", 1, entities.Stats{MaxHealth: 120, Attack: 22, Defense: 10})
	s.player = testutils.CreateTestCombatant(testutils.TestPlayerName)
}

func (s *BotTestSuite) TestSuccessOddsPerDifficulty() {
	testCases := []struct {
		difficulty bot.Difficulty
		roll       int
		hit        bool
	}{
		{difficulty: bot.DifficultyEasy, roll: 40, hit: true},
		{difficulty: bot.DifficultyEasy, roll: 41, hit: false},
		{difficulty: bot.DifficultyMedium, roll: 60, hit: true},
		{difficulty: bot.DifficultyMedium, roll: 61, hit: false},
		{difficulty: bot.DifficultyHard, roll: 80, hit: true},
		{difficulty: bot.DifficultyHard, roll: 81, hit: false},
	}

	for _, tc := range testCases {
		s.Run(string(tc.difficulty), func() {
			roller := testutils.NewScriptedRoller(tc.roll, 1, 100)
			out, err := bot.New(tc.difficulty, roller).Act(s.enemy, s.player)
			s.Require().NoError(err)
			s.Equal(tc.hit, out.Damage > 0)
		})
	}
}

func (s *BotTestSuite) TestHitDamage() {
	// success, bonus 8 -> +7, no crit
	s.roller.Push(1, 8, 16)

	out, err := bot.New(bot.DifficultyMedium, s.roller).Act(s.enemy, s.player)
	s.Require().NoError(err)

	s.Equal(combat.ResultHit, out.Result)
	s.Equal(22-10+7, out.Damage)
	s.Equal(100-19, out.DefenderAfter.Health)
	s.Equal(s.enemy, out.AttackerAfter)
	s.Equal([]int{100, 8, 100}, s.roller.Calls)
}

func (s *BotTestSuite) TestCriticalAtFifteenPercent() {
	s.roller.Push(1, 1, 15)

	out, err := bot.New(bot.DifficultyHard, s.roller).Act(s.enemy, s.player)
	s.Require().NoError(err)

	// (22 - 10 + 0) * 1.5
	s.Equal(combat.ResultCritical, out.Result)
	s.Equal(18, out.Damage)
}

func (s *BotTestSuite) TestMinimumDamage() {
	s.roller.Push(1, 1, 100)
	tank := s.player
	tank.Defense = 200

	out, err := bot.New(bot.DifficultyHard, s.roller).Act(s.enemy, tank)
	s.Require().NoError(err)
	s.Equal(1, out.Damage)
}

func (s *BotTestSuite) TestMissLeavesPlayerUntouched() {
	s.roller.Push(100)

	out, err := bot.New(bot.DifficultyHard, s.roller).Act(s.enemy, s.player)
	s.Require().NoError(err)
	s.Equal(combat.ResultMiss, out.Result)
	s.Equal(s.player, out.DefenderAfter)
}

func (s *BotTestSuite) TestThinkRange() {
	s.roller.Push(1, 2000)
	b := bot.New(bot.DifficultyEasy, s.roller)

	s.Equal(time.Second, b.Think())
	s.Equal(time.Second+1999*time.Millisecond, b.Think())
}

func TestParseDifficulty(t *testing.T) {
	d, err := bot.ParseDifficulty(" HARD ")
	require.NoError(t, err)
	assert.Equal(t, bot.DifficultyHard, d)

	d, err = bot.ParseDifficulty("")
	require.NoError(t, err)
	assert.Equal(t, bot.DifficultyMedium, d)

	_, err = bot.ParseDifficulty("nightmare")
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestSpawnEnemy(t *testing.T) {
	testCases := []struct {
		name     string
		arena    bot.ArenaType
		level    int
		defeated int
		want     entities.Combatant
	}{
		{
			name:  "first fortress enemy",
			arena: bot.ArenaCyberFortress,
			level: 1,
			want: entities.Combatant{Name: "AI Guardian", Health: 120, MaxHealth: 120,
				Attack: 22, Defense: 10, Level: 1},
		},
		{
			name:     "vault level two cycles names",
			arena:    bot.ArenaDataVault,
			level:    2,
			defeated: 4,
			want: entities.Combatant{Name: "Rogue Scanner", Health: 254, MaxHealth: 254,
				Attack: 47, Defense: 21, Level: 2},
		},
		{
			name:  "maze level one",
			arena: bot.ArenaNetworkMaze,
			level: 1,
			want: entities.Combatant{Name: "Trapped Router", Health: 216, MaxHealth: 216,
				Attack: 39, Defense: 18, Level: 1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := bot.SpawnEnemy(tc.arena, tc.level, tc.defeated)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := bot.SpawnEnemy("moon_base", 1, 0)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestEnemiesInArena(t *testing.T) {
	assert.Equal(t, 3, bot.EnemiesInArena(1))
	assert.Equal(t, 3, bot.EnemiesInArena(2))
	assert.Equal(t, 4, bot.EnemiesInArena(3))
	assert.Equal(t, 5, bot.EnemiesInArena(5))
	assert.Equal(t, 5, bot.EnemiesInArena(9))
}

func TestCompletionXP(t *testing.T) {
	assert.Equal(t, 120, bot.CompletionXP(bot.ArenaCyberFortress, 1))
	assert.Equal(t, 300, bot.CompletionXP(bot.ArenaDataVault, 2))
	assert.Equal(t, 0, bot.CompletionXP("moon_base", 1))
}
