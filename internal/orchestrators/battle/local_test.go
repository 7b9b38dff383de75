package battle_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/cyber-arena/internal/engine/bot"
	"github.com/KirkDiggler/cyber-arena/internal/engine/combat"
	"github.com/KirkDiggler/cyber-arena/internal/engine/experience"
	"github.com/KirkDiggler/cyber-arena/internal/engine/trivia"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/orchestrators/battle"
	"github.com/KirkDiggler/cyber-arena/internal/pkg/clock"
	progressrepo "github.com/KirkDiggler/cyber-arena/internal/repositories/progress"
	"github.com/KirkDiggler/cyber-arena/internal/services/progress"
	"github.com/KirkDiggler/cyber-arena/internal/syncbus"
	"github.com/KirkDiggler/cyber-arena/internal/testutils"
)

// one multiple choice question: "1" is right, "0" is wrong
const testBank = `
modules:
  cryptography:
    - id: q-hash
      prompt: What is the main difference between hashing and encryption?
      choices: ["Hashing is reversible", "Hashing is irreversible", "Encryption is faster"]
      correct: 1
`

const (
	right = "1"
	wrong = "0"
	// think roll of 1999ms, always inside a 2s advance
	thinkRoll = 1000
	// no difficulty succeeds on a 100
	botMiss = 100
)

func newTestBank(t *testing.T) *trivia.Bank {
	bank, err := trivia.LoadBank(strings.NewReader(testBank), testutils.NewScriptedRoller())
	if err != nil {
		t.Fatal(err)
	}
	return bank
}

type LocalTestSuite struct {
	suite.Suite
	ctx       context.Context
	clock     *clock.Fake
	roller    *testutils.ScriptedRoller
	repo      progressrepo.Repository
	bus       *syncbus.Bus
	progress  progress.Service
	snapshots []battle.Session
	cleanup   func()
}

func TestLocalSuite(t *testing.T) {
	suite.Run(t, new(LocalTestSuite))
}

func (s *LocalTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewFake(testutils.FixedTime)
	s.roller = testutils.NewScriptedRoller()
	s.snapshots = nil

	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup

	repo, err := progressrepo.NewRedisRepository(&progressrepo.Config{Client: client})
	s.Require().NoError(err)
	s.repo = repo

	bus, err := syncbus.New(&syncbus.Config{Repository: repo, Clock: s.clock})
	s.Require().NoError(err)
	s.bus = bus

	svc, err := progress.NewService(&progress.Config{Bus: bus, Repository: repo, Clock: s.clock})
	s.Require().NoError(err)
	s.progress = svc
}

func (s *LocalTestSuite) TearDownTest() {
	s.cleanup()
}

func (s *LocalTestSuite) newController(arena bot.ArenaType, campaign bool) *battle.Controller {
	c, err := battle.NewLocal(&battle.LocalConfig{
		Config: battle.Config{
			PlayerID:   testutils.TestPlayerID,
			PlayerName: testutils.TestPlayerName,
			Questions:  newTestBank(s.T()),
			Module:     "cryptography",
			Progress:   s.progress,
			Bus:        s.bus,
			Clock:      s.clock,
			Observer:   func(snap battle.Session) { s.snapshots = append(s.snapshots, snap) },
		},
		Arena:    arena,
		Campaign: campaign,
		Roller:   s.roller,
	})
	s.Require().NoError(err)
	return c
}

func (s *LocalTestSuite) started(arena bot.ArenaType, campaign bool) *battle.Controller {
	c := s.newController(arena, campaign)
	s.Require().NoError(c.Start(s.ctx))
	return c
}

// act runs one full player action followed by the bot's turn
func (s *LocalTestSuite) act(c *battle.Controller, kind combat.ActionKind, answer string, rolls ...int) *combat.Outcome {
	_, err := c.BeginAction(s.ctx, kind)
	s.Require().NoError(err)
	s.roller.Push(rolls...)
	out, err := c.SubmitAnswer(s.ctx, answer)
	s.Require().NoError(err)
	s.clock.Advance(2 * time.Second)
	return out
}

func (s *LocalTestSuite) logContains(c *battle.Controller, text string) bool {
	for _, entry := range c.Snapshot().Log {
		if strings.Contains(entry.Text, text) {
			return true
		}
	}
	return false
}

func (s *LocalTestSuite) TestNewLocalValidation() {
	_, err := battle.NewLocal(&battle.LocalConfig{})
	s.True(errors.IsInvalidArgument(err))

	_, err = battle.NewLocal(&battle.LocalConfig{
		Config: battle.Config{
			PlayerID:   "p",
			PlayerName: "n",
			Questions:  newTestBank(s.T()),
			Progress:   s.progress,
		},
		Arena: "moon_base",
	})
	s.True(errors.IsInvalidArgument(err))
}

func (s *LocalTestSuite) TestStart() {
	c := s.started(bot.ArenaCyberFortress, false)

	snap := c.Snapshot()
	s.Equal(battle.ModeLocal, snap.Mode)
	s.Equal(battle.PhaseMyTurn, snap.Phase)
	s.Equal(battle.SideSelf, snap.TurnOwner)
	s.Equal(100, snap.Player.Health)
	s.Equal(50, snap.Player.Mana)
	s.Equal(20, snap.Player.Attack)
	s.Equal("AI Guardian", snap.Opponent.Name)
	s.Equal(120, snap.Opponent.Health)
	s.Require().NotNil(snap.Arena)
	s.Equal(3, snap.Arena.Required)
	s.NotEmpty(s.snapshots)

	s.True(errors.IsFailedPrecondition(c.Start(s.ctx)))
}

func (s *LocalTestSuite) TestBeginActionPreconditions() {
	c := s.newController(bot.ArenaCyberFortress, false)

	_, err := c.BeginAction(s.ctx, combat.ActionAttack)
	s.True(errors.IsFailedPrecondition(err))

	s.Require().NoError(c.Start(s.ctx))
	_, err = c.BeginAction(s.ctx, "fireball")
	s.True(errors.IsInvalidArgument(err))

	_, err = c.SubmitAnswer(s.ctx, right)
	s.True(errors.IsFailedPrecondition(err))
}

func (s *LocalTestSuite) TestCorrectAttackThenBotTurn() {
	c := s.started(bot.ArenaCyberFortress, false)

	pending, err := c.BeginAction(s.ctx, combat.ActionAttack)
	s.Require().NoError(err)
	s.Equal("q-hash", pending.Question.ID)
	s.Equal(testutils.FixedTime.Add(battle.DefaultAnswerTimeout), pending.Deadline)
	s.Equal(battle.PhaseActionPending, c.Snapshot().Phase)

	// bonus 5, no crit, think, bot hits with bonus 3 and no crit
	s.roller.Push(6, 50, thinkRoll, 10, 4, 90)
	out, err := c.SubmitAnswer(s.ctx, right)
	s.Require().NoError(err)
	s.Equal(combat.ResultHit, out.Result)
	s.Equal(15, out.Damage)

	snap := c.Snapshot()
	s.Equal(105, snap.Opponent.Health)
	s.Equal(battle.PhaseOpponentTurn, snap.Phase)
	s.Equal(battle.SideOpponent, snap.TurnOwner)
	s.Nil(snap.Pending)

	s.clock.Advance(2 * time.Second)

	snap = c.Snapshot()
	s.Equal(battle.PhaseMyTurn, snap.Phase)
	s.Equal(85, snap.Player.Health)

	last, ok := s.bus.Last(testutils.TestPlayerID)
	s.Require().True(ok)
	s.Equal(25, last.Record.TotalXP)
}

func (s *LocalTestSuite) TestTimeoutHandsTurnOver() {
	c := s.started(bot.ArenaCyberFortress, false)

	_, err := c.BeginAction(s.ctx, combat.ActionAttack)
	s.Require().NoError(err)
	s.roller.Push(thinkRoll, botMiss)

	s.clock.Advance(battle.DefaultAnswerTimeout)

	snap := c.Snapshot()
	s.Equal(battle.PhaseOpponentTurn, snap.Phase)
	s.Nil(snap.Pending)
	s.Equal(45, snap.Player.Mana)
	s.True(s.logContains(c, "Time is up!"))

	_, err = c.SubmitAnswer(s.ctx, right)
	s.True(errors.IsFailedPrecondition(err))

	s.clock.Advance(2 * time.Second)
	s.Equal(battle.PhaseMyTurn, c.Snapshot().Phase)
}

func (s *LocalTestSuite) TestLateAnswerAfterSubmitDoesNotFireTimer() {
	c := s.started(bot.ArenaCyberFortress, false)

	_, err := c.BeginAction(s.ctx, combat.ActionAttack)
	s.Require().NoError(err)
	s.roller.Push(thinkRoll, botMiss)
	_, err = c.SubmitAnswer(s.ctx, wrong)
	s.Require().NoError(err)

	// the bot acts at 1999ms; the old deadline at 5s must do nothing
	s.clock.Advance(battle.DefaultAnswerTimeout)
	snap := c.Snapshot()
	s.Equal(battle.PhaseMyTurn, snap.Phase)
	s.Equal(45, snap.Player.Mana)
}

func (s *LocalTestSuite) TestHealWithInsufficientMana() {
	c := s.started(bot.ArenaCyberFortress, false)

	// 50 -> 40 -> 30 -> 20 -> 15
	for i := 0; i < 3; i++ {
		s.act(c, combat.ActionHeal, wrong, thinkRoll, botMiss)
	}
	s.act(c, combat.ActionAttack, wrong, thinkRoll, botMiss)
	s.Require().Equal(15, c.Snapshot().Player.Mana)

	_, err := c.BeginAction(s.ctx, combat.ActionHeal)
	s.Require().NoError(err)
	s.roller.Push(thinkRoll, botMiss)
	out, err := c.SubmitAnswer(s.ctx, right)
	s.Require().NoError(err)

	s.Equal(combat.ResultInsufficientMana, out.Result)
	s.Equal(0, out.Heal)
	s.Contains(out.Narration, "lacks mana")
	s.NotContains(out.Narration, "Wrong answer")

	snap := c.Snapshot()
	s.Equal(100, snap.Player.Health)
	s.Equal(15, snap.Player.Mana)
}

func (s *LocalTestSuite) TestPlayerDefeatEndsSession() {
	c := s.started(bot.ArenaNetworkMaze, false)

	// the bot crits for 54 twice
	s.act(c, combat.ActionAttack, wrong, thinkRoll, 1, 8, 1)
	s.Equal(46, c.Snapshot().Player.Health)

	s.act(c, combat.ActionAttack, wrong, thinkRoll, 1, 8, 1)

	snap := c.Snapshot()
	s.Equal(battle.PhaseEnded, snap.Phase)
	s.Equal(battle.ResultDefeat, snap.Result)
	s.Equal(battle.SideNone, snap.TurnOwner)
	s.Equal(0, snap.Player.Health)
	s.Equal(0, s.clock.Pending())

	_, err := c.BeginAction(s.ctx, combat.ActionAttack)
	s.True(errors.IsFailedPrecondition(err))
}

func (s *LocalTestSuite) TestVictoryAwardsExperience() {
	c := s.started(bot.ArenaCyberFortress, false)

	// four critical hits of 28 leave the guardian at 8
	for i := 0; i < 4; i++ {
		s.act(c, combat.ActionAttack, right, 10, 1, thinkRoll, botMiss)
	}
	s.Equal(8, c.Snapshot().Opponent.Health)

	_, err := c.BeginAction(s.ctx, combat.ActionAttack)
	s.Require().NoError(err)
	s.roller.Push(10, 1)
	_, err = c.SubmitAnswer(s.ctx, right)
	s.Require().NoError(err)

	snap := c.Snapshot()
	s.Equal(battle.PhaseEnded, snap.Phase)
	s.Equal(battle.ResultVictory, snap.Result)
	s.True(snap.Opponent.Defeated())

	// answers 25+25+40+40+60 and the kill 115
	last, ok := s.bus.Last(testutils.TestPlayerID)
	s.Require().True(ok)
	s.Equal(305, last.Record.TotalXP)
	s.Equal(3, last.Record.Level)
	s.Equal(3, snap.Player.Level)
	s.True(s.logContains(c, "AI Guardian defeated! +115 XP"))
}

func (s *LocalTestSuite) TestCampaignSpawnsNextEnemy() {
	c := s.started(bot.ArenaCyberFortress, true)

	for i := 0; i < 4; i++ {
		s.act(c, combat.ActionAttack, right, 10, 1, thinkRoll, botMiss)
	}
	_, err := c.BeginAction(s.ctx, combat.ActionAttack)
	s.Require().NoError(err)
	s.roller.Push(10, 1)
	_, err = c.SubmitAnswer(s.ctx, right)
	s.Require().NoError(err)

	snap := c.Snapshot()
	s.Equal(battle.PhaseMyTurn, snap.Phase)
	s.Equal(battle.ResultNone, snap.Result)
	s.Equal("Cyber Sentinel", snap.Opponent.Name)
	s.Equal(120, snap.Opponent.Health)
	s.Equal(1, snap.Arena.Defeated)
	s.Equal(1, snap.Arena.Level)
}

func (s *LocalTestSuite) TestLevelUpRaisesStats() {
	rec := experience.NewRecord(testutils.TestPlayerID, 90, testutils.FixedTime.Add(-time.Hour))
	rec.Streak = 2
	_, err := s.repo.SaveExperience(s.ctx, progressrepo.SaveExperienceInput{Record: &rec})
	s.Require().NoError(err)

	c := s.started(bot.ArenaCyberFortress, false)
	s.Equal(1, c.Snapshot().Player.Level)

	_, err = c.BeginAction(s.ctx, combat.ActionAttack)
	s.Require().NoError(err)
	s.roller.Push(6, 50, thinkRoll, botMiss)
	_, err = c.SubmitAnswer(s.ctx, right)
	s.Require().NoError(err)

	snap := c.Snapshot()
	s.Equal(2, snap.Player.Level)
	s.Equal(115, snap.Player.MaxHealth)
	s.Equal(100, snap.Player.Health)
	s.Equal(23, snap.Player.Attack)
	s.Equal(12, snap.Player.Defense)
	s.Equal(60, snap.Player.MaxMana)
	s.Equal(60, snap.Player.Mana)
	s.True(s.logContains(c, "LEVEL UP! Neo reached level 2, Apprentice"))
}

func (s *LocalTestSuite) TestLeaveCancelsTimers() {
	c := s.started(bot.ArenaCyberFortress, false)

	_, err := c.BeginAction(s.ctx, combat.ActionAttack)
	s.Require().NoError(err)
	s.Equal(1, s.clock.Pending())

	s.Require().NoError(c.Leave(s.ctx))
	s.Equal(0, s.clock.Pending())

	snap := c.Snapshot()
	s.Equal(battle.PhaseEnded, snap.Phase)
	s.Equal(battle.ResultAborted, snap.Result)
	s.Nil(snap.Pending)

	s.NoError(c.Leave(s.ctx))
	s.clock.Advance(time.Minute)
	s.Equal(battle.ResultAborted, c.Snapshot().Result)
}

func (s *LocalTestSuite) TestOnlineOperationsRejected() {
	c := s.newController(bot.ArenaCyberFortress, false)
	s.True(errors.IsFailedPrecondition(c.CreateRoom(s.ctx)))
	s.True(errors.IsFailedPrecondition(c.Run(s.ctx)))
}
