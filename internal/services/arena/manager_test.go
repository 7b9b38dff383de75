package arena_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/pkg/clock"
	"github.com/KirkDiggler/cyber-arena/internal/pkg/idgen"
	"github.com/KirkDiggler/cyber-arena/internal/protocol"
	"github.com/KirkDiggler/cyber-arena/internal/services/arena"
	"github.com/KirkDiggler/cyber-arena/internal/testutils"
)

const (
	neo     = "conn-neo"
	trinity = "conn-trinity"
	smith   = "conn-smith"
)

type ManagerTestSuite struct {
	suite.Suite
	clock   *clock.Fake
	manager *arena.Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}

func (s *ManagerTestSuite) SetupTest() {
	s.clock = clock.NewFake(testutils.FixedTime)
	m, err := arena.NewManager(&arena.ManagerConfig{
		Codes: idgen.NewSequential("R"),
		Clock: s.clock,
	})
	s.Require().NoError(err)
	s.manager = m
}

// duel seats Neo and Trinity in room R_1 and starts it
func (s *ManagerTestSuite) duel() {
	_, err := s.manager.CreateRoom(neo, testutils.TestPlayerName)
	s.Require().NoError(err)
	_, err = s.manager.JoinRoom(trinity, "r_1", testutils.TestOpponentName)
	s.Require().NoError(err)
	_, err = s.manager.StartGame(neo)
	s.Require().NoError(err)
}

func (s *ManagerTestSuite) TestNewManagerValidation() {
	_, err := arena.NewManager(nil)
	s.True(errors.IsInvalidArgument(err))

	_, err = arena.NewManager(&arena.ManagerConfig{RoomTTL: -time.Second})
	s.True(errors.IsInvalidArgument(err))
}

func (s *ManagerTestSuite) TestCreateAndJoin() {
	out, err := s.manager.CreateRoom(neo, " Neo ")
	s.Require().NoError(err)
	s.Equal([]arena.Outbound{
		{To: neo, Message: &protocol.RoomCreated{RoomCode: "R_1", PlayerName: "Neo"}},
	}, out)

	info, ok := s.manager.Room("R_1")
	s.Require().True(ok)
	s.False(info.Full)
	s.Equal(testutils.FixedTime, info.CreatedAt)
	s.Len(s.manager.OpenRooms(), 1)

	out, err = s.manager.JoinRoom(trinity, "r_1", "Trinity")
	s.Require().NoError(err)
	s.Equal([]arena.Outbound{
		{To: trinity, Message: &protocol.RoomJoined{RoomCode: "R_1", PlayerName: "Trinity", OpponentName: "Neo"}},
		{To: neo, Message: &protocol.OpponentJoined{OpponentName: "Trinity"}},
	}, out)
	s.Empty(s.manager.OpenRooms())
}

func (s *ManagerTestSuite) TestCreateRejections() {
	_, err := s.manager.CreateRoom(neo, "  ")
	s.True(errors.IsInvalidArgument(err))

	_, err = s.manager.CreateRoom(neo, "Neo")
	s.Require().NoError(err)
	_, err = s.manager.CreateRoom(neo, "Neo")
	s.True(errors.IsAlreadyExists(err))
	s.Equal("already in room R_1", errors.GetMessage(err))
}

func (s *ManagerTestSuite) TestJoinRejections() {
	_, err := s.manager.JoinRoom(trinity, "NOPE", "Trinity")
	s.True(errors.IsNotFound(err))

	_, err = s.manager.JoinRoom(trinity, "", "")
	s.True(errors.IsInvalidArgument(err))

	_, err = s.manager.CreateRoom(neo, "Neo")
	s.Require().NoError(err)
	_, err = s.manager.JoinRoom(trinity, "R_1", "Trinity")
	s.Require().NoError(err)

	_, err = s.manager.JoinRoom(smith, "R_1", "Smith")
	s.True(errors.IsFailedPrecondition(err))
}

func (s *ManagerTestSuite) TestStartGame() {
	_, err := s.manager.StartGame(neo)
	s.True(errors.IsFailedPrecondition(err))

	_, err = s.manager.CreateRoom(neo, "Neo")
	s.Require().NoError(err)
	_, err = s.manager.StartGame(neo)
	s.True(errors.IsFailedPrecondition(err), "needs an opponent")

	_, err = s.manager.JoinRoom(trinity, "R_1", "Trinity")
	s.Require().NoError(err)
	_, err = s.manager.StartGame(trinity)
	s.True(errors.IsFailedPrecondition(err), "only the creator starts")

	out, err := s.manager.StartGame(neo)
	s.Require().NoError(err)
	s.Equal([]arena.Outbound{
		{To: neo, Message: &protocol.GameStarted{YourTurn: true, PlayerName: "Neo", OpponentName: "Trinity"}},
		{To: trinity, Message: &protocol.GameStarted{YourTurn: false, PlayerName: "Trinity", OpponentName: "Neo"}},
	}, out)

	_, err = s.manager.StartGame(neo)
	s.True(errors.IsFailedPrecondition(err))
}

func (s *ManagerTestSuite) TestSubmitActionAppliesDamageAndSwitchesTurn() {
	s.duel()

	out, err := s.manager.SubmitAction(neo, &protocol.PlayerAnswer{IsCorrect: true, Damage: 18, NewHealth: 82})
	s.Require().NoError(err)
	s.Equal([]arena.Outbound{
		{To: neo, Message: &protocol.AttackConfirmed{VictimNewHealth: 82}},
		{To: trinity, Message: &protocol.OpponentAttack{Damage: 18, YourNewHealth: 82, AttackerHealth: 100}},
		{To: neo, Message: &protocol.TurnChanged{YourTurn: false}},
		{To: trinity, Message: &protocol.TurnChanged{YourTurn: true}},
	}, out)

	_, err = s.manager.SubmitAction(neo, &protocol.PlayerAnswer{IsCorrect: true, Damage: 18})
	s.True(errors.IsFailedPrecondition(err), "not neo's turn anymore")
}

func (s *ManagerTestSuite) TestWrongAnswerDealsNoDamage() {
	s.duel()

	out, err := s.manager.SubmitAction(neo, &protocol.PlayerAnswer{IsCorrect: false, Damage: 40})
	s.Require().NoError(err)
	s.Equal(&protocol.AttackConfirmed{VictimNewHealth: 100}, out[0].Message)
	s.Equal(&protocol.OpponentAttack{Damage: 0, YourNewHealth: 100, AttackerHealth: 100}, out[1].Message)
}

func (s *ManagerTestSuite) TestSubmitActionValidation() {
	s.duel()

	_, err := s.manager.SubmitAction(neo, nil)
	s.True(errors.IsInvalidArgument(err))
	_, err = s.manager.SubmitAction(neo, &protocol.PlayerAnswer{IsCorrect: true, Damage: -5})
	s.True(errors.IsInvalidArgument(err))
}

func (s *ManagerTestSuite) TestKillingBlowEndsGame() {
	s.duel()

	out, err := s.manager.SubmitAction(neo, &protocol.PlayerAnswer{IsCorrect: true, Damage: 250})
	s.Require().NoError(err)
	s.Equal([]arena.Outbound{
		{To: neo, Message: &protocol.AttackConfirmed{VictimNewHealth: 0}},
		{To: trinity, Message: &protocol.OpponentAttack{Damage: 100, YourNewHealth: 0, AttackerHealth: 100}},
		{To: neo, Message: &protocol.GameEnded{Winner: true, Message: "You defeated Trinity!"}},
		{To: trinity, Message: &protocol.GameEnded{Winner: false, Message: "Neo wins the duel"}},
	}, out)

	_, err = s.manager.SubmitAction(trinity, &protocol.PlayerAnswer{IsCorrect: true, Damage: 10})
	s.True(errors.IsFailedPrecondition(err))

	// the creator may start a rematch
	_, err = s.manager.StartGame(neo)
	s.NoError(err)
}

func (s *ManagerTestSuite) TestUpdateHealthIsClampedAndKeepsTurn() {
	s.duel()
	_, err := s.manager.SubmitAction(neo, &protocol.PlayerAnswer{IsCorrect: true, Damage: 30})
	s.Require().NoError(err)

	_, err = s.manager.UpdateHealth(neo, 100)
	s.True(errors.IsFailedPrecondition(err), "heals only on the own turn")

	out, err := s.manager.UpdateHealth(trinity, 250)
	s.Require().NoError(err)
	s.Equal([]arena.Outbound{
		{To: trinity, Message: &protocol.HealthConfirmed{Health: 100}},
		{To: neo, Message: &protocol.OpponentHealthUpdate{OpponentHealth: 100}},
	}, out)

	out = s.manager.Sync(trinity)
	s.Equal(&protocol.StateSync{
		RoomCode:       "R_1",
		Started:        true,
		YourTurn:       true,
		YourHealth:     100,
		OpponentHealth: 100,
		OpponentName:   "Neo",
	}, out[0].Message)
}

func (s *ManagerTestSuite) TestSync() {
	out := s.manager.Sync(smith)
	s.Equal([]arena.Outbound{{To: smith, Message: &protocol.StateSync{}}}, out)

	s.duel()
	_, err := s.manager.SubmitAction(neo, &protocol.PlayerAnswer{IsCorrect: true, Damage: 18})
	s.Require().NoError(err)

	out = s.manager.Sync(neo)
	s.Equal(&protocol.StateSync{
		RoomCode:       "R_1",
		Started:        true,
		YourTurn:       false,
		YourHealth:     100,
		OpponentHealth: 82,
		OpponentName:   "Trinity",
	}, out[0].Message)
}

func (s *ManagerTestSuite) TestCreatorLeavingClosesRoom() {
	s.duel()

	out := s.manager.Leave(neo)
	s.Equal([]arena.Outbound{
		{To: trinity, Message: &protocol.OpponentLeft{Message: "The host closed the room"}},
	}, out)

	_, ok := s.manager.Room("R_1")
	s.False(ok)
	_, ok = s.manager.RoomOf(trinity)
	s.False(ok)
	s.Nil(s.manager.Leave(neo))
}

func (s *ManagerTestSuite) TestOpponentLeavingResetsRoom() {
	s.duel()

	out := s.manager.Leave(trinity)
	s.Equal([]arena.Outbound{
		{To: neo, Message: &protocol.OpponentLeft{Message: "Trinity left the room"}},
	}, out)

	info, ok := s.manager.Room("R_1")
	s.Require().True(ok)
	s.False(info.Full)
	s.False(info.Started)

	_, err := s.manager.JoinRoom(smith, "R_1", "Smith")
	s.NoError(err)
}

func (s *ManagerTestSuite) TestCleanupStale() {
	_, err := s.manager.CreateRoom(neo, "Neo")
	s.Require().NoError(err)
	_, err = s.manager.CreateRoom(smith, "Smith")
	s.Require().NoError(err)
	_, err = s.manager.JoinRoom(trinity, "R_2", "Trinity")
	s.Require().NoError(err)

	s.clock.Advance(arena.DefaultRoomTTL)
	codes, _ := s.manager.CleanupStale()
	s.Empty(codes)

	s.clock.Advance(time.Second)
	codes, out := s.manager.CleanupStale()
	s.Equal([]string{"R_1"}, codes)
	s.Equal([]arena.Outbound{{To: neo, Message: &protocol.RoomClosed{Message: "Room R_1 expired"}}}, out)

	_, ok := s.manager.Room("R_2")
	s.True(ok, "full rooms are kept")
	_, ok = s.manager.RoomOf(neo)
	s.False(ok)
}

func (s *ManagerTestSuite) TestHandleDispatch() {
	out, err := s.manager.Handle(neo, &protocol.CreateRoom{PlayerName: "Neo"})
	s.Require().NoError(err)
	s.Len(out, 1)

	_, err = s.manager.Handle(neo, &protocol.RoomCreated{})
	s.True(errors.IsInvalidArgument(err))

	out, err = s.manager.Handle(neo, &protocol.LeaveRoom{})
	s.NoError(err)
	s.Empty(out)
}
