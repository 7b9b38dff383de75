package syncbus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/cyber-arena/internal/engine/experience"
	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/pkg/clock"
	progressrepo "github.com/KirkDiggler/cyber-arena/internal/repositories/progress"
	progressrepomock "github.com/KirkDiggler/cyber-arena/internal/repositories/progress/mock"
	"github.com/KirkDiggler/cyber-arena/internal/syncbus"
	syncbusmock "github.com/KirkDiggler/cyber-arena/internal/syncbus/mock"
	"github.com/KirkDiggler/cyber-arena/internal/testutils"
)

// recorder collects delivered updates
type recorder struct {
	mu      sync.Mutex
	updates []syncbus.Update
	ch      chan syncbus.Update
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan syncbus.Update, 32)}
}

func (r *recorder) listen(_ context.Context, u syncbus.Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
	r.ch <- u
}

func (r *recorder) all() []syncbus.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]syncbus.Update(nil), r.updates...)
}

type BusTestSuite struct {
	suite.Suite
	ctx         context.Context
	ctrl        *gomock.Controller
	clock       *clock.Fake
	repo        progressrepo.Repository
	broadcaster *syncbusmock.MockBroadcaster
	bus         *syncbus.Bus
	cleanup     func()
}

func TestBusSuite(t *testing.T) {
	suite.Run(t, new(BusTestSuite))
}

func (s *BusTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.clock = clock.NewFake(testutils.FixedTime)
	s.broadcaster = syncbusmock.NewMockBroadcaster(s.ctrl)

	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup

	repo, err := progressrepo.NewRedisRepository(&progressrepo.Config{Client: client})
	s.Require().NoError(err)
	s.repo = repo

	bus, err := syncbus.New(&syncbus.Config{
		Repository:        repo,
		Broadcaster:       s.broadcaster,
		Clock:             s.clock,
		ReconcileInterval: time.Minute,
		InstanceID:        "instance-a",
	})
	s.Require().NoError(err)
	s.bus = bus
}

func (s *BusTestSuite) TearDownTest() {
	s.ctrl.Finish()
	s.cleanup()
}

func (s *BusTestSuite) TestNewRequiresRepository() {
	_, err := syncbus.New(&syncbus.Config{})
	s.True(errors.IsInvalidArgument(err))

	_, err = syncbus.New(nil)
	s.True(errors.IsInvalidArgument(err))
}

func (s *BusTestSuite) TestPublishPersistsDeliversAndBroadcasts() {
	rec := newRecorder()
	s.bus.Subscribe(s.ctx, testutils.TestPlayerID, rec.listen)

	s.broadcaster.EXPECT().Broadcast(s.ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, env *syncbus.Envelope) error {
			s.Equal("instance-a", env.Instance)
			s.Equal(130, env.Record.TotalXP)
			return nil
		})

	// derived fields are wrong on purpose, the bus recomputes them
	update, err := s.bus.Publish(s.ctx, entities.ExperienceRecord{
		PlayerID: testutils.TestPlayerID,
		TotalXP:  130,
		Level:    9,
	})
	s.Require().NoError(err)

	s.Equal(2, update.Record.Level)
	s.Equal(30, update.Record.CurrentLevelXP)
	s.Equal(150, update.Record.XPToNextLevel)
	s.Equal(testutils.FixedTime, update.PublishedAt)

	// delivered synchronously, before Publish returned
	s.Require().Len(rec.all(), 1)
	s.Equal(syncbus.OriginLocal, rec.all()[0].Origin)
	s.Equal(update.Record, rec.all()[0].Record)

	stored, err := s.repo.GetExperience(s.ctx, progressrepo.GetInput{PlayerID: testutils.TestPlayerID})
	s.Require().NoError(err)
	s.Equal(update.Record, *stored.Record)
}

func (s *BusTestSuite) TestSubscribeReplaysLastValue() {
	s.broadcaster.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil)

	published, err := s.bus.Publish(s.ctx, experience.NewRecord(testutils.TestPlayerID, 25, time.Time{}))
	s.Require().NoError(err)

	rec := newRecorder()
	s.bus.Subscribe(s.ctx, testutils.TestPlayerID, rec.listen)

	s.Require().Len(rec.all(), 1)
	s.Equal(syncbus.OriginReplay, rec.all()[0].Origin)
	s.Equal(published.Record, rec.all()[0].Record)
}

func (s *BusTestSuite) TestSubscribeFiltersByPlayer() {
	s.broadcaster.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	mine, everyone := newRecorder(), newRecorder()
	s.bus.Subscribe(s.ctx, "alice", mine.listen)
	s.bus.Subscribe(s.ctx, "", everyone.listen)

	_, err := s.bus.Publish(s.ctx, entities.ExperienceRecord{PlayerID: "alice", TotalXP: 10})
	s.Require().NoError(err)
	_, err = s.bus.Publish(s.ctx, entities.ExperienceRecord{PlayerID: "bob", TotalXP: 20})
	s.Require().NoError(err)

	s.Len(mine.all(), 1)
	s.Len(everyone.all(), 2)
}

func (s *BusTestSuite) TestPanickingListenerDoesNotStopOthers() {
	s.broadcaster.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil)

	rec := newRecorder()
	s.bus.Subscribe(s.ctx, testutils.TestPlayerID, func(context.Context, syncbus.Update) {
		panic("boom")
	})
	s.bus.Subscribe(s.ctx, testutils.TestPlayerID, rec.listen)

	_, err := s.bus.Publish(s.ctx, entities.ExperienceRecord{PlayerID: testutils.TestPlayerID, TotalXP: 50})
	s.Require().NoError(err)
	s.Len(rec.all(), 1)
}

func (s *BusTestSuite) TestUnsubscribe() {
	s.broadcaster.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil)

	rec := newRecorder()
	id := s.bus.Subscribe(s.ctx, testutils.TestPlayerID, rec.listen)
	s.Require().NoError(s.bus.Unsubscribe(id))

	_, err := s.bus.Publish(s.ctx, entities.ExperienceRecord{PlayerID: testutils.TestPlayerID, TotalXP: 50})
	s.Require().NoError(err)
	s.Empty(rec.all())
}

func (s *BusTestSuite) TestLevelUpIsFlagged() {
	s.broadcaster.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	first, err := s.bus.Publish(s.ctx, entities.ExperienceRecord{PlayerID: testutils.TestPlayerID, TotalXP: 90})
	s.Require().NoError(err)
	s.False(first.LeveledUp())

	second, err := s.bus.Publish(s.ctx, entities.ExperienceRecord{PlayerID: testutils.TestPlayerID, TotalXP: 130})
	s.Require().NoError(err)
	s.True(second.LeveledUp())
	s.Equal(1, second.PreviousLevel)
}

func (s *BusTestSuite) TestFirstUpdateDerivesPreviousLevelFromGain() {
	s.broadcaster.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil)

	update, err := s.bus.Publish(s.ctx, entities.ExperienceRecord{
		PlayerID: testutils.TestPlayerID,
		TotalXP:  130,
		LastGain: &entities.XPGain{Amount: 40, Reason: "correct answer"},
	})
	s.Require().NoError(err)
	s.Equal(1, update.PreviousLevel)
	s.True(update.LeveledUp())
}

func (s *BusTestSuite) TestBroadcastFailureIsNotFatal() {
	s.broadcaster.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(errors.Unavailable("redis down"))

	_, err := s.bus.Publish(s.ctx, entities.ExperienceRecord{PlayerID: testutils.TestPlayerID, TotalXP: 5})
	s.NoError(err)
}

func (s *BusTestSuite) TestPublishValidation() {
	_, err := s.bus.Publish(s.ctx, entities.ExperienceRecord{TotalXP: 5})
	s.True(errors.IsInvalidArgument(err))

	_, err = s.bus.Publish(s.ctx, entities.ExperienceRecord{PlayerID: "p", TotalXP: -5})
	s.True(errors.IsInvalidArgument(err))
}

func (s *BusTestSuite) TestPersistFailureDeliversNothing() {
	repo := progressrepomock.NewMockRepository(s.ctrl)
	bus, err := syncbus.New(&syncbus.Config{Repository: repo, Clock: s.clock})
	s.Require().NoError(err)

	rec := newRecorder()
	bus.Subscribe(s.ctx, testutils.TestPlayerID, rec.listen)

	repo.EXPECT().SaveExperience(s.ctx, gomock.Any()).Return(nil, errors.Unavailable("redis down"))

	_, err = bus.Publish(s.ctx, entities.ExperienceRecord{PlayerID: testutils.TestPlayerID, TotalXP: 5})
	s.True(errors.IsUnavailable(err))
	s.Empty(rec.all())
	_, known := bus.Last(testutils.TestPlayerID)
	s.False(known)
}

func (s *BusTestSuite) TestReconcileDeliversNewerStoredRecord() {
	s.broadcaster.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil)

	_, err := s.bus.Publish(s.ctx, entities.ExperienceRecord{PlayerID: testutils.TestPlayerID, TotalXP: 25})
	s.Require().NoError(err)

	rec := newRecorder()
	s.bus.Subscribe(s.ctx, testutils.TestPlayerID, rec.listen)

	// reconciling our own write is a no-op
	s.Require().NoError(s.bus.Reconcile(s.ctx, testutils.TestPlayerID))
	s.Len(rec.all(), 1)

	// another process wrote a newer record directly to storage
	newer := experience.NewRecord(testutils.TestPlayerID, 300, testutils.FixedTime.Add(time.Minute))
	_, err = s.repo.SaveExperience(s.ctx, progressrepo.SaveExperienceInput{Record: &newer})
	s.Require().NoError(err)

	s.Require().NoError(s.bus.Reconcile(s.ctx, testutils.TestPlayerID))
	s.Require().Len(rec.all(), 2)
	s.Equal(syncbus.OriginReconcile, rec.all()[1].Origin)
	s.Equal(300, rec.all()[1].Record.TotalXP)

	last, ok := s.bus.Last(testutils.TestPlayerID)
	s.True(ok)
	s.Equal(300, last.Record.TotalXP)
}

func (s *BusTestSuite) TestReconcileDropsOlderStoredRecord() {
	s.broadcaster.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil)

	_, err := s.bus.Publish(s.ctx, entities.ExperienceRecord{PlayerID: testutils.TestPlayerID, TotalXP: 25})
	s.Require().NoError(err)

	older := experience.NewRecord(testutils.TestPlayerID, 10, testutils.FixedTime.Add(-time.Minute))
	_, err = s.repo.SaveExperience(s.ctx, progressrepo.SaveExperienceInput{Record: &older})
	s.Require().NoError(err)

	s.Require().NoError(s.bus.Reconcile(s.ctx, testutils.TestPlayerID))

	last, _ := s.bus.Last(testutils.TestPlayerID)
	s.Equal(25, last.Record.TotalXP)
}

func (s *BusTestSuite) TestReconcileUnknownPlayer() {
	s.NoError(s.bus.Reconcile(s.ctx, "nobody"))
}

func (s *BusTestSuite) TestRunAppliesRemoteUpdatesLastWriteWins() {
	remote := make(chan *syncbus.Envelope)
	s.broadcaster.EXPECT().Receive(gomock.Any()).Return((<-chan *syncbus.Envelope)(remote), nil)
	s.broadcaster.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil)

	_, err := s.bus.Publish(s.ctx, entities.ExperienceRecord{PlayerID: testutils.TestPlayerID, TotalXP: 40})
	s.Require().NoError(err)

	rec := newRecorder()
	s.bus.Subscribe(s.ctx, testutils.TestPlayerID, rec.listen)
	<-rec.ch // replay

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.bus.Run(ctx) }()

	// own echo, stale, then newer
	remote <- &syncbus.Envelope{Instance: "instance-a", PublishedAt: testutils.FixedTime,
		Record: entities.ExperienceRecord{PlayerID: testutils.TestPlayerID, TotalXP: 40}}
	remote <- &syncbus.Envelope{Instance: "instance-b", PublishedAt: testutils.FixedTime.Add(-time.Second),
		Record: entities.ExperienceRecord{PlayerID: testutils.TestPlayerID, TotalXP: 999}}
	remote <- &syncbus.Envelope{Instance: "instance-b", PublishedAt: testutils.FixedTime.Add(time.Second),
		Record: entities.ExperienceRecord{PlayerID: testutils.TestPlayerID, TotalXP: 140}}

	select {
	case u := <-rec.ch:
		s.Equal(syncbus.OriginRemote, u.Origin)
		s.Equal(140, u.Record.TotalXP)
		s.Equal(2, u.Record.Level)
	case <-time.After(time.Second):
		s.FailNow("remote update never delivered")
	}

	cancel()
	s.NoError(<-done)
	s.Len(rec.all(), 2)
}

func (s *BusTestSuite) TestRunFailsWhenReceiveFails() {
	s.broadcaster.EXPECT().Receive(gomock.Any()).Return(nil, errors.Unavailable("redis down"))

	err := s.bus.Run(s.ctx)
	s.True(errors.IsUnavailable(err))
}
