package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/cyber-arena/internal/clients/profile"
	profilemock "github.com/KirkDiggler/cyber-arena/internal/clients/profile/mock"
	"github.com/KirkDiggler/cyber-arena/internal/engine/experience"
	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/pkg/clock"
	progressrepo "github.com/KirkDiggler/cyber-arena/internal/repositories/progress"
	"github.com/KirkDiggler/cyber-arena/internal/syncbus"
	"github.com/KirkDiggler/cyber-arena/internal/testutils"
)

type SyncerTestSuite struct {
	suite.Suite
	ctx     context.Context
	ctrl    *gomock.Controller
	client  *profilemock.MockClient
	repo    progressrepo.Repository
	bus     *syncbus.Bus
	syncer  *profile.Syncer
	cleanup func()
}

func TestSyncerSuite(t *testing.T) {
	suite.Run(t, new(SyncerTestSuite))
}

func (s *SyncerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.client = profilemock.NewMockClient(s.ctrl)

	redisClient, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup

	repo, err := progressrepo.NewRedisRepository(&progressrepo.Config{Client: redisClient})
	s.Require().NoError(err)
	s.repo = repo

	bus, err := syncbus.New(&syncbus.Config{Repository: repo, Clock: clock.NewFake(testutils.FixedTime)})
	s.Require().NoError(err)
	s.bus = bus

	syncer, err := profile.NewSyncer(&profile.SyncerConfig{Bus: bus, Repository: repo, Client: s.client})
	s.Require().NoError(err)
	s.syncer = syncer
}

func (s *SyncerTestSuite) TearDownTest() {
	s.ctrl.Finish()
	s.cleanup()
}

func (s *SyncerTestSuite) TestNewSyncerValidation() {
	_, err := profile.NewSyncer(&profile.SyncerConfig{})
	s.True(errors.IsInvalidArgument(err))
}

func (s *SyncerTestSuite) TestPushMergesStoredHistory() {
	err := s.repo.SaveProgress(s.ctx, progressrepo.SaveProgressInput{Snapshot: &entities.ProgressSnapshot{
		PlayerID:         testutils.TestPlayerID,
		TotalXP:          100,
		Level:            2,
		CompletedLessons: []string{"aes-basics"},
	}})
	s.Require().NoError(err)

	update := syncbus.Update{Record: experience.NewRecord(testutils.TestPlayerID, 130, testutils.FixedTime)}

	s.client.EXPECT().PushSnapshot(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, snap *entities.ProgressSnapshot) error {
			s.Equal(130, snap.TotalXP)
			s.Equal(2, snap.Level)
			s.Equal([]string{"aes-basics"}, snap.CompletedLessons)
			s.NotNil(snap.CompletedQuizzes)
			return nil
		})

	s.Require().NoError(s.syncer.Push(s.ctx, update))
}

func (s *SyncerTestSuite) TestPushWithoutHistory() {
	update := syncbus.Update{Record: experience.NewRecord("fresh", 25, testutils.FixedTime)}

	s.client.EXPECT().PushSnapshot(gomock.Any(), &entities.ProgressSnapshot{
		PlayerID:         "fresh",
		TotalXP:          25,
		Level:            1,
		CompletedQuizzes: []entities.QuizCompletion{},
		CompletedLessons: []string{},
	}).Return(nil)

	s.Require().NoError(s.syncer.Push(s.ctx, update))
}

func (s *SyncerTestSuite) TestRunPushesPublishedUpdates() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	pushed := make(chan *entities.ProgressSnapshot, 4)
	s.client.EXPECT().PushSnapshot(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, snap *entities.ProgressSnapshot) error {
			select {
			case pushed <- snap:
			default:
			}
			return errors.Unavailable("profile service down")
		}).MinTimes(1)

	done := make(chan error, 1)
	go func() { done <- s.syncer.Run(ctx) }()

	// Run subscribes asynchronously; publish until the first push lands.
	s.Eventually(func() bool {
		_, err := s.bus.Publish(ctx, experience.NewRecord(testutils.TestPlayerID, 50, testutils.FixedTime))
		if err != nil {
			return false
		}
		select {
		case snap := <-pushed:
			return snap.TotalXP == 50
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	s.NoError(<-done)
}
