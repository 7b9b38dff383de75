// Package progress is the single entry point for everything that awards
// experience: combat answers, quizzes, lessons and CTF flags.
package progress

//go:generate mockgen -destination=mock/mock_service.go -package=progressmock github.com/KirkDiggler/cyber-arena/internal/services/progress Service

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/KirkDiggler/cyber-arena/internal/engine/experience"
	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/pkg/clock"
	progressrepo "github.com/KirkDiggler/cyber-arena/internal/repositories/progress"
	"github.com/KirkDiggler/cyber-arena/internal/syncbus"
)

// Service defines the progression operations
type Service interface {
	// AwardXP is the one place experience totals change
	AwardXP(ctx context.Context, input *AwardXPInput) (*AwardXPOutput, error)

	RecordAnswer(ctx context.Context, input *RecordAnswerInput) (*RecordAnswerOutput, error)
	CompleteQuiz(ctx context.Context, input *CompleteQuizInput) (*CompleteQuizOutput, error)
	CompleteLesson(ctx context.Context, input *CompleteLessonInput) (*CompleteLessonOutput, error)
	CaptureFlag(ctx context.Context, input *CaptureFlagInput) (*CaptureFlagOutput, error)
	GetProgress(ctx context.Context, input *GetProgressInput) (*GetProgressOutput, error)
}

// ExperienceBus is the part of the sync bus the service writes through
type ExperienceBus interface {
	Publish(ctx context.Context, record entities.ExperienceRecord) (syncbus.Update, error)
	Last(playerID string) (syncbus.Update, bool)
}

// Config holds the dependencies for the progress service
type Config struct {
	Bus        ExperienceBus
	Repository progressrepo.Repository
	Clock      clock.Clock
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Bus == nil {
		vb.RequiredField("Bus")
	}
	if c.Repository == nil {
		vb.RequiredField("Repository")
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}

	return vb.Build()
}

type service struct {
	bus   ExperienceBus
	repo  progressrepo.Repository
	clock clock.Clock

	mu      sync.Mutex
	players map[string]*sync.Mutex
}

// NewService creates a new progress service with the provided dependencies
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &service{
		bus:     cfg.Bus,
		repo:    cfg.Repository,
		clock:   cfg.Clock,
		players: make(map[string]*sync.Mutex),
	}, nil
}

// lock serializes read-modify-publish per player so two awards in the same
// process never lose an increment
func (s *service) lock(playerID string) func() {
	s.mu.Lock()
	m, ok := s.players[playerID]
	if !ok {
		m = &sync.Mutex{}
		s.players[playerID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// current returns the freshest record this process knows about
func (s *service) current(ctx context.Context, playerID string) (entities.ExperienceRecord, error) {
	if last, ok := s.bus.Last(playerID); ok {
		return last.Record, nil
	}

	out, err := s.repo.GetExperience(ctx, progressrepo.GetInput{PlayerID: playerID})
	if err != nil {
		if errors.IsNotFound(err) {
			return experience.NewRecord(playerID, 0, s.clock.Now()), nil
		}
		return entities.ExperienceRecord{}, errors.Wrap(err, "failed to load experience record")
	}
	return *out.Record, nil
}

// mutate applies fn to the current record and publishes the result. Caller
// must hold the player lock.
func (s *service) mutate(ctx context.Context, playerID string, amount int, reason string,
	fn func(rec *entities.ExperienceRecord)) (syncbus.Update, int, error) {
	rec, err := s.current(ctx, playerID)
	if err != nil {
		return syncbus.Update{}, 0, err
	}

	before := rec.TotalXP
	rec.TotalXP = max(0, rec.TotalXP+amount)
	applied := rec.TotalXP - before
	if fn != nil {
		fn(&rec)
	}
	rec.LastGain = &entities.XPGain{Amount: applied, Reason: reason, At: s.clock.Now()}

	update, err := s.bus.Publish(ctx, rec)
	if err != nil {
		return syncbus.Update{}, 0, err
	}

	slog.Info("experience awarded",
		"player_id", playerID,
		"amount", applied,
		"reason", reason,
		"total_xp", update.Record.TotalXP,
		"level", update.Record.Level)
	if update.LeveledUp() {
		slog.Info("level up",
			"player_id", playerID,
			"from", update.PreviousLevel,
			"to", update.Record.Level)
	}

	return update, applied, nil
}

func (s *service) AwardXP(ctx context.Context, input *AwardXPInput) (*AwardXPOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("player_id", input.PlayerID, vb)
	errors.ValidateRequired("reason", input.Reason, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	defer s.lock(input.PlayerID)()

	update, applied, err := s.mutate(ctx, input.PlayerID, input.Amount, input.Reason, nil)
	if err != nil {
		return nil, err
	}
	return &AwardXPOutput{Update: update, Applied: applied}, nil
}

func (s *service) RecordAnswer(ctx context.Context, input *RecordAnswerInput) (*RecordAnswerOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument("player_id is required")
	}
	reason := input.Reason
	if reason == "" {
		reason = "incorrect answer"
		if input.Correct {
			reason = "correct answer"
		}
	}

	defer s.lock(input.PlayerID)()

	rec, err := s.current(ctx, input.PlayerID)
	if err != nil {
		return nil, err
	}
	reward := experience.XPForAnswer(input.Correct, rec.Streak)

	update, _, err := s.mutate(ctx, input.PlayerID, reward.Total, reason, func(r *entities.ExperienceRecord) {
		r.Streak = reward.NextStreak
	})
	if err != nil {
		return nil, err
	}
	return &RecordAnswerOutput{Reward: reward, Update: update}, nil
}

func (s *service) snapshot(ctx context.Context, playerID string) (*entities.ProgressSnapshot, error) {
	out, err := s.repo.GetProgress(ctx, progressrepo.GetInput{PlayerID: playerID})
	if err != nil {
		if errors.IsNotFound(err) {
			return &entities.ProgressSnapshot{PlayerID: playerID}, nil
		}
		return nil, errors.Wrap(err, "failed to load progress")
	}
	return out.Snapshot, nil
}

func (s *service) CompleteQuiz(ctx context.Context, input *CompleteQuizInput) (*CompleteQuizOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("player_id", input.PlayerID, vb)
	errors.ValidateRequired("quiz_id", input.QuizID, vb)
	errors.ValidatePositive("total", input.Total, vb)
	if input.Correct < 0 || input.Correct > input.Total {
		vb.Fieldf("correct", "must be between 0 and %d", input.Total)
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	defer s.lock(input.PlayerID)()

	snapshot, err := s.snapshot(ctx, input.PlayerID)
	if err != nil {
		return nil, err
	}

	reward := experience.XPForQuizCompletion(input.Correct, input.Total)
	reason := "quiz completed"
	if reward.Reason != "" {
		reason = reward.Reason
	}

	update, _, err := s.mutate(ctx, input.PlayerID, reward.Total, reason, nil)
	if err != nil {
		return nil, err
	}

	snapshot.CompletedQuizzes = append(snapshot.CompletedQuizzes, entities.QuizCompletion{
		QuizID:      input.QuizID,
		Score:       input.Correct,
		Total:       input.Total,
		XPEarned:    reward.Total,
		CompletedAt: s.clock.Now(),
	})
	if err := s.saveSnapshot(ctx, snapshot, update); err != nil {
		return nil, err
	}

	return &CompleteQuizOutput{Reward: reward, Update: update, Snapshot: snapshot}, nil
}

func (s *service) saveSnapshot(ctx context.Context, snapshot *entities.ProgressSnapshot, update syncbus.Update) error {
	snapshot.TotalXP = update.Record.TotalXP
	snapshot.Level = update.Record.Level
	if err := s.repo.SaveProgress(ctx, progressrepo.SaveProgressInput{Snapshot: snapshot}); err != nil {
		return errors.Wrap(err, "failed to save progress")
	}
	return nil
}

func (s *service) CompleteLesson(ctx context.Context, input *CompleteLessonInput) (*CompleteLessonOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("player_id", input.PlayerID, vb)
	errors.ValidateRequired("lesson_id", input.LessonID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	defer s.lock(input.PlayerID)()

	snapshot, err := s.snapshot(ctx, input.PlayerID)
	if err != nil {
		return nil, err
	}
	if slices.Contains(snapshot.CompletedLessons, input.LessonID) {
		rec, err := s.current(ctx, input.PlayerID)
		if err != nil {
			return nil, err
		}
		return &CompleteLessonOutput{Awarded: false, Update: syncbus.Update{Record: rec}, Snapshot: snapshot}, nil
	}

	update, _, err := s.mutate(ctx, input.PlayerID, experience.XPPerLessonCompleted, "lesson completed", nil)
	if err != nil {
		return nil, err
	}

	snapshot.CompletedLessons = append(snapshot.CompletedLessons, input.LessonID)
	if err := s.saveSnapshot(ctx, snapshot, update); err != nil {
		return nil, err
	}
	return &CompleteLessonOutput{Awarded: true, Update: update, Snapshot: snapshot}, nil
}

// Lab ranks by captured points
var labRanks = []struct {
	points int
	rank   string
}{
	{points: 1500, rank: "Elite"},
	{points: 750, rank: "Operator"},
	{points: 300, rank: "Apprentice"},
}

// LabRank returns the CTF rank for a point total
func LabRank(points int) string {
	for _, r := range labRanks {
		if points >= r.points {
			return r.rank
		}
	}
	return "Beginner"
}

func (s *service) CaptureFlag(ctx context.Context, input *CaptureFlagInput) (*CaptureFlagOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("player_id", input.PlayerID, vb)
	errors.ValidateRequired("challenge_id", input.ChallengeID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	defer s.lock(input.PlayerID)()

	lab := &entities.LabProgress{PlayerID: input.PlayerID, Rank: LabRank(0)}
	out, err := s.repo.GetLabProgress(ctx, progressrepo.GetInput{PlayerID: input.PlayerID})
	switch {
	case err == nil:
		lab = out.Progress
	case !errors.IsNotFound(err):
		return nil, errors.Wrap(err, "failed to load lab progress")
	}

	if slices.Contains(lab.Completed, input.ChallengeID) {
		rec, err := s.current(ctx, input.PlayerID)
		if err != nil {
			return nil, err
		}
		return &CaptureFlagOutput{Awarded: false, Progress: lab, Update: syncbus.Update{Record: rec}}, nil
	}

	points := experience.XPForChallenge(input.Difficulty)
	update, _, err := s.mutate(ctx, input.PlayerID, points, "flag captured: "+input.ChallengeID, nil)
	if err != nil {
		return nil, err
	}

	lab.Completed = append(lab.Completed, input.ChallengeID)
	lab.Points += points
	lab.Rank = LabRank(lab.Points)
	if err := s.repo.SaveLabProgress(ctx, progressrepo.SaveLabProgressInput{Progress: lab}); err != nil {
		return nil, errors.Wrap(err, "failed to save lab progress")
	}

	return &CaptureFlagOutput{Awarded: true, Points: points, Progress: lab, Update: update}, nil
}

func (s *service) GetProgress(ctx context.Context, input *GetProgressInput) (*GetProgressOutput, error) {
	if input == nil || input.PlayerID == "" {
		return nil, errors.InvalidArgument("player_id is required")
	}

	rec, err := s.current(ctx, input.PlayerID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.snapshot(ctx, input.PlayerID)
	if err != nil {
		return nil, err
	}
	snapshot.TotalXP = rec.TotalXP
	snapshot.Level = rec.Level

	lab := &entities.LabProgress{PlayerID: input.PlayerID, Rank: LabRank(0)}
	out, err := s.repo.GetLabProgress(ctx, progressrepo.GetInput{PlayerID: input.PlayerID})
	switch {
	case err == nil:
		lab = out.Progress
	case !errors.IsNotFound(err):
		return nil, errors.Wrap(err, "failed to load lab progress")
	}

	return &GetProgressOutput{
		Experience: rec,
		Snapshot:   snapshot,
		Lab:        lab,
		Title:      experience.LevelTitle(rec.Level),
		Progress:   experience.LevelProgress(rec.TotalXP),
	}, nil
}
