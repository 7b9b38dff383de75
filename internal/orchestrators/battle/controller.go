// Package battle is the session and turn controller. It runs a duel against
// the local bot or against a remote player over the realtime channel.
//
// Local sessions apply resolved outcomes directly. Online sessions are a
// reducer over server confirmations: health and turn ownership are written
// only by confirmed events, and the locally rolled outcome is kept apart in
// Session.Predicted for animation.
package battle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/KirkDiggler/cyber-arena/internal/clients/realtime"
	"github.com/KirkDiggler/cyber-arena/internal/engine/bot"
	"github.com/KirkDiggler/cyber-arena/internal/engine/combat"
	"github.com/KirkDiggler/cyber-arena/internal/engine/experience"
	"github.com/KirkDiggler/cyber-arena/internal/engine/trivia"
	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/pkg/clock"
	"github.com/KirkDiggler/cyber-arena/internal/services/progress"
	"github.com/KirkDiggler/cyber-arena/internal/syncbus"
)

const (
	DefaultAnswerTimeout     = 5 * time.Second
	DefaultConfirmTimeout    = 10 * time.Second
	DefaultMaxResyncAttempts = 3

	// LevelUpMana is restored when the player levels up mid battle
	LevelUpMana = 20
)

// QuestionSource hands out the trivia questions gating actions
type QuestionSource interface {
	Pick(module string) (*entities.Question, error)
}

// Subscriber is the part of the sync bus used to observe level-ups
type Subscriber interface {
	Subscribe(ctx context.Context, playerID string, listener syncbus.Listener) string
	Unsubscribe(id string) error
}

// Config holds the dependencies shared by both modes
type Config struct {
	PlayerID   string
	PlayerName string
	Questions  QuestionSource
	// Module selects the question pool, the global pool when empty
	Module   string
	Resolver *combat.Resolver
	Progress progress.Service
	// Bus is optional. Without it level-ups are not narrated.
	Bus           Subscriber
	Clock         clock.Clock
	AnswerTimeout time.Duration
	Observer      Observer
}

func (cfg *Config) validate(vb *errors.ValidationBuilder) {
	errors.ValidateRequired("PlayerID", cfg.PlayerID, vb)
	errors.ValidateRequired("PlayerName", cfg.PlayerName, vb)
	if cfg.Questions == nil {
		vb.RequiredField("Questions")
	}
	if cfg.Progress == nil {
		vb.RequiredField("Progress")
	}
	if cfg.AnswerTimeout < 0 {
		vb.Field("AnswerTimeout", "must not be negative")
	}

	if cfg.Module == "" {
		cfg.Module = trivia.GlobalModule
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.AnswerTimeout == 0 {
		cfg.AnswerTimeout = DefaultAnswerTimeout
	}
}

// LocalConfig configures a session against the bot
type LocalConfig struct {
	Config
	Arena bot.ArenaType
	// Difficulty overrides the arena's bot difficulty
	Difficulty bot.Difficulty
	// Campaign replaces each defeated enemy with the next one of the arena
	// instead of ending the session with a victory
	Campaign bool
	// Roller drives the bot, and the resolver when Resolver is nil
	Roller dice.Roller
}

// Validate ensures all required dependencies are provided
func (cfg *LocalConfig) Validate() error {
	vb := errors.NewValidationBuilder()
	cfg.validate(vb)

	if cfg.Arena == "" {
		cfg.Arena = bot.ArenaCyberFortress
	}
	if _, err := bot.GetArena(cfg.Arena); err != nil {
		vb.Field("Arena", err.Error())
	}
	if cfg.Difficulty != "" {
		if _, err := bot.ParseDifficulty(string(cfg.Difficulty)); err != nil {
			vb.Field("Difficulty", err.Error())
		}
	}
	if cfg.Resolver == nil {
		cfg.Resolver = combat.NewResolver(cfg.Roller)
	}

	return vb.Build()
}

// OnlineConfig configures a session against a remote player
type OnlineConfig struct {
	Config
	Channel realtime.Channel
	// ConfirmTimeout is how long to wait for the server to hand the turn
	// over before asking for a state sync
	ConfirmTimeout    time.Duration
	MaxResyncAttempts int
}

// Validate ensures all required dependencies are provided
func (cfg *OnlineConfig) Validate() error {
	vb := errors.NewValidationBuilder()
	cfg.validate(vb)

	if cfg.Channel == nil {
		vb.RequiredField("Channel")
	}
	if cfg.ConfirmTimeout == 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	if cfg.MaxResyncAttempts == 0 {
		cfg.MaxResyncAttempts = DefaultMaxResyncAttempts
	}
	if cfg.Resolver == nil {
		cfg.Resolver = combat.NewResolver(nil)
	}

	return vb.Build()
}

// Controller owns one battle session. All methods are safe for concurrent use.
type Controller struct {
	mode          Mode
	playerID      string
	playerName    string
	questions     QuestionSource
	module        string
	resolver      *combat.Resolver
	progress      progress.Service
	bus           Subscriber
	clock         clock.Clock
	answerTimeout time.Duration
	observer      Observer

	arenaType bot.ArenaType
	bot       *bot.Bot
	campaign  bool

	channel        realtime.Channel
	confirmTimeout time.Duration
	maxResync      int

	mu sync.Mutex
	// ctx is used by timer callbacks
	ctx     context.Context
	session Session
	// gen invalidates armed timers on every phase change
	gen            uint64
	timer          clock.Timer
	resyncAttempts int
	creator        bool
	started        bool
	// seated is true while the server holds a seat for this session
	seated         bool
	opponentHealed bool
	subscription   string
}

func newController(mode Mode, cfg *Config) *Controller {
	return &Controller{
		mode:          mode,
		playerID:      cfg.PlayerID,
		playerName:    cfg.PlayerName,
		questions:     cfg.Questions,
		module:        cfg.Module,
		resolver:      cfg.Resolver,
		progress:      cfg.Progress,
		bus:           cfg.Bus,
		clock:         cfg.Clock,
		answerTimeout: cfg.AnswerTimeout,
		observer:      cfg.Observer,
		ctx:           context.Background(),
		session:       Session{Mode: mode, Phase: PhaseSetup},
	}
}

// NewLocal creates a session against the bot
func NewLocal(cfg *LocalConfig) (*Controller, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	arena, _ := bot.GetArena(cfg.Arena)
	difficulty := arena.Bot
	if cfg.Difficulty != "" {
		difficulty, _ = bot.ParseDifficulty(string(cfg.Difficulty))
	}

	c := newController(ModeLocal, &cfg.Config)
	c.arenaType = cfg.Arena
	c.campaign = cfg.Campaign
	c.bot = bot.New(difficulty, cfg.Roller)
	return c, nil
}

// NewOnline creates a session against a remote player
func NewOnline(cfg *OnlineConfig) (*Controller, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	c := newController(ModeOnline, &cfg.Config)
	c.channel = cfg.Channel
	c.confirmTimeout = cfg.ConfirmTimeout
	c.maxResync = cfg.MaxResyncAttempts
	return c, nil
}

// Snapshot returns a copy of the current session
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

// BeginAction opens a pending attack or heal with a fresh question. The
// action resolves as failed when no answer arrives before its deadline.
func (c *Controller) BeginAction(ctx context.Context, kind combat.ActionKind) (*PendingAction, error) {
	if !kind.Valid() {
		return nil, errors.InvalidArgumentf("unknown action %q", kind)
	}

	c.mu.Lock()
	if c.session.Phase != PhaseMyTurn {
		phase := c.session.Phase
		c.mu.Unlock()
		return nil, errors.FailedPreconditionf("cannot start an action during %s", phase)
	}

	question, err := c.pickQuestion()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	c.setPhase(PhaseActionPending)
	c.session.Predicted = nil
	c.session.Pending = &PendingAction{
		Kind:     kind,
		Question: *question,
		Deadline: c.clock.Now().Add(c.answerTimeout),
	}
	c.arm(c.answerTimeout, c.expire)

	pending := *c.session.Pending
	return &pending, c.finish(ctx, &effects{})
}

// pickQuestion falls back to the global pool when the configured module has
// no usable questions
func (c *Controller) pickQuestion() (*entities.Question, error) {
	question, err := c.questions.Pick(c.module)
	if err != nil && errors.IsNotFound(err) && c.module != trivia.GlobalModule {
		slog.Warn("question pool empty, using global pool", "module", c.module)
		question, err = c.questions.Pick(trivia.GlobalModule)
	}
	if err != nil {
		return nil, errors.Wrap(err, "no question available")
	}
	return question, nil
}

// SubmitAnswer answers the pending action and resolves it. In online mode
// the returned outcome is a prediction; the session only changes health when
// the server confirms it.
func (c *Controller) SubmitAnswer(ctx context.Context, answer string) (*combat.Outcome, error) {
	c.mu.Lock()
	if c.session.Phase != PhaseActionPending || c.session.Pending == nil {
		phase := c.session.Phase
		c.mu.Unlock()
		return nil, errors.FailedPreconditionf("no pending action during %s", phase)
	}

	correct := trivia.Check(&c.session.Pending.Question, answer)
	c.session.Pending.Submitted = true

	fx := &effects{}
	outcome, err := c.resolve(correct, false, fx)
	ferr := c.finish(ctx, fx)
	if err != nil {
		return nil, err
	}
	return outcome, ferr
}

// expire resolves a pending action whose deadline passed
func (c *Controller) expire(fx *effects) {
	if c.session.Phase != PhaseActionPending || c.session.Pending == nil {
		return
	}
	slog.Info("action timed out", "player_id", c.playerID, "kind", c.session.Pending.Kind)
	_, _ = c.resolve(false, true, fx)
}

func (c *Controller) resolve(correct, timedOut bool, fx *effects) (*combat.Outcome, error) {
	pending := c.session.Pending
	c.session.Pending = nil

	outcome, err := c.resolver.Resolve(&combat.ResolveInput{
		Kind:     pending.Kind,
		Correct:  correct,
		TimedOut: timedOut,
		Attacker: c.session.Player,
		Defender: c.session.Opponent,
	})
	if err != nil {
		slog.Error("failed to resolve action", "player_id", c.playerID, "error", err)
		c.end(ResultAborted, "The action could not be resolved", fx)
		return nil, errors.Wrap(err, "failed to resolve action")
	}

	c.logf("%s", outcome.Narration)

	reason := ""
	if timedOut {
		reason = "answer timed out"
	}
	fx.awards = append(fx.awards, award{answer: true, correct: correct, reason: reason})

	if c.mode == ModeLocal {
		c.applyLocal(outcome, fx)
	} else {
		c.transmit(outcome, correct, fx)
	}
	return outcome, nil
}

// Leave abandons the session. Online sessions notify the server on a best
// effort basis, also after the duel ended so the room is released.
func (c *Controller) Leave(ctx context.Context) error {
	c.mu.Lock()
	if c.session.Phase == PhaseEnded {
		seated := c.seated
		c.seated = false
		c.mu.Unlock()

		if seated {
			if err := c.channel.LeaveRoom(ctx); err != nil {
				slog.Warn("best effort notification failed", "player_id", c.playerID, "error", err)
			}
		}
		return nil
	}

	fx := &effects{}
	if c.mode == ModeOnline && c.session.Phase != PhaseSetup {
		c.seated = false
		fx.notices = append(fx.notices, c.channel.LeaveRoom)
	}
	c.end(ResultAborted, "You left the battle", fx)
	return c.finish(ctx, fx)
}

// setPhase moves to p, invalidating any timer armed for the previous phase
func (c *Controller) setPhase(p Phase) {
	if c.session.Phase == p {
		return
	}
	c.gen++
	c.stopTimer()
	c.session.Phase = p
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// arm schedules fn for the current phase, replacing any earlier timer
func (c *Controller) arm(d time.Duration, fn func(fx *effects)) {
	c.stopTimer()
	gen := c.gen
	c.timer = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		fx := &effects{}
		fn(fx)
		_ = c.finish(c.ctx, fx)
	})
}

// end moves the session to its terminal phase once
func (c *Controller) end(result Result, text string, fx *effects) {
	if c.session.Phase == PhaseEnded {
		return
	}
	c.setPhase(PhaseEnded)
	c.session.Result = result
	c.session.TurnOwner = SideNone
	c.session.Pending = nil
	c.session.Predicted = nil
	c.logf("%s", text)
	fx.release = true

	if result == ResultVictory && c.mode == ModeOnline {
		fx.awards = append(fx.awards, award{amount: experience.PvPVictoryXP, reason: "pvp victory"})
	}

	slog.Info("battle ended",
		"player_id", c.playerID,
		"mode", c.mode,
		"room_code", c.session.RoomCode,
		"result", result)
}

func (c *Controller) logf(format string, args ...any) {
	c.session.Log = append(c.session.Log, LogEntry{At: c.clock.Now(), Text: fmt.Sprintf(format, args...)})
}

// playerLevel reads the player's level, level 1 when progress is unavailable
func (c *Controller) playerLevel(ctx context.Context) int {
	out, err := c.progress.GetProgress(ctx, &progress.GetProgressInput{PlayerID: c.playerID})
	if err != nil {
		slog.Warn("failed to load player level", "player_id", c.playerID, "error", err)
		return 1
	}
	return max(out.Experience.Level, 1)
}

func (c *Controller) subscribe(ctx context.Context) {
	if c.bus == nil {
		return
	}
	id := c.bus.Subscribe(ctx, c.playerID, c.onExperience)

	c.mu.Lock()
	c.subscription = id
	ended := c.session.Phase == PhaseEnded
	c.mu.Unlock()

	if ended {
		c.unsubscribe()
	}
}

func (c *Controller) unsubscribe() {
	c.mu.Lock()
	id := c.subscription
	c.subscription = ""
	c.mu.Unlock()

	if id == "" || c.bus == nil {
		return
	}
	if err := c.bus.Unsubscribe(id); err != nil {
		slog.Warn("failed to unsubscribe from experience updates", "player_id", c.playerID, "error", err)
	}
}

// onExperience narrates level-ups and, in local mode, raises the player's stats
func (c *Controller) onExperience(ctx context.Context, update syncbus.Update) {
	if !update.LeveledUp() {
		return
	}

	c.mu.Lock()
	if c.session.Phase == PhaseSetup {
		c.mu.Unlock()
		return
	}
	c.levelUp(update.Record.Level)
	_ = c.finish(ctx, &effects{})
}

func (c *Controller) levelUp(level int) {
	p := &c.session.Player
	if level <= p.Level {
		return
	}

	// online duels keep the baseline stats, the level is display only
	if c.mode == ModeLocal {
		stats := experience.StatsForLevel(level)
		p.MaxHealth = stats.MaxHealth
		p.MaxMana = stats.MaxMana
		p.Attack = stats.Attack
		p.Defense = stats.Defense
		*p = p.WithMana(p.Mana + LevelUpMana)
	}
	p.Level = level
	c.logf("LEVEL UP! %s reached level %d, %s", p.Name, level, experience.LevelTitle(level))
}

type award struct {
	amount  int
	reason  string
	answer  bool
	correct bool
}

// effects are collected under the lock and run after it is released, since
// awarding experience publishes on the sync bus and delivery calls back into
// onExperience
type effects struct {
	sends   []func(ctx context.Context) error
	notices []func(ctx context.Context) error
	awards  []award
	release bool
}

// finish releases the lock, notifies the observer and runs fx. A failed send
// aborts the session.
func (c *Controller) finish(ctx context.Context, fx *effects) error {
	snap := c.session.clone()
	c.mu.Unlock()
	c.notify(snap)

	var err error
	for _, send := range fx.sends {
		if err = send(ctx); err != nil {
			break
		}
	}
	for _, notice := range fx.notices {
		if nerr := notice(ctx); nerr != nil {
			slog.Warn("best effort notification failed", "player_id", c.playerID, "error", nerr)
		}
	}

	if err != nil {
		slog.Error("failed to reach arena server", "player_id", c.playerID, "error", err)
		c.mu.Lock()
		c.seated = false
		c.end(ResultAborted, "Connection to the arena was lost", &effects{})
		snap = c.session.clone()
		c.mu.Unlock()
		c.notify(snap)

		fx.release = true
		err = errors.Wrap(err, "failed to send to arena server")
	}

	for _, a := range fx.awards {
		c.award(ctx, a)
	}
	if fx.release {
		c.unsubscribe()
	}
	return err
}

func (c *Controller) notify(snap Session) {
	if c.observer != nil {
		c.observer(snap)
	}
}

// award failures are logged only; periodic reconciliation repairs the record
func (c *Controller) award(ctx context.Context, a award) {
	var err error
	switch {
	case a.answer:
		_, err = c.progress.RecordAnswer(ctx, &progress.RecordAnswerInput{
			PlayerID: c.playerID,
			Correct:  a.correct,
			Reason:   a.reason,
		})
	case a.amount != 0:
		_, err = c.progress.AwardXP(ctx, &progress.AwardXPInput{
			PlayerID: c.playerID,
			Amount:   a.amount,
			Reason:   a.reason,
		})
	}
	if err != nil {
		slog.Warn("failed to award experience",
			"player_id", c.playerID,
			"reason", a.reason,
			"error", err)
	}
}
