package battle

import (
	"context"
	"log/slog"
	"strings"

	"github.com/KirkDiggler/cyber-arena/internal/engine/combat"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/protocol"
)

// CreateRoom opens a room on the arena server and waits for an opponent
func (c *Controller) CreateRoom(ctx context.Context) error {
	return c.enterRoom(ctx, true, func(ctx context.Context) error {
		return c.channel.CreateRoom(ctx, c.playerName)
	})
}

// JoinRoom joins an existing room by code
func (c *Controller) JoinRoom(ctx context.Context, roomCode string) error {
	code := strings.ToUpper(strings.TrimSpace(roomCode))
	if code == "" {
		return errors.InvalidArgument("room code is required")
	}
	return c.enterRoom(ctx, false, func(ctx context.Context) error {
		return c.channel.JoinRoom(ctx, code, c.playerName)
	})
}

func (c *Controller) enterRoom(ctx context.Context, creator bool, send func(context.Context) error) error {
	if c.mode != ModeOnline {
		return errors.FailedPrecondition("rooms are only available for online sessions")
	}

	level := c.playerLevel(ctx)

	c.mu.Lock()
	if c.session.Phase != PhaseSetup {
		phase := c.session.Phase
		c.mu.Unlock()
		return errors.FailedPreconditionf("session already started: %s", phase)
	}

	c.ctx = context.WithoutCancel(ctx)
	c.creator = creator
	// every duel starts from the same baseline, the level is display only
	c.session.Player = combat.PvPBaseline(c.playerName, level)
	c.setPhase(PhaseAwaitingOpponent)

	if err := c.finish(ctx, &effects{sends: []func(context.Context) error{send}}); err != nil {
		return err
	}
	c.subscribe(ctx)
	return nil
}

// StartGame starts the duel once an opponent joined. Only the room creator
// may start; the creator takes the first turn.
func (c *Controller) StartGame(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.mode != ModeOnline:
		c.mu.Unlock()
		return errors.FailedPrecondition("start game is only available for online sessions")
	case c.session.Phase != PhaseAwaitingOpponent:
		phase := c.session.Phase
		c.mu.Unlock()
		return errors.FailedPreconditionf("cannot start the game during %s", phase)
	case !c.creator:
		c.mu.Unlock()
		return errors.FailedPrecondition("only the room creator can start the game")
	case c.session.Opponent.Name == "":
		c.mu.Unlock()
		return errors.FailedPrecondition("waiting for an opponent to join")
	}

	return c.finish(ctx, &effects{sends: []func(context.Context) error{c.channel.StartGame}})
}

// Run applies channel events in arrival order until the channel closes or
// ctx is done
func (c *Controller) Run(ctx context.Context) error {
	if c.mode != ModeOnline {
		return errors.FailedPrecondition("run is only available for online sessions")
	}

	events := c.channel.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-events:
			if !ok {
				return c.HandleEvent(ctx, &protocol.TransportError{Message: "connection closed"})
			}
			if err := c.HandleEvent(ctx, msg); err != nil {
				slog.Warn("failed to handle arena event",
					"player_id", c.playerID,
					"type", msg.MessageType(),
					"error", err)
			}
		}
	}
}

// HandleEvent applies one inbound message
func (c *Controller) HandleEvent(ctx context.Context, msg protocol.Message) error {
	if c.mode != ModeOnline {
		return errors.FailedPrecondition("events are only handled by online sessions")
	}
	if msg == nil {
		return errors.InvalidArgument("message is required")
	}

	c.mu.Lock()
	fx := &effects{}
	c.reduce(msg, fx)
	return c.finish(ctx, fx)
}

// transmit sends a resolved action to the server. Mana is client side state
// and applies at once; health waits for the confirmation.
func (c *Controller) transmit(outcome *combat.Outcome, correct bool, fx *effects) {
	c.session.Player = c.session.Player.WithMana(outcome.AttackerAfter.Mana)
	c.session.Predicted = &Prediction{
		Kind:           outcome.Kind,
		Result:         outcome.Result,
		Damage:         outcome.Damage,
		Heal:           outcome.Heal,
		OpponentHealth: outcome.DefenderAfter.Health,
		PlayerHealth:   outcome.AttackerAfter.Health,
	}

	if outcome.Result == combat.ResultHealed {
		health := outcome.AttackerAfter.Health
		fx.sends = append(fx.sends, func(ctx context.Context) error {
			return c.channel.UpdateHealth(ctx, health)
		})
	}

	// a failed or timed out action is still sent with zero damage so the
	// server hands the turn over on both sides
	action := &protocol.PlayerAnswer{
		IsCorrect: correct,
		Damage:    outcome.Damage,
		NewHealth: outcome.DefenderAfter.Health,
	}
	fx.sends = append(fx.sends, func(ctx context.Context) error {
		return c.channel.SubmitAction(ctx, action)
	})

	c.setPhase(PhaseAwaitingConfirmation)
	c.resyncAttempts = 0
	c.arm(c.confirmTimeout, c.watchdog)
}

// watchdog fires when the server has not handed the turn over in time
func (c *Controller) watchdog(fx *effects) {
	if c.session.Phase != PhaseAwaitingConfirmation {
		return
	}
	if c.resyncAttempts >= c.maxResync {
		c.end(ResultAborted, "Lost sync with the arena server", fx)
		return
	}
	c.requestSync(fx)
}

func (c *Controller) requestSync(fx *effects) {
	c.resyncAttempts++
	slog.Warn("confirmation overdue, requesting state sync",
		"player_id", c.playerID,
		"room_code", c.session.RoomCode,
		"attempt", c.resyncAttempts)

	fx.sends = append(fx.sends, c.channel.RequestSync)
	c.arm(c.confirmTimeout, c.watchdog)
}
