package battle

import (
	"log/slog"

	"github.com/KirkDiggler/cyber-arena/internal/engine/combat"
	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/protocol"
)

// reduce applies one server message to the session. It is the only place
// online health and turn ownership change. Messages after the end are
// ignored.
func (c *Controller) reduce(msg protocol.Message, fx *effects) {
	s := &c.session
	if s.Phase == PhaseEnded {
		slog.Debug("ignoring message after battle end", "type", msg.MessageType())
		return
	}

	switch m := msg.(type) {
	case *protocol.RoomCreated:
		s.RoomCode = m.RoomCode
		c.seated = true
		c.logf("Room %s created, waiting for an opponent", m.RoomCode)

	case *protocol.RoomJoined:
		s.RoomCode = m.RoomCode
		c.seated = true
		s.Opponent = combat.PvPBaseline(m.OpponentName, 1)
		c.logf("Joined room %s against %s", m.RoomCode, m.OpponentName)

	case *protocol.OpponentJoined:
		s.Opponent = combat.PvPBaseline(m.OpponentName, 1)
		c.logf("%s joined the room", m.OpponentName)

	case *protocol.GameStarted:
		if s.Phase != PhaseAwaitingOpponent {
			return
		}
		c.started = true
		s.Player = combat.PvPBaseline(s.Player.Name, s.Player.Level)
		s.Opponent = combat.PvPBaseline(m.OpponentName, max(s.Opponent.Level, 1))
		c.logf("The duel against %s begins", m.OpponentName)
		c.handOver(m.YourTurn)

	case *protocol.TurnChanged:
		if !s.Phase.Active() {
			return
		}
		c.handOver(m.YourTurn)

	case *protocol.OpponentAttack:
		s.Player = s.Player.WithHealth(m.YourNewHealth)
		s.Opponent = s.Opponent.WithHealth(m.AttackerHealth)
		switch {
		case m.Damage > 0:
			c.logf("%s hits you for %d damage", s.Opponent.Name, m.Damage)
		case !c.opponentHealed:
			c.logf("%s's action failed", s.Opponent.Name)
		}
		// a heal is an update_health followed by a zero damage action
		c.opponentHealed = false
		c.checkDefeat(fx)

	case *protocol.AttackConfirmed:
		s.Opponent = s.Opponent.WithHealth(m.VictimNewHealth)
		s.Predicted = nil
		c.checkDefeat(fx)

	case *protocol.OpponentHealthUpdate:
		before := s.Opponent.Health
		s.Opponent = s.Opponent.WithHealth(m.OpponentHealth)
		if gained := s.Opponent.Health - before; gained > 0 {
			c.opponentHealed = true
			c.logf("%s restores %d health", s.Opponent.Name, gained)
		} else {
			c.logf("%s now has %d health", s.Opponent.Name, s.Opponent.Health)
		}

	case *protocol.HealthConfirmed:
		s.Player = s.Player.WithHealth(m.Health)

	case *protocol.StateSync:
		c.applySync(m, fx)

	case *protocol.GameEnded:
		result := ResultDefeat
		if m.Winner {
			result = ResultVictory
		}
		text := m.Message
		if text == "" {
			text = "The duel is over"
		}
		c.end(result, text, fx)

	case *protocol.OpponentLeft:
		c.opponentLeft(m, fx)

	case *protocol.RoomClosed:
		c.seated = false
		text := m.Message
		if text == "" {
			text = "The room was closed"
		}
		c.end(ResultAborted, text, fx)

	case *protocol.Error:
		c.logf("Server: %s", m.Message)
		// a rejected action will never be confirmed
		if s.Phase == PhaseAwaitingConfirmation {
			c.requestSync(fx)
		}

	case *protocol.TransportError:
		c.seated = false
		c.end(ResultAborted, "Connection lost: "+m.Message, fx)

	default:
		slog.Debug("ignoring message", "type", msg.MessageType())
	}
}

// handOver sets turn ownership from a server message
func (c *Controller) handOver(yourTurn bool) {
	s := &c.session
	if yourTurn && s.Phase == PhaseActionPending {
		return
	}

	s.Predicted = nil
	c.resyncAttempts = 0
	if yourTurn {
		c.setPhase(PhaseMyTurn)
		s.TurnOwner = SideSelf
		return
	}
	c.setPhase(PhaseOpponentTurn)
	s.TurnOwner = SideOpponent
}

// checkDefeat ends a started duel as soon as a confirmed health reaches zero
func (c *Controller) checkDefeat(fx *effects) {
	if !c.started {
		return
	}
	switch {
	case c.session.Player.Defeated():
		c.end(ResultDefeat, "You were defeated by "+c.session.Opponent.Name, fx)
	case c.session.Opponent.Defeated():
		c.end(ResultVictory, c.session.Opponent.Name+" was defeated!", fx)
	}
}

func (c *Controller) applySync(m *protocol.StateSync, fx *effects) {
	s := &c.session
	c.resyncAttempts = 0
	if m.RoomCode != "" {
		s.RoomCode = m.RoomCode
	}

	if !m.Started {
		if c.started {
			c.end(ResultAborted, "The duel is no longer running", fx)
		}
		return
	}

	c.started = true
	if s.Opponent.Name == "" && m.OpponentName != "" {
		s.Opponent = combat.PvPBaseline(m.OpponentName, 1)
	}
	s.Player = s.Player.WithHealth(m.YourHealth)
	s.Opponent = s.Opponent.WithHealth(m.OpponentHealth)
	c.logf("Resynchronized with the arena server")

	c.checkDefeat(fx)
	if s.Phase == PhaseEnded {
		return
	}
	c.handOver(m.YourTurn)
}

// opponentLeft ends a running duel as an abandonment victory. Before the
// start the creator keeps waiting while a joiner's room is gone.
func (c *Controller) opponentLeft(m *protocol.OpponentLeft, fx *effects) {
	s := &c.session
	name := s.Opponent.Name
	if name == "" {
		name = "Your opponent"
	}

	switch {
	case c.started:
		c.end(ResultVictory, name+" left the duel, you win by forfeit", fx)
	case c.creator:
		s.Opponent = entities.Combatant{}
		c.logf("%s left the room, waiting for another opponent", name)
	default:
		c.seated = false
		text := m.Message
		if text == "" {
			text = "The room was closed"
		}
		c.end(ResultAborted, text, fx)
	}
}
