package battle

import (
	"time"

	"github.com/KirkDiggler/cyber-arena/internal/engine/bot"
	"github.com/KirkDiggler/cyber-arena/internal/engine/combat"
	"github.com/KirkDiggler/cyber-arena/internal/entities"
)

// Mode of a session
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeOnline Mode = "online"
)

// Phase of a session
type Phase string

const (
	PhaseSetup            Phase = "setup"
	PhaseAwaitingOpponent Phase = "awaiting_opponent"
	PhaseMyTurn           Phase = "my_turn"
	PhaseOpponentTurn     Phase = "opponent_turn"
	PhaseActionPending    Phase = "action_pending"
	// PhaseAwaitingConfirmation is online only: the action was sent and the
	// server has not handed the turn over yet
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseEnded                Phase = "ended"
)

// Active reports whether the phase is one of the in-game phases
func (p Phase) Active() bool {
	switch p {
	case PhaseMyTurn, PhaseOpponentTurn, PhaseActionPending, PhaseAwaitingConfirmation:
		return true
	}
	return false
}

// Result of an ended session
type Result string

const (
	ResultNone    Result = ""
	ResultVictory Result = "victory"
	ResultDefeat  Result = "defeat"
	ResultAborted Result = "aborted"
)

// Side names a combatant relative to the local player
type Side string

const (
	SideNone     Side = ""
	SideSelf     Side = "self"
	SideOpponent Side = "opponent"
)

// PendingAction is an attack or heal waiting for its answer
type PendingAction struct {
	Kind      combat.ActionKind
	Question  entities.Question
	Deadline  time.Time
	Submitted bool
}

// Prediction is the locally rolled outcome of an online action. It drives
// the attack animation only and is never merged into health values.
type Prediction struct {
	Kind           combat.ActionKind
	Result         combat.Result
	Damage         int
	Heal           int
	OpponentHealth int
	PlayerHealth   int
}

// LogEntry is one narrated line. The log is display only.
type LogEntry struct {
	At   time.Time
	Text string
}

// ArenaProgress tracks a local campaign
type ArenaProgress struct {
	Type     bot.ArenaType
	Name     string
	Level    int
	Defeated int
	Required int
}

// Session is a point in time copy of a battle
type Session struct {
	Mode      Mode
	RoomCode  string
	Phase     Phase
	Result    Result
	TurnOwner Side
	Player    entities.Combatant
	Opponent  entities.Combatant
	Pending   *PendingAction
	Predicted *Prediction
	Arena     *ArenaProgress
	Log       []LogEntry
}

// Observer is called with a snapshot after every state change, outside the
// controller lock
type Observer func(Session)

func (s *Session) clone() Session {
	out := *s
	out.Log = append([]LogEntry(nil), s.Log...)
	if s.Pending != nil {
		p := *s.Pending
		p.Question.Choices = append([]string(nil), s.Pending.Question.Choices...)
		if s.Pending.Question.Correct != nil {
			correct := *s.Pending.Question.Correct
			p.Question.Correct = &correct
		}
		out.Pending = &p
	}
	if s.Predicted != nil {
		p := *s.Predicted
		out.Predicted = &p
	}
	if s.Arena != nil {
		a := *s.Arena
		out.Arena = &a
	}
	return out
}
