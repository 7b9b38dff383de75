package battle

import (
	"context"

	"github.com/KirkDiggler/cyber-arena/internal/engine/bot"
	"github.com/KirkDiggler/cyber-arena/internal/engine/combat"
	"github.com/KirkDiggler/cyber-arena/internal/engine/experience"
	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
)

// Start begins a local session: the player enters the first arena with stats
// of their current level and takes the first turn.
func (c *Controller) Start(ctx context.Context) error {
	if c.mode != ModeLocal {
		return errors.FailedPrecondition("start is only available for local sessions")
	}

	level := c.playerLevel(ctx)
	arena, err := bot.GetArena(c.arenaType)
	if err != nil {
		return err
	}
	enemy, err := bot.SpawnEnemy(c.arenaType, 1, 0)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.session.Phase != PhaseSetup {
		phase := c.session.Phase
		c.mu.Unlock()
		return errors.FailedPreconditionf("session already started: %s", phase)
	}

	c.ctx = context.WithoutCancel(ctx)
	c.session.Player = entities.NewCombatant(c.playerName, level, experience.StatsForLevel(level))
	c.session.Opponent = enemy
	c.session.Arena = &ArenaProgress{
		Type:     arena.Type,
		Name:     arena.Name,
		Level:    1,
		Required: bot.EnemiesInArena(1),
	}
	c.logf("Entering %s (%s)", arena.Name, arena.Difficulty)
	c.logf("%s appears", enemy.Name)
	c.setPhase(PhaseMyTurn)
	c.session.TurnOwner = SideSelf

	if err := c.finish(ctx, &effects{}); err != nil {
		return err
	}
	c.subscribe(ctx)
	return nil
}

// applyLocal commits a resolved player action
func (c *Controller) applyLocal(outcome *combat.Outcome, fx *effects) {
	c.session.Player = outcome.AttackerAfter
	c.session.Opponent = outcome.DefenderAfter

	if c.session.Opponent.Defeated() {
		c.enemyDefeated(fx)
		return
	}
	c.botTurn()
}

func (c *Controller) botTurn() {
	c.setPhase(PhaseOpponentTurn)
	c.session.TurnOwner = SideOpponent
	c.arm(c.bot.Think(), c.botAct)
}

// botAct plays the bot's turn. A defeated player ends the session at once.
func (c *Controller) botAct(fx *effects) {
	if c.session.Phase != PhaseOpponentTurn {
		return
	}

	enemy := c.session.Opponent
	outcome, err := c.bot.Act(enemy, c.session.Player)
	if err != nil {
		c.end(ResultAborted, enemy.Name+" malfunctioned, the battle is over", fx)
		return
	}

	c.session.Player = outcome.DefenderAfter
	c.logf("%s", outcome.Narration)

	if c.session.Player.Defeated() {
		c.end(ResultDefeat, "You were defeated by "+enemy.Name, fx)
		return
	}
	c.setPhase(PhaseMyTurn)
	c.session.TurnOwner = SideSelf
}

// enemyDefeated awards the kill. A single duel ends with a victory; a
// campaign spawns the next enemy, clearing the arena after enough kills.
func (c *Controller) enemyDefeated(fx *effects) {
	arena := c.session.Arena
	enemy := c.session.Opponent
	def, _ := bot.GetArena(arena.Type)

	xp := experience.VictoryXP(arena.Level, def.XPPercent)
	fx.awards = append(fx.awards, award{amount: xp, reason: "defeated " + enemy.Name})
	arena.Defeated++
	c.logf("%s defeated! +%d XP", enemy.Name, xp)

	if !c.campaign {
		c.end(ResultVictory, "Victory!", fx)
		return
	}

	if arena.Defeated >= arena.Required {
		bonus := bot.CompletionXP(arena.Type, arena.Level)
		fx.awards = append(fx.awards, award{amount: bonus, reason: "arena cleared"})
		c.session.Player = c.session.Player.WithMana(c.session.Player.Mana + bot.ArenaCompletionMana)
		c.logf("%s level %d cleared! +%d XP", arena.Name, arena.Level, bonus)

		arena.Level++
		arena.Defeated = 0
		arena.Required = bot.EnemiesInArena(arena.Level)
	}

	next, err := bot.SpawnEnemy(arena.Type, arena.Level, arena.Defeated)
	if err != nil {
		c.end(ResultAborted, "The arena could not spawn an enemy", fx)
		return
	}
	c.session.Opponent = next
	c.logf("%s appears", next.Name)
	c.setPhase(PhaseMyTurn)
	c.session.TurnOwner = SideSelf
}
