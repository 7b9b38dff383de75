package client

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/cyber-arena/internal/engine/bot"
	"github.com/KirkDiggler/cyber-arena/internal/orchestrators/battle"
)

var (
	duelArena      string
	duelDifficulty string
	duelCampaign   bool
	duelModule     string
)

var duelCmd = &cobra.Command{
	Use:   "duel",
	Short: "Fight the local bot",
	Long:  `Fight the bot of an arena. Every action is gated by a trivia question.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		term := newTerminal(os.Stdin, os.Stdout)
		c, err := battle.NewLocal(&battle.LocalConfig{
			Config: battle.Config{
				PlayerID:      playerID,
				PlayerName:    playerName,
				Questions:     a.Questions,
				Module:        duelModule,
				Progress:      a.Progress,
				Bus:           a.Bus,
				Clock:         a.Clock,
				AnswerTimeout: a.Config.AnswerTimeout,
				Observer:      term.observe,
			},
			Arena:      bot.ArenaType(duelArena),
			Difficulty: bot.Difficulty(duelDifficulty),
			Campaign:   duelCampaign,
		})
		if err != nil {
			return err
		}

		if err := c.Start(ctx); err != nil {
			return err
		}
		return term.play(ctx, c, false)
	},
}

func init() {
	duelCmd.Flags().StringVar(&duelArena, "arena", string(bot.ArenaCyberFortress), "Arena: cyber_fortress, data_vault or network_maze")
	duelCmd.Flags().StringVar(&duelDifficulty, "difficulty", "", "Bot difficulty override: easy, medium or hard")
	duelCmd.Flags().BoolVar(&duelCampaign, "campaign", false, "Keep fighting through the arena levels")
	duelCmd.Flags().StringVar(&duelModule, "module", "", "Question module, the global pool when empty")
}
