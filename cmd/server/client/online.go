package client

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/cyber-arena/internal/clients/realtime"
	"github.com/KirkDiggler/cyber-arena/internal/orchestrators/battle"
)

var (
	arenaURL  string
	roomCode  string
	onlineMod string
)

var onlineCmd = &cobra.Command{
	Use:   "online",
	Short: "Duel another player on the arena server",
	Long:  `Create a room, or join one with --room, and duel another player in real time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		channel, err := realtime.Dial(ctx, &realtime.Config{URL: arenaURL})
		if err != nil {
			return err
		}
		defer func() { _ = channel.Close() }()

		term := newTerminal(os.Stdin, os.Stdout)
		c, err := battle.NewOnline(&battle.OnlineConfig{
			Config: battle.Config{
				PlayerID:      playerID,
				PlayerName:    playerName,
				Questions:     a.Questions,
				Module:        onlineMod,
				Progress:      a.Progress,
				Bus:           a.Bus,
				Clock:         a.Clock,
				AnswerTimeout: a.Config.AnswerTimeout,
				Observer:      term.observe,
			},
			Channel:        channel,
			ConfirmTimeout: a.Config.ConfirmTimeout,
		})
		if err != nil {
			return err
		}

		go func() { _ = c.Run(ctx) }()

		creator := roomCode == ""
		if creator {
			err = c.CreateRoom(ctx)
		} else {
			err = c.JoinRoom(ctx, roomCode)
		}
		if err != nil {
			return err
		}
		defer func() { _ = c.Leave(context.WithoutCancel(ctx)) }()
		return term.play(ctx, c, creator)
	},
}

func init() {
	onlineCmd.Flags().StringVar(&arenaURL, "server", "ws://localhost:8080/ws", "Arena websocket URL")
	onlineCmd.Flags().StringVar(&roomCode, "room", "", "Room code to join, a new room is created when empty")
	onlineCmd.Flags().StringVar(&onlineMod, "module", "", "Question module, the global pool when empty")
}
