// Package client provides the player facing commands of cyber-arena: local
// and online duels played in the terminal, and progression tools
package client

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/cyber-arena/internal/app"
	"github.com/KirkDiggler/cyber-arena/internal/config"
)

var (
	playerID   string
	playerName string
	timeout    time.Duration
)

// ClientCmd is the root command for all client commands
var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Play duels and manage experience",
	Long:  `Client commands play against the local bot or other players and read or award experience.`,
}

func init() {
	ClientCmd.PersistentFlags().StringVar(&playerID, "player", "player-1", "Player ID")
	ClientCmd.PersistentFlags().StringVar(&playerName, "name", "Neo", "Player display name")
	ClientCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Timeout of one-shot requests")

	ClientCmd.AddCommand(duelCmd)
	ClientCmd.AddCommand(onlineCmd)
	ClientCmd.AddCommand(awardXPCmd)
	ClientCmd.AddCommand(progressCmd)
}

// setup loads the configuration and connects the progression stack
func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(cfg.LogHandler(os.Stderr)))
	return app.New(ctx, cfg)
}
