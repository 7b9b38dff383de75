package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/cyber-arena/internal/services/progress"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show a player's experience and progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		// opening the progress view is a focus event for the bus
		if err := a.Bus.Reconcile(ctx, playerID); err != nil {
			slog.Warn("failed to reconcile experience", "player_id", playerID, "error", err)
		}

		out, err := a.Progress.GetProgress(ctx, &progress.GetProgressInput{PlayerID: playerID})
		if err != nil {
			return err
		}

		rec := out.Experience
		fmt.Printf("%s: level %d %s\n", playerID, rec.Level, out.Title)
		fmt.Printf("  XP: %d total, %d%% to next level, streak %d\n", rec.TotalXP, out.Progress, rec.Streak)
		if rec.LastGain != nil {
			fmt.Printf("  Last gain: %+d (%s) at %s\n", rec.LastGain.Amount, rec.LastGain.Reason, rec.LastGain.At.Format("2006-01-02 15:04"))
		}
		if out.Snapshot != nil {
			fmt.Printf("  Quizzes: %d, lessons: %d\n", len(out.Snapshot.CompletedQuizzes), len(out.Snapshot.CompletedLessons))
		}
		if out.Lab != nil {
			fmt.Printf("  CTF: %d points, rank %s, %d flags\n", out.Lab.Points, out.Lab.Rank, len(out.Lab.Completed))
		}
		return nil
	},
}
