package client

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/cyber-arena/internal/services/progress"
)

var (
	xpAmount int
	xpReason string
)

var awardXPCmd = &cobra.Command{
	Use:   "award-xp",
	Short: "Award (or remove) experience",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		out, err := a.Progress.AwardXP(ctx, &progress.AwardXPInput{
			PlayerID: playerID,
			Amount:   xpAmount,
			Reason:   xpReason,
		})
		if err != nil {
			return err
		}

		rec := out.Update.Record
		fmt.Printf("Applied %+d XP to %s\n", out.Applied, playerID)
		fmt.Printf("Total: %d XP, level %d (%d/%d to next level)\n",
			rec.TotalXP, rec.Level, rec.CurrentLevelXP, rec.CurrentLevelXP+rec.XPToNextLevel)
		if out.Update.LeveledUp() {
			fmt.Printf("LEVEL UP! %d -> %d\n", out.Update.PreviousLevel, rec.Level)
		}
		return nil
	},
}

func init() {
	awardXPCmd.Flags().IntVar(&xpAmount, "amount", 0, "Experience to award, negative to remove")
	awardXPCmd.Flags().StringVar(&xpReason, "reason", "manual award", "Reason recorded with the gain")
	_ = awardXPCmd.MarkFlagRequired("amount")
}
