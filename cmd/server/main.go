// Package main is the entry point of the cyber-arena server and its test
// client commands
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/cyber-arena/cmd/server/client"
)

var rootCmd = &cobra.Command{
	Use:   "cyber-arena",
	Short: "Cyber arena duel server",
	Long: `cyber-arena runs the realtime duel server and its progression stack.
The client commands play local duels, join online rooms and manage experience.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(client.ClientCmd)
}
