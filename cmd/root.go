// Package cmd contains the zettel CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zettel",
	Short: "Zettel - spaced-repetition knowledge base with semantic link suggestions",
	Long: `Zettel stores knowledge cards in PostgreSQL, schedules spaced-repetition
reviews for them, and suggests typed links between cards using embedding
similarity.

Run "zettel serve" to start the HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
