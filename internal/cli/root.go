package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mindful",
	Short: "Journaling backend with a contextual memory engine",
	Long:  "Mindful turns journal entries into a deduplicated memory graph of people, events, and feelings, and ranks tasks by contextual relevance.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
