package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "breeze",
	Short: "Learn French a little every day",
	Long:  "French Breeze — lessons, flashcards and quizzes with a daily learning streak.",
	// Without a subcommand, show the dashboard like the web app's home page.
	RunE: runDashboard,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite path or Postgres DSN (overrides BREEZE_DB env var)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Env file to load before reading BREEZE_* variables")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(signUpCmd, signInCmd, signOutCmd, whoamiCmd)
	rootCmd.AddCommand(dashboardCmd, levelCmd, nameCmd)
	rootCmd.AddCommand(lessonsCmd, lessonCmd, completeCmd, flashcardsCmd)
	rootCmd.AddCommand(quizzesCmd, quizCmd, certificateCmd)
	rootCmd.AddCommand(streakCmd, reportCmd, sweepCmd)
	rootCmd.AddCommand(versionCmd)
}
