package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reset broken streaks of every stored profile once",
	RunE: func(cmd *cobra.Command, args []string) error {
		workers, _ := cmd.Flags().GetInt("workers")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.newSweeper(workers).Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Scanned %d profiles, reset %d streaks, %d failed\n", res.Scanned, res.Corrected, res.Failed)
		return nil
	},
}

func init() {
	sweepCmd.Flags().Int("workers", 4, "Concurrent profile updates")
}
