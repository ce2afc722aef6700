package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frenchbreeze/breeze/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export learning progress to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		l, err := openLearner(cmd, true)
		if err != nil {
			return err
		}
		defer l.Close()

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		if err := report.Write(f, l.manager.State().Profile, l.catalog, time.Now().In(l.loc)); err != nil {
			f.Close()
			return fmt.Errorf("write report: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Println("Report written to", out)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringP("out", "o", "breeze-progress.xlsx", "Output file")
}
