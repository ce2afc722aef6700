package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/frenchbreeze/breeze/internal/session"
	"github.com/frenchbreeze/breeze/internal/streak"
	"github.com/frenchbreeze/breeze/internal/ui/theme"
)

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show the daily learning streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLearner(cmd, true)
		if err != nil {
			return err
		}
		defer l.Close()
		printStreak(l.manager.State())
		return nil
	},
}

var streakIncrementCmd = &cobra.Command{
	Use:   "increment",
	Short: "Count today's visit toward the streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLearner(cmd, true)
		if err != nil {
			return err
		}
		defer l.Close()
		printStreak(l.countVisit(cmd.Context()))
		return nil
	},
}

var streakResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the streak to zero",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLearner(cmd, true)
		if err != nil {
			return err
		}
		defer l.Close()

		if err := l.manager.ResetStreak(cmd.Context()); err != nil {
			return err
		}
		printStreak(l.await(func(st session.State) bool { return st.Profile.DailyStreak == 0 }, 2*time.Second))
		return nil
	},
}

func init() {
	streakCmd.AddCommand(streakIncrementCmd, streakResetCmd)
}

func printStreak(st session.State) {
	p := st.Profile
	fmt.Println(theme.Streak.Render(fmt.Sprintf("🔥 %d-day streak", p.DailyStreak)))
	if !p.LastLoginDate.IsZero() {
		fmt.Println(theme.Hint.Render("Last visit: " + p.LastLoginDate.String()))
	}
	if streak.IsMilestone(p.DailyStreak) {
		fmt.Println(theme.Correct.Render(fmt.Sprintf("Félicitations ! %d days in a row.", p.DailyStreak)))
		return
	}
	if next := streak.NextMilestone(p.DailyStreak); next > 0 {
		fmt.Println(theme.Subtitle.Render(fmt.Sprintf("%d more day(s) to your %d-day milestone", next-p.DailyStreak, next)))
	}
}
