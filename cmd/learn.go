package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frenchbreeze/breeze/internal/profile"
	"github.com/frenchbreeze/breeze/internal/ui/layout"
	"github.com/frenchbreeze/breeze/internal/ui/theme"
	"github.com/frenchbreeze/breeze/internal/ui/views"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show progress and the daily streak",
	RunE:  runDashboard,
}

// runDashboard counts today's visit and renders the dashboard.
func runDashboard(cmd *cobra.Command, args []string) error {
	l, err := openLearner(cmd, true)
	if err != nil {
		return err
	}
	defer l.Close()

	p := l.manager.State().Profile
	if !p.Onboarded() {
		fmt.Println(views.Onboarding(p))
		return nil
	}
	st := l.countVisit(cmd.Context())
	fmt.Println(views.Dashboard(l.catalog.Dashboard(st.Profile), layout.DefaultWidth))
	return nil
}

var levelCmd = &cobra.Command{
	Use:   "level <Beginner|Intermediate|Advanced|none>",
	Short: "Set your French level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := profile.ParseLevel(args[0])
		if err != nil {
			return err
		}
		l, err := openLearner(cmd, true)
		if err != nil {
			return err
		}
		defer l.Close()

		if err := l.manager.SetLevel(cmd.Context(), level); err != nil {
			return err
		}
		if level == profile.LevelUnset {
			fmt.Println("Level cleared.")
			return nil
		}
		fmt.Println(theme.Correct.Render("Level set to " + level.String() + "."))
		return nil
	},
}

var nameCmd = &cobra.Command{
	Use:   "name <display name>",
	Short: "Set your display name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(strings.Join(args, " "))
		profileOnly, _ := cmd.Flags().GetBool("profile-only")

		l, err := openLearner(cmd, true)
		if err != nil {
			return err
		}
		defer l.Close()

		if err := l.manager.SetDisplayName(cmd.Context(), name, !profileOnly); err != nil {
			return err
		}
		fmt.Println(theme.Correct.Render("Enchanté, " + name + " !"))
		return nil
	},
}

var lessonsCmd = &cobra.Command{
	Use:   "lessons",
	Short: "List lessons, optionally filtered by topic or level",
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		levelVal, _ := cmd.Flags().GetString("level")

		l, err := openLearner(cmd, false)
		if err != nil {
			return err
		}
		defer l.Close()

		lessons := l.catalog.Lessons()
		switch {
		case topic != "" && levelVal != "":
			return fmt.Errorf("use --topic or --level, not both")
		case topic != "":
			lessons = l.catalog.LessonsByTopic(topic)
			if len(lessons) == 0 {
				return fmt.Errorf("no lessons found for topic %q", topic)
			}
		case levelVal != "":
			level, err := profile.ParseLevel(levelVal)
			if err != nil {
				return err
			}
			lessons = l.catalog.LessonsByLevel(level)
		}

		fmt.Println(views.Lessons(l.catalog.Topics(), lessons, l.manager.State().Profile.Progress))
		return nil
	},
}

var lessonCmd = &cobra.Command{
	Use:   "lesson <id>",
	Short: "Show a lesson with its vocabulary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLearner(cmd, false)
		if err != nil {
			return err
		}
		defer l.Close()

		lesson, err := l.catalog.Lesson(args[0])
		if err != nil {
			return err
		}
		fmt.Println(views.Lesson(lesson, l.manager.State().Profile.Progress[lesson.ID]))
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <lesson-id>",
	Short: "Mark a lesson complete (or incomplete with --undo)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		undo, _ := cmd.Flags().GetBool("undo")

		l, err := openLearner(cmd, true)
		if err != nil {
			return err
		}
		defer l.Close()

		lesson, err := l.catalog.Lesson(args[0])
		if err != nil {
			return err
		}
		if err := l.manager.MarkLessonComplete(cmd.Context(), lesson.ID, !undo); err != nil {
			return err
		}
		if undo {
			fmt.Printf("%q marked as not completed.\n", lesson.Title)
			return nil
		}

		st := l.countVisit(cmd.Context())
		fmt.Println(theme.Correct.Render(fmt.Sprintf("✓ %s completed. Très bien !", lesson.Title)))
		fmt.Println(theme.Streak.Render(fmt.Sprintf("🔥 %d-day streak", st.Profile.DailyStreak)))
		return nil
	},
}

var flashcardsCmd = &cobra.Command{
	Use:   "flashcards [topic]",
	Short: "Review flashcards for a topic, or list the sets",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLearner(cmd, false)
		if err != nil {
			return err
		}
		defer l.Close()

		if len(args) == 0 {
			for _, set := range l.catalog.FlashcardSets() {
				fmt.Printf("  %-16s %d cards\n", set.Topic, len(set.Cards))
			}
			return nil
		}
		set, err := l.catalog.Flashcards(args[0])
		if err != nil {
			return err
		}
		fmt.Println(views.Flashcards(set))
		return nil
	},
}

func init() {
	nameCmd.Flags().Bool("profile-only", false, "Only update the learner profile, not the account display name")
	lessonsCmd.Flags().String("topic", "", "Filter by topic (e.g. Greetings)")
	lessonsCmd.Flags().String("level", "", "Filter by level (Beginner, Intermediate, Advanced)")
	completeCmd.Flags().Bool("undo", false, "Mark the lesson as not completed")
}

