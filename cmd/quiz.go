package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/frenchbreeze/breeze/internal/content"
	"github.com/frenchbreeze/breeze/internal/ui/theme"
	"github.com/frenchbreeze/breeze/internal/ui/views"
)

var quizzesCmd = &cobra.Command{
	Use:   "quizzes",
	Short: "List the available quizzes",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := content.Default()

		fmt.Printf("%-22s  %-34s  %-14s  %s\n", "ID", "Title", "Level", "Questions")
		fmt.Println(strings.Repeat("─", 84))
		for _, q := range catalog.Quizzes() {
			fmt.Printf("%-22s  %-34s  %-14s  %d\n", q.ID, q.Title, q.Level, len(q.Questions))
		}
		return nil
	},
}

var quizCmd = &cobra.Command{
	Use:   "quiz <id>",
	Short: "Take a quiz interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLearner(cmd, false)
		if err != nil {
			return err
		}
		defer l.Close()

		quiz, err := l.catalog.Quiz(args[0])
		if err != nil {
			return err
		}

		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println(theme.Title.Render(quiz.Title))
		fmt.Println()

		answers := make([]string, 0, len(quiz.Questions))
		for i, q := range quiz.Questions {
			fmt.Print(views.Question(i+1, len(quiz.Questions), q))
			fmt.Print("\nYour answer: ")
			if !scanner.Scan() {
				fmt.Println("\n(input closed)")
				break
			}
			answer := resolveChoice(q, scanner.Text())
			answers = append(answers, answer)

			if q.Check(answer) {
				fmt.Println(theme.Correct.Render("✓ Correct!"))
			} else {
				fmt.Println(theme.Incorrect.Render("✗ Not quite.") + " Answer: " + q.CorrectAnswer)
			}
			fmt.Println()
		}

		result, err := quiz.Grade(answers)
		if err != nil {
			return err
		}
		if l.client.Current() != nil {
			l.countVisit(cmd.Context())
		}
		fmt.Println(views.QuizResult(quiz, result))
		return nil
	},
}

var certificateCmd = &cobra.Command{
	Use:   "certificate <quiz-id>",
	Short: "Print a completion certificate for a passed quiz",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, _ := cmd.Flags().GetInt("score")

		l, err := openLearner(cmd, false)
		if err != nil {
			return err
		}
		defer l.Close()

		quiz, err := l.catalog.Quiz(args[0])
		if err != nil {
			return err
		}
		cert, err := content.NewCertificate(quiz, l.manager.State().Profile.Name, score, time.Now())
		if err != nil {
			return fmt.Errorf("this certificate cannot be issued: %w", err)
		}
		fmt.Println(views.Certificate(cert))
		return nil
	},
}

func init() {
	certificateCmd.Flags().Int("score", 0, "Quiz score in percent")
	_ = certificateCmd.MarkFlagRequired("score")
}

// resolveChoice maps a letter ("b") to the matching multiple-choice option.
func resolveChoice(q content.Question, input string) string {
	input = strings.TrimSpace(input)
	if q.Type != content.MultipleChoice || len(input) != 1 {
		return input
	}
	i := int(strings.ToLower(input)[0] - 'a')
	if i >= 0 && i < len(q.Options) {
		return q.Options[i]
	}
	return input
}
