package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/frenchbreeze/breeze/internal/ui/theme"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 72

// CommandHint suggests a follow-up command in the footer.
type CommandHint struct {
	Command     string
	Description string
}

// RenderHeader renders the title bar with the learner's name and streak.
func RenderHeader(title, learner string, streak int, width int) string {
	left := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		Render("French Breeze")

	center := theme.Body.Render(title)

	right := theme.Subtitle.Render(learner)
	if streak > 0 {
		right += "  " + theme.Streak.Render(fmt.Sprintf("🔥 %d", streak))
	}

	leftLen := lipgloss.Width(left)
	centerLen := lipgloss.Width(center)
	rightLen := lipgloss.Width(right)

	innerWidth := max(width-4, 0) // border and padding

	leftGap := max((innerWidth-centerLen)/2-leftLen, 1)
	rightGap := max(innerWidth-leftLen-leftGap-centerLen-rightLen, 1)

	content := left + strings.Repeat(" ", leftGap) + center + strings.Repeat(" ", rightGap) + right

	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1).
		Render(content)
}

// RenderFooter renders follow-up command hints.
func RenderFooter(hints []CommandHint) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		part := theme.Emphasis.Render(h.Command) +
			" " +
			theme.Subtitle.Render(h.Description)
		parts = append(parts, part)
	}
	return "  " + strings.Join(parts, "   ")
}

// RenderFrame composes header, content and footer.
func RenderFrame(header, content, footer string) string {
	if footer == "" {
		return header + "\n" + content
	}
	return header + "\n" + content + "\n\n" + footer
}
