package cmd

import (
	"testing"

	"github.com/frenchbreeze/breeze/internal/content"
)

func TestResolveChoice(t *testing.T) {
	mc := content.Question{Type: content.MultipleChoice, Options: []string{"Bonjour", "Merci", "Salut"}}
	blank := content.Question{Type: content.FillInTheBlank, Sentence: "Je ___ français."}

	tests := []struct {
		name  string
		q     content.Question
		input string
		want  string
	}{
		{"letter", mc, "b", "Merci"},
		{"upper letter", mc, " C ", "Salut"},
		{"out of range", mc, "z", "z"},
		{"full text", mc, "Bonjour", "Bonjour"},
		{"blank single letter", blank, "a", "a"},
		{"blank word", blank, " parle ", "parle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveChoice(tt.q, tt.input); got != tt.want {
				t.Errorf("resolveChoice(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
