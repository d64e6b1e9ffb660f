package interactive

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles colours the prompts. Output that is not a terminal gets plain text.
type Styles struct {
	Title   lipgloss.Style
	Suggest lipgloss.Style
	Prompt  lipgloss.Style
	Notice  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
}

// NewStyles builds styles for w, detecting its colour support.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("62")),
		Suggest: r.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		Prompt:  r.NewStyle().Foreground(lipgloss.Color("214")),
		Notice:  r.NewStyle().Foreground(lipgloss.Color("245")),
		Success: r.NewStyle().Foreground(lipgloss.Color("42")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("196")),
		Dim:     r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// PlainStyles renders every string unchanged.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Title: s, Suggest: s, Prompt: s, Notice: s, Success: s, Error: s, Dim: s}
}
