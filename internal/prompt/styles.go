package prompt

import "github.com/charmbracelet/lipgloss"

var (
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray

	InfoMarker  = lipgloss.NewStyle().Bold(true).Foreground(WarningColor)
	ErrorMarker = lipgloss.NewStyle().Bold(true).Foreground(ErrorColor)
	ErrorText   = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted       = lipgloss.NewStyle().Foreground(MutedColor)
	Title       = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
	Success     = lipgloss.NewStyle().Foreground(SecondaryColor)
)

// FormatInfo renders an informational status line: "! msg".
func FormatInfo(msg string) string {
	return InfoMarker.Render("!") + " " + msg
}

// FormatError renders an error status line: "X msg".
func FormatError(msg string) string {
	return ErrorMarker.Render("X") + " " + ErrorText.Render(msg)
}
