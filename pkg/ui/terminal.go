package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Banner is printed above interactive command output
const Banner = `
 ┌─────────────────────────────────────┐
 │  knbackup · 키즈노트 알림장 백업     │
 └─────────────────────────────────────┘
`

var (
	cyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	yellowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	redStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	greenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	magentaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Output is where the Print helpers write
var Output io.Writer = os.Stdout

var colorEnabled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

// SetColor turns styling on or off. It is on by default when stdout is a
// terminal.
func SetColor(enabled bool) {
	colorEnabled = enabled
}

func styled(s lipgloss.Style) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return s.Render(text)
	}
}

// Color functions for terminal output
var (
	Cyan    = styled(cyanStyle)
	Yellow  = styled(yellowStyle)
	Red     = styled(redStyle)
	Green   = styled(greenStyle)
	Magenta = styled(magentaStyle)
	Dim     = styled(dimStyle)
)

// PrintBanner prints the banner
func PrintBanner() {
	fmt.Fprint(Output, Cyan(Banner))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}
