package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PrintRight writes text right aligned on the current line of the terminal
// behind f, assuming 80 columns when f is not a terminal.
func PrintRight(f *os.File, text string) {
	// Get terminal width.
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		width = 80
	}
	printRight(f, width, text)
}

func printRight(w io.Writer, width int, text string) {
	// Set padding.
	padding := width - len([]rune(text))
	if padding < 0 {
		padding = 0
	}

	fmt.Fprintf(w, "\r%s%s", spaces(padding), text)
}

func spaces(n int) string {
	return fmt.Sprintf("%*s", n, "")
}

func ProgressBar(percent int, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := (percent * width) / 100
	return fmt.Sprintf("%s%s",
		strings.Repeat("█", filled),
		strings.Repeat(" ", width-filled),
	)
}
