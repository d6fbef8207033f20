// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"todo/internal/service"
)

const (
	// Separator is printed between successive listings of a watch.
	Separator = "------------"

	markDone = "[x]"
	markOpen = "[ ]"
)

// FormatTask formats one line of the list command.
// Format: "{N:>4}  [x] {TEXT}\n" (4-wide right-aligned number, two spaces, mark, text)
func FormatTask(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  %s %s\n", num, Mark(task.Completed), normalizeText(task.Text))
}

// FormatTaskWithID is like FormatTask but adds the store id in a column
// after the number, padded to idWidth.
func FormatTaskWithID(w io.Writer, num int, idWidth int, task service.Task) {
	fmt.Fprintf(w, "%4d  %-*s  %s %s\n", num, idWidth, task.ID, Mark(task.Completed), normalizeText(task.Text))
}

// IDWidth returns the widest id among tasks, for FormatTaskWithID.
func IDWidth(tasks []service.Task) int {
	width := 0
	for _, t := range tasks {
		if n := len(t.ID); n > width {
			width = n
		}
	}
	return width
}

// Mark returns the checkbox for a completion flag.
func Mark(completed bool) string {
	if completed {
		return markDone
	}
	return markOpen
}

// normalizeText prepares task text for a single display line.
// - Newlines are replaced with spaces
// - Empty or whitespace-only text becomes "(untitled)"
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
