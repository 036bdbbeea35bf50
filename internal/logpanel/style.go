package logpanel

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	// Green is a SprintFunc for info lines.
	Green = color.New(color.FgGreen).SprintFunc()
	// Red is a SprintFunc for error and stderr lines.
	Red = color.New(color.FgRed).SprintFunc()
)

// Render returns the entry colored for a terminal: info green, error and
// stderr red, stdout uncolored. Colors are dropped when color.NoColor is set.
func Render(e Entry) string {
	switch e.Kind {
	case KindInfo:
		return Green(e.Plain())
	case KindError, KindStderr:
		return Red(e.Plain())
	default:
		return e.Plain()
	}
}

// Printer returns a subscriber that writes rendered entries to w.
func Printer(w io.Writer) func(Entry) {
	return func(e Entry) {
		fmt.Fprintln(w, Render(e))
	}
}
