package errz

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Formatter renders structured errors with colors and source context.
type Formatter struct {
	// UseColor enables ANSI color codes in output.
	UseColor bool
}

// NewFormatter creates a new error formatter.
func NewFormatter(useColor bool) *Formatter {
	return &Formatter{UseColor: useColor}
}

var (
	colorHeader   = color.New(color.FgRed, color.Bold)
	colorLocation = color.New(color.FgCyan)
	colorPipe     = color.New(color.FgHiBlack)
	colorCaret    = color.New(color.FgHiRed)
)

func (f *Formatter) paint(c *color.Color, s string) string {
	if !f.UseColor {
		return s
	}
	return c.Sprint(s)
}

// Format renders the error as a compiler-style diagnostic:
//
//	runtime error: division by zero
//	  --> script.cdr:4:9
//	   |
//	 4 | Let y be x / 0.
//	   |         ^
func (f *Formatter) Format(e *StructuredError) string {
	var b strings.Builder

	b.WriteString(f.paint(colorHeader, e.Kind.String()))
	b.WriteString(": ")
	b.WriteString(e.Message)
	b.WriteString("\n")

	loc := e.Location
	if !loc.IsZero() {
		b.WriteString("  ")
		b.WriteString(f.paint(colorLocation, "--> "+loc.String()))
		b.WriteString("\n")
	}

	if loc.Source != "" {
		num := fmt.Sprintf("%2d", loc.Line)
		pad := strings.Repeat(" ", len(num))
		b.WriteString(f.paint(colorPipe, pad+" |\n"))
		b.WriteString(f.paint(colorPipe, num+" | "))
		b.WriteString(loc.Source)
		b.WriteString("\n")
		if loc.Column > 0 {
			b.WriteString(f.paint(colorPipe, pad+" | "))
			b.WriteString(strings.Repeat(" ", loc.Column-1))
			b.WriteString(f.paint(colorCaret, "^"))
			b.WriteString("\n")
		}
	}

	if len(e.Stack) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatStackTrace(e.Stack))
	}

	return b.String()
}

// FormatError renders any error, using the rich form for structured
// errors and the plain message otherwise.
func (f *Formatter) FormatError(err error) string {
	if se, ok := err.(*StructuredError); ok {
		return f.Format(se)
	}
	return err.Error()
}
