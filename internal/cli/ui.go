package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleLabelError   = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	styleLabelWarning = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	styleLabelHint    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleIconSpinner  = lipgloss.NewStyle().Foreground(colorCyan)
	styleCommand      = lipgloss.NewStyle().Foreground(colorCyan)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconAdded   = "+"
)

// =============================================================================
// Status Output
// =============================================================================

// printResult prints a command result line to Out.
func (c *CLI) printResult(format string, args ...any) {
	fmt.Fprintf(c.Out, format+"\n", args...)
}

// printStatus prints a status line to Err.
func (c *CLI) printStatus(format string, args ...any) {
	fmt.Fprintf(c.Err, format+"\n", args...)
}

// printWarning prints "warning: <msg>" to Err.
func (c *CLI) printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(c.Err, styleLabelWarning.Render("warning")+styleLabelWarning.Render(":")+" "+msg)
}

// printDetail prints an indented, dimmed line to Err.
func (c *CLI) printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(c.Err, "  "+StyleDim.Render(msg))
}

// printSuccess prints a success message to Err.
func (c *CLI) printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(c.Err, StyleSuccess.Render(iconSuccess)+" "+msg)
}

// printAdded prints an installed package line, e.g. " + pip==24.0".
func (c *CLI) printAdded(what string) {
	fmt.Fprintln(c.Err, " "+StyleSuccess.Render(iconAdded)+" "+StyleValue.Render(what))
}

// =============================================================================
// Commands & Next Steps
// =============================================================================

// printNextStep prints a suggested next command.
func (c *CLI) printNextStep(description, cmd string) {
	fmt.Fprintln(c.Err, description+": "+styleCommand.Render(cmd))
}

// =============================================================================
// Key-Value Output
// =============================================================================

// printKeyValue prints a value in a column of the given width to Out.
func (c *CLI) printKeyValue(key, value string, width int) {
	keyStyle := lipgloss.NewStyle().Width(width)
	fmt.Fprintln(c.Out, keyStyle.Render(key)+" "+value)
}
