package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pyerrors "github.com/matzehuels/pyseek/pkg/errors"
	"github.com/matzehuels/pyseek/pkg/python"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitHint        = 1
	ExitFailure     = 2
	ExitInterrupted = 130
)

const downloadHint = "A managed Python download is available, but Python downloads are set to 'never'"

// scriptNotFoundError is a NotFoundError raised while looking for a script's
// interpreter. It is printed without the "error:" label and exits with 1.
type scriptNotFoundError struct {
	*python.NotFoundError
}

func (e *scriptNotFoundError) Unwrap() error { return e.NotFoundError }

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	var script *scriptNotFoundError
	if errors.As(err, &script) {
		return ExitHint
	}
	var nf *python.NotFoundError
	if errors.As(err, &nf) && nf.DownloadAvailable {
		return ExitHint
	}
	return ExitFailure
}

// formatError renders err with its causes, followed by a hint when one
// applies.
func formatError(err error) string {
	var b strings.Builder
	chain := pyerrors.Chain(err)
	if len(chain) == 0 {
		chain = []string{err.Error()}
	}

	var script *scriptNotFoundError
	if !errors.As(err, &script) {
		b.WriteString(styleLabelError.Render("error") + styleLabelError.Render(":") + " ")
	}
	b.WriteString(chain[0])
	b.WriteByte('\n')
	for _, cause := range chain[1:] {
		fmt.Fprintf(&b, "  %s %s\n", styleLabelError.Render("Caused by:"), indentContinuation(cause))
	}

	var nf *python.NotFoundError
	if errors.As(err, &nf) && nf.DownloadAvailable {
		b.WriteString("\n" + styleLabelHint.Render("hint") + styleLabelHint.Render(":") + " " + downloadHint + "\n")
	}
	return b.String()
}

// indentContinuation aligns the continuation lines of a multi-line cause.
func indentContinuation(s string) string {
	return strings.ReplaceAll(s, "\n", "\n             ")
}

// printError prints err to Err.
func (c *CLI) printError(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	fmt.Fprint(c.Err, formatError(err))
}
