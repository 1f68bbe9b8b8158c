package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/pollwatch/errors"
	"github.com/grovetools/pollwatch/tui/theme"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a hint matching the error code and returns err unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	t := theme.DefaultTheme

	fmt.Fprintf(h.Out, "%s %v\n", t.Error.Render("Error:"), err)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintln(h.Out, t.Muted.Render("Create pollwatch.yml or run 'pollwatch config show' to see the defaults."))
	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintln(h.Out, t.Muted.Render("Run 'pollwatch config schema' to see the accepted keys."))
	case errors.ErrCodeDaemonNotRunning:
		fmt.Fprintln(h.Out, t.Muted.Render("Start it with 'pollwatch daemon start'."))
	case errors.ErrCodeDaemonRunning:
		fmt.Fprintln(h.Out, t.Muted.Render("Stop it with 'pollwatch daemon stop' or check 'pollwatch daemon status'."))
	}

	if h.Verbose {
		if pwErr, ok := err.(*errors.PollwatchError); ok {
			fmt.Fprintf(h.Out, "\nError details:\n%s\n", pwErr.ToJSON())
		}
	}
	return err
}
