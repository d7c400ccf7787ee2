package errors

import (
	"fmt"
	"os"
)

// LogHandler is an ErrorHandler that logs errors to stderr.
type LogHandler struct {
	// Verbose enables detailed output including URLs and timestamps.
	Verbose bool
}

// HandleError logs an Error to stderr.
func (h *LogHandler) HandleError(err *Error) {
	if err == nil {
		return
	}
	if h.Verbose {
		fmt.Fprintf(os.Stderr, "[netimage error] %s [%s]", err.Op, err.Kind)
		if err.URL != "" {
			fmt.Fprintf(os.Stderr, " url=%s", err.URL)
		}
		fmt.Fprintf(os.Stderr, ": %v\n", err.Err)
		if !err.Timestamp.IsZero() {
			fmt.Fprintf(os.Stderr, "\tat %s\n", err.Timestamp.Format("15:04:05.000"))
		}
	} else {
		fmt.Fprintf(os.Stderr, "[netimage error] %s: %v\n", err.Op, err.Err)
	}
}
