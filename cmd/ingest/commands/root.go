package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
	"github.com/spf13/cobra"
)

// ExitHalted is returned when a run stopped on the upstream quota. Units not
// reached are picked up by the next invocation.
const ExitHalted = 3

var rootCmd = &cobra.Command{
	Use:           "ingest",
	Short:         "ingest loads MOLIT apartment trades into the trade store.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return exitCode(err)
}

// exitCode maps a command error onto the process exit code. A signal
// cancels the run context and stops the run like a quota halt.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case models.IsHalt(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ExitHalted
	default:
		return 1
	}
}
