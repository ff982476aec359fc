package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the shellfish command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shellfish",
		Short: "Run external commands with full lifecycle management",
	}
	root.AddCommand(newRunCmd())
	root.SilenceUsage = true
	root.SilenceErrors = true
	return root
}

// exitCodeError carries the child's exit code up to Execute, which turns it
// into this process's own exit code.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// Execute runs the CLI entrypoint. Interrupt and termination signals cancel
// the in-flight run, which tears down the child process tree before exiting.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
