// Command atlcommute measures the transit commute of every Atlanta
// neighborhood group by driving the maps directions UI.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// logLevel is shared by every subcommand so config files can raise verbosity
// after flags were parsed.
var logLevel = &slog.LevelVar{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "atlcommute",
		Short: "Measure commute metrics for Atlanta neighborhood groups",
		Long: `atlcommute types every neighborhood of a statistical-area table into the
maps directions view, reads the arrival time (or distance) of the default
route and prints the mean per group.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := newLogger(cmd.ErrOrStderr(), verbose)
			slog.SetDefault(logger)
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newRunCmd(), newParseCmd())
	return cmd
}

// newLogger logs as text on a terminal and as JSON otherwise. Logs go to w,
// keeping stdout for the progress lines.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if verbose {
		logLevel.Set(slog.LevelDebug)
	} else {
		logLevel.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}
