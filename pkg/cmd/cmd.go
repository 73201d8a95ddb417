package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxgio92/sampleprof/internal/settings"
	"github.com/maxgio92/sampleprof/pkg/cmd/mcp"
	"github.com/maxgio92/sampleprof/pkg/cmd/options"
	"github.com/maxgio92/sampleprof/pkg/cmd/report"
	"github.com/maxgio92/sampleprof/pkg/cmd/run"
)

const logLevelInfo = "info"

func NewCommand(o *options.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   settings.CmdName,
		Short: fmt.Sprintf("%s is a sampling call-stack profiler", settings.CmdName),
		Long: fmt.Sprintf(`
%s is a sampling call-stack profiler.
It periodically captures the stacks of the monitored goroutines and aggregates
them into a call graph with self and total sample counts per frame.
`, settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, err := log.ParseLevel(o.LogLevel)
			if err != nil {
				return errors.Wrap(err, "invalid log level")
			}
			o.Logger = o.Logger.Level(level)

			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", logLevelInfo, "Set the log level (trace, debug, info, warn, error, fatal, panic)")

	cmd.AddCommand(run.NewCommand(o))
	cmd.AddCommand(report.NewCommand(o))
	cmd.AddCommand(mcp.NewCommand(o))

	return cmd
}

// Execute adds all child commands to the root commands and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(
		log.ConsoleWriter{Out: os.Stderr},
	).With().Timestamp().Logger()

	opts := options.NewOptions(
		options.WithContext(ctx),
		options.WithLogger(logger),
	)

	if err := NewCommand(opts).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
