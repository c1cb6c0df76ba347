// Package cli wires the chaperon command-line interface.
package cli

import (
	stdcontext "context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chaperon-run/chaperon/internal/config"
	"github.com/chaperon-run/chaperon/internal/logging"
)

type rootContext struct {
	configFile *string
	logFormat  *string
	logLevel   *string

	defaults *config.Defaults
}

// logger builds the CLI logger from the persistent flags.
func (c *rootContext) logger() *slog.Logger {
	format, level := *c.logFormat, *c.logLevel
	if c.defaults != nil {
		if format == "" {
			format = c.defaults.Log.Format
		}
		if level == "" {
			level = c.defaults.Log.Level
		}
	}
	return logging.New(format, level)
}

// loadDefaults reads the optional defaults file once per invocation.
func (c *rootContext) loadDefaults() error {
	if *c.configFile == "" {
		return nil
	}
	doc, err := config.Load(*c.configFile)
	if err != nil {
		return err
	}
	c.defaults = doc
	return nil
}

// NewRootCmd constructs the CLI command tree.
func NewRootCmd() *cobra.Command {
	var (
		configFile string
		logFormat  string
		logLevel   string
	)

	root := &cobra.Command{
		Use:   "chaperon",
		Short: "Run commands under supervision with timeouts and tree termination",
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to a defaults file")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text or json)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	ctx := &rootContext{configFile: &configFile, logFormat: &logFormat, logLevel: &logLevel}
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return ctx.loadDefaults()
	}

	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newDeferCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root
}

// Execute runs the CLI entrypoint. An interrupt cancels the context, which
// the supervisor maps onto tree termination and the interrupt sentinel.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
