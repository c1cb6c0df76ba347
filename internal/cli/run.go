package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chaperon-run/chaperon"
	"github.com/chaperon-run/chaperon/internal/metrics"
)

type runFlags struct {
	timeout        time.Duration
	shell          bool
	encoding       string
	stdout         string
	stderr         string
	splitStreams   bool
	live           bool
	method         string
	checkInterval  time.Duration
	validExitCodes []int
	allExitCodes   bool
	priority       string
	ioPriority     string
	heartbeat      time.Duration
	silent         bool
	noWindow       bool
	metricsListen  string
}

func newRunCmd(ctx *rootContext) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run a command under supervision",
		Long: `Run a command under supervision: output is captured or redirected, a
wall-clock timeout is enforced, and the whole process tree is terminated on
timeout or interrupt.

The process exits with the child's own exit code. Supervisory failures
(timeout, interrupt, spawn failure) print a message and exit 255.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, ctx, flags, args)
		},
	}

	f := cmd.Flags()
	f.DurationVar(&flags.timeout, "timeout", time.Hour, "Wall-clock budget for the command (0 disables)")
	f.BoolVar(&flags.shell, "shell", false, "Run the command through the platform shell")
	f.StringVar(&flags.encoding, "encoding", "", "Text encoding of the command's output (e.g. utf-8, cp437, binary)")
	f.StringVar(&flags.stdout, "stdout", "", "Stdout destination: a file path, 'null' to discard, 'inherit' to pass through")
	f.StringVar(&flags.stderr, "stderr", "", "Stderr destination: a file path, 'null', 'inherit', or 'stdout' to merge")
	f.BoolVar(&flags.splitStreams, "split-streams", false, "Keep stdout and stderr in independent captures")
	f.BoolVar(&flags.live, "live", false, "Echo output while the command runs (default when stdout is a terminal)")
	f.StringVar(&flags.method, "method", "auto", "Collection strategy: auto, monitor or poller")
	f.DurationVar(&flags.checkInterval, "check-interval", 0, "Bound on every wait in the collection loops")
	f.IntSliceVar(&flags.validExitCodes, "valid-exit-codes", nil, "Child exit codes logged as success in addition to 0")
	f.BoolVar(&flags.allExitCodes, "all-exit-codes", false, "Log every child exit code as success")
	f.StringVar(&flags.priority, "priority", "", "Process priority hint (verylow, low, normal, high, rt)")
	f.StringVar(&flags.ioPriority, "io-priority", "", "IO priority hint (low, normal, high)")
	f.DurationVar(&flags.heartbeat, "heartbeat", 0, "Interval for still-running log lines (0 disables)")
	f.BoolVar(&flags.silent, "silent", false, "Suppress log emission")
	f.BoolVar(&flags.noWindow, "no-window", false, "Hide the console window on Windows")
	f.StringVar(&flags.metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address while running")

	return cmd
}

func runCommand(cmd *cobra.Command, ctx *rootContext, flags *runFlags, args []string) error {
	applyDefaults(cmd, ctx, flags)

	opts, err := buildOptions(cmd, ctx, flags)
	if err != nil {
		return err
	}

	if flags.metricsListen != "" {
		go serveMetrics(flags.metricsListen)
	}

	res := chaperon.Run(cmd.Context(), args, opts)

	if res.ExitCode < 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "chaperon: supervisory failure %d: %s\n", res.ExitCode, res.Output.String())
		os.Exit(255)
	}
	if !opts.LiveOutput {
		printCapture(cmd, opts, res)
	}
	os.Exit(res.ExitCode)
	return nil
}

func printCapture(cmd *cobra.Command, opts *chaperon.Options, res chaperon.Result) {
	if opts.SplitStreams {
		if res.Stdout.Ok() {
			fmt.Fprint(cmd.OutOrStdout(), res.Stdout.String())
		}
		if res.Stderr.Ok() {
			fmt.Fprint(cmd.ErrOrStderr(), res.Stderr.String())
		}
		return
	}
	if res.Output.Ok() {
		fmt.Fprint(cmd.OutOrStdout(), res.Output.String())
	}
}

// applyDefaults layers file defaults under flags the user did not set.
func applyDefaults(cmd *cobra.Command, ctx *rootContext, flags *runFlags) {
	d := ctx.defaults
	if d == nil {
		return
	}
	set := cmd.Flags().Changed
	if !set("timeout") && d.Timeout.Duration > 0 {
		flags.timeout = d.Timeout.Duration
	}
	if !set("method") && d.Method != "" {
		flags.method = d.Method
	}
	if !set("check-interval") && d.CheckInterval.Duration > 0 {
		flags.checkInterval = d.CheckInterval.Duration
	}
	if !set("encoding") && d.Encoding != "" {
		flags.encoding = d.Encoding
	}
	if !set("priority") && d.Priority != "" {
		flags.priority = d.Priority
	}
	if !set("io-priority") && d.IOPriority != "" {
		flags.ioPriority = d.IOPriority
	}
	if !set("heartbeat") && d.Heartbeat.Duration > 0 {
		flags.heartbeat = d.Heartbeat.Duration
	}
	if !set("silent") {
		flags.silent = d.Silent
	}
	if !set("metrics-listen") && d.MetricsListen != "" {
		flags.metricsListen = d.MetricsListen
	}
}

func buildOptions(cmd *cobra.Command, ctx *rootContext, flags *runFlags) (*chaperon.Options, error) {
	method, err := parseMethod(flags.method)
	if err != nil {
		return nil, err
	}

	live := flags.live
	if !cmd.Flags().Changed("live") {
		live = term.IsTerminal(int(os.Stdout.Fd()))
	}

	opts := &chaperon.Options{
		ValidExitCodes:    flags.validExitCodes,
		AllExitCodesValid: flags.allExitCodes,
		Timeout:           flags.timeout,
		Shell:             flags.shell,
		Encoding:          flags.encoding,
		Stdin:             os.Stdin,
		WindowsNoWindow:   flags.noWindow,
		LiveOutput:        live,
		Method:            method,
		CheckInterval:     flags.checkInterval,
		SplitStreams:      flags.splitStreams,
		Silent:            flags.silent,
		Priority:          chaperon.Priority(flags.priority),
		IOPriority:        chaperon.IOPriority(flags.ioPriority),
		Heartbeat:         flags.heartbeat,
		Logger:            ctx.logger(),
	}

	opts.Stdout, err = parseDestination(flags.stdout, false)
	if err != nil {
		return nil, fmt.Errorf("--stdout: %w", err)
	}
	opts.Stderr, err = parseDestination(flags.stderr, true)
	if err != nil {
		return nil, fmt.Errorf("--stderr: %w", err)
	}
	return opts, nil
}

func parseMethod(s string) (chaperon.Method, error) {
	switch s {
	case "", "auto":
		return chaperon.MethodAuto, nil
	case "monitor":
		return chaperon.MethodMonitor, nil
	case "poller":
		return chaperon.MethodPoller, nil
	default:
		return 0, fmt.Errorf("unknown method %q (want auto, monitor or poller)", s)
	}
}

func parseDestination(s string, stderr bool) (chaperon.Destination, error) {
	switch s {
	case "", "capture":
		return chaperon.Destination{}, nil
	case "null", "nul", "discard":
		return chaperon.Discard(), nil
	case "inherit", "-":
		return chaperon.Inherit(), nil
	case "stdout":
		if stderr {
			// Merging is the default; an explicit "stdout" just states it.
			return chaperon.Destination{}, nil
		}
		return chaperon.Destination{}, fmt.Errorf("%q is only valid for stderr", s)
	default:
		return chaperon.ToFile(s), nil
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	_ = http.ListenAndServe(addr, mux)
}
