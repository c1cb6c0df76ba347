package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chaperon-run/chaperon"
)

func newDeferCmd(ctx *rootContext) *cobra.Command {
	var after int

	cmd := &cobra.Command{
		Use:   "defer --after seconds -- command [args...]",
		Short: "Schedule a command to run detached after a delay",
		Long: `Schedule a command to run in a detached shell after a delay, with no
output capture and no tie to this process. Best-effort: once scheduled, the
command is on its own. Useful for self-update or cleanup of a binary that
must finish before the command runs.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := strings.Join(args, " ")
			if err := chaperon.DeferredCommand(command, after); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %q in %d seconds\n", command, after)
			return nil
		},
	}

	cmd.Flags().IntVar(&after, "after", 300, "Delay in seconds before the command runs")
	return cmd
}
