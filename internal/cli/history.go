package cli

import (
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/ir-emitter/internal/history"
)

type historyOptions struct {
	Limit  int
	Action string
}

func newHistoryCommand(opts *RootOptions, deps Deps) *cobra.Command {
	hopts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent lifecycle events",
		Long:  "List recorded configure, run, delete and boot operations, most recent first.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			reader, closer, err := deps.OpenHistory(cmd.Context(), cfg)
			if err != nil {
				return WrapExitError(ExitFailure, "opening history", err)
			}
			defer closer.Close() //nolint:errcheck // read-only

			events, err := reader.List(cmd.Context(), history.Filter{
				Action: hopts.Action,
				Device: opts.Device,
				Limit:  hopts.Limit,
			})
			if err != nil {
				return WrapExitError(ExitFailure, "reading history", err)
			}

			return printHistory(&OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}, events)
		},
	}

	cmd.Flags().IntVarP(&hopts.Limit, "limit", "n", 20, "maximum number of events")
	cmd.Flags().StringVar(&hopts.Action, "action", "", "only show events of this action (configure, run, delete, boot-enable, boot-disable)")

	return cmd
}

func printHistory(f *OutputFormatter, events []history.Event) error {
	if f.JSON() {
		return f.Encode(events)
	}
	if len(events) == 0 {
		f.Printf("no events recorded\n")
		return nil
	}

	w := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	f.Writer = w
	f.Printf("TIME\tACTION\tDEVICE\tEXIT\tERROR\n")
	for _, ev := range events {
		device := ev.Device
		if device == "" {
			device = "-"
		}
		f.Printf("%s\t%s\t%s\t%d\t%s\n",
			ev.CreatedAt.Local().Format(time.DateTime),
			ev.Action,
			device,
			ev.ExitCode,
			ev.Error,
		)
	}
	return w.Flush()
}
