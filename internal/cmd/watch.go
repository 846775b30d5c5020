package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xHacka/logstat/internal/ingest"
	"github.com/xHacka/logstat/internal/models"
)

func (a *app) watchCmd() *cobra.Command {
	var (
		flags    analysisFlags
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-analyze local logs whenever they change",
		Long: `Watch analyzes the given sources once, then again each time a local
file matching them is written, created or removed. Remote sources are
fetched again on every run. Stop with Ctrl-C.`,
		Example: `  logstat watch -p '/var/log/nginx/*.log' -o /tmp/report.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			filters, formatter, err := flags.compile()
			if err != nil {
				return err
			}
			paths := flags.sources(args)
			opts := ingest.WatchOptions{Options: flags.options(cmd, a.cfg), Debounce: debounce}
			out := cmd.OutOrStdout()

			runs := 0
			return ingest.Watch(ctx, paths, filters, opts, func(s models.Summary, err error) {
				if err != nil {
					slog.Warn("analysis incomplete", "error", err)
					if len(s.Sources) == 0 {
						return
					}
				}
				runs++
				if flags.output == "" && runs > 1 {
					fmt.Fprintf(out, "\n---- %s ----\n\n", time.Now().Format(time.RFC3339))
				}
				if err := flags.writeReport(out, s, formatter); err != nil {
					slog.Error("write report", "error", err)
				}
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before re-analyzing after a change")
	return cmd
}
