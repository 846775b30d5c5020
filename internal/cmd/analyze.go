package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xHacka/logstat/internal/ingest"
)

func (a *app) analyzeCmd() *cobra.Command {
	var flags analysisFlags
	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Analyze access logs once and print a report",
		Example: `  logstat analyze --path /var/log/nginx/access.log
  logstat analyze -p '/var/log/nginx/**/*.log' --filter-field status --filter-value '5..'
  logstat analyze -p https://example.com/access.log --from 2015-05-17T00:00:00Z -f adoc -o report.adoc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			filters, formatter, err := flags.compile()
			if err != nil {
				return err
			}
			paths := flags.sources(args)
			if len(paths) == 0 {
				return ingest.ErrNoSources
			}

			summary, err := ingest.Analyze(ctx, paths, filters, flags.options(cmd, a.cfg))
			if err != nil && len(summary.Sources) == 0 {
				return err
			}
			// Sources that failed are reported after the partial summary.
			return errors.Join(flags.writeReport(cmd.OutOrStdout(), summary, formatter), err)
		},
	}
	flags.register(cmd)
	return cmd
}
