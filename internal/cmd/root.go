package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xHacka/logstat/internal/config"
	"github.com/xHacka/logstat/internal/logging"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	cfgFile  string
	logLevel string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "logstat",
		Short: "Access log statistics",
		Long: `logstat reads nginx/Apache combined access logs from local files, globs
and http(s) URLs, and reports request statistics as Markdown or AsciiDoc.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "config.yaml", "config file; missing file means defaults")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(a.analyzeCmd(), a.watchCmd())
	return root
}

func (a *app) init(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	logging.Init(cfg.LogJSON, logging.ParseLevel(level))
	return nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
