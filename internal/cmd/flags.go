package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xHacka/logstat/internal/config"
	"github.com/xHacka/logstat/internal/filter"
	"github.com/xHacka/logstat/internal/ingest"
	"github.com/xHacka/logstat/internal/models"
	"github.com/xHacka/logstat/internal/report"
	"github.com/xHacka/logstat/internal/source"
)

// analysisFlags are shared by analyze and watch.
type analysisFlags struct {
	paths    []string
	from     string
	to       string
	field    string
	value    string
	filters  []string
	format   string
	output   string
	workers  int
	failFast bool
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringArrayVarP(&f.paths, "path", "p", nil, "log file, glob (** allowed) or http(s) URL; repeatable")
	fs.StringVar(&f.from, "from", "", "inclusive lower time bound, RFC3339")
	fs.StringVar(&f.to, "to", "", "inclusive upper time bound, RFC3339")
	fs.StringVar(&f.field, "filter-field", "", "field to filter on: "+strings.Join(filter.Fields(), ", "))
	fs.StringVar(&f.value, "filter-value", "", "regular expression the filter field must match in full")
	fs.StringArrayVar(&f.filters, "filter", nil, "additional field=regex filter; repeatable")
	fs.StringVarP(&f.format, "format", "f", "markdown", "report format: markdown, adoc")
	fs.StringVarP(&f.output, "output", "o", "", "write the report to this file instead of stdout")
	fs.IntVarP(&f.workers, "workers", "w", 0, "sources read in parallel (default from config)")
	fs.BoolVar(&f.failFast, "fail-fast", false, "abort on the first source failure")
}

func (f *analysisFlags) sources(args []string) []string {
	return append(append([]string(nil), f.paths...), args...)
}

func (f *analysisFlags) filterConfig() (filter.Config, error) {
	var c filter.Config
	var err error
	if c.From, err = parseBound("from", f.from); err != nil {
		return c, err
	}
	if c.To, err = parseBound("to", f.to); err != nil {
		return c, err
	}
	c.Field, c.Value = f.field, f.value
	for _, kv := range f.filters {
		name, expr, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return c, fmt.Errorf("%w: --filter expects field=regex, got %q", filter.ErrInvalidFilter, kv)
		}
		if c.Fields == nil {
			c.Fields = make(map[string]string)
		}
		c.Fields[name] = expr
	}
	return c, nil
}

func parseBound(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: --%s: %v", filter.ErrInvalidFilter, name, err)
	}
	return &t, nil
}

func (f *analysisFlags) compile() (models.Filters, report.Formatter, error) {
	c, err := f.filterConfig()
	if err != nil {
		return models.Filters{}, nil, err
	}
	filters, err := filter.Compile(c)
	if err != nil {
		return models.Filters{}, nil, err
	}
	formatter, err := report.FormatterFor(f.format)
	if err != nil {
		return models.Filters{}, nil, err
	}
	return filters, formatter, nil
}

func (f *analysisFlags) options(cmd *cobra.Command, cfg *config.Config) ingest.Options {
	opts := ingest.Options{
		Workers:  cfg.Analysis.Workers,
		FailFast: cfg.Analysis.FailFast || f.failFast,
		Opener: source.NewOpener(
			source.WithTimeout(cfg.Analysis.HTTPTimeout),
			source.WithMaxLineBytes(cfg.Analysis.MaxLineBytes),
		),
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers = f.workers
	}
	return opts
}

// writeReport renders s to --output, replacing the file, or to w.
func (f *analysisFlags) writeReport(w io.Writer, s models.Summary, formatter report.Formatter) error {
	if f.output == "" {
		return report.Render(w, s, formatter)
	}
	out, err := os.Create(f.output)
	if err != nil {
		return err
	}
	if err := report.Render(out, s, formatter); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
