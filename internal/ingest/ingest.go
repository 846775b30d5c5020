package ingest

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xHacka/logstat/internal/models"
	"github.com/xHacka/logstat/internal/parser"
	"github.com/xHacka/logstat/internal/source"
	"github.com/xHacka/logstat/internal/stats"
)

var ErrNoSources = errors.New("no sources given")

// Options controls a pipeline run. The zero value is usable.
type Options struct {
	// Workers bounds how many sources are read at once. 0 means NumCPU,
	// 1 reads sources one after another.
	Workers int
	// FailFast aborts the whole run on the first source failure. Otherwise
	// failed sources are reported next to a summary of everything read.
	FailFast bool
	Opener   *source.Opener
	Parser   parser.Parser
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Opener == nil {
		o.Opener = source.NewOpener()
	}
	if o.Parser == nil {
		o.Parser = parser.NewCombined()
	}
	return o
}

// Analyze reads every source matched by patterns and aggregates the records
// passing f. Filters are validated before any source is touched.
//
// Without FailFast, source failures come back as a joined error of
// *source.Error values together with a valid summary; lines read from a
// failed source before it broke are kept. With FailFast the summary is
// discarded on the first failure.
func Analyze(ctx context.Context, patterns []string, f models.Filters, opts Options) (models.Summary, error) {
	opts = opts.withDefaults()

	acc, err := stats.New(f)
	if err != nil {
		return models.Summary{}, err
	}
	if len(patterns) == 0 {
		return models.Summary{}, ErrNoSources
	}

	descs, resolveErr := source.Resolve(patterns)
	if resolveErr != nil && (opts.FailFast || len(descs) == 0) {
		return models.Summary{}, resolveErr
	}
	for _, d := range descs {
		acc.AddSource(d.Location, d.Name())
	}

	start := time.Now()
	errs := make([]error, len(descs))

	g, gctx := errgroup.WithContext(ctx)
	runCtx := ctx
	if opts.FailFast {
		runCtx = gctx
	}
	g.SetLimit(opts.Workers)
	for i, d := range descs {
		g.Go(func() error {
			err := readSource(runCtx, d, acc, opts)
			if err == nil {
				return nil
			}
			slog.Warn("source failed", "source", d.Location, "error", err)
			errs[i] = err
			if opts.FailFast {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Summary{}, err
	}

	summary, err := acc.Finalize()
	if err != nil {
		return models.Summary{}, err
	}
	slog.Info("analysis complete",
		"sources", len(descs),
		"records", summary.RequestsAmount,
		"ignored", summary.IgnoredRows,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return summary, errors.Join(append([]error{resolveErr}, errs...)...)
}

// readSource folds one source into a private partial and merges it into
// acc, also when reading stopped early.
func readSource(ctx context.Context, d source.Descriptor, acc *stats.Accumulator, opts Options) error {
	p := acc.NewPartial()
	err := opts.Opener.Each(ctx, d, func(line string) {
		p.Add(opts.Parser.Parse(line))
	})
	acc.Merge(p)
	return err
}
