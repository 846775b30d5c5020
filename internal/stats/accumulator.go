// Package stats folds parsed log records into a statistics summary.
package stats

import (
	"errors"
	"iter"
	"maps"
	"sync"
	"time"

	"github.com/xHacka/logstat/internal/filter"
	"github.com/xHacka/logstat/internal/models"
)

var ErrFinalized = errors.New("stats: accumulator already finalized")

// Partial is an unsynchronized fold target owned by a single worker.
// Workers fill their own Partial and hand it to Accumulator.Merge.
type Partial struct {
	pred      filter.Predicate
	addresses map[string]int
	users     map[string]int
	methods   map[string]int
	resources map[string]int
	statuses  map[int]int
	dates     map[string]int
	requests  int
	ignored   int
	bytes     []int64
}

func newPartial(pred filter.Predicate) *Partial {
	return &Partial{
		pred:      pred,
		addresses: make(map[string]int),
		users:     make(map[string]int),
		methods:   make(map[string]int),
		resources: make(map[string]int),
		statuses:  make(map[int]int),
		dates:     make(map[string]int),
	}
}

// Add folds one parse result. Ignored lines are only counted; records that
// fail the predicate are dropped.
func (p *Partial) Add(res models.Result) {
	rec, ok := res.Record()
	if !ok {
		p.ignored++
		return
	}
	if !p.pred(rec) {
		return
	}
	p.requests++
	p.addresses[rec.RemoteAddr]++
	p.users[rec.RemoteUser]++
	p.methods[rec.Method]++
	p.resources[rec.Resource]++
	p.statuses[rec.Status]++
	p.dates[rec.TimeLocal.Format(time.RFC3339)]++
	p.bytes = append(p.bytes, rec.BytesSent)
}

func (p *Partial) merge(o *Partial) {
	mergeCounts(p.addresses, o.addresses)
	mergeCounts(p.users, o.users)
	mergeCounts(p.methods, o.methods)
	mergeCounts(p.resources, o.resources)
	mergeCounts(p.statuses, o.statuses)
	mergeCounts(p.dates, o.dates)
	p.requests += o.requests
	p.ignored += o.ignored
	p.bytes = append(p.bytes, o.bytes...)
}

func mergeCounts[K comparable](dst, src map[K]int) {
	for k, n := range src {
		dst[k] += n
	}
}

// Accumulator owns the aggregate state of one analysis run. Add, Merge and
// AddSource are safe for concurrent use; folding is commutative, so the
// final summary does not depend on the order sources complete in.
type Accumulator struct {
	mu        sync.Mutex
	filters   models.Filters
	pred      filter.Predicate
	total     *Partial
	sources   []string
	seen      map[string]bool
	finalized bool
}

// New validates f and returns an empty accumulator applying it.
func New(f models.Filters) (*Accumulator, error) {
	pred, err := filter.Build(f)
	if err != nil {
		return nil, err
	}
	return &Accumulator{
		filters: f,
		pred:    pred,
		total:   newPartial(pred),
		seen:    make(map[string]bool),
	}, nil
}

// NewPartial returns an empty fold target sharing this accumulator's
// predicate.
func (a *Accumulator) NewPartial() *Partial {
	return newPartial(a.pred)
}

// AddSource records the display name of the source identified by key, once
// per key however many lines it contributes. Distinct sources may share a
// display name.
func (a *Accumulator) AddSource(key, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkOpen()
	if !a.seen[key] {
		a.seen[key] = true
		a.sources = append(a.sources, name)
	}
}

// Add folds a single result under the lock.
func (a *Accumulator) Add(res models.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkOpen()
	a.total.Add(res)
}

// Accumulate folds every result of seq.
func (a *Accumulator) Accumulate(seq iter.Seq[models.Result]) {
	p := a.NewPartial()
	for res := range seq {
		p.Add(res)
	}
	a.Merge(p)
}

// Merge folds a worker's partial into the run totals.
func (a *Accumulator) Merge(p *Partial) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkOpen()
	a.total.merge(p)
}

func (a *Accumulator) checkOpen() {
	if a.finalized {
		panic(ErrFinalized)
	}
}

// Finalize computes the average and percentile and returns the summary. It
// may be called once; the accumulator accepts no input afterwards.
func (a *Accumulator) Finalize() (models.Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return models.Summary{}, ErrFinalized
	}
	a.finalized = true

	t := a.total
	return models.Summary{
		Sources:          append([]string(nil), a.sources...),
		RemoteAddresses:  maps.Clone(t.addresses),
		RemoteUsers:      maps.Clone(t.users),
		RequestMethods:   maps.Clone(t.methods),
		RequestResources: maps.Clone(t.resources),
		Statuses:         maps.Clone(t.statuses),
		RequestsOnDate:   maps.Clone(t.dates),
		RequestsAmount:   t.requests,
		IgnoredRows:      t.ignored,
		AverageBytesSent: Average(t.bytes),
		P95BytesSent:     Percentile95(t.bytes),
		From:             a.filters.From,
		To:               a.filters.To,
	}, nil
}
