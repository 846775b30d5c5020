package stats

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/xHacka/logstat/internal/models"
)

func TestAverageAndPercentile(t *testing.T) {
	oneToHundred := make([]int64, 100)
	for i := range oneToHundred {
		oneToHundred[i] = int64(i + 1)
	}

	tests := []struct {
		name   string
		values []int64
		avg    int64
		p95    int64
	}{
		{"empty", nil, 0, 0},
		{"single", []int64{7}, 7, 7},
		{"one to hundred", oneToHundred, 50, 96},
		{"floor division", []int64{1, 2}, 1, 2},
		{"unsorted", []int64{30, 10, 20}, 20, 30},
		{"twenty", []int64{20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, 10, 20},
		{"nineteen", []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, 10, 19},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Average(tc.values); got != tc.avg {
				t.Errorf("Average = %d, want %d", got, tc.avg)
			}
			if got := Percentile95(tc.values); got != tc.p95 {
				t.Errorf("Percentile95 = %d, want %d", got, tc.p95)
			}
		})
	}
}

func TestPercentileDoesNotReorderInput(t *testing.T) {
	in := []int64{3, 1, 2}
	Percentile95(in)
	if !slices.Equal(in, []int64{3, 1, 2}) {
		t.Errorf("input was modified: %v", in)
	}
}

func rec(addr, method string, status int, bytes int64, sec int) models.Result {
	return models.Parsed(models.LogRecord{
		RemoteAddr: addr,
		RemoteUser: "-",
		TimeLocal:  time.Date(2015, 5, 17, 8, 5, sec, 0, time.UTC),
		Method:     method,
		Resource:   "/downloads/product_1",
		Protocol:   "HTTP/1.1",
		Status:     status,
		BytesSent:  bytes,
		Referer:    "-",
		UserAgent:  "agent",
	})
}

func TestAccumulatorCountsEveryDimension(t *testing.T) {
	acc, err := New(models.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	acc.AddSource("/var/log/access.log", "access.log")
	acc.Add(rec("1.1.1.1", "GET", 200, 100, 0))
	acc.Add(rec("1.1.1.1", "GET", 304, 0, 0))
	acc.Add(rec("2.2.2.2", "POST", 200, 500, 1))
	acc.Add(models.Ignored())
	acc.AddSource("/var/log/access.log", "access.log")

	s, err := acc.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if s.RequestsAmount != 3 {
		t.Errorf("expected 3 requests, got %d", s.RequestsAmount)
	}
	if s.IgnoredRows != 1 {
		t.Errorf("expected 1 ignored row, got %d", s.IgnoredRows)
	}
	if !slices.Equal(s.Sources, []string{"access.log"}) {
		t.Errorf("expected one source, got %v", s.Sources)
	}
	if s.RemoteAddresses["1.1.1.1"] != 2 || s.RemoteAddresses["2.2.2.2"] != 1 {
		t.Errorf("unexpected addresses %v", s.RemoteAddresses)
	}
	if s.RemoteUsers["-"] != 3 {
		t.Errorf("unexpected users %v", s.RemoteUsers)
	}
	if s.RequestMethods["GET"] != 2 || s.RequestMethods["POST"] != 1 {
		t.Errorf("unexpected methods %v", s.RequestMethods)
	}
	if s.RequestResources["/downloads/product_1"] != 3 {
		t.Errorf("unexpected resources %v", s.RequestResources)
	}
	if s.Statuses[200] != 2 || s.Statuses[304] != 1 {
		t.Errorf("unexpected statuses %v", s.Statuses)
	}
	if s.RequestsOnDate["2015-05-17T08:05:00Z"] != 2 || s.RequestsOnDate["2015-05-17T08:05:01Z"] != 1 {
		t.Errorf("unexpected dates %v", s.RequestsOnDate)
	}
	if s.AverageBytesSent != 200 {
		t.Errorf("expected average 200, got %d", s.AverageBytesSent)
	}
	if s.P95BytesSent != 500 {
		t.Errorf("expected p95 500, got %d", s.P95BytesSent)
	}
}

func TestIgnoredLineTouchesNothingElse(t *testing.T) {
	acc, err := New(models.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	acc.Add(models.Ignored())
	s, _ := acc.Finalize()

	if s.IgnoredRows != 1 || s.RequestsAmount != 0 {
		t.Errorf("expected only the ignored counter to move, got %+v", s)
	}
	for name, m := range map[string]int{
		"addresses": len(s.RemoteAddresses),
		"users":     len(s.RemoteUsers),
		"methods":   len(s.RequestMethods),
		"resources": len(s.RequestResources),
		"statuses":  len(s.Statuses),
		"dates":     len(s.RequestsOnDate),
	} {
		if m != 0 {
			t.Errorf("%s must stay empty, has %d keys", name, m)
		}
	}
}

func TestAccumulatorAppliesFilters(t *testing.T) {
	from := time.Date(2015, 5, 17, 8, 5, 1, 0, time.UTC)
	acc, err := New(models.Filters{
		From:   &from,
		Fields: []models.FieldFilter{{Field: "status", Regex: regexp.MustCompile("30.*")}},
	})
	if err != nil {
		t.Fatal(err)
	}
	acc.Add(rec("a", "GET", 304, 1, 0)) // before range
	acc.Add(rec("a", "GET", 304, 2, 1))
	acc.Add(rec("a", "GET", 200, 3, 2)) // wrong status
	acc.Add(rec("a", "GET", 301, 4, 3))

	s, _ := acc.Finalize()
	if s.RequestsAmount != 2 {
		t.Errorf("expected 2 requests, got %d", s.RequestsAmount)
	}
	if s.From == nil || !s.From.Equal(from) || s.To != nil {
		t.Errorf("expected effective bounds in summary, got %v %v", s.From, s.To)
	}
	if s.AverageBytesSent != 3 {
		t.Errorf("expected average over accepted records only, got %d", s.AverageBytesSent)
	}
}

func TestNewRejectsInvalidFilters(t *testing.T) {
	from := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := New(models.Filters{From: &from, To: &to}); err == nil {
		t.Error("expected error for from after to")
	}
}

func TestMergeOrderIndependence(t *testing.T) {
	var results []models.Result
	for i := 0; i < 40; i++ {
		if i%7 == 0 {
			results = append(results, models.Ignored())
			continue
		}
		results = append(results, rec(fmt.Sprintf("10.0.0.%d", i%5), "GET", 200+i%3, int64(i*10), i%10))
	}

	whole, _ := New(models.Filters{})
	whole.Accumulate(slices.Values(results))
	want, _ := whole.Finalize()

	split, _ := New(models.Filters{})
	first, second := split.NewPartial(), split.NewPartial()
	for _, r := range results[:13] {
		first.Add(r)
	}
	for _, r := range results[13:] {
		second.Add(r)
	}
	split.Merge(second)
	split.Merge(first)
	got, _ := split.Finalize()

	if got.RequestsAmount != want.RequestsAmount || got.IgnoredRows != want.IgnoredRows {
		t.Errorf("totals differ: %d/%d vs %d/%d", got.RequestsAmount, got.IgnoredRows, want.RequestsAmount, want.IgnoredRows)
	}
	if !maps.Equal(got.RemoteAddresses, want.RemoteAddresses) ||
		!maps.Equal(got.Statuses, want.Statuses) ||
		!maps.Equal(got.RequestsOnDate, want.RequestsOnDate) {
		t.Error("count maps differ between split and whole input")
	}
	if got.AverageBytesSent != want.AverageBytesSent || got.P95BytesSent != want.P95BytesSent {
		t.Error("byte statistics differ between split and whole input")
	}
}

func TestSourcesWithSameNameAreKeptApart(t *testing.T) {
	acc, err := New(models.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	acc.AddSource("/logs/a/access.log", "access.log")
	acc.AddSource("/logs/b/access.log", "access.log")
	acc.AddSource("/logs/a/access.log", "access.log")

	s, err := acc.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(s.Sources, []string{"access.log", "access.log"}) {
		t.Errorf("expected one entry per distinct source, got %v", s.Sources)
	}
}

func TestConcurrentAdd(t *testing.T) {
	acc, _ := New(models.Filters{})

	const workers, perWorker = 8, 500
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			name := fmt.Sprintf("source-%d", w%4)
			acc.AddSource(name, name)
			p := acc.NewPartial()
			for i := 0; i < perWorker; i++ {
				if i%2 == 0 {
					acc.Add(rec("shared", "GET", 200, 1, 0))
				} else {
					p.Add(rec("shared", "GET", 200, 1, 0))
				}
			}
			acc.Merge(p)
		}(w)
	}
	wg.Wait()

	s, _ := acc.Finalize()
	if s.RequestsAmount != workers*perWorker {
		t.Errorf("lost updates: expected %d, got %d", workers*perWorker, s.RequestsAmount)
	}
	if s.RemoteAddresses["shared"] != workers*perWorker {
		t.Errorf("lost per-key updates: got %d", s.RemoteAddresses["shared"])
	}
	if len(s.Sources) != 4 {
		t.Errorf("expected 4 distinct sources, got %v", s.Sources)
	}
}

func TestFinalizeOnce(t *testing.T) {
	acc, _ := New(models.Filters{})
	if _, err := acc.Finalize(); err != nil {
		t.Fatal(err)
	}
	if _, err := acc.Finalize(); !errors.Is(err, ErrFinalized) {
		t.Errorf("expected ErrFinalized, got %v", err)
	}

	defer func() {
		if r := recover(); r != ErrFinalized {
			t.Errorf("expected panic with ErrFinalized, got %v", r)
		}
	}()
	acc.Add(models.Ignored())
}

func TestSummaryIsDetachedFromAccumulator(t *testing.T) {
	acc, _ := New(models.Filters{})
	acc.Add(rec("a", "GET", 200, 1, 0))
	s, _ := acc.Finalize()
	s.RemoteAddresses["a"] = 100
	if acc.total.addresses["a"] != 1 {
		t.Error("summary maps must not alias accumulator state")
	}
}
