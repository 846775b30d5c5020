package report

import (
	"bufio"
	"cmp"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/xHacka/logstat/internal/models"
)

const sectionLevel = 4

type entry[K cmp.Ordered] struct {
	key   K
	count int
}

// byCount orders map entries by count descending, then key ascending.
func byCount[K cmp.Ordered](m map[K]int) []entry[K] {
	out := make([]entry[K], 0, len(m))
	for k, n := range m {
		out = append(out, entry[K]{k, n})
	}
	slices.SortFunc(out, func(a, b entry[K]) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})
	return out
}

// Render writes s to w in the dialect of f.
func Render(w io.Writer, s models.Summary, f Formatter) error {
	bw := bufio.NewWriter(w)
	writeln := func(line string) {
		bw.WriteString(line)
		bw.WriteByte('\n')
	}

	writeln(f.HeaderLine("General information", sectionLevel))
	writeln(f.TableHeader("Metric", "Value"))
	for i, src := range s.Sources {
		label := "Files"
		if i > 0 {
			label = "     "
		}
		writeln(f.TableRow(label, f.Monospace(src)))
	}
	writeln(f.TableRow("Start date", formatBound(s.From)))
	writeln(f.TableRow("End date", formatBound(s.To)))
	writeln(f.TableRow("Number of requests", strconv.Itoa(s.RequestsAmount)))
	writeln(f.TableRow("Ignored lines", strconv.Itoa(s.IgnoredRows)))
	writeln(f.TableRow("Average response size", strconv.FormatInt(s.AverageBytesSent, 10)))
	writeln(f.TableRow("95p response size", strconv.FormatInt(s.P95BytesSent, 10)))
	writeln(f.TableFooter())

	writeln(f.HeaderLine("Queried resources", sectionLevel))
	writeln(f.TableHeader("Resource", "Amount"))
	for _, e := range byCount(s.RequestResources) {
		writeln(f.TableRow(f.Monospace(e.key), strconv.Itoa(e.count)))
	}
	writeln(f.TableFooter())

	writeln(f.HeaderLine("Response codes", sectionLevel))
	writeln(f.TableHeader("Code", "Name", "Amount"))
	for _, e := range byCount(s.Statuses) {
		writeln(f.TableRow(strconv.Itoa(e.key), http.StatusText(e.key), strconv.Itoa(e.count)))
	}
	writeln(f.TableFooter())

	writeln(f.HeaderLine("Request methods", sectionLevel))
	writeln(f.TableHeader("Method", "Amount"))
	for _, e := range byCount(s.RequestMethods) {
		writeln(f.TableRow(e.key, strconv.Itoa(e.count)))
	}
	writeln(f.TableFooter())

	writeln(f.HeaderLine("Remote addresses", sectionLevel))
	writeln(f.TableHeader("Address", "Amount"))
	for _, e := range byCount(s.RemoteAddresses) {
		writeln(f.TableRow(e.key, strconv.Itoa(e.count)))
	}
	writeln(f.TableFooter())

	writeln(f.HeaderLine("Requests on date", sectionLevel))
	writeln(f.TableHeader("Date", "Amount"))
	for _, e := range byCount(s.RequestsOnDate) {
		writeln(f.TableRow(e.key, strconv.Itoa(e.count)))
	}
	writeln(f.TableFooter())

	return bw.Flush()
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
