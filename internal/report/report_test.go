package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xHacka/logstat/internal/models"
)

func TestMarkdownFormatter(t *testing.T) {
	var f Markdown
	if got := f.HeaderLine("Title", 4); got != "#### Title" {
		t.Errorf("unexpected header %q", got)
	}
	if got := f.HeaderLine("Title", 0); got != "# Title" {
		t.Errorf("level must clamp to 1, got %q", got)
	}
	if got := f.HeaderLine("Title", 9); got != "###### Title" {
		t.Errorf("level must clamp to 6, got %q", got)
	}
	if got := f.TableHeader("Metric", "Value"); got != "| Metric | Value |\n| --- | --- |" {
		t.Errorf("unexpected table header %q", got)
	}
	if got := f.TableRow("a", "1"); got != "| a | 1 |" {
		t.Errorf("unexpected row %q", got)
	}
	if f.TableFooter() != "" || f.Monospace("x") != "`x`" || f.Extension() != ".md" {
		t.Error("unexpected footer, monospace or extension")
	}
}

func TestAsciiDocFormatter(t *testing.T) {
	var f AsciiDoc
	if got := f.HeaderLine("Title", 2); got != "== Title" {
		t.Errorf("unexpected header %q", got)
	}
	if got := f.TableHeader("Code", "Name", "Amount"); got != "[cols=\"1,1,1\"]\n|===\n|Code|Name|Amount\n" {
		t.Errorf("unexpected table header %q", got)
	}
	if got := f.TableRow("a", "1"); got != "|a\n|1\n" {
		t.Errorf("unexpected row %q", got)
	}
	if f.TableFooter() != "|===" || f.Extension() != ".adoc" {
		t.Error("unexpected footer or extension")
	}
}

func TestFormatterFor(t *testing.T) {
	for name, want := range map[string]string{"markdown": ".md", "MD": ".md", "": ".md", "adoc": ".adoc", "asciidoc": ".adoc"} {
		f, err := FormatterFor(name)
		if err != nil {
			t.Fatalf("FormatterFor(%q): %v", name, err)
		}
		if f.Extension() != want {
			t.Errorf("FormatterFor(%q) extension %s, want %s", name, f.Extension(), want)
		}
	}
	if _, err := FormatterFor("html"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func sample() models.Summary {
	from := time.Date(2015, 5, 17, 8, 5, 0, 0, time.UTC)
	return models.Summary{
		Sources:          []string{"access.log", "https://example.com/logs"},
		RemoteAddresses:  map[string]int{"1.1.1.1": 2, "2.2.2.2": 3},
		RemoteUsers:      map[string]int{"-": 5},
		RequestMethods:   map[string]int{"GET": 4, "POST": 1},
		RequestResources: map[string]int{"/a": 2, "/b": 2, "/c": 1},
		Statuses:         map[int]int{304: 3, 200: 1, 404: 1},
		RequestsOnDate:   map[string]int{"2015-05-17T08:05:00Z": 5},
		RequestsAmount:   5,
		IgnoredRows:      2,
		AverageBytesSent: 120,
		P95BytesSent:     400,
		From:             &from,
	}
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sample(), Markdown{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"#### General information",
		"| Files | `access.log` |",
		"|       | `https://example.com/logs` |",
		"| Start date | 2015-05-17T08:05:00Z |",
		"| End date | - |",
		"| Number of requests | 5 |",
		"| Ignored lines | 2 |",
		"| Average response size | 120 |",
		"| 95p response size | 400 |",
		"| 304 | Not Modified | 3 |",
		"| GET | 4 |",
		"| 2015-05-17T08:05:00Z | 5 |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected report to contain %q", want)
		}
	}

	// count descending, then key ascending
	a, b, c := strings.Index(out, "`/a`"), strings.Index(out, "`/b`"), strings.Index(out, "`/c`")
	if !(a < b && b < c) {
		t.Errorf("resources not ordered by count then key: %d %d %d", a, b, c)
	}
	if strings.Index(out, "| 2.2.2.2 |") > strings.Index(out, "| 1.1.1.1 |") {
		t.Error("addresses not ordered by count descending")
	}
	if strings.Index(out, "| 200 |") > strings.Index(out, "| 404 |") {
		t.Error("status ties must be ordered by code")
	}
}

func TestRenderAsciiDoc(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sample(), AsciiDoc{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "==== General information\n[cols=\"1,1\"]\n|===\n|Metric|Value\n") {
		t.Errorf("unexpected report start:\n%s", out[:min(len(out), 200)])
	}
	if strings.Count(out, "|===") != 12 {
		t.Errorf("expected 6 tables each opened and closed, got %d delimiters", strings.Count(out, "|==="))
	}
}
