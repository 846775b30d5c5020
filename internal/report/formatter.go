// Package report renders a statistics summary as Markdown or AsciiDoc text.
package report

import (
	"fmt"
	"strings"
)

const (
	minHeaderLevel = 1
	maxHeaderLevel = 6
)

// Formatter is the text dialect a report is written in.
type Formatter interface {
	// HeaderLine renders a heading; level is clamped to 1..6.
	HeaderLine(text string, level int) string
	TableHeader(columns ...string) string
	TableRow(columns ...string) string
	TableFooter() string
	Monospace(s string) string
	// Extension is the file extension, dot included.
	Extension() string
}

// FormatterFor returns the formatter registered under name.
func FormatterFor(name string) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "markdown", "md":
		return Markdown{}, nil
	case "adoc", "asciidoc":
		return AsciiDoc{}, nil
	}
	return nil, fmt.Errorf("unknown report format %q", name)
}

func clampLevel(level int) int {
	return min(maxHeaderLevel, max(minHeaderLevel, level))
}

// Markdown renders GitHub-flavoured Markdown tables.
type Markdown struct{}

func (Markdown) HeaderLine(text string, level int) string {
	return strings.Repeat("#", clampLevel(level)) + " " + text
}

func (m Markdown) TableHeader(columns ...string) string {
	return m.TableRow(columns...) + "\n|" + strings.Repeat(" --- |", len(columns))
}

func (Markdown) TableRow(columns ...string) string {
	var b strings.Builder
	b.WriteByte('|')
	for _, c := range columns {
		b.WriteString(" " + c + " |")
	}
	return b.String()
}

// TableFooter is empty; Markdown tables end at the first blank line.
func (Markdown) TableFooter() string { return "" }

func (Markdown) Monospace(s string) string { return "`" + s + "`" }

func (Markdown) Extension() string { return ".md" }

// AsciiDoc renders AsciiDoc tables.
type AsciiDoc struct{}

const adocTableDelimiter = "|==="

func (AsciiDoc) HeaderLine(text string, level int) string {
	return strings.Repeat("=", clampLevel(level)) + " " + text
}

func (AsciiDoc) TableHeader(columns ...string) string {
	var b strings.Builder
	b.WriteString(`[cols="`)
	b.WriteString(strings.TrimSuffix(strings.Repeat("1,", len(columns)), ","))
	b.WriteString("\"]\n")
	b.WriteString(adocTableDelimiter + "\n")
	for _, c := range columns {
		b.WriteString("|" + c)
	}
	b.WriteString("\n")
	return b.String()
}

func (AsciiDoc) TableRow(columns ...string) string {
	var b strings.Builder
	for _, c := range columns {
		b.WriteString("|" + c + "\n")
	}
	return b.String()
}

func (AsciiDoc) TableFooter() string { return adocTableDelimiter }

func (AsciiDoc) Monospace(s string) string { return "`" + s + "`" }

func (AsciiDoc) Extension() string { return ".adoc" }
