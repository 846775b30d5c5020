// Package source opens log sources (local files and HTTP resources) and
// streams them line by line.
package source

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	ErrSourceNotFound = errors.New("source not found")
	ErrSourceRead     = errors.New("source read error")
)

// Error reports a failure of one source. It unwraps to ErrSourceNotFound or
// ErrSourceRead and to the underlying cause.
type Error struct {
	Source string
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Source, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsTimeout reports whether err was caused by a network or deadline timeout.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

type Kind int

const (
	KindFile Kind = iota
	KindURL
)

// Descriptor identifies one source to read.
type Descriptor struct {
	Kind     Kind
	Location string // file path or URL
}

// Name is the identifier reported in summaries: the final path segment for
// files and the URL as given for remote sources.
func (d Descriptor) Name() string {
	if d.Kind == KindURL {
		return d.Location
	}
	return filepath.Base(d.Location)
}

func (d Descriptor) String() string {
	return d.Location
}

// ParseDescriptor classifies a raw source string. http and https URLs are
// remote; file URLs and everything else are local paths.
func ParseDescriptor(s string) Descriptor {
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return Descriptor{Kind: KindURL, Location: s}
	case strings.HasPrefix(lower, "file://"):
		if u, err := url.Parse(s); err == nil && u.Path != "" {
			return Descriptor{Kind: KindFile, Location: filepath.FromSlash(u.Path)}
		}
	}
	return Descriptor{Kind: KindFile, Location: s}
}

// IsGlob reports whether a local path contains glob syntax.
func IsGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// Resolve turns raw source strings into descriptors, expanding local globs
// (including ** patterns). Duplicates are dropped. Patterns that cannot be
// resolved are reported as joined *Error values alongside whatever did
// resolve; the caller decides whether that is fatal.
func Resolve(patterns []string) ([]Descriptor, error) {
	var (
		out  []Descriptor
		errs []error
		seen = make(map[Descriptor]bool)
	)
	add := func(d Descriptor) {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}

	for _, p := range patterns {
		d := ParseDescriptor(p)
		if d.Kind == KindURL || !IsGlob(d.Location) {
			add(d)
			continue
		}
		matches, err := doublestar.FilepathGlob(d.Location, doublestar.WithFilesOnly())
		if err != nil {
			errs = append(errs, &Error{Source: p, Kind: ErrSourceNotFound, Err: err})
			continue
		}
		if len(matches) == 0 {
			errs = append(errs, &Error{Source: p, Kind: ErrSourceNotFound, Err: errors.New("no files match pattern")})
			continue
		}
		slices.Sort(matches)
		for _, m := range matches {
			add(Descriptor{Kind: KindFile, Location: m})
		}
	}
	return out, errors.Join(errs...)
}
