package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxLineBytes = 1 << 20
)

// Opener opens sources. It is safe for concurrent use.
type Opener struct {
	httpClient   *http.Client
	maxLineBytes int
}

// Option configures an Opener.
type Option func(*Opener)

// WithTimeout bounds each remote request, body included.
func WithTimeout(d time.Duration) Option {
	return func(o *Opener) {
		if d > 0 {
			o.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the client used for remote sources.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opener) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithMaxLineBytes sets the longest accepted line.
func WithMaxLineBytes(n int) Option {
	return func(o *Opener) {
		if n > 0 {
			o.maxLineBytes = n
		}
	}
}

func NewOpener(opts ...Option) *Opener {
	o := &Opener{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		maxLineBytes: defaultMaxLineBytes,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open acquires the underlying handle for d. A missing file or a 404 fails
// here with ErrSourceNotFound, before any line is produced. The returned
// Reader must be closed.
func (o *Opener) Open(ctx context.Context, d Descriptor) (*Reader, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	switch d.Kind {
	case KindURL:
		rc, err = o.get(ctx, d)
	default:
		rc, err = openFile(d)
	}
	if err != nil {
		return nil, err
	}
	slog.Debug("source opened", "source", d.Location)

	scanner := bufio.NewScanner(transform.NewReader(rc, unicode.UTF8BOM.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 64*1024), o.maxLineBytes)
	return &Reader{ctx: ctx, src: d, body: rc, scanner: scanner}, nil
}

// Each opens d, calls fn for every line and releases the handle on every
// exit path.
func (o *Opener) Each(ctx context.Context, d Descriptor, fn func(line string)) error {
	r, err := o.Open(ctx, d)
	if err != nil {
		return err
	}
	defer r.Close()
	for line := range r.Lines() {
		fn(line)
	}
	return r.Err()
}

func openFile(d Descriptor) (io.ReadCloser, error) {
	f, err := os.Open(d.Location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Source: d.Location, Kind: ErrSourceNotFound, Err: err}
		}
		return nil, &Error{Source: d.Location, Kind: ErrSourceRead, Err: err}
	}
	return f, nil
}

func (o *Opener) get(ctx context.Context, d Descriptor) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.Location, nil)
	if err != nil {
		return nil, &Error{Source: d.Location, Kind: ErrSourceNotFound, Err: err}
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Source: d.Location, Kind: ErrSourceRead, Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.Body, nil
	}

	resp.Body.Close()
	kind := ErrSourceRead
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		kind = ErrSourceNotFound
	}
	return nil, &Error{Source: d.Location, Kind: kind, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
}

// Reader is a forward-only line sequence over one open source.
type Reader struct {
	ctx     context.Context
	src     Descriptor
	body    io.ReadCloser
	scanner *bufio.Scanner
	err     error
	closed  bool
}

// Lines yields the remaining lines. Iteration stops at end of input, on a
// read failure (see Err) or when the context is cancelled. Lines already
// consumed are not produced again.
func (r *Reader) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		if r.closed || r.err != nil {
			return
		}
		for r.scanner.Scan() {
			if err := r.ctx.Err(); err != nil {
				r.err = &Error{Source: r.src.Location, Kind: ErrSourceRead, Err: err}
				return
			}
			if !yield(r.scanner.Text()) {
				return
			}
		}
		if err := r.scanner.Err(); err != nil {
			r.err = &Error{Source: r.src.Location, Kind: ErrSourceRead, Err: err}
		}
	}
}

// Err returns the first read failure, if any.
func (r *Reader) Err() error {
	return r.err
}

// Close releases the underlying file or connection. It is idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	slog.Debug("source closed", "source", r.src.Location)
	return r.body.Close()
}
