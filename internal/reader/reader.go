package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"datareader/internal/datautil"
	"datareader/internal/frame"
	"datareader/internal/httpx"
)

// Defaults for reader construction.
const (
	DefaultRetryCount = 3
	DefaultPause      = 100 * time.Millisecond
	DefaultTimeout    = 30 * time.Second
	DefaultChunkSize  = 25
)

type options struct {
	symbols    []string
	start, end any
	retryCount int
	pause      time.Duration
	timeout    time.Duration
	session    *httpx.Client
	freq       string
	chunkSize  int
	headers    http.Header
	logger     zerolog.Logger
}

func defaultOptions() options {
	return options{
		retryCount: DefaultRetryCount,
		pause:      DefaultPause,
		timeout:    DefaultTimeout,
		chunkSize:  DefaultChunkSize,
		logger:     zerolog.Nop(),
	}
}

// Option configures a Reader or BatchReader.
type Option func(*options)

// WithSymbols sets the symbols to read.
func WithSymbols(symbols ...string) Option {
	return func(o *options) { o.symbols = symbols }
}

// WithSymbolsFromIndex seeds the symbol list from the row index of an
// existing frame.
func WithSymbolsFromIndex(f *frame.Frame) Option {
	return func(o *options) { o.symbols = f.IndexStrings() }
}

// WithStart sets the start date. Accepts anything datautil.ParseDate does.
func WithStart(start any) Option {
	return func(o *options) { o.start = start }
}

// WithEnd sets the end date.
func WithEnd(end any) Option {
	return func(o *options) { o.end = end }
}

// WithRetryCount sets how many times a request is retried after the first
// attempt. Must be non-negative.
func WithRetryCount(n int) Option {
	return func(o *options) { o.retryCount = n }
}

// WithPause sets the pause between retry attempts.
func WithPause(d time.Duration) Option {
	return func(o *options) { o.pause = d }
}

// WithTimeout sets the per-request timeout for an owned session.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithSession supplies a pre-built network client. The reader will not
// release its connection pool on Close.
func WithSession(c *httpx.Client) Option {
	return func(o *options) { o.session = c }
}

// WithFreq sets a source-dependent frequency hint.
func WithFreq(freq string) Option {
	return func(o *options) { o.freq = freq }
}

// WithChunkSize bounds per-cycle request volume for batch reads.
func WithChunkSize(n int) Option {
	return func(o *options) { o.chunkSize = n }
}

// WithHeaders sets extra request headers.
func WithHeaders(h http.Header) Option {
	return func(o *options) { o.headers = h }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Reader orchestrates one symbol's fetch-and-normalize round trip against
// a Source. It owns a network session released when Read returns.
type Reader struct {
	src     Source
	client  *Client
	session *httpx.Session
	symbols []string
	dr      datautil.DateRange
	freq    string
	headers http.Header
	log     zerolog.Logger
	chunk   int
}

// New builds a Reader for src.
func New(src Source, opts ...Option) (*Reader, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.retryCount < 0 {
		return nil, fmt.Errorf("retry count must be a non-negative integer, got %d", o.retryCount)
	}
	dr, err := datautil.SanitizeDates(o.start, o.end)
	if err != nil {
		return nil, fmt.Errorf("sanitize dates: %w", err)
	}

	session := httpx.NewSession(o.session, o.timeout)
	return &Reader{
		src:     src,
		client:  NewClient(sessionClient{session}, src, o.retryCount, o.pause),
		session: session,
		symbols: o.symbols,
		dr:      dr,
		freq:    o.freq,
		headers: o.headers,
		log:     o.logger,
		chunk:   o.chunkSize,
	}, nil
}

// Range returns the sanitized date range.
func (r *Reader) Range() datautil.DateRange { return r.dr }

// Freq returns the frequency hint, if any.
func (r *Reader) Freq() string { return r.freq }

// Read fetches and normalizes the reader's first symbol. The session is
// released on every exit path.
func (r *Reader) Read(ctx context.Context) (*frame.Frame, error) {
	defer r.session.Close()
	symbol := ""
	if len(r.symbols) > 0 {
		symbol = r.symbols[0]
	}
	return r.readOne(ctx, symbol)
}

// readOne runs the full fetch-retry-normalize pipeline for one symbol.
func (r *Reader) readOne(ctx context.Context, symbol string) (*frame.Frame, error) {
	u := r.src.URL(symbol)
	if u == "" {
		return nil, fmt.Errorf("%s: url: %w", r.src.Name(), ErrNotImplemented)
	}
	params := r.src.Params(symbol, r.dr)

	resp, err := r.client.Get(ctx, u, params, r.headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", r.src.Name(), err)
	}

	format := FormatText
	if f, ok := r.src.(Formatter); ok {
		format = f.Format()
	}
	switch format {
	case FormatJSON:
		dec, ok := r.src.(JSONDecoder)
		if !ok {
			return nil, fmt.Errorf("%s: json decode: %w", r.src.Name(), ErrNotImplemented)
		}
		return dec.DecodeJSON(body)
	default:
		return r.parseText(body, u)
	}
}

func (r *Reader) parseText(body []byte, u string) (*frame.Frame, error) {
	if s, ok := r.src.(ResponseSanitizer); ok {
		body = s.SanitizeResponse(body)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &NoDataError{Source: r.src.Name(), URL: u}
	}
	f, err := frame.ParseCSV(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.src.Name(), err)
	}
	return f, nil
}

// sessionClient adapts an httpx session to the engine's HTTPClient.
type sessionClient struct {
	s *httpx.Session
}

func (sc sessionClient) Do(req *http.Request) (*http.Response, error) {
	return sc.s.Do(req.Context(), req)
}
