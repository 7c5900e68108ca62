package reader_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/require"

	"datareader/internal/frame"
	"datareader/internal/reader"
	"datareader/internal/source/stooq"
)

// dailyCSV is delivered newest-first with untrimmed headers and na markers,
// the way the quote endpoints actually behave.
const dailyCSV = "Date, Close ,Volume\n" +
	"2024-01-05,103,1000\n" +
	"2024-01-04,102,900\n" +
	"2024-01-03,101,-\n" +
	"2024-01-02,100,800\n"

func TestReadSingleSymbol(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "aapl.us", r.URL.Query().Get("s"))
		w.Write([]byte(dailyCSV))
	}))
	defer srv.Close()

	src := stooq.New(stooq.Config{URL: srv.URL, Suffix: ".us"})
	r, err := reader.New(src,
		reader.WithSymbols("AAPL"),
		reader.WithRetryCount(0),
		reader.WithStart("2024-01-01"),
		reader.WithEnd("2024-02-01"),
	)
	require.NoError(t, err)

	f, err := r.Read(t.Context())
	require.NoError(t, err)

	// Rows come back chronological.
	require.Equal(t, 4, f.NumRows())
	require.True(t, f.Index[0].Before(f.Index[3]))
	require.Equal(t, "Date", f.IndexName)

	// Header whitespace is trimmed.
	closeCol, ok := f.Col("Close")
	require.True(t, ok)
	require.InDelta(t, 100, closeCol.Floats[0].ValueOrZero(), 1e-9)
	require.InDelta(t, 103, closeCol.Floats[3].ValueOrZero(), 1e-9)

	// The na marker maps to a missing cell.
	vol, ok := f.Col("Volume")
	require.True(t, ok)
	require.False(t, vol.Floats[1].Valid)
}

func TestReadEmptyBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("\n"))
	}))
	defer srv.Close()

	src := stooq.New(stooq.Config{Name: "TestSource", URL: srv.URL})
	r, err := reader.New(src, reader.WithSymbols("AAPL"), reader.WithRetryCount(0))
	require.NoError(t, err)

	_, err = r.Read(t.Context())

	var nde *reader.NoDataError
	require.ErrorAs(t, err, &nde)
	require.Contains(t, err.Error(), "TestSource")
	require.Contains(t, err.Error(), srv.URL)
}

func TestReadMissingURLIsFatal(t *testing.T) {
	t.Parallel()

	src := &fakeSource{name: "Incomplete", url: ""}
	r, err := reader.New(src, reader.WithSymbols("AAPL"))
	require.NoError(t, err)

	_, err = r.Read(t.Context())
	require.ErrorIs(t, err, reader.ErrNotImplemented)
}

func TestNewRejectsNegativeRetryCount(t *testing.T) {
	t.Parallel()

	_, err := reader.New(&fakeSource{}, reader.WithRetryCount(-1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "retry count")
}

func TestNewRejectsUnparseableDates(t *testing.T) {
	t.Parallel()

	_, err := reader.New(&fakeSource{}, reader.WithStart("not a date"))
	require.Error(t, err)
}

func TestNewRejectsInvertedDates(t *testing.T) {
	t.Parallel()

	_, err := reader.New(&fakeSource{},
		reader.WithStart("2024-06-01"),
		reader.WithEnd("2024-01-01"),
	)
	require.Error(t, err)
}

// jsonSource decodes its own payload, the engine treats the body as
// opaque.
type jsonSource struct {
	fakeSource
}

func (s *jsonSource) Format() reader.Format { return reader.FormatJSON }

func (s *jsonSource) DecodeJSON(body []byte) (*frame.Frame, error) {
	var payload struct {
		Dates []string  `json:"dates"`
		Close []float64 `json:"close"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	f := &frame.Frame{IndexName: "Date"}
	col := frame.Column{Name: "Close", Kind: frame.Float}
	for i, d := range payload.Dates {
		ts, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, err
		}
		f.Index = append(f.Index, ts)
		col.Floats = append(col.Floats, null.FloatFrom(payload.Close[i]))
	}
	f.Columns = []frame.Column{col}
	return f, nil
}

func TestReadJSONFormat(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"dates":["2024-01-02","2024-01-03"],"close":[1.5,2.5]}`))
	}))
	defer srv.Close()

	src := &jsonSource{fakeSource{name: "JSON", url: srv.URL}}
	r, err := reader.New(src, reader.WithSymbols("AAPL"), reader.WithRetryCount(0))
	require.NoError(t, err)

	f, err := r.Read(t.Context())
	require.NoError(t, err)
	require.Equal(t, 2, f.NumRows())
	c, ok := f.Col("Close")
	require.True(t, ok)
	require.InDelta(t, 2.5, c.Floats[1].ValueOrZero(), 1e-9)
}

// formatOnlySource declares JSON but cannot decode it.
type formatOnlySource struct {
	fakeSource
}

func (s *formatOnlySource) Format() reader.Format { return reader.FormatJSON }

func TestReadJSONWithoutDecoderIsFatal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	src := &formatOnlySource{fakeSource{name: "JSON", url: srv.URL}}
	r, err := reader.New(src, reader.WithSymbols("AAPL"), reader.WithRetryCount(0))
	require.NoError(t, err)

	_, err = r.Read(t.Context())
	require.ErrorIs(t, err, reader.ErrNotImplemented)
}

func TestReadRetriesThenFails(t *testing.T) {
	t.Parallel()

	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := stooq.New(stooq.Config{URL: srv.URL})
	r, err := reader.New(src,
		reader.WithSymbols("AAPL"),
		reader.WithRetryCount(2),
		reader.WithPause(time.Microsecond),
	)
	require.NoError(t, err)

	_, err = r.Read(t.Context())

	var rde *reader.RemoteDataError
	require.ErrorAs(t, err, &rde)
	require.Equal(t, 3, attempts)
	require.Contains(t, err.Error(), srv.URL)
	require.Contains(t, err.Error(), "throttled")
}
