package reader_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"datareader/internal/frame"
	"datareader/internal/reader"
	"datareader/internal/source/stooq"
)

// quoteServer serves a small history per symbol and fails the symbols in
// the broken set.
func quoteServer(t *testing.T, broken map[string]bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sym := strings.ToUpper(r.URL.Query().Get("s"))
		if broken[sym] {
			http.Error(w, "no data for symbol", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "Date,Close,Volume\n2024-01-03,12,300\n2024-01-02,11,200\n")
	}))
}

func batchOpts(extra ...reader.Option) []reader.Option {
	opts := []reader.Option{
		reader.WithRetryCount(0),
		reader.WithPause(time.Microsecond),
		reader.WithStart("2024-01-01"),
		reader.WithEnd("2024-02-01"),
	}
	return append(opts, extra...)
}

func TestBatchPartialFailure(t *testing.T) {
	t.Parallel()

	srv := quoteServer(t, map[string]bool{"B": true})
	defer srv.Close()

	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	b, err := reader.NewBatch(stooq.New(stooq.Config{URL: srv.URL}),
		batchOpts(
			reader.WithSymbols("A", "B", "C"),
			reader.WithLogger(logger),
		)...)
	require.NoError(t, err)

	// Act: B always fails, the batch must not.
	result, err := b.Read(t.Context())
	require.NoError(t, err)

	// All three symbols are present as columns.
	require.Equal(t, []string{frame.LevelAttributes, frame.LevelSymbols}, result.Frame.LevelNames)
	for _, sym := range []string{"A", "B", "C"} {
		_, ok := result.Frame.ColFor("Close", sym)
		require.True(t, ok, "missing Close column for %s", sym)
	}

	// B's columns are all missing, A's are not.
	colB, _ := result.Frame.ColFor("Close", "B")
	for _, v := range colB.Floats {
		require.False(t, v.Valid)
	}
	colA, _ := result.Frame.ColFor("Close", "A")
	require.True(t, colA.Floats[0].Valid)

	// The failure is reported and logged with the symbol name.
	require.Len(t, result.Failed, 1)
	require.Equal(t, "B", result.Failed[0].Symbol)
	require.Contains(t, logs.String(), `"symbol":"B"`)
	require.Contains(t, logs.String(), "warn")
}

func TestBatchAllFail(t *testing.T) {
	t.Parallel()

	srv := quoteServer(t, map[string]bool{"A": true, "B": true})
	defer srv.Close()

	b, err := reader.NewBatch(stooq.New(stooq.Config{Name: "TestSource", URL: srv.URL}),
		batchOpts(reader.WithSymbols("A", "B"))...)
	require.NoError(t, err)

	_, err = b.Read(t.Context())

	var rde *reader.RemoteDataError
	require.ErrorAs(t, err, &rde)
	require.Contains(t, err.Error(), "TestSource")
}

func TestBatchSingleSymbolBypassesBatching(t *testing.T) {
	t.Parallel()

	srv := quoteServer(t, nil)
	defer srv.Close()

	b, err := reader.NewBatch(stooq.New(stooq.Config{URL: srv.URL}),
		batchOpts(reader.WithSymbols("A"))...)
	require.NoError(t, err)

	result, err := b.Read(t.Context())
	require.NoError(t, err)

	// A plain frame: one column level, no symbol columns.
	require.Empty(t, result.Frame.LevelNames)
	require.Empty(t, result.Failed)
	_, ok := result.Frame.Col("Close")
	require.True(t, ok)
}

func TestBatchSingleSymbolFailureRaises(t *testing.T) {
	t.Parallel()

	srv := quoteServer(t, map[string]bool{"A": true})
	defer srv.Close()

	b, err := reader.NewBatch(stooq.New(stooq.Config{URL: srv.URL}),
		batchOpts(reader.WithSymbols("A"))...)
	require.NoError(t, err)

	_, err = b.Read(t.Context())

	var rde *reader.RemoteDataError
	require.ErrorAs(t, err, &rde)
}

func TestBatchChunksRequests(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var order []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		order = append(order, strings.ToUpper(r.URL.Query().Get("s")))
		mu.Unlock()
		fmt.Fprintf(w, "Date,Close\n2024-01-02,11\n")
	}))
	defer srv.Close()

	symbols := make([]string, 60)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%02d", i)
	}

	b, err := reader.NewBatch(stooq.New(stooq.Config{URL: srv.URL}),
		batchOpts(
			reader.WithSymbols(symbols...),
			reader.WithChunkSize(25),
		)...)
	require.NoError(t, err)

	result, err := b.Read(t.Context())
	require.NoError(t, err)

	// Sequential fetches in request order, one per symbol.
	require.Equal(t, symbols, order)
	require.Len(t, result.Frame.Columns, 60)
}
