package reader

import (
	"context"
	"errors"

	"datareader/internal/datautil"
	"datareader/internal/frame"
)

// BatchResult is the outcome of a multi-symbol read: the combined frame
// plus a structured report of the symbols that failed. Failed symbols are
// present in the frame as all-missing columns.
type BatchResult struct {
	Frame  *frame.Frame
	Failed []SymbolFailure
}

// BatchReader fetches a collection of symbols in chunks, tolerating
// per-symbol failures. Fetching is strictly sequential; callers needing
// throughput run independent readers.
type BatchReader struct {
	r *Reader
}

// NewBatch builds a BatchReader for src.
func NewBatch(src Source, opts ...Option) (*BatchReader, error) {
	r, err := New(src, opts...)
	if err != nil {
		return nil, err
	}
	return &BatchReader{r: r}, nil
}

// Read fetches every configured symbol and combines the results into one
// wide frame keyed by (attribute, symbol). A single symbol bypasses
// batching and returns its plain frame. Per-symbol failures of the
// recoverable kind are logged at warn level and recorded in the result;
// the batch errors only when no symbol succeeds. The session is released
// on every exit path.
func (b *BatchReader) Read(ctx context.Context) (*BatchResult, error) {
	defer b.r.session.Close()

	symbols := b.r.symbols
	if len(symbols) == 1 {
		f, err := b.r.readOne(ctx, symbols[0])
		if err != nil {
			return nil, err
		}
		return &BatchResult{Frame: f}, nil
	}

	stocks := make(map[string]*frame.Frame, len(symbols))
	var passed []string
	var failed []SymbolFailure
	for _, chunk := range datautil.InChunks(symbols, b.r.chunk) {
		for _, symbol := range chunk {
			f, err := b.r.readOne(ctx, symbol)
			if err != nil {
				if !recoverable(err) {
					return nil, err
				}
				b.r.log.Warn().
					Str("symbol", symbol).
					Err(err).
					Msg("failed to read symbol, replacing with missing values")
				failed = append(failed, SymbolFailure{Symbol: symbol, Err: err})
				continue
			}
			stocks[symbol] = f
			passed = append(passed, symbol)
		}
	}

	if len(passed) == 0 {
		return nil, &RemoteDataError{Source: b.r.src.Name()}
	}
	if len(failed) > 0 {
		placeholder := stocks[passed[0]].AllMissing()
		for _, f := range failed {
			stocks[f.Symbol] = placeholder
		}
	}

	combined, err := frame.Combine(stocks)
	if err != nil {
		return nil, &RemoteDataError{Source: b.r.src.Name(), Err: err}
	}
	return &BatchResult{Frame: combined, Failed: failed}, nil
}

// recoverable reports whether a per-symbol error should degrade to a
// warning instead of aborting the batch.
func recoverable(err error) bool {
	var rde *RemoteDataError
	var nde *NoDataError
	return errors.As(err, &rde) || errors.As(err, &nde)
}
