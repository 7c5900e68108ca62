package reader

import (
	"context"
	"net/http"
	"net/url"

	"datareader/internal/datautil"
	"datareader/internal/frame"
)

// Format is the response-format hint a source supplies.
type Format int

const (
	// FormatText bodies are parsed as delimited tabular data.
	FormatText Format = iota
	// FormatJSON bodies are decoded by the source itself.
	FormatJSON
)

// Source supplies the provider-specific parts of a read: the target
// endpoint and the query parameters for one symbol over a date range.
// Everything else about a source is optional and expressed through the
// capability interfaces below; the engine probes for them with type
// assertions and falls back to defaults.
type Source interface {
	// Name identifies the source in errors and logs.
	Name() string
	// URL returns the endpoint for a symbol, or "" when the source cannot
	// build one (treated as a fatal not-implemented condition).
	URL(symbol string) string
	// Params returns the query parameters for a symbol and date range.
	Params(symbol string, dr datautil.DateRange) url.Values
}

// ResponseSanitizer cleans a raw body before tabular parsing. Sources
// without it get an identity pass-through.
type ResponseSanitizer interface {
	SanitizeResponse(body []byte) []byte
}

// NonSuccessClassifier inspects a non-success response between attempts.
// Returning true stops the retry loop early.
type NonSuccessClassifier interface {
	StopRetry(resp *http.Response) bool
}

// CredentialRefresher issues a fresh crumb token when a retry suspects the
// current one was invalidated.
type CredentialRefresher interface {
	RefreshCredential(ctx context.Context, retryCount int) (string, error)
}

// PauseScaler overrides the backoff growth factor applied between
// attempts. Without it the pause stays constant.
type PauseScaler interface {
	PauseMultiplier() float64
}

// Formatter overrides the response format. Without it bodies are text.
type Formatter interface {
	Format() Format
}

// JSONDecoder turns a raw JSON body into a frame. Required for FormatJSON
// sources; the decoding itself is opaque to the engine.
type JSONDecoder interface {
	DecodeJSON(body []byte) (*frame.Frame, error)
}
