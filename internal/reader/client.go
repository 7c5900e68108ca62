package reader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// crumbParam is the query key carrying a short-lived credential token.
const crumbParam = "crumb"

// maxErrorBody bounds how much of a non-success body is kept for the
// failure message.
const maxErrorBody = 4 << 10

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=reader_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues GET requests on behalf of a Source, retrying non-success
// responses with a pausing backoff. Fully sequential: each attempt blocks
// until response or timeout, and the pause between attempts blocks too.
type Client struct {
	httpc      HTTPClient
	src        Source
	retryCount int
	pause      time.Duration
}

// NewClient builds a retry engine for src over httpc.
func NewClient(httpc HTTPClient, src Source, retryCount int, pause time.Duration) *Client {
	return &Client{
		httpc:      httpc,
		src:        src,
		retryCount: retryCount,
		pause:      pause,
	}
}

// Get fetches rawurl with params and headers, making up to retryCount+1
// attempts. A success-class status returns the response with its body
// still open. Between attempts the engine sleeps, grows the pause by the
// source's multiplier, refreshes the crumb token when params carry one,
// and lets the source's classifier cut the loop short. Exhaustion yields a
// RemoteDataError carrying the encoded URL and the last response text.
func (c *Client) Get(ctx context.Context, rawurl string, params url.Values, headers http.Header) (*http.Response, error) {
	pause := c.pause
	multiplier := 1.0
	if s, ok := c.src.(PauseScaler); ok && s.PauseMultiplier() > 0 {
		multiplier = s.PauseMultiplier()
	}

	var lastResponse string
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		resp, err := c.do(ctx, rawurl, params, headers)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode/100 == 2 {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		if len(body) > 0 {
			lastResponse = string(body)
		}

		time.Sleep(pause)
		pause = time.Duration(float64(pause) * multiplier)

		if params.Has(crumbParam) {
			token, err := c.refreshCrumb(ctx)
			if err != nil {
				return nil, err
			}
			params.Set(crumbParam, token)
		}

		if cl, ok := c.src.(NonSuccessClassifier); ok && cl.StopRetry(resp) {
			break
		}
	}

	full := rawurl
	if len(params) > 0 {
		full += "?" + params.Encode()
	}
	return nil, &RemoteDataError{URL: full, LastResponse: lastResponse}
}

func (c *Client) do(ctx context.Context, rawurl string, params url.Values, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	return resp, nil
}

func (c *Client) refreshCrumb(ctx context.Context) (string, error) {
	cr, ok := c.src.(CredentialRefresher)
	if !ok {
		return "", fmt.Errorf("%s: refresh credential: %w", c.src.Name(), ErrNotImplemented)
	}
	token, err := cr.RefreshCredential(ctx, c.retryCount)
	if err != nil {
		return "", fmt.Errorf("%s: refresh credential: %w", c.src.Name(), err)
	}
	return token, nil
}
