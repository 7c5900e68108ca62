package yahoo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"datareader/internal/datautil"
	"datareader/internal/httpx"
)

const (
	defaultURL      = "https://query1.finance.yahoo.com/v7/finance/download"
	defaultCrumbURL = "https://query1.finance.yahoo.com/v1/test/getcrumb"
)

// Config controls the Yahoo source.
type Config struct {
	Name     string
	URL      string
	CrumbURL string
	// Crumb is the initial credential token. It can start empty; the
	// engine refreshes it on request failure.
	Crumb    string
	Interval string // 1d, 1wk, 1mo
	Events   string
}

// Source fetches daily quotes from the Yahoo historical download endpoint.
// The endpoint requires a short-lived crumb token, returns the history
// newest-first with an occasional duplicated latest day, and throttles
// aggressively, so the source grows its retry pause and gives up early on
// a definitive not-found.
type Source struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Source {
	if cfg.Name == "" {
		cfg.Name = "Yahoo"
	}
	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	if cfg.CrumbURL == "" {
		cfg.CrumbURL = defaultCrumbURL
	}
	if cfg.Interval == "" {
		cfg.Interval = "1d"
	}
	if cfg.Events == "" {
		cfg.Events = "history"
	}
	if hc == nil {
		hc = httpx.New(10 * time.Second)
	}
	return &Source{cfg: cfg, client: hc}
}

func (s *Source) Name() string { return s.cfg.Name }

func (s *Source) URL(symbol string) string {
	if symbol == "" {
		return ""
	}
	return s.cfg.URL + "/" + url.PathEscape(symbol)
}

func (s *Source) Params(symbol string, dr datautil.DateRange) url.Values {
	v := url.Values{}
	v.Set("period1", strconv.FormatInt(dr.Start.Unix(), 10))
	v.Set("period2", strconv.FormatInt(dr.End.Unix(), 10))
	v.Set("interval", s.cfg.Interval)
	v.Set("events", s.cfg.Events)
	v.Set("crumb", s.cfg.Crumb)
	return v
}

// SanitizeResponse strips a UTF-8 BOM and trailing blank lines the
// endpoint sometimes appends.
func (s *Source) SanitizeResponse(body []byte) []byte {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	return bytes.TrimRight(body, "\r\n")
}

// StopRetry cuts the retry loop on a definitive not-found; retrying an
// unknown symbol only burns the request budget.
func (s *Source) StopRetry(resp *http.Response) bool {
	return resp.StatusCode == http.StatusNotFound
}

// RefreshCredential fetches a fresh crumb token.
func (s *Source) RefreshCredential(ctx context.Context, _ int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.CrumbURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("creating crumb request: %w", err)
	}
	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("fetching crumb: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching crumb: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	if err != nil {
		return "", fmt.Errorf("reading crumb: %w", err)
	}
	token := string(bytes.TrimSpace(body))
	if token == "" {
		return "", fmt.Errorf("fetching crumb: empty token")
	}
	return token, nil
}

// PauseMultiplier doubles the pause between attempts.
func (s *Source) PauseMultiplier() float64 { return 2 }
