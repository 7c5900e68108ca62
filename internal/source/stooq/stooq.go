package stooq

import (
	"net/url"
	"strings"

	"datareader/internal/datautil"
)

const defaultURL = "https://stooq.com/q/d/l/"

// Config controls the Stooq source.
type Config struct {
	Name     string
	URL      string
	Interval string // d, w, m
	// Suffix is appended to each symbol, e.g. ".us" for US listings.
	Suffix string
}

// Source fetches daily quotes from the Stooq CSV download endpoint. It
// relies entirely on the engine defaults: text format, identity sanitize,
// constant pause, no early stop.
type Source struct {
	cfg Config
}

func New(cfg Config) *Source {
	if cfg.Name == "" {
		cfg.Name = "Stooq"
	}
	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	if cfg.Interval == "" {
		cfg.Interval = "d"
	}
	return &Source{cfg: cfg}
}

func (s *Source) Name() string { return s.cfg.Name }

func (s *Source) URL(string) string { return s.cfg.URL }

func (s *Source) Params(symbol string, dr datautil.DateRange) url.Values {
	v := url.Values{}
	v.Set("s", strings.ToLower(symbol)+s.cfg.Suffix)
	v.Set("d1", dr.Start.Format("20060102"))
	v.Set("d2", dr.End.Format("20060102"))
	v.Set("i", s.cfg.Interval)
	return v
}
