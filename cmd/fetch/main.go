package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"datareader/internal/config"
	"datareader/internal/httpx"
	"datareader/internal/reader"
	"datareader/internal/source/stooq"
	"datareader/internal/source/yahoo"
)

func main() {
	var symbolsCSV string
	var sourceName string
	var start, end string
	var retryCount int
	var pause, timeout time.Duration
	var chunkSize int
	var outFormat string
	var configPath string

	flag.StringVar(&symbolsCSV, "symbols", "", "comma-separated symbols (e.g., AAPL,MSFT)")
	flag.StringVar(&sourceName, "source", "", "data source: stooq or yahoo")
	flag.StringVar(&start, "start", "", "start date (e.g., 2023-01-01); default 5 years back")
	flag.StringVar(&end, "end", "", "end date; default today")
	flag.IntVar(&retryCount, "retry-count", -1, "retries per request after the first attempt")
	flag.DurationVar(&pause, "pause", 0, "pause between retries")
	flag.DurationVar(&timeout, "timeout", 0, "per-request timeout")
	flag.IntVar(&chunkSize, "chunksize", 0, "symbols per batch chunk")
	flag.StringVar(&outFormat, "format", "csv", "output format: csv or json")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// Flags override config where provided.
	if symbolsCSV != "" {
		cfg.Reader.Symbols = splitCSV(symbolsCSV)
	}
	if sourceName != "" {
		cfg.Reader.Source = sourceName
	}
	if start != "" {
		cfg.Reader.Start = start
	}
	if end != "" {
		cfg.Reader.End = end
	}
	if retryCount >= 0 {
		cfg.Reader.RetryCount = retryCount
	}
	if pause > 0 {
		cfg.Reader.Pause = config.Duration(pause)
	}
	if timeout > 0 {
		cfg.Reader.Timeout = config.Duration(timeout)
	}
	if chunkSize > 0 {
		cfg.Reader.ChunkSize = chunkSize
	}

	log := newLogger(cfg.Log)

	if len(cfg.Reader.Symbols) == 0 {
		log.Fatal().Msg("no symbols provided")
	}

	httpClient := httpx.New(cfg.Reader.Timeout.Std())
	src, err := buildSource(cfg, httpClient)
	if err != nil {
		log.Fatal().Err(err).Msg("source")
	}

	opts := []reader.Option{
		reader.WithSymbols(cfg.Reader.Symbols...),
		reader.WithRetryCount(cfg.Reader.RetryCount),
		reader.WithPause(cfg.Reader.Pause.Std()),
		reader.WithTimeout(cfg.Reader.Timeout.Std()),
		reader.WithChunkSize(cfg.Reader.ChunkSize),
		reader.WithSession(httpClient),
		reader.WithLogger(log),
	}
	if cfg.Reader.Start != "" {
		opts = append(opts, reader.WithStart(cfg.Reader.Start))
	}
	if cfg.Reader.End != "" {
		opts = append(opts, reader.WithEnd(cfg.Reader.End))
	}
	if cfg.Reader.Freq != "" {
		opts = append(opts, reader.WithFreq(cfg.Reader.Freq))
	}

	batch, err := reader.NewBatch(src, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("reader")
	}

	// Worst case: every symbol exhausts its retry budget.
	perSymbol := time.Duration(cfg.Reader.RetryCount+1) * (cfg.Reader.Timeout.Std() + cfg.Reader.Pause.Std())
	ctx, cancel := context.WithTimeout(context.Background(), perSymbol*time.Duration(len(cfg.Reader.Symbols)))
	defer cancel()

	result, err := batch.Read(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("read")
	}
	for _, f := range result.Failed {
		log.Warn().Str("symbol", f.Symbol).Err(f.Err).Msg("symbol skipped")
	}
	log.Info().
		Int("rows", result.Frame.NumRows()).
		Int("columns", len(result.Frame.Columns)).
		Int("failed", len(result.Failed)).
		Msg("fetched")

	switch strings.ToLower(outFormat) {
	case "json":
		b, err := json.MarshalIndent(result.Frame, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("marshal")
		}
		fmt.Println(string(b))
	default:
		if err := result.Frame.WriteCSV(os.Stdout); err != nil {
			log.Fatal().Err(err).Msg("write csv")
		}
	}
}

func buildSource(cfg config.Config, hc *httpx.Client) (reader.Source, error) {
	switch strings.ToLower(cfg.Reader.Source) {
	case "stooq":
		return stooq.New(stooq.Config{
			URL:      cfg.Stooq.URL,
			Interval: cfg.Stooq.Interval,
			Suffix:   cfg.Stooq.Suffix,
		}), nil
	case "yahoo":
		return yahoo.New(yahoo.Config{
			URL:      cfg.Yahoo.URL,
			CrumbURL: cfg.Yahoo.CrumbURL,
			Crumb:    cfg.Yahoo.Crumb,
			Interval: cfg.Yahoo.Interval,
		}, hc), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Reader.Source)
	}
}

func newLogger(cfg config.Log) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
