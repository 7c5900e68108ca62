package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts "250ms" style strings as
// well as integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		dd, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(dd)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Reader struct {
	Source     string   `yaml:"source"`
	Symbols    []string `yaml:"symbols"`
	Start      string   `yaml:"start"`
	End        string   `yaml:"end"`
	RetryCount int      `yaml:"retry_count"`
	Pause      Duration `yaml:"pause"`
	Timeout    Duration `yaml:"timeout"`
	ChunkSize  int      `yaml:"chunk_size"`
	Freq       string   `yaml:"freq"`
}

type Yahoo struct {
	URL      string `yaml:"url"`
	CrumbURL string `yaml:"crumb_url"`
	Crumb    string `yaml:"crumb"`
	Interval string `yaml:"interval"`
}

type Stooq struct {
	URL      string `yaml:"url"`
	Interval string `yaml:"interval"`
	Suffix   string `yaml:"suffix"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

type Config struct {
	Reader Reader `yaml:"reader"`
	Yahoo  Yahoo  `yaml:"yahoo"`
	Stooq  Stooq  `yaml:"stooq"`
	Log    Log    `yaml:"log"`
}

func Default() Config {
	return Config{
		Reader: Reader{
			Source:     "stooq",
			RetryCount: 3,
			Pause:      Duration(100 * time.Millisecond),
			Timeout:    Duration(30 * time.Second),
			ChunkSize:  25,
		},
		Stooq: Stooq{
			Interval: "d",
			Suffix:   ".us",
		},
		Yahoo: Yahoo{
			Interval: "1d",
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads YAML config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override select fields
// for secrecy.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATAREADER_SOURCE"); v != "" {
		cfg.Reader.Source = v
	}
	if v := os.Getenv("DATAREADER_SYMBOLS"); v != "" {
		cfg.Reader.Symbols = splitCSV(v)
	}
	if v := os.Getenv("DATAREADER_START"); v != "" {
		cfg.Reader.Start = v
	}
	if v := os.Getenv("DATAREADER_END"); v != "" {
		cfg.Reader.End = v
	}
	if v := os.Getenv("DATAREADER_RETRY_COUNT"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Reader.RetryCount = x
		}
	}
	if v := os.Getenv("DATAREADER_PAUSE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Reader.Pause = Duration(d)
		}
	}
	if v := os.Getenv("DATAREADER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Reader.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("DATAREADER_CHUNK_SIZE"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Reader.ChunkSize = x
		}
	}
	if v := os.Getenv("YAHOO_CRUMB"); v != "" {
		cfg.Yahoo.Crumb = v
	}
	if v := os.Getenv("YAHOO_CRUMB_URL"); v != "" {
		cfg.Yahoo.CrumbURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
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
