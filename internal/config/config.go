// Package config loads the ragfmt command configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hupe1980/ragfmt/codec"
	"github.com/hupe1980/ragfmt/compress"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "ragfmt.toml"

// Archive backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendBolt   = "bolt"
	BackendMinio  = "minio"
	BackendS3     = "s3"
)

// Config is the full command configuration.
type Config struct {
	Normalize NormalizeConfig `toml:"normalize"`
	Output    OutputConfig    `toml:"output"`
	Log       LogConfig       `toml:"log"`
	Archive   ArchiveConfig   `toml:"archive"`
}

// NormalizeConfig holds normalization defaults.
type NormalizeConfig struct {
	QueryMode        string   `toml:"query_mode"`
	ExtraChunkFields []string `toml:"extra_chunk_fields"`
	KeywordsHigh     []string `toml:"keywords_high"`
	KeywordsLow      []string `toml:"keywords_low"`
	Concurrency      int      `toml:"concurrency"`
}

// OutputConfig controls how envelopes are written.
type OutputConfig struct {
	Codec  string `toml:"codec"`
	Pretty bool   `toml:"pretty"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ArchiveConfig selects and configures the envelope archive.
type ArchiveConfig struct {
	Backend        string `toml:"backend"`
	Path           string `toml:"path"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	Secure         bool   `toml:"secure"`
	Codec          string `toml:"codec"`
	Compression    string `toml:"compression"`
	BytesPerSecond int64  `toml:"bytes_per_second"`
	MaxInFlight    int64  `toml:"max_in_flight"`
	DynamoTable    string `toml:"dynamo_table"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Output: OutputConfig{
			Codec:  codec.Default.Name(),
			Pretty: false,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Archive: ArchiveConfig{
			Backend:     BackendNone,
			Codec:       codec.Default.Name(),
			Compression: compress.ZSTD.String(),
			Secure:      true,
		},
	}
}

// Load reads path on top of Default and validates the result.
// If path is empty, DefaultFile is used when it exists.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return cfg, nil
			}
			return Config{}, fmt.Errorf("failed to stat %q: %w", DefaultFile, err)
		}
		path = DefaultFile
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	if _, ok := codec.ByName(c.Output.Codec); !ok {
		errs = append(errs, fmt.Errorf("[output].codec: unknown codec %q", c.Output.Codec))
	}
	if c.Normalize.Concurrency < 0 {
		errs = append(errs, errors.New("[normalize].concurrency: must not be negative"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("[log].level: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("[log].format: unknown format %q", c.Log.Format))
	}

	errs = append(errs, c.Archive.validate()...)
	return errors.Join(errs...)
}

func (a ArchiveConfig) validate() []error {
	var errs []error

	switch a.Backend {
	case BackendNone, BackendMemory:
	case BackendLocal, BackendBolt:
		if a.Path == "" {
			errs = append(errs, fmt.Errorf("[archive].path: required for backend %q", a.Backend))
		}
	case BackendS3:
		if a.Bucket == "" {
			errs = append(errs, fmt.Errorf("[archive].bucket: required for backend %q", a.Backend))
		}
	case BackendMinio:
		if a.Bucket == "" {
			errs = append(errs, fmt.Errorf("[archive].bucket: required for backend %q", a.Backend))
		}
		if a.Endpoint == "" {
			errs = append(errs, fmt.Errorf("[archive].endpoint: required for backend %q", a.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("[archive].backend: unknown backend %q", a.Backend))
	}

	if _, ok := codec.ByName(a.Codec); !ok {
		errs = append(errs, fmt.Errorf("[archive].codec: unknown codec %q", a.Codec))
	}
	if _, err := compress.ParseType(a.Compression); err != nil {
		errs = append(errs, fmt.Errorf("[archive].compression: %w", err))
	}
	if a.BytesPerSecond < 0 {
		errs = append(errs, errors.New("[archive].bytes_per_second: must not be negative"))
	}
	if a.MaxInFlight < 0 {
		errs = append(errs, errors.New("[archive].max_in_flight: must not be negative"))
	}
	if a.DynamoTable != "" && a.Backend != BackendS3 {
		errs = append(errs, errors.New("[archive].dynamo_table: only supported with backend \"s3\""))
	}
	return errs
}

// Enabled reports whether an archive backend is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Backend != "" && a.Backend != BackendNone
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, err
	}
	return level, nil
}
