// Package config loads flashdeck settings from flag defaults, an optional
// YAML file, an optional dotenv file, FLASHDECK_* environment variables and
// command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable. A double underscore
// separates nested keys: FLASHDECK_HISTORY__LIMIT sets history.limit.
const EnvPrefix = "FLASHDECK_"

type Config struct {
	DB      string        `koanf:"db" validate:"required"`
	Storage StorageConfig `koanf:"storage"`
	History HistoryConfig `koanf:"history"`
	Log     LogConfig     `koanf:"log"`
	Requeue RequeueConfig `koanf:"requeue"`
}

type StorageConfig struct {
	Key   string `koanf:"key" validate:"required"`
	Quota int64  `koanf:"quota" validate:"gte=0"`
}

type HistoryConfig struct {
	Limit int `koanf:"limit" validate:"min=1,max=1000"`
	Trim  int `koanf:"trim" validate:"gte=0,ltefield=Limit"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// RequeueConfig holds the in-session reinsertion offsets for "again" and
// "hard" ratings.
type RequeueConfig struct {
	Enabled  bool `koanf:"enabled"`
	AgainMin int  `koanf:"again_min" validate:"min=1"`
	AgainMax int  `koanf:"again_max" validate:"gtefield=AgainMin"`
	HardMin  int  `koanf:"hard_min" validate:"min=1"`
	HardMax  int  `koanf:"hard_max" validate:"gtefield=HardMin"`
}

// Flags returns a flag set carrying every setting with its default, plus
// --config naming the YAML file.
func Flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", "", "Path to a YAML config file")
	fs.String("env-file", "", "Path to a dotenv file with FLASHDECK_* variables")
	fs.String("db", "flashdeck.db", "Path to the SQLite database file")
	fs.String("storage.key", "flashdeck-state", "Storage key the state is saved under")
	fs.Int64("storage.quota", 5<<20, "Storage quota in bytes")
	fs.Int("history.limit", 50, "Maximum number of undo steps")
	fs.Int("history.trim", 10, "Undo steps kept when storage is full")
	fs.String("log.level", "info", "Log level: debug, info, warn or error")
	fs.Bool("requeue.enabled", false, "Show again and hard cards later in the same session")
	fs.Int("requeue.again_min", 3, "Minimum cards before an again card returns")
	fs.Int("requeue.again_max", 8, "Maximum cards before an again card returns")
	fs.Int("requeue.hard_min", 5, "Minimum cards before a hard card returns")
	fs.Int("requeue.hard_max", 12, "Maximum cards before a hard card returns")
	return fs
}

// Load merges the config sources. fs must come from Flags and be parsed.
func Load(fs *flag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if path, _ := fs.GetString("env-file"); path != "" {
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
		for name, value := range vars {
			if !strings.HasPrefix(name, EnvPrefix) {
				continue
			}
			key, v := envKey(name, value)
			if err := k.Set(key, v); err != nil {
				return nil, fmt.Errorf("load env file %s: %s: %w", path, name, err)
			}
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// Changed flags override; untouched flags only fill in missing keys.
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(k, v string) (string, any) {
	k = strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	return strings.ReplaceAll(k, "__", "."), v
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := domain.Validator().Struct(c); err != nil {
		return fmt.Errorf("%w: config: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
