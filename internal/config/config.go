// Package config loads the ezdb command configuration.
//
// Precedence, highest first: flags, EZDB_ environment variables, the YAML
// config file, built-in defaults. Nested keys are addressed with a double
// underscore in the environment, e.g. EZDB_TARGET__HOST=db.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ezdb/ezdb"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "EZDB_"

// Default config file names, searched in the working directory.
var defaultFiles = []string{"ezdb.yaml", "ezdb.yml"}

// Config is the full command configuration.
type Config struct {
	Target    ezdb.Target  `koanf:"target"`
	Engine    ezdb.Config  `koanf:"engine"`
	Tables    []ezdb.Table `koanf:"tables"`
	Redis     RedisConfig  `koanf:"redis"`
	LogLevel  string       `koanf:"log_level"`
	LogFormat string       `koanf:"log_format"`

	// FileUsed is the config file that was read, empty if none.
	FileUsed string `koanf:"-"`
}

// RedisConfig enables the Redis retention locker when Addr is set.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"dialect":           "target.dialect",
	"path":              "target.path",
	"host":              "target.host",
	"port":              "target.port",
	"database":          "target.database",
	"user":              "target.user",
	"password":          "target.password",
	"create-if-missing": "target.create_if_missing",
	"redis-addr":        "redis.addr",
	"chunk-size":        "engine.chunk_size",
	"max-delete-rows":   "engine.max_delete_row_size",
	"retention-pause":   "engine.retention_pause",
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range defaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads the configuration. cfgFile may be empty to use the default file
// names; flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"target.dialect": "sqlite",
		"log_level":      "info",
		"log_format":     "text",
		"redis.prefix":   "ezdb:",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// EZDB_ENGINE__CHUNK_SIZE -> engine.chunk_size
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = used
	for i := range cfg.Tables {
		if err := cfg.Tables[i].Validate(); err != nil {
			return nil, fmt.Errorf("table %d: %w", i, err)
		}
	}
	return &cfg, nil
}

// Logger builds the slog logger described by LogLevel and LogFormat.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", c.LogFormat)
}

// Table returns the configured table with the given name.
func (c *Config) Table(name string) (*ezdb.Table, error) {
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ezdb.ErrUnknownTable, name)
}

// TablePointers returns the configured tables as pointers.
func (c *Config) TablePointers() []*ezdb.Table {
	out := make([]*ezdb.Table, len(c.Tables))
	for i := range c.Tables {
		out[i] = &c.Tables[i]
	}
	return out
}
