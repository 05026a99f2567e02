package config

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/saylorsolutions/dispatch/logx"
	"github.com/saylorsolutions/dispatch/patterns/eventbus"
	"gopkg.in/yaml.v3"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds the settings shared by the dispatch components.
type Config struct {
	LogLevel string `yaml:"log_level"`
	LogColor string `yaml:"log_color"`
	// DrainTimeout bounds how long an event bus waits for in-flight handlers on close.
	// Zero waits indefinitely.
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		LogLevel: logx.LevelInfo.String(),
		LogColor: logx.ColorAuto.String(),
	}
}

// Load reads a YAML file at path over [Default], then applies environment overrides with [Config.WithEnv] and validates the result.
// An empty path skips the file.
func Load(path string) (Config, error) {
	conf := Default()
	if len(path) > 0 {
		path = filepath.Clean(path)
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return Config{}, fmt.Errorf("%w: unsupported config format '%s', only YAML is supported", ErrInvalidConfig, ext)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		conf, err = Parse(data)
		if err != nil {
			return Config{}, err
		}
	}
	conf, err := conf.WithEnv()
	if err != nil {
		return Config{}, err
	}
	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// Parse decodes YAML data over [Default].
// Unknown fields and multiple documents are rejected.
func Parse(data []byte) (Config, error) {
	conf := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&conf); err != nil {
		if errors.Is(err, io.EOF) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: config contains multiple documents or trailing content", ErrInvalidConfig)
	}
	return conf, nil
}

// WithEnv returns a copy of c with values overridden by [EnvLogLevel], [EnvLogColor], and [EnvDrainTimeout] where they're set.
// A drain timeout that can't be parsed as a [time.Duration] is an error.
func (c Config) WithEnv() (Config, error) {
	if val, ok := lookupEnv(EnvLogLevel); ok {
		c.LogLevel = val
	}
	if val, ok := lookupEnv(EnvLogColor); ok {
		c.LogColor = val
	}
	if val, ok := lookupEnv(EnvDrainTimeout); ok {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return c, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvDrainTimeout, err)
		}
		c.DrainTimeout = timeout
	}
	return c, nil
}

// Validate checks that every field has a recognized value.
func (c Config) Validate() error {
	var errs []error
	if _, ok := logx.LookupLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("unknown log level '%s'", c.LogLevel))
	}
	if _, ok := logx.ParseColorMode(c.LogColor); !ok {
		errs = append(errs, fmt.Errorf("unknown log color mode '%s'", c.LogColor))
	}
	if c.DrainTimeout < 0 {
		errs = append(errs, fmt.Errorf("negative drain timeout %s", c.DrainTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Level returns the parsed log level, or [logx.LevelInfo] if it's not recognized.
func (c Config) Level() logx.Level {
	return logx.ParseLevel(c.LogLevel)
}

// ColorMode returns the parsed color mode, or [logx.ColorAuto] if it's not recognized.
func (c Config) ColorMode() logx.ColorMode {
	mode, _ := logx.ParseColorMode(c.LogColor)
	return mode
}

// Manager creates a [logx.Manager] writing to out with the configured level and color mode.
func (c Config) Manager(out io.Writer) *logx.Manager {
	return logx.NewManager(logx.ManagerConfig{
		Out:   out,
		Level: c.Level(),
		Color: c.ColorMode(),
	})
}

// BusOptions returns the [eventbus.ConfigFunc] values implied by c.
func (c Config) BusOptions() []eventbus.ConfigFunc {
	var opts []eventbus.ConfigFunc
	if c.DrainTimeout > 0 {
		opts = append(opts, eventbus.WithDrainTimeout(c.DrainTimeout))
	}
	return opts
}
