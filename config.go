package gpustate

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/gpustate/backend"
)

// Config describes a device in a TOML file:
//
//	backend = "gl46"          # registered backend; empty picks the best
//	min_version = ">= 4.6"    # semantic version constraint
//	log_level = "debug"       # debug, info, warn or error; empty keeps the package logger
//	max_texture_units = 8
//	max_uniform_buffer_units = 4
type Config struct {
	Backend               string  `toml:"backend"`
	MinVersion            string  `toml:"min_version"`
	LogLevel              string  `toml:"log_level"`
	MaxTextureUnits       *uint32 `toml:"max_texture_units"`
	MaxUniformBufferUnits *uint32 `toml:"max_uniform_buffer_units"`
}

// LoadConfig reads a TOML device configuration. Unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("gpustate: load config %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("gpustate: load config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses a TOML device configuration. Unknown keys are an
// error.
func ParseConfig(data string) (Config, error) {
	var cfg Config
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("gpustate: parse config: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("gpustate: parse config: %w", err)
	}
	return cfg, nil
}

func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
}

// Options converts the configuration to device options.
func (c Config) Options() ([]DeviceOption, error) {
	var opts []DeviceOption
	if c.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return nil, fmt.Errorf("gpustate: config log_level: %w", err)
		}
		opts = append(opts, WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))))
	}
	if c.MinVersion != "" {
		opts = append(opts, WithMinBackendVersion(c.MinVersion))
	}
	if c.MaxTextureUnits != nil {
		opts = append(opts, WithMaxTextureUnits(backend.Unit(*c.MaxTextureUnits)))
	}
	if c.MaxUniformBufferUnits != nil {
		opts = append(opts, WithMaxUniformBufferUnits(backend.Unit(*c.MaxUniformBufferUnits)))
	}
	return opts, nil
}

// Open creates a device on the backend the configuration names, or on the
// best registered backend when it names none. opts are applied after the
// options of the configuration.
func Open(cfg Config, opts ...DeviceOption) (*Device, error) {
	cfgOpts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	b, err := backend.Open(cfg.Backend)
	if err != nil {
		return nil, err
	}
	name := cfg.Backend
	if name == "" {
		name = backend.BestName()
	}
	Logger().Info("gpustate: backend selected", "backend", name)
	return NewDevice(b, append(cfgOpts, opts...)...)
}
