package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// DefaultFile is read from the working directory when --config is not given
	DefaultFile = "flow-editor.toml"

	envPrefix = "FLOW_EDITOR_"
)

// Config holds all configuration for the application
type Config struct {
	Port       int      `koanf:"port"`
	Seed       string   `koanf:"seed"`
	Watch      bool     `koanf:"watch"`
	Verbosity  string   `koanf:"verbosity"`
	VerboseCnt int      `koanf:"verbose"`
	IDs        string   `koanf:"ids"`
	Log        Log      `koanf:"log"`
	Viewport   Viewport `koanf:"viewport"`
}

// Log selects the console log format
type Log struct {
	Format string `koanf:"format"`
}

// Viewport is the initial placement area for new nodes
type Viewport struct {
	Width  float64 `koanf:"width"`
	Height float64 `koanf:"height"`
}

// RegisterFlags adds the configuration flags to a flag set. Flag names use dashes
// where the config key is nested: --log-format sets log.format.
func RegisterFlags(f *pflag.FlagSet) {
	f.String("config", "", "Path to a TOML config file (default "+DefaultFile+")")
	f.IntP("port", "p", 8080, "HTTP port")
	f.String("seed", "", "TOML seed file with the initial nodes and edges (built-in seed when empty)")
	f.BoolP("watch", "w", false, "Re-seed the graph when the seed file changes")
	f.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	f.CountP("verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	f.String("ids", "counter", "Node id strategy: counter or uuid")
	f.String("log-format", "compact", "Log format: compact or json")
	f.Float64("viewport-width", 1280, "Initial viewport width used to place new nodes")
	f.Float64("viewport-height", 720, "Initial viewport height used to place new nodes")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"port":      8080,
		"seed":      "",
		"watch":     false,
		"verbosity": "",
		"verbose":   0,
		"ids":       "counter",
		"log": map[string]interface{}{
			"format": "compact",
		},
		"viewport": map[string]interface{}{
			"width":  1280.0,
			"height": 720.0,
		},
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file. A missing default file is fine, an explicit one must exist.
	path, explicit := configPath(f)
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// 3. Environment Variables
	// Prefix: FLOW_EDITOR_ (e.g., FLOW_EDITOR_VIEWPORT_WIDTH=1920)
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
			if fl.Name == "config" || fl.Name == "help" {
				return "", nil
			}
			return strings.ReplaceAll(fl.Name, "-", "."), posflag.FlagVal(f, fl)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values that cannot be expressed by the flag types
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.IDs {
	case "counter", "uuid":
	default:
		errs = append(errs, fmt.Errorf("unknown id strategy %q", c.IDs))
	}
	switch c.Log.Format {
	case "compact", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if !(c.Viewport.Width > 0 && c.Viewport.Height > 0) || math.IsInf(c.Viewport.Width, 0) || math.IsInf(c.Viewport.Height, 0) {
		errs = append(errs, fmt.Errorf("invalid viewport %gx%g", c.Viewport.Width, c.Viewport.Height))
	}
	if c.Watch && c.Seed == "" {
		errs = append(errs, errors.New("--watch needs a seed file"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func configPath(f *pflag.FlagSet) (string, bool) {
	if f != nil {
		if path, err := f.GetString("config"); err == nil && path != "" {
			return path, true
		}
	}
	return DefaultFile, false
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
