// Package config handles avacore.toml run configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/colorfulnotion/avacore/avaerrors"
	"github.com/colorfulnotion/avacore/isa"
	"github.com/colorfulnotion/avacore/log"
)

const FileName = "avacore.toml"

const (
	DefaultMaxCycles = 1_000_000
	maxStackDepth    = 1 << 16
)

// Config represents an avacore.toml file.
type Config struct {
	Log   LogConfig   `toml:"log"`
	Run   RunConfig   `toml:"run"`
	Trace TraceConfig `toml:"trace"`

	// Path is the file the configuration was read from (set at load time).
	Path string `toml:"-"`
}

type LogConfig struct {
	Level   string `toml:"level"`
	Modules string `toml:"modules"` // comma separated, or "all"
	Syslog  string `toml:"syslog"`  // host:port, empty disables
	JSON    bool   `toml:"json"`
}

type RunConfig struct {
	MaxCycles    uint64 `toml:"max_cycles"`
	StackDepth   int    `toml:"stack_depth"`
	StackLatency int    `toml:"stack_latency"` // busy cycles after each stack transfer
	UartBusy     int    `toml:"uart_busy"`     // busy cycles after each output byte
	StrictPrint  bool   `toml:"strict_print"`
}

// TraceConfig names where traces go. Empty fields disable that output.
type TraceConfig struct {
	JSONL string `toml:"jsonl"`
	DB    string `toml:"db"`
	Chart string `toml:"chart"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Run: RunConfig{MaxCycles: DefaultMaxCycles, StackDepth: isa.STACK_N},
	}
}

// Load parses the file at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// Parse decodes TOML text on top of the defaults and validates the result.
// Unknown keys are rejected.
func Parse(text string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(text, c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys %s: %w", strings.Join(keys, ", "), avaerrors.ErrHBadConfig)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find avacore.toml. It returns the
// defaults when no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %v: %w", err, avaerrors.ErrHBadConfig)
	}
	if c.Run.StackDepth < 1 || c.Run.StackDepth > maxStackDepth {
		return fmt.Errorf("run.stack_depth %d not in 1..%d: %w", c.Run.StackDepth, maxStackDepth, avaerrors.ErrHBadConfig)
	}
	if c.Run.StackLatency < 0 {
		return fmt.Errorf("run.stack_latency %d: %w", c.Run.StackLatency, avaerrors.ErrHBadConfig)
	}
	if c.Run.UartBusy < 0 {
		return fmt.Errorf("run.uart_busy %d: %w", c.Run.UartBusy, avaerrors.ErrHBadConfig)
	}
	return nil
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
