// Package config loads chrona.yaml / chrona.json.
//
// YAML is coerced to JSON first so both formats go through the same strict
// decoder (DisallowUnknownFields). Missing sections keep their defaults.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/roach88/chrona/internal/entity"
	"github.com/roach88/chrona/internal/logx"
	"github.com/roach88/chrona/internal/registry"
)

type Config struct {
	Logging LoggingConfig `json:"logging"`
	Engine  EngineConfig  `json:"engine"`
	Store   StoreConfig   `json:"store"`
	Keys    KeysConfig    `json:"keys"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// EngineConfig holds scheduler defaults. Scenario files may override them.
type EngineConfig struct {
	CooldownScale float64 `json:"cooldown_scale"`
	CooldownK     float64 `json:"cooldown_k"`
	MaxSteps      int     `json:"max_steps"`
}

type StoreConfig struct {
	Path string `json:"path"`
}

// KeysConfig selects the generator behind NextFreshKey.
type KeysConfig struct {
	Generator string `json:"generator"` // sequential | uuid
	Prefix    string `json:"prefix"`
}

const (
	GeneratorSequential = "sequential"
	GeneratorUUID       = "uuid"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "warn", Console: true},
		Engine: EngineConfig{
			CooldownScale: entity.DefaultCurve.Scale,
			CooldownK:     entity.DefaultCurve.K,
			MaxSteps:      10000,
		},
		Keys: KeysConfig{Generator: GeneratorSequential, Prefix: "actor-"},
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(path, b)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data, choosing YAML or JSON by the extension of name.
func Parse(name string, data []byte) (*Config, error) {
	jb, _, err := coerceToJSONBytes(name, data)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if c.Logging.Level != "" && !logx.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if c.Logging.File.Enabled && strings.TrimSpace(c.Logging.File.Path) == "" {
		errs = append(errs, errors.New("logging.file.path: required when file logging is enabled"))
	}
	if err := c.Curve().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	if c.Engine.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("engine.max_steps: must be >= 0, got %d", c.Engine.MaxSteps))
	}
	switch c.Keys.Generator {
	case "", GeneratorSequential, GeneratorUUID:
	default:
		errs = append(errs, fmt.Errorf("keys.generator: must be %q or %q, got %q",
			GeneratorSequential, GeneratorUUID, c.Keys.Generator))
	}
	return errors.Join(errs...)
}

// Curve returns the cooldown curve described by the engine section.
func (c *Config) Curve() entity.Curve {
	return entity.Curve{Scale: c.Engine.CooldownScale, K: c.Engine.CooldownK}
}

// KeyGenerator builds the configured fresh-key generator.
func (c *Config) KeyGenerator() registry.KeyGenerator {
	if c.Keys.Generator == GeneratorUUID {
		return registry.UUIDv7Generator{}
	}
	return registry.NewSequentialGenerator(c.Keys.Prefix)
}

// Logx converts the logging section for logx.New.
func (c *Config) Logx() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}
