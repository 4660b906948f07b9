// Package config loads the optional YAML configuration file. Values set on
// the command line take precedence over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/relcsv/internal/decompose"
	"github.com/tordrt/relcsv/internal/logging"
	"github.com/tordrt/relcsv/internal/schema"
)

// Config mirrors the CLI flags that can be preset in a file
type Config struct {
	OutDir       string `yaml:"out_dir"`
	Compress     bool   `yaml:"compress"`
	Manifest     bool   `yaml:"manifest"`
	ShapePolicy  string `yaml:"shape_policy"`
	FKPolicy     string `yaml:"fk_policy"`
	MaxSchemas   *int   `yaml:"max_schemas"`
	ParentColumn string `yaml:"parent_column"`
	SeqColumn    string `yaml:"seq_column"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
}

// Load reads and validates the file at path
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses a YAML document. Unknown keys are rejected. An empty
// document yields the zero Config.
func Decode(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enumerated fields and the link column names
func (c *Config) Validate() error {
	if _, err := schema.ParseShapePolicy(c.ShapePolicy); err != nil {
		return err
	}
	if _, err := schema.ParseFKPolicy(c.FKPolicy); err != nil {
		return err
	}
	if c.MaxSchemas != nil && *c.MaxSchemas < 0 {
		return fmt.Errorf("invalid max_schemas: %d (must be >= 0)", *c.MaxSchemas)
	}
	if err := decompose.CheckColumns(c.ParentColumn, c.SeqColumn); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return err
	}
	return nil
}

// Registry validates c and returns the registry settings it describes
func (c *Config) Registry() (schema.Config, error) {
	cfg := schema.DefaultConfig()
	if err := c.Validate(); err != nil {
		return cfg, err
	}

	shape, err := schema.ParseShapePolicy(c.ShapePolicy)
	if err != nil {
		return cfg, err
	}
	fk, err := schema.ParseFKPolicy(c.FKPolicy)
	if err != nil {
		return cfg, err
	}
	cfg.ShapePolicy = shape
	cfg.FKPolicy = fk
	if c.MaxSchemas != nil {
		cfg.MaxSchemas = *c.MaxSchemas
	}
	return cfg, nil
}
