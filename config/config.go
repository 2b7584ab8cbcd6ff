// Package config loads the optional .flowc.yaml project file: default
// output path, frontend include search paths, and a diagnostic color
// override, decoded with gopkg.in/yaml.v3 rather than growing a
// flag-only config story.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the decoded shape of a .flowc.yaml file. Every field is
// optional; a missing file yields the zero Config, which callers treat
// as "use built-in defaults."
type Config struct {
	Output      string   `yaml:"output"`
	IncludeDirs []string `yaml:"include_dirs"`
	Color       *bool    `yaml:"color"`
}

// Load reads and parses path. A missing file is not an error: it
// returns the zero Config so callers can fall back to built-in
// defaults without special-casing "no config present."
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Discover looks for explicitPath if given, otherwise for .flowc.yaml
// next to sourceFile, and loads whichever is found (or the zero Config
// if neither exists).
func Discover(explicitPath, sourceFile string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}
	dir := filepath.Dir(sourceFile)
	return Load(filepath.Join(dir, ".flowc.yaml"))
}

// ResolveOutput returns the effective output path: the CLI flag if
// non-empty, else the config's Output, else fallback.
func (c *Config) ResolveOutput(flagValue, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	if c != nil && c.Output != "" {
		return c.Output
	}
	return fallback
}

// ResolveColor returns whether diagnostic output should be colored:
// the CLI's --no-color flag always wins, then the config's override,
// then def (typically an isatty check).
func (c *Config) ResolveColor(noColorFlag bool, def bool) bool {
	if noColorFlag {
		return false
	}
	if c != nil && c.Color != nil {
		return *c.Color
	}
	return def
}
