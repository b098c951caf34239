package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config tunes the engine. All fields have working zero values, so an
// empty file and a missing file both yield the defaults.
type Config struct {
	// Solver selects a registered solver by name; empty picks the first
	// solver whose supported kind needs the fewest compilation passes.
	Solver string `yaml:"solver"`

	// PruneImpossibleActions makes the grounding pass drop ground actions
	// whose precondition is statically false.
	PruneImpossibleActions bool `yaml:"prune_impossible_actions"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{LogLevel: "info"}
}

// LoadConfig reads a YAML config file. A missing file yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
