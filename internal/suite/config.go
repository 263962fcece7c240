// Package suite loads harness configuration and discovers test scripts.
package suite

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// DatabasePlaceholder in a server argument is replaced with the per-run
// temporary database path.
const DatabasePlaceholder = "{db}"

// Config holds the harness settings, usually read from .grntest.yaml.
type Config struct {
	// Groonga is the server binary to spawn for each script.
	Groonga string `yaml:"groonga"`
	// Args are the server arguments. The {db} placeholder is replaced
	// with a fresh temporary database path per script.
	Args []string `yaml:"args"`
	// ReadTimeout is the number of seconds to wait for the first byte of
	// a response before a drain gives up.
	ReadTimeout float64 `yaml:"read_timeout"`
	// OnError is "default" or "omit".
	OnError string `yaml:"on_error"`
	// History is an optional SQLite path for recording run outcomes.
	History string `yaml:"history"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	return Config{
		Groonga:     "groonga",
		Args:        []string{"-n", DatabasePlaceholder},
		ReadTimeout: 1,
		OnError:     "default",
	}
}

// Load reads, validates, and unmarshals a config file over the defaults.
// The YAML document is checked against the embedded CUE schema first so a
// typo fails loudly instead of silently falling back to a default.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := validate(data); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func validate(data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	file, err := cueyaml.Extract("config.yaml", data)
	if err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return fmt.Errorf("build config: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
