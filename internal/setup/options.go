package setup

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Options are host-level settings read from an optional TOML file. They
// configure the process, not the applications; application configuration
// lives in the set-up document.
type Options struct {
	// SetupPath is the set-up document location.
	SetupPath string `toml:"setup"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// Headless disables the terminal container.
	Headless bool `toml:"headless"`

	// Watch reconciles the host against set-up file changes.
	Watch bool `toml:"watch"`

	// ComponentPaths are base search paths for script components.
	ComponentPaths []string `toml:"component_paths"`
}

// DefaultOptions returns the defaults applied before any file or flag.
func DefaultOptions() Options {
	return Options{
		SetupPath: "./setup.json",
		LogLevel:  "info",
	}
}

// LoadOptions reads options from a TOML file, merged over the defaults. A
// missing file is not an error; the defaults apply.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, fmt.Errorf("reading options file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parsing options file %s: %w", path, err)
	}
	return opts, nil
}
