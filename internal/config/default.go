package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	appName = "coursemod"

	DefaultHTTPTimeout      = 60 * time.Second
	DefaultGitTimeout       = 5 * time.Minute
	DefaultFetchConcurrency = 4
	DefaultMaxArchiveSize   = 512 << 20
	DefaultMaxExtractedSize = 2 << 30
)

// Config holds the runtime knobs of a coursemod invocation.
type Config struct {
	ModulesDir       string
	StateDir         string
	HTTPTimeout      time.Duration
	GitTimeout       time.Duration
	FetchConcurrency int
	MaxArchiveSize   int64
	MaxExtractedSize int64
}

func baseConfig() Config {
	return Config{
		HTTPTimeout:      DefaultHTTPTimeout,
		GitTimeout:       DefaultGitTimeout,
		FetchConcurrency: DefaultFetchConcurrency,
		MaxArchiveSize:   DefaultMaxArchiveSize,
		MaxExtractedSize: DefaultMaxExtractedSize,
	}
}

// Default returns the configuration used when nothing overrides it.
// Directories follow XDG conventions under the user's home.
func Default() Config {
	cfg := baseConfig()
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	cfg.ModulesDir = filepath.Join(xdg("XDG_DATA_HOME", filepath.Join(home, ".local", "share")), appName, "modules")
	cfg.StateDir = filepath.Join(xdg("XDG_STATE_HOME", filepath.Join(home, ".local", "state")), appName)
	return cfg
}

// WithModulesDir overrides the modules directory when dir is non-empty.
func (c Config) WithModulesDir(dir string) Config {
	if dir != "" {
		c.ModulesDir = dir
	}
	return c
}

func xdg(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}
