package globalconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrSnakeDoc/coursemod/internal/utils"
	"github.com/MrSnakeDoc/coursemod/internal/utils/pathutils"
)

var ErrNotInitialized = errors.New("no configuration found, please run 'coursemod init' first")

// PersistentConfig is what 'coursemod init' remembers between runs.
type PersistentConfig struct {
	Manifest   string `yaml:"manifest"`
	ModulesDir string `yaml:"modules_dir,omitempty"`
}

const (
	configDir  = ".config/coursemod"
	configFile = "config.yml"
)

func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

func LoadPersistentConfig() (*PersistentConfig, error) {
	fullConfigDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}
	configPath := filepath.Join(fullConfigDir, configFile)

	var cfg PersistentConfig
	err = utils.FileReader(configPath, utils.FileTypeYAML, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	if cfg.Manifest == "" {
		return nil, fmt.Errorf("config file %s has no manifest", configPath)
	}

	if !IsRemote(cfg.Manifest) {
		absPath, err := pathutils.ToAbsolutePath(cfg.Manifest)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve manifest path: %w", err)
		}
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("manifest not found at %s: %w", cfg.Manifest, err)
		}
		cfg.Manifest = absPath
	}

	if cfg.ModulesDir != "" {
		if cfg.ModulesDir, err = pathutils.ToAbsolutePath(cfg.ModulesDir); err != nil {
			return nil, fmt.Errorf("failed to resolve modules dir: %w", err)
		}
	}

	return &cfg, nil
}

func (c *PersistentConfig) Save() error {
	fullConfigDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	out := *c
	if !IsRemote(out.Manifest) {
		if out.Manifest, err = pathutils.ToHomePathFormat(out.Manifest); err != nil {
			return fmt.Errorf("failed to convert to home path format: %w", err)
		}
	}
	if out.ModulesDir != "" {
		if out.ModulesDir, err = pathutils.ToHomePathFormat(out.ModulesDir); err != nil {
			return fmt.Errorf("failed to convert to home path format: %w", err)
		}
	}

	return utils.CreateFile(filepath.Join(fullConfigDir, configFile), out, utils.FileTypeYAML, 0o644)
}

// IsRemote reports whether the manifest lives behind an http(s) URL.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
