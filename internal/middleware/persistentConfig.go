package middleware

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MrSnakeDoc/coursemod/internal/globalconfig"
	"github.com/MrSnakeDoc/coursemod/internal/logger"
	"github.com/MrSnakeDoc/coursemod/internal/utils/pathutils"
	"github.com/spf13/cobra"
)

// Environment overrides, for machines where 'coursemod init' never ran (CI).
const (
	EnvManifest   = "COURSEMOD_MANIFEST"
	EnvModulesDir = "COURSEMOD_MODULES_DIR"
)

// RequireConfig puts the persistent configuration into the command context.
// EnvManifest replaces the saved config file entirely; EnvModulesDir only
// overrides where modules live.
func RequireConfig(cmd *cobra.Command, args []string, next func(cmd *cobra.Command, args []string) error) error {
	pconf, err := resolveConfig()
	if err != nil {
		return err
	}

	ctx := context.WithValue(cmd.Context(), CtxKeyPConfig, pconf)
	cmd.SetContext(ctx)

	return next(cmd, args)
}

func resolveConfig() (*globalconfig.PersistentConfig, error) {
	var pconf *globalconfig.PersistentConfig

	if src := strings.TrimSpace(os.Getenv(EnvManifest)); src != "" {
		if !globalconfig.IsRemote(src) {
			abs, err := pathutils.ToAbsolutePath(src)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", EnvManifest, err)
			}
			src = abs
		}
		logger.Debug("manifest %s taken from %s", src, EnvManifest)
		pconf = &globalconfig.PersistentConfig{Manifest: src}
	} else {
		loaded, err := globalconfig.LoadPersistentConfig()
		if err != nil {
			return nil, fmt.Errorf("missing config: %w", err)
		}
		pconf = loaded
	}

	if dir := strings.TrimSpace(os.Getenv(EnvModulesDir)); dir != "" {
		abs, err := pathutils.ToAbsolutePath(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvModulesDir, err)
		}
		pconf.ModulesDir = abs
	}
	return pconf, nil
}
