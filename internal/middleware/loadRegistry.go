package middleware

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/coursemod/internal/config"
	"github.com/MrSnakeDoc/coursemod/internal/globalconfig"
	"github.com/MrSnakeDoc/coursemod/internal/kinds"
	"github.com/MrSnakeDoc/coursemod/internal/manifest"
	"github.com/MrSnakeDoc/coursemod/internal/registry"
	"github.com/MrSnakeDoc/coursemod/internal/runner"
	"github.com/MrSnakeDoc/coursemod/internal/service"
	"github.com/MrSnakeDoc/coursemod/internal/store"
	"github.com/spf13/cobra"
)

// Deps are the collaborators BuildRegistry wires into the module kinds.
// Nil fields get production defaults.
type Deps struct {
	HTTP   service.HTTPClient
	Runner runner.CommandRunner
}

// LoadRegistry needs RequireConfig to run first.
func LoadRegistry(cmd *cobra.Command, args []string, next func(cmd *cobra.Command, args []string) error) error {
	pconf, err := Get[*globalconfig.PersistentConfig](cmd, CtxKeyPConfig)
	if err != nil {
		return err
	}

	cfg := config.Default().WithModulesDir(pconf.ModulesDir)
	reg, err := BuildRegistry(cmd.Context(), pconf.Manifest, cfg, Deps{})
	if err != nil {
		return err
	}

	ctx := context.WithValue(cmd.Context(), CtxKeyRegistry, reg)
	cmd.SetContext(ctx)

	return next(cmd, args)
}

// BuildRegistry loads the manifest at source and re-hydrates every module
// from the metadata persisted under cfg.StateDir.
func BuildRegistry(ctx context.Context, source string, cfg config.Config, deps Deps) (*registry.Registry, error) {
	httpClient := deps.HTTP
	if httpClient == nil {
		httpClient = service.NewHTTPClient(cfg.HTTPTimeout)
	}

	st, err := store.NewFS(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	doc, err := manifest.Load(ctx, source, httpClient)
	if err != nil {
		return nil, err
	}

	f := &kinds.Factory{
		Dir:            cfg.ModulesDir,
		HTTP:           httpClient,
		Runner:         deps.Runner,
		GitTimeout:     cfg.GitTimeout,
		MaxArchiveSize: cfg.MaxArchiveSize,
		MaxExtracted:   cfg.MaxExtractedSize,
		Lookup:         st.Get,
		Listener:       registry.LogTransition,
	}

	reg := registry.New(st, cfg.FetchConcurrency)
	if err := reg.Load(doc, f); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", source, err)
	}

	// local copies may have been touched since the last run
	if err := reg.Refresh(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}
