package kinds

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrSnakeDoc/coursemod/internal/resource"
	"github.com/MrSnakeDoc/coursemod/internal/runner"
	"github.com/MrSnakeDoc/coursemod/internal/service"
)

const (
	KindArchive = "archive"
	KindGit     = "git"
)

// Factory picks a module kind from the location and wires its dependencies.
//
// Fields:
//   - Dir: parent directory of every module's local copy
//   - MaxExtracted: cap on the bytes one archive may expand to
//   - Lookup: persisted metadata by module name, used to re-hydrate modules
//   - Listener: subscribed to every created module's state transitions
type Factory struct {
	Dir            string
	HTTP           service.HTTPClient
	Runner         runner.CommandRunner
	GitTimeout     time.Duration
	MaxArchiveSize int64
	MaxExtracted   int64
	Lookup         func(name string) (resource.Metadata, bool)
	Listener       resource.Listener
}

// KindOf reports which kind backs a location.
func KindOf(loc *url.URL) string {
	switch {
	case loc.Scheme == "git", loc.Scheme == "ssh", strings.HasPrefix(loc.Scheme, "git+"):
		return KindGit
	case strings.HasSuffix(loc.Path, ".git"):
		return KindGit
	default:
		return KindArchive
	}
}

func (f *Factory) CreateModule(name string, location *url.URL, versionID string, replCommands []string) (*resource.Module, error) {
	dir, err := f.moduleDir(name)
	if err != nil {
		return nil, err
	}

	var hooks resource.Hooks
	switch KindOf(location) {
	case KindGit:
		r := f.Runner
		if r == nil {
			r = &runner.ExecRunner{Env: []string{"GIT_TERMINAL_PROMPT=0"}}
		}
		hooks = &Git{
			URL:        strings.TrimPrefix(location.String(), "git+"),
			Dir:        dir,
			Runner:     r,
			Timeout:    f.GitTimeout,
			DeclaredID: versionID,
		}
	default:
		client := f.HTTP
		if client == nil {
			client = service.NewHTTPClient(60 * time.Second)
		}
		hooks = &Archive{
			URL:          location.String(),
			Dir:          dir,
			Client:       client,
			MaxSize:      f.MaxArchiveSize,
			MaxExtracted: f.MaxExtracted,
			DeclaredID:   versionID,
		}
	}

	opts := []resource.Option{resource.WithReplInitialCommands(replCommands)}
	if f.Lookup != nil {
		if md, ok := f.Lookup(name); ok {
			opts = append(opts, resource.WithLocalMetadata(md))
		}
	}

	m := resource.NewModule(name, location, versionID, hooks, opts...)
	m.Monitor().AddListener(f.Listener)
	return m, nil
}

// moduleDir maps a module name to its directory, refusing names that would escape Dir.
func (f *Factory) moduleDir(name string) (string, error) {
	clean := strings.TrimSpace(name)
	if clean == "" || clean == "." || clean == ".." || strings.ContainsAny(clean, `/\`) {
		return "", fmt.Errorf("invalid module name %q", name)
	}
	return filepath.Join(f.Dir, clean), nil
}
