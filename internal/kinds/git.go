package kinds

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrSnakeDoc/coursemod/internal/resource"
	"github.com/MrSnakeDoc/coursemod/internal/runner"
)

// Git is a module living in a git repository. A non-empty DeclaredID is
// reported as the local version instead of the checked out commit.
type Git struct {
	URL        string
	Dir        string
	Runner     runner.CommandRunner
	Timeout    time.Duration
	DeclaredID string
}

func (g *Git) cloned() (bool, error) {
	return dirExists(filepath.Join(g.Dir, ".git"))
}

func (g *Git) git(ctx context.Context, args ...string) ([]byte, error) {
	out, err := g.Runner.Run(ctx, g.Timeout, runner.Capture, "git", args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return out, fmt.Errorf("git %s: %w: %s", args[0], err, msg)
		}
		return out, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}

func (g *Git) FetchContent(ctx context.Context) error {
	ok, err := g.cloned()
	if err != nil {
		return err
	}
	if ok {
		_, err = g.git(ctx, "-C", g.Dir, "pull", "--ff-only", "--quiet")
		return err
	}
	_, err = g.git(ctx, "clone", "--quiet", g.URL, g.Dir)
	return err
}

func (g *Git) ReadVersionID(ctx context.Context) (string, bool) {
	if id := strings.TrimSpace(g.DeclaredID); id != "" {
		return id, true
	}
	out, err := g.git(ctx, "-C", g.Dir, "rev-parse", "HEAD")
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(string(out))
	return id, id != ""
}

// HasChangedSince asks git for uncommitted changes; the work tree already
// knows what differs from the fetched revision, so t is not needed.
func (g *Git) HasChangedSince(ctx context.Context, _ time.Time) (bool, error) {
	ok, err := g.cloned()
	if err != nil || !ok {
		return false, err
	}
	out, err := g.git(ctx, "-C", g.Dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) != "", nil
}

func (g *Git) DetectState(context.Context) (resource.State, error) {
	ok, err := g.cloned()
	if err != nil {
		return resource.Error, err
	}
	if ok {
		return resource.Loaded, nil
	}
	return resource.Unloaded, nil
}
