package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/coursemod/internal/logger"
	"github.com/MrSnakeDoc/coursemod/internal/manifest"
	"github.com/MrSnakeDoc/coursemod/internal/resource"
	"github.com/MrSnakeDoc/coursemod/internal/store"
	"github.com/MrSnakeDoc/coursemod/internal/utils"

	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownModule   = errors.New("unknown module")
	ErrDuplicateModule = errors.New("duplicate module")
)

const DefaultConcurrency = 4

// Registry owns the modules of one course and persists their metadata.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*resource.Module
	order   []string

	store       store.Store
	concurrency int
}

func New(st store.Store, concurrency int) *Registry {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Registry{
		modules:     make(map[string]*resource.Module),
		store:       st,
		concurrency: concurrency,
	}
}

// LogTransition is a resource.Listener reporting state changes at debug level.
func LogTransition(name string, from, to resource.State) {
	logger.Debug("module %s: %s -> %s", name, from, to)
}

// Load validates the whole document, then registers every module it describes.
// Persisted metadata of modules the document no longer lists is dropped.
func (r *Registry) Load(doc *manifest.Document, f manifest.Factory) error {
	mods, err := doc.Build(f)
	if err != nil {
		return err
	}
	for _, m := range mods {
		if err := r.Add(m); err != nil {
			return err
		}
	}
	logger.Debug("registry loaded %d modules from %q", len(mods), doc.Name)
	return r.prune()
}

func (r *Registry) prune() error {
	if r.store == nil {
		return nil
	}
	for name := range r.store.All() {
		if _, ok := r.Get(name); ok {
			continue
		}
		logger.Debug("dropping metadata of %s, no longer in the manifest", name)
		if err := r.store.Delete(name); err != nil {
			return fmt.Errorf("failed to drop metadata of %s: %w", name, err)
		}
	}
	return nil
}

func (r *Registry) Add(m *resource.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[m.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, m.Name())
	}
	r.modules[m.Name()] = m
	r.order = append(r.order, m.Name())
	return nil
}

func (r *Registry) Get(name string) (*resource.Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// All returns the modules in manifest order.
func (r *Registry) All() []*resource.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*resource.Module, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.modules[n])
	}
	return out
}

// Select resolves names, failing on the first unknown one.
func (r *Registry) Select(names []string) ([]*resource.Module, error) {
	out := make([]*resource.Module, 0, len(names))
	for _, n := range names {
		m, ok := r.Get(n)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownModule, n)
		}
		out = append(out, m)
	}
	return out, nil
}

// FetchAll fetches mods with bounded concurrency. Every module is attempted;
// failures are joined into the returned error. Metadata of each successful
// fetch is persisted right away.
func (r *Registry) FetchAll(ctx context.Context, mods []*resource.Module) error {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []error
	)
	g.SetLimit(r.concurrency)

	for _, m := range mods {
		g.Go(func() error {
			if err := r.fetchOne(ctx, m); err != nil {
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(failed...)
}

func (r *Registry) fetchOne(ctx context.Context, m *resource.Module) error {
	if err := ctx.Err(); err != nil {
		return &resource.OpError{Module: m.Name(), Op: "fetch", Err: err}
	}

	logger.Info("Fetching %s...", m.Name())
	if err := m.Fetch(ctx); err != nil {
		logger.LogError("%v", err)
		return err
	}

	md := m.Metadata()
	if r.store != nil {
		if err := r.store.Put(m.Name(), md); err != nil {
			return &resource.OpError{Module: m.Name(), Op: "persist metadata", Err: err}
		}
	}
	logger.Success("%s is at version %s", m.Name(), displayVersion(md.VersionID))
	return nil
}

// Refresh re-derives every module's state from its local copy.
func (r *Registry) Refresh(ctx context.Context) error {
	var errs []error
	for _, m := range r.All() {
		if err := m.UpdateState(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) Updatable() []*resource.Module {
	return utils.Filter(r.All(), (*resource.Module).IsUpdatable)
}

// LocallyModified lists modules whose local copy changed since their last fetch.
func (r *Registry) LocallyModified(ctx context.Context) ([]*resource.Module, error) {
	var (
		out  []*resource.Module
		errs []error
	)
	for _, m := range r.All() {
		changed, err := m.HasLocalChanges(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			out = append(out, m)
		}
	}
	return out, errors.Join(errs...)
}

// Snapshot returns the metadata of every module, each taken atomically.
func (r *Registry) Snapshot() map[string]resource.Metadata {
	mods := r.All()
	out := make(map[string]resource.Metadata, len(mods))
	for _, m := range mods {
		out[m.Name()] = m.Metadata()
	}
	return out
}

func displayVersion(id string) string {
	if id == "" {
		return "(unversioned)"
	}
	return id
}
