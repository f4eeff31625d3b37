package registry

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/coursemod/internal/logger"
	"github.com/MrSnakeDoc/coursemod/internal/manifest"
	"github.com/MrSnakeDoc/coursemod/internal/resource"
	"github.com/MrSnakeDoc/coursemod/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHooks struct {
	version  string
	fetchErr error
	changed  bool
	detected resource.State

	gauge *gauge
	delay time.Duration
}

// gauge records the peak number of concurrent fetches.
type gauge struct {
	cur  atomic.Int32
	peak atomic.Int32
}

func (g *gauge) enter() {
	n := g.cur.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (s *stubHooks) FetchContent(context.Context) error {
	if s.gauge != nil {
		s.gauge.enter()
		defer s.gauge.cur.Add(-1)
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.fetchErr
}

func (s *stubHooks) ReadVersionID(context.Context) (string, bool) {
	return s.version, s.version != ""
}

func (s *stubHooks) HasChangedSince(context.Context, time.Time) (bool, error) {
	return s.changed, nil
}

func (s *stubHooks) DetectState(context.Context) (resource.State, error) {
	return s.detected, nil
}

// stubFactory hands out stubHooks keyed by module name.
type stubFactory struct {
	mu    sync.Mutex
	hooks map[string]*stubHooks
}

func (f *stubFactory) CreateModule(name string, loc *url.URL, versionID string, repl []string) (*resource.Module, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hooks[name]
	if !ok {
		h = &stubHooks{version: versionID}
		f.hooks[name] = h
	}
	m := resource.NewModule(name, loc, versionID, h, resource.WithReplInitialCommands(repl))
	m.Monitor().AddListener(LogTransition)
	return m, nil
}

func newModule(t *testing.T, name, remote string, h *stubHooks, opts ...resource.Option) *resource.Module {
	t.Helper()
	loc, err := url.Parse("https://example.com/" + name + ".zip")
	require.NoError(t, err)
	return resource.NewModule(name, loc, remote, h, opts...)
}

func newTestRegistry(t *testing.T, concurrency int) (*Registry, *store.FS) {
	t.Helper()
	logger.UseTestMode()
	st, err := store.NewFS(t.TempDir())
	require.NoError(t, err)
	return New(st, concurrency), st
}

func TestLoadKeepsManifestOrder(t *testing.T) {
	r, _ := newTestRegistry(t, 0)
	doc := &manifest.Document{
		Name: "course",
		Modules: []map[string]any{
			{"name": "B", "url": "https://example.com/b.zip"},
			{"name": "A", "url": "https://example.com/a.zip", "id": "v1"},
		},
	}

	require.NoError(t, r.Load(doc, &stubFactory{hooks: map[string]*stubHooks{}}))

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "B", all[0].Name())
	assert.Equal(t, "A", all[1].Name())

	a, ok := r.Get("A")
	require.True(t, ok)
	assert.Equal(t, "v1", a.VersionID())
}

func TestLoadDropsMetadataOfRemovedModules(t *testing.T) {
	r, st := newTestRegistry(t, 0)
	require.NoError(t, st.Put("A", resource.Metadata{VersionID: "v1"}))
	require.NoError(t, st.Put("Gone", resource.Metadata{VersionID: "v9"}))

	doc := &manifest.Document{Modules: []map[string]any{
		{"name": "A", "url": "https://example.com/a.zip", "id": "v1"},
	}}
	require.NoError(t, r.Load(doc, &stubFactory{hooks: map[string]*stubHooks{}}))

	_, ok := st.Get("Gone")
	assert.False(t, ok)
	md, ok := st.Get("A")
	require.True(t, ok)
	assert.Equal(t, "v1", md.VersionID)

	// the pruning reached the file, not only the cache
	reopened, err := store.NewFS(filepath.Dir(st.Path()))
	require.NoError(t, err)
	assert.Len(t, reopened.All(), 1)
}

func TestLoadRejectsMalformedDocument(t *testing.T) {
	r, _ := newTestRegistry(t, 0)
	doc := &manifest.Document{Modules: []map[string]any{
		{"name": "A", "url": "https://example.com/a.zip"},
		{"name": "B"},
	}}

	err := r.Load(doc, &stubFactory{hooks: map[string]*stubHooks{}})
	require.ErrorIs(t, err, manifest.ErrMalformedManifest)
	assert.Empty(t, r.All(), "nothing is registered when any entry is malformed")
}

func TestAddRejectsDuplicates(t *testing.T) {
	r, _ := newTestRegistry(t, 0)
	require.NoError(t, r.Add(newModule(t, "A", "", &stubHooks{})))
	err := r.Add(newModule(t, "A", "", &stubHooks{}))
	assert.ErrorIs(t, err, ErrDuplicateModule)
}

func TestSelectUnknown(t *testing.T) {
	r, _ := newTestRegistry(t, 0)
	require.NoError(t, r.Add(newModule(t, "A", "", &stubHooks{})))

	got, err := r.Select([]string{"A"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = r.Select([]string{"A", "nope"})
	assert.ErrorIs(t, err, ErrUnknownModule)
}

func TestFetchAllPersistsAndJoinsErrors(t *testing.T) {
	r, st := newTestRegistry(t, 2)
	good := newModule(t, "good", "v2", &stubHooks{version: "v2"})
	bad := newModule(t, "bad", "v1", &stubHooks{fetchErr: errors.New("boom")})
	require.NoError(t, r.Add(good))
	require.NoError(t, r.Add(bad))

	err := r.FetchAll(context.Background(), r.All())
	require.Error(t, err)
	assert.ErrorIs(t, err, resource.ErrFetchFailure)

	assert.Equal(t, resource.Loaded, good.State())
	assert.Equal(t, resource.Error, bad.State())

	md, ok := st.Get("good")
	require.True(t, ok)
	assert.Equal(t, "v2", md.VersionID)
	assert.NotNil(t, md.DownloadedAt)

	_, ok = st.Get("bad")
	assert.False(t, ok, "failed fetches are not persisted")
}

func TestFetchAllRespectsConcurrencyLimit(t *testing.T) {
	r, _ := newTestRegistry(t, 2)
	g := &gauge{}
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		h := &stubHooks{version: "v", gauge: g, delay: 20 * time.Millisecond}
		require.NoError(t, r.Add(newModule(t, n, "v", h)))
	}

	require.NoError(t, r.FetchAll(context.Background(), r.All()))
	assert.LessOrEqual(t, g.peak.Load(), int32(2))
	assert.GreaterOrEqual(t, g.peak.Load(), int32(1))
	for _, m := range r.All() {
		assert.Equal(t, resource.Loaded, m.State())
	}
}

func TestFetchAllCancelled(t *testing.T) {
	r, _ := newTestRegistry(t, 1)
	h := &stubHooks{version: "v"}
	m := newModule(t, "a", "v", h)
	require.NoError(t, r.Add(m))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.FetchAll(ctx, r.All())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, resource.Unloaded, m.State())
}

func TestUpdatableAndSnapshot(t *testing.T) {
	r, _ := newTestRegistry(t, 0)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	fresh := newModule(t, "fresh", "v1", &stubHooks{version: "v1"})
	stale := newModule(t, "stale", "v2", &stubHooks{detected: resource.Loaded},
		resource.WithLocalMetadata(resource.Metadata{VersionID: "v1", DownloadedAt: &at}))
	never := newModule(t, "never", "v1", &stubHooks{})
	for _, m := range []*resource.Module{fresh, stale, never} {
		require.NoError(t, r.Add(m))
	}

	require.NoError(t, r.FetchAll(context.Background(), []*resource.Module{fresh}))
	require.NoError(t, r.Refresh(context.Background()))

	up := r.Updatable()
	require.Len(t, up, 1)
	assert.Equal(t, "stale", up[0].Name())

	snap := r.Snapshot()
	assert.Len(t, snap, 3)
	assert.Equal(t, "v1", snap["fresh"].VersionID)
	assert.Equal(t, "v1", snap["stale"].VersionID)
	assert.Nil(t, snap["never"].DownloadedAt)
}

func TestRefreshDetectsState(t *testing.T) {
	r, _ := newTestRegistry(t, 0)
	m := newModule(t, "a", "v", &stubHooks{detected: resource.Loaded})
	require.NoError(t, r.Add(m))

	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, resource.Loaded, m.State())
}

func TestLocallyModified(t *testing.T) {
	r, _ := newTestRegistry(t, 0)
	dirty := newModule(t, "dirty", "v", &stubHooks{version: "v", changed: true})
	clean := newModule(t, "clean", "v", &stubHooks{version: "v"})
	untouched := newModule(t, "untouched", "v", &stubHooks{changed: true})
	for _, m := range []*resource.Module{dirty, clean, untouched} {
		require.NoError(t, r.Add(m))
	}
	require.NoError(t, r.FetchAll(context.Background(), []*resource.Module{dirty, clean}))

	got, err := r.LocallyModified(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dirty", got[0].Name())
}
