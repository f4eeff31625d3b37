package resource

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/MrSnakeDoc/coursemod/internal/logger"

	"golang.org/x/sync/singleflight"
)

// Hooks are the kind-specific operations a Module orchestrates.
//
// None of them is ever called with the version lock held, so they are free
// to block on network or disk.
type Hooks interface {
	// FetchContent retrieves the module content into its local location.
	FetchContent(ctx context.Context) error
	// ReadVersionID reports the version id produced by the last fetch.
	// ok is false when the kind cannot tell.
	ReadVersionID(ctx context.Context) (id string, ok bool)
	// HasChangedSince reports whether local content was modified after t.
	HasChangedSince(ctx context.Context, t time.Time) (bool, error)
}

// StateDetector is implemented by kinds able to tell the current lifecycle state
// from external ground truth (typically the filesystem).
type StateDetector interface {
	DetectState(ctx context.Context) (State, error)
}

// Metadata is the part of a module persisted between runs.
type Metadata struct {
	VersionID    string     `json:"version_id"`
	DownloadedAt *time.Time `json:"downloaded_at,omitempty"`
}

// Module is a remotely sourced, locally cached unit of content.
//
// Fields:
//   - versionID: last version id seen at the remote source
//   - localVersionID: version id materialized locally, nil if never fetched
//   - downloadedAt: time of the last successful fetch, nil if never fetched
//
// The three fields above are only touched under versionMu. The lifecycle
// state lives in its own atomic slot (monitor) and is never read under it.
type Module struct {
	name     string
	location *url.URL
	repl     []string
	hooks    Hooks
	monitor  *StateMonitor
	now      func() time.Time
	fetches  singleflight.Group

	versionMu      sync.Mutex
	versionID      string
	localVersionID *string
	downloadedAt   *time.Time
}

type Option func(*Module)

// WithReplInitialCommands attaches REPL commands. They are passed through untouched.
func WithReplInitialCommands(cmds []string) Option {
	return func(m *Module) {
		if cmds != nil {
			m.repl = append([]string{}, cmds...)
		}
	}
}

// WithLocalMetadata re-hydrates the local bookkeeping from persisted metadata.
// Metadata without a download time describes a module that was never fetched
// and is ignored.
func WithLocalMetadata(md Metadata) Option {
	return func(m *Module) {
		if md.DownloadedAt == nil {
			return
		}
		local := md.VersionID
		at := *md.DownloadedAt
		m.localVersionID = &local
		m.downloadedAt = &at
	}
}

// WithClock overrides time.Now for the download timestamp.
func WithClock(now func() time.Time) Option {
	return func(m *Module) {
		if now != nil {
			m.now = now
		}
	}
}

// NewModule creates an unloaded module whose remote version is versionID.
func NewModule(name string, location *url.URL, versionID string, hooks Hooks, opts ...Option) *Module {
	m := &Module{
		name:      name,
		location:  location,
		hooks:     hooks,
		monitor:   NewStateMonitor(name),
		now:       time.Now,
		versionID: versionID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module) Name() string { return m.name }

// Location returns a copy of the source URL.
func (m *Module) Location() *url.URL {
	u := *m.location
	return &u
}

// ReplInitialCommands returns nil when the manifest carried none.
func (m *Module) ReplInitialCommands() []string {
	if m.repl == nil {
		return nil
	}
	return append([]string{}, m.repl...)
}

func (m *Module) State() State { return m.monitor.Get() }

// Monitor exposes the state slot so owners can subscribe to transitions.
func (m *Module) Monitor() *StateMonitor { return m.monitor }

// Fetch retrieves the module and commits the new version bookkeeping.
//
// Concurrent calls are coalesced: a caller arriving while a fetch is in
// flight waits for it and gets its result instead of starting another one.
// The context of the caller that started the flight is the one used.
func (m *Module) Fetch(ctx context.Context) error {
	_, err, shared := m.fetches.Do("fetch", func() (any, error) {
		return nil, m.fetch(ctx)
	})
	if shared {
		logger.Debug("fetch of %s shared with a concurrent caller", m.name)
	}
	return err
}

func (m *Module) fetch(ctx context.Context) error {
	m.monitor.Set(Loading)

	if err := m.hooks.FetchContent(ctx); err != nil {
		m.monitor.Set(Error)
		return &OpError{Module: m.name, Op: "fetch", Err: fmt.Errorf("%w: %w", ErrFetchFailure, err)}
	}

	newID, known := m.hooks.ReadVersionID(ctx)
	if !known {
		logger.Debug("version of %s unknown after fetch, keeping %q", m.name, m.VersionID())
	}

	now := m.now()

	m.versionMu.Lock()
	m.downloadedAt = &now
	if known {
		m.versionID = newID
	}
	local := m.versionID
	m.localVersionID = &local
	m.versionMu.Unlock()

	m.monitor.Set(Loaded)
	return nil
}

// IsUpdatable reports whether the module is loaded but behind the remote version.
func (m *Module) IsUpdatable() bool {
	if m.monitor.Get() != Loaded {
		return false
	}

	m.versionMu.Lock()
	defer m.versionMu.Unlock()
	return m.localVersionID == nil || *m.localVersionID != m.versionID
}

// HasLocalChanges reports whether the local copy was modified since the last fetch.
// A module that was never fetched has nothing to compare against.
func (m *Module) HasLocalChanges(ctx context.Context) (bool, error) {
	m.versionMu.Lock()
	var since *time.Time
	if m.downloadedAt != nil {
		t := *m.downloadedAt
		since = &t
	}
	m.versionMu.Unlock()

	if since == nil {
		return false, nil
	}

	changed, err := m.hooks.HasChangedSince(ctx, *since)
	if err != nil {
		return false, &OpError{Module: m.name, Op: "check local changes", Err: err}
	}
	return changed, nil
}

// Metadata returns a consistent snapshot of what should be persisted.
func (m *Module) Metadata() Metadata {
	m.versionMu.Lock()
	defer m.versionMu.Unlock()

	md := Metadata{VersionID: m.versionID}
	if m.localVersionID != nil {
		md.VersionID = *m.localVersionID
	}
	if m.downloadedAt != nil {
		t := *m.downloadedAt
		md.DownloadedAt = &t
	}
	return md
}

// VersionID returns the remote version id.
func (m *Module) VersionID() string {
	m.versionMu.Lock()
	defer m.versionMu.Unlock()
	return m.versionID
}

// UpdateState re-derives the lifecycle state from the kind's ground truth.
// Kinds that cannot detect it leave the state as is. A module currently loading
// is left alone; its fetch will settle the state.
func (m *Module) UpdateState(ctx context.Context) error {
	p, ok := m.hooks.(StateDetector)
	if !ok {
		return nil
	}

	cur := m.monitor.Get()
	if cur == Loading {
		return nil
	}

	next, err := p.DetectState(ctx)
	if err != nil {
		return &OpError{Module: m.name, Op: "update state", Err: err}
	}

	if !m.monitor.CompareAndSet(cur, next) {
		logger.Debug("state of %s changed during detection, keeping %s", m.name, m.monitor.Get())
	}
	return nil
}
