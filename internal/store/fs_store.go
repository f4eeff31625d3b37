package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MrSnakeDoc/coursemod/internal/logger"
	"github.com/MrSnakeDoc/coursemod/internal/resource"
	"github.com/MrSnakeDoc/coursemod/internal/utils"
)

const metaFileName = "modules.json"

// Store persists module metadata between runs.
type Store interface {
	Get(name string) (resource.Metadata, bool)
	Put(name string, md resource.Metadata) error
	Delete(name string) error
	All() map[string]resource.Metadata
}

// FS keeps the metadata in RAM and mirrors every change to a JSON file.
type FS struct {
	path    string
	mu      sync.RWMutex
	modules map[string]resource.Metadata
}

func NewFS(dataDir string) (*FS, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dataDir, err)
	}
	s := &FS{
		path:    filepath.Join(dataDir, metaFileName),
		modules: make(map[string]resource.Metadata),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FS) Path() string { return s.path }

func (s *FS) Get(name string) (resource.Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md, ok := s.modules[name]
	return md, ok
}

// All returns a copy of every entry.
func (s *FS) All() map[string]resource.Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]resource.Metadata, len(s.modules))
	for k, v := range s.modules {
		out[k] = v
	}
	return out
}

// Put records md and rewrites the file atomically.
func (s *FS) Put(name string, md resource.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[name] = md
	return s.saveLocked()
}

func (s *FS) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[name]; !ok {
		return nil
	}
	delete(s.modules, name)
	return s.saveLocked()
}

// --- internals ---

func (s *FS) load() error {
	var m Meta
	err := utils.FileReader(s.path, utils.FileTypeJSON, &m)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		// corrupt -> start clean, the next Put rewrites it
		logger.Warn("ignoring unreadable metadata file %s: %v", s.path, err)
		return nil
	}

	if m.Modules != nil {
		s.modules = m.Modules
	}
	logger.Debug("loaded metadata for %d modules from %s", len(s.modules), s.path)
	return nil
}

func (s *FS) saveLocked() error {
	m := Meta{
		Version: fileVersion,
		SavedAt: time.Now().UTC(),
		Modules: s.modules,
	}
	if err := utils.WriteJSONAtomic(s.path, m); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}
