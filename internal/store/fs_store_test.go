package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSnakeDoc/coursemod/internal/resource"
)

func newTestFS(t *testing.T) (*FS, string) {
	t.Helper()
	tmp := t.TempDir()
	fs, err := NewFS(tmp)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs, tmp
}

func TestPutAndReload(t *testing.T) {
	fs, dir := newTestFS(t)
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	if err := fs.Put("O1", resource.Metadata{VersionID: "v1", DownloadedAt: &at}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := fs.Put("Never", resource.Metadata{VersionID: "v0"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	again, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS reload: %v", err)
	}

	got, ok := again.Get("O1")
	if !ok {
		t.Fatalf("expected O1 after reload")
	}
	if got.VersionID != "v1" {
		t.Errorf("expected v1, got %s", got.VersionID)
	}
	if got.DownloadedAt == nil || !got.DownloadedAt.Equal(at) {
		t.Errorf("wrong downloaded_at: %v", got.DownloadedAt)
	}

	never, _ := again.Get("Never")
	if never.DownloadedAt != nil {
		t.Errorf("expected no downloaded_at, got %v", never.DownloadedAt)
	}
}

func TestFileLayout(t *testing.T) {
	fs, _ := newTestFS(t)
	if err := fs.Put("O1", resource.Metadata{VersionID: "v1"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, err := os.ReadFile(fs.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Version != fileVersion {
		t.Errorf("expected version %d, got %d", fileVersion, m.Version)
	}
	if m.SavedAt.IsZero() {
		t.Errorf("expected saved_at")
	}
	if m.Modules["O1"].VersionID != "v1" {
		t.Errorf("unexpected modules: %+v", m.Modules)
	}
}

func TestDelete(t *testing.T) {
	fs, dir := newTestFS(t)
	_ = fs.Put("O1", resource.Metadata{VersionID: "v1"})

	if err := fs.Delete("O1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := fs.Delete("absent"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}

	again, _ := NewFS(dir)
	if _, ok := again.Get("O1"); ok {
		t.Errorf("O1 should be gone")
	}
}

func TestCorruptFileStartsClean(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, metaFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if n := len(fs.All()); n != 0 {
		t.Errorf("expected empty store, got %d entries", n)
	}
}

func TestAllIsACopy(t *testing.T) {
	fs, _ := newTestFS(t)
	_ = fs.Put("O1", resource.Metadata{VersionID: "v1"})

	all := fs.All()
	delete(all, "O1")

	if _, ok := fs.Get("O1"); !ok {
		t.Errorf("mutating All() result must not affect the store")
	}
}
