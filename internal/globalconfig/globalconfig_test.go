package globalconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutInit(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := LoadPersistentConfig()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestSaveAndLoadLocalManifest(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	manifest := filepath.Join(home, "course", "course.yml")
	require.NoError(t, os.MkdirAll(filepath.Dir(manifest), 0o755))
	require.NoError(t, os.WriteFile(manifest, []byte("modules: []\n"), 0o644))

	cfg := &PersistentConfig{Manifest: manifest, ModulesDir: filepath.Join(home, "mods")}
	require.NoError(t, cfg.Save())
	assert.Equal(t, manifest, cfg.Manifest, "Save must not rewrite the caller's value")

	raw, err := os.ReadFile(filepath.Join(home, configDir, configFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "~/course/course.yml")

	got, err := LoadPersistentConfig()
	require.NoError(t, err)
	assert.Equal(t, manifest, got.Manifest)
	assert.Equal(t, filepath.Join(home, "mods"), got.ModulesDir)
}

func TestLoadMissingManifestFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := &PersistentConfig{Manifest: filepath.Join(home, "gone.json")}
	require.NoError(t, cfg.Save())

	_, err := LoadPersistentConfig()
	assert.Error(t, err)
}

func TestRemoteManifestIsKeptVerbatim(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := &PersistentConfig{Manifest: "https://example.com/course.json"}
	require.NoError(t, cfg.Save())

	got, err := LoadPersistentConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/course.json", got.Manifest)
	assert.True(t, IsRemote(got.Manifest))
}
