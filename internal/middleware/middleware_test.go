package middleware

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/MrSnakeDoc/coursemod/internal/config"
	"github.com/MrSnakeDoc/coursemod/internal/globalconfig"
	"github.com/MrSnakeDoc/coursemod/internal/logger"
	"github.com/MrSnakeDoc/coursemod/internal/resource"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainRunsInOrder(t *testing.T) {
	var trace []string
	mw := func(name string) MiddlewareFunc {
		return func(cmd *cobra.Command, args []string, next func(*cobra.Command, []string) error) error {
			trace = append(trace, name)
			return next(cmd, args)
		}
	}

	factory := UseMiddlewareChain(mw("a"), mw("b"))(func() *cobra.Command {
		return &cobra.Command{
			Use:     "x",
			PreRunE: func(*cobra.Command, []string) error { trace = append(trace, "pre"); return nil },
			RunE:    func(*cobra.Command, []string) error { trace = append(trace, "run"); return nil },
		}
	})

	cmd := factory()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, []string{"a", "b", "pre", "run"}, trace)
}

func TestChainStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	factory := UseMiddlewareChain(func(*cobra.Command, []string, func(*cobra.Command, []string) error) error {
		return boom
	})(func() *cobra.Command {
		return &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { ran = true; return nil }}
	})

	cmd := factory()
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.SetArgs([]string{})
	assert.ErrorIs(t, cmd.Execute(), boom)
	assert.False(t, ran)
}

func TestGetMissingValue(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	_, err := Get[string](cmd, CtxKeyRegistry)
	assert.Error(t, err)

	cmd.SetContext(context.WithValue(context.Background(), CtxKeyRegistry, 42))
	_, err = Get[string](cmd, CtxKeyRegistry)
	assert.Error(t, err)
}

func TestResolveTargets(t *testing.T) {
	logger.UseTestMode()

	_, err := ResolveTargets(true, []string{"a"}, "Fetch", "fetch")
	assert.ErrorIs(t, err, ErrLogged)

	_, err = ResolveTargets(false, nil, "Fetch", "fetch")
	assert.ErrorIs(t, err, ErrLogged)

	names, err := ResolveTargets(true, nil, "Fetch", "fetch")
	require.NoError(t, err)
	assert.Nil(t, names)

	names, err = ResolveTargets(false, []string{"a", "b"}, "Fetch", "fetch")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func runRequireConfig(t *testing.T) (*globalconfig.PersistentConfig, error) {
	t.Helper()
	var got *globalconfig.PersistentConfig
	cmd := UseMiddlewareChain(RequireConfig)(func() *cobra.Command {
		return &cobra.Command{
			Use:           "x",
			SilenceErrors: true,
			SilenceUsage:  true,
			RunE: func(cmd *cobra.Command, _ []string) error {
				var err error
				got, err = Get[*globalconfig.PersistentConfig](cmd, CtxKeyPConfig)
				return err
			},
		}
	})()
	cmd.SetArgs([]string{})
	return got, cmd.Execute()
}

func TestRequireConfig(t *testing.T) {
	logger.UseTestMode()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvManifest, "")
	t.Setenv(EnvModulesDir, "")

	t.Run("not initialized", func(t *testing.T) {
		_, err := runRequireConfig(t)
		assert.ErrorIs(t, err, globalconfig.ErrNotInitialized)
	})

	t.Run("remote manifest from env", func(t *testing.T) {
		t.Setenv(EnvManifest, "https://example.com/course.json")
		pconf, err := runRequireConfig(t)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/course.json", pconf.Manifest)
		assert.Empty(t, pconf.ModulesDir)
	})

	t.Run("local manifest and modules dir from env", func(t *testing.T) {
		t.Setenv(EnvManifest, "~/course.yml")
		t.Setenv(EnvModulesDir, "~/mods")
		pconf, err := runRequireConfig(t)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "course.yml"), pconf.Manifest)
		assert.Equal(t, filepath.Join(home, "mods"), pconf.ModulesDir)
	})
}

func courseServer(t *testing.T) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("README.md")
	require.NoError(t, err)
	_, err = w.Write([]byte("# intro"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	payload := buf.Bytes()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	mux.HandleFunc("/course.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"name":"c","modules":[{"name":"Intro","url":"%s/intro.zip","id":"v1"}]}`, srv.URL)
	})
	mux.HandleFunc("/intro.zip", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(payload)
	})
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.ModulesDir = filepath.Join(root, "modules")
	cfg.StateDir = filepath.Join(root, "state")
	return cfg
}

func TestBuildRegistryRehydratesAcrossRuns(t *testing.T) {
	logger.UseTestMode()
	srv := courseServer(t)
	cfg := testConfig(t)
	ctx := context.Background()

	reg, err := BuildRegistry(ctx, srv.URL+"/course.json", cfg, Deps{HTTP: srv.Client()})
	require.NoError(t, err)

	intro, ok := reg.Get("Intro")
	require.True(t, ok)
	assert.Equal(t, resource.Unloaded, intro.State())

	require.NoError(t, reg.FetchAll(ctx, reg.All()))
	assert.Equal(t, resource.Loaded, intro.State())
	assert.False(t, intro.IsUpdatable())

	// a second run sees the local copy and the persisted metadata
	again, err := BuildRegistry(ctx, srv.URL+"/course.json", cfg, Deps{HTTP: srv.Client()})
	require.NoError(t, err)
	intro2, _ := again.Get("Intro")
	assert.Equal(t, resource.Loaded, intro2.State())
	assert.Equal(t, "v1", intro2.Metadata().VersionID)
	assert.NotNil(t, intro2.Metadata().DownloadedAt)
	assert.False(t, intro2.IsUpdatable())
}

func TestBuildRegistryBadSource(t *testing.T) {
	logger.UseTestMode()
	_, err := BuildRegistry(context.Background(), filepath.Join(t.TempDir(), "nope.json"), testConfig(t), Deps{})
	assert.Error(t, err)
}

func TestBuildRegistryDeclaredIDOutlivesETag(t *testing.T) {
	logger.UseTestMode()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("README.md")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	payload := buf.Bytes()

	var published atomic.Value
	published.Store("v1")

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	mux.HandleFunc("/course.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"name":"c","modules":[{"name":"Intro","url":"%s/intro.zip","id":"%s"}]}`, srv.URL, published.Load())
	})
	mux.HandleFunc("/intro.zip", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("ETag", `"5f3a-abc"`)
		_, _ = w.Write(payload)
	})

	cfg := testConfig(t)
	ctx := context.Background()
	build := func() *resource.Module {
		t.Helper()
		reg, err := BuildRegistry(ctx, srv.URL+"/course.json", cfg, Deps{HTTP: srv.Client()})
		require.NoError(t, err)
		m, ok := reg.Get("Intro")
		require.True(t, ok)
		return m
	}

	reg, err := BuildRegistry(ctx, srv.URL+"/course.json", cfg, Deps{HTTP: srv.Client()})
	require.NoError(t, err)
	require.NoError(t, reg.FetchAll(ctx, reg.All()))

	var m *resource.Module
	for run := 0; run < 3; run++ {
		m = build()
		assert.Equal(t, resource.Loaded, m.State())
		assert.Equal(t, "v1", m.Metadata().VersionID)
		assert.False(t, m.IsUpdatable(), "run %d", run)
	}

	published.Store("v2")
	m = build()
	assert.True(t, m.IsUpdatable())

	reg, err = BuildRegistry(ctx, srv.URL+"/course.json", cfg, Deps{HTTP: srv.Client()})
	require.NoError(t, err)
	require.NoError(t, reg.FetchAll(ctx, reg.All()))

	m = build()
	assert.Equal(t, "v2", m.Metadata().VersionID)
	assert.False(t, m.IsUpdatable())
}
