package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/campushub/internal/app"
	"github.com/charlesng35/campushub/internal/monitoring"
	"github.com/charlesng35/campushub/internal/storage"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()

	dir := t.TempDir()
	cfg, err := app.LoadConfig(dir)
	require.NoError(t, err)

	cfg.Database.Path = filepath.Join(dir, "campushub.sqlite")
	cfg.Storage.FS.Root = filepath.Join(dir, "uploads")
	_, err = app.ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	return cfg
}

func TestBootstrapRuntimeServesHealth(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, stack.Shutdown(context.Background()))
	})

	require.IsType(t, &storage.FSStore{}, stack.Storage)
	require.Nil(t, stack.Redis)

	rec := httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := stack.Monitoring.Health().EvaluateReadiness(context.Background())
	require.Equal(t, monitoring.StatusUp, report.Status)
	components := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		components = append(components, check.Component)
	}
	require.ElementsMatch(t, []string{"database", "redis", "storage", "maintenance"}, components)
}

func TestBootstrapRuntimeFallsBackWhenRedisUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Redis.Enabled = true
	cfg.Cache.Redis.Address = "127.0.0.1:1"
	cfg.Cache.Redis.Timeout = 100 * time.Millisecond

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, stack.Shutdown(context.Background()))
	})

	require.Nil(t, stack.Redis)
	report := stack.Monitoring.Health().EvaluateReadiness(context.Background())
	require.Equal(t, monitoring.StatusDegraded, report.Status)
}

func TestBootstrapRuntimeRejectsUnknownStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "tape"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "initialise storage")
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(""))
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CAMPUSHUB_TEST_ENV_VALUE=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("CAMPUSHUB_TEST_ENV_VALUE") })

	require.NoError(t, loadEnvFile(path))
	require.Equal(t, "loaded", os.Getenv("CAMPUSHUB_TEST_ENV_VALUE"))
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "nope"))
	require.ErrorContains(t, err, "does not exist")
}
