package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shape/pkg/factory"
)

func useEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_NAME", "Shape Test")

	old := envFile
	envFile = filepath.Join(t.TempDir(), "missing.env")
	t.Cleanup(func() { envFile = old })
}

func TestLoadConfig(t *testing.T) {
	useEnv(t)

	cfg, log, err := loadConfig()
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.Equal(t, "Shape Test", cfg.App.Name)
	assert.Equal(t, "memory://", cfg.Database.URL)
	assert.False(t, cfg.IsDevelopment())
}

func TestBuildHandler_ServesRoot(t *testing.T) {
	useEnv(t)

	cfg, log, err := loadConfig()
	require.NoError(t, err)

	f, err := factory.NewFactory(context.Background(), cfg, log)
	require.NoError(t, err)
	defer f.Close(context.Background())

	rec := httptest.NewRecorder()
	buildHandler(f).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","app":"Shape Test","version":"1.0.0","environment":"test"}`, rec.Body.String())
}

func TestRunMigrate_MemoryIsNoop(t *testing.T) {
	useEnv(t)

	assert.NoError(t, runMigrate(context.Background()))
}
