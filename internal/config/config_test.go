package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Empty(t, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, CatalogSourceCSV, cfg.Catalog.Source)
	assert.Equal(t, 8, cfg.Catalog.PageSize)
	assert.Equal(t, 45, cfg.Render.StepDeg)
	assert.Equal(t, 2*time.Minute, cfg.Render.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Mesh.Timeout)
	assert.Equal(t, [3]float64{8, 8, 33}, cfg.Mesh.VoxelSize)
	assert.Equal(t, "static/screenshots", cfg.Screenshots.Dir)
	assert.Equal(t, "/static/screenshots", cfg.Screenshots.URLPrefix)
	assert.Equal(t, "/static/img/default_mito.png", cfg.Screenshots.PlaceholderURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("CATALOG_SOURCE", "Postgres")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("RENDER_WORKERS", "2")
	t.Setenv("RENDER_TIMEOUT", "45s")
	t.Setenv("MESH_VOXEL_SIZE", "4, 4, 40")
	t.Setenv("DB_HOST", "db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, CatalogSourcePostgres, cfg.Catalog.Source)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 2, cfg.Render.Workers)
	assert.Equal(t, 45*time.Second, cfg.Render.Timeout)
	assert.Equal(t, [3]float64{4, 4, 40}, cfg.Mesh.VoxelSize)
	assert.Contains(t, cfg.Database.DSN(), "host=db")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "render timeout", key: "RENDER_TIMEOUT", value: "soon"},
		{name: "mesh timeout", key: "MESH_TIMEOUT", value: "10"},
		{name: "voxel size arity", key: "MESH_VOXEL_SIZE", value: "8,8"},
		{name: "voxel size sign", key: "MESH_VOXEL_SIZE", value: "8,-8,33"},
		{name: "catalog source", key: "CATALOG_SOURCE", value: "sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
