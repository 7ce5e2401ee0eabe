package config_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagekit/tourimport/pkg/tourimport/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, "tours", cfg.KeyLayout)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TOURIMPORT_LANGUAGE", "fr")
	t.Setenv("TOURIMPORT_STORAGE", "fs")
	t.Setenv("TOURIMPORT_FS_DIR", t.TempDir())
	t.Setenv("TOURIMPORT_KEY_LAYOUT", "checksum")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "fr", cfg.Language)
	assert.Equal(t, "fs", cfg.StorageBackend)
	assert.Equal(t, "checksum", cfg.KeyLayout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*config.Config)
		expectError bool
	}{
		{
			name:   "memory defaults are valid",
			mutate: func(c *config.Config) {},
		},
		{
			name:        "unknown storage backend",
			mutate:      func(c *config.Config) { c.StorageBackend = "tape" },
			expectError: true,
		},
		{
			name: "s3 needs a bucket",
			mutate: func(c *config.Config) {
				c.StorageBackend = "s3"
				c.S3.Bucket = ""
			},
			expectError: true,
		},
		{
			name:        "unknown key layout",
			mutate:      func(c *config.Config) { c.KeyLayout = "uuid" },
			expectError: true,
		},
		{
			name:   "checksum key layout accepted",
			mutate: func(c *config.Config) { c.KeyLayout = "checksum" },
		},
		{
			name:        "bad database url",
			mutate:      func(c *config.Config) { c.DatabaseURL = "mysql://nope" },
			expectError: true,
		},
		{
			name:   "postgres url accepted",
			mutate: func(c *config.Config) { c.DatabaseURL = "postgres://u:p@localhost:5432/tours" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildPipelineWithMemoryBackends(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	svc, repo, err := cfg.BuildPipeline(context.Background(), slog.Default())
	require.NoError(t, err)
	assert.NotNil(t, svc)
	assert.NotNil(t, repo)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Rows.Pages)
}
