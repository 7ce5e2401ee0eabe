// Package config loads pipeline configuration from the environment and
// assembles a ready-to-use import service from it.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyagekit/tourimport/pkg/tourimport"
	"github.com/voyagekit/tourimport/pkg/tourimport/httpfetch"
	"github.com/voyagekit/tourimport/pkg/tourimport/imageproc"
	"github.com/voyagekit/tourimport/pkg/tourimport/objectkey"
	repomem "github.com/voyagekit/tourimport/pkg/tourimport/repo/memory"
	repopg "github.com/voyagekit/tourimport/pkg/tourimport/repo/postgres"
	"github.com/voyagekit/tourimport/pkg/tourimport/scrape"
	fsstorage "github.com/voyagekit/tourimport/pkg/tourimport/storage/fs"
	memorystorage "github.com/voyagekit/tourimport/pkg/tourimport/storage/memory"
	s3storage "github.com/voyagekit/tourimport/pkg/tourimport/storage/s3"
)

// Config is the full pipeline configuration, read from environment
// variables with sensible defaults for local runs.
type Config struct {
	// Language selects which localized columns imports read by default.
	Language string `env:"TOURIMPORT_LANGUAGE" env-default:"en"`

	// DatabaseURL selects the repository: empty or "memory" uses the
	// in-memory repository, a postgres:// URL uses PostgreSQL.
	DatabaseURL string `env:"DATABASE_URL" env-default:""`

	// StorageBackend names the default blob store: memory, fs, or s3.
	StorageBackend string `env:"TOURIMPORT_STORAGE" env-default:"memory"`

	// KeyLayout selects the object key strategy: "tours" for readable
	// destination/slug paths, "checksum" for content-addressed shards.
	KeyLayout string `env:"TOURIMPORT_KEY_LAYOUT" env-default:"tours"`

	FS    FSConfig
	S3    S3Config
	Fetch FetchConfig
}

// FSConfig configures the filesystem blob store.
type FSConfig struct {
	BaseDir   string `env:"TOURIMPORT_FS_DIR" env-default:"./data/storage"`
	URLPrefix string `env:"TOURIMPORT_FS_URL_PREFIX" env-default:""`
}

// S3Config configures the S3-compatible blob store.
type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:""`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	Bucket          string `env:"AWS_S3_BUCKET" env-default:"tour-media"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	PublicBaseURL   string `env:"TOURIMPORT_PUBLIC_BASE_URL" env-default:""`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// FetchConfig configures outbound HTTP for scraping and image fetches.
type FetchConfig struct {
	Timeout       time.Duration `env:"TOURIMPORT_HTTP_TIMEOUT" env-default:"30s"`
	UserAgent     string        `env:"TOURIMPORT_USER_AGENT" env-default:"tourimport/1.0"`
	MaxImageBytes int64         `env:"TOURIMPORT_MAX_IMAGE_BYTES" env-default:"0"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "memory", "fs":
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("AWS_S3_BUCKET is required when using s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s (use 'memory', 'fs' or 's3')", c.StorageBackend)
	}

	switch c.KeyLayout {
	case "tours", "checksum":
	default:
		return fmt.Errorf("unsupported key layout: %s (use 'tours' or 'checksum')", c.KeyLayout)
	}

	if c.DatabaseURL != "" && c.DatabaseURL != "memory" &&
		!strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", c.DatabaseURL)
	}

	return nil
}

// BuildService assembles the import service from the configuration:
// repository, blob store, scraper, image fetcher and optimizer.
func (c *Config) BuildService(ctx context.Context, logger *slog.Logger) (tourimport.Service, error) {
	svc, _, err := c.BuildPipeline(ctx, logger)
	return svc, err
}

// BuildPipeline assembles the import service and also returns the
// repository it runs on, for commands that read rows directly.
func (c *Config) BuildPipeline(ctx context.Context, logger *slog.Logger) (tourimport.Service, tourimport.Repository, error) {
	repo, err := c.buildRepository(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build repository: %w", err)
	}

	store, err := c.buildStorageBackend()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build storage backend %s: %w", c.StorageBackend, err)
	}

	options := []tourimport.Option{
		tourimport.WithRepository(repo),
		tourimport.WithBlobStore(c.StorageBackend, store),
		tourimport.WithDefaultStorageBackend(c.StorageBackend),
		tourimport.WithScraper(scrape.New(scrape.Config{
			Timeout:   c.Fetch.Timeout,
			UserAgent: c.Fetch.UserAgent,
			Logger:    logger,
		})),
		tourimport.WithImageFetcher(httpfetch.New(httpfetch.Config{
			Timeout:   c.Fetch.Timeout,
			MaxBytes:  c.Fetch.MaxImageBytes,
			UserAgent: c.Fetch.UserAgent,
		})),
		tourimport.WithOptimizer(imageproc.New()),
		tourimport.WithKeyGenerator(c.buildKeyGenerator()),
	}
	if logger != nil {
		options = append(options, tourimport.WithLogger(logger))
	}

	svc, err := tourimport.New(options...)
	if err != nil {
		return nil, nil, err
	}
	return svc, repo, nil
}

func (c *Config) buildRepository(ctx context.Context) (tourimport.Repository, error) {
	if c.DatabaseURL == "" || c.DatabaseURL == "memory" {
		return repomem.New(), nil
	}

	pool, err := pgxpool.New(ctx, c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return repopg.NewWithPool(pool), nil
}

func (c *Config) buildKeyGenerator() objectkey.Generator {
	if c.KeyLayout == "checksum" {
		return objectkey.NewChecksumShardGenerator()
	}
	return objectkey.NewTourPathGenerator()
}

func (c *Config) buildStorageBackend() (tourimport.BlobStore, error) {
	switch c.StorageBackend {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.FS.BaseDir,
			URLPrefix: c.FS.URLPrefix,
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			PublicBaseURL:          c.S3.PublicBaseURL,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.StorageBackend)
	}
}
