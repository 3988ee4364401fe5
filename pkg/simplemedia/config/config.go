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
	"github.com/tendant/simple-media/pkg/simplemedia"
	"github.com/tendant/simple-media/pkg/simplemedia/processor"
	queuejs "github.com/tendant/simple-media/pkg/simplemedia/queue/jetstream"
	queuememory "github.com/tendant/simple-media/pkg/simplemedia/queue/memory"
	repomemory "github.com/tendant/simple-media/pkg/simplemedia/repo/memory"
	repopg "github.com/tendant/simple-media/pkg/simplemedia/repo/postgres"
	storagememory "github.com/tendant/simple-media/pkg/simplemedia/storage/memory"
	storages3 "github.com/tendant/simple-media/pkg/simplemedia/storage/s3"
)

// Config is the full environment surface of the media server and worker.
// Zero values fall back to in-memory backends so the binaries run without any
// infrastructure for local development and tests.
type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// DATABASE_URL selects the registry: empty or "memory" for in-memory,
	// postgres://... for PostgreSQL.
	DatabaseURL string `env:"DATABASE_URL" env-default:""`

	// S3 / MinIO object store. Empty bucket selects the in-memory store.
	S3Bucket               string `env:"AWS_S3_BUCKET" env-default:""`
	S3Region               string `env:"AWS_REGION" env-default:"us-east-1"`
	S3AccessKey            string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	S3SecretKey            string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	S3Endpoint             string `env:"AWS_S3_ENDPOINT" env-default:""`
	S3UseSSL               bool   `env:"AWS_S3_USE_SSL" env-default:"true"`
	S3UsePathStyle         bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	S3CreateBucketIfAbsent bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`

	// NATS JetStream queue. Empty URL selects the in-memory queue.
	NatsURL      string `env:"NATS_URL" env-default:""`
	NatsStream   string `env:"NATS_STREAM" env-default:"MEDIA_PROCESSING"`
	NatsSubject  string `env:"NATS_SUBJECT" env-default:"media.process"`
	NatsConsumer string `env:"NATS_CONSUMER" env-default:"media-worker"`

	CredentialTTLSeconds  int   `env:"MEDIA_CREDENTIAL_TTL_SECONDS" env-default:"3600"`
	MaxUploadBytes        int64 `env:"MEDIA_MAX_UPLOAD_BYTES" env-default:"52428800"`
	MaxAttempts           int   `env:"MEDIA_MAX_ATTEMPTS" env-default:"3"`
	Workers               int   `env:"MEDIA_WORKERS" env-default:"4"`
	AttemptTimeoutSeconds int   `env:"MEDIA_ATTEMPT_TIMEOUT_SECONDS" env-default:"120"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseURL != "" && c.DatabaseURL != "memory" &&
		!strings.HasPrefix(c.DatabaseURL, "postgres://") &&
		!strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf("unsupported DATABASE_URL format (use 'memory' or 'postgresql://...')")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("MEDIA_MAX_ATTEMPTS must be positive")
	}
	if c.CredentialTTLSeconds <= 0 {
		return errors.New("MEDIA_CREDENTIAL_TTL_SECONDS must be positive")
	}
	return nil
}

// CredentialTTL returns the presigned upload credential lifetime.
func (c *Config) CredentialTTL() time.Duration {
	return time.Duration(c.CredentialTTLSeconds) * time.Second
}

// AttemptTimeout returns the per-attempt processing deadline.
func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSeconds) * time.Second
}

// BuildRepository creates a Repository based on DATABASE_URL.
func (c *Config) BuildRepository(ctx context.Context) (simplemedia.Repository, error) {
	if c.DatabaseURL == "" || c.DatabaseURL == "memory" {
		return repomemory.New(), nil
	}

	pool, err := pgxpool.New(ctx, c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return repopg.NewWithPool(pool), nil
}

// BuildBlobStore creates a BlobStore based on the S3 settings.
func (c *Config) BuildBlobStore() (simplemedia.BlobStore, error) {
	if c.S3Bucket == "" {
		return storagememory.New(), nil
	}

	return storages3.New(storages3.Config{
		Region:                 c.S3Region,
		Bucket:                 c.S3Bucket,
		AccessKeyID:            c.S3AccessKey,
		SecretAccessKey:        c.S3SecretKey,
		Endpoint:               c.S3Endpoint,
		UseSSL:                 c.S3UseSSL,
		UsePathStyle:           c.S3UsePathStyle,
		CreateBucketIfNotExist: c.S3CreateBucketIfAbsent,
	})
}

// BuildQueue creates a JobQueue based on NATS_URL.
func (c *Config) BuildQueue(ctx context.Context) (simplemedia.JobQueue, error) {
	if c.NatsURL == "" {
		return queuememory.New(), nil
	}

	return queuejs.New(queuejs.Config{
		URL:          c.NatsURL,
		StreamName:   c.NatsStream,
		Subject:      c.NatsSubject,
		ConsumerName: c.NatsConsumer,
		MaxDeliver:   c.MaxAttempts + 1,
	}, slog.Default())
}

// BuildService wires a Service from the configured backends. The returned
// backends are shared with the caller for worker wiring.
func (c *Config) BuildService(ctx context.Context) (simplemedia.Service, simplemedia.Repository, simplemedia.BlobStore, simplemedia.JobQueue, error) {
	repo, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("build repository: %w", err)
	}
	store, err := c.BuildBlobStore()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("build blob store: %w", err)
	}
	queue, err := c.BuildQueue(ctx)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("build queue: %w", err)
	}

	svc, err := simplemedia.New(
		simplemedia.WithRepository(repo),
		simplemedia.WithBlobStore(store),
		simplemedia.WithQueue(queue),
		simplemedia.WithCredentialTTL(c.CredentialTTL()),
		simplemedia.WithMaxUploadBytes(c.MaxUploadBytes),
	)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return svc, repo, store, queue, nil
}

// WorkerConfig maps the environment onto the processing worker settings.
func (c *Config) WorkerConfig() processor.WorkerConfig {
	return processor.WorkerConfig{
		Concurrency:    c.Workers,
		MaxAttempts:    c.MaxAttempts,
		AttemptTimeout: c.AttemptTimeout(),
	}
}
