// Package config loads server configuration from the environment and wires
// the mediaproxy service together.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/media-proxy/pkg/mediaproxy"
	amqpevents "github.com/tendant/media-proxy/pkg/mediaproxy/events/amqp"
	fsstorage "github.com/tendant/media-proxy/pkg/mediaproxy/storage/fs"
	memorystorage "github.com/tendant/media-proxy/pkg/mediaproxy/storage/memory"
	s3storage "github.com/tendant/media-proxy/pkg/mediaproxy/storage/s3"
)

// ServerConfig represents server configuration for the media-proxy service
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// Storage configuration
	StorageBackend string `env:"STORAGE_BACKEND" env-default:"memory"` // "memory", "fs", "s3"
	FSBaseDir      string `env:"FS_BASE_DIR" env-default:"./data/storage"`

	S3Region          string `env:"S3_REGION" env-default:"us-east-1"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	S3BucketPrefix    string `env:"S3_BUCKET_PREFIX"`
	S3CreateBuckets   bool   `env:"S3_CREATE_BUCKETS" env-default:"false"`
	S3EnableSSE       bool   `env:"S3_ENABLE_SSE" env-default:"false"`
	S3SSEAlgorithm    string `env:"S3_SSE_ALGORITHM" env-default:"AES256"`
	S3SSEKMSKeyID     string `env:"S3_SSE_KMS_KEY_ID"`

	// Upload behavior
	UniqueNames  bool          `env:"UNIQUE_NAMES" env-default:"true"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" env-default:"30s"`
	RetryDelay   time.Duration `env:"STORE_RETRY_DELAY" env-default:"250ms"`

	// HTTP surface
	JWTSecret       string `env:"JWT_SECRET"`
	PlaceholderPath string `env:"PLACEHOLDER_PATH"` // static asset served on image 404s, optional

	// Eventing (enabled when AMQP_URL is set)
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" env-default:"media.events"`

	// Activity registry
	ActivityTTL time.Duration `env:"ACTIVITY_TTL" env-default:"15m"`

	// Migration tool
	DatabaseURL      string `env:"DATABASE_URL"`
	MigrationTargets string `env:"MIGRATION_TARGETS"` // comma-separated table.column pairs
	MigrationBatch   int    `env:"MIGRATION_BATCH" env-default:"500"`
}

// Load reads the server configuration from the environment
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	switch c.StorageBackend {
	case "memory", "fs", "s3":
	default:
		return fmt.Errorf("unsupported storage backend type: %s", c.StorageBackend)
	}
	if c.StorageBackend == "fs" && c.FSBaseDir == "" {
		return errors.New("FS_BASE_DIR is required for the fs backend")
	}
	if c.Environment == "production" && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	return nil
}

// BuildObjectStore creates an ObjectStore based on the configuration
func (c *ServerConfig) BuildObjectStore() (mediaproxy.ObjectStore, error) {
	switch c.StorageBackend {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir: c.FSBaseDir,
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                  c.S3Region,
			AccessKeyID:             c.S3AccessKeyID,
			SecretAccessKey:         c.S3SecretAccessKey,
			Endpoint:                c.S3Endpoint,
			UsePathStyle:            c.S3UsePathStyle,
			BucketPrefix:            c.S3BucketPrefix,
			CreateBucketsIfNotExist: c.S3CreateBuckets,
			EnableSSE:               c.S3EnableSSE,
			SSEAlgorithm:            c.S3SSEAlgorithm,
			SSEKMSKeyID:             c.S3SSEKMSKeyID,
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.StorageBackend)
	}
}

// BuildEventSink creates the configured event sink. Returns the noop sink
// when no broker is configured.
func (c *ServerConfig) BuildEventSink(logger *slog.Logger) (mediaproxy.EventSink, func(), error) {
	if c.AMQPURL == "" {
		return mediaproxy.NewNoopEventSink(), func() {}, nil
	}
	sink, err := amqpevents.New(amqpevents.Config{
		URL:      c.AMQPURL,
		Exchange: c.AMQPExchange,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build AMQP event sink: %w", err)
	}
	return sink, sink.Close, nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(logger *slog.Logger) (mediaproxy.Service, func(), error) {
	store, err := c.BuildObjectStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build object store: %w", err)
	}

	sink, closeSink, err := c.BuildEventSink(logger)
	if err != nil {
		return nil, nil, err
	}

	svc, err := mediaproxy.New(
		mediaproxy.WithObjectStore(store),
		mediaproxy.WithEventSink(sink),
		mediaproxy.WithLogger(logger),
		mediaproxy.WithUniqueNames(c.UniqueNames),
		mediaproxy.WithStoreTimeout(c.StoreTimeout),
		mediaproxy.WithRetryDelay(c.RetryDelay),
	)
	if err != nil {
		closeSink()
		return nil, nil, err
	}
	return svc, closeSink, nil
}

// ParseMigrationTargets splits the MIGRATION_TARGETS value into
// table/column pairs.
func (c *ServerConfig) ParseMigrationTargets() ([][2]string, error) {
	if strings.TrimSpace(c.MigrationTargets) == "" {
		return nil, nil
	}
	var out [][2]string
	for _, part := range strings.Split(c.MigrationTargets, ",") {
		table, column, found := strings.Cut(strings.TrimSpace(part), ".")
		if !found || table == "" || column == "" {
			return nil, fmt.Errorf("invalid migration target %q (want table.column)", part)
		}
		out = append(out, [2]string{table, column})
	}
	return out, nil
}
