package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/tendant/simple-posts/pkg/simpleposts"
	rediscache "github.com/tendant/simple-posts/pkg/simpleposts/cache/redis"
	"github.com/tendant/simple-posts/pkg/simpleposts/events"
	"github.com/tendant/simple-posts/pkg/simpleposts/repo/memory"
	"github.com/tendant/simple-posts/pkg/simpleposts/repo/mongodb"
	repopg "github.com/tendant/simple-posts/pkg/simpleposts/repo/postgres"
	fsstorage "github.com/tendant/simple-posts/pkg/simpleposts/storage/fs"
	memorystorage "github.com/tendant/simple-posts/pkg/simpleposts/storage/memory"
	s3storage "github.com/tendant/simple-posts/pkg/simpleposts/storage/s3"
)

// Database types
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseMongo    = "mongodb"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                  "8080",
		Environment:           "development",
		DatabaseType:          DatabaseMemory,
		MongoDatabase:         "simpleposts",
		DefaultStorageBackend: "memory",
		StorageBackends: []StorageBackendConfig{
			{
				Name:   "memory",
				Type:   "memory",
				Config: map[string]interface{}{},
			},
		},
		MaxUploadSize:      32 << 20,
		UploadRateLimit:    60,
		CacheTTL:           rediscache.DefaultTTL,
		EnableEventLogging: true,
	}
}

// ServerConfig represents server configuration for the simple-posts service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL   string
	DatabaseType  string // "memory", "postgres", "mongodb"
	DBSchema      string // Postgres search_path, empty keeps the server default
	MongoDatabase string
	AutoMigrate   bool // create tables and indexes on startup

	// Storage configuration
	DefaultStorageBackend string
	StorageBackends       []StorageBackendConfig
	MediaBaseURL          string // public prefix recorded on uploaded media

	// Upload limits of the HTTP API
	MaxUploadSize   int64 // bytes per upload request
	UploadRateLimit int   // upload requests per client IP per minute, 0 disables

	// Post read cache, disabled when RedisURL is empty
	RedisURL string
	CacheTTL time.Duration

	// Lifecycle events, NATS publishing is disabled when NatsURL is empty
	NatsURL            string
	NatsSubjectPrefix  string
	EnableEventLogging bool

	Logger *slog.Logger
}

// StorageBackendConfig represents configuration for a storage backend
type StorageBackendConfig struct {
	Name   string
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case DatabaseMemory:
	case DatabasePostgres, DatabaseMongo:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when using %s", c.DatabaseType)
		}
	default:
		return errors.New("database_type must be 'memory', 'postgres' or 'mongodb'")
	}

	if c.DatabaseType == DatabaseMongo && c.MongoDatabase == "" {
		return errors.New("mongo_database is required when using mongodb")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive, got: %d", c.MaxUploadSize)
	}

	if c.UploadRateLimit < 0 {
		return fmt.Errorf("upload rate limit must not be negative, got: %d", c.UploadRateLimit)
	}

	if c.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must not be negative, got: %s", c.CacheTTL)
	}

	if _, ok := c.storageBackend(c.DefaultStorageBackend); !ok {
		return fmt.Errorf("default storage backend '%s' not found in configured backends", c.DefaultStorageBackend)
	}

	return nil
}

func (c *ServerConfig) storageBackend(name string) (StorageBackendConfig, bool) {
	for _, backend := range c.StorageBackends {
		if backend.Name == name {
			return backend, true
		}
	}
	return StorageBackendConfig{}, false
}

func (c *ServerConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// BuildService creates a Service instance from the server configuration. The
// returned cleanup closes every connection BuildService opened and must be
// called once the service is no longer used.
func (c *ServerConfig) BuildService(ctx context.Context) (simpleposts.Service, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (simpleposts.Service, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	logger := c.logger()
	options := []simpleposts.Option{
		simpleposts.WithLogger(logger),
		simpleposts.WithMediaBaseURL(c.MediaBaseURL),
	}

	// Set up repositories
	postRepo, mediaRepo, closeRepo, err := c.buildRepositories(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to build repositories: %w", err))
	}
	cleanups = append(cleanups, closeRepo)
	options = append(options,
		simpleposts.WithPostRepository(postRepo),
		simpleposts.WithMediaRepository(mediaRepo),
	)

	// Set up storage backend
	backendConfig, _ := c.storageBackend(c.DefaultStorageBackend)
	store, err := c.buildStorageBackend(backendConfig)
	if err != nil {
		return fail(fmt.Errorf("failed to build storage backend %s: %w", backendConfig.Name, err))
	}
	options = append(options, simpleposts.WithBlobStore(store))

	// Set up cache
	if c.RedisURL != "" {
		cache, err := rediscache.NewFromURL(c.RedisURL, rediscache.WithTTL(c.CacheTTL))
		if err != nil {
			return fail(fmt.Errorf("failed to build post cache: %w", err))
		}
		cleanups = append(cleanups, func() {
			if err := cache.Close(); err != nil {
				logger.Warn("Failed to close post cache", "error", err)
			}
		})
		options = append(options, simpleposts.WithCache(cache))
	}

	// Set up event sinks
	var sinks simpleposts.MultiEventSink
	if c.EnableEventLogging {
		sinks = append(sinks, simpleposts.NewLoggingEventSink(logger))
	}
	if c.NatsURL != "" {
		conn, err := nats.Connect(c.NatsURL, nats.Name("simple-posts"))
		if err != nil {
			return fail(fmt.Errorf("failed to connect to nats: %w", err))
		}
		cleanups = append(cleanups, func() {
			if err := conn.Drain(); err != nil {
				logger.Warn("Failed to drain nats connection", "error", err)
			}
		})
		sinks = append(sinks, events.NewNatsPublisher(conn, c.NatsSubjectPrefix, logger))
	}
	if len(sinks) > 0 {
		options = append(options, simpleposts.WithEventSink(sinks))
	}

	svc, err := simpleposts.New(options...)
	if err != nil {
		return fail(err)
	}
	return svc, cleanup, nil
}

// buildRepositories creates the post and media repositories based on the configuration
func (c *ServerConfig) buildRepositories(ctx context.Context) (simpleposts.PostRepository, simpleposts.MediaRepository, func(), error) {
	switch c.DatabaseType {
	case DatabaseMemory:
		return memory.NewPostRepository(), memory.NewMediaRepository(), func() {}, nil
	case DatabasePostgres:
		pool, err := newPostgresPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, nil, nil, err
		}
		if c.AutoMigrate {
			if err := repopg.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, nil, err
			}
		}
		return repopg.NewPostRepositoryWithPool(pool), repopg.NewMediaRepositoryWithPool(pool), pool.Close, nil
	case DatabaseMongo:
		client, err := mongodb.Connect(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		closeClient := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				c.logger().Warn("Failed to disconnect mongodb", "error", err)
			}
		}
		db := client.Database(c.MongoDatabase)
		if c.AutoMigrate {
			if err := mongodb.EnsureIndexes(ctx, db); err != nil {
				closeClient()
				return nil, nil, nil, err
			}
		}
		return mongodb.NewPostRepository(db), mongodb.NewMediaRepository(db), closeClient, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func newPostgresPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// PingPostgres verifies connectivity to Postgres and optionally sets search_path for the session.
// It fails if the schema (when provided) does not exist.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := newPostgresPool(ctx, databaseURL, schema)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildStorageBackend creates a BlobStore based on the backend configuration
func (c *ServerConfig) buildStorageBackend(config StorageBackendConfig) (simpleposts.BlobStore, error) {
	switch config.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir: getString(config.Config, "base_dir", "./data/storage"),
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 getString(config.Config, "region", "us-east-1"),
			Bucket:                 getString(config.Config, "bucket", ""),
			AccessKeyID:            getString(config.Config, "access_key_id", ""),
			SecretAccessKey:        getString(config.Config, "secret_access_key", ""),
			Endpoint:               getString(config.Config, "endpoint", ""),
			UsePathStyle:           getBool(config.Config, "use_path_style", false),
			EnableSSE:              getBool(config.Config, "enable_sse", false),
			SSEAlgorithm:           getString(config.Config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config.Config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config.Config, "create_bucket_if_not_exist", false),
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}
