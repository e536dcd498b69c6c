package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig lists the environment variables understood by WithEnv.
type envConfig struct {
	Port        string `env:"PORT" env-description:"Server port"`
	Environment string `env:"ENVIRONMENT" env-description:"Runtime environment"`

	DatabaseURL   string `env:"DATABASE_URL" env-description:"memory, postgres://... or mongodb://..."`
	DBSchema      string `env:"DB_SCHEMA" env-description:"Postgres search_path"`
	MongoDatabase string `env:"MONGO_DATABASE" env-description:"MongoDB database name"`
	AutoMigrate   string `env:"AUTO_MIGRATE" env-description:"Create tables and indexes on startup"`

	StorageURL   string `env:"STORAGE_URL" env-description:"memory://, file:///path or s3://bucket?region=&endpoint="`
	MediaBaseURL string `env:"MEDIA_BASE_URL" env-description:"Public URL prefix of uploaded media"`

	MaxUploadSize   int64  `env:"MAX_UPLOAD_SIZE" env-description:"Largest accepted upload in bytes"`
	UploadRateLimit string `env:"UPLOAD_RATE_LIMIT" env-description:"Uploads per client IP per minute, 0 disables"`

	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `env:"AWS_REGION"`

	RedisURL string        `env:"REDIS_URL" env-description:"Enables the post read cache"`
	CacheTTL time.Duration `env:"CACHE_TTL" env-description:"Post cache entry lifetime"`

	NatsURL            string `env:"NATS_URL" env-description:"Enables NATS lifecycle events"`
	NatsSubjectPrefix  string `env:"NATS_SUBJECT_PREFIX"`
	EnableEventLogging string `env:"ENABLE_EVENT_LOGGING"`
}

// WithEnv applies environment variable overrides. Unset variables keep the
// values set by defaults or by earlier options.
//
// Database:
//
//	DATABASE_URL - "memory" (default), "postgres://..." or "mongodb://..."
//
// Storage:
//
//	STORAGE_URL - one of
//	  "memory://" - In-memory storage (default)
//	  "file:///path/to/data" - Filesystem storage
//	  "s3://bucket?region=us-east-1&endpoint=http://localhost:9000" - S3 storage
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return env.apply(c)
	}
}

// EnvUsage describes the environment variables read by WithEnv.
func EnvUsage() (string, error) {
	return cleanenv.GetDescription(&envConfig{}, nil)
}

func (e envConfig) apply(c *ServerConfig) error {
	setString(&c.Port, e.Port)
	setString(&c.Environment, e.Environment)
	setString(&c.DBSchema, e.DBSchema)
	setString(&c.MongoDatabase, e.MongoDatabase)
	setString(&c.MediaBaseURL, e.MediaBaseURL)
	setString(&c.RedisURL, e.RedisURL)
	setString(&c.NatsURL, e.NatsURL)
	setString(&c.NatsSubjectPrefix, e.NatsSubjectPrefix)
	if e.CacheTTL > 0 {
		c.CacheTTL = e.CacheTTL
	}
	if e.MaxUploadSize > 0 {
		c.MaxUploadSize = e.MaxUploadSize
	}
	if e.UploadRateLimit != "" {
		limit, err := strconv.Atoi(e.UploadRateLimit)
		if err != nil {
			return fmt.Errorf("invalid integer for UPLOAD_RATE_LIMIT: %w", err)
		}
		c.UploadRateLimit = limit
	}

	if err := setBool(&c.AutoMigrate, "AUTO_MIGRATE", e.AutoMigrate); err != nil {
		return err
	}
	if err := setBool(&c.EnableEventLogging, "ENABLE_EVENT_LOGGING", e.EnableEventLogging); err != nil {
		return err
	}

	if err := e.applyDatabase(c); err != nil {
		return err
	}
	return e.applyStorage(c)
}

// applyDatabase auto-detects the database type from DATABASE_URL
func (e envConfig) applyDatabase(c *ServerConfig) error {
	dbURL := e.DatabaseURL
	switch {
	case dbURL == "":
		return nil
	case dbURL == "memory":
		c.DatabaseType = DatabaseMemory
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = DatabasePostgres
		c.DatabaseURL = dbURL
	case strings.HasPrefix(dbURL, "mongodb://"), strings.HasPrefix(dbURL, "mongodb+srv://"):
		c.DatabaseType = DatabaseMongo
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'postgresql://...' or 'mongodb://...')", dbURL)
	}
	return nil
}

// applyStorage configures the default storage backend from STORAGE_URL
func (e envConfig) applyStorage(c *ServerConfig) error {
	raw := e.StorageURL
	if raw == "" {
		return nil
	}
	if raw == "memory" || raw == "memory://" {
		c.DefaultStorageBackend = "memory"
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{Name: "memory", Type: "memory"})
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}

	switch u.Scheme {
	case "file":
		if u.Path == "" {
			return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		c.DefaultStorageBackend = "fs"
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name:   "fs",
			Type:   "fs",
			Config: map[string]interface{}{"base_dir": u.Path},
		})
	case "s3":
		if u.Host == "" {
			return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
		}
		backend := StorageBackendConfig{
			Name: "s3",
			Type: "s3",
			Config: map[string]interface{}{
				"bucket": u.Host,
				"region": "us-east-1",
			},
		}
		query := u.Query()
		for _, key := range []string{"region", "endpoint", "sse_algorithm", "sse_kms_key_id"} {
			if v := query.Get(key); v != "" {
				backend.Config[key] = v
			}
		}
		for _, key := range []string{"use_path_style", "enable_sse", "create_bucket_if_not_exist"} {
			if v := query.Get(key); v != "" {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return fmt.Errorf("invalid boolean for STORAGE_URL %s: %w", key, err)
				}
				backend.Config[key] = b
			}
		}
		if e.AWSRegion != "" && query.Get("region") == "" {
			backend.Config["region"] = e.AWSRegion
		}
		if e.AWSAccessKeyID != "" {
			backend.Config["access_key_id"] = e.AWSAccessKeyID
		}
		if e.AWSSecretAccessKey != "" {
			backend.Config["secret_access_key"] = e.AWSSecretAccessKey
		}
		c.DefaultStorageBackend = "s3"
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, backend)
	default:
		return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", raw)
	}
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setBool(dst *bool, name, value string) error {
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean for %s: %w", name, err)
	}
	*dst = parsed
	return nil
}
