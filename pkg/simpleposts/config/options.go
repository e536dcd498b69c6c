package config

import (
	"fmt"
	"log/slog"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case DatabaseMemory:
		case DatabasePostgres, DatabaseMongo:
			if url == "" {
				return fmt.Errorf("database URL is required for %s", dbType)
			}
		default:
			return fmt.Errorf("database type must be 'memory', 'postgres' or 'mongodb', got: %s", dbType)
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithMongoDatabase sets the database name used on the MongoDB server
func WithMongoDatabase(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return fmt.Errorf("mongo database name cannot be empty")
		}
		c.MongoDatabase = name
		return nil
	}
}

// WithAutoMigrate creates tables and indexes when the service is built
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithDefaultStorage sets the default storage backend name
func WithDefaultStorage(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return fmt.Errorf("default storage backend name cannot be empty")
		}
		c.DefaultStorageBackend = name
		return nil
	}
}

// WithFilesystemStorage adds a filesystem storage backend
// If name is empty, defaults to "fs"
func WithFilesystemStorage(name, baseDir string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "fs"
		}
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}

		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name: name,
			Type: "fs",
			Config: map[string]interface{}{
				"base_dir": baseDir,
			},
		})
		return nil
	}
}

// WithS3Storage adds an S3 storage backend
// If name is empty, defaults to "s3"
func WithS3Storage(name, bucket, region string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "s3"
		}
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}

		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name: name,
			Type: "s3",
			Config: map[string]interface{}{
				"bucket": bucket,
				"region": region,
			},
		})
		return nil
	}
}

// WithS3Credentials sets static credentials on an existing S3 backend
func WithS3Credentials(name, accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		return setStorageOption(c, name, "s3", map[string]interface{}{
			"access_key_id":     accessKeyID,
			"secret_access_key": secretAccessKey,
		})
	}
}

// WithS3Endpoint points an existing S3 backend at an S3-compatible service such as MinIO
func WithS3Endpoint(name, endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		if endpoint == "" {
			return fmt.Errorf("S3 endpoint cannot be empty")
		}
		return setStorageOption(c, name, "s3", map[string]interface{}{
			"endpoint":       endpoint,
			"use_path_style": usePathStyle,
		})
	}
}

// WithMediaBaseURL sets the public URL prefix recorded on uploaded media
func WithMediaBaseURL(baseURL string) Option {
	return func(c *ServerConfig) error {
		c.MediaBaseURL = baseURL
		return nil
	}
}

// WithUploadLimits sets the largest accepted upload body in bytes and the
// upload requests allowed per client IP per minute (0 disables rate limiting)
func WithUploadLimits(maxSize int64, requestsPerMinute int) Option {
	return func(c *ServerConfig) error {
		c.MaxUploadSize = maxSize
		c.UploadRateLimit = requestsPerMinute
		return nil
	}
}

// WithRedisCache enables the post read cache
func WithRedisCache(url string, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		if url == "" {
			return fmt.Errorf("redis URL cannot be empty")
		}
		if ttl < 0 {
			return fmt.Errorf("cache ttl must not be negative, got: %s", ttl)
		}
		c.RedisURL = url
		if ttl > 0 {
			c.CacheTTL = ttl
		}
		return nil
	}
}

// WithNatsEvents publishes lifecycle events to NATS
func WithNatsEvents(url, subjectPrefix string) Option {
	return func(c *ServerConfig) error {
		if url == "" {
			return fmt.Errorf("nats URL cannot be empty")
		}
		c.NatsURL = url
		c.NatsSubjectPrefix = subjectPrefix
		return nil
	}
}

// WithEventLogging enables or disables event logging
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithLogger sets the logger handed to the service and its backends
func WithLogger(logger *slog.Logger) Option {
	return func(c *ServerConfig) error {
		c.Logger = logger
		return nil
	}
}

func setStorageOption(c *ServerConfig, name, backendType string, values map[string]interface{}) error {
	if name == "" {
		name = backendType
	}
	for i := range c.StorageBackends {
		if c.StorageBackends[i].Name == name {
			if c.StorageBackends[i].Type != backendType {
				return fmt.Errorf("storage backend %s is %s, not %s", name, c.StorageBackends[i].Type, backendType)
			}
			for k, v := range values {
				c.StorageBackends[i].Config[k] = v
			}
			return nil
		}
	}
	return fmt.Errorf("storage backend %s is not configured", name)
}

func upsertStorageBackend(backends []StorageBackendConfig, backend StorageBackendConfig) []StorageBackendConfig {
	if backend.Config == nil {
		backend.Config = map[string]interface{}{}
	}
	for i := range backends {
		if backends[i].Name == backend.Name {
			backends[i] = backend
			return backends
		}
	}
	return append(backends, backend)
}
