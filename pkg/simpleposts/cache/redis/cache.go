package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/tendant/simple-posts/pkg/simpleposts"
)

// DefaultTTL bounds how long a cached post may be served.
const DefaultTTL = 10 * time.Minute

// PostCache implements simpleposts.PostCache on Redis. Posts are stored as
// JSON under "<prefix>post:<id>".
type PostCache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// Option configures a PostCache
type Option func(*PostCache)

// WithPrefix sets the key prefix
func WithPrefix(prefix string) Option {
	return func(c *PostCache) {
		c.prefix = prefix
	}
}

// WithTTL sets the entry lifetime
func WithTTL(ttl time.Duration) Option {
	return func(c *PostCache) {
		c.ttl = ttl
	}
}

// New creates a post cache on client
func New(client *goredis.Client, opts ...Option) *PostCache {
	c := &PostCache{
		client: client,
		prefix: "simpleposts:",
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromURL parses a redis:// URL and creates the client and cache
func NewFromURL(url string, opts ...Option) (*PostCache, error) {
	options, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return New(goredis.NewClient(options), opts...), nil
}

func (c *PostCache) key(id string) string {
	return c.prefix + "post:" + id
}

func (c *PostCache) Get(ctx context.Context, id string) (*simpleposts.Post, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached post %s: %w", id, err)
	}

	var post simpleposts.Post
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, fmt.Errorf("failed to decode cached post %s: %w", id, err)
	}
	return &post, nil
}

func (c *PostCache) Set(ctx context.Context, post *simpleposts.Post) error {
	data, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("failed to encode post %s: %w", post.ID, err)
	}
	if err := c.client.Set(ctx, c.key(post.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache post %s: %w", post.ID, err)
	}
	return nil
}

func (c *PostCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to evict post %s: %w", id, err)
	}
	return nil
}

// Ping checks the connection
func (c *PostCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (c *PostCache) Close() error {
	return c.client.Close()
}
