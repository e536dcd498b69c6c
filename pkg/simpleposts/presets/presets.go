package presets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/tendant/simple-posts/pkg/simpleposts"
	"github.com/tendant/simple-posts/pkg/simpleposts/config"
	memoryrepo "github.com/tendant/simple-posts/pkg/simpleposts/repo/memory"
	fsstorage "github.com/tendant/simple-posts/pkg/simpleposts/storage/fs"
	memorystorage "github.com/tendant/simple-posts/pkg/simpleposts/storage/memory"
)

// Configuration Presets
//
// This package provides ready-made service setups for common use cases.

// NewDevelopment creates a service configured for local development.
//
// Features:
//   - In-memory post and media repositories (no setup required)
//   - Filesystem storage at ./dev-data/
//   - Lifecycle events logged through slog
//
// The cleanup function removes the storage directory.
//
// Example:
//
//	svc, cleanup, err := presets.NewDevelopment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewDevelopment(opts ...DevelopmentOption) (simpleposts.Service, func(), error) {
	cfg := &devConfig{
		storageDir: "./dev-data",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	fsBackend, err := fsstorage.New(fsstorage.Config{
		BaseDir: cfg.storageDir,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create filesystem storage: %w", err)
	}

	svc, err := simpleposts.New(
		simpleposts.WithPostRepository(memoryrepo.NewPostRepository()),
		simpleposts.WithMediaRepository(memoryrepo.NewMediaRepository()),
		simpleposts.WithBlobStore(fsBackend),
		simpleposts.WithEventSink(simpleposts.NewLoggingEventSink(cfg.logger)),
		simpleposts.WithMediaBaseURL(cfg.mediaBaseURL),
		simpleposts.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	cleanup := func() {
		if err := os.RemoveAll(cfg.storageDir); err != nil {
			cfg.logger.Warn("Failed to remove development storage", "dir", cfg.storageDir, "error", err)
		}
	}

	return svc, cleanup, nil
}

// NewTesting creates a service configured for unit and integration tests.
//
// Features:
//   - In-memory repositories and storage, isolated per call
//   - No event logging
//   - Optional fixtures: a published post with a cover file and one resource
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    svc := presets.NewTesting(t)
//	    // Use service in test...
//	}
func NewTesting(t testing.TB, opts ...TestingOption) simpleposts.Service {
	t.Helper()

	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	svc, err := simpleposts.New(
		simpleposts.WithPostRepository(memoryrepo.NewPostRepository()),
		simpleposts.WithMediaRepository(memoryrepo.NewMediaRepository()),
		simpleposts.WithBlobStore(memorystorage.New()),
		simpleposts.WithLogger(slog.New(slog.NewTextHandler(testWriter{t}, nil))),
	)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}

	if cfg.fixtures {
		if err := seedFixtures(context.Background(), svc); err != nil {
			t.Fatalf("failed to seed fixtures: %v", err)
		}
	}

	return svc
}

// FixtureTitle is the title of the post seeded by WithTestFixtures.
const FixtureTitle = "Welcome to simple-posts"

func seedFixtures(ctx context.Context, svc simpleposts.Service) error {
	cover, err := svc.UploadCoverFile(ctx, simpleposts.UploadMediaRequest{
		Reader:   strings.NewReader("cover"),
		FileName: "cover.png",
		MimeType: "image/png",
		Size:     5,
	})
	if err != nil {
		return err
	}
	resource, err := svc.UploadResource(ctx, simpleposts.UploadMediaRequest{
		Reader:   strings.NewReader("diagram"),
		FileName: "diagram.png",
		MimeType: "image/png",
		Size:     7,
	})
	if err != nil {
		return err
	}
	_, err = svc.CreatePost(ctx, simpleposts.CreatePostRequest{
		Title:            FixtureTitle,
		ShortDescription: "A sample post",
		CoverFileKey:     cover.Key,
		Content: []simpleposts.ContentBlockRequest{
			{Type: simpleposts.ContentTypeText, Text: "Hello from the fixtures."},
			{Type: simpleposts.ContentTypeResources, ResourceKeys: []string{resource.Key}},
		},
	})
	return err
}

// NewProduction creates a service configured for production deployment from
// the environment (see config.WithEnv). It refuses in-memory databases and
// storage.
//
// Example:
//
//	svc, cleanup, err := presets.NewProduction(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewProduction(ctx context.Context, opts ...config.Option) (simpleposts.Service, func(), error) {
	cfg, err := config.Load(append([]config.Option{config.WithEnv(), config.WithEnvironment("production")}, opts...)...)
	if err != nil {
		return nil, nil, err
	}

	if cfg.DatabaseType == config.DatabaseMemory {
		return nil, nil, fmt.Errorf("production preset requires a postgres or mongodb DATABASE_URL (memory not allowed in production)")
	}
	if cfg.DefaultStorageBackend == "memory" {
		return nil, nil, fmt.Errorf("production preset requires persistent storage (s3 or fs, not memory)")
	}

	return cfg.BuildService(ctx)
}

// devConfig holds development preset configuration
type devConfig struct {
	storageDir   string
	mediaBaseURL string
	logger       *slog.Logger
}

// testConfig holds testing preset configuration
type testConfig struct {
	fixtures bool
}

// DevelopmentOption is a functional option for NewDevelopment
type DevelopmentOption func(*devConfig)

// WithDevStorage sets the development storage directory
func WithDevStorage(dir string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.storageDir = dir
	}
}

// WithDevMediaBaseURL sets the URL prefix recorded on uploaded media
func WithDevMediaBaseURL(baseURL string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.mediaBaseURL = baseURL
	}
}

// WithDevLogger sets the development logger
func WithDevLogger(logger *slog.Logger) DevelopmentOption {
	return func(cfg *devConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// TestingOption is a functional option for NewTesting
type TestingOption func(*testConfig)

// WithTestFixtures seeds a sample post
func WithTestFixtures() TestingOption {
	return func(cfg *testConfig) {
		cfg.fixtures = true
	}
}

// testWriter sends service logs to the test log
type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
