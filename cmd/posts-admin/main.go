package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-posts/pkg/simpleposts"
	"github.com/tendant/simple-posts/pkg/simpleposts/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := NewRootCommand(os.Stdout, serviceFromEnv)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// serviceFromEnv builds the service the same way the server does, from the
// environment and the .env file.
func serviceFromEnv(ctx context.Context, opts ...config.Option) (simpleposts.Service, func(), error) {
	cfg, err := config.Load(append([]config.Option{config.WithEnv(), config.WithEventLogging(false)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg.BuildService(ctx)
}
