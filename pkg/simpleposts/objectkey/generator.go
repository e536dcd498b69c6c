package objectkey

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates an object key for storage backends
	GenerateKey(metadata KeyMetadata) string
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	Type     string // media type, e.g. "posts"
	Subtype  string // media subtype, e.g. "cover-files"
	FileName string // original upload name
}

// FlatGenerator produces {type}/{subtype}/{millis}-{uuid}_{filename}.
type FlatGenerator struct {
	Now func() time.Time
}

func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{Now: time.Now}
}

func (g *FlatGenerator) GenerateKey(metadata KeyMetadata) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	name := fmt.Sprintf("%d-%s", now().UnixMilli(), uuid.New())
	if metadata.FileName != "" {
		name = name + "_" + sanitizeFilename(path.Base(metadata.FileName))
	}
	return prefix(metadata) + name
}

// ShardedGenerator provides Git-style sharded keys within the media partition
// {type}/{subtype}/ab/cd1234ef5678_filename
type ShardedGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{ShardLength: 2}
}

func (g *ShardedGenerator) GenerateKey(metadata KeyMetadata) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")

	shardLength := g.ShardLength
	if shardLength <= 0 || shardLength >= len(id) {
		shardLength = 2
	}

	filename := id[shardLength:]
	if metadata.FileName != "" {
		filename = fmt.Sprintf("%s_%s", filename, sanitizeFilename(path.Base(metadata.FileName)))
	}

	return fmt.Sprintf("%s%s/%s", prefix(metadata), id[:shardLength], filename)
}

func prefix(metadata KeyMetadata) string {
	var parts []string
	if metadata.Type != "" {
		parts = append(parts, sanitizePathComponent(metadata.Type))
	}
	if metadata.Subtype != "" {
		parts = append(parts, sanitizePathComponent(metadata.Subtype))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "/") + "/"
}

var unsafeChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
)

// Helper functions for path sanitization
func sanitizeFilename(filename string) string {
	return unsafeChars.Replace(filename)
}

func sanitizePathComponent(component string) string {
	return strings.ToLower(unsafeChars.Replace(component))
}

// NewRecommendedGenerator returns the recommended generator for new installations
func NewRecommendedGenerator() Generator {
	return NewFlatGenerator()
}
