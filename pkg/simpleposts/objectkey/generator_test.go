package objectkey

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFlatGenerator(t *testing.T) {
	gen := &FlatGenerator{Now: func() time.Time { return time.UnixMilli(1700000000000) }}

	tests := []struct {
		name     string
		metadata KeyMetadata
		prefix   string
		suffix   string
	}{
		{
			name:     "cover file with name",
			metadata: KeyMetadata{Type: "posts", Subtype: "cover-files", FileName: "My Photo.png"},
			prefix:   "posts/cover-files/1700000000000-",
			suffix:   "_My_Photo.png",
		},
		{
			name:     "resource without name",
			metadata: KeyMetadata{Type: "posts", Subtype: "resources"},
			prefix:   "posts/resources/1700000000000-",
		},
		{
			name:     "path traversal in name is dropped",
			metadata: KeyMetadata{Type: "posts", Subtype: "resources", FileName: "../../etc/passwd"},
			prefix:   "posts/resources/",
			suffix:   "_passwd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := gen.GenerateKey(tt.metadata)
			assert.True(t, strings.HasPrefix(key, tt.prefix), key)
			if tt.suffix != "" {
				assert.True(t, strings.HasSuffix(key, tt.suffix), key)
			}
			assert.NotContains(t, key, "..")
		})
	}
}

func TestFlatGenerator_Unique(t *testing.T) {
	gen := NewFlatGenerator()
	meta := KeyMetadata{Type: "posts", Subtype: "resources", FileName: "a.jpg"}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := gen.GenerateKey(meta)
		assert.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}

func TestShardedGenerator(t *testing.T) {
	gen := NewShardedGenerator()
	key := gen.GenerateKey(KeyMetadata{Type: "Posts", Subtype: "cover-files", FileName: "a b.jpg"})

	parts := strings.Split(key, "/")
	assert.Len(t, parts, 4)
	assert.Equal(t, "posts", parts[0])
	assert.Equal(t, "cover-files", parts[1])
	assert.Len(t, parts[2], 2)
	assert.True(t, strings.HasSuffix(parts[3], "_a_b.jpg"))
}
