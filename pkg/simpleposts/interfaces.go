package simpleposts

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Upload stores the reader contents under objectKey
	Upload(ctx context.Context, objectKey string, reader io.Reader, params UploadParams) error

	// Download streams the object stored under objectKey
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the objects. Missing objects are not an error.
	Delete(ctx context.Context, objectKeys []string) error
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	MimeType string
	Size     int64
}

// MediaRepository persists media resource records.
type MediaRepository interface {
	Create(ctx context.Context, media *MediaResource) error
	GetByID(ctx context.Context, id string) (*MediaResource, error)
	DeleteByID(ctx context.Context, id string) error

	// FindOne returns ErrMediaNotFound when no record has the key.
	FindOne(ctx context.Context, mediaType, subtype, key string) (*MediaResource, error)
	FindByKeys(ctx context.Context, mediaType, subtype string, keys []string) ([]*MediaResource, error)

	// FindByTypeIDAndNotKeys returns the records of the partition claimed by
	// typeID whose key is not in excludeKeys.
	FindByTypeIDAndNotKeys(ctx context.Context, mediaType, subtype, typeID string, excludeKeys []string) ([]*MediaResource, error)

	// FindByTypeIDs returns the records of every subtype of mediaType claimed by one of typeIDs.
	FindByTypeIDs(ctx context.Context, mediaType string, typeIDs []string) ([]*MediaResource, error)

	// UpdateTypeID claims every record with one of keys for typeID in one write.
	UpdateTypeID(ctx context.Context, keys []string, typeID string) error
	DeleteByKeys(ctx context.Context, keys []string) error
}

// PostRepository is the storage backend behind PostStore. Implementations
// only translate between Post and their storage format.
type PostRepository interface {
	Insert(ctx context.Context, post *Post) error
	// Update returns ErrPostNotFound when the post does not exist.
	Update(ctx context.Context, post *Post) error
	// FindByID returns ErrPostNotFound when the post does not exist.
	FindByID(ctx context.Context, id string) (*Post, error)
	DeleteByID(ctx context.Context, id string) error
	Count(ctx context.Context, filter PostFilter) (int64, error)
	// List returns matching posts ordered by id descending.
	List(ctx context.Context, filter PostFilter, skip, limit int64) ([]*Post, error)
}

// PostCache caches posts by id.
type PostCache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, id string) (*Post, error)
	Set(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id string) error
}

// EventSink defines the interface for event handling
type EventSink interface {
	PostCreated(ctx context.Context, post *Post) error
	PostUpdated(ctx context.Context, post *Post) error
	PostDeleted(ctx context.Context, postID string) error
	MediaUploaded(ctx context.Context, media *MediaResource) error
	MediaDeleted(ctx context.Context, keys []string) error
}

// IDGenerator produces identifiers for posts, blocks, and media.
type IDGenerator interface {
	NewID() string
}

// TimestampIDGenerator produces "<unix millis>-<uuid>" ids, which sort by creation time.
type TimestampIDGenerator struct {
	Now func() time.Time
}

// NewTimestampIDGenerator creates a generator backed by the wall clock.
func NewTimestampIDGenerator() *TimestampIDGenerator {
	return &TimestampIDGenerator{Now: time.Now}
}

func (g *TimestampIDGenerator) NewID() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return fmt.Sprintf("%d-%s", now().UnixMilli(), uuid.New())
}
