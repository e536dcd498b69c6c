package simpleposts_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-posts/pkg/simpleposts"
	"github.com/tendant/simple-posts/pkg/simpleposts/repo/memory"
	memorystorage "github.com/tendant/simple-posts/pkg/simpleposts/storage/memory"
)

// sequenceIDs hands out zero-padded increasing ids so that id order equals
// creation order.
type sequenceIDs struct {
	n atomic.Int64
}

func (s *sequenceIDs) NewID() string {
	return fmt.Sprintf("%06d", s.n.Add(1))
}

// countingMediaRepo records how often each repository method is called.
type countingMediaRepo struct {
	*memory.MediaRepository
	mu    sync.Mutex
	calls map[string]int
}

func newCountingMediaRepo() *countingMediaRepo {
	return &countingMediaRepo{MediaRepository: memory.NewMediaRepository(), calls: map[string]int{}}
}

func (r *countingMediaRepo) count(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[method]++
}

func (r *countingMediaRepo) Calls(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

func (r *countingMediaRepo) Mutations() int {
	return r.Calls("UpdateTypeID") + r.Calls("DeleteByKeys")
}

func (r *countingMediaRepo) FindByKeys(ctx context.Context, mediaType, subtype string, keys []string) ([]*simpleposts.MediaResource, error) {
	r.count("FindByKeys")
	return r.MediaRepository.FindByKeys(ctx, mediaType, subtype, keys)
}

func (r *countingMediaRepo) FindByTypeIDAndNotKeys(ctx context.Context, mediaType, subtype, typeID string, excludeKeys []string) ([]*simpleposts.MediaResource, error) {
	r.count("FindByTypeIDAndNotKeys")
	return r.MediaRepository.FindByTypeIDAndNotKeys(ctx, mediaType, subtype, typeID, excludeKeys)
}

func (r *countingMediaRepo) UpdateTypeID(ctx context.Context, keys []string, typeID string) error {
	r.count("UpdateTypeID")
	return r.MediaRepository.UpdateTypeID(ctx, keys, typeID)
}

func (r *countingMediaRepo) DeleteByKeys(ctx context.Context, keys []string) error {
	r.count("DeleteByKeys")
	return r.MediaRepository.DeleteByKeys(ctx, keys)
}

// seedMedia uploads a blob and inserts its record under category.
func seedMedia(t *testing.T, repo simpleposts.MediaRepository, blobs simpleposts.BlobStore, category simpleposts.MediaCategory, name string, owner string) *simpleposts.MediaResource {
	t.Helper()
	ctx := context.Background()

	key := category.String() + "/" + name
	require.NoError(t, blobs.Upload(ctx, key, strings.NewReader("data:"+name), simpleposts.UploadParams{MimeType: "image/png"}))

	now := time.Now().UTC()
	media := &simpleposts.MediaResource{
		ID:        key,
		Type:      category.Type,
		Subtype:   category.Subtype,
		Key:       key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if owner != "" {
		media.TypeID = &owner
	}
	require.NoError(t, repo.Create(ctx, media))
	return media
}

func newBlobs() *memorystorage.Backend {
	return memorystorage.New()
}
