package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tendant/simple-posts/pkg/simpleposts"
)

// MediaRepository implements simpleposts.MediaRepository using in-memory storage
type MediaRepository struct {
	mu    sync.RWMutex
	media map[string]*simpleposts.MediaResource // id -> record
	byKey map[string]string                     // key -> id
	now   func() time.Time
}

// NewMediaRepository creates a new in-memory media repository
func NewMediaRepository() *MediaRepository {
	return &MediaRepository{
		media: make(map[string]*simpleposts.MediaResource),
		byKey: make(map[string]string),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *MediaRepository) Create(ctx context.Context, media *simpleposts.MediaResource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[media.Key]; exists {
		return fmt.Errorf("media key %s already exists", media.Key)
	}
	if _, exists := r.media[media.ID]; exists {
		return fmt.Errorf("media id %s already exists", media.ID)
	}

	r.media[media.ID] = media.Clone()
	r.byKey[media.Key] = media.ID
	return nil
}

func (r *MediaRepository) GetByID(ctx context.Context, id string) (*simpleposts.MediaResource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	media, exists := r.media[id]
	if !exists {
		return nil, simpleposts.ErrMediaNotFound
	}
	return media.Clone(), nil
}

func (r *MediaRepository) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	media, exists := r.media[id]
	if !exists {
		return simpleposts.ErrMediaNotFound
	}
	delete(r.byKey, media.Key)
	delete(r.media, id)
	return nil
}

func (r *MediaRepository) FindOne(ctx context.Context, mediaType, subtype, key string) (*simpleposts.MediaResource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	media := r.lookup(mediaType, subtype, key)
	if media == nil {
		return nil, simpleposts.ErrMediaNotFound
	}
	return media.Clone(), nil
}

func (r *MediaRepository) FindByKeys(ctx context.Context, mediaType, subtype string, keys []string) ([]*simpleposts.MediaResource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(keys))
	var result []*simpleposts.MediaResource
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if media := r.lookup(mediaType, subtype, key); media != nil {
			result = append(result, media.Clone())
		}
	}
	return result, nil
}

func (r *MediaRepository) FindByTypeIDAndNotKeys(ctx context.Context, mediaType, subtype, typeID string, excludeKeys []string) ([]*simpleposts.MediaResource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	excluded := make(map[string]struct{}, len(excludeKeys))
	for _, key := range excludeKeys {
		excluded[key] = struct{}{}
	}

	var result []*simpleposts.MediaResource
	for _, media := range r.media {
		if media.Type != mediaType || media.Subtype != subtype || !media.ClaimedBy(typeID) {
			continue
		}
		if _, skip := excluded[media.Key]; skip {
			continue
		}
		result = append(result, media.Clone())
	}
	sortByKey(result)
	return result, nil
}

func (r *MediaRepository) FindByTypeIDs(ctx context.Context, mediaType string, typeIDs []string) ([]*simpleposts.MediaResource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owners := make(map[string]struct{}, len(typeIDs))
	for _, id := range typeIDs {
		owners[id] = struct{}{}
	}

	var result []*simpleposts.MediaResource
	for _, media := range r.media {
		if media.Type != mediaType || media.TypeID == nil {
			continue
		}
		if _, ok := owners[*media.TypeID]; ok {
			result = append(result, media.Clone())
		}
	}
	sortByKey(result)
	return result, nil
}

func (r *MediaRepository) UpdateTypeID(ctx context.Context, keys []string, typeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, key := range keys {
		id, exists := r.byKey[key]
		if !exists {
			continue
		}
		owner := typeID
		r.media[id].TypeID = &owner
		r.media[id].UpdatedAt = now
	}
	return nil
}

func (r *MediaRepository) DeleteByKeys(ctx context.Context, keys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range keys {
		if id, exists := r.byKey[key]; exists {
			delete(r.media, id)
			delete(r.byKey, key)
		}
	}
	return nil
}

// Len returns the number of stored records.
func (r *MediaRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.media)
}

func (r *MediaRepository) lookup(mediaType, subtype, key string) *simpleposts.MediaResource {
	id, exists := r.byKey[key]
	if !exists {
		return nil
	}
	media := r.media[id]
	if media.Type != mediaType || media.Subtype != subtype {
		return nil
	}
	return media
}

func sortByKey(media []*simpleposts.MediaResource) {
	sort.Slice(media, func(i, j int) bool {
		return media[i].Key < media[j].Key
	})
}
