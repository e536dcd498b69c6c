package simpleposts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/simple-posts/pkg/simpleposts/objectkey"
	"golang.org/x/sync/errgroup"
)

// PostFiles is the outcome of reconciling a post's media.
type PostFiles struct {
	CoverFile *MediaResource
	Resources []*MediaResource
}

// ResourceMap indexes the claimed resources by key.
func (f *PostFiles) ResourceMap() map[string]*MediaResource {
	m := make(map[string]*MediaResource, len(f.Resources))
	for _, media := range f.Resources {
		m[media.Key] = media
	}
	return m
}

// PostMedia manages the media attached to posts: uploads into the posts
// namespace, reconciliation of cover and resource files, and teardown.
type PostMedia struct {
	repo      MediaRepository
	blobs     BlobStore
	ids       IDGenerator
	keys      objectkey.Generator
	baseURL   string
	now       func() time.Time
	logger    *slog.Logger
	cover     *Reconciler
	resources *Reconciler
}

// NewPostMedia creates the post media manager.
func NewPostMedia(repo MediaRepository, blobs BlobStore, ids IDGenerator, keys objectkey.Generator, baseURL string, logger *slog.Logger) *PostMedia {
	if logger == nil {
		logger = slog.Default()
	}
	if ids == nil {
		ids = NewTimestampIDGenerator()
	}
	if keys == nil {
		keys = objectkey.NewRecommendedGenerator()
	}
	return &PostMedia{
		repo:      repo,
		blobs:     blobs,
		ids:       ids,
		keys:      keys,
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
		cover:     NewReconciler(CoverFileCategory, repo, blobs, logger),
		resources: NewReconciler(ResourceCategory, repo, blobs, logger),
	}
}

// UploadCoverFile stores a cover file as an unclaimed media record.
func (m *PostMedia) UploadCoverFile(ctx context.Context, req UploadMediaRequest) (*MediaResource, error) {
	return m.upload(ctx, CoverFileCategory, req)
}

// UploadResource stores a content resource as an unclaimed media record.
func (m *PostMedia) UploadResource(ctx context.Context, req UploadMediaRequest) (*MediaResource, error) {
	return m.upload(ctx, ResourceCategory, req)
}

func (m *PostMedia) upload(ctx context.Context, category MediaCategory, req UploadMediaRequest) (*MediaResource, error) {
	if req.Reader == nil {
		return nil, &MediaError{Category: category.String(), Op: "upload", Err: ErrFileRequired}
	}

	key := m.keys.GenerateKey(objectkey.KeyMetadata{
		Type:     category.Type,
		Subtype:  category.Subtype,
		FileName: req.FileName,
	})

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	if err := m.blobs.Upload(ctx, key, req.Reader, UploadParams{MimeType: mimeType, Size: req.Size}); err != nil {
		return nil, &MediaError{Category: category.String(), Keys: []string{key}, Op: "upload", Err: err}
	}

	now := m.now()
	media := &MediaResource{
		ID:          m.ids.NewID(),
		Type:        category.Type,
		Subtype:     category.Subtype,
		Key:         key,
		FileName:    req.FileName,
		MimeType:    mimeType,
		Size:        req.Size,
		CreatedByID: req.CreatedByID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.TypeID != "" {
		owner := req.TypeID
		media.TypeID = &owner
	}
	if m.baseURL != "" {
		media.URL = m.baseURL + "/" + key
	}

	if err := m.repo.Create(ctx, media); err != nil {
		if delErr := m.blobs.Delete(ctx, []string{key}); delErr != nil {
			m.logger.Error("Failed to remove blob after record insert failure", "key", key, "error", delErr)
		}
		return nil, &MediaError{Category: category.String(), Keys: []string{key}, Op: "create_record", Err: err}
	}

	m.logger.Info("Media uploaded", "category", category.String(), "key", key, "size", req.Size)
	return media, nil
}

// UpdatePostFiles validates the cover and resource keys for ownerID and, when
// both are valid, claims them and removes the files they supersede. Cover and
// resources are handled concurrently since they live in disjoint partitions.
func (m *PostMedia) UpdatePostFiles(ctx context.Context, ownerID, coverKey string, resourceKeys []string) (*PostFiles, error) {
	var coverKeys []string
	if coverKey != "" {
		coverKeys = []string{coverKey}
	}

	var coverMedia, resourceMedia []*MediaResource
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		coverMedia, err = m.cover.Validate(gctx, coverKeys, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		resourceMedia, err = m.resources.Validate(gctx, resourceKeys, ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := &PostFiles{}
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		claimed, err := m.cover.Reconcile(gctx, coverMedia, ownerID)
		if err != nil {
			return err
		}
		if len(claimed) > 0 {
			files.CoverFile = claimed[0]
		}
		return nil
	})
	g.Go(func() error {
		claimed, err := m.resources.Reconcile(gctx, resourceMedia, ownerID)
		if err != nil {
			return err
		}
		files.Resources = claimed
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return files, nil
}

// DeletePostFiles removes every file of the posts namespace claimed by
// ownerID, whatever its subtype.
func (m *PostMedia) DeletePostFiles(ctx context.Context, ownerID string) ([]string, error) {
	keys, err := DeleteOwned(ctx, m.repo, m.blobs, MediaTypePosts, ownerID)
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		m.logger.Info("Post media deleted", "owner_id", ownerID, "count", len(keys))
	}
	return keys, nil
}

// Download resolves key to its media record and streams the blob. Keys are
// laid out as {type}/{subtype}/..., which names the partition to search.
func (m *PostMedia) Download(ctx context.Context, key string) (*MediaResource, io.ReadCloser, error) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 3 {
		return nil, nil, fmt.Errorf("invalid media key %q: %w", key, ErrMediaNotFound)
	}
	media, err := m.repo.FindOne(ctx, parts[0], parts[1], key)
	if err != nil {
		return nil, nil, err
	}
	reader, err := m.blobs.Download(ctx, key)
	if err != nil {
		return nil, nil, &MediaError{Category: parts[0] + "/" + parts[1], Keys: []string{key}, Op: "download", Err: err}
	}
	return media, reader, nil
}
