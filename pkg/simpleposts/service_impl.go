package simpleposts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/tendant/simple-posts/pkg/simpleposts/objectkey"
)

// service implements the Service interface
type service struct {
	postRepo  PostRepository
	mediaRepo MediaRepository
	blobStore BlobStore
	eventSink EventSink
	cache     PostCache
	ids       IDGenerator
	keys      objectkey.Generator
	baseURL   string
	now       func() time.Time
	logger    *slog.Logger

	posts *PostStore
	media *PostMedia
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithPostRepository sets the post storage backend
func WithPostRepository(repo PostRepository) Option {
	return func(s *service) {
		s.postRepo = repo
	}
}

// WithMediaRepository sets the media record store
func WithMediaRepository(repo MediaRepository) Option {
	return func(s *service) {
		s.mediaRepo = repo
	}
}

// WithBlobStore sets the storage backend for media files
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithCache sets a read-through cache for GetPost
func WithCache(cache PostCache) Option {
	return func(s *service) {
		s.cache = cache
	}
}

// WithIDGenerator overrides the id generator
func WithIDGenerator(ids IDGenerator) Option {
	return func(s *service) {
		s.ids = ids
	}
}

// WithKeyGenerator overrides the object key generator used for uploads
func WithKeyGenerator(keys objectkey.Generator) Option {
	return func(s *service) {
		s.keys = keys
	}
}

// WithMediaBaseURL sets the public URL prefix recorded on uploaded media
func WithMediaBaseURL(baseURL string) Option {
	return func(s *service) {
		s.baseURL = baseURL
	}
}

// WithClock overrides the time source for audit fields
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{}
	for _, option := range options {
		option(s)
	}

	if s.postRepo == nil {
		return nil, errors.New("post repository is required")
	}
	if s.mediaRepo == nil {
		return nil, errors.New("media repository is required")
	}
	if s.blobStore == nil {
		return nil, errors.New("blob store is required")
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.ids == nil {
		s.ids = NewTimestampIDGenerator()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.posts = NewPostStore(s.postRepo, s.ids, s.now)
	s.media = NewPostMedia(s.mediaRepo, s.blobStore, s.ids, s.keys, s.baseURL, s.logger)
	if s.now != nil {
		s.media.now = s.now
	}

	return s, nil
}

// Media operations

func (s *service) UploadCoverFile(ctx context.Context, req UploadMediaRequest) (*MediaResource, error) {
	media, err := s.media.UploadCoverFile(ctx, req)
	if err != nil {
		return nil, err
	}
	s.fire(ctx, "media_uploaded", func() error { return s.eventSink.MediaUploaded(ctx, media) })
	return media, nil
}

func (s *service) UploadResource(ctx context.Context, req UploadMediaRequest) (*MediaResource, error) {
	media, err := s.media.UploadResource(ctx, req)
	if err != nil {
		return nil, err
	}
	s.fire(ctx, "media_uploaded", func() error { return s.eventSink.MediaUploaded(ctx, media) })
	return media, nil
}

func (s *service) DownloadMedia(ctx context.Context, key string) (*MediaResource, io.ReadCloser, error) {
	return s.media.Download(ctx, key)
}

// Post operations

func (s *service) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	post := s.posts.New()
	post.CreatedByID = req.CreatedByID
	if err := s.attachFiles(ctx, post, req); err != nil {
		return nil, err
	}

	created, err := s.posts.Create(ctx, post)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Post created", "post_id", created.ID)
	s.fire(ctx, "post_created", func() error { return s.eventSink.PostCreated(ctx, created) })
	return created, nil
}

func (s *service) UpdatePost(ctx context.Context, id string, req CreatePostRequest) (*Post, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, &PostError{PostID: id, Op: "update", Err: ErrPostNotFound}
	}

	if err := s.attachFiles(ctx, post, req); err != nil {
		return nil, err
	}

	saved, err := s.posts.Save(ctx, post)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, saved.ID)
	s.logger.Info("Post updated", "post_id", saved.ID)
	s.fire(ctx, "post_updated", func() error { return s.eventSink.PostUpdated(ctx, saved) })
	return saved, nil
}

func (s *service) DeletePost(ctx context.Context, id string) error {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return &PostError{PostID: id, Op: "delete", Err: ErrPostNotFound}
	}

	keys, err := s.media.DeletePostFiles(ctx, post.ID)
	if err != nil {
		return err
	}
	if err := s.posts.DeleteByID(ctx, post.ID); err != nil {
		return err
	}

	s.invalidate(ctx, post.ID)
	s.logger.Info("Post deleted", "post_id", post.ID, "media_deleted", len(keys))
	if len(keys) > 0 {
		s.fire(ctx, "media_deleted", func() error { return s.eventSink.MediaDeleted(ctx, keys) })
	}
	s.fire(ctx, "post_deleted", func() error { return s.eventSink.PostDeleted(ctx, post.ID) })
	return nil
}

func (s *service) GetPost(ctx context.Context, id string) (*Post, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("Post cache read failed", "post_id", id, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, &PostError{PostID: id, Op: "get", Err: ErrPostNotFound}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, post); err != nil {
			s.logger.Warn("Post cache write failed", "post_id", id, "error", err)
		}
	}
	return post, nil
}

func (s *service) GetPosts(ctx context.Context, query PostQuery) (*PostList, error) {
	return s.posts.Find(ctx, query)
}

// attachFiles reconciles the request media against post.ID and rebuilds the
// post body from the claimed files.
func (s *service) attachFiles(ctx context.Context, post *Post, req CreatePostRequest) error {
	files, err := s.media.UpdatePostFiles(ctx, post.ID, req.CoverFileKey, ResourceKeys(req.Content))
	if err != nil {
		return err
	}
	return BuildPost(post, req, files, s.ids)
}

func (s *service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.Warn("Post cache invalidation failed", "post_id", id, "error", err)
	}
}

// fire runs an event sink call. Sink failures are logged, never returned.
func (s *service) fire(ctx context.Context, event string, call func() error) {
	if err := call(); err != nil {
		s.logger.WarnContext(ctx, "Event sink failed", "event", event, "error", err)
	}
}
