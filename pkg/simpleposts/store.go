package simpleposts

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

// MaxLimit is the page size used when a query sets no limit.
const MaxLimit int64 = math.MaxInt32

// PostStore gives posts upsert-by-id semantics on top of a PostRepository.
type PostStore struct {
	repo PostRepository
	ids  IDGenerator
	now  func() time.Time
}

// NewPostStore creates a post store.
func NewPostStore(repo PostRepository, ids IDGenerator, now func() time.Time) *PostStore {
	if ids == nil {
		ids = NewTimestampIDGenerator()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &PostStore{repo: repo, ids: ids, now: now}
}

// New returns a blank post with a fresh id.
func (s *PostStore) New() *Post {
	return &Post{ID: s.ids.NewID(), Content: []PostContent{}}
}

// Create assigns missing ids, stamps timestamps, and inserts post.
func (s *PostStore) Create(ctx context.Context, post *Post) (*Post, error) {
	record := post.Clone()
	if record.ID == "" {
		record.ID = s.ids.NewID()
	}
	s.assignContentIDs(record)

	now := s.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, &PostError{PostID: record.ID, Op: "create", Err: err}
	}
	return record, nil
}

// Save updates the stored post with the same id, or creates it when there is
// none. The stored creator is kept. A save that changes nothing performs no
// write and returns the stored record.
func (s *PostStore) Save(ctx context.Context, post *Post) (*Post, error) {
	if post.ID == "" {
		return s.Create(ctx, post)
	}

	existing, err := s.repo.FindByID(ctx, post.ID)
	if errors.Is(err, ErrPostNotFound) {
		return s.Create(ctx, post)
	}
	if err != nil {
		return nil, &PostError{PostID: post.ID, Op: "save", Err: err}
	}

	merged := existing.Clone()
	merged.Title = post.Title
	merged.ShortDescription = post.ShortDescription
	merged.Resource = post.Resource.Clone()
	merged.Content = post.Clone().Content
	s.assignContentIDs(merged)

	if postsEqual(existing, merged) {
		return existing, nil
	}

	merged.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, merged); err != nil {
		return nil, &PostError{PostID: merged.ID, Op: "save", Err: err}
	}
	return merged, nil
}

// FindByID returns nil, nil when the post does not exist.
func (s *PostStore) FindByID(ctx context.Context, id string) (*Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrPostNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &PostError{PostID: id, Op: "find", Err: err}
	}
	return post, nil
}

// DeleteByID removes the post. Deleting a missing post is not an error.
func (s *PostStore) DeleteByID(ctx context.Context, id string) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil && !errors.Is(err, ErrPostNotFound) {
		return &PostError{PostID: id, Op: "delete", Err: err}
	}
	return nil
}

// Find returns a page of posts, newest first, and the total number of
// matches. The count and the page are read concurrently.
func (s *PostStore) Find(ctx context.Context, query PostQuery) (*PostList, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = MaxLimit
	}
	skip := query.Skip
	if skip < 0 {
		skip = 0
	}
	filter := PostFilter{Search: query.Search}

	var (
		count int64
		posts []*Post
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		count, err = s.repo.Count(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = s.repo.List(gctx, filter, skip, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, &PostError{Op: "find", Err: err}
	}

	if posts == nil {
		posts = []*Post{}
	}
	return &PostList{Count: count, Posts: posts}, nil
}

func (s *PostStore) assignContentIDs(post *Post) {
	if post.Content == nil {
		post.Content = []PostContent{}
	}
	for i := range post.Content {
		if post.Content[i].ID == "" {
			post.Content[i].ID = s.ids.NewID()
		}
	}
}

func postsEqual(a, b *Post) bool {
	if a.ID != b.ID ||
		a.Title != b.Title ||
		a.ShortDescription != b.ShortDescription ||
		a.CreatedByID != b.CreatedByID ||
		!mediaEqual(a.Resource, b.Resource) ||
		len(a.Content) != len(b.Content) {
		return false
	}
	for i := range a.Content {
		if !contentEqual(a.Content[i], b.Content[i]) {
			return false
		}
	}
	return true
}

func contentEqual(a, b PostContent) bool {
	if a.ID != b.ID || a.Type() != b.Type() {
		return false
	}
	switch ab := a.Body.(type) {
	case TextBody:
		return ab.Text == b.Body.(TextBody).Text
	case ResourcesBody:
		bb := b.Body.(ResourcesBody)
		if len(ab.Resources) != len(bb.Resources) {
			return false
		}
		for i := range ab.Resources {
			if !mediaEqual(&ab.Resources[i], &bb.Resources[i]) {
				return false
			}
		}
		return true
	default:
		return a.Body == nil && b.Body == nil
	}
}

func mediaEqual(a, b *MediaResource) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID &&
		a.Type == b.Type &&
		a.Subtype == b.Subtype &&
		a.Key == b.Key &&
		stringPtrEqual(a.TypeID, b.TypeID) &&
		a.URL == b.URL &&
		a.FileName == b.FileName &&
		a.MimeType == b.MimeType &&
		a.Size == b.Size &&
		a.CreatedByID == b.CreatedByID &&
		a.CreatedAt.Equal(b.CreatedAt) &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
