package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tendant/simple-posts/pkg/simpleposts"
)

// PostRepository implements simpleposts.PostRepository using in-memory storage
type PostRepository struct {
	mu    sync.RWMutex
	posts map[string]*simpleposts.Post
}

// NewPostRepository creates a new in-memory post repository
func NewPostRepository() *PostRepository {
	return &PostRepository{
		posts: make(map[string]*simpleposts.Post),
	}
}

func (r *PostRepository) Insert(ctx context.Context, post *simpleposts.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[post.ID]; exists {
		return fmt.Errorf("post %s already exists", post.ID)
	}
	r.posts[post.ID] = post.Clone()
	return nil
}

func (r *PostRepository) Update(ctx context.Context, post *simpleposts.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[post.ID]; !exists {
		return simpleposts.ErrPostNotFound
	}
	r.posts[post.ID] = post.Clone()
	return nil
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*simpleposts.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, exists := r.posts[id]
	if !exists {
		return nil, simpleposts.ErrPostNotFound
	}
	return post.Clone(), nil
}

func (r *PostRepository) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.posts, id)
	return nil
}

func (r *PostRepository) Count(ctx context.Context, filter simpleposts.PostFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, post := range r.posts {
		if matches(post, filter) {
			count++
		}
	}
	return count, nil
}

func (r *PostRepository) List(ctx context.Context, filter simpleposts.PostFilter, skip, limit int64) ([]*simpleposts.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*simpleposts.Post
	for _, post := range r.posts {
		if matches(post, filter) {
			result = append(result, post)
		}
	}

	// Sort by id descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})

	if skip >= int64(len(result)) {
		return []*simpleposts.Post{}, nil
	}
	end := int64(len(result))
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}

	page := make([]*simpleposts.Post, 0, end-skip)
	for _, post := range result[skip:end] {
		page = append(page, post.Clone())
	}
	return page, nil
}

func matches(post *simpleposts.Post, filter simpleposts.PostFilter) bool {
	if filter.Search == "" {
		return true
	}
	needle := strings.ToLower(filter.Search)
	return strings.Contains(strings.ToLower(post.Title), needle) ||
		strings.Contains(strings.ToLower(post.ShortDescription), needle)
}
