package simpleposts_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-posts/pkg/simpleposts"
	"github.com/tendant/simple-posts/pkg/simpleposts/repo/memory"
)

// MockPostRepository is a mock implementation of simpleposts.PostRepository
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Insert(ctx context.Context, post *simpleposts.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) Update(ctx context.Context, post *simpleposts.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) FindByID(ctx context.Context, id string) (*simpleposts.Post, error) {
	args := m.Called(ctx, id)
	if post, ok := args.Get(0).(*simpleposts.Post); ok {
		return post, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPostRepository) DeleteByID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPostRepository) Count(ctx context.Context, filter simpleposts.PostFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostRepository) List(ctx context.Context, filter simpleposts.PostFilter, skip, limit int64) ([]*simpleposts.Post, error) {
	args := m.Called(ctx, filter, skip, limit)
	if posts, ok := args.Get(0).([]*simpleposts.Post); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestPostStore_CreateAssignsIDsAndTimestamps(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	store := simpleposts.NewPostStore(memory.NewPostRepository(), &sequenceIDs{}, fixedClock(now))

	created, err := store.Create(context.Background(), &simpleposts.Post{
		Title:   "Hello",
		Content: []simpleposts.PostContent{simpleposts.NewTextContent("", "body")},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.Content[0].ID)
	assert.Equal(t, now, created.CreatedAt)
	assert.Equal(t, now, created.UpdatedAt)
}

func TestPostStore_NoopSave(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stored := &simpleposts.Post{
		ID:        "post-1",
		Title:     "Hello",
		Content:   []simpleposts.PostContent{simpleposts.NewTextContent("b1", "body")},
		CreatedAt: created,
		UpdatedAt: created,
	}

	repo := new(MockPostRepository)
	repo.On("FindByID", mock.Anything, "post-1").Return(stored.Clone(), nil)

	store := simpleposts.NewPostStore(repo, &sequenceIDs{}, fixedClock(created.Add(time.Hour)))
	saved, err := store.Save(context.Background(), stored.Clone())
	require.NoError(t, err)
	assert.Equal(t, created, saved.UpdatedAt)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestPostStore_SaveWritesChanges(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)
	repo := memory.NewPostRepository()
	store := simpleposts.NewPostStore(repo, &sequenceIDs{}, fixedClock(created))
	ctx := context.Background()

	post, err := store.Create(ctx, &simpleposts.Post{
		Title:   "Hello",
		Content: []simpleposts.PostContent{simpleposts.NewTextContent("b1", "body")},
	})
	require.NoError(t, err)

	store = simpleposts.NewPostStore(repo, &sequenceIDs{}, fixedClock(later))
	post.Title = "Changed"
	saved, err := store.Save(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, "Changed", saved.Title)
	assert.Equal(t, created, saved.CreatedAt)
	assert.Equal(t, later, saved.UpdatedAt)

	found, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Changed", found.Title)
}

func TestPostStore_SaveKeepsCreator(t *testing.T) {
	repo := memory.NewPostRepository()
	store := simpleposts.NewPostStore(repo, &sequenceIDs{}, nil)
	ctx := context.Background()

	post, err := store.Create(ctx, &simpleposts.Post{
		Title:       "Hello",
		CreatedByID: "author",
		Content:     []simpleposts.PostContent{simpleposts.NewTextContent("b1", "body")},
	})
	require.NoError(t, err)

	post.Title = "Changed"
	post.CreatedByID = "intruder"
	saved, err := store.Save(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, "Changed", saved.Title)
	assert.Equal(t, "author", saved.CreatedByID)

	found, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "author", found.CreatedByID)
}

func TestPostStore_SaveMissingCreates(t *testing.T) {
	repo := memory.NewPostRepository()
	store := simpleposts.NewPostStore(repo, &sequenceIDs{}, nil)

	saved, err := store.Save(context.Background(), &simpleposts.Post{ID: "new-post", Title: "New"})
	require.NoError(t, err)
	assert.Equal(t, "new-post", saved.ID)

	found, err := store.FindByID(context.Background(), "new-post")
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestPostStore_FindByIDMissing(t *testing.T) {
	store := simpleposts.NewPostStore(memory.NewPostRepository(), nil, nil)
	post, err := store.FindByID(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, post)
	assert.NoError(t, store.DeleteByID(context.Background(), "nope"))
}

func TestPostStore_Pagination(t *testing.T) {
	store := simpleposts.NewPostStore(memory.NewPostRepository(), &sequenceIDs{}, nil)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 10; i++ {
		post, err := store.Create(ctx, &simpleposts.Post{Title: fmt.Sprintf("Post %d", i)})
		require.NoError(t, err)
		ids = append(ids, post.ID)
	}

	list, err := store.Find(ctx, simpleposts.PostQuery{Limit: 3, Skip: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(10), list.Count)
	require.Len(t, list.Posts, 3)
	// Newest first: skip ids[9] and ids[8]
	assert.Equal(t, ids[7], list.Posts[0].ID)
	assert.Equal(t, ids[6], list.Posts[1].ID)
	assert.Equal(t, ids[5], list.Posts[2].ID)
}

func TestPostStore_FindDefaultsAndSearch(t *testing.T) {
	store := simpleposts.NewPostStore(memory.NewPostRepository(), &sequenceIDs{}, nil)
	ctx := context.Background()

	for _, title := range []string{"Go tips", "Rust tips", "GO generics"} {
		_, err := store.Create(ctx, &simpleposts.Post{Title: title})
		require.NoError(t, err)
	}

	all, err := store.Find(ctx, simpleposts.PostQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Count)
	assert.Len(t, all.Posts, 3)

	gophers, err := store.Find(ctx, simpleposts.PostQuery{Search: "go"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), gophers.Count)

	none, err := store.Find(ctx, simpleposts.PostQuery{Search: "python"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), none.Count)
	assert.NotNil(t, none.Posts)
	assert.Empty(t, none.Posts)
}

func TestPostStore_FindPassesDefaultsToRepository(t *testing.T) {
	repo := new(MockPostRepository)
	filter := simpleposts.PostFilter{Search: "x"}
	repo.On("Count", mock.Anything, filter).Return(int64(0), nil)
	repo.On("List", mock.Anything, filter, int64(0), simpleposts.MaxLimit).Return(nil, nil)

	store := simpleposts.NewPostStore(repo, nil, nil)
	list, err := store.Find(context.Background(), simpleposts.PostQuery{Search: "x", Skip: -5})
	require.NoError(t, err)
	assert.NotNil(t, list.Posts)
	repo.AssertExpectations(t)
}
