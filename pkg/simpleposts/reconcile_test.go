package simpleposts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-posts/pkg/simpleposts"
)

func resourceReconciler(repo simpleposts.MediaRepository, blobs simpleposts.BlobStore) *simpleposts.Reconciler {
	return simpleposts.NewReconciler(simpleposts.ResourceCategory, repo, blobs, nil)
}

func TestReconciler_EmptyKeys(t *testing.T) {
	repo := newCountingMediaRepo()
	r := resourceReconciler(repo, newBlobs())

	resolved, err := r.Validate(context.Background(), nil, "post-1")
	require.NoError(t, err)
	assert.Empty(t, resolved)
	assert.Equal(t, 0, repo.Calls("FindByKeys"))
}

func TestReconciler_IdempotentReclaim(t *testing.T) {
	repo := newCountingMediaRepo()
	blobs := newBlobs()
	a := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "a.png", "")
	b := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "b.png", "")
	r := resourceReconciler(repo, blobs)
	ctx := context.Background()

	first, err := r.Update(ctx, []string{a.Key, b.Key}, "post-1")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, repo.Calls("UpdateTypeID"))

	mutations := repo.Mutations()
	second, err := r.Update(ctx, []string{a.Key, b.Key}, "post-1")
	require.NoError(t, err)
	assert.Equal(t, mutations, repo.Mutations(), "second reconcile must not mutate the store")
	assert.Equal(t, first[0].Key, second[0].Key)
	assert.Equal(t, "post-1", *second[1].TypeID)
	assert.Equal(t, 2, blobs.Len())
}

func TestReconciler_ConflictDetection(t *testing.T) {
	repo := newCountingMediaRepo()
	blobs := newBlobs()
	free := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "free.png", "")
	taken := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "taken.png", "post-2")
	r := resourceReconciler(repo, blobs)

	_, err := r.Update(context.Background(), []string{free.Key, taken.Key}, "post-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, simpleposts.ErrFileAlreadyClaimed)
	assert.True(t, simpleposts.IsValidation(err))
	assert.Equal(t, 0, repo.Mutations())

	stored, err := repo.FindOne(context.Background(), simpleposts.MediaTypePosts, simpleposts.SubtypeResources, free.Key)
	require.NoError(t, err)
	assert.Nil(t, stored.TypeID)
}

func TestReconciler_DuplicateKeysRejectedBeforeLookup(t *testing.T) {
	repo := newCountingMediaRepo()
	blobs := newBlobs()
	a := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "a.png", "")
	r := resourceReconciler(repo, blobs)

	_, err := r.Validate(context.Background(), []string{a.Key, a.Key}, "post-1")
	assert.ErrorIs(t, err, simpleposts.ErrDuplicateKeys)
	assert.Equal(t, 0, repo.Calls("FindByKeys"))
}

func TestReconciler_MissingFiles(t *testing.T) {
	repo := newCountingMediaRepo()
	blobs := newBlobs()
	a := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "a.png", "")
	r := resourceReconciler(repo, blobs)

	_, err := r.Validate(context.Background(), []string{a.Key, "posts/resources/missing.png"}, "post-1")
	assert.ErrorIs(t, err, simpleposts.ErrMissingFiles)
	assert.True(t, simpleposts.IsValidation(err))
}

func TestReconciler_WrongSubtypeIsMissing(t *testing.T) {
	repo := newCountingMediaRepo()
	blobs := newBlobs()
	cover := seedMedia(t, repo, blobs, simpleposts.CoverFileCategory, "cover.png", "")
	r := resourceReconciler(repo, blobs)

	_, err := r.Validate(context.Background(), []string{cover.Key}, "post-1")
	assert.ErrorIs(t, err, simpleposts.ErrMissingFiles)
}

func TestReconciler_SupersededCleanup(t *testing.T) {
	repo := newCountingMediaRepo()
	blobs := newBlobs()
	old := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "old.png", "post-1")
	kept := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "kept.png", "post-1")
	added := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "new.png", "")
	other := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "other.png", "post-2")
	r := resourceReconciler(repo, blobs)
	ctx := context.Background()

	claimed, err := r.Update(ctx, []string{kept.Key, added.Key}, "post-1")
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	_, err = repo.FindOne(ctx, simpleposts.MediaTypePosts, simpleposts.SubtypeResources, old.Key)
	assert.ErrorIs(t, err, simpleposts.ErrMediaNotFound)
	assert.False(t, blobs.Exists(old.Key))

	stored, err := repo.FindOne(ctx, simpleposts.MediaTypePosts, simpleposts.SubtypeResources, added.Key)
	require.NoError(t, err)
	assert.Equal(t, "post-1", *stored.TypeID)

	assert.True(t, blobs.Exists(kept.Key))
	assert.True(t, blobs.Exists(other.Key), "files of other owners are untouched")
}

func TestReconciler_EmptySetReleasesEverything(t *testing.T) {
	repo := newCountingMediaRepo()
	blobs := newBlobs()
	seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "a.png", "post-1")
	seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "b.png", "post-1")
	r := resourceReconciler(repo, blobs)

	claimed, err := r.Update(context.Background(), nil, "post-1")
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.Equal(t, 0, repo.Len())
	assert.Equal(t, 0, blobs.Len())
}

func TestReconciler_OrderPreservation(t *testing.T) {
	repo := newCountingMediaRepo()
	blobs := newBlobs()
	a := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "a.png", "")
	b := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "b.png", "")
	c := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "c.png", "")
	r := resourceReconciler(repo, blobs)

	keys := []string{c.Key, a.Key, b.Key}
	claimed, err := r.Update(context.Background(), keys, "post-1")
	require.NoError(t, err)
	require.Len(t, claimed, 3)
	for i, key := range keys {
		assert.Equal(t, key, claimed[i].Key)
	}
}

func TestReconciler_CoverCategory(t *testing.T) {
	repo := newCountingMediaRepo()
	blobs := newBlobs()
	a := seedMedia(t, repo, blobs, simpleposts.CoverFileCategory, "a.png", "")
	b := seedMedia(t, repo, blobs, simpleposts.CoverFileCategory, "b.png", "")
	r := simpleposts.NewReconciler(simpleposts.CoverFileCategory, repo, blobs, nil)
	ctx := context.Background()

	_, err := r.Validate(ctx, []string{a.Key, b.Key}, "post-1")
	assert.ErrorIs(t, err, simpleposts.ErrTooManyFiles)

	_, err = r.Validate(ctx, []string{"posts/cover-files/missing.png"}, "post-1")
	assert.ErrorIs(t, err, simpleposts.ErrCoverFileNotFound)
	assert.True(t, simpleposts.IsNotFound(err))

	_, err = r.Update(ctx, []string{a.Key}, "post-1")
	require.NoError(t, err)

	// Replacing the cover removes the previous one
	_, err = r.Update(ctx, []string{b.Key}, "post-1")
	require.NoError(t, err)
	assert.False(t, blobs.Exists(a.Key))
	assert.True(t, blobs.Exists(b.Key))
}

func TestDeleteOwned(t *testing.T) {
	repo := newCountingMediaRepo()
	blobs := newBlobs()
	seedMedia(t, repo, blobs, simpleposts.CoverFileCategory, "cover.png", "post-1")
	seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "a.png", "post-1")
	keep := seedMedia(t, repo, blobs, simpleposts.ResourceCategory, "b.png", "post-2")

	keys, err := simpleposts.DeleteOwned(context.Background(), repo, blobs, simpleposts.MediaTypePosts, "post-1")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, 1, blobs.Len())
	assert.True(t, blobs.Exists(keep.Key))
}

func TestDeleteOwned_NothingOwned(t *testing.T) {
	repo := newCountingMediaRepo()
	keys, err := simpleposts.DeleteOwned(context.Background(), repo, newBlobs(), simpleposts.MediaTypePosts, "post-1")
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, 0, repo.Calls("DeleteByKeys"))
}
