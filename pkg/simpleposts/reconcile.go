package simpleposts

import (
	"context"
	"fmt"
	"log/slog"
)

// MediaCategory names one reconciled partition of the media namespace.
// Single categories accept at most one file per owner.
type MediaCategory struct {
	Type    string
	Subtype string
	Single  bool
}

func (c MediaCategory) String() string {
	return c.Type + "/" + c.Subtype
}

// Post media categories.
var (
	CoverFileCategory = MediaCategory{Type: MediaTypePosts, Subtype: SubtypeCoverFiles, Single: true}
	ResourceCategory  = MediaCategory{Type: MediaTypePosts, Subtype: SubtypeResources}
)

// Reconciler aligns the files claimed by an owner within one category with
// the keys the owner currently submits. Validate never mutates; Reconcile
// claims the resolved files and removes the files that fell out of the set.
type Reconciler struct {
	category MediaCategory
	repo     MediaRepository
	blobs    BlobStore
	logger   *slog.Logger
}

// NewReconciler creates a reconciler for category.
func NewReconciler(category MediaCategory, repo MediaRepository, blobs BlobStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		category: category,
		repo:     repo,
		blobs:    blobs,
		logger:   logger,
	}
}

// Category returns the partition the reconciler works on.
func (r *Reconciler) Category() MediaCategory {
	return r.category
}

// Validate resolves keys to media records and checks that ownerID may claim
// them. The result is ordered as keys.
func (r *Reconciler) Validate(ctx context.Context, keys []string, ownerID string) ([]*MediaResource, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	if r.category.Single && len(keys) > 1 {
		return nil, r.wrap("validate", keys, ErrTooManyFiles)
	}

	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			return nil, r.wrap("validate", keys, ErrDuplicateKeys)
		}
		seen[key] = struct{}{}
	}

	found, err := r.repo.FindByKeys(ctx, r.category.Type, r.category.Subtype, keys)
	if err != nil {
		return nil, r.wrap("validate", keys, err)
	}
	if len(found) != len(keys) {
		if r.category.Single {
			return nil, r.wrap("validate", keys, ErrCoverFileNotFound)
		}
		return nil, r.wrap("validate", keys, ErrMissingFiles)
	}

	byKey := make(map[string]*MediaResource, len(found))
	for _, media := range found {
		if media.ClaimedByOther(ownerID) {
			return nil, r.wrap("validate", []string{media.Key}, ErrFileAlreadyClaimed)
		}
		byKey[media.Key] = media
	}

	resolved := make([]*MediaResource, 0, len(keys))
	for _, key := range keys {
		media, ok := byKey[key]
		if !ok {
			return nil, r.wrap("validate", keys, ErrMissingFiles)
		}
		resolved = append(resolved, media)
	}
	return resolved, nil
}

// Reconcile claims resolved for ownerID and deletes every other file of the
// category claimed by ownerID. The returned records carry the new owner.
func (r *Reconciler) Reconcile(ctx context.Context, resolved []*MediaResource, ownerID string) ([]*MediaResource, error) {
	keys := make([]string, 0, len(resolved))
	var unclaimed []string
	for _, media := range resolved {
		keys = append(keys, media.Key)
		if !media.ClaimedBy(ownerID) {
			unclaimed = append(unclaimed, media.Key)
		}
	}

	if len(unclaimed) > 0 {
		if err := r.repo.UpdateTypeID(ctx, unclaimed, ownerID); err != nil {
			return nil, r.wrap("claim", unclaimed, err)
		}
	}

	superseded, err := r.repo.FindByTypeIDAndNotKeys(ctx, r.category.Type, r.category.Subtype, ownerID, keys)
	if err != nil {
		return nil, r.wrap("find_superseded", keys, err)
	}
	if err := r.deleteFiles(ctx, mediaKeys(superseded)); err != nil {
		return nil, err
	}

	claimed := make([]*MediaResource, 0, len(resolved))
	for _, media := range resolved {
		c := media.Clone()
		owner := ownerID
		c.TypeID = &owner
		claimed = append(claimed, c)
	}
	return claimed, nil
}

// Update runs Validate then Reconcile.
func (r *Reconciler) Update(ctx context.Context, keys []string, ownerID string) ([]*MediaResource, error) {
	resolved, err := r.Validate(ctx, keys, ownerID)
	if err != nil {
		return nil, err
	}
	return r.Reconcile(ctx, resolved, ownerID)
}

func (r *Reconciler) deleteFiles(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := deleteMedia(ctx, r.repo, r.blobs, keys); err != nil {
		return r.wrap("delete_superseded", keys, err)
	}
	r.logger.Info("Superseded media deleted", "category", r.category.String(), "keys", keys)
	return nil
}

func (r *Reconciler) wrap(op string, keys []string, err error) error {
	return &MediaError{Category: r.category.String(), Keys: keys, Op: op, Err: err}
}

// DeleteOwned removes every record of mediaType claimed by ownerID, whatever
// its subtype, along with the blobs. It returns the removed keys.
func DeleteOwned(ctx context.Context, repo MediaRepository, blobs BlobStore, mediaType, ownerID string) ([]string, error) {
	owned, err := repo.FindByTypeIDs(ctx, mediaType, []string{ownerID})
	if err != nil {
		return nil, &MediaError{Category: mediaType, Op: "find_owned", Err: err}
	}
	keys := mediaKeys(owned)
	if err := deleteMedia(ctx, repo, blobs, keys); err != nil {
		return nil, &MediaError{Category: mediaType, Keys: keys, Op: "delete_owned", Err: err}
	}
	return keys, nil
}

// deleteMedia removes blobs before records so a failed blob delete leaves
// the record in place for a later cleanup.
func deleteMedia(ctx context.Context, repo MediaRepository, blobs BlobStore, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if blobs != nil {
		if err := blobs.Delete(ctx, keys); err != nil {
			return fmt.Errorf("failed to delete blobs: %w", err)
		}
	}
	if err := repo.DeleteByKeys(ctx, keys); err != nil {
		return fmt.Errorf("failed to delete media records: %w", err)
	}
	return nil
}

func mediaKeys(media []*MediaResource) []string {
	if len(media) == 0 {
		return nil
	}
	keys := make([]string, len(media))
	for i, m := range media {
		keys[i] = m.Key
	}
	return keys
}
