package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-posts/pkg/simpleposts"
)

const mediaColumns = `id, type, subtype, key, type_id, url, file_name, mime_type,
	size_bytes, created_by_id, created_at, updated_at`

// MediaRepository implements simpleposts.MediaRepository using PostgreSQL
type MediaRepository struct {
	db DBTX
}

// NewMediaRepository creates a new PostgreSQL media repository
func NewMediaRepository(db DBTX) *MediaRepository {
	return &MediaRepository{db: db}
}

// NewMediaRepositoryWithPool creates a new PostgreSQL media repository with connection pool
func NewMediaRepositoryWithPool(pool *pgxpool.Pool) *MediaRepository {
	return &MediaRepository{db: pool}
}

func (r *MediaRepository) Create(ctx context.Context, media *simpleposts.MediaResource) error {
	query := `
		INSERT INTO media_resource (` + mediaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		media.ID, media.Type, media.Subtype, media.Key, media.TypeID, media.URL,
		media.FileName, media.MimeType, media.Size, media.CreatedByID,
		media.CreatedAt, media.UpdatedAt)
	if err != nil {
		return handlePostgresError("create media", err)
	}
	return nil
}

func (r *MediaRepository) GetByID(ctx context.Context, id string) (*simpleposts.MediaResource, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_resource WHERE id = $1`
	return r.queryOne(ctx, "get media", query, id)
}

func (r *MediaRepository) DeleteByID(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media_resource WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError("delete media", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleposts.ErrMediaNotFound
	}
	return nil
}

func (r *MediaRepository) FindOne(ctx context.Context, mediaType, subtype, key string) (*simpleposts.MediaResource, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_resource
		WHERE type = $1 AND subtype = $2 AND key = $3`
	return r.queryOne(ctx, "find media", query, mediaType, subtype, key)
}

func (r *MediaRepository) FindByKeys(ctx context.Context, mediaType, subtype string, keys []string) ([]*simpleposts.MediaResource, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query := `SELECT ` + mediaColumns + ` FROM media_resource
		WHERE type = $1 AND subtype = $2 AND key = ANY($3)
		ORDER BY key`
	return r.queryMany(ctx, "find media by keys", query, mediaType, subtype, keys)
}

func (r *MediaRepository) FindByTypeIDAndNotKeys(ctx context.Context, mediaType, subtype, typeID string, excludeKeys []string) ([]*simpleposts.MediaResource, error) {
	if excludeKeys == nil {
		excludeKeys = []string{}
	}
	query := `SELECT ` + mediaColumns + ` FROM media_resource
		WHERE type = $1 AND subtype = $2 AND type_id = $3 AND key <> ALL($4)
		ORDER BY key`
	return r.queryMany(ctx, "find superseded media", query, mediaType, subtype, typeID, excludeKeys)
}

func (r *MediaRepository) FindByTypeIDs(ctx context.Context, mediaType string, typeIDs []string) ([]*simpleposts.MediaResource, error) {
	if len(typeIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + mediaColumns + ` FROM media_resource
		WHERE type = $1 AND type_id = ANY($2)
		ORDER BY key`
	return r.queryMany(ctx, "find owned media", query, mediaType, typeIDs)
}

func (r *MediaRepository) UpdateTypeID(ctx context.Context, keys []string, typeID string) error {
	if len(keys) == 0 {
		return nil
	}
	query := `UPDATE media_resource SET type_id = $1, updated_at = now() WHERE key = ANY($2)`
	if _, err := r.db.Exec(ctx, query, typeID, keys); err != nil {
		return handlePostgresError("claim media", err)
	}
	return nil
}

func (r *MediaRepository) DeleteByKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM media_resource WHERE key = ANY($1)`, keys); err != nil {
		return handlePostgresError("delete media by keys", err)
	}
	return nil
}

func (r *MediaRepository) queryOne(ctx context.Context, op, query string, args ...interface{}) (*simpleposts.MediaResource, error) {
	media, err := scanMedia(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleposts.ErrMediaNotFound
		}
		return nil, handlePostgresError(op, err)
	}
	return media, nil
}

func (r *MediaRepository) queryMany(ctx context.Context, op, query string, args ...interface{}) ([]*simpleposts.MediaResource, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, handlePostgresError(op, err)
	}
	defer rows.Close()

	var result []*simpleposts.MediaResource
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, handlePostgresError(op, err)
		}
		result = append(result, media)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError(op, err)
	}
	return result, nil
}

func scanMedia(row pgx.Row) (*simpleposts.MediaResource, error) {
	var media simpleposts.MediaResource
	err := row.Scan(
		&media.ID, &media.Type, &media.Subtype, &media.Key, &media.TypeID, &media.URL,
		&media.FileName, &media.MimeType, &media.Size, &media.CreatedByID,
		&media.CreatedAt, &media.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &media, nil
}
