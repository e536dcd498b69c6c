package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-posts/pkg/simpleposts"
)

const postColumns = `id, title, short_description, resource, content, created_by_id, created_at, updated_at`

const searchClause = `($1 = '' OR title ILIKE $2 ESCAPE '\' OR short_description ILIKE $2 ESCAPE '\')`

// PostRepository implements simpleposts.PostRepository using PostgreSQL.
// The cover and the content blocks are stored as JSONB documents.
type PostRepository struct {
	db DBTX
}

// NewPostRepository creates a new PostgreSQL post repository
func NewPostRepository(db DBTX) *PostRepository {
	return &PostRepository{db: db}
}

// NewPostRepositoryWithPool creates a new PostgreSQL post repository with connection pool
func NewPostRepositoryWithPool(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{db: pool}
}

// postRow is the column layout of the post table.
type postRow struct {
	ID               string
	Title            string
	ShortDescription string
	Resource         []byte
	Content          []byte
	CreatedByID      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func toPostRow(post *simpleposts.Post) (*postRow, error) {
	row := &postRow{
		ID:               post.ID,
		Title:            post.Title,
		ShortDescription: post.ShortDescription,
		CreatedByID:      post.CreatedByID,
		CreatedAt:        post.CreatedAt,
		UpdatedAt:        post.UpdatedAt,
	}

	if post.Resource != nil {
		resource, err := json.Marshal(post.Resource)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cover: %w", err)
		}
		row.Resource = resource
	}

	content := post.Content
	if content == nil {
		content = []simpleposts.PostContent{}
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode content: %w", err)
	}
	row.Content = encoded
	return row, nil
}

func (row *postRow) toPost() (*simpleposts.Post, error) {
	post := &simpleposts.Post{
		ID:               row.ID,
		Title:            row.Title,
		ShortDescription: row.ShortDescription,
		CreatedByID:      row.CreatedByID,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
		Content:          []simpleposts.PostContent{},
	}

	if len(row.Resource) > 0 && string(row.Resource) != "null" {
		var resource simpleposts.MediaResource
		if err := json.Unmarshal(row.Resource, &resource); err != nil {
			return nil, fmt.Errorf("failed to decode cover of post %s: %w", row.ID, err)
		}
		post.Resource = &resource
	}

	if len(row.Content) > 0 {
		if err := json.Unmarshal(row.Content, &post.Content); err != nil {
			return nil, fmt.Errorf("failed to decode content of post %s: %w", row.ID, err)
		}
	}
	return post, nil
}

func (r *PostRepository) Insert(ctx context.Context, post *simpleposts.Post) error {
	row, err := toPostRow(post)
	if err != nil {
		return err
	}

	query := `INSERT INTO post (` + postColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.db.Exec(ctx, query,
		row.ID, row.Title, row.ShortDescription, row.Resource, row.Content,
		row.CreatedByID, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return handlePostgresError("insert post", err)
	}
	return nil
}

func (r *PostRepository) Update(ctx context.Context, post *simpleposts.Post) error {
	row, err := toPostRow(post)
	if err != nil {
		return err
	}

	query := `
		UPDATE post SET
			title = $2, short_description = $3, resource = $4, content = $5,
			created_by_id = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query,
		row.ID, row.Title, row.ShortDescription, row.Resource, row.Content,
		row.CreatedByID, row.UpdatedAt)
	if err != nil {
		return handlePostgresError("update post", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleposts.ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*simpleposts.Post, error) {
	query := `SELECT ` + postColumns + ` FROM post WHERE id = $1`
	row, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleposts.ErrPostNotFound
		}
		return nil, handlePostgresError("find post", err)
	}
	return row.toPost()
}

func (r *PostRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM post WHERE id = $1`, id); err != nil {
		return handlePostgresError("delete post", err)
	}
	return nil
}

func (r *PostRepository) Count(ctx context.Context, filter simpleposts.PostFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM post WHERE ` + searchClause

	var count int64
	if err := r.db.QueryRow(ctx, query, filter.Search, likePattern(filter.Search)).Scan(&count); err != nil {
		return 0, handlePostgresError("count posts", err)
	}
	return count, nil
}

func (r *PostRepository) List(ctx context.Context, filter simpleposts.PostFilter, skip, limit int64) ([]*simpleposts.Post, error) {
	query := `SELECT ` + postColumns + ` FROM post WHERE ` + searchClause + `
		ORDER BY id DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.Query(ctx, query, filter.Search, likePattern(filter.Search), limit, skip)
	if err != nil {
		return nil, handlePostgresError("list posts", err)
	}
	defer rows.Close()

	posts := []*simpleposts.Post{}
	for rows.Next() {
		row, err := scanPost(rows)
		if err != nil {
			return nil, handlePostgresError("list posts", err)
		}
		post, err := row.toPost()
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("list posts", err)
	}
	return posts, nil
}

func scanPost(row pgx.Row) (*postRow, error) {
	var p postRow
	err := row.Scan(&p.ID, &p.Title, &p.ShortDescription, &p.Resource, &p.Content,
		&p.CreatedByID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
