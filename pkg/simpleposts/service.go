package simpleposts

import (
	"context"
	"io"
)

// Service defines the main interface for the simple-posts library
type Service interface {
	// Media upload operations
	UploadCoverFile(ctx context.Context, req UploadMediaRequest) (*MediaResource, error)
	UploadResource(ctx context.Context, req UploadMediaRequest) (*MediaResource, error)
	DownloadMedia(ctx context.Context, key string) (*MediaResource, io.ReadCloser, error)

	// Post operations
	CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error)
	UpdatePost(ctx context.Context, id string, req CreatePostRequest) (*Post, error)
	DeletePost(ctx context.Context, id string) error
	GetPost(ctx context.Context, id string) (*Post, error)
	GetPosts(ctx context.Context, query PostQuery) (*PostList, error)
}
