package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	"github.com/tendant/simple-posts/pkg/simpleposts"
)

// DefaultMaxUploadSize bounds the multipart body of an upload request.
const DefaultMaxUploadSize int64 = 32 << 20

// PostsHandler handles HTTP requests for posts and their media
type PostsHandler struct {
	service         simpleposts.Service
	logger          *slog.Logger
	maxUploadSize   int64
	uploadRateLimit int
}

// HandlerOption configures a PostsHandler
type HandlerOption func(*PostsHandler)

// WithLogger sets the handler logger
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *PostsHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMaxUploadSize sets the largest accepted upload body in bytes
func WithMaxUploadSize(size int64) HandlerOption {
	return func(h *PostsHandler) {
		h.maxUploadSize = size
	}
}

// WithUploadRateLimit limits upload requests per client IP per minute. Zero
// disables the limit.
func WithUploadRateLimit(requestsPerMinute int) HandlerOption {
	return func(h *PostsHandler) {
		h.uploadRateLimit = requestsPerMinute
	}
}

// NewPostsHandler creates a new posts handler
func NewPostsHandler(service simpleposts.Service, opts ...HandlerOption) *PostsHandler {
	h := &PostsHandler{
		service:         service,
		logger:          slog.Default(),
		maxUploadSize:   DefaultMaxUploadSize,
		uploadRateLimit: 60,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the routes for posts, to be mounted at /posts
func (h *PostsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if h.uploadRateLimit > 0 {
			r.Use(httprate.LimitByIP(h.uploadRateLimit, time.Minute))
		}
		r.Post("/upload/cover-file", h.UploadCoverFile)
		r.Post("/upload/resource", h.UploadResource)
	})
	r.Get("/media/*", h.DownloadMedia)

	r.Post("/", h.CreatePost)
	r.Get("/", h.GetPosts)
	r.Get("/{id}", h.GetPost)
	r.Put("/{id}", h.UpdatePost)
	r.Delete("/{id}", h.DeletePost)

	return r
}

// PostResponse wraps a single post
type PostResponse struct {
	Post *simpleposts.Post `json:"post"`
}

// PostListResponse is a page of posts with the total number of matches
type PostListResponse struct {
	Count int64               `json:"count"`
	Posts []*simpleposts.Post `json:"posts"`
}

// DeleteResponse is returned after a post is deleted
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadCoverFile stores the multipart "file" field as an unclaimed cover file
func (h *PostsHandler) UploadCoverFile(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.service.UploadCoverFile)
}

// UploadResource stores the multipart "file" field as an unclaimed content resource
func (h *PostsHandler) UploadResource(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.service.UploadResource)
}

type uploadFunc func(ctx context.Context, req simpleposts.UploadMediaRequest) (*simpleposts.MediaResource, error)

func (h *PostsHandler) upload(w http.ResponseWriter, r *http.Request, store uploadFunc) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeStatus(w, r, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		h.writeStatus(w, r, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		h.writeError(w, r, simpleposts.ErrFileRequired)
		return
	}
	if err != nil {
		h.writeStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	media, err := store(r.Context(), simpleposts.UploadMediaRequest{
		Reader:   file,
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, media)
}

// DownloadMedia streams a stored media file by key
func (h *PostsHandler) DownloadMedia(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	media, reader, err := h.service.DownloadMedia(r.Context(), key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", media.MimeType)
	if media.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(media.Size, 10))
	}
	if media.FileName != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": media.FileName}))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Error("Failed to stream media", "key", key, "error", err)
	}
}

// CreatePost creates a post from the submitted blocks and uploaded keys
func (h *PostsHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req simpleposts.CreatePostRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.writeStatus(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	post, err := h.service.CreatePost(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, post)
}

// UpdatePost replaces the fields, cover, and content of a post
func (h *PostsHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req simpleposts.CreatePostRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.writeStatus(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	post, err := h.service.UpdatePost(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.JSON(w, r, post)
}

// DeletePost deletes a post and all of its media
func (h *PostsHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeletePost(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	render.JSON(w, r, DeleteResponse{Success: true, Message: "Post deleted successfully"})
}

// GetPost returns a single post
func (h *PostsHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	post, err := h.service.GetPost(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.JSON(w, r, PostResponse{Post: post})
}

// GetPosts lists posts newest first. Query parameters: search, limit (>= 1),
// offset (>= 0).
func (h *PostsHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := simpleposts.PostQuery{Search: q.Get("search")}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 1 {
			h.writeStatus(w, r, http.StatusBadRequest, "limit must be a number not less than 1")
			return
		}
		query.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || offset < 0 {
			h.writeStatus(w, r, http.StatusBadRequest, "offset must be a number not less than 0")
			return
		}
		query.Skip = offset
	}

	list, err := h.service.GetPosts(r.Context(), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.JSON(w, r, PostListResponse{Count: list.Count, Posts: list.Posts})
}

// Health reports that the server is up
func Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// StatusFor maps service errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case simpleposts.IsValidation(err):
		return http.StatusBadRequest
	case simpleposts.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *PostsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		h.writeStatus(w, r, status, "internal server error")
		return
	}
	h.logger.Info("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	h.writeStatus(w, r, status, err.Error())
}

func (h *PostsHandler) writeStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}
