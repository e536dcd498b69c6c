package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-posts/pkg/simpleposts"
	"github.com/tendant/simple-posts/pkg/simpleposts/config"
)

func newTestRouter(t *testing.T) http.Handler {
	cfg, err := config.Load(config.WithEnvironment("testing"))
	require.NoError(t, err)

	svc, cleanup, err := cfg.BuildService(context.Background())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	return NewRouter(svc, cfg)
}

func TestRouterHealth(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Content-Type"))
}

func TestRouterPostsLifecycle(t *testing.T) {
	router := newTestRouter(t)

	body, err := json.Marshal(simpleposts.CreatePostRequest{
		Title:   "Routed",
		Content: []simpleposts.ContentBlockRequest{{Type: simpleposts.ContentTypeText, Text: "hi"}},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var post simpleposts.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts?limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), post.ID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/posts/"+post.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterUploadLimitFromConfig(t *testing.T) {
	cfg, err := config.Load(config.WithEnvironment("testing"), config.WithUploadLimits(300, 0))
	require.NoError(t, err)
	svc, cleanup, err := cfg.BuildService(context.Background())
	require.NoError(t, err)
	defer cleanup()

	router := NewRouter(svc, cfg)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "big.bin")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 4096))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/posts/upload/resource", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouterDevelopmentCORS(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	svc, cleanup, err := cfg.BuildService(context.Background())
	require.NoError(t, err)
	defer cleanup()

	router := NewRouter(svc, cfg)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/posts", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
