package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reelworks/reelstore/pkg/reelstore"
	"github.com/reelworks/reelstore/pkg/reelstore/repo/memory"
	memorystorage "github.com/reelworks/reelstore/pkg/reelstore/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	return context.Background()
}

func setupHandlerTest(t *testing.T) (chi.Router, reelstore.Service) {
	service, err := reelstore.New(
		reelstore.WithRepository(memory.New()),
		reelstore.WithBlobStore("memory", memorystorage.New()),
	)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Mount("/videos", NewVideoHandler(service).Routes())
	router.Mount("/uploads", NewUploadHandler(service).Routes())
	router.Mount("/tags", NewTagHandler(service).Routes())
	return router, service
}

func doJSON(t *testing.T, router chi.Router, method, path, caller string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(CallerHeader, caller)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestVideoHandler_CreateVideo(t *testing.T) {
	router, _ := setupHandlerTest(t)

	reqBody := CreateVideoRequest{
		Title:      "Handler Test",
		FileName:   "clip.mp4",
		FileSize:   1024,
		StorageURL: "memory://clip.mp4",
		Tags:       []string{"api"},
	}

	w := doJSON(t, router, http.MethodPost, "/videos", "owner-1", reqBody)
	require.Equal(t, http.StatusCreated, w.Code)

	var video reelstore.Video
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &video))
	assert.Equal(t, "Handler Test", video.Title)
	assert.Equal(t, "owner-1", video.OwnerID)
	assert.Len(t, video.Tags, 1)
}

func TestVideoHandler_CreateVideoRequiresCaller(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/videos", "", CreateVideoRequest{Title: "Nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVideoHandler_CreateVideoValidation(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/videos", "owner-1", CreateVideoRequest{
		Title:      "",
		FileName:   "clip.mp4",
		FileSize:   1024,
		StorageURL: "memory://clip.mp4",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVideoHandler_GetVideoVisibility(t *testing.T) {
	router, svc := setupHandlerTest(t)

	video, err := svc.CreateVideo(testContext(), reelstore.CreateVideoRequest{
		OwnerID:    "alice",
		Title:      "Private",
		FileName:   "p.mp4",
		FileSize:   10,
		StorageURL: "memory://p.mp4",
		Visibility: reelstore.VisibilityPrivate,
	})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodGet, "/videos/"+video.ID.String(), "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/videos/"+video.ID.String(), "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVideoHandler_InvalidID(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodGet, "/videos/not-a-uuid", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVideoHandler_ListPagination(t *testing.T) {
	router, svc := setupHandlerTest(t)

	for i := 0; i < 15; i++ {
		_, err := svc.CreateVideo(testContext(), reelstore.CreateVideoRequest{
			OwnerID:    "alice",
			Title:      fmt.Sprintf("Video %d", i),
			FileName:   "v.mp4",
			FileSize:   10,
			StorageURL: "memory://v.mp4",
			Visibility: reelstore.VisibilityPublic,
		})
		require.NoError(t, err)
	}

	w := doJSON(t, router, http.MethodGet, "/videos?page=2&limit=10", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page reelstore.VideoPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(15), page.Total)
	assert.Len(t, page.Items, 5)
	assert.True(t, page.HasPrev)
	assert.False(t, page.HasNext)
}

func TestVideoHandler_ListRejectsBadQuery(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodGet, "/videos?limit=999", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/videos?page=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVideoHandler_RecordView(t *testing.T) {
	router, svc := setupHandlerTest(t)

	video, err := svc.CreateVideo(testContext(), reelstore.CreateVideoRequest{
		OwnerID:    "alice",
		Title:      "Watched",
		FileName:   "w.mp4",
		FileSize:   10,
		StorageURL: "memory://w.mp4",
	})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/videos/"+video.ID.String()+"/views", "bob", RecordViewRequest{WatchPercent: 50})
	assert.Equal(t, http.StatusAccepted, w.Code)

	// Even for unknown videos the endpoint stays 202: recording is
	// best-effort by contract.
	w = doJSON(t, router, http.MethodPost, "/videos/"+uuid.NewString()+"/views", "bob", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestUploadHandler_Lifecycle(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/uploads", "alice", OpenUploadRequest{
		FileName:     "movie.mp4",
		DeclaredSize: 2048,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var session reelstore.UploadSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.NotEmpty(t, session.UploadURL)

	w = doJSON(t, router, http.MethodPost, "/uploads/"+session.ID.String()+"/finalize", "alice", FinalizeUploadRequest{
		Title: "Uploaded Movie",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var video reelstore.Video
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &video))
	assert.Equal(t, "Uploaded Movie", video.Title)

	// Re-finalizing the consumed session is a conflict.
	w = doJSON(t, router, http.MethodPost, "/uploads/"+session.ID.String()+"/finalize", "alice", FinalizeUploadRequest{
		Title: "Again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUploadHandler_CancelUnknownSession(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodDelete, "/uploads/"+uuid.NewString(), "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTagHandler(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/tags", "alice", EnsureTagRequest{Name: "Deep Learning"})
	require.Equal(t, http.StatusOK, w.Code)

	var tag reelstore.Tag
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tag))
	assert.Equal(t, "deep-learning", tag.Slug)

	w = doJSON(t, router, http.MethodGet, "/tags", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tags []*reelstore.Tag
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tags))
	assert.Len(t, tags, 1)
}
