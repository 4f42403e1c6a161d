package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/reelworks/reelstore/pkg/reelstore"
)

// CallerHeader carries the opaque identity of the authenticated caller. The
// value is produced by an upstream auth layer and passed through untouched.
const CallerHeader = "X-User-ID"

// VideoHandler handles HTTP requests for videos using pkg/reelstore
type VideoHandler struct {
	service reelstore.Service
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(service reelstore.Service) *VideoHandler {
	return &VideoHandler{service: service}
}

// Routes returns the routes for videos
func (h *VideoHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateVideo)
	r.Get("/", h.ListVideos)
	r.Get("/search", h.SearchVideos)
	r.Get("/{id}", h.GetVideo)
	r.Patch("/{id}", h.UpdateVideo)
	r.Delete("/{id}", h.DeleteVideo)
	r.Post("/{id}/views", h.RecordView)

	return r
}

func callerID(r *http.Request) string {
	return r.Header.Get(CallerHeader)
}

// CreateVideoRequest is the request body for creating a video directly
type CreateVideoRequest struct {
	Title            string               `json:"title"`
	Description      string               `json:"description,omitempty"`
	FileName         string               `json:"file_name"`
	OriginalFileName string               `json:"original_file_name,omitempty"`
	FileSize         int64                `json:"file_size"`
	Duration         float64              `json:"duration,omitempty"`
	StorageURL       string               `json:"storage_url"`
	ThumbnailURL     string               `json:"thumbnail_url,omitempty"`
	Status           string               `json:"status,omitempty"`
	Visibility       string               `json:"visibility,omitempty"`
	Media            *reelstore.MediaInfo `json:"media,omitempty"`
	Tags             []string             `json:"tags,omitempty"`
}

// CreateVideo creates a new video record
func (h *VideoHandler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		http.Error(w, "Missing caller identity", http.StatusUnauthorized)
		return
	}

	var req CreateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	video, err := h.service.CreateVideo(r.Context(), reelstore.CreateVideoRequest{
		OwnerID:          caller,
		Title:            req.Title,
		Description:      req.Description,
		FileName:         req.FileName,
		OriginalFileName: req.OriginalFileName,
		FileSize:         req.FileSize,
		Duration:         req.Duration,
		StorageURL:       req.StorageURL,
		ThumbnailURL:     req.ThumbnailURL,
		Status:           reelstore.VideoStatus(req.Status),
		Visibility:       reelstore.Visibility(req.Visibility),
		Media:            req.Media,
		Tags:             req.Tags,
	})
	if err != nil {
		slog.Error("Failed to create video", "owner_id", caller, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("Video created", "video_id", video.ID.String(), "owner_id", caller)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, video)
}

// GetVideo retrieves a video by ID
func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid video ID", http.StatusBadRequest)
		return
	}

	video, err := h.service.GetVideo(r.Context(), id, callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, video)
}

// UpdateVideoRequest is the request body for a partial update. Absent fields
// are left untouched; a present tags field replaces the whole tag set.
type UpdateVideoRequest struct {
	Title        *string              `json:"title,omitempty"`
	Description  *string              `json:"description,omitempty"`
	Duration     *float64             `json:"duration,omitempty"`
	ThumbnailURL *string              `json:"thumbnail_url,omitempty"`
	Status       *string              `json:"status,omitempty"`
	Visibility   *string              `json:"visibility,omitempty"`
	Media        *reelstore.MediaInfo `json:"media,omitempty"`
	Tags         *[]string            `json:"tags,omitempty"`
}

// UpdateVideo applies a partial update to a video
func (h *VideoHandler) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		http.Error(w, "Missing caller identity", http.StatusUnauthorized)
		return
	}

	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid video ID", http.StatusBadRequest)
		return
	}

	var req UpdateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	update := reelstore.UpdateVideoRequest{
		ID:           id,
		OwnerID:      caller,
		Title:        req.Title,
		Description:  req.Description,
		Duration:     req.Duration,
		ThumbnailURL: req.ThumbnailURL,
		Media:        req.Media,
		Tags:         req.Tags,
	}
	if req.Status != nil {
		status := reelstore.VideoStatus(*req.Status)
		update.Status = &status
	}
	if req.Visibility != nil {
		visibility := reelstore.Visibility(*req.Visibility)
		update.Visibility = &visibility
	}

	video, err := h.service.UpdateVideo(r.Context(), update)
	if err != nil {
		slog.Error("Failed to update video", "video_id", idStr, "error", err)
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, video)
}

// DeleteVideo deletes a video owned by the caller
func (h *VideoHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		http.Error(w, "Missing caller identity", http.StatusUnauthorized)
		return
	}

	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid video ID", http.StatusBadRequest)
		return
	}

	deleted, err := h.service.DeleteVideo(r.Context(), id, caller)
	if err != nil {
		slog.Error("Failed to delete video", "video_id", idStr, "error", err)
		writeError(w, r, err)
		return
	}
	if !deleted {
		http.Error(w, "Video not found", http.StatusNotFound)
		return
	}

	slog.Info("Video deleted", "video_id", idStr, "owner_id", caller)
	w.WriteHeader(http.StatusNoContent)
}

// ListVideos lists videos matching the query parameters
func (h *VideoHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	q, err := parseVideoQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := h.service.ListVideos(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, page)
}

// SearchVideos runs a full-text search over titles and descriptions
func (h *VideoHandler) SearchVideos(w http.ResponseWriter, r *http.Request) {
	q, err := parseVideoQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	term := r.URL.Query().Get("q")
	page, err := h.service.SearchVideos(r.Context(), term, q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, page)
}

// RecordViewRequest is the request body for recording a view event
type RecordViewRequest struct {
	ClientInfo    string  `json:"client_info,omitempty"`
	WatchDuration float64 `json:"watch_duration,omitempty"`
	WatchPercent  float64 `json:"watch_percent,omitempty"`
}

// RecordView records a consumption event. Always returns 202: view
// recording is best-effort and never fails the caller.
func (h *VideoHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid video ID", http.StatusBadRequest)
		return
	}

	var req RecordViewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	h.service.RecordView(r.Context(), reelstore.RecordViewRequest{
		VideoID:       id,
		ViewerID:      callerID(r),
		ClientInfo:    req.ClientInfo,
		WatchDuration: req.WatchDuration,
		WatchPercent:  req.WatchPercent,
	})

	w.WriteHeader(http.StatusAccepted)
}

func parseVideoQuery(r *http.Request) (reelstore.VideoQuery, error) {
	params := r.URL.Query()

	q := reelstore.VideoQuery{
		ViewerID:   callerID(r),
		OwnerID:    params.Get("owner_id"),
		Status:     reelstore.VideoStatus(params.Get("status")),
		Visibility: reelstore.Visibility(params.Get("visibility")),
		Tag:        params.Get("tag"),
		SortBy:     params.Get("sort_by"),
		SortOrder:  params.Get("sort_order"),
	}

	if v := params.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return q, err
		}
		q.Page = page
	}
	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return q, err
		}
		q.Limit = limit
	}
	if v := params.Get("created_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, err
		}
		q.CreatedAfter = &t
	}
	if v := params.Get("created_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, err
		}
		q.CreatedBefore = &t
	}

	return q, nil
}
