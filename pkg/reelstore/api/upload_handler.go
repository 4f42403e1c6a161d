package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/reelworks/reelstore/pkg/reelstore"
)

// UploadHandler handles HTTP requests for the upload session lifecycle
type UploadHandler struct {
	service reelstore.Service
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(service reelstore.Service) *UploadHandler {
	return &UploadHandler{service: service}
}

// Routes returns the routes for upload sessions
func (h *UploadHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.OpenSession)
	r.Post("/{id}/finalize", h.FinalizeSession)
	r.Delete("/{id}", h.CancelSession)

	return r
}

// OpenUploadRequest is the request body for opening an upload session
type OpenUploadRequest struct {
	FileName     string `json:"file_name"`
	DeclaredSize int64  `json:"declared_size,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
}

// OpenSession opens a new upload session for the caller
func (h *UploadHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		http.Error(w, "Missing caller identity", http.StatusUnauthorized)
		return
	}

	var req OpenUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := h.service.OpenUploadSession(r.Context(), reelstore.OpenUploadRequest{
		OwnerID:      caller,
		FileName:     req.FileName,
		DeclaredSize: req.DeclaredSize,
		MimeType:     req.MimeType,
	})
	if err != nil {
		slog.Error("Failed to open upload session", "owner_id", caller, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("Upload session opened", "session_id", session.ID.String(), "owner_id", caller)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, session)
}

// FinalizeUploadRequest is the request body for finalizing an upload session
type FinalizeUploadRequest struct {
	Title            string               `json:"title"`
	Description      string               `json:"description,omitempty"`
	OriginalFileName string               `json:"original_file_name,omitempty"`
	FileSize         int64                `json:"file_size,omitempty"`
	Duration         float64              `json:"duration,omitempty"`
	StorageURL       string               `json:"storage_url,omitempty"`
	ThumbnailURL     string               `json:"thumbnail_url,omitempty"`
	Visibility       string               `json:"visibility,omitempty"`
	Media            *reelstore.MediaInfo `json:"media,omitempty"`
	Tags             []string             `json:"tags,omitempty"`
}

// FinalizeSession converts a completed upload session into a video record
func (h *UploadHandler) FinalizeSession(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		http.Error(w, "Missing caller identity", http.StatusUnauthorized)
		return
	}

	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	var req FinalizeUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	video, err := h.service.FinalizeUploadSession(r.Context(), reelstore.FinalizeUploadRequest{
		SessionID:        id,
		OwnerID:          caller,
		Title:            req.Title,
		Description:      req.Description,
		OriginalFileName: req.OriginalFileName,
		FileSize:         req.FileSize,
		Duration:         req.Duration,
		StorageURL:       req.StorageURL,
		ThumbnailURL:     req.ThumbnailURL,
		Visibility:       reelstore.Visibility(req.Visibility),
		Media:            req.Media,
		Tags:             req.Tags,
	})
	if err != nil {
		slog.Error("Failed to finalize upload session", "session_id", idStr, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("Upload session finalized", "session_id", idStr, "video_id", video.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, video)
}

// CancelSession cancels an open upload session owned by the caller
func (h *UploadHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		http.Error(w, "Missing caller identity", http.StatusUnauthorized)
		return
	}

	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	cancelled, err := h.service.CancelUploadSession(r.Context(), id, caller)
	if err != nil {
		slog.Error("Failed to cancel upload session", "session_id", idStr, "error", err)
		writeError(w, r, err)
		return
	}
	if !cancelled {
		http.Error(w, "Upload session not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
