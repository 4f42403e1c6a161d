package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/reelworks/reelstore/pkg/reelstore"
)

// TagHandler handles HTTP requests for tags and owner statistics
type TagHandler struct {
	service reelstore.Service
}

// NewTagHandler creates a new tag handler
func NewTagHandler(service reelstore.Service) *TagHandler {
	return &TagHandler{service: service}
}

// Routes returns the routes for tags
func (h *TagHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListTags)
	r.Post("/", h.EnsureTag)

	return r
}

// ListTags returns all tags ordered by usage
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, tags)
}

// EnsureTagRequest is the request body for get-or-create of a tag
type EnsureTagRequest struct {
	Name string `json:"name"`
}

// EnsureTag gets or creates a tag by name
func (h *TagHandler) EnsureTag(w http.ResponseWriter, r *http.Request) {
	var req EnsureTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tag, err := h.service.EnsureTag(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, tag)
}

// OwnerStats returns aggregate statistics for the caller's library
func OwnerStats(service reelstore.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := callerID(r)
		if caller == "" {
			http.Error(w, "Missing caller identity", http.StatusUnauthorized)
			return
		}

		stats, err := service.GetOwnerStats(r.Context(), caller)
		if err != nil {
			writeError(w, r, err)
			return
		}

		render.JSON(w, r, stats)
	}
}
