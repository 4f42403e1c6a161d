package reelstore

import (
	"time"

	"github.com/google/uuid"
)

// VideoStatus is the domain type for video lifecycle states.
type VideoStatus string

// Video status constants (typed).
const (
	VideoStatusUploading  VideoStatus = "uploading"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusReady      VideoStatus = "ready"
	VideoStatusFailed     VideoStatus = "failed"
)

// Valid reports whether s is one of the known video statuses.
func (s VideoStatus) Valid() bool {
	switch s {
	case VideoStatusUploading, VideoStatusProcessing, VideoStatusReady, VideoStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status transition s -> next is allowed.
// Transitions are monotonic: uploading -> processing -> {ready, failed};
// nothing ever moves back to uploading.
func (s VideoStatus) CanTransitionTo(next VideoStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case VideoStatusUploading:
		return next == VideoStatusProcessing || next == VideoStatusReady || next == VideoStatusFailed
	case VideoStatusProcessing:
		return next == VideoStatusReady || next == VideoStatusFailed
	}
	return false
}

// Visibility is the access scope of a video.
type Visibility string

// Visibility constants (typed).
const (
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
)

// Valid reports whether v is one of the known visibility values.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityUnlisted:
		return true
	}
	return false
}

// UploadSessionStatus is the domain type for upload session states.
type UploadSessionStatus string

// Upload session status constants (typed).
const (
	UploadSessionStatusInitiated UploadSessionStatus = "initiated"
	UploadSessionStatusUploading UploadSessionStatus = "uploading"
	UploadSessionStatusCompleted UploadSessionStatus = "completed"
	UploadSessionStatusFailed    UploadSessionStatus = "failed"
	UploadSessionStatusCancelled UploadSessionStatus = "cancelled"
)

// MediaInfo holds optional technical metadata about the encoded media.
type MediaInfo struct {
	MimeType   string  `json:"mime_type,omitempty"`
	Resolution string  `json:"resolution,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
	Bitrate    int64   `json:"bitrate,omitempty"`
	Codec      string  `json:"codec,omitempty"`
}

// Video represents a video asset record.
//
// OwnerID is an opaque identifier produced by an external auth layer; the
// library stores and compares it but never parses it. UploadSessionID is set
// when the video was created by finalizing an upload session and doubles as
// the idempotency marker for re-finalize attempts.
type Video struct {
	ID               uuid.UUID  `json:"id"`
	OwnerID          string     `json:"owner_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	FileName         string     `json:"file_name"`
	OriginalFileName string     `json:"original_file_name,omitempty"`
	FileSize         int64      `json:"file_size"`
	Duration         float64    `json:"duration,omitempty"`
	StorageURL       string     `json:"storage_url"`
	ThumbnailURL     string     `json:"thumbnail_url,omitempty"`
	Status           VideoStatus `json:"status"`
	Visibility       Visibility  `json:"visibility"`
	Media            *MediaInfo  `json:"media,omitempty"`
	Tags             []*Tag      `json:"tags,omitempty"`
	UploadSessionID  *uuid.UUID  `json:"upload_session_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// TagNames returns the names of the video's tags in association order.
func (v *Video) TagNames() []string {
	if len(v.Tags) == 0 {
		return nil
	}
	names := make([]string, 0, len(v.Tags))
	for _, t := range v.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Tag is a reusable label attachable to many videos.
//
// UsageCount is a denormalized count of live video associations. It is
// maintained inside the same transaction as the association change it
// reflects and is clamped at zero.
type Tag struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Color       string    `json:"color,omitempty"`
	Description string    `json:"description,omitempty"`
	UsageCount  int64     `json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadSession is a transient grant tracking an in-flight upload before a
// video record exists. Completed sessions are deleted, not retained.
type UploadSession struct {
	ID           uuid.UUID           `json:"id"`
	OwnerID      string              `json:"owner_id"`
	FileName     string              `json:"file_name"`
	DeclaredSize int64               `json:"declared_size,omitempty"`
	MimeType     string              `json:"mime_type,omitempty"`
	Status       UploadSessionStatus `json:"status"`
	ExpiresAt    time.Time           `json:"expires_at"`
	CreatedAt    time.Time           `json:"created_at"`

	// UploadURL is computed from the blob store at open time, not persisted.
	UploadURL string `json:"upload_url,omitempty"`
}

// Expired reports whether the session is unusable at the given instant.
func (s *UploadSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ViewEvent is an immutable analytics fact recording one consumption of a
// video. ViewerID is empty for anonymous views.
type ViewEvent struct {
	VideoID       uuid.UUID `json:"video_id"`
	ViewerID      string    `json:"viewer_id,omitempty"`
	ClientInfo    string    `json:"client_info,omitempty"`
	WatchDuration float64   `json:"watch_duration,omitempty"`
	WatchPercent  float64   `json:"watch_percent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// OwnerStats aggregates a single owner's library.
type OwnerStats struct {
	OwnerID     string           `json:"owner_id"`
	TotalVideos int64            `json:"total_videos"`
	TotalSize   int64            `json:"total_size"`
	TotalViews  int64            `json:"total_views"`
	ByStatus    map[string]int64 `json:"by_status"`
}

// VideoPage is one page of a listing or search result.
type VideoPage struct {
	Items      []*Video `json:"items"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalPages int      `json:"total_pages"`
	HasNext    bool     `json:"has_next"`
	HasPrev    bool     `json:"has_prev"`
}

// NewVideoPage assembles the pagination envelope for a page of items.
func NewVideoPage(items []*Video, total int64, page, limit int) *VideoPage {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &VideoPage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    int64(page)*int64(limit) < total,
		HasPrev:    page > 1,
	}
}
