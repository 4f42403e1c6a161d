package reelstore

import "github.com/google/uuid"

// Request/Response DTOs

// CreateVideoRequest contains parameters for creating a video directly,
// without going through an upload session.
type CreateVideoRequest struct {
	OwnerID          string
	Title            string
	Description      string
	FileName         string
	OriginalFileName string
	FileSize         int64
	Duration         float64
	StorageURL       string
	ThumbnailURL     string
	Status           VideoStatus // defaults to VideoStatusProcessing
	Visibility       Visibility  // defaults to VisibilityPrivate
	Media            *MediaInfo
	Tags             []string
}

// UpdateVideoRequest contains parameters for a partial update. Nil fields are
// left untouched; a non-nil Tags pointer replaces the whole tag set (an empty
// slice clears it). An all-nil request is a no-op that still returns the
// current record.
type UpdateVideoRequest struct {
	ID      uuid.UUID
	OwnerID string

	Title        *string
	Description  *string
	Duration     *float64
	ThumbnailURL *string
	Status       *VideoStatus
	Visibility   *Visibility
	Media        *MediaInfo
	Tags         *[]string
}

// OpenUploadRequest contains parameters for opening an upload session.
type OpenUploadRequest struct {
	OwnerID      string
	FileName     string
	DeclaredSize int64  // optional
	MimeType     string // optional
}

// FinalizeUploadRequest contains the video fields used when converting a
// completed upload session into a durable video record.
type FinalizeUploadRequest struct {
	SessionID uuid.UUID
	OwnerID   string

	Title            string
	Description      string
	OriginalFileName string
	FileSize         int64
	Duration         float64
	StorageURL       string
	ThumbnailURL     string
	Visibility       Visibility // defaults to VisibilityPrivate
	Media            *MediaInfo
	Tags             []string
}

// RecordViewRequest contains parameters for recording a consumption event.
type RecordViewRequest struct {
	VideoID       uuid.UUID
	ViewerID      string // empty for anonymous
	ClientInfo    string
	WatchDuration float64
	WatchPercent  float64
}
