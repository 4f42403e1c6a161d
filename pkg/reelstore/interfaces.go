package reelstore

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// BlobStore is the boundary to the external object store. The library stores
// the URLs it returns verbatim and never interprets their structure.
type BlobStore interface {
	// GetUploadURL returns a write destination for the given object key
	GetUploadURL(ctx context.Context, objectKey string) (string, error)

	// GetDownloadURL returns a stable retrieval URL for the given object key
	GetDownloadURL(ctx context.Context, objectKey string) (string, error)

	// Upload transfers bytes directly (small objects, tests)
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Delete removes the object
	Delete(ctx context.Context, objectKey string) error
}

// Repository defines the persistence interface for videos, tags, upload
// sessions and view events.
//
// Every method that mutates more than one table is transactional: either all
// effects are visible or none. In particular, CreateVideo, UpdateVideo,
// DeleteVideo and FinalizeSession keep tag usage counts in step with the
// association rows they change inside the same transaction.
type Repository interface {
	// Video operations. GetVideo returns the record with its tag set loaded
	// and performs no visibility filtering; that is the service's job.
	CreateVideo(ctx context.Context, video *Video, tagNames []string) error
	GetVideo(ctx context.Context, id uuid.UUID) (*Video, error)
	UpdateVideo(ctx context.Context, video *Video, tagNames *[]string) error
	DeleteVideo(ctx context.Context, id uuid.UUID) error
	ListVideos(ctx context.Context, q VideoQuery) ([]*Video, int64, error)
	OwnerStats(ctx context.Context, ownerID string) (*OwnerStats, error)

	// Tag operations. EnsureTag is an idempotent get-or-create keyed by the
	// derived slug; concurrent calls for the same name must not create
	// duplicate rows.
	EnsureTag(ctx context.Context, name string) (*Tag, error)
	ListTags(ctx context.Context) ([]*Tag, error)

	// Upload session operations. FinalizeSession atomically creates the
	// video (with its tag associations) and deletes the session row; on any
	// failure the session row survives. GetVideoBySession resolves the video
	// a finalized session produced, for Conflict detection.
	CreateSession(ctx context.Context, session *UploadSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*UploadSession, error)
	UpdateSessionStatus(ctx context.Context, id uuid.UUID, status UploadSessionStatus) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
	FinalizeSession(ctx context.Context, sessionID uuid.UUID, video *Video, tagNames []string) error
	GetVideoBySession(ctx context.Context, sessionID uuid.UUID) (*Video, error)

	// View events. Insert-only.
	RecordView(ctx context.Context, event *ViewEvent) error
	CountViews(ctx context.Context, videoID uuid.UUID) (int64, error)
}
