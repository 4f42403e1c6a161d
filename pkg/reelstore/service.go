package reelstore

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the reelstore library
type Service interface {
	// Video operations
	CreateVideo(ctx context.Context, req CreateVideoRequest) (*Video, error)
	GetVideo(ctx context.Context, id uuid.UUID, callerID string) (*Video, error)
	UpdateVideo(ctx context.Context, req UpdateVideoRequest) (*Video, error)
	DeleteVideo(ctx context.Context, id uuid.UUID, ownerID string) (bool, error)
	ListVideos(ctx context.Context, q VideoQuery) (*VideoPage, error)
	SearchVideos(ctx context.Context, query string, q VideoQuery) (*VideoPage, error)
	GetOwnerStats(ctx context.Context, ownerID string) (*OwnerStats, error)

	// Upload session operations
	OpenUploadSession(ctx context.Context, req OpenUploadRequest) (*UploadSession, error)
	FinalizeUploadSession(ctx context.Context, req FinalizeUploadRequest) (*Video, error)
	CancelUploadSession(ctx context.Context, sessionID uuid.UUID, ownerID string) (bool, error)

	// Tag operations
	EnsureTag(ctx context.Context, name string) (*Tag, error)
	ListTags(ctx context.Context) ([]*Tag, error)

	// View recording. Best-effort: failures are logged and swallowed, never
	// propagated to the caller.
	RecordView(ctx context.Context, req RecordViewRequest)
}
