package reelstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Limits on caller-supplied text fields.
const (
	maxTitleLen       = 500
	maxDescriptionLen = 2000
)

// DefaultUploadTTL is how long an upload session stays usable after open.
const DefaultUploadTTL = time.Hour

// service implements the Service interface
type service struct {
	repository   Repository
	blobStores   map[string]BlobStore
	defaultStore string
	uploadTTL    time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend. The first one registered becomes
// the default used for upload and retrieval URLs.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		if s.defaultStore == "" {
			s.defaultStore = name
		}
		s.blobStores[name] = store
	}
}

// WithUploadTTL overrides the upload session lifetime.
func WithUploadTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.uploadTTL = ttl
		}
	}
}

// WithLogger sets the structured logger used for swallowed best-effort
// failures (view recording).
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock overrides the time source. Used by tests to exercise expiry.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
		uploadTTL:  DefaultUploadTTL,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}

	return s, nil
}

// Video operations

func (s *service) CreateVideo(ctx context.Context, req CreateVideoRequest) (*Video, error) {
	if req.Status == "" {
		req.Status = VideoStatusProcessing
	}
	if req.Visibility == "" {
		req.Visibility = VisibilityPrivate
	}
	if err := validateVideoFields(req.Title, req.Description, req.FileSize, req.Status, req.Visibility); err != nil {
		return nil, err
	}
	if req.FileName == "" {
		return nil, &ConstraintError{Field: "file_name", Reason: "must not be empty"}
	}
	if req.StorageURL == "" {
		return nil, &ConstraintError{Field: "storage_url", Reason: "must not be empty"}
	}

	now := s.now()
	video := &Video{
		ID:               uuid.New(),
		OwnerID:          req.OwnerID,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		FileName:         req.FileName,
		OriginalFileName: req.OriginalFileName,
		FileSize:         req.FileSize,
		Duration:         req.Duration,
		StorageURL:       req.StorageURL,
		ThumbnailURL:     req.ThumbnailURL,
		Status:           req.Status,
		Visibility:       req.Visibility,
		Media:            req.Media,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repository.CreateVideo(ctx, video, NormalizeTagNames(req.Tags)); err != nil {
		return nil, &VideoError{VideoID: video.ID, Op: "create", Err: err}
	}

	return s.repository.GetVideo(ctx, video.ID)
}

func (s *service) GetVideo(ctx context.Context, id uuid.UUID, callerID string) (*Video, error) {
	video, err := s.repository.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	// Private videos behave as absent for everyone but the owner; unlisted
	// videos stay reachable by direct ID.
	if video.Visibility == VisibilityPrivate && video.OwnerID != callerID {
		return nil, ErrVideoNotFound
	}
	return video, nil
}

func (s *service) UpdateVideo(ctx context.Context, req UpdateVideoRequest) (*Video, error) {
	video, err := s.repository.GetVideo(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if video.OwnerID != req.OwnerID {
		return nil, ErrVideoNotFound
	}

	if req.Title != nil {
		video.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		video.Description = *req.Description
	}
	if req.Duration != nil {
		video.Duration = *req.Duration
	}
	if req.ThumbnailURL != nil {
		video.ThumbnailURL = *req.ThumbnailURL
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, &ConstraintError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *req.Status)}
		}
		if !video.Status.CanTransitionTo(*req.Status) {
			return nil, &ConstraintError{Field: "status", Reason: fmt.Sprintf("cannot transition from %q to %q", video.Status, *req.Status)}
		}
		video.Status = *req.Status
	}
	if req.Visibility != nil {
		if !req.Visibility.Valid() {
			return nil, &ConstraintError{Field: "visibility", Reason: fmt.Sprintf("unknown visibility %q", *req.Visibility)}
		}
		video.Visibility = *req.Visibility
	}
	if req.Media != nil {
		video.Media = req.Media
	}
	if err := validateVideoFields(video.Title, video.Description, video.FileSize, video.Status, video.Visibility); err != nil {
		return nil, err
	}

	var tagNames *[]string
	if req.Tags != nil {
		normalized := NormalizeTagNames(*req.Tags)
		if normalized == nil {
			normalized = []string{}
		}
		tagNames = &normalized
	}

	video.UpdatedAt = s.now()
	if err := s.repository.UpdateVideo(ctx, video, tagNames); err != nil {
		return nil, &VideoError{VideoID: video.ID, Op: "update", Err: err}
	}

	return s.repository.GetVideo(ctx, video.ID)
}

func (s *service) DeleteVideo(ctx context.Context, id uuid.UUID, ownerID string) (bool, error) {
	video, err := s.repository.GetVideo(ctx, id)
	if errors.Is(err, ErrVideoNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// Not-owned behaves exactly like absent.
	if video.OwnerID != ownerID {
		return false, nil
	}

	if err := s.repository.DeleteVideo(ctx, id); err != nil {
		return false, &VideoError{VideoID: id, Op: "delete", Err: err}
	}
	return true, nil
}

func (s *service) ListVideos(ctx context.Context, q VideoQuery) (*VideoPage, error) {
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	items, total, err := s.repository.ListVideos(ctx, q)
	if err != nil {
		return nil, err
	}
	return NewVideoPage(items, total, q.Page, q.Limit), nil
}

func (s *service) SearchVideos(ctx context.Context, query string, q VideoQuery) (*VideoPage, error) {
	q.Search = strings.TrimSpace(query)
	if q.Search == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", ErrInvalidQuery)
	}
	return s.ListVideos(ctx, q)
}

func (s *service) GetOwnerStats(ctx context.Context, ownerID string) (*OwnerStats, error) {
	return s.repository.OwnerStats(ctx, ownerID)
}

// Upload session operations

func (s *service) OpenUploadSession(ctx context.Context, req OpenUploadRequest) (*UploadSession, error) {
	if req.FileName == "" {
		return nil, &ConstraintError{Field: "file_name", Reason: "must not be empty"}
	}
	if req.DeclaredSize < 0 {
		return nil, &ConstraintError{Field: "declared_size", Reason: "must not be negative"}
	}

	now := s.now()
	session := &UploadSession{
		ID:           uuid.New(),
		OwnerID:      req.OwnerID,
		FileName:     req.FileName,
		DeclaredSize: req.DeclaredSize,
		MimeType:     req.MimeType,
		Status:       UploadSessionStatusInitiated,
		ExpiresAt:    now.Add(s.uploadTTL),
		CreatedAt:    now,
	}

	if err := s.repository.CreateSession(ctx, session); err != nil {
		return nil, &SessionError{SessionID: session.ID, Op: "open", Err: err}
	}

	uploadURL, err := s.uploadURL(ctx, session)
	if err != nil {
		return nil, &SessionError{SessionID: session.ID, Op: "open", Err: err}
	}
	session.UploadURL = uploadURL

	return session, nil
}

func (s *service) FinalizeUploadSession(ctx context.Context, req FinalizeUploadRequest) (*Video, error) {
	session, err := s.repository.GetSession(ctx, req.SessionID)
	if errors.Is(err, ErrSessionNotFound) {
		// The session row is deleted when finalize succeeds; a video holding
		// its ID is the tombstone that turns the second attempt into a
		// Conflict instead of silently creating a duplicate.
		if _, verr := s.repository.GetVideoBySession(ctx, req.SessionID); verr == nil {
			return nil, ErrSessionFinalized
		}
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, &SessionError{SessionID: req.SessionID, Op: "finalize", Err: err}
	}

	now := s.now()
	// Foreign and expired sessions are indistinguishable from absent ones.
	if session.OwnerID != req.OwnerID || session.Expired(now) {
		return nil, ErrSessionNotFound
	}

	// Mark the session uploading before attempting creation, so a failed
	// finalize leaves it in a retryable state rather than silently lost.
	if session.Status == UploadSessionStatusInitiated {
		if err := s.repository.UpdateSessionStatus(ctx, session.ID, UploadSessionStatusUploading); err != nil {
			return nil, &SessionError{SessionID: session.ID, Op: "finalize", Err: err}
		}
	}

	fileSize := req.FileSize
	if fileSize == 0 {
		fileSize = session.DeclaredSize
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = VisibilityPrivate
	}
	if err := validateVideoFields(req.Title, req.Description, fileSize, VideoStatusProcessing, visibility); err != nil {
		return nil, err
	}

	storageURL := req.StorageURL
	if storageURL == "" {
		if storageURL, err = s.retrievalURL(ctx, session); err != nil {
			return nil, &SessionError{SessionID: session.ID, Op: "finalize", Err: err}
		}
	}

	media := req.Media
	if media == nil && session.MimeType != "" {
		media = &MediaInfo{MimeType: session.MimeType}
	}
	originalName := req.OriginalFileName
	if originalName == "" {
		originalName = session.FileName
	}

	sessionID := session.ID
	video := &Video{
		ID:               uuid.New(),
		OwnerID:          session.OwnerID,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		FileName:         session.FileName,
		OriginalFileName: originalName,
		FileSize:         fileSize,
		Duration:         req.Duration,
		StorageURL:       storageURL,
		ThumbnailURL:     req.ThumbnailURL,
		Status:           VideoStatusProcessing,
		Visibility:       visibility,
		Media:            media,
		UploadSessionID:  &sessionID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repository.FinalizeSession(ctx, session.ID, video, NormalizeTagNames(req.Tags)); err != nil {
		if errors.Is(err, ErrSessionFinalized) {
			return nil, ErrSessionFinalized
		}
		return nil, &SessionError{SessionID: session.ID, Op: "finalize", Err: err}
	}

	return s.repository.GetVideo(ctx, video.ID)
}

func (s *service) CancelUploadSession(ctx context.Context, sessionID uuid.UUID, ownerID string) (bool, error) {
	session, err := s.repository.GetSession(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &SessionError{SessionID: sessionID, Op: "cancel", Err: err}
	}
	if session.OwnerID != ownerID {
		return false, nil
	}

	if err := s.repository.DeleteSession(ctx, sessionID); err != nil {
		return false, &SessionError{SessionID: sessionID, Op: "cancel", Err: err}
	}
	return true, nil
}

// Tag operations

func (s *service) EnsureTag(ctx context.Context, name string) (*Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if Slugify(name) == "" {
		return nil, &ConstraintError{Field: "name", Reason: "must contain at least one alphanumeric character"}
	}
	return s.repository.EnsureTag(ctx, name)
}

func (s *service) ListTags(ctx context.Context) ([]*Tag, error) {
	return s.repository.ListTags(ctx)
}

// View recording

func (s *service) RecordView(ctx context.Context, req RecordViewRequest) {
	event := &ViewEvent{
		VideoID:       req.VideoID,
		ViewerID:      req.ViewerID,
		ClientInfo:    req.ClientInfo,
		WatchDuration: req.WatchDuration,
		WatchPercent:  req.WatchPercent,
		CreatedAt:     s.now(),
	}

	if err := s.repository.RecordView(ctx, event); err != nil {
		// Best-effort by contract: never fail the read path that triggered it.
		s.logger.Warn("failed to record view event",
			"video_id", req.VideoID.String(),
			"error", err)
	}
}

// Helper methods

// uploadURL returns a write destination for a session's object, when a blob
// store is configured.
func (s *service) uploadURL(ctx context.Context, session *UploadSession) (string, error) {
	store, ok := s.blobStores[s.defaultStore]
	if !ok {
		return "", nil
	}
	return store.GetUploadURL(ctx, objectKey(session))
}

func (s *service) retrievalURL(ctx context.Context, session *UploadSession) (string, error) {
	store, ok := s.blobStores[s.defaultStore]
	if !ok {
		return "", &ConstraintError{Field: "storage_url", Reason: "must not be empty"}
	}
	return store.GetDownloadURL(ctx, objectKey(session))
}

func objectKey(session *UploadSession) string {
	return fmt.Sprintf("V/%s/%s", session.ID, session.FileName)
}

func validateVideoFields(title, description string, fileSize int64, status VideoStatus, visibility Visibility) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &ConstraintError{Field: "title", Reason: "must not be empty"}
	}
	if len(title) > maxTitleLen {
		return &ConstraintError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", maxTitleLen)}
	}
	if len(description) > maxDescriptionLen {
		return &ConstraintError{Field: "description", Reason: fmt.Sprintf("must be at most %d characters", maxDescriptionLen)}
	}
	if fileSize <= 0 {
		return &ConstraintError{Field: "file_size", Reason: "must be positive"}
	}
	if !status.Valid() {
		return &ConstraintError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	if !visibility.Valid() {
		return &ConstraintError{Field: "visibility", Reason: fmt.Sprintf("unknown visibility %q", visibility)}
	}
	return nil
}
