package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/reelworks/reelstore/pkg/reelstore"
)

// Repository implements reelstore.Repository using in-memory storage.
//
// All state is guarded by a single mutex, so every multi-table operation is
// atomic by construction and honors the same invariants as the Postgres
// implementation: tag usage counts always match live associations, and view
// events cascade away with their video.
type Repository struct {
	mu             sync.RWMutex
	videos         map[uuid.UUID]*reelstore.Video
	videoTags      map[uuid.UUID][]uuid.UUID // video_id -> ordered tag ids
	tags           map[uuid.UUID]*reelstore.Tag
	tagsBySlug     map[string]uuid.UUID
	sessions       map[uuid.UUID]*reelstore.UploadSession
	videoBySession map[uuid.UUID]uuid.UUID // session_id -> video_id
	views          []*reelstore.ViewEvent
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		videos:         make(map[uuid.UUID]*reelstore.Video),
		videoTags:      make(map[uuid.UUID][]uuid.UUID),
		tags:           make(map[uuid.UUID]*reelstore.Tag),
		tagsBySlug:     make(map[string]uuid.UUID),
		sessions:       make(map[uuid.UUID]*reelstore.UploadSession),
		videoBySession: make(map[uuid.UUID]uuid.UUID),
	}
}

// Video operations

func (r *Repository) CreateVideo(ctx context.Context, video *reelstore.Video, tagNames []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if video.FileSize <= 0 {
		return &reelstore.ConstraintError{Field: "file_size", Reason: "must be positive"}
	}

	videoCopy := *video
	videoCopy.Tags = nil
	r.videos[video.ID] = &videoCopy
	if video.UploadSessionID != nil {
		r.videoBySession[*video.UploadSessionID] = video.ID
	}

	tagIDs := r.ensureTagsLocked(tagNames)
	r.videoTags[video.ID] = tagIDs
	r.applyDeltaLocked(tagIDs, +1)

	return nil
}

func (r *Repository) GetVideo(ctx context.Context, id uuid.UUID) (*reelstore.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	video, exists := r.videos[id]
	if !exists {
		return nil, reelstore.ErrVideoNotFound
	}
	return r.copyWithTagsLocked(video), nil
}

func (r *Repository) UpdateVideo(ctx context.Context, video *reelstore.Video, tagNames *[]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.videos[video.ID]; !exists {
		return reelstore.ErrVideoNotFound
	}
	if video.FileSize <= 0 {
		return &reelstore.ConstraintError{Field: "file_size", Reason: "must be positive"}
	}

	videoCopy := *video
	videoCopy.Tags = nil
	r.videos[video.ID] = &videoCopy

	if tagNames != nil {
		r.replaceTagSetLocked(video.ID, *tagNames)
	}
	return nil
}

func (r *Repository) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	video, exists := r.videos[id]
	if !exists {
		return reelstore.ErrVideoNotFound
	}

	r.applyDeltaLocked(r.videoTags[id], -1)
	delete(r.videoTags, id)
	if video.UploadSessionID != nil {
		delete(r.videoBySession, *video.UploadSessionID)
	}

	// View events cascade with the video.
	remaining := r.views[:0]
	for _, event := range r.views {
		if event.VideoID != id {
			remaining = append(remaining, event)
		}
	}
	r.views = remaining

	delete(r.videos, id)
	return nil
}

func (r *Repository) ListVideos(ctx context.Context, q reelstore.VideoQuery) ([]*reelstore.Video, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type ranked struct {
		video *reelstore.Video
		rank  int
	}

	var matched []ranked
	for _, video := range r.videos {
		if !visibleInListing(video, q.ViewerID) {
			continue
		}
		if q.OwnerID != "" && video.OwnerID != q.OwnerID {
			continue
		}
		if q.Status != "" && video.Status != q.Status {
			continue
		}
		if q.Visibility != "" && video.Visibility != q.Visibility {
			continue
		}
		if q.Tag != "" && !r.hasTagLocked(video.ID, q.Tag) {
			continue
		}
		if q.CreatedAfter != nil && video.CreatedAt.Before(*q.CreatedAfter) {
			continue
		}
		if q.CreatedBefore != nil && video.CreatedAt.After(*q.CreatedBefore) {
			continue
		}
		rank := 0
		if q.Search != "" {
			rank = searchRank(video, q.Search)
			if rank == 0 {
				continue
			}
		}
		matched = append(matched, ranked{video: video, rank: rank})
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if q.RankedBySearch() && a.rank != b.rank {
			return a.rank > b.rank
		}
		if less, decided := compareByField(a.video, b.video, q.SortBy, q.SortOrder); decided {
			return less
		}
		// Stable total order for pagination completeness.
		if !a.video.CreatedAt.Equal(b.video.CreatedAt) {
			return a.video.CreatedAt.After(b.video.CreatedAt)
		}
		return a.video.ID.String() < b.video.ID.String()
	})

	total := int64(len(matched))
	start := q.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]*reelstore.Video, 0, end-start)
	for _, m := range matched[start:end] {
		page = append(page, r.copyWithTagsLocked(m.video))
	}
	return page, total, nil
}

func (r *Repository) OwnerStats(ctx context.Context, ownerID string) (*reelstore.OwnerStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &reelstore.OwnerStats{
		OwnerID:  ownerID,
		ByStatus: make(map[string]int64),
	}
	owned := make(map[uuid.UUID]struct{})
	for id, video := range r.videos {
		if video.OwnerID != ownerID {
			continue
		}
		owned[id] = struct{}{}
		stats.TotalVideos++
		stats.TotalSize += video.FileSize
		stats.ByStatus[string(video.Status)]++
	}
	for _, event := range r.views {
		if _, ok := owned[event.VideoID]; ok {
			stats.TotalViews++
		}
	}
	return stats, nil
}

// Tag operations

func (r *Repository) EnsureTag(ctx context.Context, name string) (*reelstore.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.ensureTagsLocked([]string{name})
	if len(ids) == 0 {
		return nil, &reelstore.ConstraintError{Field: "name", Reason: "must contain at least one alphanumeric character"}
	}
	tagCopy := *r.tags[ids[0]]
	return &tagCopy, nil
}

func (r *Repository) ListTags(ctx context.Context) ([]*reelstore.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*reelstore.Tag, 0, len(r.tags))
	for _, tag := range r.tags {
		tagCopy := *tag
		result = append(result, &tagCopy)
	}
	// Usage count descending, then name ascending.
	sort.Slice(result, func(i, j int) bool {
		if result[i].UsageCount != result[j].UsageCount {
			return result[i].UsageCount > result[j].UsageCount
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// Upload session operations

func (r *Repository) CreateSession(ctx context.Context, session *reelstore.UploadSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessionCopy := *session
	r.sessions[session.ID] = &sessionCopy
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*reelstore.UploadSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, reelstore.ErrSessionNotFound
	}
	sessionCopy := *session
	return &sessionCopy, nil
}

func (r *Repository) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status reelstore.UploadSessionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return reelstore.ErrSessionNotFound
	}
	session.Status = status
	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return reelstore.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *Repository) FinalizeSession(ctx context.Context, sessionID uuid.UUID, video *reelstore.Video, tagNames []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, finalized := r.videoBySession[sessionID]; finalized {
		return reelstore.ErrSessionFinalized
	}
	if _, exists := r.sessions[sessionID]; !exists {
		return reelstore.ErrSessionNotFound
	}
	if video.FileSize <= 0 {
		return &reelstore.ConstraintError{Field: "file_size", Reason: "must be positive"}
	}

	videoCopy := *video
	videoCopy.Tags = nil
	r.videos[video.ID] = &videoCopy
	r.videoBySession[sessionID] = video.ID

	tagIDs := r.ensureTagsLocked(tagNames)
	r.videoTags[video.ID] = tagIDs
	r.applyDeltaLocked(tagIDs, +1)

	delete(r.sessions, sessionID)
	return nil
}

func (r *Repository) GetVideoBySession(ctx context.Context, sessionID uuid.UUID) (*reelstore.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	videoID, exists := r.videoBySession[sessionID]
	if !exists {
		return nil, reelstore.ErrVideoNotFound
	}
	return r.copyWithTagsLocked(r.videos[videoID]), nil
}

// View events

func (r *Repository) RecordView(ctx context.Context, event *reelstore.ViewEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.videos[event.VideoID]; !exists {
		return reelstore.ErrVideoNotFound
	}
	eventCopy := *event
	r.views = append(r.views, &eventCopy)
	return nil
}

func (r *Repository) CountViews(ctx context.Context, videoID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, event := range r.views {
		if event.VideoID == videoID {
			count++
		}
	}
	return count, nil
}

// Helpers. All assume r.mu is held.

func (r *Repository) ensureTagsLocked(names []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		slug := reelstore.Slugify(name)
		if slug == "" {
			continue
		}
		if id, exists := r.tagsBySlug[slug]; exists {
			ids = append(ids, id)
			continue
		}
		tag := &reelstore.Tag{
			ID:   uuid.New(),
			Name: strings.ToLower(strings.TrimSpace(name)),
			Slug: slug,
		}
		r.tags[tag.ID] = tag
		r.tagsBySlug[slug] = tag.ID
		ids = append(ids, tag.ID)
	}
	return ids
}

func (r *Repository) applyDeltaLocked(tagIDs []uuid.UUID, delta int64) {
	for _, id := range tagIDs {
		tag, ok := r.tags[id]
		if !ok {
			continue
		}
		tag.UsageCount += delta
		if tag.UsageCount < 0 {
			tag.UsageCount = 0
		}
	}
}

func (r *Repository) replaceTagSetLocked(videoID uuid.UUID, tagNames []string) {
	oldIDs := r.videoTags[videoID]
	newIDs := r.ensureTagsLocked(tagNames)

	oldSet := make(map[uuid.UUID]struct{}, len(oldIDs))
	for _, id := range oldIDs {
		oldSet[id] = struct{}{}
	}
	newSet := make(map[uuid.UUID]struct{}, len(newIDs))
	for _, id := range newIDs {
		newSet[id] = struct{}{}
	}

	var added, removed []uuid.UUID
	for _, id := range newIDs {
		if _, kept := oldSet[id]; !kept {
			added = append(added, id)
		}
	}
	for _, id := range oldIDs {
		if _, kept := newSet[id]; !kept {
			removed = append(removed, id)
		}
	}

	r.applyDeltaLocked(added, +1)
	r.applyDeltaLocked(removed, -1)
	r.videoTags[videoID] = newIDs
}

func (r *Repository) hasTagLocked(videoID uuid.UUID, name string) bool {
	slug := reelstore.Slugify(name)
	for _, id := range r.videoTags[videoID] {
		if tag, ok := r.tags[id]; ok && tag.Slug == slug {
			return true
		}
	}
	return false
}

func (r *Repository) copyWithTagsLocked(video *reelstore.Video) *reelstore.Video {
	videoCopy := *video
	tagIDs := r.videoTags[video.ID]
	if len(tagIDs) > 0 {
		tags := make([]*reelstore.Tag, 0, len(tagIDs))
		for _, id := range tagIDs {
			if tag, ok := r.tags[id]; ok {
				tagCopy := *tag
				tags = append(tags, &tagCopy)
			}
		}
		videoCopy.Tags = tags
	}
	return &videoCopy
}

func visibleInListing(video *reelstore.Video, viewerID string) bool {
	if video.Visibility == reelstore.VisibilityPublic {
		return true
	}
	return viewerID != "" && video.OwnerID == viewerID
}

func searchRank(video *reelstore.Video, term string) int {
	term = strings.ToLower(term)
	rank := 0
	if strings.Contains(strings.ToLower(video.Title), term) {
		rank += 2
	}
	if strings.Contains(strings.ToLower(video.Description), term) {
		rank++
	}
	return rank
}

func compareByField(a, b *reelstore.Video, sortBy, order string) (less, decided bool) {
	asc := order == reelstore.SortAsc
	cmp := 0
	switch sortBy {
	case reelstore.SortByCreatedAt, "":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			cmp = -1
		case a.CreatedAt.After(b.CreatedAt):
			cmp = 1
		}
	case reelstore.SortByUpdatedAt:
		switch {
		case a.UpdatedAt.Before(b.UpdatedAt):
			cmp = -1
		case a.UpdatedAt.After(b.UpdatedAt):
			cmp = 1
		}
	case reelstore.SortByTitle:
		cmp = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case reelstore.SortByFileSize:
		switch {
		case a.FileSize < b.FileSize:
			cmp = -1
		case a.FileSize > b.FileSize:
			cmp = 1
		}
	case reelstore.SortByDuration:
		switch {
		case a.Duration < b.Duration:
			cmp = -1
		case a.Duration > b.Duration:
			cmp = 1
		}
	}
	if cmp == 0 {
		return false, false
	}
	if asc {
		return cmp < 0, true
	}
	return cmp > 0, true
}
