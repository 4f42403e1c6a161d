package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reelworks/reelstore/pkg/reelstore"
)

// DBTX is the subset of pgx operations the repository needs; both a pool and
// a transaction satisfy it.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements reelstore.Repository using PostgreSQL. Multi-table
// writes run inside a transaction held on a single pooled connection, so a
// failure at any point rolls the whole logical operation back.
type Repository struct {
	pool *pgxpool.Pool
}

// NewWithPool creates a new PostgreSQL repository backed by a connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// mapError translates pgx failures into the library's error taxonomy.
// Constraint-shaped failures become ConstraintError, connection and
// cancellation failures become TransientError (safe to retry the whole
// operation), and a unique violation on the upload-session column means the
// session was already finalized.
func (r *Repository) mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "upload_session") {
				return reelstore.ErrSessionFinalized
			}
			return &reelstore.ConstraintError{Field: pgErr.ConstraintName, Reason: "duplicate value"}
		case "23503": // foreign_key_violation
			return &reelstore.ConstraintError{Field: pgErr.ConstraintName, Reason: "referenced record not found"}
		case "23502": // not_null_violation
			return &reelstore.ConstraintError{Field: pgErr.ColumnName, Reason: "required field is missing"}
		case "23514": // check_violation
			return &reelstore.ConstraintError{Field: pgErr.ConstraintName, Reason: "value out of range"}
		}
		// Class 08: connection exceptions. 57014: statement timeout/cancel.
		if strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57014" || pgErr.Code == "53300" {
			return &reelstore.TransientError{Op: op, Err: err}
		}
		return fmt.Errorf("database error in %s: %s (code: %s)", op, pgErr.Message, pgErr.Code)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &reelstore.TransientError{Op: op, Err: err}
	}

	return fmt.Errorf("database error in %s: %w", op, err)
}

// videoColumns returns the video select list with the given table alias.
func videoColumns(alias string) string {
	cols := []string{
		"id", "owner_id", "title", "description", "file_name", "original_file_name",
		"file_size", "duration", "storage_url", "thumbnail_url", "status", "visibility",
		"mime_type", "resolution", "fps", "bitrate", "codec",
		"upload_session_id", "created_at", "updated_at",
	}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func scanVideo(row pgx.Row) (*reelstore.Video, error) {
	var v reelstore.Video
	var media reelstore.MediaInfo
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.FileName, &v.OriginalFileName,
		&v.FileSize, &v.Duration, &v.StorageURL, &v.ThumbnailURL, &v.Status, &v.Visibility,
		&media.MimeType, &media.Resolution, &media.FPS, &media.Bitrate, &media.Codec,
		&v.UploadSessionID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if media != (reelstore.MediaInfo{}) {
		v.Media = &media
	}
	return &v, nil
}

func mediaOrZero(v *reelstore.Video) reelstore.MediaInfo {
	if v.Media != nil {
		return *v.Media
	}
	return reelstore.MediaInfo{}
}

// Video operations

func (r *Repository) CreateVideo(ctx context.Context, video *reelstore.Video, tagNames []string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertVideo(ctx, tx, video); err != nil {
			return err
		}
		tagIDs, err := ensureTags(ctx, tx, tagNames)
		if err != nil {
			return err
		}
		if err := insertAssociations(ctx, tx, video.ID, tagIDs); err != nil {
			return err
		}
		return applyUsageDelta(ctx, tx, tagIDs, +1)
	})
	if err != nil {
		return r.mapError("create video", err)
	}
	return nil
}

func insertVideo(ctx context.Context, tx pgx.Tx, video *reelstore.Video) error {
	query := `
		INSERT INTO videos (
			id, owner_id, title, description, file_name, original_file_name,
			file_size, duration, storage_url, thumbnail_url, status, visibility,
			mime_type, resolution, fps, bitrate, codec,
			upload_session_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	media := mediaOrZero(video)
	_, err := tx.Exec(ctx, query,
		video.ID, video.OwnerID, video.Title, video.Description, video.FileName, video.OriginalFileName,
		video.FileSize, video.Duration, video.StorageURL, video.ThumbnailURL, video.Status, video.Visibility,
		media.MimeType, media.Resolution, media.FPS, media.Bitrate, media.Codec,
		video.UploadSessionID, video.CreatedAt, video.UpdatedAt)
	return err
}

func (r *Repository) GetVideo(ctx context.Context, id uuid.UUID) (*reelstore.Video, error) {
	query := fmt.Sprintf(`SELECT %s FROM videos v WHERE v.id = $1`, videoColumns("v"))

	video, err := scanVideo(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reelstore.ErrVideoNotFound
		}
		return nil, r.mapError("get video", err)
	}

	if err := r.loadTags(ctx, r.pool, []*reelstore.Video{video}); err != nil {
		return nil, r.mapError("get video", err)
	}
	return video, nil
}

func (r *Repository) UpdateVideo(ctx context.Context, video *reelstore.Video, tagNames *[]string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE videos SET
				title = $2, description = $3, duration = $4, thumbnail_url = $5,
				status = $6, visibility = $7,
				mime_type = $8, resolution = $9, fps = $10, bitrate = $11, codec = $12,
				updated_at = $13
			WHERE id = $1`

		media := mediaOrZero(video)
		tag, err := tx.Exec(ctx, query,
			video.ID, video.Title, video.Description, video.Duration, video.ThumbnailURL,
			video.Status, video.Visibility,
			media.MimeType, media.Resolution, media.FPS, media.Bitrate, media.Codec,
			video.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return reelstore.ErrVideoNotFound
		}

		if tagNames == nil {
			return nil
		}
		return replaceTagSet(ctx, tx, video.ID, *tagNames)
	})
	if err != nil {
		if errors.Is(err, reelstore.ErrVideoNotFound) {
			return err
		}
		return r.mapError("update video", err)
	}
	return nil
}

func (r *Repository) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tagIDs, err := currentTagIDs(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := applyUsageDelta(ctx, tx, tagIDs, -1); err != nil {
			return err
		}

		// Associations and view events go with the row via ON DELETE CASCADE.
		tag, err := tx.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return reelstore.ErrVideoNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, reelstore.ErrVideoNotFound) {
			return err
		}
		return r.mapError("delete video", err)
	}
	return nil
}

func (r *Repository) ListVideos(ctx context.Context, q reelstore.VideoQuery) ([]*reelstore.Video, int64, error) {
	lq := buildListQuery(q)

	var total int64
	if err := r.pool.QueryRow(ctx, lq.CountSQL, lq.Args...).Scan(&total); err != nil {
		return nil, 0, r.mapError("count videos", err)
	}

	rows, err := r.pool.Query(ctx, lq.PageSQL, lq.PageArgs...)
	if err != nil {
		return nil, 0, r.mapError("list videos", err)
	}
	defer rows.Close()

	var videos []*reelstore.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, 0, r.mapError("scan video", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, r.mapError("iterate videos", err)
	}

	if err := r.loadTags(ctx, r.pool, videos); err != nil {
		return nil, 0, r.mapError("list videos", err)
	}
	return videos, total, nil
}

func (r *Repository) OwnerStats(ctx context.Context, ownerID string) (*reelstore.OwnerStats, error) {
	stats := &reelstore.OwnerStats{
		OwnerID:  ownerID,
		ByStatus: make(map[string]int64),
	}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM videos WHERE owner_id = $1`,
		ownerID).Scan(&stats.TotalVideos, &stats.TotalSize)
	if err != nil {
		return nil, r.mapError("owner stats", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM videos WHERE owner_id = $1 GROUP BY status`, ownerID)
	if err != nil {
		return nil, r.mapError("owner stats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, r.mapError("owner stats", err)
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapError("owner stats", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM video_views vv JOIN videos v ON v.id = vv.video_id WHERE v.owner_id = $1`,
		ownerID).Scan(&stats.TotalViews)
	if err != nil {
		return nil, r.mapError("owner stats", err)
	}

	return stats, nil
}

// Tag operations

func (r *Repository) EnsureTag(ctx context.Context, name string) (*reelstore.Tag, error) {
	var tag *reelstore.Tag
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		ids, err := ensureTags(ctx, tx, []string{name})
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return reelstore.ErrTagNotFound
		}
		tag, err = getTag(ctx, tx, ids[0])
		return err
	})
	if err != nil {
		return nil, r.mapError("ensure tag", err)
	}
	return tag, nil
}

func getTag(ctx context.Context, db DBTX, id uuid.UUID) (*reelstore.Tag, error) {
	var t reelstore.Tag
	err := db.QueryRow(ctx,
		`SELECT id, name, slug, color, description, usage_count, created_at FROM tags WHERE id = $1`,
		id).Scan(&t.ID, &t.Name, &t.Slug, &t.Color, &t.Description, &t.UsageCount, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reelstore.ErrTagNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repository) ListTags(ctx context.Context) ([]*reelstore.Tag, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, slug, color, description, usage_count, created_at
		FROM tags
		ORDER BY usage_count DESC, name ASC`)
	if err != nil {
		return nil, r.mapError("list tags", err)
	}
	defer rows.Close()

	var tags []*reelstore.Tag
	for rows.Next() {
		var t reelstore.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Color, &t.Description, &t.UsageCount, &t.CreatedAt); err != nil {
			return nil, r.mapError("scan tag", err)
		}
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapError("iterate tags", err)
	}
	return tags, nil
}

// Upload session operations

func (r *Repository) CreateSession(ctx context.Context, session *reelstore.UploadSession) error {
	query := `
		INSERT INTO upload_sessions (
			id, owner_id, file_name, declared_size, mime_type, status, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		session.ID, session.OwnerID, session.FileName, session.DeclaredSize,
		session.MimeType, session.Status, session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return r.mapError("create session", err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*reelstore.UploadSession, error) {
	var s reelstore.UploadSession
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, file_name, declared_size, mime_type, status, expires_at, created_at
		FROM upload_sessions WHERE id = $1`, id).Scan(
		&s.ID, &s.OwnerID, &s.FileName, &s.DeclaredSize, &s.MimeType, &s.Status, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reelstore.ErrSessionNotFound
		}
		return nil, r.mapError("get session", err)
	}
	return &s, nil
}

func (r *Repository) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status reelstore.UploadSessionStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE upload_sessions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return r.mapError("update session status", err)
	}
	if tag.RowsAffected() == 0 {
		return reelstore.ErrSessionNotFound
	}
	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM upload_sessions WHERE id = $1`, id)
	if err != nil {
		return r.mapError("delete session", err)
	}
	if tag.RowsAffected() == 0 {
		return reelstore.ErrSessionNotFound
	}
	return nil
}

func (r *Repository) FinalizeSession(ctx context.Context, sessionID uuid.UUID, video *reelstore.Video, tagNames []string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM upload_sessions WHERE id = $1`, sessionID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			// Row already gone: either finalized earlier (a video holds the
			// session id) or never existed.
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM videos WHERE upload_session_id = $1)`,
				sessionID).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return reelstore.ErrSessionFinalized
			}
			return reelstore.ErrSessionNotFound
		}

		if err := insertVideo(ctx, tx, video); err != nil {
			return err
		}
		tagIDs, err := ensureTags(ctx, tx, tagNames)
		if err != nil {
			return err
		}
		if err := insertAssociations(ctx, tx, video.ID, tagIDs); err != nil {
			return err
		}
		return applyUsageDelta(ctx, tx, tagIDs, +1)
	})
	if err != nil {
		if errors.Is(err, reelstore.ErrSessionFinalized) || errors.Is(err, reelstore.ErrSessionNotFound) {
			return err
		}
		return r.mapError("finalize session", err)
	}
	return nil
}

func (r *Repository) GetVideoBySession(ctx context.Context, sessionID uuid.UUID) (*reelstore.Video, error) {
	query := fmt.Sprintf(`SELECT %s FROM videos v WHERE v.upload_session_id = $1`, videoColumns("v"))

	video, err := scanVideo(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reelstore.ErrVideoNotFound
		}
		return nil, r.mapError("get video by session", err)
	}
	if err := r.loadTags(ctx, r.pool, []*reelstore.Video{video}); err != nil {
		return nil, r.mapError("get video by session", err)
	}
	return video, nil
}

// View events

func (r *Repository) RecordView(ctx context.Context, event *reelstore.ViewEvent) error {
	query := `
		INSERT INTO video_views (video_id, viewer_id, client_info, watch_duration, watch_percent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		event.VideoID, event.ViewerID, event.ClientInfo,
		event.WatchDuration, event.WatchPercent, event.CreatedAt)
	if err != nil {
		return r.mapError("record view", err)
	}
	return nil
}

func (r *Repository) CountViews(ctx context.Context, videoID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM video_views WHERE video_id = $1`, videoID).Scan(&count)
	if err != nil {
		return 0, r.mapError("count views", err)
	}
	return count, nil
}

// Tag helpers. All run on the caller's transaction so usage counts move in
// the same commit as the association rows they mirror.

// ensureTags resolves names to tag ids, creating missing tags. The unique
// slug constraint is the concurrency guard: insert-on-conflict-do-nothing
// followed by a select never produces duplicates, whichever call wins.
func ensureTags(ctx context.Context, tx pgx.Tx, names []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		slug := reelstore.Slugify(name)
		if slug == "" {
			continue
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO tags (id, name, slug) VALUES ($1, LOWER($2), $3) ON CONFLICT (slug) DO NOTHING`,
			uuid.New(), strings.TrimSpace(name), slug)
		if err != nil {
			return nil, err
		}
		var id uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM tags WHERE slug = $1`, slug).Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func insertAssociations(ctx context.Context, tx pgx.Tx, videoID uuid.UUID, tagIDs []uuid.UUID) error {
	for _, tagID := range tagIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO video_tags (video_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			videoID, tagID)
		if err != nil {
			return err
		}
	}
	return nil
}

func applyUsageDelta(ctx context.Context, tx pgx.Tx, tagIDs []uuid.UUID, delta int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	// Clamped at zero to tolerate replay.
	_, err := tx.Exec(ctx,
		`UPDATE tags SET usage_count = GREATEST(usage_count + $1, 0) WHERE id = ANY($2)`,
		delta, tagIDs)
	return err
}

func currentTagIDs(ctx context.Context, tx pgx.Tx, videoID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `SELECT tag_id FROM video_tags WHERE video_id = $1`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// replaceTagSet swaps a video's tag set for the given names, adjusting usage
// counts only for the tags actually added or removed.
func replaceTagSet(ctx context.Context, tx pgx.Tx, videoID uuid.UUID, tagNames []string) error {
	oldIDs, err := currentTagIDs(ctx, tx, videoID)
	if err != nil {
		return err
	}
	newIDs, err := ensureTags(ctx, tx, tagNames)
	if err != nil {
		return err
	}

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

	if len(removed) > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM video_tags WHERE video_id = $1 AND tag_id = ANY($2)`,
			videoID, removed); err != nil {
			return err
		}
	}
	if err := insertAssociations(ctx, tx, videoID, added); err != nil {
		return err
	}
	if err := applyUsageDelta(ctx, tx, added, +1); err != nil {
		return err
	}
	return applyUsageDelta(ctx, tx, removed, -1)
}

// loadTags attaches tag sets to the given videos in one query.
func (r *Repository) loadTags(ctx context.Context, db DBTX, videos []*reelstore.Video) error {
	if len(videos) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*reelstore.Video, len(videos))
	ids := make([]uuid.UUID, 0, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
		ids = append(ids, v.ID)
	}

	rows, err := db.Query(ctx, `
		SELECT vt.video_id, t.id, t.name, t.slug, t.color, t.description, t.usage_count, t.created_at
		FROM video_tags vt
		JOIN tags t ON t.id = vt.tag_id
		WHERE vt.video_id = ANY($1)
		ORDER BY t.name ASC`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var videoID uuid.UUID
		var t reelstore.Tag
		if err := rows.Scan(&videoID, &t.ID, &t.Name, &t.Slug, &t.Color, &t.Description, &t.UsageCount, &t.CreatedAt); err != nil {
			return err
		}
		if v, ok := byID[videoID]; ok {
			v.Tags = append(v.Tags, &t)
		}
	}
	return rows.Err()
}
