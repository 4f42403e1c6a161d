package reelstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVideoQueryNormalize(t *testing.T) {
	q := VideoQuery{}
	q.Normalize()

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultPageLimit, q.Limit)
	assert.Equal(t, SortDesc, q.SortOrder)

	q = VideoQuery{Page: 4, Limit: 50, SortOrder: SortAsc}
	q.Normalize()
	assert.Equal(t, 4, q.Page)
	assert.Equal(t, 50, q.Limit)
	assert.Equal(t, SortAsc, q.SortOrder)
}

func TestVideoQueryValidate(t *testing.T) {
	valid := func() VideoQuery {
		q := VideoQuery{}
		q.Normalize()
		return q
	}

	tests := []struct {
		name    string
		mutate  func(*VideoQuery)
		wantErr bool
	}{
		{"defaults pass", func(q *VideoQuery) {}, false},
		{"max limit passes", func(q *VideoQuery) { q.Limit = MaxPageLimit }, false},
		{"zero page", func(q *VideoQuery) { q.Page = 0 }, true},
		{"negative page", func(q *VideoQuery) { q.Page = -2 }, true},
		{"limit above max", func(q *VideoQuery) { q.Limit = MaxPageLimit + 1 }, true},
		{"unknown sort field", func(q *VideoQuery) { q.SortBy = "views" }, true},
		{"known sort field", func(q *VideoQuery) { q.SortBy = SortByFileSize }, false},
		{"bad sort order", func(q *VideoQuery) { q.SortOrder = "sideways" }, true},
		{"bad status filter", func(q *VideoQuery) { q.Status = "archived" }, true},
		{"bad visibility filter", func(q *VideoQuery) { q.Visibility = "secret" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid()
			tt.mutate(&q)

			err := q.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuery)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVideoQueryOffset(t *testing.T) {
	q := VideoQuery{Page: 1, Limit: 20}
	assert.Equal(t, 0, q.Offset())

	q = VideoQuery{Page: 3, Limit: 10}
	assert.Equal(t, 20, q.Offset())
}

func TestRankedBySearch(t *testing.T) {
	assert.True(t, (&VideoQuery{Search: "jazz"}).RankedBySearch())
	assert.False(t, (&VideoQuery{Search: "jazz", SortBy: SortByTitle}).RankedBySearch())
	assert.False(t, (&VideoQuery{}).RankedBySearch())
}

func TestNewVideoPage(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		page       int
		limit      int
		totalPages int
		hasNext    bool
		hasPrev    bool
	}{
		{"first of three", 25, 1, 10, 3, true, false},
		{"middle", 25, 2, 10, 3, true, true},
		{"last partial", 25, 3, 10, 3, false, true},
		{"beyond end", 25, 9, 10, 3, false, true},
		{"exact fit", 20, 2, 10, 2, false, true},
		{"empty", 0, 1, 10, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewVideoPage(nil, tt.total, tt.page, tt.limit)

			assert.Equal(t, tt.total, p.Total)
			assert.Equal(t, tt.totalPages, p.TotalPages)
			assert.Equal(t, tt.hasNext, p.HasNext)
			assert.Equal(t, tt.hasPrev, p.HasPrev)
		})
	}
}

func TestVideoStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to VideoStatus
		allowed  bool
	}{
		{VideoStatusUploading, VideoStatusProcessing, true},
		{VideoStatusUploading, VideoStatusReady, true},
		{VideoStatusUploading, VideoStatusFailed, true},
		{VideoStatusProcessing, VideoStatusReady, true},
		{VideoStatusProcessing, VideoStatusFailed, true},
		{VideoStatusProcessing, VideoStatusUploading, false},
		{VideoStatusReady, VideoStatusProcessing, false},
		{VideoStatusReady, VideoStatusFailed, false},
		{VideoStatusFailed, VideoStatusReady, false},
		{VideoStatusReady, VideoStatusReady, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}
