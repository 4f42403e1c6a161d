package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/reelworks/reelstore/pkg/reelstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalized(q reelstore.VideoQuery) reelstore.VideoQuery {
	q.Normalize()
	return q
}

func TestBuildListQueryVisibilityScope(t *testing.T) {
	t.Run("anonymous sees public only", func(t *testing.T) {
		lq := buildListQuery(normalized(reelstore.VideoQuery{}))

		assert.Contains(t, lq.CountSQL, "v.visibility = 'public'")
		assert.NotContains(t, lq.CountSQL, "owner_id")
		assert.Empty(t, lq.Args)
	})

	t.Run("viewer sees public plus own", func(t *testing.T) {
		lq := buildListQuery(normalized(reelstore.VideoQuery{ViewerID: "alice"}))

		assert.Contains(t, lq.CountSQL, "(v.visibility = 'public' OR v.owner_id = $1)")
		assert.Equal(t, []interface{}{"alice"}, lq.Args)
	})

	t.Run("scope always comes first", func(t *testing.T) {
		lq := buildListQuery(normalized(reelstore.VideoQuery{
			ViewerID: "alice",
			OwnerID:  "bob",
			Status:   reelstore.VideoStatusReady,
		}))

		scopeIdx := strings.Index(lq.CountSQL, "v.visibility = 'public' OR")
		ownerIdx := strings.Index(lq.CountSQL, "v.owner_id = $2")
		require.Greater(t, scopeIdx, 0)
		assert.Greater(t, ownerIdx, scopeIdx)
	})
}

func TestBuildListQueryPredicates(t *testing.T) {
	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	before := after.Add(24 * time.Hour)

	lq := buildListQuery(normalized(reelstore.VideoQuery{
		ViewerID:      "alice",
		OwnerID:       "alice",
		Status:        reelstore.VideoStatusReady,
		Visibility:    reelstore.VisibilityPublic,
		Tag:           "Go Tips",
		CreatedAfter:  &after,
		CreatedBefore: &before,
	}))

	assert.Contains(t, lq.CountSQL, "v.status = $3")
	assert.Contains(t, lq.CountSQL, "v.visibility = $4")
	assert.Contains(t, lq.CountSQL, "t.slug = $5")
	assert.Contains(t, lq.CountSQL, "v.created_at >= $6")
	assert.Contains(t, lq.CountSQL, "v.created_at <= $7")

	// Tag lookup goes through the derived slug.
	assert.Equal(t, "go-tips", lq.Args[4])

	// The page query carries limit and offset as trailing parameters.
	require.Len(t, lq.PageArgs, len(lq.Args)+2)
	assert.Equal(t, reelstore.DefaultPageLimit, lq.PageArgs[len(lq.PageArgs)-2])
	assert.Equal(t, 0, lq.PageArgs[len(lq.PageArgs)-1])
	assert.Contains(t, lq.PageSQL, "LIMIT $8 OFFSET $9")
}

func TestBuildListQueryOmitsAbsentPredicates(t *testing.T) {
	lq := buildListQuery(normalized(reelstore.VideoQuery{ViewerID: "alice"}))

	assert.NotContains(t, lq.CountSQL, "v.status")
	assert.NotContains(t, lq.CountSQL, "video_tags")
	assert.NotContains(t, lq.CountSQL, "tsquery")
	assert.NotContains(t, lq.CountSQL, "created_at >=")
}

func TestBuildListQuerySearch(t *testing.T) {
	t.Run("search ranks by relevance by default", func(t *testing.T) {
		lq := buildListQuery(normalized(reelstore.VideoQuery{Search: "gophers"}))

		assert.Contains(t, lq.CountSQL, "websearch_to_tsquery('english', $1)")
		assert.Contains(t, lq.PageSQL, "ORDER BY ts_rank(")
		assert.Contains(t, lq.PageSQL, "v.created_at DESC, v.id")
	})

	t.Run("explicit sort overrides relevance", func(t *testing.T) {
		lq := buildListQuery(normalized(reelstore.VideoQuery{
			Search: "gophers",
			SortBy: reelstore.SortByTitle,
		}))

		assert.NotContains(t, lq.PageSQL, "ts_rank")
		assert.Contains(t, lq.PageSQL, "ORDER BY v.title DESC, v.id")
	})
}

func TestBuildListQuerySort(t *testing.T) {
	tests := []struct {
		name    string
		query   reelstore.VideoQuery
		orderBy string
	}{
		{
			name:    "default is created_at desc",
			query:   reelstore.VideoQuery{},
			orderBy: "ORDER BY v.created_at DESC, v.id",
		},
		{
			name:    "ascending file size",
			query:   reelstore.VideoQuery{SortBy: reelstore.SortByFileSize, SortOrder: reelstore.SortAsc},
			orderBy: "ORDER BY v.file_size ASC, v.id",
		},
		{
			name:    "descending duration",
			query:   reelstore.VideoQuery{SortBy: reelstore.SortByDuration, SortOrder: reelstore.SortDesc},
			orderBy: "ORDER BY v.duration DESC, v.id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lq := buildListQuery(normalized(tt.query))
			assert.Contains(t, lq.PageSQL, tt.orderBy)
		})
	}
}

func TestBuildListQueryOffset(t *testing.T) {
	lq := buildListQuery(normalized(reelstore.VideoQuery{Page: 3, Limit: 10}))

	assert.Equal(t, 10, lq.PageArgs[len(lq.PageArgs)-2])
	assert.Equal(t, 20, lq.PageArgs[len(lq.PageArgs)-1])
}
