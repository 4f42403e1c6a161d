package postgres

import (
	"fmt"
	"strings"

	"github.com/reelworks/reelstore/pkg/reelstore"
)

// listQuery is the parameterized SQL pair produced for one VideoQuery: a
// count query for total matches and a page query for at most Limit rows.
// Values always travel as parameters, never interpolated into the SQL text.
type listQuery struct {
	CountSQL string
	PageSQL  string
	Args     []interface{}
	PageArgs []interface{}
}

const searchVector = "to_tsvector('english', v.title || ' ' || v.description)"

// buildListQuery translates a validated VideoQuery into a count/page query
// pair. Predicates combine with AND; absent predicates are omitted entirely
// rather than rewritten as tautologies. The visibility scope comes first and
// cannot be bypassed by any other filter.
func buildListQuery(q reelstore.VideoQuery) listQuery {
	var (
		conds     []string
		args      []interface{}
		searchArg int
	)

	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Mandatory visibility scope: anonymous and non-owner callers see public
	// records only; an authenticated caller additionally sees their own.
	if q.ViewerID != "" {
		conds = append(conds, fmt.Sprintf("(v.visibility = 'public' OR v.owner_id = %s)", next(q.ViewerID)))
	} else {
		conds = append(conds, "v.visibility = 'public'")
	}

	if q.OwnerID != "" {
		conds = append(conds, fmt.Sprintf("v.owner_id = %s", next(q.OwnerID)))
	}
	if q.Status != "" {
		conds = append(conds, fmt.Sprintf("v.status = %s", next(string(q.Status))))
	}
	if q.Visibility != "" {
		conds = append(conds, fmt.Sprintf("v.visibility = %s", next(string(q.Visibility))))
	}
	if q.Tag != "" {
		conds = append(conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM video_tags vt JOIN tags t ON t.id = vt.tag_id WHERE vt.video_id = v.id AND t.slug = %s)",
			next(reelstore.Slugify(q.Tag))))
	}
	if q.Search != "" {
		placeholder := next(q.Search)
		searchArg = len(args)
		conds = append(conds, fmt.Sprintf("%s @@ websearch_to_tsquery('english', %s)", searchVector, placeholder))
	}
	if q.CreatedAfter != nil {
		conds = append(conds, fmt.Sprintf("v.created_at >= %s", next(*q.CreatedAfter)))
	}
	if q.CreatedBefore != nil {
		conds = append(conds, fmt.Sprintf("v.created_at <= %s", next(*q.CreatedBefore)))
	}

	where := strings.Join(conds, " AND ")
	countSQL := "SELECT COUNT(*) FROM videos v WHERE " + where

	orderBy := orderClause(q, searchArg)

	pageArgs := append(append([]interface{}{}, args...), q.Limit, q.Offset())
	pageSQL := fmt.Sprintf(
		"SELECT %s FROM videos v WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		videoColumns("v"), where, orderBy, len(pageArgs)-1, len(pageArgs))

	return listQuery{
		CountSQL: countSQL,
		PageSQL:  pageSQL,
		Args:     args,
		PageArgs: pageArgs,
	}
}

// orderClause picks the ORDER BY expression. Relevance rank wins for search
// requests without an explicit sort; otherwise the whitelisted sort field
// applies, created_at desc by default. The id tie-break keeps page contents
// disjoint when sort keys collide.
func orderClause(q reelstore.VideoQuery, searchArg int) string {
	if q.RankedBySearch() && searchArg > 0 {
		return fmt.Sprintf(
			"ts_rank(%s, websearch_to_tsquery('english', $%d)) DESC, v.created_at DESC, v.id",
			searchVector, searchArg)
	}

	column := "created_at"
	switch q.SortBy {
	case reelstore.SortByCreatedAt, reelstore.SortByUpdatedAt, reelstore.SortByTitle,
		reelstore.SortByFileSize, reelstore.SortByDuration:
		column = q.SortBy
	}
	direction := "DESC"
	if q.SortOrder == reelstore.SortAsc {
		direction = "ASC"
	}
	return fmt.Sprintf("v.%s %s, v.id", column, direction)
}
