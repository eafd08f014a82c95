package query

import (
	"context"

	"github.com/secstrace/tracecore/internal/store"
	"github.com/secstrace/tracecore/pkg/models"
)

// Result is a page of rows ready for Arrow encoding, plus the pagination
// state a client needs to fetch the next page.
type Result struct {
	Rows       []Row
	Highlight  *models.HighlightExpr
	Unanswered map[uint32]bool
	NextCursor int64
	HasMore    bool
}

// Messages backs GET /sessions/{id}/messages.arrow: every row in the
// session's time range, with no scalar or text filtering and no
// highlighting, paginated by row_id cursor.
func Messages(ctx context.Context, st *store.Store, sessionID string, tf models.TimeFilter, cursor, limit int64) (Result, error) {
	rows, err := LoadRows(ctx, st, sessionID)
	if err != nil {
		return Result{}, err
	}

	if tf.FromNS != 0 || tf.ToNS != 0 {
		rows = ApplyScalarFilter(rows, models.FilterExpr{Time: tf})
	}

	page, next, more := Paginate(rows, cursor, limit)
	return Result{Rows: page, NextCursor: next, HasMore: more}, nil
}

// Search backs POST /sessions/{id}/search: the full filter expression,
// narrowed by cheap scalar checks first and the text substring check
// last, with an optional highlight pass computed over the full session.
func Search(ctx context.Context, st *store.Store, sessionID string, req models.SearchRequest) (Result, error) {
	rows, err := LoadRows(ctx, st, sessionID)
	if err != nil {
		return Result{}, err
	}

	allRows := rows

	rows = ApplyScalarFilter(rows, req.FilterExpr)
	rows, err = ApplyTextFilter(ctx, st, sessionID, rows, req.FilterExpr.Text)
	if err != nil {
		return Result{}, err
	}

	page, next, more := Paginate(rows, req.Cursor, req.Limit)

	var unanswered map[uint32]bool
	if req.Highlight != nil && req.Highlight.Unanswered {
		// A reply may fall outside the filtered/paginated page, so the
		// correlation scan always runs over the full session's rows.
		unanswered = ComputeUnanswered(allRows)
	}

	return Result{
		Rows:       page,
		Highlight:  req.Highlight,
		Unanswered: unanswered,
		NextCursor: next,
		HasMore:    more,
	}, nil
}
