package query

// DefaultLimit is applied when a request does not specify one.
const DefaultLimit = 50000

// MaxLimit is one chunk worth of rows; a requested limit above this is capped.
const MaxLimit = 50000

// Paginate returns the page of rows with RowID > cursor, up to limit rows,
// plus the cursor a caller should pass to fetch the next page and whether
// more rows remain beyond this page. A cursor of 0 (the default when a
// request gives none) or below starts at the first row, so row 0 is
// included. rows must be sorted by RowID ascending, which LoadRows
// guarantees.
func Paginate(rows []Row, cursor int64, limit int64) (page []Row, nextCursor int64, hasMore bool) {
	if limit <= 0 {
		limit = DefaultLimit
	} else if limit > MaxLimit {
		limit = MaxLimit
	}

	start := 0
	for cursor > 0 && start < len(rows) && int64(rows[start].RowID) <= cursor {
		start++
	}

	end := start + int(limit)
	if end > len(rows) {
		end = len(rows)
	}

	page = rows[start:end]
	hasMore = end < len(rows)
	if len(page) > 0 {
		nextCursor = int64(page[len(page)-1].RowID)
	} else {
		nextCursor = cursor
	}
	return page, nextCursor, hasMore
}
