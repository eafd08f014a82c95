package query

import (
	"context"
	"strings"

	"github.com/secstrace/tracecore/internal/store"
	"github.com/secstrace/tracecore/pkg/models"
)

// ApplyScalarFilter evaluates every predicate in f except the text
// substring check, which requires a payload read per candidate row and is
// deliberately applied last, over the already-narrowed result.
func ApplyScalarFilter(rows []Row, f models.FilterExpr) []Row {
	if isScalarFilterEmpty(f) {
		return rows
	}

	out := rows[:0:0]
	for _, r := range rows {
		if f.Dir != 0 && int8(f.Dir) != r.Dir {
			continue
		}
		if len(f.S) > 0 && !uint8In(f.S, r.S) {
			continue
		}
		if len(f.F) > 0 && !uint8In(f.F, r.F) {
			continue
		}
		if len(f.CEID) > 0 && !uint32In(f.CEID, r.CEID) {
			continue
		}
		if len(f.VID) > 0 && !uint32In(f.VID, r.VID) {
			continue
		}
		if len(f.RPTID) > 0 && !uint32In(f.RPTID, r.RPTID) {
			continue
		}
		if f.Time.FromNS != 0 && r.TsNS < f.Time.FromNS {
			continue
		}
		if f.Time.ToNS != 0 && r.TsNS > f.Time.ToNS {
			continue
		}
		out = append(out, r)
	}
	return out
}

func isScalarFilterEmpty(f models.FilterExpr) bool {
	return f.Dir == 0 && len(f.S) == 0 && len(f.F) == 0 && len(f.CEID) == 0 &&
		len(f.VID) == 0 && len(f.RPTID) == 0 && f.Time.FromNS == 0 && f.Time.ToNS == 0
}

// ApplyTextFilter narrows rows to those whose cold payload's body_json
// contains text as a case-insensitive substring. An empty text is a no-op.
func ApplyTextFilter(ctx context.Context, st *store.Store, sessionID string, rows []Row, text string) ([]Row, error) {
	if text == "" {
		return rows, nil
	}
	needle := strings.ToLower(text)

	out := rows[:0:0]
	for _, r := range rows {
		body, err := st.ReadPayload(ctx, sessionID, int64(r.RowID))
		if err != nil {
			return nil, err
		}
		if strings.Contains(strings.ToLower(string(body)), needle) {
			out = append(out, r)
		}
	}
	return out, nil
}

func uint8In(set models.Uint8Slice, v uint8) bool {
	for _, x := range set {
		if x == v {
			return true
		}
	}
	return false
}

func uint32In(set []uint32, v uint32) bool {
	for _, x := range set {
		if x == v {
			return true
		}
	}
	return false
}
