// Package query implements the filter/highlight evaluation and Arrow IPC
// encoding behind the /messages.arrow and /search endpoints.
package query

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/secstrace/tracecore/internal/apperr"
	"github.com/secstrace/tracecore/internal/store"
)

// Row is one session row materialized from its Arrow chunk columns, in
// the order row_id was assigned during ingest.
type Row struct {
	RowID    uint32
	TsNS     int64
	Dir      int8
	S        uint8
	F        uint8
	WBit     uint8
	SysBytes uint32
	CEID     uint32
	VID      uint32
	RPTID    uint32
}

// LoadRows reads every chunk of a session and flattens it into a Go slice,
// in row_id order. Sessions in this system are small enough (chunked at
// 50,000 rows) that materializing the whole session for a single request
// is the simplest correct approach; see the query engine's non-goals for
// cross-session or streaming-scale query support.
func LoadRows(ctx context.Context, st *store.Store, sessionID string) ([]Row, error) {
	recs, err := st.ReadChunks(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()

	var rows []Row
	for _, rec := range recs {
		batch, err := rowsFromRecord(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	return rows, nil
}

func rowsFromRecord(rec arrow.Record) ([]Row, error) {
	tsNS, ok := rec.Column(0).(*array.Int64)
	if !ok {
		return nil, apperr.New(apperr.KindIO, "chunk has unexpected ts_ns column type")
	}
	dir := rec.Column(1).(*array.Int8)
	s := rec.Column(2).(*array.Uint8)
	f := rec.Column(3).(*array.Uint8)
	wbit := rec.Column(4).(*array.Uint8)
	sysbytes := rec.Column(5).(*array.Uint32)
	ceid := rec.Column(6).(*array.Uint32)
	vid := rec.Column(7).(*array.Uint32)
	rptid := rec.Column(8).(*array.Uint32)
	rowID := rec.Column(9).(*array.Uint32)

	n := int(rec.NumRows())
	out := make([]Row, n)
	for i := 0; i < n; i++ {
		out[i] = Row{
			RowID:    rowID.Value(i),
			TsNS:     tsNS.Value(i),
			Dir:      dir.Value(i),
			S:        s.Value(i),
			F:        f.Value(i),
			WBit:     wbit.Value(i),
			SysBytes: sysbytes.Value(i),
			CEID:     ceid.Value(i),
			VID:      vid.Value(i),
			RPTID:    rptid.Value(i),
		}
	}
	return out, nil
}
