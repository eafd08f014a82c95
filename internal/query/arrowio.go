package query

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/secstrace/tracecore/internal/apperr"
	"github.com/secstrace/tracecore/internal/convert"
	"github.com/secstrace/tracecore/pkg/models"
)

// arrowBatchSize caps how many rows accumulate in memory before a batch is
// flushed to the stream, so a large result set doesn't require buffering
// the whole thing before the client sees any bytes.
const arrowBatchSize = 10000

// OutputSchema returns the base 10-column schema, extended with one
// boolean highlight column per kind hl requests.
func OutputSchema(hl *models.HighlightExpr) *arrow.Schema {
	fields := append([]arrow.Field{}, convert.Schema.Fields()...)
	for _, name := range highlightColumns(hl) {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.FixedWidthTypes.Boolean})
	}
	return arrow.NewSchema(fields, nil)
}

func highlightColumns(hl *models.HighlightExpr) []string {
	if hl == nil {
		return nil
	}
	var cols []string
	if len(hl.CEID) > 0 {
		cols = append(cols, "hl_ceid")
	}
	if len(hl.VID) > 0 {
		cols = append(cols, "hl_vid")
	}
	if len(hl.RPTID) > 0 {
		cols = append(cols, "hl_rptid")
	}
	if len(hl.SxFy) > 0 {
		cols = append(cols, "hl_sxfy")
	}
	if hl.Unanswered {
		cols = append(cols, "unanswered")
	}
	return cols
}

// StreamRows encodes rows as an Arrow IPC stream and writes it to w in
// batches of arrowBatchSize, flushing after each batch.
func StreamRows(w io.Writer, rows []Row, hl *models.HighlightExpr, unanswered map[uint32]bool) error {
	schema := OutputSchema(hl)
	cols := highlightColumns(hl)

	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(memory.NewGoAllocator()))
	defer writer.Close()

	for start := 0; start < len(rows); start += arrowBatchSize {
		end := start + arrowBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		rec, err := buildBatch(schema, rows[start:end], hl, cols, unanswered)
		if err != nil {
			return err
		}
		err = writer.Write(rec)
		rec.Release()
		if err != nil {
			return apperr.Wrap(apperr.KindIO, "failed writing Arrow batch", err)
		}
		if f, ok := w.(interface{ Flush() error }); ok {
			if err := f.Flush(); err != nil {
				return apperr.Wrap(apperr.KindIO, "failed flushing Arrow stream", err)
			}
		}
	}
	return nil
}

func buildBatch(schema *arrow.Schema, rows []Row, hl *models.HighlightExpr, cols []string, unanswered map[uint32]bool) (arrow.Record, error) {
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for _, r := range rows {
		b.Field(0).(*array.Int64Builder).Append(r.TsNS)
		b.Field(1).(*array.Int8Builder).Append(r.Dir)
		b.Field(2).(*array.Uint8Builder).Append(r.S)
		b.Field(3).(*array.Uint8Builder).Append(r.F)
		b.Field(4).(*array.Uint8Builder).Append(r.WBit)
		b.Field(5).(*array.Uint32Builder).Append(r.SysBytes)
		b.Field(6).(*array.Uint32Builder).Append(r.CEID)
		b.Field(7).(*array.Uint32Builder).Append(r.VID)
		b.Field(8).(*array.Uint32Builder).Append(r.RPTID)
		b.Field(9).(*array.Uint32Builder).Append(r.RowID)

		for i, name := range cols {
			fieldIdx := 10 + i
			builder := b.Field(fieldIdx).(*array.BooleanBuilder)
			builder.Append(highlightValue(name, r, hl, unanswered))
		}
	}

	return b.NewRecord(), nil
}

func highlightValue(name string, r Row, hl *models.HighlightExpr, unanswered map[uint32]bool) bool {
	switch name {
	case "hl_ceid":
		return uint32In(hl.CEID, r.CEID)
	case "hl_vid":
		return uint32In(hl.VID, r.VID)
	case "hl_rptid":
		return uint32In(hl.RPTID, r.RPTID)
	case "hl_sxfy":
		for _, pair := range hl.SxFy {
			if pair.S == r.S && pair.F == r.F {
				return true
			}
		}
		return false
	case "unanswered":
		return unanswered[r.RowID]
	default:
		return false
	}
}
