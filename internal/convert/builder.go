package convert

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/secstrace/tracecore/pkg/models"
)

// sharedAllocator is reused across every builder in the process rather
// than paying setup cost per request.
var sharedAllocator = memory.NewGoAllocator()

// Builder accumulates rows into an in-memory column set and emits them as
// a RecordBatch when Build is called. It does not flush on its own; the
// caller checks Len against ChunkSize and calls Build.
type Builder struct {
	tsNS     *array.Int64Builder
	dir      *array.Int8Builder
	s        *array.Uint8Builder
	f        *array.Uint8Builder
	wbit     *array.Uint8Builder
	sysbytes *array.Uint32Builder
	ceid     *array.Uint32Builder
	vid      *array.Uint32Builder
	rptid    *array.Uint32Builder
	rowID    *array.Uint32Builder

	rows int
}

// NewBuilder returns an empty row builder.
func NewBuilder() *Builder {
	return &Builder{
		tsNS:     array.NewInt64Builder(sharedAllocator),
		dir:      array.NewInt8Builder(sharedAllocator),
		s:        array.NewUint8Builder(sharedAllocator),
		f:        array.NewUint8Builder(sharedAllocator),
		wbit:     array.NewUint8Builder(sharedAllocator),
		sysbytes: array.NewUint32Builder(sharedAllocator),
		ceid:     array.NewUint32Builder(sharedAllocator),
		vid:      array.NewUint32Builder(sharedAllocator),
		rptid:    array.NewUint32Builder(sharedAllocator),
		rowID:    array.NewUint32Builder(sharedAllocator),
	}
}

// Push appends one row to the builder.
func (b *Builder) Push(rec models.Record, rowID uint32) {
	b.tsNS.Append(rec.TsNS)
	b.dir.Append(int8(rec.Dir))
	b.s.Append(rec.S)
	b.f.Append(rec.F)
	b.wbit.Append(rec.WBit)
	b.sysbytes.Append(rec.SysBytes)
	b.ceid.Append(rec.CEID)
	b.vid.Append(rec.VID)
	b.rptid.Append(rec.RPTID)
	b.rowID.Append(rowID)
	b.rows++
}

// Len returns the number of rows accumulated since the last Build.
func (b *Builder) Len() int { return b.rows }

// Build materializes the accumulated rows as a RecordBatch and resets the
// builder for the next chunk. The caller owns the returned record and must
// call Release on it.
func (b *Builder) Build() arrow.Record {
	cols := []arrow.Array{
		b.tsNS.NewArray(),
		b.dir.NewArray(),
		b.s.NewArray(),
		b.f.NewArray(),
		b.wbit.NewArray(),
		b.sysbytes.NewArray(),
		b.ceid.NewArray(),
		b.vid.NewArray(),
		b.rptid.NewArray(),
		b.rowID.NewArray(),
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	rec := array.NewRecord(Schema, cols, int64(b.rows))
	b.rows = 0
	return rec
}

// Release frees the builders' underlying buffers.
func (b *Builder) Release() {
	b.tsNS.Release()
	b.dir.Release()
	b.s.Release()
	b.f.Release()
	b.wbit.Release()
	b.sysbytes.Release()
	b.ceid.Release()
	b.vid.Release()
	b.rptid.Release()
	b.rowID.Release()
}
