package convert

import (
	"bytes"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/secstrace/tracecore/internal/apperr"
)

// EncodeChunk serializes a RecordBatch as a self-contained Arrow IPC
// stream (schema message followed by one record-batch message), the
// on-disk form of a chunks/<NNN>.arrow file.
func EncodeChunk(rec arrow.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(sharedAllocator))
	if err := w.Write(rec); err != nil {
		return nil, apperr.Wrap(apperr.KindIO, "failed encoding Arrow chunk", err)
	}
	if err := w.Close(); err != nil {
		return nil, apperr.Wrap(apperr.KindIO, "failed closing Arrow chunk writer", err)
	}
	return buf.Bytes(), nil
}

// DecodeChunk reads every RecordBatch out of a chunks/<NNN>.arrow file's
// bytes. The caller owns the returned records and must Release each one.
func DecodeChunk(data []byte) ([]arrow.Record, error) {
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIO, "failed opening Arrow chunk", err)
	}
	defer r.Release()

	var out []arrow.Record
	for r.Next() {
		rec := r.Record()
		rec.Retain()
		out = append(out, rec)
	}
	if err := r.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindIO, "failed reading Arrow chunk", err)
	}
	return out, nil
}
