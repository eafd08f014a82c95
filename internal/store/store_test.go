package store

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/secstrace/tracecore/internal/apperr"
	"github.com/secstrace/tracecore/internal/convert"
	"github.com/secstrace/tracecore/internal/parser"
	"github.com/secstrace/tracecore/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "tracecore-store-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	backend, err := storage.NewLocalBackend(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	return New(backend, zerolog.Nop())
}

func sampleMessages() []parser.ParsedMessage {
	return []parser.ParsedMessage{
		{TsISO: "2024-01-01T00:00:00Z", Dir: "H->E", S: 1, F: 13, WBit: 1, SysBytes: 1, CEID: 0, BodyJSON: `{"a":1}`},
		{TsISO: "2024-01-01T00:00:01Z", Dir: "E->H", S: 1, F: 14, WBit: 0, SysBytes: 1, CEID: 10, BodyJSON: `{"b":2}`},
	}
}

func TestStore_IngestReadMetaReadChunksReadPayload(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	sessionID, meta, err := st.Ingest(ctx, sampleMessages())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if meta.RowCount != 2 {
		t.Fatalf("expected row count 2, got %d", meta.RowCount)
	}

	gotMeta, err := st.ReadMeta(ctx, sessionID)
	if err != nil {
		t.Fatalf("ReadMeta failed: %v", err)
	}
	if gotMeta.RowCount != 2 {
		t.Errorf("expected row count 2, got %d", gotMeta.RowCount)
	}

	recs, err := st.ReadChunks(ctx, sessionID)
	if err != nil {
		t.Fatalf("ReadChunks failed: %v", err)
	}
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()
	var total int64
	for _, r := range recs {
		total += r.NumRows()
	}
	if total != 2 {
		t.Errorf("expected 2 rows across chunks, got %d", total)
	}

	body, err := st.ReadPayload(ctx, sessionID, 0)
	if err != nil {
		t.Fatalf("ReadPayload failed: %v", err)
	}
	var decoded map[string]int
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("failed decoding payload: %v", err)
	}
	if decoded["a"] != 1 {
		t.Errorf("unexpected payload contents: %v", decoded)
	}
}

func TestStore_ReadMeta_UnknownSession(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.ReadMeta(ctx, "does-not-exist")
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Kind != apperr.KindSessionNotFound {
		t.Errorf("expected KindSessionNotFound, got %v", err)
	}
}

func TestStore_ReadPayload_UnknownRow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	sessionID, _, err := st.Ingest(ctx, sampleMessages())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	_, err = st.ReadPayload(ctx, sessionID, 999)
	if err == nil {
		t.Fatal("expected error for unknown row")
	}
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Kind != apperr.KindRowNotFound {
		t.Errorf("expected KindRowNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	sessionID, _, err := st.Ingest(ctx, sampleMessages())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if err := st.Delete(ctx, sessionID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	exists, err := st.Exists(ctx, sessionID)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected session to no longer exist after delete")
	}

	if _, err := st.ReadMeta(ctx, sessionID); err == nil {
		t.Error("expected ReadMeta to fail after delete")
	}
}

func TestStore_Ingest_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	bad := []parser.ParsedMessage{
		{TsISO: "not-a-timestamp", Dir: "H->E", BodyJSON: `{}`},
	}
	_, _, err := st.Ingest(ctx, bad)
	if err == nil {
		t.Fatal("expected Ingest to fail on invalid timestamp")
	}

	ids, err := st.ListSessionIDs(ctx)
	if err != nil {
		t.Fatalf("ListSessionIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected the failed session's directory to be rolled back, found %v", ids)
	}
}

func messagesOfLen(n int) []parser.ParsedMessage {
	msgs := make([]parser.ParsedMessage, n)
	for i := range msgs {
		msgs[i] = parser.ParsedMessage{
			TsISO: "2024-01-01T00:00:00Z", Dir: "H->E", S: 1, F: 13, WBit: 0, SysBytes: 1, BodyJSON: "{}",
		}
	}
	return msgs
}

func TestStore_Ingest_ChunkBoundarySplitsCleanly(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	sessionID, meta, err := st.Ingest(ctx, messagesOfLen(convert.ChunkSize))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if meta.RowCount != int64(convert.ChunkSize) {
		t.Fatalf("expected row count %d, got %d", convert.ChunkSize, meta.RowCount)
	}

	recs, err := st.ReadChunks(ctx, sessionID)
	if err != nil {
		t.Fatalf("ReadChunks failed: %v", err)
	}
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()
	if len(recs) != 1 {
		t.Fatalf("expected exactly 1 chunk at exactly ChunkSize rows, got %d", len(recs))
	}
	if recs[0].NumRows() != int64(convert.ChunkSize) {
		t.Errorf("expected %d rows in the single chunk, got %d", convert.ChunkSize, recs[0].NumRows())
	}

	if _, err := st.ReadPayload(ctx, sessionID, int64(convert.ChunkSize-1)); err != nil {
		t.Errorf("expected the last row's payload to be readable: %v", err)
	}
}

func TestStore_Ingest_OneRowPastChunkBoundaryStartsNewChunk(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	sessionID, meta, err := st.Ingest(ctx, messagesOfLen(convert.ChunkSize+1))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if meta.RowCount != int64(convert.ChunkSize+1) {
		t.Fatalf("expected row count %d, got %d", convert.ChunkSize+1, meta.RowCount)
	}

	recs, err := st.ReadChunks(ctx, sessionID)
	if err != nil {
		t.Fatalf("ReadChunks failed: %v", err)
	}
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()
	if len(recs) != 2 {
		t.Fatalf("expected the 50001st row to spill into a second chunk, got %d chunks", len(recs))
	}
	if recs[0].NumRows() != int64(convert.ChunkSize) {
		t.Errorf("expected first chunk to hold exactly %d rows, got %d", convert.ChunkSize, recs[0].NumRows())
	}
	if recs[1].NumRows() != 1 {
		t.Errorf("expected second chunk to hold the single overflow row, got %d", recs[1].NumRows())
	}
}

func TestStore_ListSessionIDs(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	id1, _, err := st.Ingest(ctx, sampleMessages())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	id2, _, err := st.Ingest(ctx, sampleMessages())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	ids, err := st.ListSessionIDs(ctx)
	if err != nil {
		t.Fatalf("ListSessionIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(ids))
	}
	found := map[string]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[id1] || !found[id2] {
		t.Errorf("expected both sessions listed, got %v", ids)
	}
}
