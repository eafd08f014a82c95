package query

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/secstrace/tracecore/internal/parser"
	"github.com/secstrace/tracecore/internal/storage"
	"github.com/secstrace/tracecore/internal/store"
	"github.com/secstrace/tracecore/pkg/models"
)

func newTestSessionStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "tracecore-query-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	backend, err := storage.NewLocalBackend(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	st := store.New(backend, zerolog.Nop())

	msgs := []parser.ParsedMessage{
		{TsISO: "2024-01-01T00:00:00Z", Dir: "H->E", S: 1, F: 13, WBit: 1, SysBytes: 1, CEID: 10, BodyJSON: `{"needle":true}`},
		{TsISO: "2024-01-01T00:00:01Z", Dir: "E->H", S: 1, F: 14, WBit: 0, SysBytes: 1, CEID: 0, BodyJSON: `{"haystack":1}`},
		{TsISO: "2024-01-01T00:00:02Z", Dir: "H->E", S: 2, F: 1, WBit: 0, SysBytes: 2, CEID: 20, BodyJSON: `{"c":3}`},
	}
	sessionID, _, err := st.Ingest(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	return st, sessionID
}

func TestMessages_NoFilter(t *testing.T) {
	st, sessionID := newTestSessionStore(t)
	result, err := Messages(context.Background(), st, sessionID, models.TimeFilter{}, 0, 50)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Rows))
	}
	if result.HasMore {
		t.Error("expected hasMore=false")
	}
}

func TestMessages_TimeWindow(t *testing.T) {
	st, sessionID := newTestSessionStore(t)
	// 2024-01-01T00:00:01Z, the second row's timestamp.
	tf := models.TimeFilter{FromNS: 1_704_067_201_000_000_000, ToNS: 1_704_067_201_000_000_000}
	result, err := Messages(context.Background(), st, sessionID, tf, 0, 50)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row in window, got %d", len(result.Rows))
	}
}

func TestSearch_TextFilter(t *testing.T) {
	st, sessionID := newTestSessionStore(t)
	req := models.SearchRequest{FilterExpr: models.FilterExpr{Text: "needle"}}
	result, err := Search(context.Background(), st, sessionID, req)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0].RowID != 0 {
		t.Fatalf("expected row 0 only, got %v", result.Rows)
	}
}

func TestSearch_ScalarFilterNarrowsRows(t *testing.T) {
	st, sessionID := newTestSessionStore(t)
	req := models.SearchRequest{FilterExpr: models.FilterExpr{F: models.Uint8Slice{13}}}
	result, err := Search(context.Background(), st, sessionID, req)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0].RowID != 0 {
		t.Fatalf("expected row 0 only (f=13), got %v", result.Rows)
	}
}

func TestSearchRequest_JSONFlattensFilterFields(t *testing.T) {
	body := []byte(`{"s":[1],"f":[13],"highlight":{"unanswered":true}}`)
	var req models.SearchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(req.S) != 1 || req.S[0] != 1 {
		t.Fatalf("expected top-level \"s\" to populate FilterExpr.S, got %v", req.S)
	}
	if len(req.F) != 1 || req.F[0] != 13 {
		t.Fatalf("expected top-level \"f\" to populate FilterExpr.F, got %v", req.F)
	}
	if req.Highlight == nil || !req.Highlight.Unanswered {
		t.Fatal("expected highlight to decode alongside the flattened filter fields")
	}
}

func TestSearch_CEIDFilterAndHighlight(t *testing.T) {
	st, sessionID := newTestSessionStore(t)
	req := models.SearchRequest{
		Highlight: &models.HighlightExpr{CEID: []uint32{20}},
	}
	result, err := Search(context.Background(), st, sessionID, req)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("expected all 3 rows since filter is empty, got %d", len(result.Rows))
	}
	if result.Highlight == nil {
		t.Fatal("expected highlight to be carried through")
	}
}

func TestSearch_UnansweredHighlight(t *testing.T) {
	st, sessionID := newTestSessionStore(t)
	req := models.SearchRequest{
		Highlight: &models.HighlightExpr{Unanswered: true},
	}
	result, err := Search(context.Background(), st, sessionID, req)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Unanswered == nil {
		t.Fatal("expected unanswered map to be computed")
	}
	// Row 0 (s=1,f=13,wbit=1,H->E) is answered by row 1 (s=1,f=14,E->H)
	// at the same sysbytes within the correlation window.
	if result.Unanswered[0] {
		t.Error("expected row 0 to be answered by row 1")
	}
}

func TestMessages_UnknownSession(t *testing.T) {
	st, _ := newTestSessionStore(t)
	_, err := Messages(context.Background(), st, "does-not-exist", models.TimeFilter{}, 0, 50)
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
}
