package convert

import (
	"errors"
	"testing"

	"github.com/secstrace/tracecore/internal/apperr"
	"github.com/secstrace/tracecore/internal/parser"
)

func TestNormalizeTimestamp(t *testing.T) {
	ns, err := NormalizeTimestamp("2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ns != 1704067200_000000000 {
		t.Errorf("got %d", ns)
	}
}

func TestNormalizeTimestamp_NoDesignatorAssumesUTC(t *testing.T) {
	ns, err := NormalizeTimestamp("2024-01-01T00:00:00.123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ns != 1704067200_123000000 {
		t.Errorf("got %d", ns)
	}
}

func TestNormalizeTimestamp_Invalid(t *testing.T) {
	_, err := NormalizeTimestamp("not-a-timestamp")
	if err == nil {
		t.Fatal("expected error")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	if appErr.Kind != apperr.KindInvalidTimestamp {
		t.Errorf("got kind %v", appErr.Kind)
	}
}

func TestNormalizeDirection(t *testing.T) {
	cases := map[string]int8{"H->E": 1, "E->H": -1}
	for in, want := range cases {
		got, err := NormalizeDirection(in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		if int8(got) != want {
			t.Errorf("%q: got %d, want %d", in, got, want)
		}
	}
}

func TestNormalizeDirection_Invalid(t *testing.T) {
	_, err := NormalizeDirection("sideways")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestFromParsed_MissingBodyJSON(t *testing.T) {
	msg := parser.ParsedMessage{TsISO: "2024-01-01T00:00:00Z", Dir: "H->E"}
	_, err := FromParsed(msg, 5)
	if err == nil {
		t.Fatal("expected error")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	if appErr.Kind != apperr.KindMissingBodyJSON {
		t.Errorf("got kind %v", appErr.Kind)
	}
	if appErr.Row != 5 {
		t.Errorf("expected row 5 attached, got %d", appErr.Row)
	}
}

func TestFromParsed_Success(t *testing.T) {
	msg := parser.ParsedMessage{
		TsISO: "2024-01-01T00:00:00Z", Dir: "H->E",
		S: 6, F: 11, WBit: 1, SysBytes: 99, CEID: 1000, VID: 7, RPTID: 3,
		BodyJSON: `{"a":1}`,
	}
	rec, err := FromParsed(msg, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.S != 6 || rec.F != 11 || rec.VID != 7 || rec.RPTID != 3 {
		t.Errorf("unexpected record: %+v", rec)
	}
}
