package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/secstrace/tracecore/internal/apperr"
)

func TestJSONArrayParser_Parse(t *testing.T) {
	input := `[
		{"ts_iso":"2024-01-01T00:00:00.000Z","dir":"H->E","s":1,"f":13,"wbit":1,"sysbytes":42,"ceid":0,"body_json":"{\"foo\":1}"},
		{"ts_iso":"2024-01-01T00:00:00.010Z","dir":"E->H","s":1,"f":14,"wbit":0,"sysbytes":42,"ceid":0,"rptid":9,"body_json":"{\"bar\":2}"}
	]`
	msgs, err := NewJSONArrayParser().Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].RPTID != 9 {
		t.Errorf("expected rptid=9, got %d", msgs[1].RPTID)
	}
}

func TestJSONArrayParser_MissingBodyJSONReportsElement(t *testing.T) {
	// The second element (0-based index 1) is the offending one.
	input := `[
		{"ts_iso":"2024-01-01T00:00:00Z","dir":"H->E","body_json":"{}"},
		{"ts_iso":"2024-01-01T00:00:01Z","dir":"H->E"}
	]`
	_, err := NewJSONArrayParser().Parse(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for missing body_json")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	if appErr.Element != 1 {
		t.Errorf("expected 0-based element index 1, got %d", appErr.Element)
	}
	if !strings.Contains(appErr.Error(), "(element 1)") {
		t.Errorf("expected error message to cite element 1, got %q", appErr.Error())
	}
}

func TestJSONArrayParser_MissingBodyJSONAtFirstElement(t *testing.T) {
	input := `[{"ts_iso":"2024-01-01T00:00:00Z","dir":"H->E"}]`
	_, err := NewJSONArrayParser().Parse(strings.NewReader(input))
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	if appErr.Element != 0 {
		t.Errorf("expected 0-based element index 0, got %d", appErr.Element)
	}
	if !strings.Contains(appErr.Error(), "(element 0)") {
		t.Errorf("expected error message to cite element 0, got %q", appErr.Error())
	}
}

func TestJSONArrayParser_NotAnArray(t *testing.T) {
	_, err := NewJSONArrayParser().Parse(strings.NewReader(`{"not":"an array"}`))
	if err == nil {
		t.Fatal("expected error")
	}
}
