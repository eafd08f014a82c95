package parser

import (
	"strings"
	"testing"
)

func TestCSVParser_Parse(t *testing.T) {
	input := "ts_iso,dir,s,f,wbit,sysbytes,ceid,vid,rptid,body_json\n" +
		"2024-01-01T00:00:00.000Z,H->E,1,13,1,42,0,5,0,\"{\"\"foo\"\":1}\"\n"
	msgs, err := NewCSVParser().Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].VID != 5 {
		t.Errorf("expected vid=5, got %d", msgs[0].VID)
	}
}

func TestCSVParser_OptionalColumnsAbsent(t *testing.T) {
	input := "ts_iso,dir,s,f,wbit,sysbytes,ceid,body_json\n" +
		"2024-01-01T00:00:00.000Z,H->E,1,13,1,42,0,\"{}\"\n"
	msgs, err := NewCSVParser().Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgs[0].VID != 0 || msgs[0].RPTID != 0 {
		t.Errorf("expected vid/rptid to default to 0, got %+v", msgs[0])
	}
}

func TestCSVParser_MissingRequiredColumn(t *testing.T) {
	input := "ts_iso,dir,s,f,wbit,sysbytes,body_json\n"
	_, err := NewCSVParser().Parse(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for missing ceid column")
	}
}

func TestCSVParser_InvalidNumericField(t *testing.T) {
	input := "ts_iso,dir,s,f,wbit,sysbytes,ceid,body_json\n" +
		"2024-01-01T00:00:00.000Z,H->E,notanumber,13,1,42,0,\"{}\"\n"
	_, err := NewCSVParser().Parse(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for invalid s column")
	}
}

func TestCSVParser_MissingBodyJSON(t *testing.T) {
	input := "ts_iso,dir,s,f,wbit,sysbytes,ceid,body_json\n" +
		"2024-01-01T00:00:00.000Z,H->E,1,13,1,42,0,\n"
	_, err := NewCSVParser().Parse(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for missing body_json")
	}
}

func TestCSVParser_EmptyInput(t *testing.T) {
	msgs, err := NewCSVParser().Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgs != nil {
		t.Errorf("expected nil messages for empty input, got %v", msgs)
	}
}
