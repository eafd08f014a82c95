package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestUint8Slice_JSONRoundTrip(t *testing.T) {
	s := Uint8Slice{1, 2, 255}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != "[1,2,255]" {
		t.Errorf("expected number array, got %s", data)
	}

	var got Uint8Slice
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("got %v, want %v", got, s)
	}
}

func TestSessionMeta_JSONRoundTrip(t *testing.T) {
	meta := SessionMeta{
		RowCount:      10,
		TMinNS:        100,
		TMaxNS:        900,
		DistinctS:     Uint8Slice{1, 2},
		DistinctF:     Uint8Slice{13, 14},
		DistinctCEID:  []uint32{1000, 2000},
		DistinctVID:   []uint32{5},
		DistinctRPTID: []uint32{},
	}
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got SessionMeta
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.RowCount != meta.RowCount || got.TMinNS != meta.TMinNS || got.TMaxNS != meta.TMaxNS {
		t.Errorf("bounds mismatch: got %+v", got)
	}
	if !reflect.DeepEqual(got.DistinctCEID, meta.DistinctCEID) {
		t.Errorf("distinct_ceid mismatch: got %v, want %v", got.DistinctCEID, meta.DistinctCEID)
	}
}
