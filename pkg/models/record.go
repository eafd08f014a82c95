// Package models holds the neutral message record types shared by the
// converter, session store, query, and API packages.
package models

import (
	"encoding/json"
)

// Uint8Slice is []uint8 with number-array JSON encoding. Plain []uint8 is
// indistinguishable from []byte to encoding/json and would otherwise be
// base64-encoded as a string.
type Uint8Slice []uint8

func (s Uint8Slice) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(s))
	for i, v := range s {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

func (s *Uint8Slice) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	out := make(Uint8Slice, len(ints))
	for i, v := range ints {
		out[i] = uint8(v)
	}
	*s = out
	return nil
}

// Direction encodes which side of an HSMS/SECS link originated a message.
type Direction int8

const (
	// DirEquipToHost marks a message travelling from equipment to host ("E->H").
	DirEquipToHost Direction = -1
	// DirHostToEquip marks a message travelling from host to equipment ("H->E").
	DirHostToEquip Direction = 1
)

// Record is a single parsed HSMS/SECS trace message, in the neutral
// pre-column form that convert.FromParsed makes from a parser's
// ParsedMessage and that the converter's Builder and MetaCollector consume.
type Record struct {
	TsNS      int64
	Dir       Direction
	S         uint8
	F         uint8
	WBit      uint8
	SysBytes  uint32
	CEID      uint32
	VID       uint32
	RPTID     uint32
	BodyJSON  string
}

// SessionMeta summarizes a session's hot columns, written once as the last
// step of ingest and never mutated afterward.
type SessionMeta struct {
	RowCount      int64      `json:"row_count"`
	TMinNS        int64      `json:"t_min_ns"`
	TMaxNS        int64      `json:"t_max_ns"`
	DistinctS     Uint8Slice `json:"distinct_s"`
	DistinctF     Uint8Slice `json:"distinct_f"`
	DistinctCEID  []uint32   `json:"distinct_ceid"`
	DistinctVID   []uint32   `json:"distinct_vid"`
	DistinctRPTID []uint32   `json:"distinct_rptid"`
}

// CreateSessionResponse is returned from a successful session creation.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// TimeFilter restricts rows to a half-open-friendly [FromNS, ToNS] window.
// A zero value on either bound means "unbounded" on that side.
type TimeFilter struct {
	FromNS int64 `json:"from_ns,omitempty"`
	ToNS   int64 `json:"to_ns,omitempty"`
}

// SxFy is a single (stream, function) pair used by the sxfy highlight set.
type SxFy struct {
	S uint8 `json:"s"`
	F uint8 `json:"f"`
}

// FilterExpr describes a query's row-selection predicate. All fields are
// optional; an empty/zero field imposes no constraint on that dimension.
type FilterExpr struct {
	Time  TimeFilter `json:"time,omitempty"`
	Dir   int8       `json:"dir,omitempty"`
	S     Uint8Slice `json:"s,omitempty"`
	F     Uint8Slice `json:"f,omitempty"`
	CEID  []uint32   `json:"ceid,omitempty"`
	VID   []uint32   `json:"vid,omitempty"`
	RPTID []uint32   `json:"rptid,omitempty"`
	Text  string     `json:"text,omitempty"`
}

// HighlightExpr requests additional boolean marker columns be computed
// alongside a search's matched rows, without narrowing the result set.
type HighlightExpr struct {
	CEID       []uint32 `json:"ceid,omitempty"`
	VID        []uint32 `json:"vid,omitempty"`
	RPTID      []uint32 `json:"rptid,omitempty"`
	SxFy       []SxFy   `json:"sxfy,omitempty"`
	Unanswered bool     `json:"unanswered,omitempty"`
}

// SearchRequest is the decoded body of POST /sessions/{id}/search.
// FilterExpr is embedded rather than nested under a "filter" key so its
// fields (s, f, ceid, ...) sit at the request's top level alongside
// highlight, cursor, and limit.
type SearchRequest struct {
	FilterExpr
	Highlight *HighlightExpr `json:"highlight,omitempty"`
	Cursor    int64          `json:"cursor,omitempty"`
	Limit     int64          `json:"limit,omitempty"`
}
