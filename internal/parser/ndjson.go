package parser

import (
	"bufio"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/secstrace/tracecore/internal/apperr"
)

// NDJSONParser reads newline-delimited JSON, one message object per line:
//
//	{"ts_iso":"2024-01-01T00:00:00.000Z","dir":"H->E","s":1,"f":13,"wbit":1,"sysbytes":42,"ceid":0,"body_json":"{...}"}
//	{"ts_iso":"2024-01-01T00:00:00.010Z","dir":"E->H","s":1,"f":14,"wbit":0,"sysbytes":42,"ceid":0,"body_json":"{...}"}
//
// Blank lines are skipped. NDJSONParser is stateless and safe for
// concurrent reuse.
type NDJSONParser struct{}

// NewNDJSONParser returns a ready-to-use NDJSON parser.
func NewNDJSONParser() *NDJSONParser { return &NDJSONParser{} }

func (p *NDJSONParser) Name() string          { return "ndjson" }
func (p *NDJSONParser) Extensions() []string  { return []string{"ndjson", "jsonl"} }

func (p *NDJSONParser) CanParse(prefix []byte) bool {
	return DetectFormat(prefix) == FormatNDJSON
}

type ndjsonLine struct {
	TsISO    string          `json:"ts_iso"`
	Dir      string          `json:"dir"`
	S        flexUint8       `json:"s"`
	F        flexUint8       `json:"f"`
	WBit     flexUint8       `json:"wbit"`
	SysBytes flexUint32      `json:"sysbytes"`
	CEID     flexUint32      `json:"ceid"`
	VID      flexUint32      `json:"vid"`
	RPTID    flexUint32      `json:"rptid"`
	BodyJSON json.RawMessage `json:"body_json"`
}

// flexUint8 and flexUint32 decode a JSON number or a numeric string into an
// unsigned integer, matching the wire formats NDJSON and JSON-array inputs
// are both allowed to use for s/f/wbit/sysbytes/ceid/vid/rptid.
type flexUint8 uint8

func (v *flexUint8) UnmarshalJSON(data []byte) error {
	n, err := parseFlexUint(data, 8)
	if err != nil {
		return err
	}
	*v = flexUint8(n)
	return nil
}

type flexUint32 uint32

func (v *flexUint32) UnmarshalJSON(data []byte) error {
	n, err := parseFlexUint(data, 32)
	if err != nil {
		return err
	}
	*v = flexUint32(n)
	return nil
}

func parseFlexUint(data []byte, bits int) (uint64, error) {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, bits)
}

// Parse implements Parser.
func (p *NDJSONParser) Parse(r io.Reader) ([]ParsedMessage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var out []ParsedMessage
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(bytesTrimSpace(line)) == 0 {
			continue
		}

		var rec ndjsonLine
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, apperr.Wrap(apperr.KindParseJSON, "invalid NDJSON record", err).WithLine(lineNo)
		}
		if rec.BodyJSON == nil {
			return nil, apperr.New(apperr.KindMissingBodyJSON, "record is missing body_json").WithLine(lineNo)
		}

		out = append(out, ParsedMessage{
			TsISO:    rec.TsISO,
			Dir:      rec.Dir,
			S:        uint8(rec.S),
			F:        uint8(rec.F),
			WBit:     uint8(rec.WBit),
			SysBytes: uint32(rec.SysBytes),
			CEID:     uint32(rec.CEID),
			VID:      uint32(rec.VID),
			RPTID:    uint32(rec.RPTID),
			BodyJSON: string(rec.BodyJSON),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindIO, "failed reading NDJSON input", err)
	}
	return out, nil
}

func bytesTrimSpace(b []byte) []byte {
	i, j := 0, len(b)
	for i < j && isSpace(b[i]) {
		i++
	}
	for j > i && isSpace(b[j-1]) {
		j--
	}
	return b[i:j]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
