package parser

import (
	"encoding/json"
	"io"

	"github.com/secstrace/tracecore/internal/apperr"
)

// JSONArrayParser reads a single top-level JSON array of message objects:
//
//	[
//	  {"ts_iso":"2024-01-01T00:00:00.000Z","dir":"H->E","s":1,"f":13,"wbit":1,"sysbytes":42,"ceid":0,"body_json":"{...}"},
//	  {"ts_iso":"2024-01-01T00:00:00.010Z","dir":"E->H","s":1,"f":14,"wbit":0,"sysbytes":42,"ceid":0,"body_json":"{...}"}
//	]
//
// The entire input is buffered before decoding. JSONArrayParser is
// stateless and safe for concurrent reuse.
type JSONArrayParser struct{}

// NewJSONArrayParser returns a ready-to-use JSON-array parser.
func NewJSONArrayParser() *JSONArrayParser { return &JSONArrayParser{} }

func (p *JSONArrayParser) Name() string         { return "json" }
func (p *JSONArrayParser) Extensions() []string { return []string{"json"} }

func (p *JSONArrayParser) CanParse(prefix []byte) bool {
	return DetectFormat(prefix) == FormatJSON
}

// Parse implements Parser.
func (p *JSONArrayParser) Parse(r io.Reader) ([]ParsedMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIO, "failed reading JSON input", err)
	}

	var raw []ndjsonLine
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperr.Wrap(apperr.KindParseJSON, "invalid JSON array", err)
	}

	out := make([]ParsedMessage, 0, len(raw))
	for i, rec := range raw {
		if rec.BodyJSON == nil {
			return nil, apperr.New(apperr.KindMissingBodyJSON, "element is missing body_json").WithElement(i)
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
	return out, nil
}
