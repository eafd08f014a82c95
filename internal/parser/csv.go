package parser

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/secstrace/tracecore/internal/apperr"
)

// CSVParser reads a header-driven CSV of message rows:
//
//	ts_iso,dir,s,f,wbit,sysbytes,ceid,vid,rptid,body_json
//	2024-01-01T00:00:00.000Z,H->E,1,13,1,42,0,0,0,"{""foo"":1}"
//
// vid and rptid columns are optional; their absence from the header is not
// an error and every row is treated as vid=0/rptid=0. CSVParser is
// stateless and safe for concurrent reuse.
type CSVParser struct{}

// NewCSVParser returns a ready-to-use CSV parser.
func NewCSVParser() *CSVParser { return &CSVParser{} }

func (p *CSVParser) Name() string         { return "csv" }
func (p *CSVParser) Extensions() []string { return []string{"csv"} }

func (p *CSVParser) CanParse(prefix []byte) bool {
	return DetectFormat(prefix) == FormatCSV
}

var requiredCSVColumns = []string{"ts_iso", "dir", "s", "f", "wbit", "sysbytes", "ceid", "body_json"}

// Parse implements Parser.
func (p *CSVParser) Parse(r io.Reader) ([]ParsedMessage, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindParseCSV, "failed reading CSV header", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, want := range requiredCSVColumns {
		if _, ok := col[want]; !ok {
			return nil, apperr.New(apperr.KindParseCSV, "missing required CSV column: "+want)
		}
	}

	var out []ParsedMessage
	lineNo := 1
	for {
		lineNo++
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.KindParseCSV, "malformed CSV row", err).WithLine(lineNo)
		}

		msg := ParsedMessage{
			TsISO: row[col["ts_iso"]],
			Dir:   row[col["dir"]],
		}
		if msg.S, err = parseUint8(row[col["s"]]); err != nil {
			return nil, apperr.Wrap(apperr.KindParseCSV, "invalid s column", err).WithLine(lineNo)
		}
		if msg.F, err = parseUint8(row[col["f"]]); err != nil {
			return nil, apperr.Wrap(apperr.KindParseCSV, "invalid f column", err).WithLine(lineNo)
		}
		if msg.WBit, err = parseUint8(row[col["wbit"]]); err != nil {
			return nil, apperr.Wrap(apperr.KindParseCSV, "invalid wbit column", err).WithLine(lineNo)
		}
		if msg.SysBytes, err = parseUint32(row[col["sysbytes"]]); err != nil {
			return nil, apperr.Wrap(apperr.KindParseCSV, "invalid sysbytes column", err).WithLine(lineNo)
		}
		if msg.CEID, err = parseUint32(row[col["ceid"]]); err != nil {
			return nil, apperr.Wrap(apperr.KindParseCSV, "invalid ceid column", err).WithLine(lineNo)
		}
		if idx, ok := col["vid"]; ok {
			if msg.VID, err = parseUint32(row[idx]); err != nil {
				return nil, apperr.Wrap(apperr.KindParseCSV, "invalid vid column", err).WithLine(lineNo)
			}
		}
		if idx, ok := col["rptid"]; ok {
			if msg.RPTID, err = parseUint32(row[idx]); err != nil {
				return nil, apperr.Wrap(apperr.KindParseCSV, "invalid rptid column", err).WithLine(lineNo)
			}
		}
		msg.BodyJSON = row[col["body_json"]]
		if strings.TrimSpace(msg.BodyJSON) == "" {
			return nil, apperr.New(apperr.KindMissingBodyJSON, "row is missing body_json").WithLine(lineNo)
		}

		out = append(out, msg)
	}
	return out, nil
}

func parseUint8(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	return uint8(v), err
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	return uint32(v), err
}
