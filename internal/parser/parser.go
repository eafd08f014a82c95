// Package parser converts uploaded HSMS/SECS trace files, in one of
// several textual formats, into a slice of ParsedMessage values. Parsers
// are stateless and safe for concurrent reuse across requests.
package parser

import "io"

// ParsedMessage is one trace message exactly as read from the input file,
// before timestamp/direction normalization. VID and RPTID are 0 when the
// input format or record omits them.
type ParsedMessage struct {
	TsISO    string
	Dir      string
	S        uint8
	F        uint8
	WBit     uint8
	SysBytes uint32
	CEID     uint32
	VID      uint32
	RPTID    uint32
	BodyJSON string
}

// Parser is the capability contract implemented by each supported input
// format. Implementations must not retain the reader after Parse returns.
type Parser interface {
	// Name identifies the parser for parse-by-name dispatch (e.g. "ndjson").
	Name() string

	// Extensions lists the file extensions (without a leading dot) this
	// parser is the default choice for.
	Extensions() []string

	// CanParse reports whether prefix, a sample of up to 512 bytes taken
	// from the start of the input, looks like this parser's format.
	CanParse(prefix []byte) bool

	// Parse consumes r to EOF and returns every message it contains, in
	// input order. A malformed record fails the whole parse.
	Parse(r io.Reader) ([]ParsedMessage, error)
}
