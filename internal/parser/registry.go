package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/secstrace/tracecore/internal/apperr"
)

// Registry dispatches an input stream to the right Parser, either by file
// extension or by sniffing a short prefix of the stream.
type Registry struct {
	parsers []Parser
}

// AllParsers is the single place a new format gets registered. Adding a
// format means adding one entry to this list.
func AllParsers() []Parser {
	return []Parser{
		NewNDJSONParser(),
		NewJSONArrayParser(),
		NewCSVParser(),
	}
}

// NewRegistry builds a registry from AllParsers.
func NewRegistry() *Registry {
	return &Registry{parsers: AllParsers()}
}

// Register adds an additional parser to the registry.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// ParserByName returns the parser with the given Name(), if registered.
func (r *Registry) ParserByName(name string) (Parser, bool) {
	for _, p := range r.parsers {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// parserByExtension returns the parser that claims ext (without the dot),
// case-insensitively.
func (r *Registry) parserByExtension(ext string) (Parser, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, p := range r.parsers {
		for _, e := range p.Extensions() {
			if e == ext {
				return p, true
			}
		}
	}
	return nil, false
}

// combinedReader re-feeds a sniffed prefix ahead of the remainder of the
// original stream, so parsers see the input from the beginning even
// though the registry already consumed a sample from it.
type combinedReader struct {
	prefix *bytes.Reader
	rest   io.Reader
}

func (c *combinedReader) Read(p []byte) (int, error) {
	if c.prefix.Len() > 0 {
		return c.prefix.Read(p)
	}
	return c.rest.Read(p)
}

// ParseAuto reads a sample of the stream, guesses its format, and parses
// it with the matching parser (falling back to trying every registered
// parser's CanParse if the guess doesn't name one directly).
func (r *Registry) ParseAuto(input io.Reader) ([]ParsedMessage, error) {
	sample := make([]byte, sniffLen)
	n, readErr := io.ReadFull(input, sample)
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		return nil, apperr.Wrap(apperr.KindIO, "failed reading input", readErr)
	}
	sample = sample[:n]

	combined := &combinedReader{prefix: bytes.NewReader(sample), rest: input}

	hint := DetectFormat(sample)
	if p := r.parserForHint(hint); p != nil {
		return p.Parse(combined)
	}

	for _, p := range r.parsers {
		if p.CanParse(sample) {
			return p.Parse(combined)
		}
	}

	return nil, apperr.New(apperr.KindUnknownFormat, "unable to detect input format")
}

func (r *Registry) parserForHint(hint FormatHint) Parser {
	var name string
	switch hint {
	case FormatNDJSON:
		name = "ndjson"
	case FormatJSON:
		name = "json"
	case FormatCSV:
		name = "csv"
	default:
		return nil
	}
	p, _ := r.ParserByName(name)
	return p
}

// ParseWithHint prefers the parser registered for filename's extension,
// falling back to ParseAuto when the extension is unknown or absent.
func (r *Registry) ParseWithHint(input io.Reader, filename string) ([]ParsedMessage, error) {
	ext := extensionOf(filename)
	if ext != "" {
		if p, ok := r.parserByExtension(ext); ok {
			return p.Parse(input)
		}
	}
	return r.ParseAuto(input)
}

func extensionOf(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return filename[idx+1:]
}
