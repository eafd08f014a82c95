package parser

import "bytes"

// FormatHint is the result of sniffing a short prefix of an input stream.
type FormatHint int

const (
	FormatUnknown FormatHint = iota
	FormatCSV
	FormatNDJSON
	FormatJSON
)

// sniffLen is the maximum number of bytes read to make a format guess.
const sniffLen = 512

// DetectFormat guesses a format from a short prefix of the input. It never
// reads past len(sample); callers are responsible for re-feeding sample to
// whichever parser is ultimately chosen.
func DetectFormat(sample []byte) FormatHint {
	trimmed := bytes.TrimLeft(sample, " \t\r\n")
	if len(trimmed) == 0 {
		return FormatUnknown
	}

	switch trimmed[0] {
	case '[':
		return FormatJSON
	case '{':
		if looksLikeNDJSON(trimmed) {
			return FormatNDJSON
		}
		return FormatUnknown
	}

	first := firstLine(trimmed)
	if bytes.IndexByte(first, ',') >= 0 && bytes.Contains(first, []byte("body_json")) {
		return FormatCSV
	}

	return FormatUnknown
}

// looksLikeNDJSON requires a newline after the first line, with that first
// line ending in '}' (trailing spaces, tabs and '\r' ignored). The line's
// JSON is not validated here.
func looksLikeNDJSON(trimmed []byte) bool {
	nl := bytes.IndexByte(trimmed, '\n')
	if nl < 0 {
		return false
	}
	first := bytes.TrimRight(trimmed[:nl], " \t\r")
	return len(first) > 0 && first[len(first)-1] == '}'
}

func firstLine(b []byte) []byte {
	if nl := bytes.IndexByte(b, '\n'); nl >= 0 {
		return b[:nl]
	}
	return b
}
