// Package convert turns parsed trace messages into the session store's
// columnar hot projection: an Arrow schema, a row builder that chunks
// output at a fixed size, and a running metadata collector.
package convert

import (
	"fmt"
	"time"

	"github.com/secstrace/tracecore/internal/apperr"
	"github.com/secstrace/tracecore/internal/parser"
	"github.com/secstrace/tracecore/pkg/models"
)

// isoNoZoneLayout matches an ISO-8601 instant with no timezone designator
// (fractional seconds optional), which NormalizeTimestamp treats as UTC.
const isoNoZoneLayout = "2006-01-02T15:04:05.999999999"

// NormalizeTimestamp parses an ISO-8601 timestamp (fractional seconds
// optional) into nanoseconds since the Unix epoch. A timezone designator
// is preferred; when absent, the timestamp is assumed to be UTC.
func NormalizeTimestamp(iso string) (int64, error) {
	if t, err := time.Parse(time.RFC3339Nano, iso); err == nil {
		return t.UnixNano(), nil
	}
	if t, err := time.ParseInLocation(isoNoZoneLayout, iso, time.UTC); err == nil {
		return t.UnixNano(), nil
	}
	return 0, apperr.Wrap(apperr.KindInvalidTimestamp, "invalid ts_iso", fmt.Errorf("not a recognized ISO-8601 instant: %q", iso))
}

// NormalizeDirection maps the wire direction token to its columnar value.
func NormalizeDirection(dir string) (models.Direction, error) {
	switch dir {
	case "H->E":
		return models.DirHostToEquip, nil
	case "E->H":
		return models.DirEquipToHost, nil
	default:
		return 0, apperr.New(apperr.KindInvalidDirection, "invalid dir: "+dir)
	}
}

// FromParsed converts one parsed message into its columnar row form.
// rowID is the dense, zero-based row index assigned by the converter.
func FromParsed(msg parser.ParsedMessage, rowID int64) (models.Record, error) {
	tsNS, err := NormalizeTimestamp(msg.TsISO)
	if err != nil {
		return models.Record{}, err.(*apperr.Error).WithRow(rowID)
	}
	dir, err := NormalizeDirection(msg.Dir)
	if err != nil {
		return models.Record{}, err.(*apperr.Error).WithRow(rowID)
	}
	if msg.BodyJSON == "" {
		return models.Record{}, apperr.New(apperr.KindMissingBodyJSON, "message is missing body_json").WithRow(rowID)
	}

	return models.Record{
		TsNS:     tsNS,
		Dir:      dir,
		S:        msg.S,
		F:        msg.F,
		WBit:     msg.WBit,
		SysBytes: msg.SysBytes,
		CEID:     msg.CEID,
		VID:      msg.VID,
		RPTID:    msg.RPTID,
		BodyJSON: msg.BodyJSON,
	}, nil
}
