// Package store implements the on-disk session store: session creation,
// atomic single-pass ingest, and read/delete of a session's chunks,
// payloads and metadata.
package store

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/secstrace/tracecore/internal/apperr"
	"github.com/secstrace/tracecore/internal/convert"
	"github.com/secstrace/tracecore/internal/parser"
	"github.com/secstrace/tracecore/internal/storage"
	"github.com/secstrace/tracecore/pkg/models"
)

// Store manages session directories under a storage.Backend's root.
type Store struct {
	backend storage.Backend
	logger  zerolog.Logger
}

// New returns a session store backed by backend.
func New(backend storage.Backend, logger zerolog.Logger) *Store {
	return &Store{backend: backend, logger: logger.With().Str("component", "session-store").Logger()}
}

func sessionDir(id string) string    { return id }
func chunksDir(id string) string     { return path.Join(id, "chunks") }
func payloadsDir(id string) string   { return path.Join(id, "payloads") }
func metaPath(id string) string      { return path.Join(id, "meta.json") }
func chunkPath(id string, idx int) string {
	return path.Join(chunksDir(id), fmt.Sprintf("%06d.arrow", idx))
}
func payloadPath(id string, rowID int64) string {
	return path.Join(payloadsDir(id), fmt.Sprintf("%d.mp", rowID))
}

// NewSessionID mints an opaque session identifier.
func NewSessionID() string { return uuid.NewString() }

// Ingest parses messages already extracted from an uploaded file into a
// brand new session: writes each 50,000-row chunk, each row's cold
// payload, and finally meta.json as the publish signal. On any failure the
// partially written session directory is removed before the error is
// returned, so a reader never observes a session missing its meta.json
// except transiently mid-ingest.
func (s *Store) Ingest(ctx context.Context, msgs []parser.ParsedMessage) (sessionID string, meta models.SessionMeta, err error) {
	sessionID = NewSessionID()

	meta, err = s.ingestInto(ctx, sessionID, msgs)
	if err != nil {
		if rmErr := s.backend.(storage.DirectoryRemover).RemoveDirectory(ctx, sessionDir(sessionID)); rmErr != nil {
			s.logger.Warn().Err(rmErr).Str("session_id", sessionID).Msg("failed to roll back partial session")
		}
		return "", models.SessionMeta{}, err
	}
	return sessionID, meta, nil
}

func (s *Store) ingestInto(ctx context.Context, sessionID string, msgs []parser.ParsedMessage) (models.SessionMeta, error) {
	builder := convert.NewBuilder()
	defer builder.Release()
	collector := convert.NewMetaCollector()

	chunkIdx := 0
	var rowID int64

	flush := func() error {
		if builder.Len() == 0 {
			return nil
		}
		rec := builder.Build()
		defer rec.Release()

		data, err := convert.EncodeChunk(rec)
		if err != nil {
			return err
		}
		if err := s.backend.Write(ctx, chunkPath(sessionID, chunkIdx), data); err != nil {
			return apperr.Wrap(apperr.KindIO, "failed writing chunk", err)
		}
		chunkIdx++
		return nil
	}

	for _, msg := range msgs {
		row, err := convert.FromParsed(msg, rowID)
		if err != nil {
			return models.SessionMeta{}, err
		}

		payload, err := models.EncodePayload([]byte(row.BodyJSON))
		if err != nil {
			return models.SessionMeta{}, apperr.Wrap(apperr.KindIO, "failed encoding payload", err)
		}
		if err := s.backend.Write(ctx, payloadPath(sessionID, rowID), payload); err != nil {
			return models.SessionMeta{}, apperr.Wrap(apperr.KindIO, "failed writing payload", err)
		}

		builder.Push(row, uint32(rowID))
		collector.Update(row)
		rowID++

		if builder.Len() >= convert.ChunkSize {
			if err := flush(); err != nil {
				return models.SessionMeta{}, err
			}
		}
	}
	if err := flush(); err != nil {
		return models.SessionMeta{}, err
	}

	meta := collector.Into()
	data, err := marshalMeta(meta)
	if err != nil {
		return models.SessionMeta{}, err
	}
	if err := s.backend.Write(ctx, metaPath(sessionID), data); err != nil {
		return models.SessionMeta{}, apperr.Wrap(apperr.KindIO, "failed writing session metadata", err)
	}

	return meta, nil
}

// ReadMeta loads a session's meta.json.
func (s *Store) ReadMeta(ctx context.Context, sessionID string) (models.SessionMeta, error) {
	data, err := s.backend.Read(ctx, metaPath(sessionID))
	if err != nil {
		return models.SessionMeta{}, apperr.SessionNotFound(sessionID)
	}
	return unmarshalMeta(data)
}

// ReadChunks loads and decodes every chunk in ordinal (lexical) order.
// The caller owns the returned records and must Release each one.
func (s *Store) ReadChunks(ctx context.Context, sessionID string) ([]arrow.Record, error) {
	if _, err := s.ReadMeta(ctx, sessionID); err != nil {
		return nil, err
	}

	paths, err := s.backend.List(ctx, chunksDir(sessionID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIO, "failed listing chunks", err)
	}
	sort.Strings(paths)

	var out []arrow.Record
	for _, p := range paths {
		data, err := s.backend.Read(ctx, p)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindIO, "failed reading chunk", err)
		}
		recs, err := convert.DecodeChunk(data)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// ReadPayload loads and decodes the cold body_json payload for one row.
func (s *Store) ReadPayload(ctx context.Context, sessionID string, rowID int64) ([]byte, error) {
	if _, err := s.ReadMeta(ctx, sessionID); err != nil {
		return nil, err
	}
	data, err := s.backend.Read(ctx, payloadPath(sessionID, rowID))
	if err != nil {
		return nil, apperr.RowNotFound(rowID)
	}
	return models.DecodePayload(data)
}

// Delete removes a session. meta.json is deleted first so a concurrent
// reader immediately sees the session as gone, then payloads and chunks,
// then the (now empty) session directory itself.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.backend.Delete(ctx, metaPath(sessionID)); err != nil {
		return apperr.Wrap(apperr.KindIO, "failed deleting session metadata", err)
	}

	remover, ok := s.backend.(storage.DirectoryRemover)
	if !ok {
		return apperr.New(apperr.KindIO, "storage backend does not support directory removal")
	}
	if err := remover.RemoveDirectory(ctx, payloadsDir(sessionID)); err != nil {
		return apperr.Wrap(apperr.KindIO, "failed deleting session payloads", err)
	}
	if err := remover.RemoveDirectory(ctx, chunksDir(sessionID)); err != nil {
		return apperr.Wrap(apperr.KindIO, "failed deleting session chunks", err)
	}
	if err := remover.RemoveDirectory(ctx, sessionDir(sessionID)); err != nil {
		return apperr.Wrap(apperr.KindIO, "failed deleting session directory", err)
	}
	return nil
}

// ListSessionIDs enumerates every session directory, including ones whose
// meta.json has not yet been published.
func (s *Store) ListSessionIDs(ctx context.Context) ([]string, error) {
	lister, ok := s.backend.(storage.DirectoryLister)
	if !ok {
		return nil, apperr.New(apperr.KindIO, "storage backend does not support directory listing")
	}
	return lister.ListDirectories(ctx, "")
}

// Exists reports whether a session has a published meta.json.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	return s.backend.Exists(ctx, metaPath(sessionID))
}
