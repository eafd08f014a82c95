package api

import (
	"bufio"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/secstrace/tracecore/internal/apperr"
	"github.com/secstrace/tracecore/internal/metrics"
	"github.com/secstrace/tracecore/internal/parser"
	"github.com/secstrace/tracecore/internal/query"
	"github.com/secstrace/tracecore/internal/store"
	"github.com/secstrace/tracecore/pkg/models"
)

// sessionHandlers implements the session-scoped endpoints: create, meta,
// windowed messages, filtered search, payload lookup, and delete.
type sessionHandlers struct {
	store    *store.Store
	registry *parser.Registry
	logger   zerolog.Logger
}

// createSession accepts a multipart upload (field "file"), picks its
// format from the file name's extension (sniffing the content when the
// extension is not recognized), parses and ingests it into a brand new
// session.
func (h *sessionHandlers) createSession(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, h.logger, apperr.BadRequest("missing multipart field \"file\""))
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, h.logger, apperr.Wrap(apperr.KindIO, "failed opening uploaded file", err))
	}
	defer f.Close()

	msgs, err := h.registry.ParseWithHint(f, fh.Filename)
	if err != nil {
		metrics.Get().IncIngestErrors()
		return writeError(c, h.logger, err)
	}

	sessionID, meta, err := h.store.Ingest(c.Context(), msgs)
	if err != nil {
		metrics.Get().IncIngestErrors()
		return writeError(c, h.logger, err)
	}

	metrics.Get().IncIngestRecords(meta.RowCount)
	metrics.Get().IncIngestBytes(fh.Size)
	metrics.Get().IncSessionsCreated()

	return c.JSON(models.CreateSessionResponse{SessionID: sessionID})
}

func (h *sessionHandlers) getMeta(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	meta, err := h.store.ReadMeta(c.Context(), sessionID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(meta)
}

// getMessages backs GET /sessions/{id}/messages.arrow?from_ns=&to_ns=&limit=&cursor=.
func (h *sessionHandlers) getMessages(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	tf := models.TimeFilter{
		FromNS: queryInt64(c, "from_ns", 0),
		ToNS:   queryInt64(c, "to_ns", 0),
	}
	cursor := queryInt64(c, "cursor", 0)
	limit := queryInt64(c, "limit", query.DefaultLimit)

	metrics.Get().IncQueryRequests()
	result, err := query.Messages(c.Context(), h.store, sessionID, tf, cursor, limit)
	if err != nil {
		metrics.Get().IncQueryErrors()
		return writeError(c, h.logger, err)
	}
	metrics.Get().IncQuerySuccess()
	metrics.Get().IncQueryRows(int64(len(result.Rows)))

	c.Set("Content-Type", "application/vnd.apache.arrow.stream")
	c.Set("X-Next-Cursor", strconv.FormatInt(result.NextCursor, 10))
	c.Set("X-Has-More", strconv.FormatBool(result.HasMore))

	return streamArrow(c, result)
}

// search backs POST /sessions/{id}/search.
func (h *sessionHandlers) search(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var req models.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, h.logger, apperr.Wrap(apperr.KindBadRequest, "invalid search request body", err))
	}

	metrics.Get().IncQueryRequests()
	result, err := query.Search(c.Context(), h.store, sessionID, req)
	if err != nil {
		metrics.Get().IncQueryErrors()
		return writeError(c, h.logger, err)
	}
	metrics.Get().IncQuerySuccess()
	metrics.Get().IncQueryRows(int64(len(result.Rows)))

	c.Set("Content-Type", "application/vnd.apache.arrow.stream")
	c.Set("X-Next-Cursor", strconv.FormatInt(result.NextCursor, 10))
	c.Set("X-Has-More", strconv.FormatBool(result.HasMore))

	return streamArrow(c, result)
}

func (h *sessionHandlers) getPayload(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	rowID, err := strconv.ParseInt(c.Params("row_id"), 10, 64)
	if err != nil {
		return writeError(c, h.logger, apperr.BadRequest("row_id must be an integer"))
	}

	body, err := h.store.ReadPayload(c.Context(), sessionID, rowID)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	c.Set("Content-Type", "application/json")
	return c.Send(body)
}

func (h *sessionHandlers) deleteSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if err := h.store.Delete(c.Context(), sessionID); err != nil {
		return writeError(c, h.logger, err)
	}
	metrics.Get().IncSessionsDeleted()
	return c.SendStatus(fiber.StatusNoContent)
}

func streamArrow(c *fiber.Ctx, result query.Result) error {
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		_ = query.StreamRows(w, result.Rows, result.Highlight, result.Unanswered)
	})
	return nil
}

func queryInt64(c *fiber.Ctx, key string, def int64) int64 {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
