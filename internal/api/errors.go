package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/secstrace/tracecore/internal/apperr"
)

// statusForKind maps an apperr.Kind to the HTTP status spec.md's error
// propagation policy assigns it.
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindSessionNotFound, apperr.KindRowNotFound:
		return fiber.StatusNotFound
	case apperr.KindBadRequest,
		apperr.KindParseJSON,
		apperr.KindParseCSV,
		apperr.KindInvalidTimestamp,
		apperr.KindInvalidDirection,
		apperr.KindMissingBodyJSON,
		apperr.KindUnknownFormat:
		return fiber.StatusBadRequest
	case apperr.KindIO:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError maps err to a status code and JSON body, logging server-side
// (5xx) failures and letting expected 4xx responses pass quietly.
func writeError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status := statusForKind(appErr.Kind)
		if status >= fiber.StatusInternalServerError {
			logger.Error().Err(err).Str("kind", string(appErr.Kind)).Msg("request failed")
		}
		return c.Status(status).JSON(fiber.Map{
			"error": appErr.Error(),
			"kind":  string(appErr.Kind),
		})
	}

	logger.Error().Err(err).Msg("request failed with unclassified error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}
