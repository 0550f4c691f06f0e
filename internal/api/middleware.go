package api

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/medicinett/internal/errors"
)

// statusForCode maps application error codes onto HTTP statuses
func statusForCode(code string) int {
	switch code {
	case apperrors.ErrMedicineNotFound.Code:
		return fiber.StatusNotFound
	case apperrors.ErrAlreadyTaken.Code,
		apperrors.ErrValidation.Code,
		apperrors.ErrNoReportData.Code,
		apperrors.ErrBadRequest.Code:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError renders err as the JSON error envelope. Unexpected errors are
// logged and reported as a generic 500 so internals never leak to clients.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if !stderrors.As(err, &appErr) {
		s.logger.Error("Unhandled API error",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}

	status := statusForCode(appErr.Code)
	if status == fiber.StatusInternalServerError {
		s.logger.Error("API request failed",
			zap.String("path", c.Path()),
			zap.String("code", appErr.Code),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}
