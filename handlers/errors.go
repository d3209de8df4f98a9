// handlers/errors.go
package handlers

import (
	"errors"
	"log"

	"mission-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrSubmissionNotFound),
		errors.Is(err, services.ErrMissionNotFound),
		errors.Is(err, services.ErrBadgeNotFound),
		errors.Is(err, services.ErrRaffleNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrNotMissionOwner),
		errors.Is(err, services.ErrUnauthorizedApprover):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrInvalidMission),
		errors.Is(err, services.ErrInvalidPayload),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidRaffle),
		errors.Is(err, services.ErrInvalidStage),
		errors.Is(err, services.ErrInvalidDecision):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrMissionNotOpen),
		errors.Is(err, services.ErrRaffleClosed),
		errors.Is(err, services.ErrInsufficientRifas),
		errors.Is(err, services.ErrStageMismatch),
		errors.Is(err, services.ErrSubmissionTerminal),
		errors.Is(err, services.ErrStageNotConfigured):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// respondError writes {"error", "cause"} with the status matching err.
func respondError(c *fiber.Ctx, msg string, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [HTTP] %s %s: %s: %v", c.Method(), c.Path(), msg, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}
