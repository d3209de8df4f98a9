// handlers/rpc_routes.go
package handlers

import (
	"log"

	"mission-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupRPCRoutes exposes the local finalizer with the same wire format RPCFinalizer
// speaks, so other services can finalize without database access.
//
// Callers are trusted: holding the gateway service token is enough to decide at the
// admin stage. The admin role check lives only in the moderation decision route;
// advertiser ownership is still enforced by the finalizer.
func SetupRPCRoutes(app *fiber.App, finalizer services.Finalizer) {
	rpc := app.Group("/rpc")

	rpc.Post("/finalize_submission", func(c *fiber.Ctx) error {
		var p services.FinalizeParams
		if err := c.BodyParser(&p); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid JSON: " + err.Error()})
		}
		res, err := finalizer.FinalizeSubmission(c.UserContext(), p)
		if err != nil {
			if services.IsBusinessRuleError(err) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
			}
			log.Printf("❌ [RPC] finalize_submission failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
		return c.JSON(res)
	})

	rpc.Post("/retroactively_award_badges", func(c *fiber.Ctx) error {
		res, err := finalizer.RetroactivelyAwardBadges(c.UserContext())
		if err != nil {
			log.Printf("❌ [RPC] retroactively_award_badges failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
		return c.JSON(res)
	})
}
