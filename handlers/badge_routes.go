// handlers/badge_routes.go
package handlers

import (
	"mission-rewards-system/middleware"
	"mission-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBadgeRoutes(app *fiber.App, badgeService *services.BadgeService, finalizer services.Finalizer) {
	app.Get("/badges", func(c *fiber.Ctx) error {
		badges, err := badgeService.ListCatalog(c.UserContext())
		if err != nil {
			return respondError(c, "failed to list badges", err)
		}
		return c.JSON(badges)
	})

	admin := app.Group("/s/admin/badges", middleware.RequireRole(middleware.RoleAdmin))

	// multipart: name, description, rarity, icon (optional file)
	admin.Post("/", func(c *fiber.Ctx) error {
		icon, err := c.FormFile("icon")
		if err != nil {
			icon = nil
		}
		badge, err := badgeService.CreateBadgeType(c.UserContext(), c.FormValue("name"), c.FormValue("description"), c.FormValue("rarity"), icon)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to create badge", "cause": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(badge)
	})

	admin.Post("/retroactive", func(c *fiber.Ctx) error {
		res, err := finalizer.RetroactivelyAwardBadges(c.UserContext())
		if err != nil {
			return respondError(c, "retroactive badge award failed", err)
		}
		return c.JSON(res)
	})
}
