// handlers/mission_routes.go
package handlers

import (
	"mission-rewards-system/middleware"
	"mission-rewards-system/models"
	"mission-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMissionRoutes(app *fiber.App, missionService *services.MissionService) {
	// 🌐 Public catalog
	app.Get("/missions", func(c *fiber.Ctx) error {
		missions, err := missionService.ListPublished(c.UserContext(), c.Query("q"), c.QueryInt("page", 1), c.QueryInt("size", 20))
		if err != nil {
			return respondError(c, "failed to list missions", err)
		}
		return c.JSON(missions)
	})

	app.Get("/missions/:id", func(c *fiber.Ctx) error {
		mission, err := missionService.GetMission(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, "failed to fetch mission", err)
		}
		return c.JSON(mission)
	})

	// 🔐 Consumers submit proofs
	app.Post("/s/missions/:id/submissions", func(c *fiber.Ctx) error {
		var body struct {
			Payload map[string]interface{} `json:"payload"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		sub, err := missionService.SubmitProof(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c), body.Payload)
		if err != nil {
			return respondError(c, "failed to submit proof", err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	// 🔐 Advertisers manage their missions. Role checks are per route: a group
	// middleware on /s/missions would also catch consumer submissions.
	advertiserOnly := middleware.RequireRole(middleware.RoleAdvertiser)

	app.Post("/s/missions", advertiserOnly, func(c *fiber.Ctx) error {
		var req services.CreateMissionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		mission, err := missionService.CreateMission(c.UserContext(), middleware.CurrentUserID(c), req)
		if err != nil {
			return respondError(c, "failed to create mission", err)
		}
		return c.Status(fiber.StatusCreated).JSON(mission)
	})

	app.Patch("/s/missions/:id/status", advertiserOnly, func(c *fiber.Ctx) error {
		var body struct {
			Status models.MissionStatus `json:"status"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		mission, err := missionService.SetMissionStatus(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c), body.Status)
		if err != nil {
			return respondError(c, "failed to update mission status", err)
		}
		return c.JSON(mission)
	})

	app.Get("/s/missions/:id/submissions", advertiserOnly, func(c *fiber.Ctx) error {
		subs, err := missionService.ListMissionSubmissions(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c))
		if err != nil {
			return respondError(c, "failed to list submissions", err)
		}
		return c.JSON(subs)
	})
}
