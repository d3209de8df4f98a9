// handlers/moderation_routes.go
package handlers

import (
	"mission-rewards-system/middleware"
	"mission-rewards-system/models"
	"mission-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

// DecisionBody is the payload of POST /s/submissions/:id/decisions.
type DecisionBody struct {
	Stage    models.ValidationStage `json:"stage"`
	Decision models.Decision        `json:"decision"`
	Feedback string                 `json:"feedback"`
}

// stageRole is the role a caller needs to act at stage.
func stageRole(stage models.ValidationStage) string {
	if stage == models.StageAdmin {
		return middleware.RoleAdmin
	}
	return middleware.RoleAdvertiser
}

func SetupModerationRoutes(
	app *fiber.App,
	missionService *services.MissionService,
	recorder *services.DecisionRecorder,
	invalidator *services.SubmissionCacheInvalidator,
) {
	app.Get("/s/submissions/queue", func(c *fiber.Ctx) error {
		stage := models.ValidationStage(c.Query("stage"))
		if !stage.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid stage", "cause": string(stage)})
		}
		if !middleware.HasRole(c, stageRole(stage)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "insufficient role"})
		}

		approverID := ""
		if stage.IsAdvertiserStage() {
			approverID = middleware.CurrentUserID(c)
		}
		items, err := missionService.ModerationQueue(c.UserContext(), stage, approverID)
		if err != nil {
			return respondError(c, "failed to load queue", err)
		}
		return c.JSON(items)
	})

	app.Get("/s/submissions/:id", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAdvertiser), func(c *fiber.Ctx) error {
		view, err := missionService.GetSubmission(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, "failed to fetch submission", err)
		}
		if !middleware.HasRole(c, middleware.RoleAdmin) && view.Mission.AdvertiserID != middleware.CurrentUserID(c) {
			return respondError(c, "failed to fetch submission", services.ErrNotMissionOwner)
		}
		return c.JSON(view)
	})

	app.Get("/s/admin/profiles", middleware.RequireRole(middleware.RoleAdmin), func(c *fiber.Ctx) error {
		profiles, err := missionService.Profiles.SearchProfiles(c.UserContext(), c.Query("q"), c.QueryInt("limit", 50))
		if err != nil {
			return respondError(c, "failed to search profiles", err)
		}
		return c.JSON(profiles)
	})

	app.Post("/s/submissions/:id/decisions", func(c *fiber.Ctx) error {
		var body DecisionBody
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		// Unknown stages fall through to the finalizer, which rejects them.
		if body.Stage.Valid() && !middleware.HasRole(c, stageRole(body.Stage)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "insufficient role"})
		}

		out := recorder.RecordDecision(c.UserContext(), services.DecisionInput{
			SubmissionID: c.Params("id"),
			ApproverID:   middleware.CurrentUserID(c),
			Decision:     body.Decision,
			Stage:        body.Stage,
			Feedback:     body.Feedback,
		})
		invalidator.AfterDecision(out)

		if !out.Success {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(out)
		}
		return c.JSON(out)
	})
}
