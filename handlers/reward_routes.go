// handlers/reward_routes.go
package handlers

import (
	"mission-rewards-system/middleware"
	"mission-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRewardRoutes(app *fiber.App, rewardService *services.RewardService, badgeService *services.BadgeService, tokens middleware.TokenValidator) {
	user := app.Group("/s/user")

	user.Get("/balance", rewardService.GetBalance)
	user.Get("/rewards", rewardService.GetUserRewards)
	user.Get("/rewards/counts", rewardService.GetUserRewardCounts)
	user.Patch("/rewards/viewed", rewardService.MarkAllRewardsAsViewed)
	user.Patch("/rewards/:id/viewed", rewardService.MarkRewardAsViewed)

	user.Get("/badges", func(c *fiber.Ctx) error {
		badges, err := badgeService.ListUserBadges(c.UserContext(), middleware.CurrentUserID(c))
		if err != nil {
			return respondError(c, "failed to fetch badges", err)
		}
		return c.JSON(badges)
	})

	// EventSource cannot send gateway headers; authenticated by query token instead.
	app.Get("/user/rewards/stream", middleware.SSEAuthMiddleware(tokens), rewardService.StreamUserRewardsSSE)
}
