// handlers/raffle_routes.go
package handlers

import (
	"mission-rewards-system/middleware"
	"mission-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRaffleRoutes(app *fiber.App, raffleService *services.RaffleService) {
	app.Get("/raffles", func(c *fiber.Ctx) error {
		raffles, err := raffleService.ListOpen(c.UserContext())
		if err != nil {
			return respondError(c, "failed to list raffles", err)
		}
		return c.JSON(raffles)
	})

	app.Get("/raffles/:id", func(c *fiber.Ctx) error {
		raffle, err := raffleService.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, "failed to fetch raffle", err)
		}
		return c.JSON(raffle)
	})

	app.Get("/s/raffles/:id/preview", func(c *fiber.Ctx) error {
		n, err := raffleService.TicketPreview(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c))
		if err != nil {
			return respondError(c, "failed to preview tickets", err)
		}
		return c.JSON(fiber.Map{"affordable_tickets": n})
	})

	app.Post("/s/raffles/:id/tickets", func(c *fiber.Ctx) error {
		var body struct {
			Quantity int64 `json:"quantity"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		ticket, err := raffleService.BuyTickets(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c), body.Quantity)
		if err != nil {
			return respondError(c, "failed to buy tickets", err)
		}
		return c.Status(fiber.StatusCreated).JSON(ticket)
	})

	app.Post("/s/admin/raffles", middleware.RequireRole(middleware.RoleAdmin), func(c *fiber.Ctx) error {
		var req services.CreateRaffleRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		raffle, err := raffleService.CreateRaffle(c.UserContext(), req)
		if err != nil {
			return respondError(c, "failed to create raffle", err)
		}
		return c.Status(fiber.StatusCreated).JSON(raffle)
	})
}
