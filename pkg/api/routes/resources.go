package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/latemate/latemate/pkg/resources"
)

// ResourcesRouter serves the station and disruption reason reference
// lists. Handlers block on the lookup until the first load completes.
func ResourcesRouter(router fiber.Router, lookup *resources.Lookup) {
	router.Get("/stations", func(c *fiber.Ctx) error {
		return c.JSON(lookup.Stations(c.Context()))
	})

	router.Get("/disruptions", func(c *fiber.Ctx) error {
		return c.JSON(lookup.Disruptions(c.Context()))
	})
}
