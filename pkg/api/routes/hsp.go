package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/latemate/latemate/pkg/api/cache"
	"github.com/latemate/latemate/pkg/hsp/hspclient"
)

// HSPRouter proxies the two HSP endpoints, adding credentials and caching
// so the browser never carries the upstream account.
func HSPRouter(router fiber.Router, client *hspclient.Client, responseCache *cache.Cache) {
	router.Post("/metrics", forwardHandler(client, responseCache, "serviceMetrics"))
	router.Post("/details", forwardHandler(client, responseCache, "serviceDetails"))
}

func forwardHandler(client *hspclient.Client, responseCache *cache.Cache, endpoint string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		key := cache.Key(endpoint, body)

		if cached, ok := responseCache.Get(c.Context(), key); ok {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

			return c.SendString(cached)
		}

		statusCode, responseBody, err := client.Forward(c.Context(), endpoint, body)
		if err != nil {
			c.SendStatus(fiber.StatusBadGateway)

			return c.JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		if statusCode == fiber.StatusOK {
			responseCache.Set(c.Context(), key, string(responseBody))
		}

		c.Status(statusCode)
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		return c.Send(responseBody)
	}
}
