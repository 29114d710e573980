package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/latemate/latemate/pkg/api/cache"
	"github.com/latemate/latemate/pkg/api/routes"
	"github.com/latemate/latemate/pkg/hsp/hspclient"
	"github.com/latemate/latemate/pkg/resources"
	"github.com/latemate/latemate/pkg/results"
)

func SetupServer(listen string, lookup *resources.Lookup, client *hspclient.Client) error {
	webApp := NewApp(lookup, client)

	return webApp.Listen(listen)
}

func NewApp(lookup *resources.Lookup, client *hspclient.Client) *fiber.App {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	group := webApp.Group("/api")

	group.Get("version", routes.APIVersion)

	routes.HSPRouter(group.Group("/hsp"), client, cache.Setup())
	routes.ResourcesRouter(group.Group("/resources"), lookup)
	routes.SearchRouter(group.Group("/search"), func() results.API { return client })

	return webApp
}
