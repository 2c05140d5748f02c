package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/archivohistorico/heritage/app/controllers"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/health", controllers.HandleHealth)
}
