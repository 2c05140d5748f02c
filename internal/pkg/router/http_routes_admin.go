package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/archivohistorico/heritage/app/controllers"
	"github.com/archivohistorico/heritage/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdminKey(h.adminKey))

	// Media
	adminGroup.Get("/media", controllers.HandleAdminMediaList)
	adminGroup.Post("/media", controllers.HandleAdminMediaUpload)
	adminGroup.Get("/media/:uuid", controllers.HandleAdminMediaShow)
	adminGroup.Delete("/media/:uuid", controllers.HandleAdminMediaDelete)

	// Record images
	adminGroup.Get("/:model/:id/image", controllers.HandleAdminImageShow)
	adminGroup.Post("/:model/:id/image", controllers.HandleAdminImageUpload)
	adminGroup.Delete("/:model/:id/image", controllers.HandleAdminImageDelete)
	adminGroup.Post("/:model/:id/gallery", controllers.HandleAdminGalleryUpload)
}
