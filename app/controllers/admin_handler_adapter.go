package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/archivohistorico/heritage/app/repository"
	"github.com/archivohistorico/heritage/internal/pkg/imageprocessor"
	"github.com/archivohistorico/heritage/internal/pkg/storage"
)

// Global controller instances
var (
	adminImageController *AdminImageController
	adminMediaController *AdminMediaController
	healthController     *HealthController
)

// InitializeAdminControllers wires the global controllers to the repositories and services.
// mediaStore and monitor may be nil.
func InitializeAdminControllers(images *imageprocessor.Service, mediaStore storage.Backend, monitor *storage.Monitor) {
	repos := repository.GetGlobalRepositories()
	adminImageController = NewAdminImageController(repos.Images, images)
	adminMediaController = NewAdminMediaController(repos.Media, mediaStore)
	healthController = NewHealthController(monitor)
}

// Adapter functions used by the router

// HandleAdminImageUpload - Adapter for record image upload
func HandleAdminImageUpload(c *fiber.Ctx) error {
	return adminImageController.HandleUpload(c)
}

// HandleAdminImageDelete - Adapter for record image delete
func HandleAdminImageDelete(c *fiber.Ctx) error {
	return adminImageController.HandleDelete(c)
}

// HandleAdminImageShow - Adapter for record image details
func HandleAdminImageShow(c *fiber.Ctx) error {
	return adminImageController.HandleShow(c)
}

// HandleAdminGalleryUpload - Adapter for gallery replacement
func HandleAdminGalleryUpload(c *fiber.Ctx) error {
	return adminImageController.HandleGallery(c)
}

// HandleAdminMediaUpload - Adapter for media upload
func HandleAdminMediaUpload(c *fiber.Ctx) error {
	return adminMediaController.HandleUpload(c)
}

// HandleAdminMediaList - Adapter for media listing
func HandleAdminMediaList(c *fiber.Ctx) error {
	return adminMediaController.HandleList(c)
}

// HandleAdminMediaShow - Adapter for one media entry
func HandleAdminMediaShow(c *fiber.Ctx) error {
	return adminMediaController.HandleShow(c)
}

// HandleAdminMediaDelete - Adapter for media delete
func HandleAdminMediaDelete(c *fiber.Ctx) error {
	return adminMediaController.HandleDelete(c)
}

// HandleHealth - Adapter for the storage health endpoint
func HandleHealth(c *fiber.Ctx) error {
	return healthController.HandleHealth(c)
}
