package router

import (
	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
	adminKey string
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	h.registerPublicRoutes(app)
	h.registerAdminRoutes(app)
}

func NewHttpRouter(adminKey string) *HttpRouter {
	return &HttpRouter{adminKey: adminKey}
}
