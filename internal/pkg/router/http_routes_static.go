package router

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/archivohistorico/heritage/internal/pkg/storage"
)

// StaticRouter serves stored image variants from the public disk
type StaticRouter struct {
	prefix string
	root   string
}

func NewStaticRouter(prefix, root string) *StaticRouter {
	return &StaticRouter{prefix: strings.TrimSuffix(prefix, "/"), root: root}
}

func (s StaticRouter) InstallRouter(app *fiber.App) {
	app.Static(s.prefix, s.root, fiber.Static{
		Compress: false,
		MaxAge:   604800, // 7 days
		Next:     s.internal,
	})
}

// internal hides storage bookkeeping such as the health check object
func (s StaticRouter) internal(c *fiber.Ctx) bool {
	return storage.IsInternalPath(strings.TrimPrefix(c.Path(), s.prefix))
}

func InstallStatic(app *fiber.App, prefix, root string) {
	setup(app, NewStaticRouter(prefix, root))
}
