package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/cmis-hub/internal/server"
)

// RegisterCacheRoutes 暴露 DELETE /r/:repo/cache：带 id 时淘汰单个对象，否则清空整个仓库缓存。
func RegisterCacheRoutes(app *fiber.App, registry *server.RepositoryRegistry, logger *logrus.Logger) {
	if app == nil || registry == nil {
		return
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	app.Delete("/r/:repo/cache", server.WithRepository(registry, func(c fiber.Ctx, route *server.RepositoryRoute) error {
		fields := logrus.Fields{
			"action":     "cache_invalidate",
			"repository": route.Config.Name,
			"request_id": server.RequestID(c),
		}
		if id, ok := objectIDParam(c); ok {
			route.Session.RemoveObjectFromCache(id)
			fields["object_id"] = id.ID()
			logger.WithFields(fields).Info("cache entry evicted")
			return c.JSON(fiber.Map{"evicted": id.ID(), "stats": route.Session.Stats()})
		}
		route.Session.ClearCache()
		fields["scope"] = "all"
		logger.WithFields(fields).Info("cache cleared")
		return c.JSON(fiber.Map{"cleared": true, "stats": route.Session.Stats()})
	}))
}
