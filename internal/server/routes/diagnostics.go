package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/any-hub/cmis-hub/internal/cmis"
	"github.com/any-hub/cmis-hub/internal/server"
)

// RegisterDiagnosticsRoutes 暴露 /-/repositories 与（可选的）/-/metrics 诊断接口。
func RegisterDiagnosticsRoutes(app *fiber.App, registry *server.RepositoryRegistry, metricsHandler http.Handler) {
	if app == nil || registry == nil {
		return
	}

	app.Get("/-/repositories", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"repositories": encodeRepositories(registry.List())})
	})

	if metricsHandler != nil {
		app.Get("/-/metrics", adaptor.HTTPHandler(metricsHandler))
	}
}

type repositoryPayload struct {
	Name           string              `json:"name"`
	RepositoryInfo cmis.RepositoryInfo `json:"repository_info"`
	BrowserURL     string              `json:"browser_url"`
	AuthMode       string              `json:"auth_mode"`
	VerifySSL      bool                `json:"verify_ssl"`
	TimeoutSeconds float64             `json:"timeout_seconds"`
	Cache          cmis.CacheStats     `json:"cache"`
}

func encodeRepositories(routes []*server.RepositoryRoute) []repositoryPayload {
	result := make([]repositoryPayload, 0, len(routes))
	for _, route := range routes {
		result = append(result, repositoryPayload{
			Name:           route.Config.Name,
			RepositoryInfo: route.Session.RepositoryInfo(),
			BrowserURL:     route.Config.BrowserURL,
			AuthMode:       route.Config.AuthMode(),
			VerifySSL:      route.Config.VerifiesSSL(),
			TimeoutSeconds: route.Timeout.Seconds(),
			Cache:          route.Session.Stats(),
		})
	}
	return result
}
