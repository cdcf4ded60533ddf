package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestRecorder 接收每个请求的路由模板、状态码与耗时，metrics.Recorder 实现了它。
type RequestRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger   *logrus.Logger
	Registry *RepositoryRegistry
	Recorder RequestRecorder
}

const (
	contextKeyRoute     = "_cmishub_route"
	contextKeyRequestID = "_cmishub_request_id"
)

// NewApp builds a Fiber application with request-id middleware, panic recovery
// and JSON error rendering. Routes are attached by the routes package.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("repository registry is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ErrorHandler:  errorHandler(opts.Logger),
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts))

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，并在请求结束后上报路由级指标。
func requestContextMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		started := time.Now()
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()
		if opts.Recorder != nil {
			status := c.Response().StatusCode()
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				status = fiberErr.Code
			}
			opts.Recorder.RecordHTTPRequest(c.Method(), c.Route().Path, status, time.Since(started))
		}
		return err
	}
}

// WithRepository 解析 :repo 参数并把 RepositoryRoute 交给 handler，未知仓库返回 404。
func WithRepository(registry *RepositoryRegistry, handler func(fiber.Ctx, *RepositoryRoute) error) fiber.Handler {
	return func(c fiber.Ctx) error {
		name := c.Params("repo")
		route, ok := registry.Lookup(name)
		if !ok {
			c.Set("X-CMIS-Hub-Repository", name)
			return RenderError(c, fiber.StatusNotFound, "repository_not_found")
		}
		c.Locals(contextKeyRoute, route)
		return handler(c, route)
	}
}

// RenderError 以 {"error": code} 输出错误响应。
func RenderError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func errorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		code := "internal_error"
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
			if status == fiber.StatusNotFound {
				code = "not_found"
			} else if status == fiber.StatusMethodNotAllowed {
				code = "method_not_allowed"
			}
		}
		if status >= fiber.StatusInternalServerError {
			logger.WithFields(logrus.Fields{
				"action":     "http_error",
				"path":       c.Path(),
				"request_id": RequestID(c),
			}).WithError(err).Error("request failed")
		}
		return RenderError(c, status, code)
	}
}

// RouteFromContext returns the repository route resolved by WithRepository.
func RouteFromContext(c fiber.Ctx) (*RepositoryRoute, bool) {
	if value := c.Locals(contextKeyRoute); value != nil {
		if route, ok := value.(*RepositoryRoute); ok {
			return route, true
		}
	}
	return nil, false
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
