package routes

import (
	"mime"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/cmis-hub/internal/cmis"
	"github.com/any-hub/cmis-hub/internal/logging"
	"github.com/any-hub/cmis-hub/internal/server"
)

// RegisterBrowseRoutes 暴露 /r/:repo/* 只读浏览接口，全部经过仓库 Session 的缓存。
func RegisterBrowseRoutes(app *fiber.App, registry *server.RepositoryRegistry, logger *logrus.Logger) {
	if app == nil || registry == nil {
		return
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &browseHandler{logger: logger}

	group := app.Group("/r/:repo")
	group.Get("/root", server.WithRepository(registry, h.root))
	group.Get("/object", server.WithRepository(registry, h.object))
	group.Get("/children", server.WithRepository(registry, h.children))
	group.Get("/parents", server.WithRepository(registry, h.parents))
	group.Get("/content", server.WithRepository(registry, h.content))
}

type browseHandler struct {
	logger *logrus.Logger
}

func (h *browseHandler) root(c fiber.Ctx, route *server.RepositoryRoute) error {
	started := time.Now()
	cacheHit := route.Session.Stats().RootLoaded
	root, err := route.Session.RootFolder(c.Context())
	if err != nil {
		return h.fail(c, route, "root", "", cacheHit, started, err)
	}
	h.logResult(c, route, "root", root.ID(), fiber.StatusOK, cacheHit, started, nil)
	return c.JSON(encodeObject(root))
}

func (h *browseHandler) object(c fiber.Ctx, route *server.RepositoryRoute) error {
	started := time.Now()
	id, ok := objectIDParam(c)
	if !ok {
		return server.RenderError(c, fiber.StatusBadRequest, "object_id_required")
	}
	_, cacheHit := route.Session.CachedObject(id.ID())
	obj, err := route.Session.LoadObject(c.Context(), id)
	if err != nil {
		return h.fail(c, route, "object", id.ID(), cacheHit, started, err)
	}
	h.logResult(c, route, "object", id.ID(), fiber.StatusOK, cacheHit, started, nil)
	return c.JSON(encodeObject(obj))
}

func (h *browseHandler) children(c fiber.Ctx, route *server.RepositoryRoute) error {
	started := time.Now()
	id, ok := objectIDParam(c)
	if !ok {
		return server.RenderError(c, fiber.StatusBadRequest, "object_id_required")
	}
	_, cacheHit := route.Session.CachedChildren(id.ID())
	folder, err := route.Session.LoadFolder(c.Context(), id)
	if err != nil {
		return h.fail(c, route, "children", id.ID(), cacheHit, started, err)
	}
	children, err := folder.LoadChildren(c.Context())
	if err != nil {
		return h.fail(c, route, "children", id.ID(), cacheHit, started, err)
	}
	h.logResult(c, route, "children", id.ID(), fiber.StatusOK, cacheHit, started, nil)
	return c.JSON(encodeObjects(id.ID(), children))
}

func (h *browseHandler) parents(c fiber.Ctx, route *server.RepositoryRoute) error {
	started := time.Now()
	id, ok := objectIDParam(c)
	if !ok {
		return server.RenderError(c, fiber.StatusBadRequest, "object_id_required")
	}
	_, cacheHit := route.Session.CachedParents(id.ID())
	doc, err := route.Session.LoadDocument(c.Context(), id)
	if err != nil {
		return h.fail(c, route, "parents", id.ID(), cacheHit, started, err)
	}
	parents, err := doc.LoadParents(c.Context())
	if err != nil {
		return h.fail(c, route, "parents", id.ID(), cacheHit, started, err)
	}
	h.logResult(c, route, "parents", id.ID(), fiber.StatusOK, cacheHit, started, nil)
	return c.JSON(encodeFolders(id.ID(), parents))
}

func (h *browseHandler) content(c fiber.Ctx, route *server.RepositoryRoute) error {
	started := time.Now()
	id, ok := objectIDParam(c)
	if !ok {
		return server.RenderError(c, fiber.StatusBadRequest, "object_id_required")
	}
	doc, err := route.Session.LoadDocument(c.Context(), id)
	if err != nil {
		return h.fail(c, route, "content", id.ID(), false, started, err)
	}
	stream, err := doc.ContentStream(c.Context())
	if err != nil {
		return h.fail(c, route, "content", id.ID(), false, started, err)
	}

	contentType := stream.MimeType()
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	if name, ok := doc.ContentStreamFileName(); ok && name != "" {
		c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("inline", map[string]string{"filename": name}))
	}
	h.logResult(c, route, "content", id.ID(), fiber.StatusOK, false, started, nil)
	return c.Status(fiber.StatusOK).Send(stream.Bytes())
}

func (h *browseHandler) fail(
	c fiber.Ctx,
	route *server.RepositoryRoute,
	relation string,
	objectID string,
	cacheHit bool,
	started time.Time,
	err error,
) error {
	status, code := statusForError(err)
	h.logResult(c, route, relation, objectID, status, cacheHit, started, err)
	return server.RenderError(c, status, code)
}

func (h *browseHandler) logResult(
	c fiber.Ctx,
	route *server.RepositoryRoute,
	relation string,
	objectID string,
	status int,
	cacheHit bool,
	started time.Time,
	err error,
) {
	fields := logging.RequestFields(
		route.Config.Name,
		route.Config.RepositoryID,
		route.Config.AuthMode(),
		cacheHit,
	)
	fields["action"] = "browse"
	fields["relation"] = relation
	fields["object_id"] = objectID
	fields["status"] = status
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if reqID := server.RequestID(c); reqID != "" {
		fields["request_id"] = reqID
	}

	entry := h.logger.WithFields(fields)
	switch {
	case err == nil:
		entry.Info("browse completed")
	case status >= fiber.StatusInternalServerError:
		entry.WithError(err).Error("browse failed")
	default:
		entry.WithError(err).Warn("browse failed")
	}
}

func objectIDParam(c fiber.Ctx) (cmis.ObjectID, bool) {
	raw := strings.TrimSpace(c.Query("id"))
	if raw == "" {
		return cmis.ObjectID{}, false
	}
	return cmis.NewObjectID(raw), true
}
