package routes

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/cmis-hub/internal/cmis"
)

// statusForError 把 cmis 错误映射为 HTTP 状态码与错误码。
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, cmis.ErrNotFound):
		return fiber.StatusNotFound, "object_not_found"
	case errors.Is(err, cmis.ErrNotFolder):
		return fiber.StatusConflict, "not_a_folder"
	case errors.Is(err, cmis.ErrNotDocument):
		return fiber.StatusConflict, "not_a_document"
	}
	switch cmis.ReasonOf(err) {
	case cmis.ReasonDecode:
		return fiber.StatusBadGateway, "upstream_invalid_payload"
	default:
		return fiber.StatusBadGateway, "upstream_unavailable"
	}
}
