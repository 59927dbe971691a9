package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/greenroute/internal/core/domain"
	"github.com/samirrijal/greenroute/internal/pkg/logging"
)

// APIError is the error body returned by every endpoint.
type APIError struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

func newError(c *fiber.Ctx, status int, detail string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{Detail: detail, RequestID: reqID})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, msg)
}

// errServiceUnavailable returns a 503 error.
func errServiceUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, msg)
}

// errFromCore maps an orchestrator error to a response. Only the distance
// guard is a client error; everything else surfaces as 500 with its message.
func errFromCore(c *fiber.Ctx, err error) error {
	var tooLong *domain.RouteTooLongError
	if errors.As(err, &tooLong) {
		return errBadRequest(c, tooLong.Error())
	}
	logging.FromContext(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	return errInternal(c, err.Error())
}

// ErrorHandler renders errors that escape handlers, such as fiber.ErrRequestTimeout
// or a recovered panic, in the same body shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return newError(c, code, err.Error())
}
