package gateway

import "github.com/gofiber/fiber/v2"

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	if v := c.Locals("requestid"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func httpError(c *fiber.Ctx, status int, code, message string) error {
	if message == "" {
		message = "Request failed"
	}
	return c.Status(status).JSON(errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestID(c),
	})
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return httpError(c, fiber.StatusBadRequest, code, message)
}

func unauthorized(c *fiber.Ctx, code, message string) error {
	return httpError(c, fiber.StatusUnauthorized, code, message)
}

func notFound(c *fiber.Ctx, code, message string) error {
	return httpError(c, fiber.StatusNotFound, code, message)
}

func forbidden(c *fiber.Ctx, code, message string) error {
	return httpError(c, fiber.StatusForbidden, code, message)
}

func internal(c *fiber.Ctx, code string) error {
	return httpError(c, fiber.StatusInternalServerError, code, "Internal server error")
}
