package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"signapi/internal/apperr"
	"signapi/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code     string `json:"code"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindNotFound:            fiber.StatusNotFound,
	apperr.KindUnauthorized:        fiber.StatusUnauthorized,
	apperr.KindTwoFactorAuthFailed: fiber.StatusUnauthorized,
	apperr.KindInvalidRequest:      fiber.StatusBadRequest,
	apperr.KindExpired:             fiber.StatusGone,
	apperr.KindLimitExceeded:       fiber.StatusTooManyRequests,
}

// writeAppError maps a service error to its HTTP response. Unclassified errors
// are logged and reported as INTERNAL_ERROR.
func writeAppError(c *fiber.Ctx, log *zap.Logger, err error) error {
	e, ok := apperr.As(err)
	if !ok {
		log.Error("request failed",
			zap.String("request_id", requestIDFromCtx(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
	status, ok := kindStatus[e.Kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	body := errorEnvelope{Code: string(e.Kind), Reason: e.Code, Message: e.Message}
	if e.Kind == apperr.KindExpired {
		if token := c.Params("token"); token != "" {
			body.Redirect = "/sign/" + token + "/expired"
		}
	}
	return c.Status(status).JSON(errorPayload{RequestID: requestIDFromCtx(c), Error: body})
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		if _, ok := apperr.As(err); ok {
			return writeAppError(c, log, err)
		}

		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			log.Error("unhandled error", zap.String("request_id", requestIDFromCtx(c)), zap.Error(err))
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
