package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/davesnowdon/go-nao-bridge/pkg/command"
	"github.com/davesnowdon/go-nao-bridge/pkg/operation"
	"github.com/davesnowdon/go-nao-bridge/pkg/session"
)

// Envelope is the response shape for every successful API call.
type Envelope struct {
	Success     bool   `json:"success"`
	Data        any    `json:"data"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	OperationID string `json:"operation_id,omitempty"`
}

// ErrorEnvelope is the response shape for every failed API call.
type ErrorEnvelope struct {
	Success   bool      `json:"success"`
	Error     ErrorBody `json:"error"`
	Timestamp string    `json:"timestamp"`
}

// ErrorBody carries the machine-readable error taxonomy.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes exposed on the wire.
const (
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeRobotUnavailable = "ROBOT_NOT_CONNECTED"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
)

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ok writes a success envelope.
func ok(c *fiber.Ctx, data any, message string) error {
	if data == nil {
		data = fiber.Map{}
	}
	return c.JSON(Envelope{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: timestamp(),
	})
}

// accepted writes a success envelope carrying an operation id.
func accepted(c *fiber.Ctx, operationID, message string) error {
	return c.Status(fiber.StatusAccepted).JSON(Envelope{
		Success:     true,
		Data:        fiber.Map{"operation_id": operationID},
		Message:     message,
		Timestamp:   timestamp(),
		OperationID: operationID,
	})
}

// fail maps an error from the core onto the wire taxonomy.
func fail(c *fiber.Ctx, err error) error {
	code := CodeInternal
	status := fiber.StatusInternalServerError

	var validationErr *command.ValidationError
	switch {
	case errors.As(err, &validationErr):
		code = CodeInvalidParameter
		status = fiber.StatusBadRequest
	case errors.Is(err, session.ErrRobotUnavailable):
		code = CodeRobotUnavailable
		status = fiber.StatusBadGateway
	case errors.Is(err, operation.ErrNotFound):
		code = CodeNotFound
		status = fiber.StatusNotFound
	}

	return c.Status(status).JSON(ErrorEnvelope{
		Success:   false,
		Error:     ErrorBody{Code: code, Message: err.Error()},
		Timestamp: timestamp(),
	})
}

// notFound is the fallback handler for unknown routes.
func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorEnvelope{
		Success:   false,
		Error:     ErrorBody{Code: CodeNotFound, Message: "endpoint not found"},
		Timestamp: timestamp(),
	})
}
