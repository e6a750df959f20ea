package response

import (
	"github.com/gofiber/fiber/v2"
)

// Generic copy shown when a failure has no user-facing explanation.
const (
	MsgGeneric         = "Une erreur est survenue"
	MsgUnauthenticated = "Non authentifié"
	MsgForbidden       = "Action non autorisée"
)

// SuccessBody is the standardized success JSON shape.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

// ErrorBody is the standardized error JSON shape.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

// ErrorDetail is the nested error object.
type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

// Page is the metadata attached to paginated lists.
type Page struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

const statusSuccess = "success"
const statusError = "error"

func success(c *fiber.Ctx, code int, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(code).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// Success sends a 200 OK response with the standard success format.
func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return success(c, fiber.StatusOK, message, data, metadata)
}

// SuccessCreated sends a 201 Created response with the standard success format.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return success(c, fiber.StatusCreated, message, data, metadata)
}

// Error sends a response with the standard error format.
func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Message:    message,
			StatusCode: statusCode,
			Details:    details,
		},
	})
}

// Unauthorized sends 401 with the same shape as other errors.
func Unauthorized(c *fiber.Ctx, message string) error {
	if message == "" {
		message = MsgUnauthenticated
	}
	return Error(c, message, fiber.StatusUnauthorized, nil)
}

// Forbidden sends 403 with the same shape as other errors.
func Forbidden(c *fiber.Ctx, message string) error {
	if message == "" {
		message = MsgForbidden
	}
	return Error(c, message, fiber.StatusForbidden, nil)
}

// Internal sends the generic 500.
func Internal(c *fiber.Ctx) error {
	return Error(c, MsgGeneric, fiber.StatusInternalServerError, nil)
}
