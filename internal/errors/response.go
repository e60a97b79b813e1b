package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// requestIDKey mirrors the key LoggingMiddleware stores the request id under.
const requestIDKey = "request_id"

// ErrorResponse is the body of every error response. Fields is set only for
// validation failures and is keyed by JSON field path.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// RespondWithError aborts the handler chain with an error body.
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	respond(c, statusCode, ErrorResponse{Error: errorCode, Message: message})
}

func respond(c *gin.Context, statusCode int, body ErrorResponse) {
	body.RequestID = c.GetString(requestIDKey)
	c.AbortWithStatusJSON(statusCode, body)
}

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Please sign in to continue"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func Conflict(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusConflict, errorCode, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Something went wrong. Please try again shortly"
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}

func RespondWithValidationError(c *gin.Context, fields map[string]string) {
	respond(c, http.StatusBadRequest, ErrorResponse{
		Error:   ValidationInvalidInput,
		Message: "Some fields are invalid",
		Fields:  fields,
	})
}

// StatusFor returns the HTTP status a code is sent with.
func StatusFor(code string) int {
	switch code {
	case ResourceNotFound, ProductNotFound, CategoryNotFound, HeroSlideNotFound, OrderNotFound:
		return http.StatusNotFound
	case ResourceAlreadyExists, ResourceConflict, ProductSlugConflict, CategoryExists,
		CategoryInUse, AuthEmailAlreadyExists, OrderInsufficientStock, OrderInvalidStatus:
		return http.StatusConflict
	case ValidationInvalidInput, ValidationInvalidID, ValidationInvalidFormat, ValidationRequired,
		ImportInvalidFile, UploadInvalidFileType:
		return http.StatusBadRequest
	case UploadFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case InternalDatabaseError:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
