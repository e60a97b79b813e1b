package errors

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ErrorInfo is a code and message safe to show to a client.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError maps a storage error to a client-safe code and message. Driver
// details are never echoed back. resource names the entity for messages,
// e.g. "product" or "category".
func ParseError(err error, resource string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Something went wrong"}
	}

	errLower := strings.ToLower(err.Error())

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(resource)}
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errLower, "duplicate key") ||
		strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower)
	}

	if errors.Is(err, gorm.ErrForeignKeyViolated) || strings.Contains(errLower, "foreign key constraint") {
		return ErrorInfo{Code: ResourceConflict, Message: "The " + resourceName(resource) + " is still referenced by other records"}
	}

	if strings.Contains(errLower, "violates not-null constraint") || strings.Contains(errLower, "not null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}

	if errors.Is(err, gorm.ErrCheckConstraintViolated) || strings.Contains(errLower, "check constraint") {
		return ErrorInfo{Code: ValidationInvalidInput, Message: "A value is out of range"}
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{Code: InternalDatabaseError, Message: "The service is temporarily unavailable. Please try again shortly"}
	}

	return ErrorInfo{Code: InternalServerError, Message: "Something went wrong. Please try again shortly"}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	switch {
	case strings.Contains(errLower, "products") && strings.Contains(errLower, "slug"):
		return ErrorInfo{Code: ProductSlugConflict, Message: "A product with the same name already exists in this category"}
	case strings.Contains(errLower, "categories"):
		return ErrorInfo{Code: CategoryExists, Message: "A category with this name already exists"}
	case strings.Contains(errLower, "email"):
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "This email is already registered"}
	case strings.Contains(errLower, "order_number"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "Order number collision. Please try again"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "This record already exists"}
}

func resourceName(resource string) string {
	if resource == "" {
		return "record"
	}
	return resource
}

func notFoundMessage(resource string) string {
	switch strings.ToLower(resource) {
	case "product":
		return "Product not found"
	case "category":
		return "Category not found"
	case "hero slide":
		return "Hero slide not found"
	case "order":
		return "Order not found"
	case "user":
		return "User not found"
	}
	return "The requested record was not found"
}

// ParseAndRespond writes the parsed error with the status its code maps to.
func ParseAndRespond(c *gin.Context, err error, resource string) {
	info := ParseError(err, resource)
	RespondWithError(c, StatusFor(info.Code), info.Code, info.Message)
}
