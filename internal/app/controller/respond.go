package controller

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/vintagebeauty/storefront-backend/internal/app/service"
	apperrors "github.com/vintagebeauty/storefront-backend/internal/errors"
	"github.com/vintagebeauty/storefront-backend/internal/middleware"
)

// parseIDParam reads a positive numeric path parameter, answering 400 when it is not one.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// respondBindError answers a request body that could not be decoded or failed binding rules.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = "failed " + fe.Tag()
		}
		apperrors.RespondWithValidationError(c, fields)
		return
	}
	apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Request body is not valid JSON")
}

// respondServiceError maps errors shared by every service. Resource-specific
// not-found errors are handled by the caller first.
func respondServiceError(c *gin.Context, err error, resource string) {
	log := middleware.GetLoggerFromContext(c)

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		log.Warn("Validation failed", map[string]interface{}{
			"resource": resource,
			"fields":   verr.Fields,
		})
		apperrors.RespondWithValidationError(c, verr.Fields)
		return
	}

	var uerr *service.UniquenessError
	if errors.As(err, &uerr) {
		code := apperrors.ResourceAlreadyExists
		switch {
		case errors.Is(err, service.ErrSlugConflict):
			code = apperrors.ProductSlugConflict
		case errors.Is(err, service.ErrCategoryExists):
			code = apperrors.CategoryExists
		}
		log.Warn("Uniqueness conflict", map[string]interface{}{
			"resource": resource,
			"field":    uerr.Field,
			"value":    uerr.Value,
		})
		apperrors.Conflict(c, code, uerr.Error())
		return
	}

	log.Error("Request failed", err, map[string]interface{}{
		"resource": resource,
	})
	apperrors.ParseAndRespond(c, err, resource)
}
