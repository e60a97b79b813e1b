package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/vintagebeauty/storefront-backend/internal/errors"
	"github.com/vintagebeauty/storefront-backend/internal/middleware"
	"github.com/vintagebeauty/storefront-backend/internal/storage"
)

// UploadSigner issues presigned upload URLs.
type UploadSigner interface {
	PresignUpload(ctx context.Context, folder, filename, contentType string) (*storage.PresignedURLResponse, error)
}

type UploadController struct {
	signer UploadSigner
}

func NewUploadController(signer UploadSigner) *UploadController {
	return &UploadController{
		signer: signer,
	}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Folder      string `json:"folder"` // defaults to "uploads"
}

// GeneratePresignedURL generates a presigned URL for uploading media to S3
// POST /api/v1/upload/presigned-url
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req GeneratePresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid presigned URL request", map[string]interface{}{
			"error": err.Error(),
		})
		respondBindError(c, err)
		return
	}

	if req.Folder == "" {
		req.Folder = "uploads"
	}

	resp, err := ctrl.signer.PresignUpload(c.Request.Context(), req.Folder, req.Filename, req.ContentType)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnknownFolder):
			apperrors.RespondWithValidationError(c, map[string]string{"folder": "is not an upload folder"})
		case errors.Is(err, storage.ErrContentTypeNotAllowed):
			log.Warn("Invalid content type", map[string]interface{}{
				"content_type": req.ContentType,
				"folder":       req.Folder,
			})
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "This file type is not allowed here")
		default:
			log.Error("Failed to generate presigned URL", err, map[string]interface{}{
				"filename": req.Filename,
			})
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Could not prepare the upload. Please try again")
		}
		return
	}

	log.Info("Presigned URL generated", map[string]interface{}{
		"key":    resp.Key,
		"folder": req.Folder,
	})
	c.JSON(http.StatusOK, resp)
}
