package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vintagebeauty/storefront-backend/internal/app/service"
	apperrors "github.com/vintagebeauty/storefront-backend/internal/errors"
)

type HeroSlideController struct {
	slideService service.HeroSlideService
}

func NewHeroSlideController(slideService service.HeroSlideService) *HeroSlideController {
	return &HeroSlideController{
		slideService: slideService,
	}
}

func respondHeroSlideError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrHeroSlideNotFound) {
		apperrors.NotFound(c, apperrors.HeroSlideNotFound, "Hero slide not found")
		return
	}
	respondServiceError(c, err, "hero slide")
}

// ListActiveSlides returns the carousel in display order
// GET /api/v1/hero-slides?mobile=true
func (ctrl *HeroSlideController) ListActiveSlides(c *gin.Context) {
	var mobile *bool
	if raw := c.Query("mobile"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			apperrors.RespondWithValidationError(c, map[string]string{"mobile": "must be true or false"})
			return
		}
		mobile = &v
	}

	slides, err := ctrl.slideService.ListActive(mobile)
	if err != nil {
		respondHeroSlideError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slides": slides})
}

// ListAllSlides returns every slide, inactive ones included
// GET /api/v1/hero-slides/all
func (ctrl *HeroSlideController) ListAllSlides(c *gin.Context) {
	slides, err := ctrl.slideService.ListAll()
	if err != nil {
		respondHeroSlideError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slides": slides})
}

// GetSlide GET /api/v1/hero-slides/:id
func (ctrl *HeroSlideController) GetSlide(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	slide, err := ctrl.slideService.GetSlide(id)
	if err != nil {
		respondHeroSlideError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slide": slide})
}

// CreateSlide POST /api/v1/hero-slides
func (ctrl *HeroSlideController) CreateSlide(c *gin.Context) {
	var input service.HeroSlideInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	slide, err := ctrl.slideService.CreateSlide(input)
	if err != nil {
		respondHeroSlideError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"slide": slide})
}

// UpdateSlide PUT /api/v1/hero-slides/:id
func (ctrl *HeroSlideController) UpdateSlide(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input service.HeroSlideInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	slide, err := ctrl.slideService.UpdateSlide(id, input)
	if err != nil {
		respondHeroSlideError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slide": slide})
}

// DeleteSlide DELETE /api/v1/hero-slides/:id
func (ctrl *HeroSlideController) DeleteSlide(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.slideService.DeleteSlide(id); err != nil {
		respondHeroSlideError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Hero slide deleted"})
}
