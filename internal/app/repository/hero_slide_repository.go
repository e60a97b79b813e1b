package repository

import (
	"errors"

	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type HeroSlideFilter struct {
	ActiveOnly bool
	// MobileOnly nil returns slides for every viewport.
	MobileOnly *bool
}

type HeroSlideRepository interface {
	Create(slide *model.HeroSlide) error
	FindAll(filter HeroSlideFilter) ([]model.HeroSlide, error)
	FindByID(id uint) (*model.HeroSlide, error)
	Update(slide *model.HeroSlide) error
	Delete(id uint) error
}

type heroSlideRepository struct {
	db *gorm.DB
}

func NewHeroSlideRepository(db *gorm.DB) HeroSlideRepository {
	return &heroSlideRepository{db: db}
}

func (r *heroSlideRepository) Create(slide *model.HeroSlide) error {
	logger.Debug("Creating hero slide in database", map[string]interface{}{
		"title": slide.Title,
		"order": slide.Order,
	})

	if err := r.db.Create(slide).Error; err != nil {
		logger.Error("Failed to create hero slide in database", err, map[string]interface{}{
			"title": slide.Title,
		})
		return err
	}
	return nil
}

func (r *heroSlideRepository) FindAll(filter HeroSlideFilter) ([]model.HeroSlide, error) {
	logger.Debug("Finding hero slides in database", map[string]interface{}{
		"active_only": filter.ActiveOnly,
		"mobile_only": filter.MobileOnly,
	})

	query := r.db.Order("display_order ASC").Order("id ASC")
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.MobileOnly != nil {
		query = query.Where("is_mobile = ?", *filter.MobileOnly)
	}

	var slides []model.HeroSlide
	if err := query.Find(&slides).Error; err != nil {
		logger.Error("Failed to find hero slides in database", err)
		return nil, err
	}

	logger.Debug("Hero slides found in database", map[string]interface{}{
		"count": len(slides),
	})
	return slides, nil
}

func (r *heroSlideRepository) FindByID(id uint) (*model.HeroSlide, error) {
	var slide model.HeroSlide
	if err := r.db.First(&slide, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find hero slide by ID in database", err, map[string]interface{}{
				"slide_id": id,
			})
		}
		return nil, err
	}
	return &slide, nil
}

func (r *heroSlideRepository) Update(slide *model.HeroSlide) error {
	if err := r.db.Save(slide).Error; err != nil {
		logger.Error("Failed to update hero slide in database", err, map[string]interface{}{
			"slide_id": slide.ID,
		})
		return err
	}
	return nil
}

func (r *heroSlideRepository) Delete(id uint) error {
	result := r.db.Delete(&model.HeroSlide{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete hero slide from database", result.Error, map[string]interface{}{
			"slide_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
