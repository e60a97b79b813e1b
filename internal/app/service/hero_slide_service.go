package service

import (
	"errors"
	"strings"

	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrHeroSlideNotFound = errors.New("hero slide not found")

type HeroSlideInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Subtitle    string `json:"subtitle" validate:"max=200"`
	Description string `json:"description"`
	Image       string `json:"image" validate:"omitempty,url"`
	Video       string `json:"video" validate:"omitempty,url"`
	Link        string `json:"link"`
	ButtonText  string `json:"button_text" validate:"max=60"`
	IsActive    bool   `json:"is_active"`
	IsMobile    bool   `json:"is_mobile"`
	Order       int    `json:"order" validate:"min=0"`
}

type HeroSlideService interface {
	ListActive(mobile *bool) ([]model.HeroSlide, error)
	ListAll() ([]model.HeroSlide, error)
	GetSlide(id uint) (*model.HeroSlide, error)
	CreateSlide(input HeroSlideInput) (*model.HeroSlide, error)
	UpdateSlide(id uint, input HeroSlideInput) (*model.HeroSlide, error)
	DeleteSlide(id uint) error
}

type heroSlideService struct {
	slideRepo repository.HeroSlideRepository
}

func NewHeroSlideService(slideRepo repository.HeroSlideRepository) HeroSlideService {
	return &heroSlideService{slideRepo: slideRepo}
}

func validateHeroSlide(input *HeroSlideInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Image = strings.TrimSpace(input.Image)
	input.Video = strings.TrimSpace(input.Video)

	if err := validateStruct(*input); err != nil {
		return err
	}

	switch {
	case input.Image == "" && input.Video == "":
		return NewValidationError("image", "an image or a video is required")
	case input.Image != "" && input.Video != "":
		return NewValidationError("video", "cannot be set together with image")
	}
	return nil
}

func (s *heroSlideService) ListActive(mobile *bool) ([]model.HeroSlide, error) {
	slides, err := s.slideRepo.FindAll(repository.HeroSlideFilter{ActiveOnly: true, MobileOnly: mobile})
	if err != nil {
		logger.Error("Failed to list active hero slides", err)
		return nil, err
	}
	return slides, nil
}

func (s *heroSlideService) ListAll() ([]model.HeroSlide, error) {
	slides, err := s.slideRepo.FindAll(repository.HeroSlideFilter{})
	if err != nil {
		logger.Error("Failed to list hero slides", err)
		return nil, err
	}
	return slides, nil
}

func (s *heroSlideService) GetSlide(id uint) (*model.HeroSlide, error) {
	slide, err := s.slideRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHeroSlideNotFound
		}
		logger.Error("Failed to fetch hero slide", err, map[string]interface{}{
			"slide_id": id,
		})
		return nil, err
	}
	return slide, nil
}

func (s *heroSlideService) CreateSlide(input HeroSlideInput) (*model.HeroSlide, error) {
	if err := validateHeroSlide(&input); err != nil {
		return nil, err
	}

	slide := &model.HeroSlide{}
	applyHeroSlide(slide, input)
	if err := s.slideRepo.Create(slide); err != nil {
		return nil, err
	}

	logger.Info("Hero slide created", map[string]interface{}{
		"slide_id":   slide.ID,
		"media_type": slide.MediaType(),
	})
	return slide, nil
}

func (s *heroSlideService) UpdateSlide(id uint, input HeroSlideInput) (*model.HeroSlide, error) {
	if err := validateHeroSlide(&input); err != nil {
		return nil, err
	}

	slide, err := s.GetSlide(id)
	if err != nil {
		return nil, err
	}

	applyHeroSlide(slide, input)
	if err := s.slideRepo.Update(slide); err != nil {
		return nil, err
	}

	logger.Info("Hero slide updated", map[string]interface{}{
		"slide_id": slide.ID,
	})
	return slide, nil
}

func (s *heroSlideService) DeleteSlide(id uint) error {
	if err := s.slideRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHeroSlideNotFound
		}
		return err
	}

	logger.Info("Hero slide deleted", map[string]interface{}{
		"slide_id": id,
	})
	return nil
}

func applyHeroSlide(slide *model.HeroSlide, input HeroSlideInput) {
	slide.Title = input.Title
	slide.Subtitle = strings.TrimSpace(input.Subtitle)
	slide.Description = strings.TrimSpace(input.Description)
	slide.Image = input.Image
	slide.Video = input.Video
	slide.Link = strings.TrimSpace(input.Link)
	slide.ButtonText = strings.TrimSpace(input.ButtonText)
	slide.IsActive = input.IsActive
	slide.IsMobile = input.IsMobile
	slide.Order = input.Order
}
