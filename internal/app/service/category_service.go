package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/app/pricing"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category still has products")
	ErrCategoryExists   = fmt.Errorf("category name already in use: %w", ErrDuplicate)
)

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description"`
	Image       string `json:"image" validate:"omitempty,url"`
	IsActive    *bool  `json:"is_active"`
}

type CategoryService interface {
	ListCategories(activeOnly bool) ([]model.Category, error)
	GetCategory(id uint) (*model.Category, error)
	CreateCategory(input CategoryInput) (*model.Category, error)
	UpdateCategory(id uint, input CategoryInput) (*model.Category, error)
	DeleteCategory(id uint) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository) CategoryService {
	return &categoryService{categoryRepo: categoryRepo}
}

func (s *categoryService) ListCategories(activeOnly bool) ([]model.Category, error) {
	categories, err := s.categoryRepo.FindAll(activeOnly)
	if err != nil {
		logger.Error("Failed to list categories", err)
		return nil, err
	}
	return categories, nil
}

func (s *categoryService) GetCategory(id uint) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		logger.Error("Failed to fetch category", err, map[string]interface{}{
			"category_id": id,
		})
		return nil, err
	}
	return category, nil
}

func (s *categoryService) CreateCategory(input CategoryInput) (*model.Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	category := &model.Category{
		Name:        input.Name,
		Slug:        pricing.Slugify(input.Name),
		Description: strings.TrimSpace(input.Description),
		Image:       input.Image,
		IsActive:    true,
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if category.Slug == "" {
		return nil, NewValidationError("name", "must contain letters or digits")
	}

	if err := s.categoryRepo.Create(category); err != nil {
		if isDuplicateKey(err) {
			return nil, &UniquenessError{Field: "name", Value: category.Name, Err: ErrCategoryExists}
		}
		return nil, err
	}

	logger.Info("Category created", map[string]interface{}{
		"category_id": category.ID,
		"slug":        category.Slug,
	})
	return category, nil
}

// UpdateCategory renames in place. Products keep the category name and slug
// they were saved with until they are saved again.
func (s *categoryService) UpdateCategory(id uint, input CategoryInput) (*model.Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	category, err := s.GetCategory(id)
	if err != nil {
		return nil, err
	}

	category.Name = input.Name
	category.Slug = pricing.Slugify(input.Name)
	category.Description = strings.TrimSpace(input.Description)
	category.Image = input.Image
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if category.Slug == "" {
		return nil, NewValidationError("name", "must contain letters or digits")
	}

	if err := s.categoryRepo.Update(category); err != nil {
		if isDuplicateKey(err) {
			return nil, &UniquenessError{Field: "name", Value: category.Name, Err: ErrCategoryExists}
		}
		return nil, err
	}

	logger.Info("Category updated", map[string]interface{}{
		"category_id": category.ID,
		"slug":        category.Slug,
	})
	return category, nil
}

// DeleteCategory refuses while any product still belongs to the category.
func (s *categoryService) DeleteCategory(id uint) error {
	if _, err := s.GetCategory(id); err != nil {
		return err
	}

	count, err := s.categoryRepo.CountProducts(id)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Warn("Refusing to delete category with products", map[string]interface{}{
			"category_id":   id,
			"product_count": count,
		})
		return ErrCategoryInUse
	}

	if err := s.categoryRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}

	logger.Info("Category deleted", map[string]interface{}{
		"category_id": id,
	})
	return nil
}
