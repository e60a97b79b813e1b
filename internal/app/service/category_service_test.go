package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/internal/db"
	"gorm.io/gorm"
)

func setupCategoryServiceTest(t *testing.T) (CategoryService, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	return NewCategoryService(repository.NewCategoryRepository(testDB)), testDB
}

func TestCategoryService_CreateCategory(t *testing.T) {
	categoryService, _ := setupCategoryServiceTest(t)

	category, err := categoryService.CreateCategory(CategoryInput{Name: "  Body Mists "})
	require.NoError(t, err)
	assert.Equal(t, "Body Mists", category.Name)
	assert.Equal(t, "body-mists", category.Slug)
	assert.True(t, category.IsActive)

	_, err = categoryService.CreateCategory(CategoryInput{Name: "Body Mists"})
	assert.ErrorIs(t, err, ErrDuplicate)
	var uniq *UniquenessError
	require.ErrorAs(t, err, &uniq)
	assert.Equal(t, "name", uniq.Field)

	_, err = categoryService.CreateCategory(CategoryInput{Name: ""})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = categoryService.CreateCategory(CategoryInput{Name: "!!!"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = categoryService.CreateCategory(CategoryInput{Name: "Oils", Image: "not a url"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCategoryService_UpdateCategory(t *testing.T) {
	categoryService, _ := setupCategoryServiceTest(t)

	category, err := categoryService.CreateCategory(CategoryInput{Name: "Attars"})
	require.NoError(t, err)

	inactive := false
	updated, err := categoryService.UpdateCategory(category.ID, CategoryInput{Name: "Attars & Oils", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "attars-oils", updated.Slug)
	assert.False(t, updated.IsActive)

	active, err := categoryService.ListCategories(true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := categoryService.ListCategories(false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = categoryService.UpdateCategory(9999, CategoryInput{Name: "Ghost"})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryService_DeleteCategory(t *testing.T) {
	categoryService, testDB := setupCategoryServiceTest(t)

	used, err := categoryService.CreateCategory(CategoryInput{Name: "Perfumes"})
	require.NoError(t, err)
	empty, err := categoryService.CreateCategory(CategoryInput{Name: "Makeup"})
	require.NoError(t, err)

	require.NoError(t, testDB.Create(&model.Product{
		Name:         "Rose Oud",
		Slug:         "rose-oud-perfumes",
		Description:  "Rose and oud",
		CategoryID:   used.ID,
		CategoryName: used.Name,
	}).Error)

	assert.ErrorIs(t, categoryService.DeleteCategory(used.ID), ErrCategoryInUse)
	assert.NoError(t, categoryService.DeleteCategory(empty.ID))
	assert.ErrorIs(t, categoryService.DeleteCategory(empty.ID), ErrCategoryNotFound)
}
