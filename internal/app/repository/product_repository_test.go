package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/db"
	"gorm.io/gorm"
)

func setupProductTest(t *testing.T) (*gorm.DB, ProductRepository, *model.Category) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	category := &model.Category{Name: "Perfumes", Slug: "perfumes", IsActive: true}
	require.NoError(t, testDB.Create(category).Error)

	return testDB, NewProductRepository(testDB), category
}

func newTestProduct(category *model.Category, name, slug, price string, stock int) *model.Product {
	return &model.Product{
		Name:         name,
		Slug:         slug,
		Description:  name + " description",
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Price:        decimal.RequireFromString(price),
		RegularPrice: decimal.RequireFromString(price),
		Stock:        stock,
		InStock:      stock > 0,
		Images:       []string{"https://cdn.example.com/" + slug + ".jpg"},
	}
}

func TestProductRepository_CreateAndFind(t *testing.T) {
	testDB, repo, category := setupProductTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	product := newTestProduct(category, "Rose Oud", "rose-oud-perfumes", "1499.50", 5)
	product.Sizes = []model.ProductSize{
		{Size: "50ml", Price: decimal.RequireFromString("1499.50")},
		{Size: "100ml", Price: decimal.RequireFromString("2499")},
	}
	product.TopNotes = []string{"rose", "saffron"}

	require.NoError(t, repo.Create(ctx, product))
	assert.NotZero(t, product.ID)

	byID, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "rose-oud-perfumes", byID.Slug)
	assert.True(t, decimal.RequireFromString("1499.50").Equal(byID.Price))
	require.Len(t, byID.Sizes, 2)
	assert.Equal(t, "100ml", byID.Sizes[1].Size)
	assert.True(t, decimal.RequireFromString("2499").Equal(byID.Sizes[1].Price))
	assert.Equal(t, []string{"rose", "saffron"}, []string(byID.TopNotes))

	bySlug, err := repo.FindBySlug(ctx, "rose-oud-perfumes")
	require.NoError(t, err)
	assert.Equal(t, product.ID, bySlug.ID)

	_, err = repo.FindBySlug(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProductRepository_DuplicateSlug(t *testing.T) {
	testDB, repo, category := setupProductTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestProduct(category, "Amber", "amber-perfumes", "100", 1)))

	err := repo.Create(ctx, newTestProduct(category, "Amber", "amber-perfumes", "200", 1))
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestProductRepository_FindByIDsSkipsMissing(t *testing.T) {
	testDB, repo, category := setupProductTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	a := newTestProduct(category, "A", "a-perfumes", "10", 1)
	b := newTestProduct(category, "B", "b-perfumes", "20", 1)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	found, err := repo.FindByIDs(ctx, []uint{a.ID, b.ID, 9999})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestProductRepository_FindWithFilter(t *testing.T) {
	testDB, repo, category := setupProductTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	giftSets := &model.Category{Name: "Gift Sets", Slug: "gift-sets", IsActive: true}
	require.NoError(t, testDB.Create(giftSets).Error)

	cheap := newTestProduct(category, "Citrus Splash", "citrus-splash-perfumes", "300", 4)
	cheap.IsFeatured = true
	pricey := newTestProduct(category, "Velvet Oud", "velvet-oud-perfumes", "2500", 0)
	pricey.InStock = false
	bundle := newTestProduct(giftSets, "Festive Duo", "festive-duo-gift-sets", "1170", 2)
	bundle.IsGiftSet = true

	for _, p := range []*model.Product{cheap, pricey, bundle} {
		require.NoError(t, repo.Create(ctx, p))
	}

	yes := true
	tests := []struct {
		name      string
		filter    ProductFilter
		wantNames []string
		wantTotal int64
	}{
		{
			name:      "Price ascending",
			filter:    ProductFilter{SortBy: ProductSortPrice, SortAscending: true},
			wantNames: []string{"Citrus Splash", "Festive Duo", "Velvet Oud"},
			wantTotal: 3,
		},
		{
			name:      "Category slug",
			filter:    ProductFilter{CategorySlug: "gift-sets"},
			wantNames: []string{"Festive Duo"},
			wantTotal: 1,
		},
		{
			name:      "Category id",
			filter:    ProductFilter{CategoryID: &category.ID, SortBy: ProductSortName, SortAscending: true},
			wantNames: []string{"Citrus Splash", "Velvet Oud"},
			wantTotal: 2,
		},
		{
			name:      "In stock only",
			filter:    ProductFilter{InStock: &yes, SortBy: ProductSortName, SortAscending: true},
			wantNames: []string{"Citrus Splash", "Festive Duo"},
			wantTotal: 2,
		},
		{
			name:      "Featured",
			filter:    ProductFilter{Featured: &yes},
			wantNames: []string{"Citrus Splash"},
			wantTotal: 1,
		},
		{
			name:      "Gift sets",
			filter:    ProductFilter{GiftSet: &yes},
			wantNames: []string{"Festive Duo"},
			wantTotal: 1,
		},
		{
			name:      "Search is case-insensitive",
			filter:    ProductFilter{Search: "OUD"},
			wantNames: []string{"Velvet Oud"},
			wantTotal: 1,
		},
		{
			name:      "Paging keeps the total",
			filter:    ProductFilter{SortBy: ProductSortPrice, SortAscending: true, Limit: 1, Offset: 1},
			wantNames: []string{"Festive Duo"},
			wantTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, total, err := repo.FindWithFilter(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			names := make([]string, 0, len(products))
			for _, p := range products {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestProductRepository_FindGiftSets(t *testing.T) {
	testDB, repo, category := setupProductTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	single := newTestProduct(category, "Single", "single-perfumes", "100", 1)
	bundle := newTestProduct(category, "Bundle", "bundle-perfumes", "180", 1)
	bundle.IsGiftSet = true
	bundle.GiftSetItems = []model.GiftSetItem{{ProductID: 1, Quantity: 2}}
	require.NoError(t, repo.Create(ctx, single))
	require.NoError(t, repo.Create(ctx, bundle))

	sets, err := repo.FindGiftSets(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, bundle.ID, sets[0].ID)
	assert.Equal(t, 2, sets[0].GiftSetItems[0].Quantity)
}

func TestProductRepository_Delete(t *testing.T) {
	testDB, repo, category := setupProductTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	product := newTestProduct(category, "Kohl", "kohl-perfumes", "250", 1)
	require.NoError(t, repo.Create(ctx, product))

	require.NoError(t, repo.Delete(ctx, product.ID))

	_, err := repo.FindByID(ctx, product.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, product.ID), gorm.ErrRecordNotFound)

	// the slug is free again after a hard delete
	assert.NoError(t, repo.Create(ctx, newTestProduct(category, "Kohl", "kohl-perfumes", "250", 1)))
}

func TestProductRepository_AdjustStock(t *testing.T) {
	testDB, repo, category := setupProductTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	product := newTestProduct(category, "Mist", "mist-perfumes", "400", 2)
	require.NoError(t, repo.Create(ctx, product))

	require.NoError(t, repo.AdjustStock(ctx, product.ID, -2))
	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, found.Stock)
	assert.False(t, found.InStock)

	assert.ErrorIs(t, repo.AdjustStock(ctx, product.ID, -1), ErrStockConflict)

	require.NoError(t, repo.AdjustStock(ctx, product.ID, 3))
	found, err = repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, found.Stock)
	assert.True(t, found.InStock)
}
