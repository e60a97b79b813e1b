package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/app/pricing"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/internal/db"
	"gorm.io/gorm"
)

type productFixture struct {
	db        *gorm.DB
	repo      repository.ProductRepository
	service   ProductService
	perfumes  *model.Category
	giftSets  *model.Category
	men       *model.Category
	women     *model.Category
	cache     *memoryProductCache
	flakyRepo *flakyProductRepository
}

// memoryProductCache records cache traffic for assertions.
type memoryProductCache struct {
	items       map[string]*model.Product
	invalidated []string
}

func newMemoryProductCache() *memoryProductCache {
	return &memoryProductCache{items: map[string]*model.Product{}}
}

func (c *memoryProductCache) Get(_ context.Context, slug string) (*model.Product, bool) {
	p, ok := c.items[slug]
	return p, ok
}

func (c *memoryProductCache) Set(_ context.Context, p *model.Product) {
	c.items[p.Slug] = p
}

func (c *memoryProductCache) Invalidate(_ context.Context, slugs ...string) {
	for _, slug := range slugs {
		delete(c.items, slug)
		c.invalidated = append(c.invalidated, slug)
	}
}

// flakyProductRepository fails FindByID for the ids in failOn with a non-not-found error.
type flakyProductRepository struct {
	repository.ProductRepository
	failOn map[uint]bool
}

func (r *flakyProductRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	if r.failOn[id] {
		return nil, errors.New("connection reset by peer")
	}
	return r.ProductRepository.FindByID(ctx, id)
}

func setupProductServiceTest(t *testing.T) *productFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	f := &productFixture{db: testDB}
	f.perfumes = createCategory(t, testDB, "Perfumes")
	f.giftSets = createCategory(t, testDB, "Gift Sets")
	f.men = createCategory(t, testDB, "Men")
	f.women = createCategory(t, testDB, "Women")

	f.repo = repository.NewProductRepository(testDB)
	f.flakyRepo = &flakyProductRepository{ProductRepository: f.repo, failOn: map[uint]bool{}}
	f.cache = newMemoryProductCache()
	f.service = NewProductService(f.flakyRepo, repository.NewCategoryRepository(testDB), f.cache, "")
	return f
}

func createCategory(t *testing.T, database *gorm.DB, name string) *model.Category {
	t.Helper()
	category := &model.Category{Name: name, Slug: pricing.Slugify(name), IsActive: true}
	require.NoError(t, database.Create(category).Error)
	return category
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func boolPtr(b bool) *bool {
	return &b
}

func (f *productFixture) draft(name string, category *model.Category) ProductDraft {
	return ProductDraft{
		Name:         name,
		Description:  name + " by Vintage Beauty",
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Price:        dec("100"),
		RegularPrice: dec("120"),
		Stock:        5,
		Images:       []string{"https://cdn.example.com/" + name + ".jpg"},
	}
}

func (f *productFixture) mustSave(t *testing.T, d ProductDraft) *model.Product {
	t.Helper()
	p, err := f.service.SaveProduct(context.Background(), d)
	require.NoError(t, err)
	return p
}

// components saves A (500 flat) and B (only sized, 50ml at 300).
func (f *productFixture) components(t *testing.T) (*model.Product, *model.Product) {
	a := f.draft("Oud A", f.perfumes)
	a.Price = dec("500")
	b := f.draft("Musk B", f.perfumes)
	b.Price = decimal.Zero
	b.Sizes = []model.ProductSize{{Size: "50ml", Price: dec("300")}}
	return f.mustSave(t, a), f.mustSave(t, b)
}

func (f *productFixture) bundleDraft(a, b *model.Product) ProductDraft {
	d := f.draft("Festive Duo", f.giftSets)
	d.GiftSetItems = []model.GiftSetItem{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 1, SelectedSize: "50ml"},
	}
	d.GiftSetDiscount = dec("10")
	return d
}

func TestProductService_SlugScenario(t *testing.T) {
	f := setupProductServiceTest(t)

	p := f.mustSave(t, f.draft("Rose Oud", f.perfumes))

	assert.Equal(t, "rose-oud-perfumes", p.Slug)
	assert.Equal(t, model.DefaultBrandName, p.BrandName)
}

func TestProductService_SameNameDifferentCategories(t *testing.T) {
	f := setupProductServiceTest(t)

	men := f.mustSave(t, f.draft("Amber", f.men))
	women := f.mustSave(t, f.draft("Amber", f.women))

	assert.Equal(t, "amber-men", men.Slug)
	assert.Equal(t, "amber-women", women.Slug)
}

func TestProductService_DuplicateSlugIsConflict(t *testing.T) {
	f := setupProductServiceTest(t)

	f.mustSave(t, f.draft("Amber", f.men))

	_, err := f.service.SaveProduct(context.Background(), f.draft("Amber", f.men))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSlugConflict)
	assert.ErrorIs(t, err, ErrDuplicate)
	var uniq *UniquenessError
	require.ErrorAs(t, err, &uniq)
	assert.Equal(t, "amber-men", uniq.Value)
}

func TestProductService_SlugIdempotentOnResave(t *testing.T) {
	f := setupProductServiceTest(t)
	p := f.mustSave(t, f.draft("Rose Oud", f.perfumes))

	again := f.mustSave(t, DraftFromProduct(p))
	assert.Equal(t, p.Slug, again.Slug)

	d := DraftFromProduct(again)
	d.Description = "A new description"
	d.Stock = 0
	changed := f.mustSave(t, d)
	assert.Equal(t, "rose-oud-perfumes", changed.Slug)
	assert.Equal(t, "A new description", changed.Description)
}

func TestProductService_SlugFollowsRename(t *testing.T) {
	f := setupProductServiceTest(t)
	p := f.mustSave(t, f.draft("Rose Oud", f.perfumes))
	f.cache.items[p.Slug] = p

	d := DraftFromProduct(p)
	d.Name = "Rose Oud Intense"
	renamed := f.mustSave(t, d)

	assert.Equal(t, "rose-oud-intense-perfumes", renamed.Slug)
	assert.Contains(t, f.cache.invalidated, "rose-oud-perfumes")
	_, stillCached := f.cache.items["rose-oud-perfumes"]
	assert.False(t, stillCached)
}

func TestProductService_InStockAlwaysFollowsStock(t *testing.T) {
	f := setupProductServiceTest(t)

	for _, stock := range []int{0, 1, 40} {
		d := f.draft("Mist", f.perfumes)
		d.Name = "Mist " + decimal.NewFromInt(int64(stock)).String()
		d.Stock = stock
		p := f.mustSave(t, d)

		stored, err := f.repo.FindByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, stock > 0, stored.InStock, "stock=%d", stock)
	}
}

func TestProductService_GiftSetScenario(t *testing.T) {
	f := setupProductServiceTest(t)
	a, b := f.components(t)

	bundle := f.mustSave(t, f.bundleDraft(a, b))

	stored, err := f.repo.FindByID(context.Background(), bundle.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsGiftSet)
	assert.True(t, dec("1300").Equal(stored.GiftSetTotalPrice), stored.GiftSetTotalPrice.String())
	assert.True(t, dec("1170").Equal(stored.GiftSetDiscountedPrice), stored.GiftSetDiscountedPrice.String())
	assert.True(t, dec("1170").Equal(stored.Price), stored.Price.String())
	assert.True(t, dec("1300").Equal(stored.RegularPrice), stored.RegularPrice.String())
}

func TestProductService_GiftSetManualPrice(t *testing.T) {
	f := setupProductServiceTest(t)
	a, b := f.components(t)

	d := f.bundleDraft(a, b)
	d.GiftSetManualPrice = decPtr("999")
	bundle := f.mustSave(t, d)

	assert.True(t, dec("999").Equal(bundle.Price))
	assert.True(t, dec("1300").Equal(bundle.RegularPrice))
	assert.True(t, dec("1170").Equal(bundle.GiftSetDiscountedPrice))
}

func TestProductService_GiftSetWithDeletedComponent(t *testing.T) {
	f := setupProductServiceTest(t)
	a, b := f.components(t)
	ctx := context.Background()

	require.NoError(t, f.service.DeleteProduct(ctx, a.ID))

	bundle, err := f.service.SaveProduct(ctx, f.bundleDraft(a, b))

	require.NoError(t, err)
	assert.True(t, dec("300").Equal(bundle.GiftSetTotalPrice))
	assert.True(t, dec("270").Equal(bundle.GiftSetDiscountedPrice))
	assert.True(t, dec("270").Equal(bundle.Price))
}

func TestProductService_GiftSetLookupErrorKeepsPartialTotal(t *testing.T) {
	f := setupProductServiceTest(t)
	a, b := f.components(t)
	c := f.draft("Attar C", f.perfumes)
	c.Price = dec("50")
	cp := f.mustSave(t, c)

	d := f.bundleDraft(a, b)
	d.GiftSetItems = append(d.GiftSetItems, model.GiftSetItem{ProductID: cp.ID, Quantity: 1})
	f.flakyRepo.failOn[b.ID] = true

	bundle, err := f.service.SaveProduct(context.Background(), d)

	require.NoError(t, err, "lookup failures are never surfaced")
	// A resolved, B failed, C never attempted.
	assert.True(t, dec("1000").Equal(bundle.GiftSetTotalPrice), bundle.GiftSetTotalPrice.String())
	assert.True(t, dec("900").Equal(bundle.Price), bundle.Price.String())
}

func TestProductService_StaleBundleUntilResaved(t *testing.T) {
	f := setupProductServiceTest(t)
	a, b := f.components(t)
	ctx := context.Background()
	bundle := f.mustSave(t, f.bundleDraft(a, b))

	update := DraftFromProduct(a)
	update.Price = dec("600")
	f.mustSave(t, update)

	stale, err := f.repo.FindByID(ctx, bundle.ID)
	require.NoError(t, err)
	assert.True(t, dec("1300").Equal(stale.GiftSetTotalPrice), "bundles are not recomputed eagerly")

	report, err := f.service.AuditGiftSets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	require.Len(t, report.Stale, 1)
	assert.Equal(t, bundle.ID, report.Stale[0].ProductID)
	assert.True(t, dec("1500").Equal(report.Stale[0].CurrentTotal))

	unchanged, err := f.repo.FindByID(ctx, bundle.ID)
	require.NoError(t, err)
	assert.True(t, dec("1300").Equal(unchanged.GiftSetTotalPrice), "the audit does not write")

	repriced, err := f.service.RepriceProduct(ctx, bundle.ID)
	require.NoError(t, err)
	assert.True(t, dec("1500").Equal(repriced.GiftSetTotalPrice))
	assert.True(t, dec("1350").Equal(repriced.Price))
	assert.Equal(t, bundle.Slug, repriced.Slug)

	report, err = f.service.AuditGiftSets(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Stale)
}

func TestProductService_GiftSetFlagInference(t *testing.T) {
	f := setupProductServiceTest(t)
	a, b := f.components(t)
	ctx := context.Background()

	// Items present and the flag not sent: inferred on.
	p := f.mustSave(t, f.bundleDraft(a, b))
	assert.True(t, p.IsGiftSet)
	assert.True(t, dec("1170").Equal(p.Price))

	// Clearing the items does not clear the flag.
	d := DraftFromProduct(p)
	d.GiftSetItems = nil
	p = f.mustSave(t, d)
	assert.True(t, p.IsGiftSet)

	d = DraftFromProduct(p)
	d.IsGiftSet = boolPtr(false)
	p = f.mustSave(t, d)
	assert.False(t, p.IsGiftSet)

	stored, err := f.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsGiftSet)
}

func TestProductService_SwitchedOffBundleStaysOff(t *testing.T) {
	f := setupProductServiceTest(t)
	a, b := f.components(t)
	ctx := context.Background()

	off := f.bundleDraft(a, b)
	off.IsGiftSet = boolPtr(false)
	p := f.mustSave(t, off)
	require.False(t, p.IsGiftSet)
	require.True(t, dec("100").Equal(p.Price), "no aggregation when explicitly not a gift set")

	repriced, err := f.service.RepriceProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, repriced.IsGiftSet)
	assert.True(t, dec("100").Equal(repriced.Price))
	assert.True(t, repriced.GiftSetTotalPrice.IsZero())

	// an update that leaves the flag out keeps it off
	d := DraftFromProduct(repriced)
	d.Stock = 9
	updated := f.mustSave(t, d)
	assert.False(t, updated.IsGiftSet)
	assert.True(t, dec("100").Equal(updated.Price))

	// only an explicit true turns it back on
	d = DraftFromProduct(updated)
	d.IsGiftSet = boolPtr(true)
	on := f.mustSave(t, d)
	assert.True(t, on.IsGiftSet)
	assert.True(t, dec("1170").Equal(on.Price))
}

func TestProductService_MoveToAnotherCategory(t *testing.T) {
	f := setupProductServiceTest(t)
	p := f.mustSave(t, f.draft("Amber", f.men))
	require.Equal(t, "amber-men", p.Slug)

	d := DraftFromProduct(p)
	d.CategoryID = f.women.ID
	moved := f.mustSave(t, d)

	assert.Equal(t, f.women.ID, moved.CategoryID)
	assert.Equal(t, "Women", moved.CategoryName)
	assert.Equal(t, "amber-women", moved.Slug)

	// a name sent with the move wins
	d = DraftFromProduct(moved)
	d.CategoryID = f.men.ID
	d.CategoryName = "Men's Signature"
	renamed := f.mustSave(t, d)
	assert.Equal(t, "Men's Signature", renamed.CategoryName)
	assert.Equal(t, "amber-men-s-signature", renamed.Slug)

	// staying in the category keeps a custom name
	d = DraftFromProduct(renamed)
	d.Stock = 1
	kept := f.mustSave(t, d)
	assert.Equal(t, "Men's Signature", kept.CategoryName)
}

func TestProductService_Validation(t *testing.T) {
	f := setupProductServiceTest(t)

	tests := []struct {
		name   string
		mutate func(d *ProductDraft)
		field  string
	}{
		{"missing name", func(d *ProductDraft) { d.Name = "   " }, "name"},
		{"missing description", func(d *ProductDraft) { d.Description = "" }, "description"},
		{"missing category", func(d *ProductDraft) { d.CategoryID = 0 }, "category_id"},
		{"unknown category", func(d *ProductDraft) { d.CategoryID = 999 }, "category_id"},
		{"no images", func(d *ProductDraft) { d.Images = nil }, "images"},
		{"negative stock", func(d *ProductDraft) { d.Stock = -1 }, "stock"},
		{"negative price", func(d *ProductDraft) { d.Price = dec("-1") }, "price"},
		{"rating above five", func(d *ProductDraft) { d.Rating = 5.5 }, "rating"},
		{"gender outside enum", func(d *ProductDraft) { d.Gender = "kids" }, "gender"},
		{"discount above 100", func(d *ProductDraft) { d.GiftSetDiscount = dec("101") }, "gift_set_discount"},
		{"negative manual price", func(d *ProductDraft) { d.GiftSetManualPrice = decPtr("-5") }, "gift_set_manual_price"},
		{"negative size price", func(d *ProductDraft) {
			d.Sizes = []model.ProductSize{{Size: "50ml", Price: dec("-1")}}
		}, "sizes[0].price"},
		{"negative quantity", func(d *ProductDraft) {
			d.GiftSetItems = []model.GiftSetItem{{ProductID: 1, Quantity: -2}}
		}, "gift_set_items[0].quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := f.draft("Valid Name", f.perfumes)
			tt.mutate(&d)

			_, err := f.service.SaveProduct(context.Background(), d)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&model.Product{}).Count(&count).Error)
	assert.Zero(t, count, "rejected drafts are never persisted")
}

func TestProductService_DefaultsQuantityToOne(t *testing.T) {
	f := setupProductServiceTest(t)
	a, _ := f.components(t)

	d := f.draft("Single Gift", f.giftSets)
	d.GiftSetItems = []model.GiftSetItem{{ProductID: a.ID}}
	p := f.mustSave(t, d)

	assert.Equal(t, 1, p.GiftSetItems[0].Quantity)
	assert.True(t, dec("500").Equal(p.GiftSetTotalPrice))
}

func TestProductService_RejectsSelfReference(t *testing.T) {
	f := setupProductServiceTest(t)
	p := f.mustSave(t, f.draft("Loop", f.giftSets))

	d := DraftFromProduct(p)
	d.GiftSetItems = []model.GiftSetItem{{ProductID: p.ID, Quantity: 1}}
	_, err := f.service.SaveProduct(context.Background(), d)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "gift_set_items[0].product_id")
}

func TestProductService_UpdateMissingProduct(t *testing.T) {
	f := setupProductServiceTest(t)

	d := f.draft("Ghost", f.perfumes)
	d.ID = 4242
	_, err := f.service.SaveProduct(context.Background(), d)

	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_GetBySlugUsesCache(t *testing.T) {
	f := setupProductServiceTest(t)
	ctx := context.Background()
	p := f.mustSave(t, f.draft("Rose Oud", f.perfumes))

	found, err := f.service.GetProductBySlug(ctx, "Rose-Oud-Perfumes")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	assert.Contains(t, f.cache.items, "rose-oud-perfumes")

	_, err = f.service.GetProductBySlug(ctx, "nope")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_ListProducts(t *testing.T) {
	f := setupProductServiceTest(t)
	a, b := f.components(t)
	f.mustSave(t, f.bundleDraft(a, b))

	yes := true
	page, err := f.service.ListProducts(context.Background(), ProductListOptions{GiftSet: &yes})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "festive-duo-gift-sets", page.Products[0].Slug)

	page, err = f.service.ListProducts(context.Background(), ProductListOptions{CategorySlug: "perfumes"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestProductService_DeleteMissing(t *testing.T) {
	f := setupProductServiceTest(t)

	assert.ErrorIs(t, f.service.DeleteProduct(context.Background(), 77), ErrProductNotFound)
}
