package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// ErrStockConflict is returned by AdjustStock when a decrement would take stock below zero.
var ErrStockConflict = errors.New("stock would become negative")

type ProductSort string

const (
	ProductSortPrice     ProductSort = "price"
	ProductSortCreatedAt ProductSort = "created_at"
	ProductSortRating    ProductSort = "rating"
	ProductSortName      ProductSort = "name"
)

type ProductFilter struct {
	CategoryID    *uint
	CategorySlug  string
	Gender        *model.Gender
	Featured      *bool
	BestSeller    *bool
	MostLoved     *bool
	GiftSet       *bool
	InStock       *bool
	Search        string
	SortBy        ProductSort
	SortAscending bool
	Limit         int
	Offset        int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Product, error)
	FindWithFilter(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	FindGiftSets(ctx context.Context) ([]model.Product, error)
	Delete(ctx context.Context, id uint) error
	AdjustStock(ctx context.Context, id uint, delta int) error
	WithTx(tx *gorm.DB) ProductRepository
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepository{db: tx}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":        product.Name,
		"slug":        product.Slug,
		"category_id": product.CategoryID,
	})

	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name":        product.Name,
			"slug":        product.Slug,
			"category_id": product.CategoryID,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})
	return nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})

	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
			"slug":       product.Slug,
		})
		return err
	}

	logger.Debug("Product updated in database", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	logger.Debug("Finding product by ID in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find product by ID in database", err, map[string]interface{}{
				"product_id": id,
			})
		}
		return nil, err
	}

	logger.Debug("Product found by ID in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return &product, nil
}

func (r *productRepository) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	logger.Debug("Finding product by slug in database", map[string]interface{}{
		"slug": slug,
	})

	var product model.Product
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&product).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find product by slug in database", err, map[string]interface{}{
				"slug": slug,
			})
		}
		return nil, err
	}

	logger.Debug("Product found by slug in database", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})
	return &product, nil
}

// FindByIDs returns the products that exist among ids; missing ids are simply absent.
func (r *productRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	logger.Debug("Finding products by IDs in database", map[string]interface{}{
		"count": len(ids),
	})

	var products []model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		logger.Error("Failed to find products by IDs in database", err, map[string]interface{}{
			"ids": ids,
		})
		return nil, err
	}

	logger.Debug("Products found by IDs in database", map[string]interface{}{
		"requested": len(ids),
		"found":     len(products),
	})
	return products, nil
}

func (r *productRepository) filtered(ctx context.Context, filter ProductFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.Product{})

	if filter.CategoryID != nil {
		query = query.Where("products.category_id = ?", *filter.CategoryID)
	}
	if filter.CategorySlug != "" {
		categoryIDs := r.db.Model(&model.Category{}).Select("id").Where("slug = ?", filter.CategorySlug)
		query = query.Where("products.category_id IN (?)", categoryIDs)
	}
	if filter.Gender != nil {
		query = query.Where("products.gender = ?", *filter.Gender)
	}
	if filter.Featured != nil {
		query = query.Where("products.is_featured = ?", *filter.Featured)
	}
	if filter.BestSeller != nil {
		query = query.Where("products.is_best_seller = ?", *filter.BestSeller)
	}
	if filter.MostLoved != nil {
		query = query.Where("products.is_most_loved = ?", *filter.MostLoved)
	}
	if filter.GiftSet != nil {
		query = query.Where("products.is_gift_set = ?", *filter.GiftSet)
	}
	if filter.InStock != nil {
		query = query.Where("products.in_stock = ?", *filter.InStock)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ? OR LOWER(products.category_name) LIKE ?", like, like, like)
	}
	return query
}

func (r *productRepository) FindWithFilter(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"category_id":   filter.CategoryID,
		"category_slug": filter.CategorySlug,
		"gift_set":      filter.GiftSet,
		"search":        filter.Search,
		"sort_by":       filter.SortBy,
		"ascending":     filter.SortAscending,
		"limit":         filter.Limit,
		"offset":        filter.Offset,
	})

	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		logger.Error("Failed to count products with filter", err, map[string]interface{}{
			"search": filter.Search,
		})
		return nil, 0, err
	}

	direction := "DESC"
	if filter.SortAscending {
		direction = "ASC"
	}

	query := r.filtered(ctx, filter)
	switch filter.SortBy {
	case ProductSortPrice:
		query = query.Order("products.price " + direction)
	case ProductSortRating:
		query = query.Order("products.rating " + direction)
	case ProductSortName:
		query = query.Order("products.name " + direction)
	case ProductSortCreatedAt:
		fallthrough
	default:
		query = query.Order("products.created_at " + direction)
	}
	query = query.Order("products.id " + direction)

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		logger.Error("Failed to find products with filter", err, map[string]interface{}{
			"search": filter.Search,
		})
		return nil, 0, err
	}

	logger.Debug("Products found with filter", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (r *productRepository) FindGiftSets(ctx context.Context) ([]model.Product, error) {
	logger.Debug("Finding gift sets in database", nil)

	var products []model.Product
	if err := r.db.WithContext(ctx).
		Where("is_gift_set = ?", true).
		Order("id ASC").
		Find(&products).Error; err != nil {
		logger.Error("Failed to find gift sets in database", err, nil)
		return nil, err
	}

	logger.Debug("Gift sets found in database", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

// Delete removes the row. Gift sets referencing the product are left untouched.
func (r *productRepository) Delete(ctx context.Context, id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	result := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete product from database", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.Debug("Product deleted from database", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

// AdjustStock adds delta to the stock and recomputes in_stock in the same statement.
func (r *productRepository) AdjustStock(ctx context.Context, id uint, delta int) error {
	logger.Debug("Adjusting product stock in database", map[string]interface{}{
		"product_id": id,
		"delta":      delta,
	})

	query := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id)
	if delta < 0 {
		query = query.Where("stock >= ?", -delta)
	}

	result := query.Updates(map[string]interface{}{
		"stock":    gorm.Expr("stock + ?", delta),
		"in_stock": gorm.Expr("stock + ? > 0", delta),
	})
	if result.Error != nil {
		logger.Error("Failed to adjust product stock in database", result.Error, map[string]interface{}{
			"product_id": id,
			"delta":      delta,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		logger.Warn("Stock adjustment matched no product", map[string]interface{}{
			"product_id": id,
			"delta":      delta,
		})
		return ErrStockConflict
	}

	logger.Debug("Product stock adjusted in database", map[string]interface{}{
		"product_id": id,
		"delta":      delta,
	})
	return nil
}
