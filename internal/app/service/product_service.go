package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/app/pricing"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/internal/metrics"
	"github.com/vintagebeauty/storefront-backend/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

var tracer = otel.Tracer("storefront/service")

// ProductDraft is the editable part of a product as sent by the admin editor
// or the bulk importer. Derived fields (slug, in_stock, gift-set totals) are
// not accepted from callers.
type ProductDraft struct {
	ID uint `json:"-"`

	Name         string              `json:"name" validate:"required,max=200"`
	Description  string              `json:"description" validate:"required"`
	CategoryID   uint                `json:"category_id" validate:"required"`
	CategoryName string              `json:"category_name" validate:"max=120"`
	Price        decimal.Decimal     `json:"price" validate:"min=0"`
	RegularPrice decimal.Decimal     `json:"regular_price" validate:"min=0"`
	Sizes        []model.ProductSize `json:"sizes" validate:"dive"`
	Stock        int                 `json:"stock" validate:"min=0"`
	Images       []string            `json:"images" validate:"min=1,dive,required"`

	Rating       float64           `json:"rating" validate:"min=0,max=5"`
	Reviews      int               `json:"reviews" validate:"min=0"`
	IsFeatured   bool              `json:"is_featured"`
	IsBestSeller bool              `json:"is_best_seller"`
	IsMostLoved  bool              `json:"is_most_loved"`
	BrandName    string            `json:"brand_name" validate:"max=120"`
	Type         string            `json:"type" validate:"max=120"`
	Material     string            `json:"material"`
	Colour       string            `json:"colour"`
	Gender       model.Gender      `json:"gender" validate:"omitempty,oneof=men women unisex"`
	TopNotes     []string          `json:"top_notes"`
	HeartNotes   []string          `json:"heart_notes"`
	BaseNotes    []string          `json:"base_notes"`
	ScentProfile string            `json:"scent_profile"`
	Performance  model.Performance `json:"performance"`
	Tags         []string          `json:"tags"`
	Utility      string            `json:"utility"`
	Care         string            `json:"care"`

	// IsGiftSet is nil when the caller did not send the flag in this write.
	IsGiftSet          *bool               `json:"is_gift_set"`
	GiftSetItems       []model.GiftSetItem `json:"gift_set_items" validate:"dive"`
	GiftSetDiscount    decimal.Decimal     `json:"gift_set_discount" validate:"min=0,max=100"`
	GiftSetManualPrice *decimal.Decimal    `json:"gift_set_manual_price" validate:"omitempty,min=0"`
}

// DraftFromProduct seeds an update draft with the stored values. The gift-set
// flag is left unset, except for a product with items that was switched off:
// that stays off until an update explicitly turns it back on.
func DraftFromProduct(p *model.Product) ProductDraft {
	var giftSet *bool
	if !p.IsGiftSet && len(p.GiftSetItems) > 0 {
		off := false
		giftSet = &off
	}

	return ProductDraft{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		CategoryID:         p.CategoryID,
		CategoryName:       p.CategoryName,
		Price:              p.Price,
		RegularPrice:       p.RegularPrice,
		Sizes:              append([]model.ProductSize(nil), p.Sizes...),
		Stock:              p.Stock,
		Images:             append([]string(nil), p.Images...),
		Rating:             p.Rating,
		Reviews:            p.Reviews,
		IsFeatured:         p.IsFeatured,
		IsBestSeller:       p.IsBestSeller,
		IsMostLoved:        p.IsMostLoved,
		BrandName:          p.BrandName,
		Type:               p.Type,
		Material:           p.Material,
		Colour:             p.Colour,
		Gender:             p.Gender,
		TopNotes:           append([]string(nil), p.TopNotes...),
		HeartNotes:         append([]string(nil), p.HeartNotes...),
		BaseNotes:          append([]string(nil), p.BaseNotes...),
		ScentProfile:       p.ScentProfile,
		Performance:        p.Performance.Data(),
		Tags:               append([]string(nil), p.Tags...),
		Utility:            p.Utility,
		Care:               p.Care,
		IsGiftSet:          giftSet,
		GiftSetItems:       append([]model.GiftSetItem(nil), p.GiftSetItems...),
		GiftSetDiscount:    p.GiftSetDiscount,
		GiftSetManualPrice: p.GiftSetManualPrice,
	}
}

type ProductListOptions struct {
	CategoryID    *uint
	CategorySlug  string
	Gender        *model.Gender
	Featured      *bool
	BestSeller    *bool
	MostLoved     *bool
	GiftSet       *bool
	InStock       *bool
	Search        string
	Sort          repository.ProductSort
	SortAscending bool
	Limit         int
	Offset        int
}

type ProductPage struct {
	Products []model.Product `json:"products"`
	Total    int64           `json:"total"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}

// GiftSetAuditEntry describes one bundle whose stored totals no longer match
// its constituents.
type GiftSetAuditEntry struct {
	ProductID       uint            `json:"product_id"`
	Slug            string          `json:"slug"`
	StoredTotal     decimal.Decimal `json:"stored_total"`
	CurrentTotal    decimal.Decimal `json:"current_total"`
	StoredPrice     decimal.Decimal `json:"stored_price"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	UnresolvedItems int             `json:"unresolved_items"`
}

type GiftSetAuditReport struct {
	CheckedAt time.Time           `json:"checked_at"`
	Checked   int                 `json:"checked"`
	Stale     []GiftSetAuditEntry `json:"stale"`
}

type ProductService interface {
	SaveProduct(ctx context.Context, draft ProductDraft) (*model.Product, error)
	GetProduct(ctx context.Context, id uint) (*model.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*model.Product, error)
	ListProducts(ctx context.Context, opts ProductListOptions) (*ProductPage, error)
	DeleteProduct(ctx context.Context, id uint) error
	RepriceProduct(ctx context.Context, id uint) (*model.Product, error)
	AuditGiftSets(ctx context.Context) (*GiftSetAuditReport, error)
}

type productService struct {
	productRepo      repository.ProductRepository
	categoryRepo     repository.CategoryRepository
	cache            ProductCache
	defaultBrandName string
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	cache ProductCache,
	defaultBrandName string,
) ProductService {
	if cache == nil {
		cache = noopProductCache{}
	}
	if defaultBrandName == "" {
		defaultBrandName = model.DefaultBrandName
	}
	return &productService{
		productRepo:      productRepo,
		categoryRepo:     categoryRepo,
		cache:            cache,
		defaultBrandName: defaultBrandName,
	}
}

// SaveProduct validates the draft, derives slug, availability and gift-set
// pricing, and persists the result. It creates when draft.ID is zero.
func (s *productService) SaveProduct(ctx context.Context, draft ProductDraft) (*model.Product, error) {
	operation := "create"
	if draft.ID != 0 {
		operation = "update"
	}

	ctx, span := tracer.Start(ctx, "ProductService.SaveProduct",
		trace.WithAttributes(
			attribute.String("product.operation", operation),
			attribute.Int("product.id", int(draft.ID)),
		),
	)
	defer span.End()

	log := logger.FromContext(ctx)

	product, err := s.saveProduct(ctx, draft)
	if err != nil {
		outcome := saveOutcome(err)
		metrics.ProductSavesTotal.WithLabelValues(operation, outcome).Inc()
		span.SetAttributes(attribute.String("product.outcome", outcome))
		if outcome == metrics.OutcomeError {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Error("Failed to save product", err, map[string]interface{}{
				"product_id": draft.ID,
				"name":       draft.Name,
			})
		} else {
			log.Warn("Product save rejected", map[string]interface{}{
				"product_id": draft.ID,
				"name":       draft.Name,
				"reason":     err.Error(),
			})
		}
		return nil, err
	}

	metrics.ProductSavesTotal.WithLabelValues(operation, metrics.OutcomeOK).Inc()
	span.SetAttributes(attribute.String("product.slug", product.Slug))

	log.Info("Product saved", map[string]interface{}{
		"operation":   operation,
		"product_id":  product.ID,
		"slug":        product.Slug,
		"is_gift_set": product.IsGiftSet,
		"price":       product.Price.String(),
	})
	return product, nil
}

func (s *productService) saveProduct(ctx context.Context, draft ProductDraft) (*model.Product, error) {
	normalizeDraft(&draft)
	if draft.BrandName == "" {
		draft.BrandName = s.defaultBrandName
	}

	if err := validateStruct(draft); err != nil {
		return nil, err
	}
	if draft.ID != 0 {
		for i, item := range draft.GiftSetItems {
			if item.ProductID == draft.ID {
				return nil, NewValidationError(indexedField("gift_set_items", i, "product_id"), "must not reference the product itself")
			}
		}
	}

	var prior *model.Product
	product := &model.Product{}
	if draft.ID != 0 {
		var err error
		prior, err = s.productRepo.FindByID(ctx, draft.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
		copied := *prior
		product = &copied
	}

	category, err := s.categoryRepo.FindByID(draft.CategoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewValidationError("category_id", "does not exist")
		}
		return nil, err
	}
	// A product moved to another category takes the new category's name
	// unless the write also names it.
	movedWithStaleName := prior != nil &&
		draft.CategoryID != prior.CategoryID &&
		draft.CategoryName == prior.CategoryName
	if draft.CategoryName == "" || movedWithStaleName {
		draft.CategoryName = category.Name
	}
	applyDraft(product, draft)

	input := pricing.NewInput(product, prior, draft.IsGiftSet)
	var components pricing.Components
	if pricing.NeedsComponents(input) {
		components = s.resolveComponents(ctx, product.ID, input.GiftSetItems)
	}

	fields := pricing.Derive(input, components)
	fields.Apply(product)

	if fields.GiftSet != nil && fields.GiftSet.UnresolvedItems > 0 {
		logger.FromContext(ctx).Warn("Gift set saved with unresolved items", map[string]interface{}{
			"product_id":       product.ID,
			"slug":             product.Slug,
			"unresolved_items": fields.GiftSet.UnresolvedItems,
			"total_price":      fields.GiftSet.TotalPrice.String(),
		})
	}

	if prior == nil {
		err = s.productRepo.Create(ctx, product)
	} else {
		err = s.productRepo.Update(ctx, product)
	}
	if err != nil {
		if isDuplicateKey(err) {
			return nil, &UniquenessError{Field: "slug", Value: product.Slug, Err: ErrSlugConflict}
		}
		return nil, err
	}

	if prior != nil {
		s.cache.Invalidate(ctx, prior.Slug, product.Slug)
	} else {
		s.cache.Invalidate(ctx, product.Slug)
	}
	return product, nil
}

// resolveComponents looks up every product a gift set references. A missing
// product is skipped; an unexpected lookup error stops resolution and the
// bundle is priced from what was resolved so far. Neither is returned.
func (s *productService) resolveComponents(ctx context.Context, selfID uint, items []model.GiftSetItem) pricing.Components {
	log := logger.FromContext(ctx)
	components := make(pricing.Components, len(items))

	for _, item := range items {
		if _, done := components[item.ProductID]; done {
			continue
		}

		component, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				metrics.GiftSetUnresolvedItemsTotal.WithLabelValues(metrics.ReasonMissing).Inc()
				log.Warn("Gift set item references a missing product", map[string]interface{}{
					"gift_set_id": selfID,
					"product_id":  item.ProductID,
				})
				continue
			}
			metrics.GiftSetUnresolvedItemsTotal.WithLabelValues(metrics.ReasonLookupError).Inc()
			log.Error("Gift set item lookup failed, pricing from partial totals", err, map[string]interface{}{
				"gift_set_id": selfID,
				"product_id":  item.ProductID,
				"resolved":    len(components),
			})
			break
		}

		components[item.ProductID] = pricing.ComponentOf(component)
	}
	return components
}

func normalizeDraft(d *ProductDraft) {
	d.Name = strings.TrimSpace(d.Name)
	d.CategoryName = strings.TrimSpace(d.CategoryName)
	d.Material = strings.TrimSpace(d.Material)
	d.Colour = strings.TrimSpace(d.Colour)
	d.Utility = strings.TrimSpace(d.Utility)
	d.Care = strings.TrimSpace(d.Care)
	d.Gender = model.Gender(strings.ToLower(strings.TrimSpace(string(d.Gender))))

	for i := range d.GiftSetItems {
		if d.GiftSetItems[i].Quantity == 0 {
			d.GiftSetItems[i].Quantity = 1
		}
		d.GiftSetItems[i].SelectedSize = strings.TrimSpace(d.GiftSetItems[i].SelectedSize)
	}
}

// applyDraft copies the editable fields onto p. Derived fields are set later by pricing.
func applyDraft(p *model.Product, d ProductDraft) {
	p.Name = d.Name
	p.Description = d.Description
	p.CategoryID = d.CategoryID
	p.CategoryName = d.CategoryName
	p.Price = d.Price
	p.RegularPrice = d.RegularPrice
	p.Sizes = d.Sizes
	p.Stock = d.Stock
	p.Images = d.Images
	p.Rating = d.Rating
	p.Reviews = d.Reviews
	p.IsFeatured = d.IsFeatured
	p.IsBestSeller = d.IsBestSeller
	p.IsMostLoved = d.IsMostLoved
	p.BrandName = d.BrandName
	p.Type = d.Type
	p.Material = d.Material
	p.Colour = d.Colour
	p.Gender = d.Gender
	p.TopNotes = d.TopNotes
	p.HeartNotes = d.HeartNotes
	p.BaseNotes = d.BaseNotes
	p.ScentProfile = d.ScentProfile
	p.Performance = datatypes.NewJSONType(d.Performance)
	p.Tags = d.Tags
	p.Utility = d.Utility
	p.Care = d.Care
	p.GiftSetItems = d.GiftSetItems
	p.GiftSetDiscount = d.GiftSetDiscount
	p.GiftSetManualPrice = d.GiftSetManualPrice
}

func indexedField(list string, index int, field string) string {
	return fmt.Sprintf("%s[%d].%s", list, index, field)
}

func saveOutcome(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return metrics.OutcomeValidation
	case errors.Is(err, ErrDuplicate):
		return metrics.OutcomeConflict
	case errors.Is(err, ErrProductNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

func (s *productService) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	logger.Debug("Fetching product by ID", map[string]interface{}{
		"product_id": id,
	})

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found", map[string]interface{}{
				"product_id": id,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return product, nil
}

func (s *productService) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))

	if cached, ok := s.cache.Get(ctx, slug); ok {
		return cached, nil
	}

	product, err := s.productRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found by slug", map[string]interface{}{
				"slug": slug,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product by slug", err, map[string]interface{}{
			"slug": slug,
		})
		return nil, err
	}

	s.cache.Set(ctx, product)
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, opts ProductListOptions) (*ProductPage, error) {
	logger.Debug("Listing products", map[string]interface{}{
		"category_id":   opts.CategoryID,
		"category_slug": opts.CategorySlug,
		"search":        opts.Search,
		"sort":          opts.Sort,
		"limit":         opts.Limit,
		"offset":        opts.Offset,
	})

	filter := repository.ProductFilter{
		CategoryID:    opts.CategoryID,
		CategorySlug:  opts.CategorySlug,
		Gender:        opts.Gender,
		Featured:      opts.Featured,
		BestSeller:    opts.BestSeller,
		MostLoved:     opts.MostLoved,
		GiftSet:       opts.GiftSet,
		InStock:       opts.InStock,
		Search:        strings.TrimSpace(opts.Search),
		SortBy:        opts.Sort,
		SortAscending: opts.SortAscending,
		Limit:         opts.Limit,
		Offset:        opts.Offset,
	}

	products, total, err := s.productRepo.FindWithFilter(ctx, filter)
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, err
	}

	logger.Info("Products listed", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return &ProductPage{
		Products: products,
		Total:    total,
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	}, nil
}

// DeleteProduct removes the product. Bundles that reference it keep their
// stored totals until they are saved again.
func (s *productService) DeleteProduct(ctx context.Context, id uint) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		logger.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	s.cache.Invalidate(ctx, product.Slug)

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
		"slug":       product.Slug,
	})
	return nil
}

// RepriceProduct re-saves a product unchanged so its gift-set totals are
// recomputed from the current constituent prices.
func (s *productService) RepriceProduct(ctx context.Context, id uint) (*model.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.SaveProduct(ctx, DraftFromProduct(product))
}

// AuditGiftSets compares each gift set's stored totals with a fresh
// derivation. Nothing is written.
func (s *productService) AuditGiftSets(ctx context.Context) (*GiftSetAuditReport, error) {
	ctx, span := tracer.Start(ctx, "ProductService.AuditGiftSets")
	defer span.End()

	giftSets, err := s.productRepo.FindGiftSets(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("Failed to load gift sets for audit", err)
		return nil, err
	}

	report := &GiftSetAuditReport{
		CheckedAt: time.Now().UTC(),
		Stale:     []GiftSetAuditEntry{},
	}

	for i := range giftSets {
		bundle := &giftSets[i]
		input := pricing.NewInput(bundle, bundle, nil)
		if !pricing.NeedsComponents(input) {
			continue
		}
		report.Checked++

		fields := pricing.Derive(input, s.resolveComponents(ctx, bundle.ID, input.GiftSetItems))
		current := fields.GiftSet
		if current.TotalPrice.Equal(bundle.GiftSetTotalPrice) && current.Price.Equal(bundle.Price) {
			continue
		}

		report.Stale = append(report.Stale, GiftSetAuditEntry{
			ProductID:       bundle.ID,
			Slug:            bundle.Slug,
			StoredTotal:     bundle.GiftSetTotalPrice,
			CurrentTotal:    current.TotalPrice,
			StoredPrice:     bundle.Price,
			CurrentPrice:    current.Price,
			UnresolvedItems: current.UnresolvedItems,
		})
	}

	metrics.GiftSetAuditStale.Set(float64(len(report.Stale)))
	span.SetAttributes(
		attribute.Int("audit.checked", report.Checked),
		attribute.Int("audit.stale", len(report.Stale)),
	)

	logger.Info("Gift set audit completed", map[string]interface{}{
		"checked": report.Checked,
		"stale":   len(report.Stale),
	})
	return report, nil
}
