package controller

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/internal/app/service"
	apperrors "github.com/vintagebeauty/storefront-backend/internal/errors"
	"github.com/vintagebeauty/storefront-backend/internal/middleware"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ProductController struct {
	productService service.ProductService
	catalogIO      service.CatalogIOService
	maxImportBytes int64
}

func NewProductController(
	productService service.ProductService,
	catalogIO service.CatalogIOService,
	maxImportBytes int64,
) *ProductController {
	return &ProductController{
		productService: productService,
		catalogIO:      catalogIO,
		maxImportBytes: maxImportBytes,
	}
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", key)
	}
	return &v, nil
}

func queryInt(c *gin.Context, key string, fallback, min, max int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return 0, fmt.Errorf("%s must be a number of at least %d", key, min)
	}
	if max > 0 && v > max {
		v = max
	}
	return v, nil
}

func parseProductListOptions(c *gin.Context) (service.ProductListOptions, map[string]string) {
	opts := service.ProductListOptions{
		CategorySlug: strings.TrimSpace(c.Query("category")),
		Search:       c.Query("search"),
	}
	fields := map[string]string{}

	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			fields["category_id"] = "must be a number"
		} else {
			v := uint(id)
			opts.CategoryID = &v
		}
	}

	if raw := strings.ToLower(c.Query("gender")); raw != "" {
		g := model.Gender(raw)
		if !g.Valid() {
			fields["gender"] = "must be one of men, women, unisex"
		}
		opts.Gender = &g
	}

	for key, dest := range map[string]**bool{
		"featured":    &opts.Featured,
		"best_seller": &opts.BestSeller,
		"most_loved":  &opts.MostLoved,
		"gift_set":    &opts.GiftSet,
		"in_stock":    &opts.InStock,
	} {
		v, err := queryBool(c, key)
		if err != nil {
			fields[key] = err.Error()
			continue
		}
		*dest = v
	}

	switch sort := repository.ProductSort(c.DefaultQuery("sort", string(repository.ProductSortCreatedAt))); sort {
	case repository.ProductSortPrice, repository.ProductSortCreatedAt, repository.ProductSortRating, repository.ProductSortName:
		opts.Sort = sort
	default:
		fields["sort"] = "must be one of price, created_at, rating, name"
	}

	switch strings.ToLower(c.DefaultQuery("order", "desc")) {
	case "asc":
		opts.SortAscending = true
	case "desc":
	default:
		fields["order"] = "must be asc or desc"
	}

	var err error
	if opts.Limit, err = queryInt(c, "limit", defaultPageSize, 1, maxPageSize); err != nil {
		fields["limit"] = err.Error()
	}
	if opts.Offset, err = queryInt(c, "offset", 0, 0, 0); err != nil {
		fields["offset"] = err.Error()
	}

	return opts, fields
}

// ListProducts returns a filtered page of the catalog
// GET /api/v1/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	opts, fields := parseProductListOptions(c)
	if len(fields) > 0 {
		apperrors.RespondWithValidationError(c, fields)
		return
	}

	page, err := ctrl.productService.ListProducts(c.Request.Context(), opts)
	if err != nil {
		respondServiceError(c, err, "product")
		return
	}

	c.JSON(http.StatusOK, page)
}

func (ctrl *ProductController) respondProductError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrProductNotFound) {
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
		return
	}
	respondServiceError(c, err, "product")
}

// GetProductByID returns a product by ID
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// GetProductBySlug returns a product by its storefront slug
// GET /api/v1/products/slug/:slug
func (ctrl *ProductController) GetProductBySlug(c *gin.Context) {
	product, err := ctrl.productService.GetProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// CreateProduct creates a product
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var draft service.ProductDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		log.Warn("Invalid product request", map[string]interface{}{
			"error": err.Error(),
		})
		respondBindError(c, err)
		return
	}
	draft.ID = 0

	product, err := ctrl.productService.SaveProduct(c.Request.Context(), draft)
	if err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	log.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// UpdateProduct applies the sent fields over the stored product
// PUT /api/v1/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	existing, err := ctrl.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	draft := service.DraftFromProduct(existing)
	if err := c.ShouldBindJSON(&draft); err != nil {
		log.Warn("Invalid product request", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		respondBindError(c, err)
		return
	}
	draft.ID = id

	product, err := ctrl.productService.SaveProduct(c.Request.Context(), draft)
	if err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	log.Info("Product updated", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct removes a product. Bundles that reference it keep their stored totals.
// DELETE /api/v1/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// RepriceProduct recomputes a gift set from its current components
// POST /api/v1/products/:id/reprice
func (ctrl *ProductController) RepriceProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.RepriceProduct(c.Request.Context(), id)
	if err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// AuditGiftSets lists gift sets whose stored totals are stale
// GET /api/v1/products/audit/gift-sets
func (ctrl *ProductController) AuditGiftSets(c *gin.Context) {
	report, err := ctrl.productService.AuditGiftSets(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "product")
		return
	}

	c.JSON(http.StatusOK, report)
}

// ImportProducts creates or updates products from an uploaded XLSX workbook
// POST /api/v1/products/import
func (ctrl *ProductController) ImportProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ctrl.maxImportBytes+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		log.Warn("Import without file", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationRequired, "Attach the workbook as form field \"file\"")
		return
	}
	if header.Size > ctrl.maxImportBytes {
		apperrors.RespondWithError(c, http.StatusRequestEntityTooLarge, apperrors.UploadFileTooLarge, fmt.Sprintf("The workbook must be at most %d bytes", ctrl.maxImportBytes))
		return
	}

	file, err := header.Open()
	if err != nil {
		log.Error("Failed to open uploaded workbook", err)
		apperrors.InternalError(c, "")
		return
	}
	defer file.Close()

	report, err := ctrl.catalogIO.ImportProducts(c.Request.Context(), file)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			apperrors.BadRequest(c, apperrors.ImportInvalidFile, "The file is not a readable XLSX workbook")
		case errors.Is(err, service.ErrEmptyWorkbook):
			apperrors.BadRequest(c, apperrors.ImportInvalidFile, "The workbook has no product rows")
		default:
			respondServiceError(c, err, "product")
		}
		return
	}

	log.Info("Catalog import finished", map[string]interface{}{
		"filename": header.Filename,
		"rows":     report.Rows,
		"created":  report.Created,
		"updated":  report.Updated,
		"failed":   report.Failed,
	})
	c.JSON(http.StatusOK, report)
}

// ExportProducts streams the whole catalog as an XLSX workbook
// GET /api/v1/products/export
func (ctrl *ProductController) ExportProducts(c *gin.Context) {
	var buf bytes.Buffer
	if err := ctrl.catalogIO.ExportProducts(c.Request.Context(), &buf); err != nil {
		middleware.GetLoggerFromContext(c).Error("Catalog export failed", err)
		apperrors.InternalError(c, "Export failed. Please try again")
		return
	}

	filename := fmt.Sprintf("products-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
