package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/app/pricing"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const catalogSheet = "Products"

// List cells hold several values separated by listSeparator. Sizes are
// "size:price", gift-set items "slug-or-id:quantity[:size]".
const (
	listSeparator = "|"
	pairSeparator = ":"
)

// catalogColumns is the export order. Import matches headers by name, so
// columns may be reordered or left out.
var catalogColumns = []string{
	"name", "description", "category", "category_name", "price", "regular_price", "sizes",
	"stock", "images", "rating", "reviews", "is_featured", "is_best_seller", "is_most_loved",
	"brand_name", "type", "material", "colour", "gender", "top_notes", "heart_notes", "base_notes",
	"scent_profile", "tags", "utility", "care", "is_gift_set", "gift_set_items",
	"gift_set_discount", "gift_set_manual_price", "slug",
}

var ErrEmptyWorkbook = errors.New("workbook has no product rows")

type ImportRowError struct {
	Row    int               `json:"row"`
	Name   string            `json:"name,omitempty"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type ImportReport struct {
	Rows    int              `json:"rows"`
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Failed  int              `json:"failed"`
	Errors  []ImportRowError `json:"errors"`
}

type CatalogIOService interface {
	ImportProducts(ctx context.Context, r io.Reader) (*ImportReport, error)
	ExportProducts(ctx context.Context, w io.Writer) error
}

type catalogIOService struct {
	productService ProductService
	productRepo    repository.ProductRepository
	categoryRepo   repository.CategoryRepository
}

func NewCatalogIOService(
	productService ProductService,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
) CatalogIOService {
	return &catalogIOService{
		productService: productService,
		productRepo:    productRepo,
		categoryRepo:   categoryRepo,
	}
}

// ImportProducts saves one product per row of the first sheet. A row whose
// derived slug matches an existing product updates it; empty cells keep the
// stored value. Rows fail independently and are listed in the report.
func (s *catalogIOService) ImportProducts(ctx context.Context, r io.Reader) (*ImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewValidationError("file", "is not a readable XLSX workbook")
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrEmptyWorkbook
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyWorkbook
	}

	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := header["name"]; !ok {
		return nil, NewValidationError("file", "header row must contain a name column")
	}

	log := logger.FromContext(ctx)
	log.Info("Importing products from workbook", map[string]interface{}{
		"sheet": sheetName,
		"rows":  len(rows) - 1,
	})

	report := &ImportReport{Errors: []ImportRowError{}}
	for i, cells := range rows[1:] {
		rowNumber := i + 2
		row := catalogRow{header: header, cells: cells}
		if row.blank() {
			continue
		}
		report.Rows++

		created, err := s.importRow(ctx, row)
		if err != nil {
			report.Failed++
			rowErr := ImportRowError{Row: rowNumber, Name: row.get("name"), Error: err.Error()}
			var verr *ValidationError
			if errors.As(err, &verr) {
				rowErr.Error = "validation failed"
				rowErr.Fields = verr.Fields
			}
			report.Errors = append(report.Errors, rowErr)
			continue
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}

	log.Info("Product import finished", map[string]interface{}{
		"rows":    report.Rows,
		"created": report.Created,
		"updated": report.Updated,
		"failed":  report.Failed,
	})
	return report, nil
}

func (s *catalogIOService) importRow(ctx context.Context, row catalogRow) (bool, error) {
	category, err := s.resolveCategory(row.get("category"))
	if err != nil {
		return false, err
	}

	name := row.get("name")
	categoryName := row.get("category_name")
	if categoryName == "" {
		categoryName = category.Name
	}

	draft := ProductDraft{}
	existing, err := s.productRepo.FindBySlug(ctx, pricing.ProductSlug(name, categoryName))
	switch {
	case err == nil:
		draft = DraftFromProduct(existing)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	draft.Name = name
	draft.CategoryID = category.ID
	if err := s.applyRow(ctx, &draft, row); err != nil {
		return false, err
	}

	if _, err := s.productService.SaveProduct(ctx, draft); err != nil {
		return false, err
	}
	return existing == nil, nil
}

func (s *catalogIOService) resolveCategory(value string) (*model.Category, error) {
	if value == "" {
		return nil, NewValidationError("category", "is required")
	}

	var (
		category *model.Category
		err      error
	)
	if id, convErr := strconv.ParseUint(value, 10, 64); convErr == nil {
		category, err = s.categoryRepo.FindByID(uint(id))
	} else {
		category, err = s.categoryRepo.FindBySlug(pricing.Slugify(value))
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewValidationError("category", fmt.Sprintf("%q does not exist", value))
		}
		return nil, err
	}
	return category, nil
}

// applyRow overlays the non-empty cells of row onto d.
func (s *catalogIOService) applyRow(ctx context.Context, d *ProductDraft, row catalogRow) error {
	fields := map[string]string{}
	fail := func(column string, err error) {
		fields[column] = err.Error()
	}

	row.text("description", &d.Description)
	row.text("category_name", &d.CategoryName)
	row.text("brand_name", &d.BrandName)
	row.text("type", &d.Type)
	row.text("material", &d.Material)
	row.text("colour", &d.Colour)
	row.text("scent_profile", &d.ScentProfile)
	row.text("utility", &d.Utility)
	row.text("care", &d.Care)
	if v := row.get("gender"); v != "" {
		d.Gender = model.Gender(v)
	}

	row.list("images", &d.Images)
	row.list("top_notes", &d.TopNotes)
	row.list("heart_notes", &d.HeartNotes)
	row.list("base_notes", &d.BaseNotes)
	row.list("tags", &d.Tags)

	for column, dest := range map[string]*decimal.Decimal{
		"price":             &d.Price,
		"regular_price":     &d.RegularPrice,
		"gift_set_discount": &d.GiftSetDiscount,
	} {
		if err := row.decimal(column, dest); err != nil {
			fail(column, err)
		}
	}
	if v := row.get("gift_set_manual_price"); v != "" {
		manual, err := decimal.NewFromString(v)
		if err != nil {
			fail("gift_set_manual_price", errNotANumber)
		} else {
			d.GiftSetManualPrice = &manual
		}
	}

	if err := row.integer("stock", &d.Stock); err != nil {
		fail("stock", err)
	}
	if err := row.integer("reviews", &d.Reviews); err != nil {
		fail("reviews", err)
	}
	if v := row.get("rating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fail("rating", errNotANumber)
		} else {
			d.Rating = rating
		}
	}

	for column, dest := range map[string]*bool{
		"is_featured":    &d.IsFeatured,
		"is_best_seller": &d.IsBestSeller,
		"is_most_loved":  &d.IsMostLoved,
	} {
		if err := row.boolean(column, dest); err != nil {
			fail(column, err)
		}
	}
	if row.get("is_gift_set") != "" {
		var flag bool
		if err := row.boolean("is_gift_set", &flag); err != nil {
			fail("is_gift_set", err)
		} else {
			d.IsGiftSet = &flag
		}
	}

	if v := row.get("sizes"); v != "" {
		sizes, err := parseSizes(v)
		if err != nil {
			fail("sizes", err)
		} else {
			d.Sizes = sizes
		}
	}
	if v := row.get("gift_set_items"); v != "" {
		items, err := s.parseGiftSetItems(ctx, v)
		if err != nil {
			fail("gift_set_items", err)
		} else {
			d.GiftSetItems = items
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

var errNotANumber = errors.New("must be a number")

func parseSizes(v string) ([]model.ProductSize, error) {
	var sizes []model.ProductSize
	for _, entry := range splitList(v) {
		i := strings.LastIndex(entry, pairSeparator)
		if i <= 0 {
			return nil, fmt.Errorf("%q must look like size:price", entry)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(entry[i+1:]))
		if err != nil {
			return nil, fmt.Errorf("%q has an invalid price", entry)
		}
		sizes = append(sizes, model.ProductSize{Size: strings.TrimSpace(entry[:i]), Price: price})
	}
	return sizes, nil
}

// parseGiftSetItems accepts a product id or slug per item. A slug that does
// not exist cannot become an id, so it fails the row.
func (s *catalogIOService) parseGiftSetItems(ctx context.Context, v string) ([]model.GiftSetItem, error) {
	var items []model.GiftSetItem
	for _, entry := range splitList(v) {
		parts := strings.Split(entry, pairSeparator)
		ref := strings.TrimSpace(parts[0])

		item := model.GiftSetItem{Quantity: 1}
		if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
			item.ProductID = uint(id)
		} else {
			product, err := s.productRepo.FindBySlug(ctx, strings.ToLower(ref))
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, fmt.Errorf("unknown product %q", ref)
				}
				return nil, err
			}
			item.ProductID = product.ID
		}

		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			quantity, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil {
				return nil, fmt.Errorf("%q has an invalid quantity", entry)
			}
			item.Quantity = quantity
		}
		if len(parts) > 2 {
			item.SelectedSize = strings.TrimSpace(strings.Join(parts[2:], pairSeparator))
		}
		items = append(items, item)
	}
	return items, nil
}

// ExportProducts writes the whole catalog as a workbook in the import layout.
func (s *catalogIOService) ExportProducts(ctx context.Context, w io.Writer) error {
	products, _, err := s.productRepo.FindWithFilter(ctx, repository.ProductFilter{
		SortBy:        repository.ProductSortName,
		SortAscending: true,
	})
	if err != nil {
		logger.Error("Failed to load products for export", err)
		return err
	}

	slugs := make(map[uint]string, len(products))
	for _, p := range products {
		slugs[p.ID] = p.Slug
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), catalogSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(catalogColumns))
	for i, c := range catalogColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(catalogSheet, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(catalogColumns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(catalogSheet, "A1", lastHeader, bold); err != nil {
		return err
	}

	for i := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := exportRow(&products[i], slugs)
		if err := f.SetSheetRow(catalogSheet, cell, &values); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		logger.Error("Failed to write catalog workbook", err)
		return err
	}

	logger.Info("Catalog exported", map[string]interface{}{
		"products": len(products),
	})
	return nil
}

func exportRow(p *model.Product, slugs map[uint]string) []interface{} {
	sizes := make([]string, 0, len(p.Sizes))
	for _, size := range p.Sizes {
		sizes = append(sizes, size.Size+pairSeparator+size.Price.String())
	}

	items := make([]string, 0, len(p.GiftSetItems))
	for _, item := range p.GiftSetItems {
		ref, ok := slugs[item.ProductID]
		if !ok {
			ref = strconv.FormatUint(uint64(item.ProductID), 10)
		}
		entry := ref + pairSeparator + strconv.Itoa(item.Quantity)
		if item.SelectedSize != "" {
			entry += pairSeparator + item.SelectedSize
		}
		items = append(items, entry)
	}

	manual := ""
	if p.GiftSetManualPrice != nil {
		manual = p.GiftSetManualPrice.String()
	}

	return []interface{}{
		p.Name, p.Description, p.CategoryID, p.CategoryName, p.Price.String(), p.RegularPrice.String(),
		strings.Join(sizes, listSeparator), p.Stock, strings.Join(p.Images, listSeparator), p.Rating,
		p.Reviews, p.IsFeatured, p.IsBestSeller, p.IsMostLoved, p.BrandName, p.Type, p.Material,
		p.Colour, string(p.Gender), strings.Join(p.TopNotes, listSeparator),
		strings.Join(p.HeartNotes, listSeparator), strings.Join(p.BaseNotes, listSeparator),
		p.ScentProfile, strings.Join(p.Tags, listSeparator), p.Utility, p.Care, p.IsGiftSet,
		strings.Join(items, listSeparator), p.GiftSetDiscount.String(), manual, p.Slug,
	}
}

type catalogRow struct {
	header map[string]int
	cells  []string
}

func (r catalogRow) get(column string) string {
	i, ok := r.header[column]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r catalogRow) blank() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (r catalogRow) text(column string, dest *string) {
	if v := r.get(column); v != "" {
		*dest = v
	}
}

func (r catalogRow) list(column string, dest *[]string) {
	if v := r.get(column); v != "" {
		*dest = splitList(v)
	}
}

func (r catalogRow) decimal(column string, dest *decimal.Decimal) error {
	v := r.get(column)
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return errNotANumber
	}
	*dest = d
	return nil
}

func (r catalogRow) integer(column string, dest *int) error {
	v := r.get(column)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.New("must be a whole number")
	}
	*dest = n
	return nil
}

func (r catalogRow) boolean(column string, dest *bool) error {
	switch strings.ToLower(r.get(column)) {
	case "":
		return nil
	case "true", "yes", "y", "1":
		*dest = true
	case "false", "no", "n", "0":
		*dest = false
	default:
		return errors.New("must be true or false")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
