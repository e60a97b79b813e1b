package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Gender string

const (
	GenderMen    Gender = "men"
	GenderWomen  Gender = "women"
	GenderUnisex Gender = "unisex"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMen, GenderWomen, GenderUnisex:
		return true
	}
	return false
}

const DefaultBrandName = "VINTAGE BEAUTY"

func init() {
	// Prices go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ProductSize is a purchasable size variant with its own price (e.g. "50ml").
type ProductSize struct {
	Size  string          `json:"size" validate:"required"`
	Price decimal.Decimal `json:"price" validate:"min=0"`
}

// GiftSetItem references a constituent product of a gift set.
// SelectedSize is empty when no size variant was chosen.
type GiftSetItem struct {
	ProductID    uint   `json:"product_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"min=1"`
	SelectedSize string `json:"selected_size,omitempty"`
}

type Performance struct {
	Longevity      string `json:"longevity,omitempty"`
	Projection     string `json:"projection,omitempty"`
	Note           string `json:"note,omitempty"`
	Warning        string `json:"warning,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

type Product struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	Name         string `gorm:"not null" json:"name"`
	Slug         string `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	Description  string `gorm:"type:text;not null" json:"description"`
	CategoryID   uint   `gorm:"not null;index" json:"category_id"`
	CategoryName string `gorm:"type:varchar(120);not null" json:"category_name"`

	Price        decimal.Decimal                  `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	RegularPrice decimal.Decimal                  `gorm:"type:decimal(12,2);not null;default:0" json:"regular_price"`
	Sizes        datatypes.JSONSlice[ProductSize] `json:"sizes"`
	Stock        int                              `gorm:"not null;default:0" json:"stock"`
	InStock      bool                             `gorm:"not null;default:false;index" json:"in_stock"`
	Images       datatypes.JSONSlice[string]      `json:"images"`
	Rating       float64                          `gorm:"default:0" json:"rating"`
	Reviews      int                              `gorm:"default:0" json:"reviews"`
	IsFeatured   bool                             `gorm:"default:false;index" json:"is_featured"`
	IsBestSeller bool                             `gorm:"default:false;index" json:"is_best_seller"`
	IsMostLoved  bool                             `gorm:"default:false;index" json:"is_most_loved"`
	BrandName    string                           `gorm:"type:varchar(120)" json:"brand_name"`
	Type         string                           `gorm:"type:varchar(120)" json:"type,omitempty"`
	Material     string                           `json:"material,omitempty"`
	Colour       string                           `json:"colour,omitempty"`
	Gender       Gender                           `gorm:"type:varchar(10);index" json:"gender,omitempty"`
	TopNotes     datatypes.JSONSlice[string]      `json:"top_notes"`
	HeartNotes   datatypes.JSONSlice[string]      `json:"heart_notes"`
	BaseNotes    datatypes.JSONSlice[string]      `json:"base_notes"`
	ScentProfile string                           `json:"scent_profile,omitempty"`
	Performance  datatypes.JSONType[Performance]  `json:"performance"`
	Tags         datatypes.JSONSlice[string]      `json:"tags"`
	Utility      string                           `json:"utility,omitempty"`
	Care         string                           `json:"care,omitempty"`

	IsGiftSet              bool                             `gorm:"default:false;index" json:"is_gift_set"`
	GiftSetItems           datatypes.JSONSlice[GiftSetItem] `json:"gift_set_items"`
	GiftSetDiscount        decimal.Decimal                  `gorm:"type:decimal(5,2);not null;default:0" json:"gift_set_discount"`
	GiftSetTotalPrice      decimal.Decimal                  `gorm:"type:decimal(12,2);not null;default:0" json:"gift_set_total_price"`
	GiftSetDiscountedPrice decimal.Decimal                  `gorm:"type:decimal(12,2);not null;default:0" json:"gift_set_discounted_price"`
	GiftSetManualPrice     *decimal.Decimal                 `gorm:"type:decimal(12,2)" json:"gift_set_manual_price,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// SizePrice returns the price of the named size variant.
func (p *Product) SizePrice(size string) (decimal.Decimal, bool) {
	for _, s := range p.Sizes {
		if s.Size == size {
			return s.Price, true
		}
	}
	return decimal.Zero, false
}
